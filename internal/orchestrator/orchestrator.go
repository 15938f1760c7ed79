// Package orchestrator provides statistics run orchestration.
// It coordinates: dataset load → normalization → metrics → sink
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"hydrostat/internal/dataset"
	"hydrostat/internal/domain"
	"hydrostat/internal/idhash"
	"hydrostat/internal/metrics"
	"hydrostat/internal/normalization"
	"hydrostat/internal/observability"
	"hydrostat/internal/registry"
	"hydrostat/internal/storage"
	"hydrostat/internal/wateryear"
)

// ErrInvalidRequest is returned when a run request cannot be executed.
var ErrInvalidRequest = errors.New("invalid run request")

// Orchestrator coordinates one statistics run per scenario.
// Flow: load dataset → per-entity normalization and aggregation → replace scope
type Orchestrator struct {
	registry   *registry.Registry
	source     dataset.Source
	sink       storage.StatisticsSink
	normalizer normalization.Engine

	workers     int
	readTimeout time.Duration
	policy      wateryear.PartialYearPolicy

	metrics *observability.Metrics
	logger  *log.Logger
	verbose bool
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Registry *registry.Registry
	Source   dataset.Source

	// Sink is required unless every run is a dry run.
	Sink storage.StatisticsSink

	// Normalizer defaults to one converting to the registry volume unit.
	Normalizer normalization.Engine

	Workers           int           // default 4
	ReadTimeout       time.Duration // dataset read deadline, 0 = none
	PartialYearPolicy *wateryear.PartialYearPolicy

	Metrics *observability.Metrics
	Logger  *log.Logger
	Verbose bool
}

// New creates a new Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if opts.Source == nil {
		return nil, errors.New("dataset source is required")
	}

	normalizer := opts.Normalizer
	if normalizer == nil {
		n, err := normalization.NewNormalizer(opts.Registry.VolumeUnit())
		if err != nil {
			return nil, err
		}
		normalizer = n
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	policy := wateryear.DefaultPartialYearPolicy
	if opts.PartialYearPolicy != nil {
		policy = *opts.PartialYearPolicy
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[orchestrator] ", log.LstdFlags)
	}

	return &Orchestrator{
		registry:    opts.Registry,
		source:      opts.Source,
		sink:        opts.Sink,
		normalizer:  normalizer,
		workers:     workers,
		readTimeout: opts.ReadTimeout,
		policy:      policy,
		metrics:     opts.Metrics,
		logger:      logger,
		verbose:     opts.Verbose,
	}, nil
}

// RunResult contains results from one run.
type RunResult struct {
	RunID      string
	ScenarioID string
	Kind       domain.EntityKind
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time

	// Outcomes holds one entry per entity, sorted by entity id.
	Outcomes []domain.EntityOutcome

	// Emitted rows, sorted by entity id then water month.
	Monthly   []*domain.MonthlyStatistic
	Summaries []*domain.PeriodSummary

	// Digest is the SHA-256 of the canonical row rendering.
	Digest  string
	Written bool
	Errors  []string
}

// Count returns the number of entities with the given status.
func (r *RunResult) Count(status domain.EntityStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Duration returns the wall time of the run.
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Batch returns the emitted rows as a sink batch.
func (r *RunResult) Batch() storage.Batch {
	return storage.Batch{Monthly: r.Monthly, Summaries: r.Summaries}
}

// entityResult is the per-entity output of a worker.
type entityResult struct {
	outcome domain.EntityOutcome
	monthly []*domain.MonthlyStatistic
	summary *domain.PeriodSummary
}

// Run executes one statistics run.
// Phases:
//  1. Load the scenario dataset
//  2. Normalize and aggregate each entity in a bounded worker pool
//  3. Replace the (scenario, kind) scope in the sink, unless dry run
func (o *Orchestrator) Run(ctx context.Context, req domain.RunRequest) (*RunResult, error) {
	if req.ScenarioID == "" {
		return nil, fmt.Errorf("%w: scenario id is required", ErrInvalidRequest)
	}
	if req.Kind != "" && !req.Kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown entity kind %q", ErrInvalidRequest, req.Kind)
	}
	if !req.DryRun && o.sink == nil {
		return nil, fmt.Errorf("%w: no sink configured for a writing run", ErrInvalidRequest)
	}

	result := &RunResult{
		RunID:      uuid.NewString(),
		ScenarioID: req.ScenarioID,
		Kind:       req.Kind,
		DryRun:     req.DryRun,
		StartedAt:  time.Now(),
	}
	defer o.recordRun(result)

	// Phase 1: Load dataset
	o.log("Phase 1: Loading scenario %s...", req.ScenarioID)
	series, err := o.loadDataset(ctx, req.ScenarioID)
	if err != nil {
		result.FinishedAt = time.Now()
		result.Errors = append(result.Errors, err.Error())
		return result, fmt.Errorf("phase 1 (load dataset) failed: %w", err)
	}
	o.log("  Loaded %d variables over %d months", len(series.Values), series.Len())

	// Phase 2: Entities
	entities := o.registry.Entities(req.Kind)
	o.log("Phase 2: Processing %d entities with %d workers...", len(entities), o.workers)
	results, err := o.processEntities(ctx, req.ScenarioID, series, entities)
	if err != nil {
		result.FinishedAt = time.Now()
		result.Errors = append(result.Errors, err.Error())
		return result, fmt.Errorf("phase 2 (entities) cancelled: %w", err)
	}
	o.collect(result, results)
	o.log("  %d succeeded, %d skipped, %d failed",
		result.Count(domain.EntityStatusSucceeded),
		result.Count(domain.EntityStatusSkippedUnavailable),
		result.Count(domain.EntityStatusFailed))

	// Phase 3: Sink
	if req.DryRun {
		o.log("Phase 3: Dry run, %d rows not written", len(result.Monthly)+len(result.Summaries))
		result.FinishedAt = time.Now()
		return result, nil
	}

	o.log("Phase 3: Replacing scope...")
	scope := storage.Scope{ScenarioID: req.ScenarioID, Kind: req.Kind}
	start := time.Now()
	err = o.sink.ReplaceScope(ctx, scope, result.Batch())
	o.metrics.RecordSinkWrite(time.Since(start).Seconds(), err)
	result.FinishedAt = time.Now()
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, fmt.Errorf("phase 3 (sink) failed: %w", err)
	}
	result.Written = true
	o.metrics.RecordRows(len(result.Monthly), len(result.Summaries))
	o.log("  Wrote %d monthly rows and %d summaries to %s",
		len(result.Monthly), len(result.Summaries), scope)

	return result, nil
}

// loadDataset reads the scenario under the read timeout.
func (o *Orchestrator) loadDataset(ctx context.Context, scenarioID string) (*domain.ScenarioSeries, error) {
	if o.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.readTimeout)
		defer cancel()
	}

	start := time.Now()
	series, err := o.source.LoadScenario(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	o.metrics.RecordDatasetRead(len(series.Values), series.Len(), time.Since(start).Seconds())
	return series, nil
}

// processEntities fans entities out over the worker pool.
// Entity failures are isolated; only cancellation aborts the pool.
func (o *Orchestrator) processEntities(ctx context.Context, scenarioID string, series *domain.ScenarioSeries, entities []*registry.Entity) ([]entityResult, error) {
	results := make([]entityResult, len(entities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i, e := range entities {
		if err := gctx.Err(); err != nil {
			break
		}
		i, e := i, e
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			results[i] = o.processEntity(scenarioID, series, e)
			o.metrics.RecordEntity(string(e.Kind), string(results[i].outcome.Status), time.Since(start).Seconds())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// processEntity runs normalization and aggregation for one entity.
func (o *Orchestrator) processEntity(scenarioID string, series *domain.ScenarioSeries, e *registry.Entity) entityResult {
	outcome := domain.EntityOutcome{EntityID: e.ID, Kind: e.Kind}

	if e.Err != nil {
		return o.fail(outcome, e.Err)
	}

	res, err := o.normalizer.NormalizeEntity(series, e)
	if err != nil {
		var dcv *normalization.DataContractViolation
		if errors.As(err, &dcv) {
			outcome.Variable = dcv.Variable
		}
		return o.fail(outcome, err)
	}

	in := metrics.EntityInput{
		ScenarioID:      scenarioID,
		EntityID:        e.ID,
		Kind:            e.Kind,
		Primary:         e.Primary,
		Unit:            o.registry.VolumeUnit(),
		Axis:            series.Dates,
		Series:          res.Series,
		Thresholds:      res.Thresholds,
		GroundwaterOnly: res.GroundwaterOnly,
		Policy:          o.policy,
	}
	monthly, summary := metrics.Aggregate(in)

	if res.AllUnavailable() {
		outcome.Status = domain.EntityStatusSkippedUnavailable
		outcome.Reason = string(res.Unavailable[e.Primary])
		o.log("  %s skipped: %s", e.ID, outcome.Reason)
		return entityResult{outcome: outcome, summary: summary}
	}

	outcome.Status = domain.EntityStatusSucceeded
	return entityResult{outcome: outcome, monthly: monthly, summary: summary}
}

func (o *Orchestrator) fail(outcome domain.EntityOutcome, err error) entityResult {
	outcome.Status = domain.EntityStatusFailed
	outcome.Reason = err.Error()
	o.logger.Printf("entity %s failed: %v", outcome.EntityID, err)
	return entityResult{outcome: outcome}
}

// collect merges worker results in entity id order.
func (o *Orchestrator) collect(result *RunResult, results []entityResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].outcome.EntityID < results[j].outcome.EntityID
	})

	for _, r := range results {
		result.Outcomes = append(result.Outcomes, r.outcome)
		result.Monthly = append(result.Monthly, r.monthly...)
		if r.summary != nil {
			result.Summaries = append(result.Summaries, r.summary)
		}
		if r.outcome.Status == domain.EntityStatusFailed {
			result.Errors = append(result.Errors, fmt.Sprintf("entity %s: %s", r.outcome.EntityID, r.outcome.Reason))
		}
	}
	result.Digest = idhash.OutputDigest(result.Monthly, result.Summaries)
}

func (o *Orchestrator) recordRun(result *RunResult) {
	mode := "write"
	if result.DryRun {
		mode = "dry_run"
	}
	status := "success"
	if result.Count(domain.EntityStatusFailed) > 0 || (!result.DryRun && !result.Written) {
		status = "failure"
	}
	o.metrics.RecordRun(mode, status, result.Duration().Seconds(), result.FinishedAt.Unix())
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		o.logger.Printf(format, args...)
	}
}
