// Package main provides the statistics run entry point.
// Executes: load dataset → normalize entities → compute statistics → replace scope
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"hydrostat/internal/config"
	"hydrostat/internal/dataset"
	"hydrostat/internal/domain"
	"hydrostat/internal/observability"
	"hydrostat/internal/orchestrator"
	"hydrostat/internal/registry"
	"hydrostat/internal/reporting"
	"hydrostat/internal/storage"
	chstore "hydrostat/internal/storage/clickhouse"
	pgstore "hydrostat/internal/storage/postgres"
	"hydrostat/internal/verification"
)

// Exit codes
const (
	exitOK       = 0
	exitError    = 1
	exitDegraded = 2 // some entities failed or verification mismatched
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(exitError)
	}

	// Parse flags
	scenarioID := flag.String("scenario", "", "Scenario ID to process (required)")
	kind := flag.String("kind", "", "Entity kind filter: facility, demand_unit, contractor, system_aggregate (empty = all)")
	dryRun := flag.Bool("dry-run", false, "Compute and report without writing to the sink")
	referencePath := flag.String("reference", "", "Reference CSV to verify monthly statistics against")
	inputPath := flag.String("input", "", "Scenario CSV/XLSX file (empty = read from ClickHouse)")
	sheet := flag.String("sheet", "", "XLSX sheet name (default: first sheet)")
	mappingPath := flag.String("mapping", cfg.MappingPath, "Variable mapping YAML file")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string for statistics output")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string for scenario series")
	workers := flag.Int("workers", cfg.Workers, "Entity worker pool size")
	readTimeout := flag.Duration("read-timeout", cfg.ReadTimeout, "Dataset read timeout")
	writeTimeout := flag.Duration("write-timeout", cfg.WriteTimeout, "Sink write timeout per attempt")
	maxRetries := flag.Int("max-retries", cfg.SinkMaxRetries, "Sink retries after the first attempt")
	missingArcPolicy := flag.String("missing-arc-policy", cfg.MissingArcPolicy, "Missing arc handling in sums: zero or exclude (empty = mapping default)")
	outputDir := flag.String("output-dir", "", "Write CSV and Markdown outputs to this directory")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics HTTP address (empty to disable)")
	verbose := flag.Bool("verbose", cfg.Verbose, "Verbose output")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[hydrostat] ", log.LstdFlags)

	if *scenarioID == "" {
		fmt.Fprintln(os.Stderr, "Error: --scenario is required")
		flag.Usage()
		os.Exit(exitError)
	}
	if *inputPath == "" && *clickhouseDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --input or --clickhouse-dsn is required")
		os.Exit(exitError)
	}
	if !*dryRun && *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn is required unless --dry-run is set")
		os.Exit(exitError)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling run...", sig)
		cancel()
	}()

	// Start metrics server if enabled
	metrics := observability.NewMetrics("hydrostat", nil)
	if *metricsAddr != "" {
		go serveMetrics(logger, *metricsAddr)
	}

	code := run(ctx, logger, metrics, runArgs{
		request: domain.RunRequest{
			ScenarioID: *scenarioID,
			Kind:       domain.EntityKind(*kind),
			DryRun:     *dryRun,
		},
		referencePath:    *referencePath,
		inputPath:        *inputPath,
		sheet:            *sheet,
		mappingPath:      *mappingPath,
		postgresDSN:      *postgresDSN,
		clickhouseDSN:    *clickhouseDSN,
		workers:          *workers,
		readTimeout:      *readTimeout,
		writeTimeout:     *writeTimeout,
		maxRetries:       *maxRetries,
		missingArcPolicy: registry.MissingArcPolicy(*missingArcPolicy),
		outputDir:        *outputDir,
		verbose:          *verbose,
	})
	os.Exit(code)
}

type runArgs struct {
	request          domain.RunRequest
	referencePath    string
	inputPath        string
	sheet            string
	mappingPath      string
	postgresDSN      string
	clickhouseDSN    string
	workers          int
	readTimeout      time.Duration
	writeTimeout     time.Duration
	maxRetries       int
	missingArcPolicy registry.MissingArcPolicy
	outputDir        string
	verbose          bool
}

func run(ctx context.Context, logger *log.Logger, metrics *observability.Metrics, args runArgs) int {
	// Registry
	reg, err := registry.LoadFile(args.mappingPath, registry.LoadOptions{MissingArcPolicy: args.missingArcPolicy})
	if err != nil {
		logger.Printf("Error loading mapping: %v", err)
		return exitError
	}
	logger.Printf("Loaded %d entities from %s (volume unit %s)", reg.Len(), args.mappingPath, reg.VolumeUnit())

	// Dataset source
	var source dataset.Source
	if args.inputPath != "" {
		source = dataset.NewFileReader(args.inputPath, args.sheet, log.New(os.Stderr, "[dataset] ", log.LstdFlags))
	} else {
		conn, err := chstore.NewConn(ctx, args.clickhouseDSN)
		if err != nil {
			logger.Printf("Error connecting to ClickHouse: %v", err)
			return exitError
		}
		defer conn.Close()
		source = chstore.NewScenarioSeriesStore(conn)
	}

	// Sink
	var sink storage.StatisticsSink
	if !args.request.DryRun {
		pool, err := pgstore.NewPool(ctx, args.postgresDSN)
		if err != nil {
			logger.Printf("Error connecting to PostgreSQL: %v", err)
			return exitError
		}
		defer pool.Close()

		opts := storage.DefaultRetryOptions()
		opts.MaxRetries = args.maxRetries
		opts.AttemptTimeout = args.writeTimeout
		sink = storage.NewRetryingSink(
			pgstore.NewStatisticsStore(pool),
			opts,
			log.New(os.Stderr, "[sink] ", log.LstdFlags),
			func(attempt int, err error, retrying bool) {
				outcome := "permanent"
				if retrying {
					outcome = "transient"
				}
				metrics.RecordSinkAttempt(outcome)
			},
		)
	}

	orch, err := orchestrator.New(orchestrator.Options{
		Registry:    reg,
		Source:      source,
		Sink:        sink,
		Workers:     args.workers,
		ReadTimeout: args.readTimeout,
		Metrics:     metrics,
		Logger:      log.New(os.Stderr, "[orchestrator] ", log.LstdFlags),
		Verbose:     args.verbose,
	})
	if err != nil {
		logger.Printf("Error creating orchestrator: %v", err)
		return exitError
	}

	result, runErr := orch.Run(ctx, args.request)
	if result == nil {
		logger.Printf("Run error: %v", runErr)
		return exitError
	}

	report := &reporting.Report{
		GeneratedAt: result.FinishedAt.UTC(),
		ScenarioID:  result.ScenarioID,
		Kind:        result.Kind,
		RunID:       result.RunID,
		DryRun:      result.DryRun,
		Digest:      result.Digest,
		Outcomes:    result.Outcomes,
		Monthly:     result.Monthly,
		Summaries:   result.Summaries,
	}

	// Verification
	if args.referencePath != "" && runErr == nil {
		ref, err := verification.LoadReferenceFile(args.referencePath)
		if err != nil {
			logger.Printf("Error loading reference: %v", err)
			return exitError
		}
		report.Verification = verification.Verify(ref, result.Monthly)
	}

	fmt.Println(reporting.RenderSummaryTable(report))
	fmt.Printf("Run %s finished in %s, digest %s\n", result.RunID, result.Duration().Round(time.Millisecond), result.Digest)

	if args.outputDir != "" {
		if err := writeOutputs(args.outputDir, report); err != nil {
			logger.Printf("Error writing outputs: %v", err)
			return exitError
		}
		logger.Printf("Wrote outputs to %s", args.outputDir)
	}

	if runErr != nil {
		var swf *storage.SinkWriteFailure
		if errors.As(runErr, &swf) {
			logger.Printf("Sink write failed after %d attempts, previous outputs kept: %v", swf.Attempts, swf.Err)
		} else {
			logger.Printf("Run error: %v", runErr)
		}
		return exitError
	}

	for _, e := range result.Errors {
		logger.Printf("  - %s", e)
	}

	if v := report.Verification; v != nil {
		for _, a := range v.Anomalies {
			logger.Printf("Reference anomaly %s for %s: reference and computed values kept", a.Kind, a.EntityID)
		}
		if !v.Match() {
			logger.Printf("Verification mismatch: %d divergent fields, %d missing rows", len(v.Divergences), len(v.Missing))
			return exitDegraded
		}
	}

	if result.Count(domain.EntityStatusFailed) > 0 {
		return exitDegraded
	}
	return exitOK
}

// writeOutputs writes the CSV and Markdown renderings of a report.
func writeOutputs(dir string, report *reporting.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	files := map[string]string{
		"monthly_statistics.csv": reporting.RenderMonthlyCSV(report.Monthly),
		"period_summaries.csv":   reporting.RenderSummaryCSV(report.Summaries),
		"REPORT.md":              reporting.RenderMarkdown(report),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func serveMetrics(logger *log.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	logger.Printf("Starting metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("Metrics server error: %v", err)
	}
}
