package storage

import (
	"context"
	"fmt"

	"hydrostat/internal/domain"
)

// Scope is the unit of atomic replacement: every output row of a scenario,
// optionally narrowed to one entity kind.
type Scope struct {
	ScenarioID string
	Kind       domain.EntityKind // empty = all kinds
}

func (s Scope) String() string {
	if s.Kind == "" {
		return fmt.Sprintf("scenario %s", s.ScenarioID)
	}
	return fmt.Sprintf("scenario %s/%s", s.ScenarioID, s.Kind)
}

// Contains reports whether a row of the given scenario and kind belongs to the scope.
func (s Scope) Contains(scenarioID string, kind domain.EntityKind) bool {
	return scenarioID == s.ScenarioID && (s.Kind == "" || kind == s.Kind)
}

// Batch is the complete output of one run for a scope.
type Batch struct {
	Monthly   []*domain.MonthlyStatistic
	Summaries []*domain.PeriodSummary
}

// Len returns the total number of rows.
func (b Batch) Len() int {
	return len(b.Monthly) + len(b.Summaries)
}

// Validate checks that every row lies inside scope and natural keys are unique.
func (b Batch) Validate(scope Scope) error {
	if scope.ScenarioID == "" {
		return fmt.Errorf("%w: empty scenario id", ErrInvalidInput)
	}

	type monthlyKey struct {
		entityID   string
		waterMonth int
	}
	seenMonthly := make(map[monthlyKey]struct{}, len(b.Monthly))
	for _, m := range b.Monthly {
		if !scope.Contains(m.ScenarioID, m.EntityKind) {
			return fmt.Errorf("%w: monthly row %s/%s outside %s", ErrInvalidInput, m.ScenarioID, m.EntityID, scope)
		}
		if m.WaterMonth < 1 || m.WaterMonth > 12 {
			return fmt.Errorf("%w: water month %d for %s", ErrInvalidInput, m.WaterMonth, m.EntityID)
		}
		k := monthlyKey{m.EntityID, m.WaterMonth}
		if _, ok := seenMonthly[k]; ok {
			return fmt.Errorf("%w: duplicate monthly row %s/%d", ErrInvalidInput, m.EntityID, m.WaterMonth)
		}
		seenMonthly[k] = struct{}{}
	}

	seenSummary := make(map[string]struct{}, len(b.Summaries))
	for _, s := range b.Summaries {
		if !scope.Contains(s.ScenarioID, s.EntityKind) {
			return fmt.Errorf("%w: summary row %s/%s outside %s", ErrInvalidInput, s.ScenarioID, s.EntityID, scope)
		}
		if _, ok := seenSummary[s.EntityID]; ok {
			return fmt.Errorf("%w: duplicate summary row %s", ErrInvalidInput, s.EntityID)
		}
		seenSummary[s.EntityID] = struct{}{}
	}

	return nil
}

// StatisticsSink persists run output.
type StatisticsSink interface {
	// ReplaceScope deletes every row in scope and upserts batch by natural key
	// as one atomic operation. Re-running with the same batch is a no-op.
	ReplaceScope(ctx context.Context, scope Scope, batch Batch) error
}

// StatisticsReader reads persisted run output.
type StatisticsReader interface {
	// MonthlyByScope returns monthly rows ordered by (entity_id, water_month).
	MonthlyByScope(ctx context.Context, scope Scope) ([]*domain.MonthlyStatistic, error)

	// SummariesByScope returns summary rows ordered by entity_id.
	SummariesByScope(ctx context.Context, scope Scope) ([]*domain.PeriodSummary, error)
}

// ScenarioSeriesStore holds raw scenario series in long format.
type ScenarioSeriesStore interface {
	// ReplaceScenario replaces every stored value of the series' scenario.
	ReplaceScenario(ctx context.Context, series *domain.ScenarioSeries) error

	// LoadScenario materializes a scenario. Returns ErrNotFound if it has no rows.
	LoadScenario(ctx context.Context, scenarioID string) (*domain.ScenarioSeries, error)

	// ListScenarios returns stored scenario ids in ascending order.
	ListScenarios(ctx context.Context) ([]string, error)
}
