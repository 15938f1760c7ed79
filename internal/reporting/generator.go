package reporting

import (
	"context"
	"fmt"
	"time"

	"hydrostat/internal/storage"
)

// Generator produces reports from stored statistics.
type Generator struct {
	reader storage.StatisticsReader
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(reader storage.StatisticsReader) *Generator {
	return &Generator{
		reader: reader,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate reads every stored row of a scope into a report.
// Returns storage.ErrNotFound if the scope holds no rows.
func (g *Generator) Generate(ctx context.Context, scope storage.Scope) (*Report, error) {
	monthly, err := g.reader.MonthlyByScope(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("read monthly statistics: %w", err)
	}

	summaries, err := g.reader.SummariesByScope(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("read period summaries: %w", err)
	}

	if len(monthly) == 0 && len(summaries) == 0 {
		return nil, fmt.Errorf("scope %s: %w", scope, storage.ErrNotFound)
	}

	return &Report{
		GeneratedAt: g.now(),
		ScenarioID:  scope.ScenarioID,
		Kind:        scope.Kind,
		Monthly:     monthly,
		Summaries:   summaries,
	}, nil
}
