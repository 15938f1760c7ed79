package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydrostat/internal/domain"
	"hydrostat/internal/storage"
	"hydrostat/internal/storage/memory"
	"hydrostat/internal/verification"
)

func ptrFloat64(v float64) *float64 {
	return &v
}

func sampleReport() *Report {
	var monthly []*domain.MonthlyStatistic
	for wm := 1; wm <= 12; wm++ {
		monthly = append(monthly, &domain.MonthlyStatistic{
			ScenarioID:  "base",
			EntityID:    "SHASTA",
			EntityKind:  domain.EntityKindFacility,
			WaterMonth:  wm,
			Signal:      domain.SignalStorage,
			Unit:        domain.UnitTAF,
			SampleCount: 2,
			Mean:        ptrFloat64(float64(wm)),
			CV:          ptrFloat64(0),
			Percentiles: &domain.PercentileSet{Q0: 1, Q10: 1, Q30: 1, Q50: 1, Q70: 1, Q90: 1, Q100: 1},
		})
	}

	return &Report{
		GeneratedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ScenarioID:  "base",
		RunID:       "run-1",
		Digest:      "abc",
		Outcomes: []domain.EntityOutcome{
			{EntityID: "BROKEN", Kind: domain.EntityKindDemandUnit, Status: domain.EntityStatusFailed, Variable: "DN_99", Reason: "missing | variable"},
			{EntityID: "DELTA", Kind: domain.EntityKindSystemAggregate, Status: domain.EntityStatusSkippedUnavailable, Reason: "unavailable"},
			{EntityID: "SHASTA", Kind: domain.EntityKindFacility, Status: domain.EntityStatusSucceeded},
		},
		Monthly: monthly,
		Summaries: []*domain.PeriodSummary{
			{ScenarioID: "base", EntityID: "DELTA", EntityKind: domain.EntityKindSystemAggregate, SimulationStartYear: 2000, SimulationEndYear: 2001, TotalYears: 2},
			{
				ScenarioID: "base", EntityID: "SHASTA", EntityKind: domain.EntityKindFacility,
				Signal: domain.SignalStorage, Unit: domain.UnitTAF,
				SimulationStartYear: 2000, SimulationEndYear: 2001, TotalYears: 2, CompleteYears: 2,
				AnnualMean: ptrFloat64(6.5), AnnualCV: ptrFloat64(0.1),
			},
		},
	}
}

func TestRenderMonthlyCSV(t *testing.T) {
	r := sampleReport()
	r.Monthly[1].Mean = nil
	r.Monthly[1].Percentiles = nil

	out := RenderMonthlyCSV(r.Monthly)
	lines := strings.Split(strings.TrimSpace(out), "\n")

	require.Len(t, lines, 13)
	header := strings.Split(lines[0], ",")
	for _, line := range lines[1:] {
		assert.Len(t, strings.Split(line, ","), len(header), "column count for %q", line)
	}
	assert.True(t, strings.HasPrefix(lines[1], "base,SHASTA,facility,1,storage,TAF,2,1.000000,0.000000,1.000000"))
	assert.Contains(t, lines[2], "base,SHASTA,facility,2,storage,TAF,2,,0.000000,,,,,,,,")
}

func TestRenderSummaryCSV(t *testing.T) {
	r := sampleReport()

	out := RenderSummaryCSV(r.Summaries)
	lines := strings.Split(strings.TrimSpace(out), "\n")

	require.Len(t, lines, 3)
	header := strings.Split(lines[0], ",")
	for _, line := range lines[1:] {
		assert.Len(t, strings.Split(line, ","), len(header), "column count for %q", line)
	}
	assert.Contains(t, lines[2], "2000,2001,2,2,6.500000,0.100000")
	assert.True(t, strings.HasSuffix(lines[2], ",false"))
}

func TestRenderMarkdown(t *testing.T) {
	r := sampleReport()

	out := RenderMarkdown(r)

	assert.Contains(t, out, "# Scenario base")
	assert.Contains(t, out, "| Succeeded | 1 |")
	assert.Contains(t, out, "| Skipped (unavailable) | 1 |")
	assert.Contains(t, out, "| Failed | 1 |")
	assert.Contains(t, out, "| BROKEN | demand_unit | failed | DN_99 | missing \\| variable |")
	assert.Contains(t, out, "| SHASTA | 1.0000 | 2.0000 |")
	assert.NotContains(t, out, "## Verification")
}

func TestRenderMarkdown_Verification(t *testing.T) {
	r := sampleReport()
	r.Verification = &verification.Report{
		Compared: 12,
		Matched:  11,
		Divergences: []verification.FieldDivergence{
			{EntityID: "SHASTA", WaterMonth: 3, Field: "mean", Expected: ptrFloat64(3.5), Actual: ptrFloat64(3)},
		},
		Anomalies: []verification.Anomaly{
			{Kind: verification.AnomalyReferenceConstantMonthly, EntityID: "RES_AGG", Field: "mean"},
		},
	}

	out := RenderMarkdown(r)

	assert.Contains(t, out, "Status: **MISMATCH** (12 compared, 11 matched, 0 missing)")
	assert.Contains(t, out, "| SHASTA | 3 | mean | 3.5000 | 3.0000 |")
	assert.Contains(t, out, "### Anomaly: ReferenceConstantMonthly (RES_AGG)")
}

func TestRenderSummaryTable(t *testing.T) {
	r := sampleReport()

	out := RenderSummaryTable(r)

	assert.Contains(t, out, "SHASTA")
	assert.Contains(t, out, "6.500")
	assert.Contains(t, out, "skipped_unavailable")
	assert.Contains(t, out, "BROKEN")
	assert.Contains(t, out, "1 ok / 1 skipped / 1 failed")
}

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStatisticsStore()
	r := sampleReport()

	scope := storage.Scope{ScenarioID: "base"}
	require.NoError(t, store.ReplaceScope(ctx, scope, storage.Batch{Monthly: r.Monthly, Summaries: r.Summaries}))

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	gen := NewGenerator(store).WithClock(func() time.Time { return now })

	report, err := gen.Generate(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, now, report.GeneratedAt)
	assert.Len(t, report.Monthly, 12)
	assert.Len(t, report.Summaries, 2)
	assert.Empty(t, report.Outcomes)

	_, err = gen.Generate(ctx, storage.Scope{ScenarioID: "other"})
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
