package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydrostat/internal/domain"
	"hydrostat/internal/storage"
)

func createTestBatch(scenarioID string, kind domain.EntityKind, ids ...string) storage.Batch {
	var b storage.Batch
	for _, id := range ids {
		for wm := 1; wm <= 12; wm++ {
			b.Monthly = append(b.Monthly, &domain.MonthlyStatistic{
				ScenarioID:  scenarioID,
				EntityID:    id,
				EntityKind:  kind,
				WaterMonth:  wm,
				Signal:      domain.SignalStorage,
				Unit:        domain.UnitTAF,
				Mean:        ptr(100.0 + float64(wm)),
				CV:          ptr(0.25),
				Percentiles: &domain.PercentileSet{Q0: 1, Q10: 2, Q30: 3, Q50: 4, Q70: 5, Q90: 6, Q100: 7},
				Exceedance:  &domain.ExceedanceSet{P5: 7, P10: 6, P25: 5, P50: 4, P75: 3, P90: 2, P95: 1},
				SampleCount: 2,
			})
		}
		b.Summaries = append(b.Summaries, &domain.PeriodSummary{
			ScenarioID:           scenarioID,
			EntityID:             id,
			EntityKind:           kind,
			Signal:               domain.SignalStorage,
			Unit:                 domain.UnitTAF,
			SimulationStartYear:  1922,
			SimulationEndYear:    2021,
			TotalYears:           100,
			CompleteYears:        100,
			AnnualMean:           ptr(2500.0),
			AnnualExceedance:     &domain.ExceedanceSet{P5: 9, P10: 8, P25: 7, P50: 6, P75: 5, P90: 4, P95: 3},
			FloodPoolProbability: ptr(0.25),
			DeadPoolProbability:  ptr(0.0),
		})
	}
	return b
}

func TestStatisticsStore_ReplaceScopeRoundTrip(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewStatisticsStore(pool)
	scope := storage.Scope{ScenarioID: "base"}

	err := store.ReplaceScope(ctx, scope, createTestBatch("base", domain.EntityKindFacility, "SHASTA"))
	require.NoError(t, err)

	monthly, err := store.MonthlyByScope(ctx, scope)
	require.NoError(t, err)
	require.Len(t, monthly, 12)
	assert.Equal(t, 1, monthly[0].WaterMonth)
	assert.Equal(t, domain.EntityKindFacility, monthly[0].EntityKind)
	require.NotNil(t, monthly[0].Mean)
	assert.Equal(t, 101.0, *monthly[0].Mean)
	require.NotNil(t, monthly[0].Percentiles)
	assert.Equal(t, 7.0, monthly[0].Percentiles.Q100)
	require.NotNil(t, monthly[0].Exceedance)
	assert.Equal(t, 1.0, monthly[0].Exceedance.P95)
	assert.Nil(t, monthly[0].ShortageFrequencyPct)

	summaries, err := store.SummariesByScope(ctx, scope)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 100, summaries[0].TotalYears)
	assert.Nil(t, summaries[0].ReliabilityPct)
	require.NotNil(t, summaries[0].DeadPoolProbability)
	assert.Equal(t, 0.0, *summaries[0].DeadPoolProbability)
}

func TestStatisticsStore_ReplaceScopeIsIdempotent(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewStatisticsStore(pool)
	scope := storage.Scope{ScenarioID: "base"}
	batch := createTestBatch("base", domain.EntityKindFacility, "SHASTA", "OROVILLE")

	require.NoError(t, store.ReplaceScope(ctx, scope, batch))
	first, err := store.MonthlyByScope(ctx, scope)
	require.NoError(t, err)

	require.NoError(t, store.ReplaceScope(ctx, scope, batch))
	second, err := store.MonthlyByScope(ctx, scope)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, second, 24)
}

func TestStatisticsStore_ReplaceScopeByKind(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewStatisticsStore(pool)

	require.NoError(t, store.ReplaceScope(ctx, storage.Scope{ScenarioID: "base"},
		createTestBatch("base", domain.EntityKindFacility, "SHASTA")))

	contractors := storage.Scope{ScenarioID: "base", Kind: domain.EntityKindContractor}
	require.NoError(t, store.ReplaceScope(ctx, contractors, createTestBatch("base", domain.EntityKindContractor, "MWD")))
	require.NoError(t, store.ReplaceScope(ctx, contractors, createTestBatch("base", domain.EntityKindContractor, "KCWA")))

	all, err := store.SummariesByScope(ctx, storage.Scope{ScenarioID: "base"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "KCWA", all[0].EntityID)
	assert.Equal(t, "SHASTA", all[1].EntityID)

	p, err := store.SummaryByEntity(ctx, "base", "SHASTA")
	require.NoError(t, err)
	assert.Equal(t, domain.EntityKindFacility, p.EntityKind)

	_, err = store.SummaryByEntity(ctx, "base", "MWD")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStatisticsStore_RejectsOutOfScope(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewStatisticsStore(pool)

	err := store.ReplaceScope(ctx, storage.Scope{ScenarioID: "alt"}, createTestBatch("base", domain.EntityKindFacility, "SHASTA"))
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestClassify(t *testing.T) {
	serialization := &pgconn.PgError{Code: "40001"}
	assert.True(t, storage.IsTransient(classify("commit", serialization)))

	connLost := &pgconn.PgError{Code: "08006"}
	assert.True(t, storage.IsTransient(classify("commit", connLost)))

	undefinedTable := &pgconn.PgError{Code: "42P01"}
	err := classify("insert", undefinedTable)
	assert.False(t, storage.IsTransient(err))
	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr))

	assert.NoError(t, classify("noop", nil))
}
