package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hydrostat/internal/domain"
	"hydrostat/internal/storage"
)

// StatisticsStore implements storage.StatisticsSink and storage.StatisticsReader using PostgreSQL.
type StatisticsStore struct {
	pool *Pool
}

// NewStatisticsStore creates a new StatisticsStore.
func NewStatisticsStore(pool *Pool) *StatisticsStore {
	return &StatisticsStore{pool: pool}
}

// Compile-time interface checks.
var (
	_ storage.StatisticsSink   = (*StatisticsStore)(nil)
	_ storage.StatisticsReader = (*StatisticsStore)(nil)
)

const upsertMonthly = `
	INSERT INTO monthly_statistics (
		scenario_id, entity_id, water_month, entity_kind, signal, unit,
		mean, cv,
		q0, q10, q30, q50, q70, q90, q100,
		p5, p10, p25, p50, p75, p90, p95,
		sample_count, shortage_frequency_pct, shortage_mean, demand_mean
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8,
		$9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21, $22,
		$23, $24, $25, $26
	)
	ON CONFLICT (scenario_id, entity_id, water_month) DO UPDATE SET
		entity_kind = EXCLUDED.entity_kind,
		signal = EXCLUDED.signal,
		unit = EXCLUDED.unit,
		mean = EXCLUDED.mean,
		cv = EXCLUDED.cv,
		q0 = EXCLUDED.q0, q10 = EXCLUDED.q10, q30 = EXCLUDED.q30, q50 = EXCLUDED.q50,
		q70 = EXCLUDED.q70, q90 = EXCLUDED.q90, q100 = EXCLUDED.q100,
		p5 = EXCLUDED.p5, p10 = EXCLUDED.p10, p25 = EXCLUDED.p25, p50 = EXCLUDED.p50,
		p75 = EXCLUDED.p75, p90 = EXCLUDED.p90, p95 = EXCLUDED.p95,
		sample_count = EXCLUDED.sample_count,
		shortage_frequency_pct = EXCLUDED.shortage_frequency_pct,
		shortage_mean = EXCLUDED.shortage_mean,
		demand_mean = EXCLUDED.demand_mean,
		updated_at = now()
`

const upsertSummary = `
	INSERT INTO period_summaries (
		scenario_id, entity_id, entity_kind, signal, unit,
		simulation_start_year, simulation_end_year, total_years, complete_years,
		annual_mean, annual_cv,
		annual_p5, annual_p10, annual_p25, annual_p50, annual_p75, annual_p90, annual_p95,
		cv_all_months, cv_april, cv_september,
		flood_pool_probability, dead_pool_probability,
		flood_pool_probability_designated, dead_pool_probability_designated,
		avg_delivery, avg_shortage, avg_demand,
		reliability_pct, demand_met_pct, shortage_frequency_pct,
		groundwater_only
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9,
		$10, $11,
		$12, $13, $14, $15, $16, $17, $18,
		$19, $20, $21,
		$22, $23,
		$24, $25,
		$26, $27, $28,
		$29, $30, $31,
		$32
	)
	ON CONFLICT (scenario_id, entity_id) DO UPDATE SET
		entity_kind = EXCLUDED.entity_kind,
		signal = EXCLUDED.signal,
		unit = EXCLUDED.unit,
		simulation_start_year = EXCLUDED.simulation_start_year,
		simulation_end_year = EXCLUDED.simulation_end_year,
		total_years = EXCLUDED.total_years,
		complete_years = EXCLUDED.complete_years,
		annual_mean = EXCLUDED.annual_mean,
		annual_cv = EXCLUDED.annual_cv,
		annual_p5 = EXCLUDED.annual_p5, annual_p10 = EXCLUDED.annual_p10,
		annual_p25 = EXCLUDED.annual_p25, annual_p50 = EXCLUDED.annual_p50,
		annual_p75 = EXCLUDED.annual_p75, annual_p90 = EXCLUDED.annual_p90,
		annual_p95 = EXCLUDED.annual_p95,
		cv_all_months = EXCLUDED.cv_all_months,
		cv_april = EXCLUDED.cv_april,
		cv_september = EXCLUDED.cv_september,
		flood_pool_probability = EXCLUDED.flood_pool_probability,
		dead_pool_probability = EXCLUDED.dead_pool_probability,
		flood_pool_probability_designated = EXCLUDED.flood_pool_probability_designated,
		dead_pool_probability_designated = EXCLUDED.dead_pool_probability_designated,
		avg_delivery = EXCLUDED.avg_delivery,
		avg_shortage = EXCLUDED.avg_shortage,
		avg_demand = EXCLUDED.avg_demand,
		reliability_pct = EXCLUDED.reliability_pct,
		demand_met_pct = EXCLUDED.demand_met_pct,
		shortage_frequency_pct = EXCLUDED.shortage_frequency_pct,
		groundwater_only = EXCLUDED.groundwater_only,
		updated_at = now()
`

// ReplaceScope deletes every row in scope and upserts batch in one transaction.
// A transaction-scoped advisory lock on the scenario serializes concurrent
// writers of the same scenario.
func (s *StatisticsStore) ReplaceScope(ctx context.Context, scope storage.Scope, batch storage.Batch) error {
	if err := batch.Validate(scope); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, scope.ScenarioID); err != nil {
		return classify("acquire scenario lock", err)
	}

	kind := string(scope.Kind)
	if _, err := tx.Exec(ctx, `
		DELETE FROM monthly_statistics
		WHERE scenario_id = $1 AND ($2 = '' OR entity_kind = $2)
	`, scope.ScenarioID, kind); err != nil {
		return classify("delete monthly scope", err)
	}
	if _, err := tx.Exec(ctx, `
		DELETE FROM period_summaries
		WHERE scenario_id = $1 AND ($2 = '' OR entity_kind = $2)
	`, scope.ScenarioID, kind); err != nil {
		return classify("delete summary scope", err)
	}

	b := &pgx.Batch{}
	for _, m := range batch.Monthly {
		b.Queue(upsertMonthly, monthlyArgs(m)...)
	}
	for _, p := range batch.Summaries {
		b.Queue(upsertSummary, summaryArgs(p)...)
	}

	if b.Len() > 0 {
		br := tx.SendBatch(ctx, b)
		for i := 0; i < b.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return classify(fmt.Sprintf("upsert row %d", i+1), err)
			}
		}
		if err := br.Close(); err != nil {
			return classify("close batch", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("commit tx", err)
	}

	return nil
}

// MonthlyByScope returns monthly rows ordered by (entity_id, water_month).
func (s *StatisticsStore) MonthlyByScope(ctx context.Context, scope storage.Scope) ([]*domain.MonthlyStatistic, error) {
	query := `
		SELECT
			scenario_id, entity_id, water_month, entity_kind, signal, unit,
			mean, cv,
			q0, q10, q30, q50, q70, q90, q100,
			p5, p10, p25, p50, p75, p90, p95,
			sample_count, shortage_frequency_pct, shortage_mean, demand_mean
		FROM monthly_statistics
		WHERE scenario_id = $1 AND ($2 = '' OR entity_kind = $2)
		ORDER BY entity_id ASC, water_month ASC
	`

	rows, err := s.pool.Query(ctx, query, scope.ScenarioID, string(scope.Kind))
	if err != nil {
		return nil, fmt.Errorf("query monthly statistics: %w", err)
	}
	defer rows.Close()

	var result []*domain.MonthlyStatistic
	for rows.Next() {
		m, err := scanMonthly(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly statistics: %w", err)
	}

	return result, nil
}

// SummariesByScope returns summary rows ordered by entity_id.
func (s *StatisticsStore) SummariesByScope(ctx context.Context, scope storage.Scope) ([]*domain.PeriodSummary, error) {
	query := `
		SELECT
			scenario_id, entity_id, entity_kind, signal, unit,
			simulation_start_year, simulation_end_year, total_years, complete_years,
			annual_mean, annual_cv,
			annual_p5, annual_p10, annual_p25, annual_p50, annual_p75, annual_p90, annual_p95,
			cv_all_months, cv_april, cv_september,
			flood_pool_probability, dead_pool_probability,
			flood_pool_probability_designated, dead_pool_probability_designated,
			avg_delivery, avg_shortage, avg_demand,
			reliability_pct, demand_met_pct, shortage_frequency_pct,
			groundwater_only
		FROM period_summaries
		WHERE scenario_id = $1 AND ($2 = '' OR entity_kind = $2)
		ORDER BY entity_id ASC
	`

	rows, err := s.pool.Query(ctx, query, scope.ScenarioID, string(scope.Kind))
	if err != nil {
		return nil, fmt.Errorf("query period summaries: %w", err)
	}
	defer rows.Close()

	var result []*domain.PeriodSummary
	for rows.Next() {
		p, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate period summaries: %w", err)
	}

	return result, nil
}

// SummaryByEntity returns one summary row. Returns ErrNotFound if absent.
func (s *StatisticsStore) SummaryByEntity(ctx context.Context, scenarioID, entityID string) (*domain.PeriodSummary, error) {
	summaries, err := s.SummariesByScope(ctx, storage.Scope{ScenarioID: scenarioID})
	if err != nil {
		return nil, err
	}
	for _, p := range summaries {
		if p.EntityID == entityID {
			return p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func monthlyArgs(m *domain.MonthlyStatistic) []any {
	q := m.Percentiles
	if q == nil {
		q = &domain.PercentileSet{}
	}
	e := m.Exceedance
	if e == nil {
		e = &domain.ExceedanceSet{}
	}
	qs := present(m.Percentiles != nil)
	es := present(m.Exceedance != nil)

	return []any{
		m.ScenarioID, m.EntityID, m.WaterMonth, string(m.EntityKind), string(m.Signal), string(m.Unit),
		m.Mean, m.CV,
		qs(q.Q0), qs(q.Q10), qs(q.Q30), qs(q.Q50), qs(q.Q70), qs(q.Q90), qs(q.Q100),
		es(e.P5), es(e.P10), es(e.P25), es(e.P50), es(e.P75), es(e.P90), es(e.P95),
		m.SampleCount, m.ShortageFrequencyPct, m.ShortageMean, m.DemandMean,
	}
}

func summaryArgs(p *domain.PeriodSummary) []any {
	e := p.AnnualExceedance
	if e == nil {
		e = &domain.ExceedanceSet{}
	}
	es := present(p.AnnualExceedance != nil)

	return []any{
		p.ScenarioID, p.EntityID, string(p.EntityKind), string(p.Signal), string(p.Unit),
		p.SimulationStartYear, p.SimulationEndYear, p.TotalYears, p.CompleteYears,
		p.AnnualMean, p.AnnualCV,
		es(e.P5), es(e.P10), es(e.P25), es(e.P50), es(e.P75), es(e.P90), es(e.P95),
		p.CVAllMonths, p.CVApril, p.CVSeptember,
		p.FloodPoolProbability, p.DeadPoolProbability,
		p.FloodPoolProbabilityDesignated, p.DeadPoolProbabilityDesignated,
		p.AvgDelivery, p.AvgShortage, p.AvgDemand,
		p.ReliabilityPct, p.DemandMetPct, p.ShortageFrequencyPct,
		p.GroundwaterOnly,
	}
}

// present returns a mapper yielding NULL for every field of an absent set.
func present(ok bool) func(float64) *float64 {
	return func(v float64) *float64 {
		if !ok {
			return nil
		}
		return &v
	}
}

// scanMonthly scans a single row into MonthlyStatistic.
func scanMonthly(row pgx.Row) (*domain.MonthlyStatistic, error) {
	var m domain.MonthlyStatistic
	var kind, signal, unit string
	var q [7]*float64
	var e [7]*float64

	err := row.Scan(
		&m.ScenarioID, &m.EntityID, &m.WaterMonth, &kind, &signal, &unit,
		&m.Mean, &m.CV,
		&q[0], &q[1], &q[2], &q[3], &q[4], &q[5], &q[6],
		&e[0], &e[1], &e[2], &e[3], &e[4], &e[5], &e[6],
		&m.SampleCount, &m.ShortageFrequencyPct, &m.ShortageMean, &m.DemandMean,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scan monthly statistic: %w", err)
	}

	m.EntityKind = domain.EntityKind(kind)
	m.Signal = domain.Signal(signal)
	m.Unit = domain.Unit(unit)
	if q[0] != nil {
		m.Percentiles = &domain.PercentileSet{
			Q0: *q[0], Q10: deref(q[1]), Q30: deref(q[2]), Q50: deref(q[3]),
			Q70: deref(q[4]), Q90: deref(q[5]), Q100: deref(q[6]),
		}
	}
	m.Exceedance = exceedanceFrom(e)

	return &m, nil
}

// scanSummary scans a single row into PeriodSummary.
func scanSummary(row pgx.Row) (*domain.PeriodSummary, error) {
	var p domain.PeriodSummary
	var kind, signal, unit string
	var e [7]*float64

	err := row.Scan(
		&p.ScenarioID, &p.EntityID, &kind, &signal, &unit,
		&p.SimulationStartYear, &p.SimulationEndYear, &p.TotalYears, &p.CompleteYears,
		&p.AnnualMean, &p.AnnualCV,
		&e[0], &e[1], &e[2], &e[3], &e[4], &e[5], &e[6],
		&p.CVAllMonths, &p.CVApril, &p.CVSeptember,
		&p.FloodPoolProbability, &p.DeadPoolProbability,
		&p.FloodPoolProbabilityDesignated, &p.DeadPoolProbabilityDesignated,
		&p.AvgDelivery, &p.AvgShortage, &p.AvgDemand,
		&p.ReliabilityPct, &p.DemandMetPct, &p.ShortageFrequencyPct,
		&p.GroundwaterOnly,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scan period summary: %w", err)
	}

	p.EntityKind = domain.EntityKind(kind)
	p.Signal = domain.Signal(signal)
	p.Unit = domain.Unit(unit)
	p.AnnualExceedance = exceedanceFrom(e)

	return &p, nil
}

func exceedanceFrom(e [7]*float64) *domain.ExceedanceSet {
	if e[0] == nil {
		return nil
	}
	return &domain.ExceedanceSet{
		P5: *e[0], P10: deref(e[1]), P25: deref(e[2]), P50: deref(e[3]),
		P75: deref(e[4]), P90: deref(e[5]), P95: deref(e[6]),
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
