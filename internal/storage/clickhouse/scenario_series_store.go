package clickhouse

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"hydrostat/internal/domain"
	"hydrostat/internal/storage"
)

// ScenarioSeriesStore implements storage.ScenarioSeriesStore using ClickHouse.
// Values are stored in long format: one row per (scenario, variable, month).
type ScenarioSeriesStore struct {
	conn *Conn
}

// NewScenarioSeriesStore creates a new ScenarioSeriesStore.
func NewScenarioSeriesStore(conn *Conn) *ScenarioSeriesStore {
	return &ScenarioSeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ScenarioSeriesStore = (*ScenarioSeriesStore)(nil)

// ReplaceScenario drops the scenario's rows and bulk-inserts series.
// Missing values are stored as NULL.
func (s *ScenarioSeriesStore) ReplaceScenario(ctx context.Context, series *domain.ScenarioSeries) error {
	if series == nil || series.ScenarioID == "" {
		return storage.ErrInvalidInput
	}
	for name, values := range series.Values {
		if len(values) != series.Len() {
			return fmt.Errorf("%w: variable %s has %d values for %d dates", storage.ErrInvalidInput, name, len(values), series.Len())
		}
	}

	// wait for the delete mutation so the insert below is not removed by it
	syncCtx := clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"mutations_sync": 2,
	}))
	if err := s.conn.Exec(syncCtx,
		`ALTER TABLE scenario_series DELETE WHERE scenario_id = ?`,
		series.ScenarioID,
	); err != nil {
		return fmt.Errorf("delete scenario %s: %w", series.ScenarioID, err)
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO scenario_series (scenario_id, variable, date, value, unit)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	names := make([]string, 0, len(series.Values))
	for name := range series.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		unit := string(series.Units[name])
		for i, date := range series.Dates {
			var value *float64
			if v := series.Values[name][i]; !math.IsNaN(v) {
				value = &v
			}
			if err := batch.Append(series.ScenarioID, name, date, value, unit); err != nil {
				return fmt.Errorf("append to batch: %w", err)
			}
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// LoadScenario pivots the long rows back into a ScenarioSeries.
// Returns ErrNotFound if the scenario has no rows.
func (s *ScenarioSeriesStore) LoadScenario(ctx context.Context, scenarioID string) (*domain.ScenarioSeries, error) {
	query := `
		SELECT variable, date, value, unit
		FROM scenario_series FINAL
		WHERE scenario_id = ?
		ORDER BY variable ASC, date ASC
	`

	rows, err := s.conn.Query(ctx, query, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("query scenario %s: %w", scenarioID, err)
	}
	defer rows.Close()

	type cell struct {
		date  time.Time
		value float64
	}
	cells := make(map[string][]cell)
	units := make(map[string]domain.Unit)
	dateSet := make(map[time.Time]struct{})

	for rows.Next() {
		var (
			variable string
			date     time.Time
			value    *float64
			unit     string
		)
		if err := rows.Scan(&variable, &date, &value, &unit); err != nil {
			return nil, fmt.Errorf("scan scenario row: %w", err)
		}
		date = time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)

		v := math.NaN()
		if value != nil {
			v = *value
		}
		cells[variable] = append(cells[variable], cell{date: date, value: v})
		units[variable] = domain.Unit(unit)
		dateSet[date] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenario rows: %w", err)
	}

	if len(cells) == 0 {
		return nil, storage.ErrNotFound
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	index := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		index[d] = i
	}

	series := domain.NewScenarioSeries(scenarioID, dates)
	for variable, cs := range cells {
		values := make([]float64, len(dates))
		for i := range values {
			values[i] = math.NaN()
		}
		for _, c := range cs {
			values[index[c.date]] = c.value
		}
		series.Values[variable] = values
		series.Units[variable] = units[variable]
	}

	return series, nil
}

// ListScenarios returns stored scenario ids in ascending order.
func (s *ScenarioSeriesStore) ListScenarios(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT scenario_id FROM scenario_series ORDER BY scenario_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query scenarios: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan scenario id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenarios: %w", err)
	}

	return ids, nil
}
