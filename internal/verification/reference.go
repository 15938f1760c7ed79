package verification

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"hydrostat/internal/domain"
)

// Reference fields. Column names in the reference CSV use these spellings.
const (
	FieldMean         = "mean"
	FieldCV           = "cv"
	FieldQ0           = "q0"
	FieldQ10          = "q10"
	FieldQ30          = "q30"
	FieldQ50          = "q50"
	FieldQ70          = "q70"
	FieldQ90          = "q90"
	FieldQ100         = "q100"
	FieldExc5         = "exc_p5"
	FieldExc10        = "exc_p10"
	FieldExc25        = "exc_p25"
	FieldExc50        = "exc_p50"
	FieldExc75        = "exc_p75"
	FieldExc90        = "exc_p90"
	FieldExc95        = "exc_p95"
	FieldShortageMean = "shortage_mean"
	FieldDemandMean   = "demand_mean"
)

// ErrInvalidReference is returned for malformed reference files.
var ErrInvalidReference = errors.New("invalid reference")

// ReferenceRow holds the reference values of one (entity, water month).
// Blank cells are absent from Values and not compared.
type ReferenceRow struct {
	EntityID   string
	WaterMonth int
	Values     map[string]float64
}

// Reference is a parsed reference dataset.
type Reference struct {
	Rows  []ReferenceRow
	index map[monthKey]int
}

// LoadReferenceFile reads a reference CSV file.
func LoadReferenceFile(path string) (*Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference: %w", err)
	}
	defer f.Close()
	return LoadReference(f)
}

// LoadReference parses a reference CSV with header
// entity_id,water_month,<field>... where each field is a known statistic.
func LoadReference(r io.Reader) (*Reference, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrInvalidReference, err)
	}
	if len(header) < 3 || header[0] != "entity_id" || header[1] != "water_month" {
		return nil, fmt.Errorf("%w: header must start with entity_id,water_month", ErrInvalidReference)
	}
	fields := header[2:]
	for _, f := range fields {
		if !knownField(f) {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidReference, f)
		}
	}

	ref := &Reference{index: make(map[monthKey]int)}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidReference, line, err)
		}

		wm, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil || wm < 1 || wm > 12 {
			return nil, fmt.Errorf("%w: line %d: water_month %q", ErrInvalidReference, line, rec[1])
		}
		row := ReferenceRow{EntityID: strings.TrimSpace(rec[0]), WaterMonth: wm, Values: make(map[string]float64)}
		for i, f := range fields {
			cell := strings.TrimSpace(rec[i+2])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %s %q", ErrInvalidReference, line, f, cell)
			}
			row.Values[f] = v
		}

		key := monthKey{row.EntityID, wm}
		if _, dup := ref.index[key]; dup {
			return nil, fmt.Errorf("%w: line %d: duplicate row %s/%02d", ErrInvalidReference, line, row.EntityID, wm)
		}
		ref.index[key] = len(ref.Rows)
		ref.Rows = append(ref.Rows, row)
	}

	return ref, nil
}

// Value returns a reference value.
func (r *Reference) Value(entityID string, waterMonth int, field string) (float64, bool) {
	i, ok := r.index[monthKey{entityID, waterMonth}]
	if !ok {
		return 0, false
	}
	v, ok := r.Rows[i].Values[field]
	return v, ok
}

// Entities returns the referenced entity ids in ascending order.
func (r *Reference) Entities() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, row := range r.Rows {
		if !seen[row.EntityID] {
			seen[row.EntityID] = true
			ids = append(ids, row.EntityID)
		}
	}
	sort.Strings(ids)
	return ids
}

func knownField(f string) bool {
	_, ok := fieldGetters[f]
	return ok
}

var fieldGetters = map[string]func(m *domain.MonthlyStatistic) *float64{
	FieldMean: func(m *domain.MonthlyStatistic) *float64 { return m.Mean },
	FieldCV:   func(m *domain.MonthlyStatistic) *float64 { return m.CV },

	FieldQ0:   percentile(func(q *domain.PercentileSet) float64 { return q.Q0 }),
	FieldQ10:  percentile(func(q *domain.PercentileSet) float64 { return q.Q10 }),
	FieldQ30:  percentile(func(q *domain.PercentileSet) float64 { return q.Q30 }),
	FieldQ50:  percentile(func(q *domain.PercentileSet) float64 { return q.Q50 }),
	FieldQ70:  percentile(func(q *domain.PercentileSet) float64 { return q.Q70 }),
	FieldQ90:  percentile(func(q *domain.PercentileSet) float64 { return q.Q90 }),
	FieldQ100: percentile(func(q *domain.PercentileSet) float64 { return q.Q100 }),

	FieldExc5:  exceedance(func(e *domain.ExceedanceSet) float64 { return e.P5 }),
	FieldExc10: exceedance(func(e *domain.ExceedanceSet) float64 { return e.P10 }),
	FieldExc25: exceedance(func(e *domain.ExceedanceSet) float64 { return e.P25 }),
	FieldExc50: exceedance(func(e *domain.ExceedanceSet) float64 { return e.P50 }),
	FieldExc75: exceedance(func(e *domain.ExceedanceSet) float64 { return e.P75 }),
	FieldExc90: exceedance(func(e *domain.ExceedanceSet) float64 { return e.P90 }),
	FieldExc95: exceedance(func(e *domain.ExceedanceSet) float64 { return e.P95 }),

	FieldShortageMean: func(m *domain.MonthlyStatistic) *float64 { return m.ShortageMean },
	FieldDemandMean:   func(m *domain.MonthlyStatistic) *float64 { return m.DemandMean },
}

func percentile(get func(*domain.PercentileSet) float64) func(*domain.MonthlyStatistic) *float64 {
	return func(m *domain.MonthlyStatistic) *float64 {
		if m.Percentiles == nil {
			return nil
		}
		v := get(m.Percentiles)
		return &v
	}
}

func exceedance(get func(*domain.ExceedanceSet) float64) func(*domain.MonthlyStatistic) *float64 {
	return func(m *domain.MonthlyStatistic) *float64 {
		if m.Exceedance == nil {
			return nil
		}
		v := get(m.Exceedance)
		return &v
	}
}

func fieldValue(m *domain.MonthlyStatistic, field string) *float64 {
	return fieldGetters[field](m)
}
