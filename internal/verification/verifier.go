// Package verification compares computed monthly statistics with a reference
// dataset and flags reference values that look inconsistent.
package verification

import (
	"fmt"
	"math"
	"sort"

	"hydrostat/internal/domain"
	"hydrostat/internal/wateryear"
)

// FloatTolerance is the relative tolerance for float64 comparisons.
// Values below 1 are compared with it as an absolute tolerance.
const FloatTolerance = 1e-6

// AnomalyKind classifies a reference anomaly.
type AnomalyKind string

const (
	// AnomalyReferenceConstantMonthly marks an entity whose reference monthly
	// means are identical across all twelve water months while the computed
	// means vary.
	AnomalyReferenceConstantMonthly AnomalyKind = "ReferenceConstantMonthly"
)

// FieldDivergence represents a mismatch between reference and computed values.
type FieldDivergence struct {
	EntityID   string
	WaterMonth int
	Field      string
	Expected   *float64 // reference value
	Actual     *float64 // computed value
}

// Anomaly keeps both sides of a suspicious reference series. Neither value is
// treated as authoritative.
type Anomaly struct {
	Kind      AnomalyKind
	EntityID  string
	Field     string
	Reference [wateryear.MonthsPerYear]float64 // indexed by water month - 1
	Computed  [wateryear.MonthsPerYear]*float64
}

// Report contains the result of verifying one run.
type Report struct {
	Compared    int               // reference rows compared
	Matched     int               // rows with no divergent field
	Divergences []FieldDivergence // divergent fields, excluding anomalous ones
	Missing     []string          // reference rows without a computed row
	Anomalies   []Anomaly
}

// Match reports whether every reference row was found and matched.
// Flagged anomalies do not count as mismatches.
func (r *Report) Match() bool {
	return len(r.Divergences) == 0 && len(r.Missing) == 0
}

// Verify compares computed monthly rows with the reference.
func Verify(ref *Reference, computed []*domain.MonthlyStatistic) *Report {
	report := &Report{}

	byKey := make(map[monthKey]*domain.MonthlyStatistic, len(computed))
	for _, m := range computed {
		byKey[monthKey{m.EntityID, m.WaterMonth}] = m
	}

	anomalous := make(map[string]bool)
	for _, entityID := range ref.Entities() {
		if a, ok := constantMonthlyAnomaly(ref, entityID, byKey); ok {
			report.Anomalies = append(report.Anomalies, a)
			anomalous[entityID] = true
		}
	}

	for _, row := range ref.Rows {
		key := monthKey{row.EntityID, row.WaterMonth}
		m, ok := byKey[key]
		if !ok {
			report.Missing = append(report.Missing, fmt.Sprintf("%s/%02d", row.EntityID, row.WaterMonth))
			continue
		}
		report.Compared++

		divergent := false
		for _, field := range sortedFields(row.Values) {
			if field == FieldMean && anomalous[row.EntityID] {
				continue
			}
			expected := row.Values[field]
			actual := fieldValue(m, field)
			if !floatPtrEquals(&expected, actual) {
				divergent = true
				report.Divergences = append(report.Divergences, FieldDivergence{
					EntityID:   row.EntityID,
					WaterMonth: row.WaterMonth,
					Field:      field,
					Expected:   &expected,
					Actual:     actual,
				})
			}
		}
		if !divergent {
			report.Matched++
		}
	}

	return report
}

type monthKey struct {
	entityID   string
	waterMonth int
}

// constantMonthlyAnomaly detects reference means that do not vary across the
// year while the computed means do.
func constantMonthlyAnomaly(ref *Reference, entityID string, computed map[monthKey]*domain.MonthlyStatistic) (Anomaly, bool) {
	a := Anomaly{Kind: AnomalyReferenceConstantMonthly, EntityID: entityID, Field: FieldMean}

	for wm := 1; wm <= wateryear.MonthsPerYear; wm++ {
		v, ok := ref.Value(entityID, wm, FieldMean)
		if !ok {
			return Anomaly{}, false
		}
		a.Reference[wm-1] = v
		if m, ok := computed[monthKey{entityID, wm}]; ok {
			a.Computed[wm-1] = m.Mean
		}
	}

	for _, v := range a.Reference[1:] {
		if !floatEquals(v, a.Reference[0]) {
			return Anomaly{}, false
		}
	}

	var lo, hi float64
	seen := false
	for _, v := range a.Computed {
		if v == nil {
			continue
		}
		if !seen {
			lo, hi, seen = *v, *v, true
			continue
		}
		lo = math.Min(lo, *v)
		hi = math.Max(hi, *v)
	}
	if !seen || floatEquals(lo, hi) {
		return Anomaly{}, false
	}
	return a, true
}

func sortedFields(values map[string]float64) []string {
	fields := make([]string, 0, len(values))
	for f := range values {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= FloatTolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// floatPtrEquals compares two *float64 values within FloatTolerance.
// Returns true if both are nil, or both are non-nil and equal.
func floatPtrEquals(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return floatEquals(*a, *b)
}
