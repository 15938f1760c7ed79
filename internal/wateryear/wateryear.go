// Package wateryear maps calendar dates onto the October–September water-year
// axis and groups series values into monthly and annual buckets.
package wateryear

import (
	"sort"
	"time"

	"hydrostat/internal/domain"
)

// MonthsPerYear is the number of water months in a water year.
const MonthsPerYear = 12

// Named water months used by designated-month statistics.
const (
	October   = 1
	April     = 7
	September = 12
)

// WaterYearOf returns the water year containing t. Water year N runs from
// 1 October N-1 through 30 September N.
func WaterYearOf(t time.Time) int {
	if t.Month() >= time.October {
		return t.Year() + 1
	}
	return t.Year()
}

// WaterMonthOf returns the 1-based position of t's month within its water year.
func WaterMonthOf(t time.Time) int {
	return (int(t.Month())+2)%MonthsPerYear + 1
}

// CalendarMonth converts a water month back to its calendar month.
func CalendarMonth(waterMonth int) time.Month {
	return time.Month((waterMonth+8)%MonthsPerYear + 1)
}

// Point builds a normalized series point for a date and value.
func Point(t time.Time, v float64) domain.SeriesPoint {
	return domain.SeriesPoint{
		Date:       t,
		WaterYear:  WaterYearOf(t),
		WaterMonth: WaterMonthOf(t),
		Value:      v,
	}
}

// PartialYearPolicy controls how water years that are cut by the simulation
// boundaries participate in each grain.
type PartialYearPolicy struct {
	// IncludeInMonthly keeps partial-year values in the monthly buckets.
	// Partial years never contribute to annual means.
	IncludeInMonthly bool
}

// DefaultPartialYearPolicy keeps partial-year months in monthly buckets.
var DefaultPartialYearPolicy = PartialYearPolicy{IncludeInMonthly: true}

// Buckets is a series regrouped on the water-year axis.
// Values keep NaN entries so reducers can count valid samples themselves.
type Buckets struct {
	ByMonth  map[int][]float64 // water month 1..12 -> values across years
	ByYear   map[int][]float64 // water year -> values in that year
	Complete map[int]bool      // water year -> all 12 months present on the axis
	Years    []int             // ascending water years present on the axis
}

// Normalize groups points into water-month and water-year buckets.
func Normalize(points []domain.SeriesPoint, policy PartialYearPolicy) *Buckets {
	b := &Buckets{
		ByMonth:  make(map[int][]float64, MonthsPerYear),
		ByYear:   make(map[int][]float64),
		Complete: make(map[int]bool),
	}

	months := make(map[int]map[int]struct{})
	for _, p := range points {
		b.ByYear[p.WaterYear] = append(b.ByYear[p.WaterYear], p.Value)
		if months[p.WaterYear] == nil {
			months[p.WaterYear] = make(map[int]struct{}, MonthsPerYear)
		}
		months[p.WaterYear][p.WaterMonth] = struct{}{}
	}

	for wy, seen := range months {
		b.Complete[wy] = len(seen) == MonthsPerYear
		b.Years = append(b.Years, wy)
	}
	sort.Ints(b.Years)

	for _, p := range points {
		if !b.Complete[p.WaterYear] && !policy.IncludeInMonthly {
			continue
		}
		b.ByMonth[p.WaterMonth] = append(b.ByMonth[p.WaterMonth], p.Value)
	}

	return b
}

// CompleteYears returns the complete water years in ascending order.
func (b *Buckets) CompleteYears() []int {
	var out []int
	for _, wy := range b.Years {
		if b.Complete[wy] {
			out = append(out, wy)
		}
	}
	return out
}

// Span returns the first and last water year on the axis.
// ok is false for an empty series.
func (b *Buckets) Span() (start, end int, ok bool) {
	if len(b.Years) == 0 {
		return 0, 0, false
	}
	return b.Years[0], b.Years[len(b.Years)-1], true
}
