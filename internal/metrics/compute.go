package metrics

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"hydrostat/internal/domain"
	"hydrostat/internal/wateryear"
)

// validValues drops missing (NaN) and non-finite samples.
func validValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// sortedValid returns the valid samples sorted ASC.
func sortedValid(values []float64) []float64 {
	out := validValues(values)
	sort.Float64s(out)
	return out
}

// ValidCount returns the number of non-missing samples.
func ValidCount(values []float64) int {
	n := 0
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			n++
		}
	}
	return n
}

// computePercentile uses linear interpolation between order statistics.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	// Index for percentile (0-based, continuous)
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Percentile returns the p-th percentile (0..100) of the valid samples.
// ok is false when there are no valid samples.
func Percentile(values []float64, p float64) (float64, bool) {
	sorted := sortedValid(values)
	if len(sorted) == 0 {
		return 0, false
	}
	return computePercentile(sorted, p/100), true
}

// Percentiles computes the q0..q100 band. Returns nil when there are no valid samples.
func Percentiles(values []float64) *domain.PercentileSet {
	sorted := sortedValid(values)
	if len(sorted) == 0 {
		return nil
	}
	return &domain.PercentileSet{
		Q0:   computePercentile(sorted, 0.00),
		Q10:  computePercentile(sorted, 0.10),
		Q30:  computePercentile(sorted, 0.30),
		Q50:  computePercentile(sorted, 0.50),
		Q70:  computePercentile(sorted, 0.70),
		Q90:  computePercentile(sorted, 0.90),
		Q100: computePercentile(sorted, 1.00),
	}
}

// exceedanceValue returns the value exceeded x percent of the time,
// i.e. the (100-x)th percentile.
func exceedanceValue(sorted []float64, x float64) float64 {
	return computePercentile(sorted, (100-x)/100)
}

// Exceedance computes the p5..p95 exceedance set. Returns nil when there are no valid samples.
func Exceedance(values []float64) *domain.ExceedanceSet {
	sorted := sortedValid(values)
	if len(sorted) == 0 {
		return nil
	}
	return &domain.ExceedanceSet{
		P5:  exceedanceValue(sorted, 5),
		P10: exceedanceValue(sorted, 10),
		P25: exceedanceValue(sorted, 25),
		P50: exceedanceValue(sorted, 50),
		P75: exceedanceValue(sorted, 75),
		P90: exceedanceValue(sorted, 90),
		P95: exceedanceValue(sorted, 95),
	}
}

// Mean returns the arithmetic mean of the valid samples.
// ok is false when there are none.
func Mean(values []float64) (float64, bool) {
	valid := validValues(values)
	if len(valid) == 0 {
		return 0, false
	}
	m, err := stats.Mean(valid)
	if err != nil {
		return 0, false
	}
	return m, true
}

// CV returns the coefficient of variation (sample std / mean) of the valid samples.
// Defined as 0 when the mean is 0 or fewer than two samples exist.
// ok is false when there are no valid samples.
func CV(values []float64) (float64, bool) {
	valid := validValues(values)
	if len(valid) == 0 {
		return 0, false
	}
	if len(valid) < 2 {
		return 0, true
	}
	mean, std := stat.MeanStdDev(valid, nil)
	if mean == 0 || math.IsNaN(std) {
		return 0, true
	}
	return std / mean, true
}

// AnnualMeans reduces each complete water year to the mean of its valid samples.
// Years without any valid sample are skipped.
func AnnualMeans(b *wateryear.Buckets) []float64 {
	var out []float64
	for _, wy := range b.CompleteYears() {
		if m, ok := Mean(b.ByYear[wy]); ok {
			out = append(out, m)
		}
	}
	return out
}

// MeanOfAnnualMeans averages the annual means of complete water years.
// It never takes a flat mean of all samples, which would weight years by
// their count of valid data.
func MeanOfAnnualMeans(b *wateryear.Buckets) (float64, bool) {
	annual := AnnualMeans(b)
	if len(annual) == 0 {
		return 0, false
	}
	m, err := stats.Mean(annual)
	if err != nil {
		return 0, false
	}
	return m, true
}

// Reliability returns 100 * (1 - avgShortage/avgDelivery).
// ok is false when average delivery is 0.
func Reliability(avgShortage, avgDelivery float64) (float64, bool) {
	if avgDelivery == 0 {
		return 0, false
	}
	return 100 * (1 - avgShortage/avgDelivery), true
}

// DemandMet returns 100 * avgDelivery/avgDemand.
// ok is false when average demand is 0.
func DemandMet(avgDelivery, avgDemand float64) (float64, bool) {
	if avgDemand == 0 {
		return 0, false
	}
	return 100 * avgDelivery / avgDemand, true
}

// ShortageFrequency returns the percentage of valid samples with shortage > 0.
// ok is false when there are no valid samples.
func ShortageFrequency(values []float64) (float64, bool) {
	valid := validValues(values)
	if len(valid) == 0 {
		return 0, false
	}
	short := 0
	for _, v := range valid {
		if v > 0 {
			short++
		}
	}
	return 100 * float64(short) / float64(len(valid)), true
}
