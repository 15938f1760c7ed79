package metrics

import (
	"math"

	"hydrostat/internal/domain"
)

// ThresholdEpsilon absorbs float noise so that values sitting on a flood
// threshold count as crossing it.
const ThresholdEpsilon = 1e-6

// Crosses reports whether v crosses threshold t for the given bound kind.
// Flood bounds are inclusive within ThresholdEpsilon; dead bounds are v <= t.
func Crosses(kind domain.ThresholdKind, v, t float64) bool {
	switch kind {
	case domain.ThresholdFlood:
		return v >= t-ThresholdEpsilon
	case domain.ThresholdDead:
		return v <= t
	default:
		return false
	}
}

// ThresholdProbability returns the fraction of timesteps where values cross
// the time-aligned thresholds. Timesteps where either side is missing are
// excluded from the denominator. ok is false when no timestep is valid.
func ThresholdProbability(kind domain.ThresholdKind, values, thresholds []float64) (float64, bool) {
	n := len(values)
	if len(thresholds) < n {
		n = len(thresholds)
	}

	valid, crossed := 0, 0
	for i := 0; i < n; i++ {
		v, t := values[i], thresholds[i]
		if math.IsNaN(v) || math.IsNaN(t) {
			continue
		}
		valid++
		if Crosses(kind, v, t) {
			crossed++
		}
	}
	if valid == 0 {
		return 0, false
	}
	return float64(crossed) / float64(valid), true
}

// ConstantThreshold expands a constant bound to n aligned timesteps.
func ConstantThreshold(n int, t float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = t
	}
	return out
}
