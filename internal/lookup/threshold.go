// Package lookup aligns operational thresholds onto a series time axis.
package lookup

import (
	"errors"
	"fmt"
	"math"
	"time"

	"hydrostat/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrNoThresholdData       = errors.New("no threshold data available")
	ErrThresholdVarMissing   = errors.New("threshold variable missing from dataset")
	ErrInvalidThresholdValue = errors.New("invalid threshold definition")
)

// Aligned is a threshold expanded to one value per series timestep.
type Aligned struct {
	Kind            domain.ThresholdKind
	Values          []float64 // NaN where the threshold is undefined
	DesignatedMonth int
}

// ThresholdAt returns the threshold value at or before target.
// Returns ErrNoThresholdData if the schedule is empty or starts after target.
func ThresholdAt(target time.Time, dates []time.Time, values []float64) (float64, error) {
	n := len(dates)
	if len(values) < n {
		n = len(values)
	}
	if n == 0 {
		return 0, ErrNoThresholdData
	}

	for i := n - 1; i >= 0; i-- {
		if !dates[i].After(target) {
			return values[i], nil
		}
	}

	return 0, fmt.Errorf("%w: schedule starts %s, after %s", ErrNoThresholdData,
		dates[0].Format("2006-01"), target.Format("2006-01"))
}

// Align expands def onto the dates of points. Constant thresholds repeat their
// value; time-aligned thresholds are read from the scenario dataset.
func Align(def domain.ThresholdDefinition, points []domain.SeriesPoint, series *domain.ScenarioSeries) (Aligned, error) {
	out := Aligned{
		Kind:            def.Kind,
		Values:          make([]float64, len(points)),
		DesignatedMonth: def.DesignatedMonth,
	}

	switch {
	case def.Constant != nil:
		if math.IsNaN(*def.Constant) || math.IsInf(*def.Constant, 0) {
			return Aligned{}, fmt.Errorf("%w: %s constant is not finite", ErrInvalidThresholdValue, def.Kind)
		}
		for i := range out.Values {
			out.Values[i] = *def.Constant
		}
		return out, nil

	case def.Variable != "":
		values, _, ok := series.Variable(def.Variable)
		if !ok {
			return Aligned{}, fmt.Errorf("%w: %s", ErrThresholdVarMissing, def.Variable)
		}
		for i, p := range points {
			v, err := ThresholdAt(p.Date, series.Dates, values)
			if err != nil {
				return Aligned{}, fmt.Errorf("%s threshold %s: %w", def.Kind, def.Variable, err)
			}
			out.Values[i] = v
		}
		return out, nil

	default:
		return Aligned{}, fmt.Errorf("%w: %s threshold has neither constant nor variable", ErrInvalidThresholdValue, def.Kind)
	}
}
