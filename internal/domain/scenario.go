package domain

import "time"

// ScenarioSeries is the materialized raw output of one scenario run:
// one value per month per variable. Missing values are NaN.
// The core only reads it.
type ScenarioSeries struct {
	ScenarioID string
	Dates      []time.Time          // ascending month stamps
	Values     map[string][]float64 // variable -> values aligned with Dates
	Units      map[string]Unit      // variable -> declared unit
}

// NewScenarioSeries creates an empty series for the given month axis.
func NewScenarioSeries(scenarioID string, dates []time.Time) *ScenarioSeries {
	return &ScenarioSeries{
		ScenarioID: scenarioID,
		Dates:      dates,
		Values:     make(map[string][]float64),
		Units:      make(map[string]Unit),
	}
}

// Variable returns the values and declared unit of a variable.
// ok is false when the dataset does not contain the variable.
func (s *ScenarioSeries) Variable(name string) (values []float64, unit Unit, ok bool) {
	values, ok = s.Values[name]
	if !ok {
		return nil, "", false
	}
	return values, s.Units[name], true
}

// Len returns the number of timesteps.
func (s *ScenarioSeries) Len() int {
	return len(s.Dates)
}

// SeriesPoint is one timestep of a normalized series.
type SeriesPoint struct {
	Date       time.Time
	WaterYear  int
	WaterMonth int     // 1 = October ... 12 = September
	Value      float64 // NaN when undefined or missing
}

// NormalizedSeries is a per-entity, per-signal series after resolution,
// combination and unit conversion.
type NormalizedSeries struct {
	EntityID string
	Signal   Signal
	Unit     Unit
	Points   []SeriesPoint
}

// Values returns the raw values in timestep order.
func (n *NormalizedSeries) Values() []float64 {
	out := make([]float64, len(n.Points))
	for i, p := range n.Points {
		out[i] = p.Value
	}
	return out
}
