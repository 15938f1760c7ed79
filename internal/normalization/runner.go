package normalization

import (
	"math"

	"hydrostat/internal/domain"
	"hydrostat/internal/lookup"
	"hydrostat/internal/metrics"
	"hydrostat/internal/registry"
	"hydrostat/internal/units"
	"hydrostat/internal/wateryear"
)

// NormalizeEntity processes every signal of an entity.
// Steps per signal:
//  1. Resolve via the registry entry
//  2. Extract raw variables, checking presence and declared unit
//  3. Combine (passthrough, sum, back-calculate)
//  4. Place on the water-year axis
//  5. Convert rates to volumes
//
// Thresholds are then aligned on the primary signal.
func (n *Normalizer) NormalizeEntity(series *domain.ScenarioSeries, e *registry.Entity) (*EntityResult, error) {
	if e.Err != nil {
		return nil, e.Err
	}

	res := &EntityResult{
		EntityID:    e.ID,
		Series:      make(map[domain.Signal]*domain.NormalizedSeries),
		Unavailable: make(map[domain.Signal]registry.AbsenceReason),
	}

	for _, signal := range domain.AllSignals {
		resolution := e.Resolution(signal)

		switch r := resolution.(type) {
		case registry.GroundwaterOnly:
			res.Unavailable[signal] = registry.ReasonGroundwaterOnly
			if signal == domain.SignalDelivery {
				res.GroundwaterOnly = true
			}
			continue
		case registry.Unavailable:
			res.Unavailable[signal] = r.Reason
			continue
		}

		raw, err := extract(series, e.ID, resolution)
		if err != nil {
			return nil, err
		}

		values, unit := combine(resolution, raw, series.Len(), e.MissingArcs)

		ns := &domain.NormalizedSeries{
			EntityID: e.ID,
			Signal:   signal,
			Points:   toPoints(series, values),
		}
		ns.Unit = n.converter.Convert(ns.Points, unit)
		res.Series[signal] = ns
	}

	if primary, ok := res.Series[e.Primary]; ok {
		for _, def := range e.Thresholds {
			aligned, err := n.alignThreshold(series, e, def, primary)
			if err != nil {
				return nil, err
			}
			res.Thresholds = append(res.Thresholds, aligned)
		}
	}

	return res, nil
}

// alignThreshold expands def onto the primary series. Time-aligned threshold
// variables are unit-checked and converted like the primary. Constants are
// stated in the primary's normalized unit.
func (n *Normalizer) alignThreshold(series *domain.ScenarioSeries, e *registry.Entity, def domain.ThresholdDefinition, primary *domain.NormalizedSeries) (lookup.Aligned, error) {
	var declared domain.Unit
	if def.IsTimeAligned() {
		want := def.Unit
		if want == "" {
			want = registry.SignalUnit(e.Resolution(e.Primary))
		}
		var ok bool
		if _, declared, ok = series.Variable(def.Variable); ok && !unitCompatible(want, declared) {
			return lookup.Aligned{}, &DataContractViolation{
				EntityID: e.ID,
				Variable: def.Variable,
				Expected: want,
				Declared: declared,
				Err:      ErrUnitMismatch,
			}
		}
	}

	aligned, err := lookup.Align(def, primary.Points, series)
	if err != nil {
		return lookup.Aligned{}, &DataContractViolation{EntityID: e.ID, Variable: def.Variable, Err: err}
	}

	if def.IsTimeAligned() {
		for i, p := range primary.Points {
			aligned.Values[i], _ = n.converter.Value(aligned.Values[i], p.Date, declared)
		}
	}
	return aligned, nil
}

// extract reads every variable a resolution references and checks the
// dataset against the mapping's promises. Rates and volumes are never coerced
// into each other; AF and TAF are rescaled to the mapped unit.
func extract(series *domain.ScenarioSeries, entityID string, r registry.Resolution) (map[string][]float64, error) {
	expected := registry.ExpectedUnits(r)
	raw := make(map[string][]float64, len(expected))

	for _, name := range r.Variables() {
		values, declared, ok := series.Variable(name)
		if !ok {
			return nil, &DataContractViolation{EntityID: entityID, Variable: name, Err: ErrMissingVariable}
		}
		if len(values) != series.Len() {
			return nil, &DataContractViolation{EntityID: entityID, Variable: name, Err: ErrLengthMismatch}
		}
		want := expected[name]
		if !unitCompatible(want, declared) {
			return nil, &DataContractViolation{
				EntityID: entityID,
				Variable: name,
				Expected: want,
				Declared: declared,
				Err:      ErrUnitMismatch,
			}
		}
		raw[name] = toUnit(values, declared, want)
	}

	return raw, nil
}

// unitCompatible accepts AF and TAF for each other and an undeclared unit
// for dimensionless fractions. Rates and volumes never mix.
func unitCompatible(expected, declared domain.Unit) bool {
	if expected == declared {
		return true
	}
	if expected.IsVolume() && declared.IsVolume() {
		return true
	}
	return expected == domain.UnitFraction && declared == domain.UnitNone
}

// toUnit returns values rescaled from one volume unit to another. Values in
// any other pair of compatible units are returned as is.
func toUnit(values []float64, from, to domain.Unit) []float64 {
	scale, err := units.VolumeScale(from, to)
	if err != nil || scale == 1 {
		return values
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * scale
	}
	return out
}

// combine applies the resolution rule and returns values in the source unit.
func combine(r registry.Resolution, raw map[string][]float64, n int, policy registry.MissingArcPolicy) ([]float64, domain.Unit) {
	switch v := r.(type) {
	case registry.Direct:
		out := make([]float64, n)
		copy(out, raw[v.Variable])
		return out, v.Unit

	case registry.Sum:
		arcs := make([][]float64, len(v.Arcs))
		for i, name := range v.Arcs {
			arcs[i] = raw[name]
		}
		return SumArcs(arcs, n, policy), v.Unit

	case registry.BackCalculate:
		terms := make([]metrics.DemandTerm, len(v.Terms))
		for i, t := range v.Terms {
			terms[i] = metrics.DemandTerm{
				Delivery: raw[t.Delivery],
				Shortage: raw[t.Shortage],
				Fraction: raw[t.AllocationFraction],
			}
		}
		return metrics.BackCalculateDemand(terms), v.Unit
	}

	return nil, domain.UnitNone
}

// SumArcs adds arcs pointwise. Under MissingArcZero a missing arc counts as 0
// unless every arc is missing; under MissingArcExclude any missing arc makes
// the timestep missing.
func SumArcs(arcs [][]float64, n int, policy registry.MissingArcPolicy) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		total, present := 0.0, 0
		missing := false
		for _, arc := range arcs {
			if i >= len(arc) || math.IsNaN(arc[i]) {
				missing = true
				continue
			}
			total += arc[i]
			present++
		}
		switch {
		case present == 0:
			out[i] = math.NaN()
		case missing && policy == registry.MissingArcExclude:
			out[i] = math.NaN()
		default:
			out[i] = total
		}
	}
	return out
}

func toPoints(series *domain.ScenarioSeries, values []float64) []domain.SeriesPoint {
	points := make([]domain.SeriesPoint, len(series.Dates))
	for i, t := range series.Dates {
		v := math.NaN()
		if i < len(values) {
			v = values[i]
		}
		points[i] = wateryear.Point(t, v)
	}
	return points
}
