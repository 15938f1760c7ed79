package metrics

import (
	"time"

	"hydrostat/internal/domain"
	"hydrostat/internal/lookup"
	"hydrostat/internal/wateryear"
)

// EntityInput is everything the aggregator needs for one entity.
// Series holds only signals that resolved to data; unavailable signals are absent.
type EntityInput struct {
	ScenarioID      string
	EntityID        string
	Kind            domain.EntityKind
	Primary         domain.Signal
	Unit            domain.Unit // reporting unit when the primary signal is absent
	Axis            []time.Time // scenario month axis, ascending
	Series          map[domain.Signal]*domain.NormalizedSeries
	Thresholds      []lookup.Aligned // aligned with the primary series points
	GroundwaterOnly bool
	Policy          wateryear.PartialYearPolicy
}

// signalView is a normalized series grouped on the water-year axis.
type signalView struct {
	series  *domain.NormalizedSeries
	values  []float64
	buckets *wateryear.Buckets
}

func newSignalView(s *domain.NormalizedSeries, policy wateryear.PartialYearPolicy) *signalView {
	if s == nil {
		return nil
	}
	return &signalView{
		series:  s,
		values:  s.Values(),
		buckets: wateryear.Normalize(s.Points, policy),
	}
}

func (v *signalView) month(wm int) []float64 {
	if v == nil {
		return nil
	}
	return v.buckets.ByMonth[wm]
}

// Aggregate computes the twelve monthly statistics and the period summary of
// one entity. Statistics without valid samples are left nil.
func Aggregate(in EntityInput) ([]*domain.MonthlyStatistic, *domain.PeriodSummary) {
	primary := newSignalView(in.Series[in.Primary], in.Policy)
	delivery := newSignalView(in.Series[domain.SignalDelivery], in.Policy)
	shortage := newSignalView(in.Series[domain.SignalShortage], in.Policy)
	demand := newSignalView(in.Series[domain.SignalDemand], in.Policy)

	unit := in.Unit
	if primary != nil {
		unit = primary.series.Unit
	}

	monthly := make([]*domain.MonthlyStatistic, 0, wateryear.MonthsPerYear)
	for wm := 1; wm <= wateryear.MonthsPerYear; wm++ {
		monthly = append(monthly, monthlyStatistic(in, wm, unit, primary, shortage, demand))
	}

	return monthly, periodSummary(in, unit, primary, delivery, shortage, demand)
}

func monthlyStatistic(in EntityInput, wm int, unit domain.Unit, primary, shortage, demand *signalView) *domain.MonthlyStatistic {
	values := primary.month(wm)

	ms := &domain.MonthlyStatistic{
		ScenarioID:  in.ScenarioID,
		EntityID:    in.EntityID,
		EntityKind:  in.Kind,
		WaterMonth:  wm,
		Signal:      in.Primary,
		Unit:        unit,
		SampleCount: ValidCount(values),
		Percentiles: Percentiles(values),
		Exceedance:  Exceedance(values),
	}
	ms.Mean = optional(Mean(values))
	ms.CV = optional(CV(values))
	ms.ShortageFrequencyPct = optional(ShortageFrequency(shortage.month(wm)))
	ms.ShortageMean = optional(Mean(shortage.month(wm)))
	ms.DemandMean = optional(Mean(demand.month(wm)))

	return ms
}

func periodSummary(in EntityInput, unit domain.Unit, primary, delivery, shortage, demand *signalView) *domain.PeriodSummary {
	ps := &domain.PeriodSummary{
		ScenarioID:      in.ScenarioID,
		EntityID:        in.EntityID,
		EntityKind:      in.Kind,
		Signal:          in.Primary,
		Unit:            unit,
		GroundwaterOnly: in.GroundwaterOnly,
	}

	axis := axisBuckets(in.Axis)
	if start, end, ok := axis.Span(); ok {
		ps.SimulationStartYear = start
		ps.SimulationEndYear = end
		ps.TotalYears = end - start + 1
		ps.CompleteYears = len(axis.CompleteYears())
	}

	if primary != nil {
		annual := AnnualMeans(primary.buckets)
		ps.AnnualMean = optional(MeanOfAnnualMeans(primary.buckets))
		ps.AnnualCV = optional(CV(annual))
		ps.AnnualExceedance = Exceedance(annual)
		ps.CVAllMonths = optional(CV(primary.values))
		ps.CVApril = optional(CV(primary.month(wateryear.April)))
		ps.CVSeptember = optional(CV(primary.month(wateryear.September)))

		for _, th := range in.Thresholds {
			applyThreshold(ps, th, primary.series.Points)
		}
	}

	var avgDelivery, avgShortage, avgDemand float64
	var hasDelivery, hasShortage, hasDemand bool
	if delivery != nil {
		avgDelivery, hasDelivery = MeanOfAnnualMeans(delivery.buckets)
		ps.AvgDelivery = optional(avgDelivery, hasDelivery)
	}
	if shortage != nil {
		avgShortage, hasShortage = MeanOfAnnualMeans(shortage.buckets)
		ps.AvgShortage = optional(avgShortage, hasShortage)
		ps.ShortageFrequencyPct = optional(ShortageFrequency(shortage.values))
	}
	if demand != nil {
		avgDemand, hasDemand = MeanOfAnnualMeans(demand.buckets)
		ps.AvgDemand = optional(avgDemand, hasDemand)
	}

	if hasDelivery && hasShortage {
		ps.ReliabilityPct = optional(Reliability(avgShortage, avgDelivery))
	}
	if hasDelivery && hasDemand {
		ps.DemandMetPct = optional(DemandMet(avgDelivery, avgDemand))
	}

	return ps
}

// applyThreshold fills the all-months and designated-month probabilities of
// one aligned threshold.
func applyThreshold(ps *domain.PeriodSummary, th lookup.Aligned, points []domain.SeriesPoint) {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	all := optional(ThresholdProbability(th.Kind, values, th.Values))

	var designated *float64
	if th.DesignatedMonth != 0 {
		var dv, dt []float64
		for i, p := range points {
			if p.WaterMonth != th.DesignatedMonth || i >= len(th.Values) {
				continue
			}
			dv = append(dv, p.Value)
			dt = append(dt, th.Values[i])
		}
		designated = optional(ThresholdProbability(th.Kind, dv, dt))
	}

	switch th.Kind {
	case domain.ThresholdFlood:
		ps.FloodPoolProbability = all
		if designated != nil {
			ps.FloodPoolProbabilityDesignated = designated
		}
	case domain.ThresholdDead:
		ps.DeadPoolProbability = all
		if designated != nil {
			ps.DeadPoolProbabilityDesignated = designated
		}
	}
}

// axisBuckets groups the bare month axis to derive the simulation span.
func axisBuckets(axis []time.Time) *wateryear.Buckets {
	points := make([]domain.SeriesPoint, len(axis))
	for i, t := range axis {
		points[i] = wateryear.Point(t, 0)
	}
	return wateryear.Normalize(points, wateryear.DefaultPartialYearPolicy)
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
