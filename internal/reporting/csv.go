package reporting

import (
	"fmt"
	"strings"

	"hydrostat/internal/domain"
)

// RenderMonthlyCSV renders monthly statistics as CSV string.
// Null statistics render as empty cells.
func RenderMonthlyCSV(rows []*domain.MonthlyStatistic) string {
	var sb strings.Builder

	// Header
	sb.WriteString("scenario_id,entity_id,entity_kind,water_month,signal,unit,sample_count,mean,cv,")
	sb.WriteString("q0,q10,q30,q50,q70,q90,q100,")
	sb.WriteString("exc_p5,exc_p10,exc_p25,exc_p50,exc_p75,exc_p90,exc_p95,")
	sb.WriteString("shortage_frequency_pct,shortage_mean,demand_mean\n")

	// Rows
	for _, m := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%s,%s,%d,%s,%s,%s,%s,%s,%s,%s\n",
			m.ScenarioID,
			m.EntityID,
			m.EntityKind,
			m.WaterMonth,
			m.Signal,
			m.Unit,
			m.SampleCount,
			cell(m.Mean),
			cell(m.CV),
			percentileCells(m.Percentiles),
			exceedanceCells(m.Exceedance),
			cell(m.ShortageFrequencyPct),
			cell(m.ShortageMean),
			cell(m.DemandMean),
		))
	}

	return sb.String()
}

// RenderSummaryCSV renders period summaries as CSV string.
func RenderSummaryCSV(rows []*domain.PeriodSummary) string {
	var sb strings.Builder

	// Header
	sb.WriteString("scenario_id,entity_id,entity_kind,signal,unit,")
	sb.WriteString("simulation_start_year,simulation_end_year,total_years,complete_years,")
	sb.WriteString("annual_mean,annual_cv,")
	sb.WriteString("annual_exc_p5,annual_exc_p10,annual_exc_p25,annual_exc_p50,annual_exc_p75,annual_exc_p90,annual_exc_p95,")
	sb.WriteString("cv_all_months,cv_april,cv_september,")
	sb.WriteString("flood_pool_probability,dead_pool_probability,flood_pool_probability_designated,dead_pool_probability_designated,")
	sb.WriteString("avg_delivery,avg_shortage,avg_demand,reliability_pct,demand_met_pct,shortage_frequency_pct,groundwater_only\n")

	// Rows
	for _, p := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%d,%d,%d,%d,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%t\n",
			p.ScenarioID,
			p.EntityID,
			p.EntityKind,
			p.Signal,
			p.Unit,
			p.SimulationStartYear,
			p.SimulationEndYear,
			p.TotalYears,
			p.CompleteYears,
			cell(p.AnnualMean),
			cell(p.AnnualCV),
			exceedanceCells(p.AnnualExceedance),
			cell(p.CVAllMonths),
			cell(p.CVApril),
			cell(p.CVSeptember),
			cell(p.FloodPoolProbability),
			cell(p.DeadPoolProbability),
			cell(p.FloodPoolProbabilityDesignated),
			cell(p.DeadPoolProbabilityDesignated),
			cell(p.AvgDelivery),
			cell(p.AvgShortage),
			cell(p.AvgDemand),
			cell(p.ReliabilityPct),
			cell(p.DemandMetPct),
			cell(p.ShortageFrequencyPct),
			p.GroundwaterOnly,
		))
	}

	return sb.String()
}

func cell(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.6f", *v)
}

func percentileCells(q *domain.PercentileSet) string {
	if q == nil {
		return ",,,,,,"
	}
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f", q.Q0, q.Q10, q.Q30, q.Q50, q.Q70, q.Q90, q.Q100)
}

func exceedanceCells(e *domain.ExceedanceSet) string {
	if e == nil {
		return ",,,,,,"
	}
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f", e.P5, e.P10, e.P25, e.P50, e.P75, e.P90, e.P95)
}
