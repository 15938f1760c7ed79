// Package idhash computes deterministic digests of run output.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"hydrostat/internal/domain"
)

// OutputDigest computes SHA256 over a canonical rendering of every output row.
// Rows are ordered by natural key, so the digest does not depend on
// worker scheduling. Returns hex-encoded hash (64 characters).
func OutputDigest(monthly []*domain.MonthlyStatistic, summaries []*domain.PeriodSummary) string {
	lines := make([]string, 0, len(monthly)+len(summaries))
	for _, m := range monthly {
		lines = append(lines, monthlyLine(m))
	}
	for _, p := range summaries {
		lines = append(lines, summaryLine(p))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// monthlyLine renders: M|scenario|entity|water_month|kind|signal|unit|fields...
func monthlyLine(m *domain.MonthlyStatistic) string {
	fields := []string{
		"M", m.ScenarioID, m.EntityID, fmt.Sprintf("%02d", m.WaterMonth),
		string(m.EntityKind), string(m.Signal), string(m.Unit),
		num(m.Mean), num(m.CV),
	}
	fields = append(fields, percentileFields(m.Percentiles)...)
	fields = append(fields, exceedanceFields(m.Exceedance)...)
	fields = append(fields,
		strconv.Itoa(m.SampleCount),
		num(m.ShortageFrequencyPct), num(m.ShortageMean), num(m.DemandMean),
	)
	return strings.Join(fields, "|")
}

// summaryLine renders: P|scenario|entity|kind|signal|unit|fields...
func summaryLine(p *domain.PeriodSummary) string {
	fields := []string{
		"P", p.ScenarioID, p.EntityID, string(p.EntityKind), string(p.Signal), string(p.Unit),
		strconv.Itoa(p.SimulationStartYear), strconv.Itoa(p.SimulationEndYear),
		strconv.Itoa(p.TotalYears), strconv.Itoa(p.CompleteYears),
		num(p.AnnualMean), num(p.AnnualCV),
	}
	fields = append(fields, exceedanceFields(p.AnnualExceedance)...)
	fields = append(fields,
		num(p.CVAllMonths), num(p.CVApril), num(p.CVSeptember),
		num(p.FloodPoolProbability), num(p.DeadPoolProbability),
		num(p.FloodPoolProbabilityDesignated), num(p.DeadPoolProbabilityDesignated),
		num(p.AvgDelivery), num(p.AvgShortage), num(p.AvgDemand),
		num(p.ReliabilityPct), num(p.DemandMetPct), num(p.ShortageFrequencyPct),
		strconv.FormatBool(p.GroundwaterOnly),
	)
	return strings.Join(fields, "|")
}

func percentileFields(q *domain.PercentileSet) []string {
	if q == nil {
		return []string{"null", "null", "null", "null", "null", "null", "null"}
	}
	return []string{f(q.Q0), f(q.Q10), f(q.Q30), f(q.Q50), f(q.Q70), f(q.Q90), f(q.Q100)}
}

func exceedanceFields(e *domain.ExceedanceSet) []string {
	if e == nil {
		return []string{"null", "null", "null", "null", "null", "null", "null"}
	}
	return []string{f(e.P5), f(e.P10), f(e.P25), f(e.P50), f(e.P75), f(e.P90), f(e.P95)}
}

func num(v *float64) string {
	if v == nil {
		return "null"
	}
	return f(*v)
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
