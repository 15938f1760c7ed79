package idhash

import (
	"testing"

	"hydrostat/internal/domain"
)

func ptr(v float64) *float64 {
	return &v
}

func sampleRows() ([]*domain.MonthlyStatistic, []*domain.PeriodSummary) {
	monthly := []*domain.MonthlyStatistic{
		{ScenarioID: "base", EntityID: "A", WaterMonth: 1, Mean: ptr(1.5), SampleCount: 2},
		{ScenarioID: "base", EntityID: "A", WaterMonth: 2, Mean: nil, SampleCount: 0},
	}
	summaries := []*domain.PeriodSummary{
		{ScenarioID: "base", EntityID: "A", TotalYears: 2, AnnualMean: ptr(3)},
	}
	return monthly, summaries
}

func TestOutputDigest_Deterministic(t *testing.T) {
	monthly, summaries := sampleRows()

	d1 := OutputDigest(monthly, summaries)
	d2 := OutputDigest(monthly, summaries)

	if d1 != d2 {
		t.Errorf("expected deterministic digest, got %s vs %s", d1, d2)
	}
	if len(d1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(d1))
	}
}

func TestOutputDigest_OrderIndependent(t *testing.T) {
	monthly, summaries := sampleRows()
	reversed := []*domain.MonthlyStatistic{monthly[1], monthly[0]}

	if OutputDigest(monthly, summaries) != OutputDigest(reversed, summaries) {
		t.Error("expected digest independent of row order")
	}
}

func TestOutputDigest_DistinguishesNullFromZero(t *testing.T) {
	monthly, summaries := sampleRows()
	base := OutputDigest(monthly, summaries)

	monthly[1].Mean = ptr(0)
	if OutputDigest(monthly, summaries) == base {
		t.Error("expected null and zero to hash differently")
	}
}

func TestOutputDigest_DetectsValueChange(t *testing.T) {
	monthly, summaries := sampleRows()
	base := OutputDigest(monthly, summaries)

	summaries[0].AnnualMean = ptr(3.0000001)
	if OutputDigest(monthly, summaries) == base {
		t.Error("expected digest to change")
	}
}
