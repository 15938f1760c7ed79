package lookup

import (
	"errors"
	"math"
	"testing"
	"time"

	"hydrostat/internal/domain"
	"hydrostat/internal/wateryear"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestThresholdAt_EmptySchedule(t *testing.T) {
	_, err := ThresholdAt(month(2000, 1), nil, nil)
	if err != ErrNoThresholdData {
		t.Errorf("expected ErrNoThresholdData, got %v", err)
	}
}

func TestThresholdAt_AtOrBefore(t *testing.T) {
	dates := []time.Time{month(2000, 1), month(2000, 2), month(2000, 3)}
	values := []float64{10, 20, 30}

	tests := []struct {
		name   string
		target time.Time
		want   float64
	}{
		{"exact", month(2000, 2), 20},
		{"between", month(2000, 2).AddDate(0, 0, 14), 20},
		{"after last", month(2000, 9), 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ThresholdAt(tt.target, dates, values)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestThresholdAt_BeforeSchedule(t *testing.T) {
	dates := []time.Time{month(2000, 1), month(2000, 2)}

	_, err := ThresholdAt(month(1999, 12), dates, []float64{10, 20})
	if !errors.Is(err, ErrNoThresholdData) {
		t.Errorf("expected ErrNoThresholdData, got %v", err)
	}
}

func TestAlign_Constant(t *testing.T) {
	points := []domain.SeriesPoint{
		wateryear.Point(month(1999, 10), 1),
		wateryear.Point(month(1999, 11), 2),
	}
	c := 550.0

	got, err := Align(domain.ThresholdDefinition{Kind: domain.ThresholdDead, Constant: &c, DesignatedMonth: 12}, points, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Values) != 2 || got.Values[0] != 550 || got.Values[1] != 550 {
		t.Errorf("unexpected aligned values %v", got.Values)
	}
	if got.DesignatedMonth != 12 || got.Kind != domain.ThresholdDead {
		t.Errorf("metadata not carried: %+v", got)
	}
}

func TestAlign_TimeAligned(t *testing.T) {
	dates := []time.Time{month(1999, 10), month(1999, 11), month(1999, 12)}
	series := domain.NewScenarioSeries("base", dates)
	series.Values["S_FLOOD"] = []float64{3000, math.NaN(), 3200}
	series.Units["S_FLOOD"] = domain.UnitTAF

	points := []domain.SeriesPoint{
		wateryear.Point(dates[0], 1),
		wateryear.Point(dates[1], 2),
		wateryear.Point(dates[2], 3),
	}

	got, err := Align(domain.ThresholdDefinition{Kind: domain.ThresholdFlood, Variable: "S_FLOOD"}, points, series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Values[0] != 3000 || !math.IsNaN(got.Values[1]) || got.Values[2] != 3200 {
		t.Errorf("unexpected aligned values %v", got.Values)
	}
}

func TestAlign_MissingVariable(t *testing.T) {
	series := domain.NewScenarioSeries("base", []time.Time{month(1999, 10)})
	points := []domain.SeriesPoint{wateryear.Point(month(1999, 10), 1)}

	_, err := Align(domain.ThresholdDefinition{Kind: domain.ThresholdFlood, Variable: "NOPE"}, points, series)
	if !errors.Is(err, ErrThresholdVarMissing) {
		t.Errorf("expected ErrThresholdVarMissing, got %v", err)
	}
}

func TestAlign_NoSource(t *testing.T) {
	_, err := Align(domain.ThresholdDefinition{Kind: domain.ThresholdFlood}, nil, nil)
	if !errors.Is(err, ErrInvalidThresholdValue) {
		t.Errorf("expected ErrInvalidThresholdValue, got %v", err)
	}
}
