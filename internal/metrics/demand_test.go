package metrics

import (
	"math"
	"testing"
)

func TestBackCalculateDemand_SingleTerm(t *testing.T) {
	got := BackCalculateDemand([]DemandTerm{{
		Delivery: []float64{80},
		Shortage: []float64{20},
		Fraction: []float64{0.9091},
	}})

	if len(got) != 1 || !approx(got[0], 110.0, 0.01) {
		t.Errorf("expected ~110.0, got %v", got)
	}
}

func TestBackCalculateDemand_MultiTerm(t *testing.T) {
	got := BackCalculateDemand([]DemandTerm{
		{Delivery: []float64{50}, Shortage: []float64{10}, Fraction: []float64{0.8}},
		{Delivery: []float64{30}, Shortage: []float64{5}, Fraction: []float64{0.7}},
	})

	if len(got) != 1 || !approx(got[0], 125.0, 1e-9) {
		t.Errorf("expected 125, got %v", got)
	}
}

func TestBackCalculateDemand_UndefinedTimesteps(t *testing.T) {
	got := BackCalculateDemand([]DemandTerm{{
		Delivery: []float64{10, 10, math.NaN(), 10},
		Shortage: []float64{0, 0, 0, 0},
		Fraction: []float64{0.5, 0, 0.5, math.NaN()},
	}})

	if got[0] != 20 {
		t.Errorf("expected 20 at t0, got %v", got[0])
	}
	for i := 1; i < 4; i++ {
		if !math.IsNaN(got[i]) {
			t.Errorf("expected NaN at t%d, got %v", i, got[i])
		}
	}

	// undefined timesteps are excluded from downstream means
	m, ok := Mean(got)
	if !ok || m != 20 {
		t.Errorf("expected mean 20 over defined timesteps, got %v", m)
	}
}

func TestBackCalculateDemand_NoTerms(t *testing.T) {
	if got := BackCalculateDemand(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
