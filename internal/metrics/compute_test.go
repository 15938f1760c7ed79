package metrics

import (
	"math"
	"testing"
	"time"

	"hydrostat/internal/domain"
	"hydrostat/internal/wateryear"
)

const eps = 1e-9

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestPercentile_LinearInterpolation(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{10, 1.4},
		{30, 2.2},
		{50, 3},
		{90, 4.6},
		{100, 5},
	}

	for _, tt := range tests {
		got, ok := Percentile(values, tt.p)
		if !ok {
			t.Fatalf("p%v: expected ok", tt.p)
		}
		if !approx(got, tt.want, eps) {
			t.Errorf("p%v: expected %v, got %v", tt.p, tt.want, got)
		}
	}
}

func TestPercentile_SkipsMissing(t *testing.T) {
	values := []float64{math.NaN(), 4, math.NaN(), 2}

	got, ok := Percentile(values, 50)
	if !ok || !approx(got, 3, eps) {
		t.Errorf("expected median 3, got %v (ok=%v)", got, ok)
	}

	if _, ok := Percentile([]float64{math.NaN()}, 50); ok {
		t.Error("expected ok=false for all-missing input")
	}
	if Percentiles(nil) != nil || Exceedance(nil) != nil {
		t.Error("expected nil sets for empty input")
	}
}

func TestPercentiles_Monotonic(t *testing.T) {
	values := []float64{12.5, 3, 88, 41, 41, 0, 7.25, 19, 63, 5, 102, 33}

	q := Percentiles(values)
	if q == nil {
		t.Fatal("expected percentile set")
	}
	seq := []float64{q.Q0, q.Q10, q.Q30, q.Q50, q.Q70, q.Q90, q.Q100}
	for i := 1; i < len(seq); i++ {
		if seq[i] < seq[i-1] {
			t.Errorf("percentiles not monotonic at %d: %v", i, seq)
		}
	}
	if q.Q0 != 0 || q.Q100 != 102 {
		t.Errorf("expected min/max 0/102, got %v/%v", q.Q0, q.Q100)
	}
}

func TestExceedance_MonotonicAndMirrorsPercentile(t *testing.T) {
	values := []float64{12.5, 3, 88, 41, 41, 0, 7.25, 19, 63, 5, 102, 33}

	e := Exceedance(values)
	if e == nil {
		t.Fatal("expected exceedance set")
	}
	seq := []float64{e.P5, e.P10, e.P25, e.P50, e.P75, e.P90, e.P95}
	for i := 1; i < len(seq); i++ {
		if seq[i] > seq[i-1] {
			t.Errorf("exceedance not non-increasing at %d: %v", i, seq)
		}
	}

	p90, _ := Percentile(values, 90)
	if !approx(e.P10, p90, eps) {
		t.Errorf("expected P10 == q90 (%v), got %v", p90, e.P10)
	}
}

func TestCV(t *testing.T) {
	t.Run("constant sample", func(t *testing.T) {
		cv, ok := CV([]float64{7, 7, 7, 7})
		if !ok || cv != 0 {
			t.Errorf("expected 0, got %v (ok=%v)", cv, ok)
		}
	})

	t.Run("zero mean", func(t *testing.T) {
		cv, ok := CV([]float64{-1, 1})
		if !ok || cv != 0 {
			t.Errorf("expected 0, got %v (ok=%v)", cv, ok)
		}
	})

	t.Run("single sample", func(t *testing.T) {
		cv, ok := CV([]float64{5})
		if !ok || cv != 0 {
			t.Errorf("expected 0, got %v (ok=%v)", cv, ok)
		}
	})

	t.Run("sample std", func(t *testing.T) {
		// mean 5, sample variance 32/7
		cv, ok := CV([]float64{2, 4, 4, 4, 5, 5, 7, 9})
		want := math.Sqrt(32.0/7.0) / 5
		if !ok || !approx(cv, want, 1e-12) {
			t.Errorf("expected %v, got %v", want, cv)
		}
	})

	t.Run("no samples", func(t *testing.T) {
		if _, ok := CV([]float64{math.NaN()}); ok {
			t.Error("expected ok=false")
		}
	})
}

func TestMeanOfAnnualMeans_WeightsYearsEqually(t *testing.T) {
	var points []domain.SeriesPoint
	start := time.Date(1999, time.October, 1, 0, 0, 0, 0, time.UTC)

	// WY2000: all 10s. WY2001: one 100 and eleven missing samples.
	for i := 0; i < 24; i++ {
		v := 10.0
		if i >= 12 {
			v = math.NaN()
			if i == 12 {
				v = 100
			}
		}
		points = append(points, wateryear.Point(start.AddDate(0, i, 0), v))
	}

	b := wateryear.Normalize(points, wateryear.DefaultPartialYearPolicy)
	got, ok := MeanOfAnnualMeans(b)
	if !ok || !approx(got, 55, eps) {
		t.Errorf("expected 55, got %v (ok=%v)", got, ok)
	}

	flat, _ := Mean(b.ByYear[2000])
	if flat != 10 {
		t.Errorf("expected WY2000 mean 10, got %v", flat)
	}
}

func TestMeanOfAnnualMeans_ExcludesPartialYears(t *testing.T) {
	var points []domain.SeriesPoint
	start := time.Date(1999, time.October, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		v := 1.0
		if i >= 12 {
			v = 1000
		}
		points = append(points, wateryear.Point(start.AddDate(0, i, 0), v))
	}

	b := wateryear.Normalize(points, wateryear.DefaultPartialYearPolicy)
	got, ok := MeanOfAnnualMeans(b)
	if !ok || got != 1 {
		t.Errorf("expected partial WY2001 excluded (1), got %v", got)
	}
}

func TestReliabilityAndDemandMet(t *testing.T) {
	r, ok := Reliability(20, 80)
	if !ok || !approx(r, 75, eps) {
		t.Errorf("expected 75, got %v", r)
	}
	if _, ok := Reliability(5, 0); ok {
		t.Error("expected undefined reliability for zero delivery")
	}

	d, ok := DemandMet(80, 100)
	if !ok || !approx(d, 80, eps) {
		t.Errorf("expected 80, got %v", d)
	}
	if _, ok := DemandMet(80, 0); ok {
		t.Error("expected undefined demand-met for zero demand")
	}
}

func TestShortageFrequency(t *testing.T) {
	got, ok := ShortageFrequency([]float64{0, 1, 0, 3, math.NaN()})
	if !ok || !approx(got, 50, eps) {
		t.Errorf("expected 50, got %v", got)
	}
	if _, ok := ShortageFrequency(nil); ok {
		t.Error("expected ok=false for no samples")
	}
}
