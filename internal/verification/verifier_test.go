package verification

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydrostat/internal/domain"
)

func ptrFloat64(v float64) *float64 {
	return &v
}

// computedRows builds rows matching testdata/reference.csv for SHASTA and a
// seasonally varying series for RES_AGG.
func computedRows() []*domain.MonthlyStatistic {
	var rows []*domain.MonthlyStatistic
	for wm := 1; wm <= 12; wm++ {
		v := float64(wm) + 0.5
		rows = append(rows, &domain.MonthlyStatistic{
			ScenarioID:  "base",
			EntityID:    "SHASTA",
			WaterMonth:  wm,
			Mean:        ptrFloat64(v),
			Percentiles: &domain.PercentileSet{Q50: v},
		})
		rows = append(rows, &domain.MonthlyStatistic{
			ScenarioID: "base",
			EntityID:   "RES_AGG",
			WaterMonth: wm,
			Mean:       ptrFloat64(4000 + float64(wm)*10),
		})
	}
	return rows
}

func TestVerify_MatchWithConstantMonthlyAnomaly(t *testing.T) {
	ref, err := LoadReferenceFile("testdata/reference.csv")
	require.NoError(t, err)

	report := Verify(ref, computedRows())

	assert.True(t, report.Match(), "divergences: %+v missing: %v", report.Divergences, report.Missing)
	assert.Equal(t, 24, report.Compared)
	assert.Equal(t, 24, report.Matched)

	require.Len(t, report.Anomalies, 1)
	a := report.Anomalies[0]
	assert.Equal(t, AnomalyReferenceConstantMonthly, a.Kind)
	assert.Equal(t, "RES_AGG", a.EntityID)
	assert.Equal(t, FieldMean, a.Field)

	// Both sides are preserved.
	assert.Equal(t, 4200.0, a.Reference[0])
	assert.Equal(t, 4200.0, a.Reference[11])
	require.NotNil(t, a.Computed[6])
	assert.Equal(t, 4070.0, *a.Computed[6])
}

func TestVerify_Divergence(t *testing.T) {
	ref, err := LoadReferenceFile("testdata/reference.csv")
	require.NoError(t, err)

	rows := computedRows()
	for _, r := range rows {
		if r.EntityID == "SHASTA" && r.WaterMonth == 3 {
			r.Mean = ptrFloat64(99)
		}
	}

	report := Verify(ref, rows)

	assert.False(t, report.Match())
	require.Len(t, report.Divergences, 1)
	d := report.Divergences[0]
	assert.Equal(t, "SHASTA", d.EntityID)
	assert.Equal(t, 3, d.WaterMonth)
	assert.Equal(t, FieldMean, d.Field)
	assert.Equal(t, 3.5, *d.Expected)
	assert.Equal(t, 99.0, *d.Actual)
	assert.Equal(t, 23, report.Matched)
}

func TestVerify_WithinTolerance(t *testing.T) {
	ref, err := LoadReference(strings.NewReader("entity_id,water_month,mean\nA,1,1000.0\n"))
	require.NoError(t, err)

	rows := []*domain.MonthlyStatistic{{EntityID: "A", WaterMonth: 1, Mean: ptrFloat64(1000.0005)}}
	assert.True(t, Verify(ref, rows).Match())

	rows[0].Mean = ptrFloat64(1000.01)
	assert.False(t, Verify(ref, rows).Match())
}

func TestVerify_MissingAndNull(t *testing.T) {
	ref, err := LoadReference(strings.NewReader("entity_id,water_month,mean\nA,1,1\nA,2,2\n"))
	require.NoError(t, err)

	rows := []*domain.MonthlyStatistic{{EntityID: "A", WaterMonth: 1, Mean: nil}}
	report := Verify(ref, rows)

	assert.Equal(t, []string{"A/02"}, report.Missing)
	require.Len(t, report.Divergences, 1)
	assert.Nil(t, report.Divergences[0].Actual)
}

func TestVerify_NoAnomalyWhenComputedAlsoConstant(t *testing.T) {
	ref, err := LoadReferenceFile("testdata/reference.csv")
	require.NoError(t, err)

	rows := computedRows()
	for _, r := range rows {
		if r.EntityID == "RES_AGG" {
			r.Mean = ptrFloat64(4200)
		}
	}

	report := Verify(ref, rows)
	assert.Empty(t, report.Anomalies)
	assert.True(t, report.Match())
}

func TestLoadReference_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"bad header", "id,month,mean\n"},
		{"unknown field", "entity_id,water_month,median\n"},
		{"bad water month", "entity_id,water_month,mean\nA,13,1\n"},
		{"bad value", "entity_id,water_month,mean\nA,1,abc\n"},
		{"duplicate row", "entity_id,water_month,mean\nA,1,1\nA,1,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadReference(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrInvalidReference)
		})
	}
}

func TestReference_BlankCellsNotCompared(t *testing.T) {
	ref, err := LoadReference(strings.NewReader("entity_id,water_month,mean,cv\nA,1,,0.5\n"))
	require.NoError(t, err)

	_, ok := ref.Value("A", 1, FieldMean)
	assert.False(t, ok)
	v, ok := ref.Value("A", 1, FieldCV)
	assert.True(t, ok)
	assert.Equal(t, 0.5, v)
}
