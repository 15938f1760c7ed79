package dataset

import (
	"context"
	"io"
	"log"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hydrostat/internal/domain"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestFileReader_CSV(t *testing.T) {
	r := NewFileReader("testdata/scenario.csv", "", quietLogger())

	series, err := r.LoadScenario(context.Background(), "base")
	require.NoError(t, err)

	assert.Equal(t, "base", series.ScenarioID)
	assert.Equal(t, 24, series.Len())
	assert.Equal(t, time.Date(1999, time.October, 1, 0, 0, 0, 0, time.UTC), series.Dates[0])
	assert.Equal(t, time.Date(2001, time.September, 1, 0, 0, 0, 0, time.UTC), series.Dates[23])

	values, unit, ok := series.Variable("DN_02_PA")
	require.True(t, ok)
	assert.Equal(t, domain.UnitCFS, unit)
	assert.Equal(t, 1000.0, values[0])

	dg, _, _ := series.Variable("DG_02_PA")
	assert.True(t, math.IsNaN(dg[0]))
	assert.Equal(t, 50.0, dg[1])

	_, fracUnit, _ := series.Variable("PERDV_MWD")
	assert.Equal(t, domain.UnitNone, fracUnit)
}

func TestFileReader_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.xlsx")

	f := excelize.NewFile()
	rows := [][]any{
		{"date", "S_SHSTA"},
		{"unit", "TAF"},
		{"1999-10-01", "3000"},
		{"1999-11-01", "3100.5"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	series, err := NewFileReader(path, "", quietLogger()).LoadScenario(context.Background(), "alt")
	require.NoError(t, err)

	values, unit, ok := series.Variable("S_SHSTA")
	require.True(t, ok)
	assert.Equal(t, domain.UnitTAF, unit)
	assert.Equal(t, []float64{3000, 3100.5}, values)
}

func TestFileReader_MissingFile(t *testing.T) {
	_, err := NewFileReader("testdata/nope.csv", "", quietLogger()).LoadScenario(context.Background(), "x")
	assert.Error(t, err)
}

func TestParseRows_Errors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want string
	}{
		{"too short", [][]string{{"date", "A"}, {"unit", "TAF"}}, "at least one data row"},
		{"bad header", [][]string{{"time", "A"}, {"unit", "TAF"}, {"2000-01-01", "1"}}, "\"date\""},
		{"duplicate var", [][]string{{"date", "A", "A"}, {"unit", "TAF", "TAF"}, {"2000-01-01", "1", "2"}}, "duplicate"},
		{"bad date", [][]string{{"date", "A"}, {"unit", "TAF"}, {"Jan 2000", "1"}}, "unrecognized date"},
		{"not ascending", [][]string{{"date", "A"}, {"unit", "TAF"}, {"2000-02-01", "1"}, {"2000-02-15", "1"}}, "not after"},
		{"bad number", [][]string{{"date", "A"}, {"unit", "TAF"}, {"2000-01-01", "abc"}}, "invalid number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRows("s", tt.rows)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseMonth(t *testing.T) {
	for _, in := range []string{"1999-10-31", "1999-10", "10/31/1999", "1999-10-31T00:00:00Z"} {
		got, err := ParseMonth(in)
		require.NoError(t, err, in)
		assert.Equal(t, time.Date(1999, time.October, 1, 0, 0, 0, 0, time.UTC), got, in)
	}
}

func TestParseRows_ShortRowsAreMissing(t *testing.T) {
	series, err := ParseRows("s", [][]string{
		{"date", "A", "B"},
		{"unit", "CFS"},
		{"2000-01-01", "1"},
	})
	require.NoError(t, err)

	b, unit, ok := series.Variable("B")
	require.True(t, ok)
	assert.Equal(t, domain.UnitNone, unit)
	assert.True(t, math.IsNaN(b[0]))
}
