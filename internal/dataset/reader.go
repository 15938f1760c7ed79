// Package dataset reads wide-format scenario tables (CSV or XLSX).
//
// Layout: row 1 is "date" followed by variable names, row 2 is "unit"
// followed by each variable's declared unit, then one row per month.
// Empty cells and "NaN" are missing values.
package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"hydrostat/internal/domain"
)

// Source provides the fully materialized series of a scenario.
type Source interface {
	LoadScenario(ctx context.Context, scenarioID string) (*domain.ScenarioSeries, error)
}

// dateLayouts are tried in order when parsing the date column.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
}

// FileReader reads one scenario from a CSV or XLSX file.
type FileReader struct {
	path     string
	fileType string // "csv" or "xlsx"
	sheet    string
	logger   *log.Logger
}

var _ Source = (*FileReader)(nil)

// NewFileReader picks the format from the file extension. Sheet is used for
// XLSX files only; empty means the first sheet.
func NewFileReader(path, sheet string, logger *log.Logger) *FileReader {
	fileType := "csv"
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".xlsx" || ext == ".xlsm" {
		fileType = "xlsx"
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[dataset] ", log.LstdFlags)
	}
	return &FileReader{path: path, fileType: fileType, sheet: sheet, logger: logger}
}

// LoadScenario reads the file and tags the series with scenarioID.
func (r *FileReader) LoadScenario(ctx context.Context, scenarioID string) (*domain.ScenarioSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows [][]string
	var err error
	start := time.Now()
	switch r.fileType {
	case "xlsx":
		rows, err = r.readXLSX()
	default:
		rows, err = r.readCSV()
	}
	if err != nil {
		return nil, err
	}

	series, err := ParseRows(scenarioID, rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.path, err)
	}

	r.logger.Printf("read %s: %d variables x %d months in %s",
		r.path, len(series.Values), series.Len(), time.Since(start).Round(time.Millisecond))
	return series, nil
}

func (r *FileReader) readCSV() ([][]string, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV file: %w", err)
	}
	return rows, nil
}

func (r *FileReader) readXLSX() ([][]string, error) {
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// ParseRows converts raw table rows into a ScenarioSeries. Dates are
// normalized to the first day of their month and must be strictly ascending.
func ParseRows(scenarioID string, rows [][]string) (*domain.ScenarioSeries, error) {
	if len(rows) < 3 {
		return nil, fmt.Errorf("table must have a header row, a unit row and at least one data row")
	}

	header, unitRow := rows[0], rows[1]
	if len(header) < 2 || !strings.EqualFold(strings.TrimSpace(header[0]), "date") {
		return nil, fmt.Errorf("first header cell must be \"date\"")
	}

	names := make([]string, len(header)-1)
	seen := make(map[string]bool, len(names))
	for i, h := range header[1:] {
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, fmt.Errorf("empty variable name in column %d", i+2)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate variable %q", name)
		}
		seen[name] = true
		names[i] = name
	}

	dates := make([]time.Time, 0, len(rows)-2)
	for i, row := range rows[2:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			return nil, fmt.Errorf("row %d: missing date", i+3)
		}
		t, err := ParseMonth(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+3, err)
		}
		if n := len(dates); n > 0 && !t.After(dates[n-1]) {
			return nil, fmt.Errorf("row %d: date %s is not after %s", i+3, t.Format("2006-01"), dates[n-1].Format("2006-01"))
		}
		dates = append(dates, t)
	}

	series := domain.NewScenarioSeries(scenarioID, dates)
	for col, name := range names {
		unit := domain.UnitNone
		if col+1 < len(unitRow) {
			unit = domain.ParseUnit(unitRow[col+1])
		}
		values := make([]float64, len(dates))
		for i, row := range rows[2:] {
			cell := ""
			if col+1 < len(row) {
				cell = row[col+1]
			}
			v, err := parseValue(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d, variable %s: %w", i+3, name, err)
			}
			values[i] = v
		}
		series.Values[name] = values
		series.Units[name] = unit
	}

	return series, nil
}

// ParseMonth parses a date cell and truncates it to the first of its month.
func ParseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseValue(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "nan") {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", cell)
	}
	if math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", cell)
	}
	return v, nil
}
