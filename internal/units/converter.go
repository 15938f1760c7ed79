// Package units converts flow rates to period volumes.
package units

import (
	"fmt"
	"time"

	"hydrostat/internal/domain"
)

// AcreFeetPerCFSDay is the volume of one cubic foot per second sustained for a day.
const AcreFeetPerCFSDay = 1.9835

// DaysInMonth returns the exact number of days in a calendar month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Converter turns rate-valued signals into volumes in a fixed target unit.
type Converter struct {
	target domain.Unit
	factor float64 // target volume units per CFS-day
}

// NewConverter creates a converter producing volumes in target (TAF or AF).
func NewConverter(target domain.Unit) (*Converter, error) {
	switch target {
	case domain.UnitTAF:
		return &Converter{target: target, factor: AcreFeetPerCFSDay / 1000}, nil
	case domain.UnitAF:
		return &Converter{target: target, factor: AcreFeetPerCFSDay}, nil
	default:
		return nil, fmt.Errorf("unsupported target volume unit %q", target)
	}
}

// Target returns the volume unit produced by the converter.
func (c *Converter) Target() domain.Unit {
	return c.target
}

// ToVolume converts a mean rate over a period of days to a volume.
func (c *Converter) ToVolume(rate float64, days int) float64 {
	return rate * c.factor * float64(days)
}

// ToRate is the inverse of ToVolume.
func (c *Converter) ToRate(volume float64, days int) float64 {
	if days == 0 {
		return 0
	}
	return volume / (c.factor * float64(days))
}

// MonthVolume converts a monthly mean rate observed at t to that month's volume.
func (c *Converter) MonthVolume(rate float64, t time.Time) float64 {
	return c.ToVolume(rate, DaysInMonth(t.Year(), t.Month()))
}

// VolumeScale returns the factor turning a value in from into a value in to.
// Both units must be volumes.
func VolumeScale(from, to domain.Unit) (float64, error) {
	af := map[domain.Unit]float64{domain.UnitAF: 1, domain.UnitTAF: 1000}
	f, ok := af[from]
	if !ok {
		return 0, fmt.Errorf("%s is not a volume unit", from)
	}
	t, ok := af[to]
	if !ok {
		return 0, fmt.Errorf("%s is not a volume unit", to)
	}
	return f / t, nil
}

// Value converts one monthly value observed at t from unit from into the
// target volume unit. Rates become month volumes, other volumes are rescaled,
// and every other unit is returned unchanged along with from.
func (c *Converter) Value(v float64, t time.Time, from domain.Unit) (float64, domain.Unit) {
	switch {
	case from.IsRate():
		return c.MonthVolume(v, t), c.target
	case from.IsVolume():
		scale, _ := VolumeScale(from, c.target)
		return v * scale, c.target
	default:
		return v, from
	}
}

// Convert brings a series into the target volume unit in place. Rates are
// turned into month volumes and AF/TAF are rescaled; dimensionless series are
// left alone. The returned unit describes the values after the call, so
// converting again with it is a no-op.
func (c *Converter) Convert(points []domain.SeriesPoint, from domain.Unit) domain.Unit {
	if !from.IsRate() && !from.IsVolume() {
		return from
	}
	for i := range points {
		points[i].Value, _ = c.Value(points[i].Value, points[i].Date, from)
	}
	return c.target
}
