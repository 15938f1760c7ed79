// Package normalization turns raw scenario variables into per-entity signal
// series: resolve, extract, combine, place on the water-year axis, convert.
package normalization

import (
	"fmt"

	"hydrostat/internal/domain"
	"hydrostat/internal/lookup"
	"hydrostat/internal/registry"
	"hydrostat/internal/units"
)

// Engine resolves one entity against a scenario dataset.
type Engine interface {
	NormalizeEntity(series *domain.ScenarioSeries, e *registry.Entity) (*EntityResult, error)
}

// EntityResult holds the normalized signals of one entity.
type EntityResult struct {
	EntityID        string
	Series          map[domain.Signal]*domain.NormalizedSeries
	Unavailable     map[domain.Signal]registry.AbsenceReason
	Thresholds      []lookup.Aligned
	GroundwaterOnly bool
}

// AllUnavailable reports whether no signal resolved to data.
func (r *EntityResult) AllUnavailable() bool {
	return len(r.Series) == 0
}

// Normalizer implements Engine. It holds no mutable state and is safe to
// share across workers.
type Normalizer struct {
	converter *units.Converter
}

var _ Engine = (*Normalizer)(nil)

// NewNormalizer creates a normalizer converting rate signals to volumeUnit.
func NewNormalizer(volumeUnit domain.Unit) (*Normalizer, error) {
	conv, err := units.NewConverter(volumeUnit)
	if err != nil {
		return nil, fmt.Errorf("create converter: %w", err)
	}
	return &Normalizer{converter: conv}, nil
}

// VolumeUnit returns the unit rate signals are converted to.
func (n *Normalizer) VolumeUnit() domain.Unit {
	return n.converter.Target()
}
