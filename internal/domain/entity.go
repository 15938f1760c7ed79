package domain

// EntityKind classifies what an entity physically represents.
type EntityKind string

const (
	EntityKindFacility        EntityKind = "facility"
	EntityKindDemandUnit      EntityKind = "demand_unit"
	EntityKindContractor      EntityKind = "contractor"
	EntityKindSystemAggregate EntityKind = "system_aggregate"
)

// String returns the string representation of EntityKind.
func (k EntityKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a known value.
func (k EntityKind) IsValid() bool {
	switch k {
	case EntityKindFacility, EntityKindDemandUnit, EntityKindContractor, EntityKindSystemAggregate:
		return true
	}
	return false
}

// MappingCategory is the resolution rule family declared for an entity in the mapping file.
type MappingCategory string

const (
	CategoryDirect          MappingCategory = "direct"
	CategoryMultiArcSum     MappingCategory = "multi_arc_sum"
	CategoryGroundwaterOnly MappingCategory = "groundwater_only"
	CategoryBackCalculated  MappingCategory = "back_calculated"
	CategoryUnavailable     MappingCategory = "unavailable"
)

// IsValid checks if the category is supported.
func (c MappingCategory) IsValid() bool {
	switch c {
	case CategoryDirect, CategoryMultiArcSum, CategoryGroundwaterOnly, CategoryBackCalculated, CategoryUnavailable:
		return true
	}
	return false
}

// Signal names one measured quantity of an entity.
type Signal string

const (
	SignalDelivery    Signal = "delivery"
	SignalShortage    Signal = "shortage"
	SignalDemand      Signal = "demand"
	SignalStorage     Signal = "storage"
	SignalGroundwater Signal = "groundwater"
)

// AllSignals lists signals in the order they are processed.
var AllSignals = []Signal{SignalDelivery, SignalShortage, SignalDemand, SignalStorage, SignalGroundwater}

// IsValid checks if the signal is a known value.
func (s Signal) IsValid() bool {
	for _, known := range AllSignals {
		if s == known {
			return true
		}
	}
	return false
}

// DefaultPrimarySignal returns the signal summarized in monthly rows when the
// mapping does not name one.
func DefaultPrimarySignal(kind EntityKind) Signal {
	if kind == EntityKindFacility {
		return SignalStorage
	}
	return SignalDelivery
}
