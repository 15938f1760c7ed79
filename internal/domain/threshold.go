package domain

// ThresholdKind distinguishes upper and lower operational bounds.
type ThresholdKind string

const (
	ThresholdFlood ThresholdKind = "flood" // upper bound, crossed when value >= threshold
	ThresholdDead  ThresholdKind = "dead"  // lower bound, crossed when value <= threshold
)

// ThresholdDefinition marks an operational bound for a storage-like signal.
// Exactly one of Constant or Variable is set.
type ThresholdDefinition struct {
	Kind     ThresholdKind
	Constant *float64
	Variable string // time-aligned threshold variable in the scenario dataset

	// Unit is the expected unit of Variable. Empty means the primary signal's
	// mapped unit.
	Unit Unit

	// DesignatedMonth, when non-zero, adds a probability restricted to that water month.
	DesignatedMonth int
}

// IsTimeAligned reports whether the threshold varies with time.
func (t ThresholdDefinition) IsTimeAligned() bool {
	return t.Variable != ""
}
