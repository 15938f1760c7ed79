package domain

import "strings"

// Unit is the declared unit of a raw variable.
type Unit string

const (
	UnitCFS      Unit = "CFS"      // flow rate, cubic feet per second
	UnitTAF      Unit = "TAF"      // volume, thousand acre-feet
	UnitAF       Unit = "AF"       // volume, acre-feet
	UnitFraction Unit = "FRACTION" // dimensionless 0..1
	UnitNone     Unit = "NONE"
)

// ParseUnit normalizes a unit label as written by the extraction tooling.
// Unknown labels are returned upper-cased so they can be reported verbatim.
func ParseUnit(s string) Unit {
	u := strings.ToUpper(strings.TrimSpace(s))
	if u == "" || u == "-" {
		return UnitNone
	}
	return Unit(u)
}

// IsRate reports whether values in this unit are flow rates that need
// conversion to period volumes.
func (u Unit) IsRate() bool {
	return u == UnitCFS
}

// IsVolume reports whether values in this unit are already volumetric.
func (u Unit) IsVolume() bool {
	return u == UnitTAF || u == UnitAF
}
