package registry

import "hydrostat/internal/domain"

// Rule is how a signal's raw variables combine into one value per timestep.
type Rule string

const (
	RulePassthrough   Rule = "PASSTHROUGH"
	RuleSum           Rule = "SUM"
	RuleBackCalculate Rule = "BACK_CALCULATE"
	RuleUnavailable   Rule = "UNAVAILABLE"
)

// AbsenceReason explains why a signal legitimately has no data.
type AbsenceReason string

const (
	ReasonGroundwaterOnly AbsenceReason = "groundwater_only"
	ReasonUnavailable     AbsenceReason = "unavailable"
	ReasonNotConfigured   AbsenceReason = "not_configured"
)

// Resolution is the closed set of ways a signal maps onto raw variables.
// It is decided when the mapping is loaded, never from variable names at
// calculation time.
type Resolution interface {
	Rule() Rule
	Variables() []string
	sealed()
}

// Direct reads one variable unchanged.
type Direct struct {
	Variable string
	Unit     domain.Unit
}

// Sum adds several arcs pointwise.
type Sum struct {
	Arcs []string
	Unit domain.Unit
}

// Term is one connection point of a back-calculated entity.
type Term struct {
	Delivery           string
	Shortage           string
	AllocationFraction string
}

// BackCalculate derives demand from delivery, shortage and allocation fraction.
type BackCalculate struct {
	Terms []Term
	Unit  domain.Unit // unit of the delivery and shortage variables
}

// GroundwaterOnly marks surface delivery as null by definition.
type GroundwaterOnly struct{}

// Unavailable marks a signal with no data for a stated reason.
type Unavailable struct {
	Reason AbsenceReason
}

func (Direct) Rule() Rule          { return RulePassthrough }
func (Sum) Rule() Rule             { return RuleSum }
func (BackCalculate) Rule() Rule   { return RuleBackCalculate }
func (GroundwaterOnly) Rule() Rule { return RuleUnavailable }
func (Unavailable) Rule() Rule     { return RuleUnavailable }

func (d Direct) Variables() []string { return []string{d.Variable} }

func (s Sum) Variables() []string {
	out := make([]string, len(s.Arcs))
	copy(out, s.Arcs)
	return out
}

func (b BackCalculate) Variables() []string {
	out := make([]string, 0, 3*len(b.Terms))
	for _, t := range b.Terms {
		out = append(out, t.Delivery, t.Shortage, t.AllocationFraction)
	}
	return out
}

func (GroundwaterOnly) Variables() []string { return nil }
func (Unavailable) Variables() []string     { return nil }

func (Direct) sealed()          {}
func (Sum) sealed()             {}
func (BackCalculate) sealed()   {}
func (GroundwaterOnly) sealed() {}
func (Unavailable) sealed()     {}

// absence returns the reason for UNAVAILABLE resolutions.
func absence(r Resolution) AbsenceReason {
	switch v := r.(type) {
	case GroundwaterOnly:
		return ReasonGroundwaterOnly
	case Unavailable:
		return v.Reason
	}
	return ""
}

// ExpectedUnits returns the unit the dataset must declare for each variable
// referenced by r.
func ExpectedUnits(r Resolution) map[string]domain.Unit {
	out := make(map[string]domain.Unit)
	switch v := r.(type) {
	case Direct:
		out[v.Variable] = v.Unit
	case Sum:
		for _, a := range v.Arcs {
			out[a] = v.Unit
		}
	case BackCalculate:
		for _, t := range v.Terms {
			out[t.Delivery] = v.Unit
			out[t.Shortage] = v.Unit
			out[t.AllocationFraction] = domain.UnitFraction
		}
	}
	return out
}

// SignalUnit returns the mapped unit of the values r produces, or UnitNone
// for resolutions without data.
func SignalUnit(r Resolution) domain.Unit {
	switch v := r.(type) {
	case Direct:
		return v.Unit
	case Sum:
		return v.Unit
	case BackCalculate:
		return v.Unit
	}
	return domain.UnitNone
}
