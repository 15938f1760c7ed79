package registry

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"hydrostat/internal/domain"
)

// mappingFile is the on-disk layout of the variable mapping.
type mappingFile struct {
	VolumeUnit string            `yaml:"volume_unit"`
	Defaults   mappingDefaults   `yaml:"defaults"`
	Entities   []entityEntry     `yaml:"entities"`
	Aliases    map[string]string `yaml:"aliases"`
}

type mappingDefaults struct {
	MissingArcPolicy string `yaml:"missing_arc_policy"`
}

type entityEntry struct {
	ID               string                 `yaml:"id"`
	Kind             string                 `yaml:"kind"`
	Category         string                 `yaml:"category"`
	PrimarySignal    string                 `yaml:"primary_signal"`
	MissingArcPolicy string                 `yaml:"missing_arc_policy"`
	Signals          map[string]signalEntry `yaml:"signals"`
	Terms            []termEntry            `yaml:"terms"`
	TermUnit         string                 `yaml:"term_unit"`
	Thresholds       []thresholdEntry       `yaml:"thresholds"`
}

type signalEntry struct {
	Variables []string `yaml:"variables"`
	Unit      string   `yaml:"unit"`
}

type termEntry struct {
	Delivery           string `yaml:"delivery"`
	Shortage           string `yaml:"shortage"`
	AllocationFraction string `yaml:"allocation_fraction"`
}

type thresholdEntry struct {
	Kind            string   `yaml:"kind"`
	Constant        *float64 `yaml:"constant"`
	Variable        string   `yaml:"variable"`
	Unit            string   `yaml:"unit"`
	DesignatedMonth int      `yaml:"designated_month"`
}

// LoadOptions tune how a mapping file is turned into a registry.
type LoadOptions struct {
	// MissingArcPolicy overrides the file default when non-empty.
	MissingArcPolicy MissingArcPolicy
}

// LoadFile reads a YAML mapping file.
func LoadFile(path string, opts LoadOptions) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mapping file: %w", err)
	}
	defer f.Close()

	return Load(f, opts)
}

// Load decodes a YAML mapping and resolves every entry into its resolution
// variant. File-level problems are returned as errors; problems confined to
// one entry are attached to that entity as a ConfigurationError.
func Load(r io.Reader, opts LoadOptions) (*Registry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var mf mappingFile
	if err := dec.Decode(&mf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("mapping file is empty")
		}
		return nil, fmt.Errorf("decode mapping file: %w", err)
	}

	volumeUnit := domain.UnitTAF
	if mf.VolumeUnit != "" {
		volumeUnit = domain.ParseUnit(mf.VolumeUnit)
	}
	if !volumeUnit.IsVolume() {
		return nil, fmt.Errorf("volume_unit %q is not a volume unit", mf.VolumeUnit)
	}

	policy := MissingArcZero
	if mf.Defaults.MissingArcPolicy != "" {
		policy = MissingArcPolicy(mf.Defaults.MissingArcPolicy)
	}
	if opts.MissingArcPolicy != "" {
		policy = opts.MissingArcPolicy
	}
	if !policy.IsValid() {
		return nil, fmt.Errorf("unknown missing_arc_policy %q", policy)
	}

	entities := make([]*Entity, 0, len(mf.Entities))
	for _, entry := range mf.Entities {
		entities = append(entities, resolveEntry(entry, policy))
	}

	return New(entities, mf.Aliases, volumeUnit)
}

// resolveEntry maps one file entry onto the resolution variants.
func resolveEntry(entry entityEntry, defaultPolicy MissingArcPolicy) *Entity {
	e := &Entity{
		ID:          entry.ID,
		Kind:        domain.EntityKind(entry.Kind),
		Category:    domain.MappingCategory(entry.Category),
		Signals:     make(map[domain.Signal]Resolution),
		MissingArcs: defaultPolicy,
	}

	fail := func(format string, args ...any) *Entity {
		e.Err = &ConfigurationError{EntityID: entry.ID, Reason: fmt.Sprintf(format, args...)}
		e.Signals = nil
		return e
	}

	if !e.Kind.IsValid() {
		return fail("unsupported entity kind %q", entry.Kind)
	}
	if !e.Category.IsValid() {
		return fail("unsupported category %q", entry.Category)
	}

	if entry.MissingArcPolicy != "" {
		e.MissingArcs = MissingArcPolicy(entry.MissingArcPolicy)
		if !e.MissingArcs.IsValid() {
			return fail("unknown missing_arc_policy %q", entry.MissingArcPolicy)
		}
	}

	e.Primary = domain.DefaultPrimarySignal(e.Kind)
	if entry.PrimarySignal != "" {
		e.Primary = domain.Signal(entry.PrimarySignal)
		if !e.Primary.IsValid() {
			return fail("unknown primary_signal %q", entry.PrimarySignal)
		}
	}

	for name, sig := range entry.Signals {
		signal := domain.Signal(name)
		if !signal.IsValid() {
			return fail("unknown signal %q", name)
		}
		res, err := resolveSignal(e.Category, signal, sig)
		if err != nil {
			return fail("signal %s: %v", signal, err)
		}
		e.Signals[signal] = res
	}

	switch e.Category {
	case domain.CategoryGroundwaterOnly:
		if _, ok := entry.Signals[string(domain.SignalDelivery)]; ok {
			return fail("groundwater_only entities cannot declare surface delivery variables")
		}
		e.Signals[domain.SignalDelivery] = GroundwaterOnly{}

	case domain.CategoryBackCalculated:
		if err := resolveTerms(e, entry); err != nil {
			return fail("%v", err)
		}

	case domain.CategoryUnavailable:
		if len(entry.Signals) > 0 || len(entry.Terms) > 0 {
			return fail("unavailable entities cannot declare variables")
		}
		for _, signal := range domain.AllSignals {
			e.Signals[signal] = Unavailable{Reason: ReasonUnavailable}
		}
	}

	if e.Category != domain.CategoryBackCalculated && len(entry.Terms) > 0 {
		return fail("terms are only valid for back_calculated entities")
	}

	for _, th := range entry.Thresholds {
		def, err := resolveThreshold(th)
		if err != nil {
			return fail("threshold: %v", err)
		}
		e.Thresholds = append(e.Thresholds, def)
	}

	return e
}

// resolveSignal picks the variant for an explicitly listed signal.
func resolveSignal(category domain.MappingCategory, signal domain.Signal, sig signalEntry) (Resolution, error) {
	if len(sig.Variables) == 0 {
		return nil, fmt.Errorf("no variables listed")
	}
	for _, v := range sig.Variables {
		if v == "" {
			return nil, fmt.Errorf("empty variable name")
		}
	}
	unit := domain.ParseUnit(sig.Unit)
	if unit == domain.UnitNone && signal != domain.SignalDemand {
		return nil, fmt.Errorf("unit is required")
	}

	switch {
	case len(sig.Variables) == 1:
		return Direct{Variable: sig.Variables[0], Unit: unit}, nil
	case category == domain.CategoryDirect:
		return nil, fmt.Errorf("direct entities map each signal to exactly one variable, got %d", len(sig.Variables))
	default:
		arcs := make([]string, len(sig.Variables))
		copy(arcs, sig.Variables)
		return Sum{Arcs: arcs, Unit: unit}, nil
	}
}

// resolveTerms builds demand, delivery and shortage resolutions for
// back-calculated entities from their connection terms.
func resolveTerms(e *Entity, entry entityEntry) error {
	if len(entry.Terms) == 0 {
		return fmt.Errorf("back_calculated entities need at least one term")
	}
	if _, ok := entry.Signals[string(domain.SignalDemand)]; ok {
		return fmt.Errorf("back_calculated entities derive demand and cannot map it directly")
	}

	unit := domain.ParseUnit(entry.TermUnit)
	if unit != domain.UnitCFS && !unit.IsVolume() {
		return fmt.Errorf("term_unit %q must be a rate or volume unit", entry.TermUnit)
	}

	terms := make([]Term, 0, len(entry.Terms))
	deliveries := make([]string, 0, len(entry.Terms))
	shortages := make([]string, 0, len(entry.Terms))
	for i, t := range entry.Terms {
		if t.Delivery == "" || t.Shortage == "" || t.AllocationFraction == "" {
			return fmt.Errorf("term %d must name delivery, shortage and allocation_fraction", i+1)
		}
		terms = append(terms, Term{Delivery: t.Delivery, Shortage: t.Shortage, AllocationFraction: t.AllocationFraction})
		deliveries = append(deliveries, t.Delivery)
		shortages = append(shortages, t.Shortage)
	}

	e.Signals[domain.SignalDemand] = BackCalculate{Terms: terms, Unit: unit}
	if _, ok := e.Signals[domain.SignalDelivery]; !ok {
		e.Signals[domain.SignalDelivery] = combined(deliveries, unit)
	}
	if _, ok := e.Signals[domain.SignalShortage]; !ok {
		e.Signals[domain.SignalShortage] = combined(shortages, unit)
	}
	return nil
}

func combined(vars []string, unit domain.Unit) Resolution {
	if len(vars) == 1 {
		return Direct{Variable: vars[0], Unit: unit}
	}
	return Sum{Arcs: vars, Unit: unit}
}

func resolveThreshold(th thresholdEntry) (domain.ThresholdDefinition, error) {
	kind := domain.ThresholdKind(th.Kind)
	if kind != domain.ThresholdFlood && kind != domain.ThresholdDead {
		return domain.ThresholdDefinition{}, fmt.Errorf("unknown kind %q", th.Kind)
	}
	if (th.Constant == nil) == (th.Variable == "") {
		return domain.ThresholdDefinition{}, fmt.Errorf("%s threshold needs exactly one of constant or variable", kind)
	}
	if th.DesignatedMonth < 0 || th.DesignatedMonth > 12 {
		return domain.ThresholdDefinition{}, fmt.Errorf("designated_month %d out of range 1..12", th.DesignatedMonth)
	}
	var unit domain.Unit
	if th.Unit != "" {
		if th.Variable == "" {
			return domain.ThresholdDefinition{}, fmt.Errorf("%s threshold unit applies only to a variable", kind)
		}
		unit = domain.ParseUnit(th.Unit)
		if !unit.IsRate() && !unit.IsVolume() && unit != domain.UnitFraction {
			return domain.ThresholdDefinition{}, fmt.Errorf("%s threshold unit %q is not supported", kind, th.Unit)
		}
	}
	return domain.ThresholdDefinition{
		Kind:            kind,
		Constant:        th.Constant,
		Variable:        th.Variable,
		Unit:            unit,
		DesignatedMonth: th.DesignatedMonth,
	}, nil
}
