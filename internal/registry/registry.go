// Package registry resolves entities to raw simulation variables.
//
// The registry is built once from the mapping file and is read-only
// afterwards; the orchestrator receives it as a value and shares it across
// workers without locking.
package registry

import (
	"fmt"
	"sort"

	"hydrostat/internal/domain"
)

// MissingArcPolicy decides how a multi-arc sum treats an arc with no value at a timestep.
type MissingArcPolicy string

const (
	// MissingArcZero treats a missing arc as 0 and sums the remaining arcs.
	MissingArcZero MissingArcPolicy = "zero"
	// MissingArcExclude marks the whole timestep as missing.
	MissingArcExclude MissingArcPolicy = "exclude"
)

// IsValid checks if the policy is a known value.
func (p MissingArcPolicy) IsValid() bool {
	return p == MissingArcZero || p == MissingArcExclude
}

// Entity is one resolved mapping entry.
type Entity struct {
	ID          string
	Kind        domain.EntityKind
	Category    domain.MappingCategory
	Primary     domain.Signal
	AliasOf     string // canonical entity when this entry is an alias
	Signals     map[domain.Signal]Resolution
	Thresholds  []domain.ThresholdDefinition
	MissingArcs MissingArcPolicy

	// Err is set when the entry could not be resolved. Such entities are
	// reported as failed without aborting the run.
	Err *ConfigurationError
}

// Resolution returns how signal resolves for this entity. Signals that are
// not configured resolve to Unavailable{ReasonNotConfigured}.
func (e *Entity) Resolution(signal domain.Signal) Resolution {
	if r, ok := e.Signals[signal]; ok {
		return r
	}
	return Unavailable{Reason: ReasonNotConfigured}
}

// Lookup is the flat view of a signal resolution.
type Lookup struct {
	Variables []string
	Rule      Rule
	Reason    AbsenceReason // set when Rule is UNAVAILABLE
}

// Registry is the immutable entity → variables mapping.
type Registry struct {
	entities   map[string]*Entity
	order      []string
	volumeUnit domain.Unit
}

// New builds a registry from resolved entities and an explicit alias table
// (alias id → canonical id). Duplicate ids are rejected.
func New(entities []*Entity, aliases map[string]string, volumeUnit domain.Unit) (*Registry, error) {
	r := &Registry{
		entities:   make(map[string]*Entity, len(entities)+len(aliases)),
		volumeUnit: volumeUnit,
	}

	for _, e := range entities {
		if e.ID == "" {
			return nil, fmt.Errorf("mapping entry with empty entity id")
		}
		if _, exists := r.entities[e.ID]; exists {
			return nil, fmt.Errorf("duplicate entity id %q", e.ID)
		}
		r.entities[e.ID] = e
	}

	aliasIDs := make([]string, 0, len(aliases))
	for alias := range aliases {
		aliasIDs = append(aliasIDs, alias)
	}
	sort.Strings(aliasIDs)

	for _, alias := range aliasIDs {
		if _, exists := r.entities[alias]; exists {
			return nil, fmt.Errorf("alias %q collides with a mapped entity", alias)
		}
		r.entities[alias] = resolveAlias(alias, aliases[alias], r.entities)
	}

	for id := range r.entities {
		r.order = append(r.order, id)
	}
	sort.Strings(r.order)

	return r, nil
}

// resolveAlias builds the alias entry sharing its target's resolution.
// Chained aliases are not followed.
func resolveAlias(alias, target string, entities map[string]*Entity) *Entity {
	canonical, ok := entities[target]
	if !ok || canonical.AliasOf != "" {
		return &Entity{
			ID:      alias,
			AliasOf: target,
			Err: &ConfigurationError{
				EntityID: alias,
				Reason:   fmt.Sprintf("alias target %q is not a mapped entity", target),
			},
		}
	}

	e := *canonical
	e.ID = alias
	e.AliasOf = target
	return &e
}

// VolumeUnit is the unit rate-valued signals are converted to.
func (r *Registry) VolumeUnit() domain.Unit {
	return r.volumeUnit
}

// Entity returns the mapping entry for id. Returns ErrEntityNotFound if unmapped.
func (r *Registry) Entity(id string) (*Entity, error) {
	e, ok := r.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	return e, nil
}

// Lookup resolves one signal of an entity to its variables and combination rule.
// Legitimately absent signals resolve to RuleUnavailable with a reason; unmapped
// entities return ErrEntityNotFound.
func (r *Registry) Lookup(entityID string, signal domain.Signal) (Lookup, error) {
	e, err := r.Entity(entityID)
	if err != nil {
		return Lookup{}, err
	}
	if e.Err != nil {
		return Lookup{}, e.Err
	}

	res := e.Resolution(signal)
	return Lookup{
		Variables: res.Variables(),
		Rule:      res.Rule(),
		Reason:    absence(res),
	}, nil
}

// Entities returns entities sorted by id, optionally filtered by kind.
// Misconfigured entries whose kind could not be resolved match every filter,
// so they are reported as failures instead of dropping out of a run.
func (r *Registry) Entities(kind domain.EntityKind) []*Entity {
	out := make([]*Entity, 0, len(r.order))
	for _, id := range r.order {
		e := r.entities[id]
		if kind != "" && e.Kind != kind && !(e.Err != nil && !e.Kind.IsValid()) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len returns the number of mapped entities including aliases.
func (r *Registry) Len() int {
	return len(r.order)
}
