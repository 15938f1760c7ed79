package registry

import (
	"errors"
	"fmt"
)

// ErrEntityNotFound is returned for lookups of entities that are not mapped.
// An unmapped entity is a configuration error, never a zero.
var ErrEntityNotFound = errors.New("entity not found in variable mapping")

// ConfigurationError describes a mapping entry that cannot be resolved.
// It is fatal for that entity only.
type ConfigurationError struct {
	EntityID string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for entity %s: %s", e.EntityID, e.Reason)
}
