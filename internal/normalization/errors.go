package normalization

import (
	"errors"
	"fmt"

	"hydrostat/internal/domain"
)

// Sentinel causes of a DataContractViolation.
var (
	ErrMissingVariable = errors.New("promised variable missing from dataset")
	ErrUnitMismatch    = errors.New("declared unit contradicts mapping")
	ErrLengthMismatch  = errors.New("variable length does not match time axis")
)

// DataContractViolation is returned when the dataset does not deliver what the
// mapping promises for an entity. It fails that entity only.
type DataContractViolation struct {
	EntityID string
	Variable string
	Expected domain.Unit // set for unit mismatches
	Declared domain.Unit
	Err      error
}

func (e *DataContractViolation) Error() string {
	if errors.Is(e.Err, ErrUnitMismatch) {
		return fmt.Sprintf("data contract violation for entity %s: variable %s declared %s, mapping expects %s",
			e.EntityID, e.Variable, e.Declared, e.Expected)
	}
	return fmt.Sprintf("data contract violation for entity %s: variable %s: %v", e.EntityID, e.Variable, e.Err)
}

func (e *DataContractViolation) Unwrap() error {
	return e.Err
}
