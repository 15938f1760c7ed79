package storage

import (
	"errors"
	"fmt"
)

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransient marks failures worth retrying: lost connections,
	// serialization conflicts, timeouts.
	ErrTransient = errors.New("transient storage failure")
)

// SinkWriteFailure is returned when a scope could not be replaced.
// The previously committed state of the scope is left untouched.
type SinkWriteFailure struct {
	Scope    Scope
	Attempts int
	Err      error
}

func (e *SinkWriteFailure) Error() string {
	return fmt.Sprintf("sink write failed for %s after %d attempt(s): %v", e.Scope, e.Attempts, e.Err)
}

func (e *SinkWriteFailure) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is marked retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
