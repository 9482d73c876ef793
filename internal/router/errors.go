package router

import (
	"errors"
	"fmt"
)

var (
	// ErrNoBackendsAvailable is returned by Decide when no enabled backend exists.
	ErrNoBackendsAvailable = errors.New("no-backends-available")

	ErrInvalidSnapshot = errors.New("invalid backend snapshot")
	ErrDuplicateID     = errors.New("duplicate backend id")
)

// ValidationError reports a snapshot field that failed construction checks.
type ValidationError struct {
	ID     string
	Field  string
	Value  any
	Reason string
	dup    bool
}

func (e *ValidationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("backend: %s=%v: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("backend %q: %s=%v: %s", e.ID, e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	if target == ErrInvalidSnapshot {
		return true
	}
	return e.dup && target == ErrDuplicateID
}
