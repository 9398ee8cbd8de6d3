package property

import (
	"errors"
	"fmt"
)

// Property errors.
var (
	// ErrValidation indicates a value was rejected by a node's coercer.
	ErrValidation = errors.New("validation failed")

	// ErrPropagationOverflow indicates a notification chain exceeded MaxPropagationDepth.
	ErrPropagationOverflow = errors.New("propagation depth exceeded")

	// ErrStaleReference indicates access to a node whose subtree was removed.
	ErrStaleReference = errors.New("stale reference")
)

// ValidationError describes a rejected write.
type ValidationError struct {
	Path   string
	Value  Value
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%v: %s: %s", ErrValidation, e.Value, e.Reason)
	}
	return fmt.Sprintf("%v: %s = %s: %s", ErrValidation, e.Path, e.Value, e.Reason)
}

// Unwrap makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid returns a validation error for use inside coercers.
func Invalid(v Value, format string, args ...any) error {
	return &ValidationError{Value: v, Reason: fmt.Sprintf(format, args...)}
}
