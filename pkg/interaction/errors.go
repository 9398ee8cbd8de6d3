package interaction

import (
	"errors"

	"github.com/radiotree/radiotree-go/pkg/component"
	"github.com/radiotree/radiotree-go/pkg/subscription"
	"github.com/radiotree/radiotree-go/pkg/tree"
	"github.com/radiotree/radiotree-go/pkg/wire"
)

// Protocol errors without a tree or registry counterpart.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternal       = errors.New("internal error")
)

// StatusFromError maps an error to the status reported to remote callers.
// Overflow is checked first: an overflow surfaces inside a PropagationError
// whose chain may also carry other causes.
func StatusFromError(err error) wire.Status {
	switch {
	case err == nil:
		return wire.StatusSuccess
	case errors.Is(err, tree.ErrPropagationOverflow):
		return wire.StatusPropagationOverflow
	case errors.Is(err, tree.ErrStaleReference):
		return wire.StatusStaleReference
	case errors.Is(err, component.ErrUnknownComponent):
		return wire.StatusUnknownComponent
	case errors.Is(err, component.ErrDuplicateComponent):
		return wire.StatusDuplicateComponent
	case errors.Is(err, tree.ErrNotFound), errors.Is(err, subscription.ErrSubscriptionNotFound):
		return wire.StatusNotFound
	case errors.Is(err, tree.ErrDuplicatePath):
		return wire.StatusDuplicatePath
	case errors.Is(err, tree.ErrValidation):
		return wire.StatusValidation
	case errors.Is(err, tree.ErrInvalidPath),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, subscription.ErrInvalidInterval),
		errors.Is(err, subscription.ErrInvalidPrefix):
		return wire.StatusInvalidRequest
	default:
		return wire.StatusInternal
	}
}

// StatusError is an error response received from a device.
type StatusError struct {
	Status  wire.Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Status.String() + ": " + e.Message
	}
	return e.Status.String()
}

// Unwrap returns the local sentinel matching the status, so remote errors
// satisfy the same errors.Is checks as local ones.
func (e *StatusError) Unwrap() error {
	switch e.Status {
	case wire.StatusNotFound:
		return tree.ErrNotFound
	case wire.StatusDuplicatePath:
		return tree.ErrDuplicatePath
	case wire.StatusDuplicateComponent:
		return component.ErrDuplicateComponent
	case wire.StatusValidation:
		return tree.ErrValidation
	case wire.StatusStaleReference:
		return tree.ErrStaleReference
	case wire.StatusPropagationOverflow:
		return tree.ErrPropagationOverflow
	case wire.StatusUnknownComponent:
		return component.ErrUnknownComponent
	case wire.StatusInvalidRequest:
		return ErrInvalidRequest
	default:
		return ErrInternal
	}
}

// ErrorFromStatus converts a response status back into an error. Success
// yields nil.
func ErrorFromStatus(status wire.Status, message string) error {
	if status.IsSuccess() {
		return nil
	}
	return &StatusError{Status: status, Message: message}
}
