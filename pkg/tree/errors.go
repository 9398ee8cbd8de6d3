package tree

import (
	"errors"
	"fmt"

	"github.com/radiotree/radiotree-go/pkg/property"
)

// Tree errors.
var (
	// ErrNotFound indicates no node exists at a path.
	ErrNotFound = errors.New("not found")

	// ErrDuplicatePath indicates a node or alias already exists at a path.
	ErrDuplicatePath = errors.New("duplicate path")

	// ErrInvalidPath indicates a malformed path.
	ErrInvalidPath = errors.New("invalid path")

	// Re-exported so callers of the tree need a single import.
	ErrValidation          = property.ErrValidation
	ErrStaleReference      = property.ErrStaleReference
	ErrPropagationOverflow = property.ErrPropagationOverflow
)

// PropagationError reports a failure inside a notification chain. Origin is
// the path the top-level caller wrote; Path is where the chain failed.
type PropagationError struct {
	Origin Path
	Path   string
	Depth  int
	Err    error
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("propagation from %s failed at %s (depth %d): %v", e.Origin, e.Path, e.Depth, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PropagationError) Unwrap() error { return e.Err }
