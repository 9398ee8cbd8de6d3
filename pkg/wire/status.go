package wire

// Status represents a response status code. Error statuses mirror the
// tree's error taxonomy one to one.
type Status uint8

const (
	// StatusSuccess indicates the operation completed successfully.
	StatusSuccess Status = 0

	// StatusNotFound indicates no node or subtree exists at the path.
	StatusNotFound Status = 1

	// StatusDuplicatePath indicates a node or alias already exists at the path.
	StatusDuplicatePath Status = 2

	// StatusDuplicateComponent indicates the component ID is taken.
	StatusDuplicateComponent Status = 3

	// StatusValidation indicates the value was rejected.
	StatusValidation Status = 4

	// StatusStaleReference indicates the path resolves through a removed subtree.
	StatusStaleReference Status = 5

	// StatusPropagationOverflow indicates a runaway notification chain.
	StatusPropagationOverflow Status = 6

	// StatusUnknownComponent indicates the component is not registered.
	StatusUnknownComponent Status = 7

	// StatusInvalidRequest indicates a malformed request.
	StatusInvalidRequest Status = 8

	// StatusInternal indicates an unexpected server-side failure.
	StatusInternal Status = 9
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusDuplicatePath:
		return "DUPLICATE_PATH"
	case StatusDuplicateComponent:
		return "DUPLICATE_COMPONENT"
	case StatusValidation:
		return "VALIDATION_ERROR"
	case StatusStaleReference:
		return "STALE_REFERENCE"
	case StatusPropagationOverflow:
		return "PROPAGATION_OVERFLOW"
	case StatusUnknownComponent:
		return "UNKNOWN_COMPONENT"
	case StatusInvalidRequest:
		return "INVALID_REQUEST"
	case StatusInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// IsError returns true if the status indicates an error.
func (s Status) IsError() bool {
	return s != StatusSuccess
}
