package wire

// Operation represents a control protocol operation.
type Operation uint8

const (
	// OpGet reads one node.
	OpGet Operation = 1

	// OpSet writes one node as a client.
	OpSet Operation = 2

	// OpList lists the children of a path.
	OpList Operation = 3

	// OpCreate creates a node.
	OpCreate Operation = 4

	// OpRemove removes a subtree.
	OpRemove Operation = 5

	// OpSubscribe registers for change notifications below a path.
	OpSubscribe Operation = 6

	// OpUnsubscribe cancels a subscription.
	OpUnsubscribe Operation = 7

	// OpComponents lists registered components.
	OpComponents Operation = 8

	// OpLookup returns one component.
	OpLookup Operation = 9

	// OpUnregister unregisters a component and removes its subtree.
	OpUnregister Operation = 10

	// OpSnapshot returns every node below a path together with the aliases.
	OpSnapshot Operation = 11
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpGet:
		return "Get"
	case OpSet:
		return "Set"
	case OpList:
		return "List"
	case OpCreate:
		return "Create"
	case OpRemove:
		return "Remove"
	case OpSubscribe:
		return "Subscribe"
	case OpUnsubscribe:
		return "Unsubscribe"
	case OpComponents:
		return "Components"
	case OpLookup:
		return "Lookup"
	case OpUnregister:
		return "Unregister"
	case OpSnapshot:
		return "Snapshot"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the operation is known.
func (o Operation) IsValid() bool {
	return o >= OpGet && o <= OpSnapshot
}

// NeedsPath returns true if the operation addresses a tree path.
func (o Operation) NeedsPath() bool {
	switch o {
	case OpGet, OpSet, OpList, OpCreate, OpRemove, OpSubscribe, OpSnapshot:
		return true
	}
	return false
}
