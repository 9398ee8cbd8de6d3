package log

import (
	"time"

	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/wire"
)

// Event represents a log event captured at any layer, from tree mutations
// up to protocol frames. CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the tree or connection that produced the event (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates message flow (protocol layers only).
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Device is the device serial, when known.
	Device string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame      *FrameEvent      `cbor:"10,keyasint,omitempty"` // Transport layer
	Message    *MessageEvent    `cbor:"11,keyasint,omitempty"` // Wire layer (decoded)
	Mutation   *MutationEvent   `cbor:"12,keyasint,omitempty"` // Node writes
	Lifecycle  *LifecycleEvent  `cbor:"13,keyasint,omitempty"` // Structural changes
	Diagnostic *DiagnosticEvent `cbor:"14,keyasint,omitempty"` // Slow callbacks, rollbacks
	Error      *ErrorEventData  `cbor:"15,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the message encoding layer (decoded CBOR).
	LayerWire Layer = 1
	// LayerService is the request dispatch layer.
	LayerService Layer = 2
	// LayerTree is the property tree itself.
	LayerTree Layer = 3
	// LayerRegistry is the component registry.
	LayerRegistry Layer = 4
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerService:
		return "SERVICE"
	case LayerTree:
		return "TREE"
	case LayerRegistry:
		return "REGISTRY"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message (request/response/notification).
	CategoryMessage Category = 0
	// CategoryMutation indicates a node write.
	CategoryMutation Category = 1
	// CategoryLifecycle indicates node, alias or component creation and removal.
	CategoryLifecycle Category = 2
	// CategoryDiagnostic indicates a contract violation that did not fail the operation.
	CategoryDiagnostic Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryMutation:
		return "MUTATION"
	case CategoryLifecycle:
		return "LIFECYCLE"
	case CategoryDiagnostic:
		return "DIAGNOSTIC"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded protocol message at the wire layer.
type MessageEvent struct {
	// Type distinguishes request/response/notification.
	Type MessageType `cbor:"1,keyasint"`

	// MessageID correlates request/response pairs (0 for notifications).
	MessageID uint32 `cbor:"2,keyasint"`

	// For requests: the operation being performed.
	Operation *wire.Operation `cbor:"3,keyasint,omitempty"`

	// For requests: the target path.
	Path string `cbor:"4,keyasint,omitempty"`

	// For responses: the status code.
	Status *wire.Status `cbor:"5,keyasint,omitempty"`

	// For notifications: the subscription ID.
	SubscriptionID *uint32 `cbor:"6,keyasint,omitempty"`

	// ProcessingTime is the duration from request receipt to response send (response only).
	ProcessingTime *time.Duration `cbor:"7,keyasint,omitempty"`
}

// MessageType distinguishes request/response/notification.
type MessageType uint8

const (
	// MessageTypeRequest indicates a request message.
	MessageTypeRequest MessageType = 0
	// MessageTypeResponse indicates a response message.
	MessageTypeResponse MessageType = 1
	// MessageTypeNotification indicates a notification message.
	MessageTypeNotification MessageType = 2
)

// String returns the message type name.
func (m MessageType) String() string {
	switch m {
	case MessageTypeRequest:
		return "REQUEST"
	case MessageTypeResponse:
		return "RESPONSE"
	case MessageTypeNotification:
		return "NOTIFICATION"
	default:
		return "UNKNOWN"
	}
}

// MutationEvent captures one successful node write.
type MutationEvent struct {
	// Path is the canonical node path.
	Path string `cbor:"1,keyasint"`

	// Value is the stored value after coercion.
	Value property.Value `cbor:"2,keyasint"`

	// Previous is the value before the write.
	Previous property.Value `cbor:"3,keyasint"`

	// Desired is the value the writer asked for.
	Desired property.Value `cbor:"4,keyasint"`

	// Depth is the propagation depth (0 for the top-level write).
	Depth int `cbor:"5,keyasint,omitempty"`

	// Internal is true for device-side writes.
	Internal bool `cbor:"6,keyasint,omitempty"`
}

// LifecycleEvent captures structural changes to the tree and registry.
type LifecycleEvent struct {
	Action LifecycleAction `cbor:"1,keyasint"`

	// Path is the node, subtree or alias path.
	Path string `cbor:"2,keyasint,omitempty"`

	// Target is the alias target.
	Target string `cbor:"3,keyasint,omitempty"`

	// Component is the component ID.
	Component string `cbor:"4,keyasint,omitempty"`

	// Count is the number of nodes affected.
	Count int `cbor:"5,keyasint,omitempty"`

	// Value is the initial value of a created node.
	Value property.Value `cbor:"6,keyasint"`
}

// LifecycleAction identifies a structural change.
type LifecycleAction uint8

const (
	ActionNodeCreated           LifecycleAction = 0
	ActionSubtreeRemoved        LifecycleAction = 1
	ActionAliasCreated          LifecycleAction = 2
	ActionAliasRemoved          LifecycleAction = 3
	ActionComponentRegistered   LifecycleAction = 4
	ActionComponentUnregistered LifecycleAction = 5
	ActionConnected             LifecycleAction = 6
	ActionDisconnected          LifecycleAction = 7
)

// String returns the action name.
func (a LifecycleAction) String() string {
	switch a {
	case ActionNodeCreated:
		return "NODE_CREATED"
	case ActionSubtreeRemoved:
		return "SUBTREE_REMOVED"
	case ActionAliasCreated:
		return "ALIAS_CREATED"
	case ActionAliasRemoved:
		return "ALIAS_REMOVED"
	case ActionComponentRegistered:
		return "COMPONENT_REGISTERED"
	case ActionComponentUnregistered:
		return "COMPONENT_UNREGISTERED"
	case ActionConnected:
		return "CONNECTED"
	case ActionDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// DiagnosticEvent reports a condition worth a look that did not fail the
// operation that caused it.
type DiagnosticEvent struct {
	Kind DiagnosticKind `cbor:"1,keyasint"`

	// Path is the node whose callback was slow, or the origin of a rolled
	// back write.
	Path string `cbor:"2,keyasint,omitempty"`

	// Duration of a slow callback.
	Duration time.Duration `cbor:"3,keyasint,omitempty"`

	// Count is the number of changes undone by a rollback.
	Count int `cbor:"4,keyasint,omitempty"`

	Message string `cbor:"5,keyasint,omitempty"`
}

// DiagnosticKind identifies a diagnostic.
type DiagnosticKind uint8

const (
	// DiagnosticSlowCallback is a subscriber callback that exceeded its time budget.
	DiagnosticSlowCallback DiagnosticKind = 0
	// DiagnosticRollback is a write chain that was undone.
	DiagnosticRollback DiagnosticKind = 1
)

// String returns the diagnostic name.
func (k DiagnosticKind) String() string {
	switch k {
	case DiagnosticSlowCallback:
		return "SLOW_CALLBACK"
	case DiagnosticRollback:
		return "ROLLBACK"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the error code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
