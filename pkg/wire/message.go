package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/radiotree/radiotree-go/pkg/property"
)

// MessageID 0 is reserved to indicate a notification message.
const NotificationMessageID uint32 = 0

// Request represents a request message from client to device.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32
//	  2: operation,    // uint8
//	  3: path,         // string (absolute tree path)
//	  4: payload       // operation-specific data
//	}
type Request struct {
	MessageID uint32          `cbor:"1,keyasint"`
	Operation Operation       `cbor:"2,keyasint"`
	Path      string          `cbor:"3,keyasint,omitempty"`
	Payload   cbor.RawMessage `cbor:"4,keyasint,omitempty"`
}

// NewRequest builds a request, encoding payload when it is not nil.
func NewRequest(id uint32, op Operation, path string, payload any) (*Request, error) {
	req := &Request{MessageID: id, Operation: op, Path: path}
	if payload != nil {
		raw, err := Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", op, err)
		}
		req.Payload = raw
	}
	return req, nil
}

// Validate checks if the request is valid.
func (r *Request) Validate() error {
	if r.MessageID == NotificationMessageID {
		return fmt.Errorf("messageId 0 is reserved for notifications")
	}
	if !r.Operation.IsValid() {
		return fmt.Errorf("invalid operation: %d", r.Operation)
	}
	if r.Operation.NeedsPath() && r.Path == "" {
		return fmt.Errorf("%s requires a path", r.Operation)
	}
	return nil
}

// DecodePayload decodes the request payload into v. A missing payload
// leaves v untouched.
func (r *Request) DecodePayload(v any) error {
	if len(r.Payload) == 0 {
		return nil
	}
	return Unmarshal(r.Payload, v)
}

// Response represents a response message from device to client.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32: matches request
//	  2: status,       // uint8: 0=success, or error code
//	  3: payload       // operation-specific data, or ErrorPayload
//	}
type Response struct {
	MessageID uint32          `cbor:"1,keyasint"`
	Status    Status          `cbor:"2,keyasint"`
	Payload   cbor.RawMessage `cbor:"3,keyasint,omitempty"`
}

// NewResponse builds a response, encoding payload when it is not nil.
func NewResponse(id uint32, status Status, payload any) (*Response, error) {
	resp := &Response{MessageID: id, Status: status}
	if payload != nil {
		raw, err := Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode response payload: %w", err)
		}
		resp.Payload = raw
	}
	return resp, nil
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// DecodePayload decodes the response payload into v.
func (r *Response) DecodePayload(v any) error {
	if len(r.Payload) == 0 {
		return nil
	}
	return Unmarshal(r.Payload, v)
}

// ErrorMessage returns the message carried by an error response, if any.
func (r *Response) ErrorMessage() string {
	if r.IsSuccess() {
		return ""
	}
	var ep ErrorPayload
	if err := r.DecodePayload(&ep); err != nil {
		return ""
	}
	return ep.Message
}

// Notification represents a subscription notification from device to client.
//
// CBOR encoding:
//
//	{
//	  1: 0,                // messageId 0 = notification
//	  2: subscriptionId,   // uint32
//	  3: changes           // map path -> value
//	}
type Notification struct {
	SubscriptionID uint32                    `cbor:"2,keyasint"`
	Changes        map[string]property.Value `cbor:"3,keyasint"`
}

// NodeInfo describes a node.
type NodeInfo struct {
	Path        string          `cbor:"1,keyasint"`
	Kind        property.Kind   `cbor:"2,keyasint"`
	Value       property.Value  `cbor:"3,keyasint"`
	Desired     property.Value  `cbor:"4,keyasint"`
	Access      property.Access `cbor:"5,keyasint"`
	Unit        string          `cbor:"6,keyasint,omitempty"`
	Description string          `cbor:"7,keyasint,omitempty"`
}

// SetPayload is the payload of a Set request.
type SetPayload struct {
	Value property.Value `cbor:"1,keyasint"`
}

// ValuePayload is the payload of a Set response: the stored value after
// coercion, which may differ from the requested one.
type ValuePayload struct {
	Value   property.Value `cbor:"1,keyasint"`
	Desired property.Value `cbor:"2,keyasint"`
}

// CreatePayload is the payload of a Create request. Min/Max build a range
// check and Choices a set of allowed values; Clip clamps to Min/Max instead
// of rejecting.
type CreatePayload struct {
	Value       property.Value   `cbor:"1,keyasint"`
	Access      property.Access  `cbor:"2,keyasint,omitempty"`
	Unit        string           `cbor:"3,keyasint,omitempty"`
	Description string           `cbor:"4,keyasint,omitempty"`
	Min         *float64         `cbor:"5,keyasint,omitempty"`
	Max         *float64         `cbor:"6,keyasint,omitempty"`
	Clip        bool             `cbor:"7,keyasint,omitempty"`
	Choices     []property.Value `cbor:"8,keyasint,omitempty"`
}

// ListPayload is the payload of a List response.
type ListPayload struct {
	Children []string `cbor:"1,keyasint"`
}

// SubscribePayload is the payload of a Subscribe request.
//
// CBOR encoding:
//
//	{
//	  1: minInterval,   // uint32: minimum ms between notifications
//	  2: maxInterval    // uint32: maximum ms without notification (heartbeat)
//	}
type SubscribePayload struct {
	MinInterval uint32 `cbor:"1,keyasint,omitempty"`
	MaxInterval uint32 `cbor:"2,keyasint,omitempty"`
}

// SubscribeResponsePayload is the payload of a Subscribe response.
//
// CBOR encoding:
//
//	{
//	  1: subscriptionId,  // uint32
//	  2: currentValues    // map path -> value (priming report)
//	}
type SubscribeResponsePayload struct {
	SubscriptionID uint32                    `cbor:"1,keyasint"`
	CurrentValues  map[string]property.Value `cbor:"2,keyasint,omitempty"`
}

// UnsubscribePayload is the payload of an Unsubscribe request.
type UnsubscribePayload struct {
	SubscriptionID uint32 `cbor:"1,keyasint"`
}

// ComponentPayload names a component in Lookup and Unregister requests.
type ComponentPayload struct {
	ID string `cbor:"1,keyasint"`
}

// ComponentInfo describes a registered component.
type ComponentInfo struct {
	ID         string `cbor:"1,keyasint"`
	Root       string `cbor:"2,keyasint"`
	Kind       string `cbor:"3,keyasint,omitempty"`
	InstanceID string `cbor:"4,keyasint,omitempty"`
}

// ComponentsPayload is the payload of a Components response.
type ComponentsPayload struct {
	Components []ComponentInfo `cbor:"1,keyasint"`
}

// SnapshotPayload is the payload of a Snapshot response.
type SnapshotPayload struct {
	Nodes   []NodeInfo        `cbor:"1,keyasint"`
	Aliases map[string]string `cbor:"2,keyasint,omitempty"`
}

// ErrorPayload carries additional error information in a response.
//
// CBOR encoding:
//
//	{
//	  1: message  // string: human-readable error message
//	}
type ErrorPayload struct {
	Message string `cbor:"1,keyasint,omitempty"`
}
