package wire

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder mode for protocol messages.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for protocol messages.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient for forward compatibility: unknown keys are skipped.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewEncoder creates a new CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a new CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// EncodeRequest encodes a request message to CBOR bytes.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return Marshal(req)
}

// DecodeRequest decodes CBOR bytes into a request message.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return &req, fmt.Errorf("invalid request: %w", err)
	}
	return &req, nil
}

// EncodeResponse encodes a response message to CBOR bytes.
func EncodeResponse(resp *Response) ([]byte, error) {
	return Marshal(resp)
}

// DecodeResponse decodes CBOR bytes into a response message.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// notificationWire is the on-wire form of a Notification, with messageId 0.
type notificationWire struct {
	MessageID      uint32          `cbor:"1,keyasint"`
	SubscriptionID uint32          `cbor:"2,keyasint"`
	Changes        cbor.RawMessage `cbor:"3,keyasint"`
}

// EncodeNotification encodes a notification message to CBOR bytes.
// Notifications have messageId=0 which is handled automatically.
func EncodeNotification(notif *Notification) ([]byte, error) {
	changes, err := Marshal(notif.Changes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode changes: %w", err)
	}
	return Marshal(notificationWire{
		MessageID:      NotificationMessageID,
		SubscriptionID: notif.SubscriptionID,
		Changes:        changes,
	})
}

// DecodeNotification decodes CBOR bytes into a notification message.
func DecodeNotification(data []byte) (*Notification, error) {
	var w notificationWire
	if err := Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode notification: %w", err)
	}
	if w.MessageID != NotificationMessageID {
		return nil, fmt.Errorf("not a notification message: messageId=%d", w.MessageID)
	}
	n := &Notification{SubscriptionID: w.SubscriptionID}
	if len(w.Changes) > 0 {
		if err := Unmarshal(w.Changes, &n.Changes); err != nil {
			return nil, fmt.Errorf("failed to decode changes: %w", err)
		}
	}
	return n, nil
}

// IsNotification reports whether an encoded device-to-client message is a
// notification rather than a response. Only key 1 is decoded.
func IsNotification(data []byte) (bool, error) {
	var peek struct {
		MessageID uint32 `cbor:"1,keyasint"`
	}
	if err := Unmarshal(data, &peek); err != nil {
		return false, fmt.Errorf("failed to peek message: %w", err)
	}
	return peek.MessageID == NotificationMessageID, nil
}
