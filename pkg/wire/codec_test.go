package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiotree/radiotree-go/pkg/property"
)

func TestRequestRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		op      Operation
		path    string
		payload any
	}{
		{"get", OpGet, "/mboards/0/tick_rate", nil},
		{"set", OpSet, "/blocks/0/Radio#0/gain/value", &SetPayload{Value: property.Float(30)}},
		{"list", OpList, "/", nil},
		{"subscribe", OpSubscribe, "/mboards/0/sensors", &SubscribePayload{MinInterval: 100, MaxInterval: 60000}},
		{"lookup", OpLookup, "", &ComponentPayload{ID: "rx_dsp0"}},
		{"components", OpComponents, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewRequest(12345, tt.op, tt.path, tt.payload)
			require.NoError(t, err)

			data, err := EncodeRequest(req)
			require.NoError(t, err)

			decoded, err := DecodeRequest(data)
			require.NoError(t, err)
			assert.Equal(t, uint32(12345), decoded.MessageID)
			assert.Equal(t, tt.op, decoded.Operation)
			assert.Equal(t, tt.path, decoded.Path)
			if tt.payload == nil {
				assert.Empty(t, decoded.Payload)
			} else {
				assert.NotEmpty(t, decoded.Payload)
			}
		})
	}
}

func TestSetPayloadRoundTrip(t *testing.T) {
	req, err := NewRequest(7, OpSet, "/mboards/0/clock_source/value", &SetPayload{Value: property.String("external")})
	require.NoError(t, err)
	data, err := EncodeRequest(req)
	require.NoError(t, err)

	decoded, err := DecodeRequest(data)
	require.NoError(t, err)
	var sp SetPayload
	require.NoError(t, decoded.DecodePayload(&sp))
	assert.True(t, sp.Value.Equal(property.String("external")))
}

func TestCreatePayloadRoundTrip(t *testing.T) {
	lo, hi := 0.0, 76.0
	in := &CreatePayload{
		Value:   property.Float(10),
		Access:  property.AccessReadWrite,
		Unit:    "dB",
		Min:     &lo,
		Max:     &hi,
		Clip:    true,
		Choices: []property.Value{property.Float(0), property.Float(10)},
	}
	req, err := NewRequest(9, OpCreate, "/blocks/0/Radio#0/gain/value", in)
	require.NoError(t, err)
	data, err := EncodeRequest(req)
	require.NoError(t, err)

	decoded, err := DecodeRequest(data)
	require.NoError(t, err)
	var out CreatePayload
	require.NoError(t, decoded.DecodePayload(&out))
	assert.True(t, out.Value.Equal(property.Float(10)))
	assert.Equal(t, "dB", out.Unit)
	require.NotNil(t, out.Min)
	require.NotNil(t, out.Max)
	assert.Equal(t, 0.0, *out.Min)
	assert.Equal(t, 76.0, *out.Max)
	assert.True(t, out.Clip)
	require.Len(t, out.Choices, 2)
	assert.True(t, out.Choices[1].Equal(property.Float(10)))
}

func TestResponseRoundTrip(t *testing.T) {
	resp, err := NewResponse(42, StatusSuccess, &ValuePayload{
		Value:   property.Float(2.4e9),
		Desired: property.Float(2.4001e9),
	})
	require.NoError(t, err)

	data, err := EncodeResponse(resp)
	require.NoError(t, err)
	decoded, err := DecodeResponse(data)
	require.NoError(t, err)

	assert.Equal(t, uint32(42), decoded.MessageID)
	assert.True(t, decoded.IsSuccess())
	var vp ValuePayload
	require.NoError(t, decoded.DecodePayload(&vp))
	assert.True(t, vp.Value.Equal(property.Float(2.4e9)))
	assert.True(t, vp.Desired.Equal(property.Float(2.4001e9)))
	assert.Empty(t, decoded.ErrorMessage())
}

func TestErrorResponse(t *testing.T) {
	resp, err := NewResponse(3, StatusValidation, &ErrorPayload{Message: "out of range"})
	require.NoError(t, err)
	data, err := EncodeResponse(resp)
	require.NoError(t, err)

	decoded, err := DecodeResponse(data)
	require.NoError(t, err)
	assert.False(t, decoded.IsSuccess())
	assert.Equal(t, StatusValidation, decoded.Status)
	assert.Equal(t, "out of range", decoded.ErrorMessage())
}

func TestSnapshotPayloadRoundTrip(t *testing.T) {
	in := &SnapshotPayload{
		Nodes: []NodeInfo{
			{Path: "/mboards/0/name", Kind: property.KindString, Value: property.String("B210"), Desired: property.String("B210"), Access: property.AccessReadWrite},
			{Path: "/mboards/0/sensors/temp", Kind: property.KindFloat, Value: property.Float(41.5), Desired: property.Float(41.5), Access: property.AccessReadOnly, Unit: "C"},
		},
		Aliases: map[string]string{"/rx_dsp0": "/mboards/0/rx_dsps/0"},
	}
	data, err := Marshal(in)
	require.NoError(t, err)

	var out SnapshotPayload
	require.NoError(t, Unmarshal(data, &out))
	require.Len(t, out.Nodes, 2)
	assert.Equal(t, "/mboards/0/sensors/temp", out.Nodes[1].Path)
	assert.Equal(t, property.AccessReadOnly, out.Nodes[1].Access)
	assert.True(t, out.Nodes[1].Value.Equal(property.Float(41.5)))
	assert.Equal(t, in.Aliases, out.Aliases)
}

func TestNotificationRoundTrip(t *testing.T) {
	notif := &Notification{
		SubscriptionID: 5,
		Changes: map[string]property.Value{
			"/mboards/0/sensors/temp":       property.Float(42),
			"/mboards/0/sensors/ref_locked": property.Bool(true),
		},
	}

	data, err := EncodeNotification(notif)
	require.NoError(t, err)

	isNotif, err := IsNotification(data)
	require.NoError(t, err)
	assert.True(t, isNotif)

	decoded, err := DecodeNotification(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), decoded.SubscriptionID)
	require.Len(t, decoded.Changes, 2)
	assert.True(t, decoded.Changes["/mboards/0/sensors/temp"].Equal(property.Float(42)))
}

func TestResponseIsNotNotification(t *testing.T) {
	resp, err := NewResponse(1, StatusSuccess, nil)
	require.NoError(t, err)
	data, err := EncodeResponse(resp)
	require.NoError(t, err)

	isNotif, err := IsNotification(data)
	require.NoError(t, err)
	assert.False(t, isNotif)

	_, err = DecodeNotification(data)
	assert.Error(t, err)
}

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"reserved message id", Request{MessageID: 0, Operation: OpGet, Path: "/x"}},
		{"unknown operation", Request{MessageID: 1, Operation: 99, Path: "/x"}},
		{"zero operation", Request{MessageID: 1, Operation: 0, Path: "/x"}},
		{"missing path", Request{MessageID: 1, Operation: OpSet}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.req.Validate())
			_, err := EncodeRequest(&tt.req)
			assert.Error(t, err)
		})
	}

	ok := Request{MessageID: 1, Operation: OpComponents}
	assert.NoError(t, ok.Validate())
}

func TestDecodeInvalidRequestKeepsMessageID(t *testing.T) {
	data, err := Marshal(Request{MessageID: 77, Operation: 42, Path: "/x"})
	require.NoError(t, err)

	req, err := DecodeRequest(data)
	assert.Error(t, err)
	require.NotNil(t, req)
	assert.Equal(t, uint32(77), req.MessageID)
}

func TestUnknownFieldsIgnored(t *testing.T) {
	data, err := Marshal(map[int]any{
		1:  uint32(8),
		2:  uint8(OpGet),
		3:  "/mboards/0/name",
		99: "from a newer client",
	})
	require.NoError(t, err)

	req, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, "/mboards/0/name", req.Path)
}

func TestOperationAndStatusNames(t *testing.T) {
	assert.Equal(t, "Snapshot", OpSnapshot.String())
	assert.Equal(t, "Unknown", Operation(0).String())
	assert.False(t, OpComponents.NeedsPath())
	assert.True(t, OpRemove.NeedsPath())

	assert.Equal(t, "STALE_REFERENCE", StatusStaleReference.String())
	assert.True(t, StatusInternal.IsError())
	assert.Equal(t, "UNKNOWN", Status(200).String())
}
