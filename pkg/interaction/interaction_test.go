package interaction

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiotree/radiotree-go/pkg/component"
	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/subscription"
	"github.com/radiotree/radiotree-go/pkg/transport"
	"github.com/radiotree/radiotree-go/pkg/tree"
	"github.com/radiotree/radiotree-go/pkg/wire"
)

const (
	dspRoot  = "/mboards/0/rx_dsps/0"
	freqPath = dspRoot + "/freq/value"
	ratePath = dspRoot + "/rate/value"
)

func newDevice(t *testing.T) (*tree.Tree, *component.Registry) {
	t.Helper()
	tr := tree.New(tree.DefaultConfig())
	reg := component.NewRegistry(tr, component.Config{})
	_, err := reg.RegisterWith("rx_dsp0", dspRoot, []tree.NodeSpec{
		{Path: "freq/value", Initial: property.Float(0), Coercer: property.Clip(-1e6, 1e6),
			Metadata: &property.Metadata{Unit: "Hz"}},
		{Path: "rate/value", Initial: property.Float(1), Coercer: property.Range(1, 10)},
	}, component.WithKind(component.KindDSP))
	require.NoError(t, err)
	require.NoError(t, tr.Alias("/rx_dsp0", dspRoot))
	return tr, reg
}

func request(t *testing.T, id uint32, op wire.Operation, path string, payload any) *wire.Request {
	t.Helper()
	req, err := wire.NewRequest(id, op, path, payload)
	require.NoError(t, err)
	return req
}

func TestStatusFromError(t *testing.T) {
	overflow := &tree.PropagationError{
		Path: freqPath,
		Err:  fmt.Errorf("%w: limit 32", tree.ErrPropagationOverflow),
	}
	nested := &tree.PropagationError{
		Path: freqPath,
		Err:  property.Invalid(property.Float(1), "bad"),
	}

	tests := []struct {
		err  error
		want wire.Status
	}{
		{nil, wire.StatusSuccess},
		{fmt.Errorf("x: %w", tree.ErrNotFound), wire.StatusNotFound},
		{tree.ErrDuplicatePath, wire.StatusDuplicatePath},
		{property.Invalid(property.Int(3), "too big"), wire.StatusValidation},
		{nested, wire.StatusValidation},
		{overflow, wire.StatusPropagationOverflow},
		{tree.ErrStaleReference, wire.StatusStaleReference},
		{component.ErrDuplicateComponent, wire.StatusDuplicateComponent},
		{component.ErrUnknownComponent, wire.StatusUnknownComponent},
		{tree.ErrInvalidPath, wire.StatusInvalidRequest},
		{subscription.ErrSubscriptionNotFound, wire.StatusNotFound},
		{errors.New("disk on fire"), wire.StatusInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFromError(tt.err), "%v", tt.err)
	}
}

func TestErrorFromStatus(t *testing.T) {
	assert.NoError(t, ErrorFromStatus(wire.StatusSuccess, ""))

	err := ErrorFromStatus(wire.StatusNotFound, "no node at /x")
	assert.ErrorIs(t, err, tree.ErrNotFound)
	assert.Contains(t, err.Error(), "no node at /x")

	assert.ErrorIs(t, ErrorFromStatus(wire.StatusValidation, ""), property.ErrValidation)
	assert.ErrorIs(t, ErrorFromStatus(wire.StatusUnknownComponent, ""), component.ErrUnknownComponent)
	assert.ErrorIs(t, ErrorFromStatus(wire.StatusInternal, ""), ErrInternal)

	var se *StatusError
	require.ErrorAs(t, ErrorFromStatus(wire.StatusStaleReference, ""), &se)
	assert.Equal(t, wire.StatusStaleReference, se.Status)
}

func TestHandleGetAndSet(t *testing.T) {
	tr, reg := newDevice(t)
	s := NewServer(tr, reg, ServerConfig{})
	ctx := context.Background()

	resp := s.HandleRequest(ctx, "c1", request(t, 1, wire.OpSet, "/rx_dsp0/freq/value",
		&wire.SetPayload{Value: property.Float(5e6)}))
	require.Equal(t, wire.StatusSuccess, resp.Status)

	var vp wire.ValuePayload
	require.NoError(t, resp.DecodePayload(&vp))
	assert.True(t, vp.Value.Equal(property.Float(1e6)), "clipped")
	assert.True(t, vp.Desired.Equal(property.Float(5e6)))

	resp = s.HandleRequest(ctx, "c1", request(t, 2, wire.OpGet, freqPath, nil))
	require.Equal(t, wire.StatusSuccess, resp.Status)
	require.NoError(t, resp.DecodePayload(&vp))
	assert.True(t, vp.Value.Equal(property.Float(1e6)))

	resp = s.HandleRequest(ctx, "c1", request(t, 3, wire.OpSet, ratePath,
		&wire.SetPayload{Value: property.Float(100)}))
	assert.Equal(t, wire.StatusValidation, resp.Status)
	assert.NotEmpty(t, resp.ErrorMessage())

	resp = s.HandleRequest(ctx, "c1", request(t, 4, wire.OpGet, "/nope", nil))
	assert.Equal(t, wire.StatusNotFound, resp.Status)

	resp = s.HandleRequest(ctx, "c1", &wire.Request{MessageID: 5, Operation: wire.OpGet})
	assert.Equal(t, wire.StatusInvalidRequest, resp.Status)

	resp = s.HandleRequest(ctx, "c1", request(t, 6, wire.OpSet, freqPath, nil))
	assert.Equal(t, wire.StatusInvalidRequest, resp.Status, "missing value")
}

func TestHandleCreateListRemove(t *testing.T) {
	tr, reg := newDevice(t)
	s := NewServer(tr, reg, ServerConfig{})
	ctx := context.Background()

	lo, hi := 0.0, 76.0
	resp := s.HandleRequest(ctx, "c1", request(t, 1, wire.OpCreate, "/blocks/0/Radio#0/gain/value",
		&wire.CreatePayload{Value: property.Float(10), Min: &lo, Max: &hi, Clip: true, Unit: "dB"}))
	require.Equal(t, wire.StatusSuccess, resp.Status)

	require.NoError(t, tr.Set("/blocks/0/Radio#0/gain/value", property.Float(90)))
	v, err := tr.Get("/blocks/0/Radio#0/gain/value")
	require.NoError(t, err)
	assert.True(t, v.Equal(property.Float(76)))

	resp = s.HandleRequest(ctx, "c1", request(t, 2, wire.OpCreate, "/blocks/0/Radio#0/gain/value",
		&wire.CreatePayload{Value: property.Float(1)}))
	assert.Equal(t, wire.StatusDuplicatePath, resp.Status)

	resp = s.HandleRequest(ctx, "c1", request(t, 3, wire.OpCreate, "/blocks/0/Radio#0/antenna",
		&wire.CreatePayload{Value: property.String("RX2"),
			Choices: []property.Value{property.String("RX2"), property.String("TX/RX")}}))
	require.Equal(t, wire.StatusSuccess, resp.Status)
	assert.ErrorIs(t, tr.Set("/blocks/0/Radio#0/antenna", property.String("CAL")), property.ErrValidation)

	resp = s.HandleRequest(ctx, "c1", request(t, 4, wire.OpList, "/", nil))
	require.Equal(t, wire.StatusSuccess, resp.Status)
	var lp wire.ListPayload
	require.NoError(t, resp.DecodePayload(&lp))
	assert.Equal(t, []string{"blocks", "mboards", "rx_dsp0"}, lp.Children)

	resp = s.HandleRequest(ctx, "c1", request(t, 5, wire.OpRemove, "/blocks", nil))
	require.Equal(t, wire.StatusSuccess, resp.Status)
	assert.False(t, tr.Exists("/blocks"))
}

func TestHandleComponents(t *testing.T) {
	tr, reg := newDevice(t)
	s := NewServer(tr, reg, ServerConfig{})
	ctx := context.Background()

	resp := s.HandleRequest(ctx, "c1", request(t, 1, wire.OpComponents, "", nil))
	require.Equal(t, wire.StatusSuccess, resp.Status)
	var cp wire.ComponentsPayload
	require.NoError(t, resp.DecodePayload(&cp))
	require.Len(t, cp.Components, 1)
	assert.Equal(t, "rx_dsp0", cp.Components[0].ID)
	assert.Equal(t, dspRoot, cp.Components[0].Root)
	assert.Equal(t, component.KindDSP, cp.Components[0].Kind)

	resp = s.HandleRequest(ctx, "c1", request(t, 2, wire.OpLookup, "", &wire.ComponentPayload{ID: "rx_dsp0"}))
	require.Equal(t, wire.StatusSuccess, resp.Status)

	resp = s.HandleRequest(ctx, "c1", request(t, 3, wire.OpLookup, "", &wire.ComponentPayload{ID: "radio9"}))
	assert.Equal(t, wire.StatusUnknownComponent, resp.Status)

	resp = s.HandleRequest(ctx, "c1", request(t, 4, wire.OpLookup, "", nil))
	assert.Equal(t, wire.StatusInvalidRequest, resp.Status)

	resp = s.HandleRequest(ctx, "c1", request(t, 5, wire.OpUnregister, "", &wire.ComponentPayload{ID: "rx_dsp0"}))
	require.Equal(t, wire.StatusSuccess, resp.Status)
	assert.Zero(t, reg.Len())

	resp = s.HandleRequest(ctx, "c1", request(t, 6, wire.OpGet, "/rx_dsp0/freq/value", nil))
	assert.Equal(t, wire.StatusStaleReference, resp.Status)

	bare := NewServer(tr, nil, ServerConfig{})
	resp = bare.HandleRequest(ctx, "c1", request(t, 7, wire.OpComponents, "", nil))
	assert.Equal(t, wire.StatusInternal, resp.Status)
}

func TestHandleSnapshot(t *testing.T) {
	tr, reg := newDevice(t)
	s := NewServer(tr, reg, ServerConfig{})

	resp := s.HandleRequest(context.Background(), "c1", request(t, 1, wire.OpSnapshot, "/rx_dsp0", nil))
	require.Equal(t, wire.StatusSuccess, resp.Status)

	var sp wire.SnapshotPayload
	require.NoError(t, resp.DecodePayload(&sp))
	require.Len(t, sp.Nodes, 2)
	assert.Equal(t, freqPath, sp.Nodes[0].Path)
	assert.Equal(t, "Hz", sp.Nodes[0].Unit)
	assert.Equal(t, map[string]string{"/rx_dsp0": dspRoot}, sp.Aliases)
}

func TestSubscriptionLifecycle(t *testing.T) {
	tr, reg := newDevice(t)
	s := NewServer(tr, reg, ServerConfig{})
	ctx := context.Background()

	var got []*wire.Notification
	var owners []string
	s.SetNotificationHandler(func(owner string, n *wire.Notification) {
		owners = append(owners, owner)
		got = append(got, n)
	})

	resp := s.HandleRequest(ctx, "c1", request(t, 1, wire.OpSubscribe, "/rx_dsp0",
		&wire.SubscribePayload{MaxInterval: 60000}))
	require.Equal(t, wire.StatusSuccess, resp.Status)
	var sr wire.SubscribeResponsePayload
	require.NoError(t, resp.DecodePayload(&sr))
	assert.Len(t, sr.CurrentValues, 2)
	assert.Contains(t, sr.CurrentValues, freqPath, "priming uses canonical paths")
	assert.Equal(t, 1, s.SubscriptionCount())

	require.NoError(t, tr.Set(freqPath, property.Float(1000)))
	require.NoError(t, tr.Set(freqPath, property.Float(2000)))
	s.Flush()

	require.Len(t, got, 1)
	assert.Equal(t, []string{"c1"}, owners)
	assert.Equal(t, sr.SubscriptionID, got[0].SubscriptionID)
	assert.True(t, got[0].Changes[freqPath].Equal(property.Float(2000)), "coalesced to the last value")

	resp = s.HandleRequest(ctx, "c2", request(t, 2, wire.OpUnsubscribe, "",
		&wire.UnsubscribePayload{SubscriptionID: sr.SubscriptionID}))
	assert.Equal(t, wire.StatusNotFound, resp.Status, "other connections cannot cancel it")

	resp = s.HandleRequest(ctx, "c1", request(t, 3, wire.OpUnsubscribe, "",
		&wire.UnsubscribePayload{SubscriptionID: sr.SubscriptionID}))
	require.Equal(t, wire.StatusSuccess, resp.Status)
	assert.Zero(t, s.SubscriptionCount())
	assert.Zero(t, s.watches.len())

	require.NoError(t, tr.Set(freqPath, property.Float(3000)))
	s.Flush()
	assert.Len(t, got, 1)
}

func TestOverlappingSubscriptionsShareWatches(t *testing.T) {
	tr, reg := newDevice(t)
	s := NewServer(tr, reg, ServerConfig{})
	ctx := context.Background()

	for i, path := range []string{"/", dspRoot, freqPath} {
		resp := s.HandleRequest(ctx, "c1", request(t, uint32(i+1), wire.OpSubscribe, path, nil))
		require.Equal(t, wire.StatusSuccess, resp.Status)
	}
	assert.Equal(t, 3, s.SubscriptionCount())
	assert.Equal(t, 2, s.watches.len())

	s.Disconnect("c1")
	assert.Zero(t, s.SubscriptionCount())
	assert.Zero(t, s.watches.len())
}

func startServer(t *testing.T) (*tree.Tree, *Server, *transport.Server) {
	t.Helper()
	tr, reg := newDevice(t)
	s := NewServer(tr, reg, ServerConfig{NotifyInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	ts := transport.NewServer(s.Bind(ctx, transport.ServerConfig{Address: "127.0.0.1:0"}))
	require.NoError(t, ts.Start(ctx))
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		ts.Stop()
	})
	return tr, s, ts
}

func TestClientEndToEnd(t *testing.T) {
	tr, s, ts := startServer(t)
	ctx := context.Background()

	c, err := Dial(ctx, ts.Addr().String(), ClientConfig{Timeout: 2 * time.Second})
	require.NoError(t, err)
	defer c.Close()

	notifs := make(chan *wire.Notification, 8)
	c.SetNotificationHandler(func(n *wire.Notification) { notifs <- n })

	vp, err := c.Set(ctx, "/rx_dsp0/freq/value", property.Float(2e6))
	require.NoError(t, err)
	assert.True(t, vp.Value.Equal(property.Float(1e6)))

	_, err = c.Set(ctx, ratePath, property.Float(0))
	assert.ErrorIs(t, err, property.ErrValidation)

	_, err = c.Get(ctx, "/missing")
	assert.ErrorIs(t, err, tree.ErrNotFound)

	children, err := c.List(ctx, dspRoot)
	require.NoError(t, err)
	assert.Equal(t, []string{"freq", "rate"}, children)

	comps, err := c.Components(ctx)
	require.NoError(t, err)
	require.Len(t, comps, 1)

	id, current, err := c.Subscribe(ctx, "/rx_dsp0", &SubscribeOptions{MaxInterval: time.Minute})
	require.NoError(t, err)
	assert.Len(t, current, 2)

	require.NoError(t, tr.SetInternal(ratePath, property.Float(5)))

	select {
	case n := <-notifs:
		assert.Equal(t, id, n.SubscriptionID)
		assert.True(t, n.Changes[ratePath].Equal(property.Float(5)))
	case <-time.After(2 * time.Second):
		t.Fatal("no notification received")
	}

	snap, err := c.Snapshot(ctx, "/")
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, 2)

	require.NoError(t, c.Close())
	_, err = c.Get(ctx, freqPath)
	assert.ErrorIs(t, err, ErrClientClosed)

	assert.Eventually(t, func() bool { return s.SubscriptionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestClientRequestTimeout(t *testing.T) {
	c := NewClient(senderFunc(func([]byte) error { return nil }))
	c.SetTimeout(20 * time.Millisecond)

	_, err := c.Get(context.Background(), freqPath)
	assert.ErrorIs(t, err, ErrRequestTimeout)
	assert.ErrorIs(t, c.HandleResponse(&wire.Response{MessageID: 99}), ErrUnexpectedReply)
}

func TestDialRefused(t *testing.T) {
	_, err := Dial(context.Background(), "127.0.0.1:1", ClientConfig{DialRetry: -1})
	assert.Error(t, err)
}

type senderFunc func([]byte) error

func (f senderFunc) Send(data []byte) error { return f(data) }
