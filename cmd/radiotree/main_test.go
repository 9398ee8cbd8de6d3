package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiotree/radiotree-go/pkg/component"
	"github.com/radiotree/radiotree-go/pkg/interaction"
	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/transport"
	"github.com/radiotree/radiotree-go/pkg/tree"
	"github.com/radiotree/radiotree-go/pkg/usrp"
)

// startDevice serves a simulated device on a loopback port and points addr
// at it.
func startDevice(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New(tree.DefaultConfig())
	reg := component.NewRegistry(tr, component.Config{})
	_, err := usrp.Build(tr, reg, usrp.DefaultConfig())
	require.NoError(t, err)

	s := interaction.NewServer(tr, reg, interaction.ServerConfig{NotifyInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	ts := transport.NewServer(s.Bind(ctx, transport.ServerConfig{Address: "127.0.0.1:0"}))
	require.NoError(t, ts.Start(ctx))
	go s.Run(ctx)

	oldAddr, oldTimeout := addr, timeout
	addr, timeout = ts.Addr().String(), 2*time.Second
	t.Cleanup(func() {
		cancel()
		ts.Stop()
		addr, timeout = oldAddr, oldTimeout
	})
	return tr
}

func connect(t *testing.T) *interaction.Client {
	t.Helper()
	c, err := dial(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetAndSet(t *testing.T) {
	startDevice(t)
	c := connect(t)
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, runSet(ctx, c, &buf, usrp.TickRatePath, "100e6"))
	assert.Equal(t, "/mboards/0/tick_rate = 1e+08\n", buf.String())

	buf.Reset()
	require.NoError(t, runGet(ctx, c, &buf, usrp.TickRatePath))
	assert.Equal(t, "1e+08\n", buf.String())
}

func TestSetRejectsBadText(t *testing.T) {
	startDevice(t)
	c := connect(t)

	var buf bytes.Buffer
	assert.Error(t, runSet(context.Background(), c, &buf, usrp.TickRatePath, "fast"))
}

func TestGetPattern(t *testing.T) {
	startDevice(t)
	c := connect(t)

	var buf bytes.Buffer
	require.NoError(t, runGet(context.Background(), c, &buf, "/mboards/0/rx_dsps/*/rate/value"))
	out := buf.String()
	assert.Contains(t, out, "0/rate/value")
	assert.Contains(t, out, "1/rate/value")
	assert.NotContains(t, out, "freq")
}

func TestGetJSON(t *testing.T) {
	startDevice(t)
	c := connect(t)
	jsonOut = true
	defer func() { jsonOut = false }()

	var buf bytes.Buffer
	require.NoError(t, runGet(context.Background(), c, &buf, "/mboards/0/name"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "radiotree-sim", got["value"])
}

func TestList(t *testing.T) {
	startDevice(t)
	c := connect(t)

	var buf bytes.Buffer
	require.NoError(t, runList(context.Background(), c, &buf, usrp.MboardRoot, false))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Contains(t, lines, "tick_rate")
	assert.Contains(t, lines, "eeprom")

	buf.Reset()
	require.NoError(t, runList(context.Background(), c, &buf, usrp.CHDRRoot, true))
	assert.Contains(t, buf.String(), "mtu: 8000 B (int, read-write)")
	assert.Contains(t, buf.String(), "(int, read-only)")
}

func TestTree(t *testing.T) {
	startDevice(t)
	c := connect(t)

	var buf bytes.Buffer
	require.NoError(t, runTree(context.Background(), c, &buf, usrp.CHDRRoot))
	assert.Contains(t, buf.String(), "mtu")
	assert.Contains(t, buf.String(), "2 nodes")
}

func TestCreateWithRange(t *testing.T) {
	tr := startDevice(t)
	c := connect(t)
	ctx := context.Background()

	opts := createOptions{Kind: "float", Access: "rw", Min: 0, Max: 30, HasMin: true, HasMax: true, Clip: true}
	p, err := opts.payload("10")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, runCreate(ctx, c, &buf, "/user/gain", p))
	assert.Equal(t, "created /user/gain = 10\n", buf.String())

	_, err = c.Set(ctx, "/user/gain", property.Float(50))
	require.NoError(t, err)
	v, err := tr.Get("/user/gain")
	require.NoError(t, err)
	assert.True(t, v.Equal(property.Float(30)), "got %s", v)
}

func TestCreatePayloadValidation(t *testing.T) {
	_, err := createOptions{Kind: "complex"}.payload("1")
	assert.Error(t, err)

	_, err = createOptions{Access: "sometimes"}.payload("1")
	assert.Error(t, err)

	_, err = createOptions{Min: 5, Max: 1, HasMin: true, HasMax: true}.payload("3")
	assert.Error(t, err)

	p, err := createOptions{Choices: []string{"auto", "manual"}}.payload("auto")
	require.NoError(t, err)
	assert.Equal(t, property.KindString, p.Value.Kind())
	require.Len(t, p.Choices, 2)
	assert.True(t, p.Choices[1].Equal(property.String("manual")))
}

func TestComponents(t *testing.T) {
	startDevice(t)
	c := connect(t)

	infos, err := c.Components(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printComponents(&buf, infos))
	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "rx_dsp0")
	assert.Contains(t, out, usrp.CHDRRoot)
}

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchPrintsChanges(t *testing.T) {
	tr := startDevice(t)
	out := &syncBuffer{}
	w := newWatcher(usrp.CHDRRoot, out, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.run(ctx, true) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "/mboards/0/chdr/mtu = 8000")
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, tr.Set(usrp.CHDRRoot+"/mtu", property.Int(1504)))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "/mboards/0/chdr/mtu = 1504")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchWithoutReconnectStopsOnLoss(t *testing.T) {
	startDevice(t)
	out := &syncBuffer{}
	w := newWatcher(usrp.CHDRRoot, out, nil)

	done := make(chan error, 1)
	go func() { done <- w.run(context.Background(), false) }()

	var c *interaction.Client
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		c = w.client
		return c != nil
	}, 2*time.Second, 10*time.Millisecond)
	c.Close()

	select {
	case err := <-done:
		assert.Error(t, err)
		assert.Contains(t, out.String(), "connection lost")
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestFormatChanges(t *testing.T) {
	got := formatChanges("12:00:00.000", map[string]property.Value{
		"/b": property.Int(2),
		"/a": property.String("x"),
	})
	assert.Equal(t, "12:00:00.000 /a = \"x\"\n12:00:00.000 /b = 2\n", got)
}
