package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/transport"
	"github.com/radiotree/radiotree-go/pkg/wire"
)

// Client errors.
var (
	ErrRequestTimeout  = errors.New("request timed out")
	ErrClientClosed    = errors.New("client is closed")
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// DefaultRequestTimeout bounds a request when ctx has no deadline.
const DefaultRequestTimeout = 10 * time.Second

// ClientConfig configures Dial.
type ClientConfig struct {
	Transport transport.ClientConfig

	// DialRetry bounds how long Dial keeps retrying (default: 5s; negative
	// dials once).
	DialRetry time.Duration

	// Timeout is the per-request timeout (default: 10s).
	Timeout time.Duration

	// Logger receives operational logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// RequestSender sends encoded requests. transport.ClientConn implements it.
type RequestSender interface {
	Send(data []byte) error
}

// Client issues typed requests to a device and routes responses and
// notifications.
type Client struct {
	mu sync.RWMutex

	sender  RequestSender
	timeout time.Duration
	logger  *slog.Logger

	nextMsgID atomic.Uint32

	pendingMu sync.Mutex
	pending   map[uint32]chan *wire.Response

	notifyHandler func(*wire.Notification)

	conn   *transport.ClientConn
	done   chan struct{}
	closed bool
}

// Dial connects to address, retrying with exponential backoff, and starts
// the receive loop.
func Dial(ctx context.Context, address string, config ClientConfig) (*Client, error) {
	if config.DialRetry == 0 {
		config.DialRetry = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	var conn *transport.ClientConn
	connect := func() error {
		c, err := transport.Dial(ctx, address, config.Transport)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if config.DialRetry > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = 100 * time.Millisecond
		eb.MaxElapsedTime = config.DialRetry
		b = eb
	}
	err := backoff.RetryNotify(connect, backoff.WithContext(b, ctx), func(err error, d time.Duration) {
		config.Logger.Debug("dial failed, retrying",
			slog.String("address", address),
			slog.Duration("delay", d),
			slog.Any("error", err))
	})
	if err != nil {
		return nil, err
	}

	c := NewClient(conn)
	c.logger = config.Logger
	if config.Timeout > 0 {
		c.timeout = config.Timeout
	}
	c.conn = conn
	go c.receiveLoop()
	return c, nil
}

// NewClient creates a client that sends over sender. Responses must be fed
// to HandleResponse and notifications to HandleNotification; Dial does this
// itself.
func NewClient(sender RequestSender) *Client {
	return &Client{
		sender:  sender,
		timeout: DefaultRequestTimeout,
		logger:  slog.Default(),
		pending: make(map[uint32]chan *wire.Response),
		done:    make(chan struct{}),
	}
}

// SetTimeout sets the request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// SetNotificationHandler sets the handler for incoming notifications.
func (c *Client) SetNotificationHandler(handler func(*wire.Notification)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifyHandler = handler
}

// Done is closed when the client is closed or its connection drops.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close closes the client and fails every pending request.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.mu.Unlock()

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) receiveLoop() {
	defer c.Close()
	for {
		data, err := c.conn.Receive(0)
		if err != nil {
			if !errors.Is(err, transport.ErrConnectionClosed) {
				c.logger.Debug("receive loop stopped", slog.Any("error", err))
			}
			return
		}
		if err := c.dispatch(data); err != nil {
			c.logger.Debug("dropping message", slog.Any("error", err))
		}
	}
}

func (c *Client) dispatch(data []byte) error {
	isNotif, err := wire.IsNotification(data)
	if err != nil {
		return err
	}
	if isNotif {
		n, err := wire.DecodeNotification(data)
		if err != nil {
			return err
		}
		c.HandleNotification(n)
		return nil
	}
	resp, err := wire.DecodeResponse(data)
	if err != nil {
		return err
	}
	return c.HandleResponse(resp)
}

// HandleResponse delivers a response to the request waiting for it.
func (c *Client) HandleResponse(resp *wire.Response) error {
	c.pendingMu.Lock()
	ch, exists := c.pending[resp.MessageID]
	if exists {
		delete(c.pending, resp.MessageID)
	}
	c.pendingMu.Unlock()

	if !exists {
		return fmt.Errorf("%w: messageId %d", ErrUnexpectedReply, resp.MessageID)
	}
	ch <- resp
	return nil
}

// HandleNotification delivers a notification to the notification handler.
func (c *Client) HandleNotification(notif *wire.Notification) {
	c.mu.RLock()
	handler := c.notifyHandler
	c.mu.RUnlock()

	if handler != nil {
		handler(notif)
	}
}

func (c *Client) nextMessageID() uint32 {
	for {
		if id := c.nextMsgID.Add(1); id != wire.NotificationMessageID {
			return id
		}
	}
}

// call sends a request and decodes the success payload into out (may be nil).
func (c *Client) call(ctx context.Context, op wire.Operation, path string, payload, out any) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrClientClosed
	}
	timeout := c.timeout
	c.mu.RUnlock()

	req, err := wire.NewRequest(c.nextMessageID(), op, path, payload)
	if err != nil {
		return err
	}
	data, err := wire.EncodeRequest(req)
	if err != nil {
		return err
	}

	respCh := make(chan *wire.Response, 1)
	c.pendingMu.Lock()
	c.pending[req.MessageID] = respCh
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, req.MessageID)
		c.pendingMu.Unlock()
	}()

	if err := c.sender.Send(data); err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var resp *wire.Response
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrRequestTimeout
	case r, ok := <-respCh:
		if !ok {
			return ErrClientClosed
		}
		resp = r
	}

	if !resp.IsSuccess() {
		return ErrorFromStatus(resp.Status, resp.ErrorMessage())
	}
	if out == nil {
		return nil
	}
	if err := resp.DecodePayload(out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedReply, err)
	}
	return nil
}

// Get returns the current and desired value at path.
func (c *Client) Get(ctx context.Context, path string) (wire.ValuePayload, error) {
	var out wire.ValuePayload
	err := c.call(ctx, wire.OpGet, path, nil, &out)
	return out, err
}

// Set writes v at path and returns the stored (coerced) value.
func (c *Client) Set(ctx context.Context, path string, v property.Value) (wire.ValuePayload, error) {
	var out wire.ValuePayload
	err := c.call(ctx, wire.OpSet, path, &wire.SetPayload{Value: v}, &out)
	return out, err
}

// List returns the names of the children of path.
func (c *Client) List(ctx context.Context, path string) ([]string, error) {
	var out wire.ListPayload
	if err := c.call(ctx, wire.OpList, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Children, nil
}

// Create creates a node at path.
func (c *Client) Create(ctx context.Context, path string, p *wire.CreatePayload) (wire.ValuePayload, error) {
	var out wire.ValuePayload
	err := c.call(ctx, wire.OpCreate, path, p, &out)
	return out, err
}

// Remove removes the subtree at path.
func (c *Client) Remove(ctx context.Context, path string) error {
	return c.call(ctx, wire.OpRemove, path, nil, nil)
}

// SubscribeOptions configures a subscription.
type SubscribeOptions struct {
	// MinInterval is the coalescing window.
	MinInterval time.Duration

	// MaxInterval is the heartbeat period. Zero uses the device default.
	MaxInterval time.Duration
}

// Subscribe watches the subtree at path. It returns the subscription ID and
// the current values (priming report).
func (c *Client) Subscribe(ctx context.Context, path string, opts *SubscribeOptions) (uint32, map[string]property.Value, error) {
	payload := &wire.SubscribePayload{}
	if opts != nil {
		payload.MinInterval = uint32(opts.MinInterval.Milliseconds())
		payload.MaxInterval = uint32(opts.MaxInterval.Milliseconds())
	}
	var out wire.SubscribeResponsePayload
	if err := c.call(ctx, wire.OpSubscribe, path, payload, &out); err != nil {
		return 0, nil, err
	}
	return out.SubscriptionID, out.CurrentValues, nil
}

// Unsubscribe cancels a subscription.
func (c *Client) Unsubscribe(ctx context.Context, subscriptionID uint32) error {
	return c.call(ctx, wire.OpUnsubscribe, "", &wire.UnsubscribePayload{SubscriptionID: subscriptionID}, nil)
}

// Components lists the registered components.
func (c *Client) Components(ctx context.Context) ([]wire.ComponentInfo, error) {
	var out wire.ComponentsPayload
	if err := c.call(ctx, wire.OpComponents, "", nil, &out); err != nil {
		return nil, err
	}
	return out.Components, nil
}

// Lookup describes one component.
func (c *Client) Lookup(ctx context.Context, id string) (wire.ComponentInfo, error) {
	var out wire.ComponentInfo
	err := c.call(ctx, wire.OpLookup, "", &wire.ComponentPayload{ID: id}, &out)
	return out, err
}

// Unregister removes a component and its subtree.
func (c *Client) Unregister(ctx context.Context, id string) error {
	return c.call(ctx, wire.OpUnregister, "", &wire.ComponentPayload{ID: id}, nil)
}

// Snapshot describes every node at or below path.
func (c *Client) Snapshot(ctx context.Context, path string) (*wire.SnapshotPayload, error) {
	var out wire.SnapshotPayload
	if err := c.call(ctx, wire.OpSnapshot, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
