package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radiotree/radiotree-go/pkg/log"
)

// Connection errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
)

// ClientConfig configures Dial.
type ClientConfig struct {
	// MaxMessageSize is the maximum message size (default: 1 MB).
	MaxMessageSize uint32

	// ConnectTimeout applies when ctx has no deadline (default: 10s).
	ConnectTimeout time.Duration

	// KeepAlive is the TCP keep-alive period (default: 30s; negative disables).
	KeepAlive time.Duration

	// EventLogger records frames (optional).
	EventLogger log.Logger
}

// Dial connects to a device's control port.
func Dial(ctx context.Context, address string, config ClientConfig) (*ClientConn, error) {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if config.KeepAlive == 0 {
		config.KeepAlive = 30 * time.Second
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{KeepAlive: config.KeepAlive}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	connID := uuid.NewString()
	framer := NewFramerWithMaxSize(conn, config.MaxMessageSize)
	if config.EventLogger != nil {
		framer.SetLogger(config.EventLogger, connID)
	}
	return &ClientConn{
		conn:    conn,
		framer:  framer,
		connID:  connID,
		closeCh: make(chan struct{}),
	}, nil
}

// ClientConn is a connection from a client to a device.
type ClientConn struct {
	conn    net.Conn
	framer  *Framer
	connID  string
	closeCh chan struct{}

	closeOnce sync.Once
	readMu    sync.Mutex
}

// ConnID returns the unique connection identifier.
func (c *ClientConn) ConnID() string { return c.connID }

// LocalAddr returns the local network address.
func (c *ClientConn) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// RemoteAddr returns the remote network address.
func (c *ClientConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Send sends a message to the device. Safe for concurrent use.
func (c *ClientConn) Send(data []byte) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	return c.framer.WriteFrame(data)
}

// Receive reads the next message. A zero timeout waits indefinitely.
func (c *ClientConn) Receive(timeout time.Duration) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	select {
	case <-c.closeCh:
		return nil, ErrConnectionClosed
	default:
	}

	if timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
		defer c.conn.SetReadDeadline(time.Time{})
	}
	data, err := c.framer.ReadFrame()
	if err != nil {
		select {
		case <-c.closeCh:
			return nil, ErrConnectionClosed
		default:
		}
	}
	return data, err
}

// Close closes the connection.
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}
