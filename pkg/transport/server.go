package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/radiotree/radiotree-go/pkg/log"
)

// DefaultPort is the default control protocol port.
const DefaultPort = 49200

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address to listen on (e.g., ":49200" or "127.0.0.1:0").
	Address string

	// MaxMessageSize is the maximum message size (default: 1 MB).
	MaxMessageSize uint32

	// Logger receives operational logs. Defaults to slog.Default().
	Logger *slog.Logger

	// EventLogger records frames and connection lifecycle (optional).
	EventLogger log.Logger

	// OnConnect is called when a new connection is established.
	OnConnect func(conn *ServerConn)

	// OnDisconnect is called when a connection is closed.
	OnDisconnect func(conn *ServerConn)

	// OnMessage is called for every received frame, on the connection's
	// read goroutine.
	OnMessage func(conn *ServerConn, msg []byte)

	// OnError is called when an error occurs. conn is nil for listener errors.
	OnError func(conn *ServerConn, err error)
}

// Server accepts control connections over TCP.
type Server struct {
	config   ServerConfig
	logger   *slog.Logger
	listener net.Listener

	conns   map[*ServerConn]struct{}
	connsMu sync.RWMutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a server. It does not listen until Start.
func NewServer(config ServerConfig) *Server {
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config: config,
		logger: logger,
		conns:  make(map[*ServerConn]struct{}),
	}
}

// Start listens and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return errors.New("server already running")
	}
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.listener = listener
	s.running.Store(true)

	s.logger.Info("control server listening", slog.String("addr", listener.Addr().String()))

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and every connection, then waits for the
// connection goroutines to finish.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	s.cancel()
	err := s.listener.Close()

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return err
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// Broadcast sends msg to every connection. Failed sends are reported
// through OnError and do not stop the broadcast.
func (s *Server) Broadcast(msg []byte) {
	s.connsMu.RLock()
	conns := make([]*ServerConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.RUnlock()

	for _, c := range conns {
		if err := c.Send(msg); err != nil {
			s.reportError(c, err)
		}
	}
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			s.reportError(nil, fmt.Errorf("accept error: %w", err))
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	connID := uuid.NewString()
	framer := NewFramerWithMaxSize(conn, s.config.MaxMessageSize)
	if s.config.EventLogger != nil {
		framer.SetLogger(s.config.EventLogger, connID)
	}
	sconn := &ServerConn{
		conn:       conn,
		framer:     framer,
		server:     s,
		closeCh:    make(chan struct{}),
		remoteAddr: conn.RemoteAddr(),
		connID:     connID,
	}

	s.connsMu.Lock()
	if !s.running.Load() {
		s.connsMu.Unlock()
		conn.Close()
		return
	}
	s.conns[sconn] = struct{}{}
	s.connsMu.Unlock()

	s.logger.Debug("client connected", slog.String("conn", connID), slog.String("remote", sconn.remoteAddr.String()))
	s.emitLifecycle(sconn, log.ActionConnected)
	if s.config.OnConnect != nil {
		s.config.OnConnect(sconn)
	}

	sconn.readLoop()
	sconn.Close()

	s.connsMu.Lock()
	delete(s.conns, sconn)
	s.connsMu.Unlock()

	s.logger.Debug("client disconnected", slog.String("conn", connID))
	s.emitLifecycle(sconn, log.ActionDisconnected)
	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(sconn)
	}
}

func (s *Server) emitLifecycle(c *ServerConn, action log.LifecycleAction) {
	if s.config.EventLogger == nil {
		return
	}
	s.config.EventLogger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  c.connID,
		Layer:      log.LayerTransport,
		Category:   log.CategoryLifecycle,
		RemoteAddr: c.remoteAddr.String(),
		Lifecycle:  &log.LifecycleEvent{Action: action},
	})
}

func (s *Server) reportError(c *ServerConn, err error) {
	if s.config.OnError != nil {
		s.config.OnError(c, err)
		return
	}
	attrs := []any{slog.Any("error", err)}
	if c != nil {
		attrs = append(attrs, slog.String("conn", c.connID))
	}
	s.logger.Warn("transport error", attrs...)
}

// ServerConn is one client connection.
type ServerConn struct {
	conn       net.Conn
	framer     *Framer
	server     *Server
	closeCh    chan struct{}
	closeOnce  sync.Once
	remoteAddr net.Addr
	connID     string
}

// RemoteAddr returns the remote address of the client.
func (c *ServerConn) RemoteAddr() net.Addr {
	return c.remoteAddr
}

// ConnID returns the unique connection identifier.
func (c *ServerConn) ConnID() string {
	return c.connID
}

// Send sends a message to the client. Safe for concurrent use.
func (c *ServerConn) Send(data []byte) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	return c.framer.WriteFrame(data)
}

// Done is closed when the connection closes.
func (c *ServerConn) Done() <-chan struct{} {
	return c.closeCh
}

// Close closes the connection.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

func (c *ServerConn) readLoop() {
	for {
		data, err := c.framer.ReadFrame()
		if err != nil {
			select {
			case <-c.closeCh:
			case <-c.server.ctx.Done():
			default:
				if !errors.Is(err, io.EOF) {
					c.server.reportError(c, err)
				}
			}
			return
		}
		if c.server.config.OnMessage != nil {
			c.server.config.OnMessage(c, data)
		}
	}
}
