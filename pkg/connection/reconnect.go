package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Connection errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrAlreadyConnected = errors.New("already connected")
	ErrGaveUp           = errors.New("reconnection gave up")
)

// State represents the connection state.
type State uint8

const (
	// StateDisconnected indicates no active connection.
	StateDisconnected State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected

	// StateReconnecting indicates automatic reconnection is in progress.
	StateReconnecting

	// StateClosed indicates the manager has been closed.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ConnectFunc establishes the connection. It returns nil on success.
type ConnectFunc func(ctx context.Context) error

// Config configures a Manager.
type Config struct {
	Backoff BackoffConfig

	// AttemptTimeout bounds each connect call (default: 30s).
	AttemptTimeout time.Duration

	// Logger receives operational logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() Config {
	return Config{
		Backoff:        DefaultBackoffConfig(),
		AttemptTimeout: 30 * time.Second,
	}
}

// Manager tracks connection state and reconnects after a loss.
type Manager struct {
	mu sync.RWMutex

	state         State
	autoReconnect bool
	attempts      int

	backoff   *backoff.ExponentialBackOff
	connectFn ConnectFunc
	timeout   time.Duration
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	reconnectCh chan struct{}

	onStateChange  func(oldState, newState State)
	onConnected    func()
	onDisconnected func()
	onReconnecting func(attempt int, delay time.Duration)
}

// NewManager creates a manager with the default configuration.
func NewManager(connectFn ConnectFunc) *Manager {
	return NewManagerWithConfig(connectFn, DefaultConfig())
}

// NewManagerWithConfig creates a manager.
func NewManagerWithConfig(connectFn ConnectFunc, config Config) *Manager {
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		state:         StateDisconnected,
		autoReconnect: true,
		backoff:       config.Backoff.NewBackOff(),
		connectFn:     connectFn,
		timeout:       config.AttemptTimeout,
		logger:        config.Logger,
		ctx:           ctx,
		cancel:        cancel,
		reconnectCh:   make(chan struct{}, 1),
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected returns true if currently connected.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// SetAutoReconnect enables or disables automatic reconnection.
func (m *Manager) SetAutoReconnect(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoReconnect = enabled
}

// Attempts returns the number of reconnection attempts since the last
// successful connection.
func (m *Manager) Attempts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attempts
}

// Connect makes one connection attempt.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateConnected:
		m.mu.Unlock()
		return ErrAlreadyConnected
	case StateClosed:
		m.mu.Unlock()
		return ErrConnectionClosed
	}
	old := m.state
	m.state = StateConnecting
	m.mu.Unlock()
	m.changed(old, StateConnecting)

	if err := m.connectFn(ctx); err != nil {
		m.setState(StateDisconnected)
		return err
	}
	m.connected()
	return nil
}

// Disconnect reports a deliberate disconnect. With auto-reconnect enabled
// the manager starts reconnecting.
func (m *Manager) Disconnect() {
	m.lost()
}

// NotifyConnectionLost reports that the connection dropped.
func (m *Manager) NotifyConnectionLost() {
	m.lost()
}

func (m *Manager) lost() {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	next := StateDisconnected
	if m.autoReconnect {
		next = StateReconnecting
	}
	m.state = next
	onDisconnected := m.onDisconnected
	m.mu.Unlock()

	m.changed(StateConnected, next)
	if onDisconnected != nil {
		onDisconnected()
	}
	if next == StateReconnecting {
		m.triggerReconnect()
	}
}

// StartReconnectLoop starts the background reconnection loop. Call it once.
func (m *Manager) StartReconnectLoop() {
	m.wg.Add(1)
	go m.reconnectLoop()
}

// Close stops reconnection and waits for the loop to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	old := m.state
	m.state = StateClosed
	m.mu.Unlock()

	m.changed(old, StateClosed)
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) triggerReconnect() {
	select {
	case m.reconnectCh <- struct{}{}:
	default:
	}
}

func (m *Manager) reconnectLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.reconnectCh:
			if err := m.attemptReconnect(); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Warn("reconnection stopped", slog.Any("error", err))
			}
		}
	}
}

func (m *Manager) attemptReconnect() error {
	for {
		m.mu.Lock()
		if m.state != StateReconnecting {
			m.mu.Unlock()
			return nil
		}
		delay := m.backoff.NextBackOff()
		if delay == backoff.Stop {
			m.state = StateDisconnected
			m.mu.Unlock()
			m.changed(StateReconnecting, StateDisconnected)
			return ErrGaveUp
		}
		m.attempts++
		attempt := m.attempts
		onReconnecting := m.onReconnecting
		m.mu.Unlock()

		if onReconnecting != nil {
			onReconnecting(attempt, delay)
		}
		m.logger.Debug("reconnecting", slog.Int("attempt", attempt), slog.Duration("delay", delay))

		select {
		case <-m.ctx.Done():
			return m.ctx.Err()
		case <-time.After(delay):
		}

		if m.State() != StateReconnecting {
			return nil
		}
		ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
		err := m.connectFn(ctx)
		cancel()
		if err == nil {
			m.connected()
			return nil
		}
		m.logger.Debug("reconnect attempt failed", slog.Int("attempt", attempt), slog.Any("error", err))
	}
}

func (m *Manager) connected() {
	m.mu.Lock()
	old := m.state
	if old == StateClosed {
		m.mu.Unlock()
		return
	}
	m.state = StateConnected
	m.attempts = 0
	m.backoff.Reset()
	onConnected := m.onConnected
	m.mu.Unlock()

	m.changed(old, StateConnected)
	if onConnected != nil {
		onConnected()
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	old := m.state
	m.state = s
	m.mu.Unlock()
	m.changed(old, s)
}

func (m *Manager) changed(old, next State) {
	m.mu.RLock()
	fn := m.onStateChange
	m.mu.RUnlock()
	if fn != nil && old != next {
		fn(old, next)
	}
}

// OnStateChange sets a callback for state changes.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnConnected sets a callback for successful connection.
func (m *Manager) OnConnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnected = fn
}

// OnDisconnected sets a callback for disconnection.
func (m *Manager) OnDisconnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnected = fn
}

// OnReconnecting sets a callback invoked before each reconnection attempt.
func (m *Manager) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnecting = fn
}
