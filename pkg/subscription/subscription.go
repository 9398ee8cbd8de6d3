package subscription

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/radiotree/radiotree-go/pkg/property"
)

// Subscription errors.
var (
	ErrInvalidInterval      = errors.New("invalid subscription interval")
	ErrResourceExhausted    = errors.New("maximum subscriptions reached")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidPrefix        = errors.New("invalid subscription prefix")
)

// Default subscription limits.
const (
	DefaultMinInterval      = 1 * time.Second
	DefaultMaxInterval      = 60 * time.Second
	DefaultMaxSubscriptions = 50
)

// HeartbeatMode specifies what content is sent in heartbeat notifications.
type HeartbeatMode uint8

const (
	// HeartbeatEmpty sends only the subscription ID.
	HeartbeatEmpty HeartbeatMode = iota

	// HeartbeatFull sends every value last notified for the subscription.
	HeartbeatFull
)

// String returns a human-readable heartbeat mode name.
func (m HeartbeatMode) String() string {
	switch m {
	case HeartbeatEmpty:
		return "EMPTY"
	case HeartbeatFull:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}

// Config holds subscription manager configuration.
type Config struct {
	// MaxSubscriptions is the maximum number of subscriptions allowed.
	MaxSubscriptions int

	// HeartbeatMode specifies heartbeat content (empty or full).
	HeartbeatMode HeartbeatMode

	// SuppressBounceBack drops changes whose value equals the last
	// notified value.
	SuppressBounceBack bool

	// AutoCorrectIntervals swaps min/max if min > max.
	AutoCorrectIntervals bool

	// NotifyPriming sends the initial values through the notification
	// callback as well as returning them from Subscribe.
	NotifyPriming bool
}

// DefaultConfig returns the default subscription configuration.
func DefaultConfig() Config {
	return Config{
		MaxSubscriptions:   DefaultMaxSubscriptions,
		HeartbeatMode:      HeartbeatFull,
		SuppressBounceBack: true,
	}
}

// Subscription watches every node at or below Prefix.
type Subscription struct {
	mu sync.RWMutex

	// ID is the unique subscription identifier.
	ID uint32

	// Owner identifies the connection that created the subscription.
	Owner string

	// Prefix is the canonical path of the watched subtree.
	Prefix string

	// MinInterval is the coalescing window.
	MinInterval time.Duration

	// MaxInterval is the maximum time without a notification (heartbeat).
	MaxInterval time.Duration

	lastNotified time.Time
	lastValues   map[string]property.Value

	pending     map[string]property.Value
	windowStart time.Time
	hasChanges  bool

	active bool
}

// NewSubscription creates a new subscription.
func NewSubscription(id uint32, owner, prefix string, minInterval, maxInterval time.Duration) *Subscription {
	return &Subscription{
		ID:           id,
		Owner:        owner,
		Prefix:       prefix,
		MinInterval:  minInterval,
		MaxInterval:  maxInterval,
		lastNotified: time.Now(),
		lastValues:   make(map[string]property.Value),
		pending:      make(map[string]property.Value),
		active:       true,
	}
}

// Covers reports whether path lies at or below the subscription prefix.
func (s *Subscription) Covers(path string) bool {
	return covers(s.Prefix, path)
}

func covers(prefix, path string) bool {
	if prefix == "/" {
		return strings.HasPrefix(path, "/")
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// IsActive returns whether the subscription is active.
func (s *Subscription) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Deactivate marks the subscription as inactive.
func (s *Subscription) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// RecordChange records a value change for a path. It returns true if the
// change opened a new coalescing window.
func (s *Subscription) RecordChange(path string, value property.Value) bool {
	if !s.Covers(path) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return false
	}

	isNewWindow := !s.hasChanges
	if isNewWindow {
		s.windowStart = time.Now()
	}
	s.pending[path] = value
	s.hasChanges = true
	return isNewWindow
}

// PendingNotification returns the changes due for notification and clears
// them. It returns nil while the coalescing window is open or when every
// pending change was a bounce-back.
func (s *Subscription) PendingNotification(suppressBounceBack bool) map[string]property.Value {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || !s.hasChanges {
		return nil
	}
	if time.Since(s.windowStart) < s.MinInterval {
		return nil
	}

	changes := make(map[string]property.Value)
	for path, v := range s.pending {
		if suppressBounceBack {
			if last, ok := s.lastValues[path]; ok && last.Equal(v) {
				continue
			}
		}
		changes[path] = v
		s.lastValues[path] = v
	}

	s.pending = make(map[string]property.Value)
	s.hasChanges = false
	s.lastNotified = time.Now()

	if len(changes) == 0 {
		return nil
	}
	return changes
}

// NeedsHeartbeat returns true if MaxInterval has elapsed since the last
// notification.
func (s *Subscription) NeedsHeartbeat() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.active || s.MaxInterval <= 0 {
		return false
	}
	return time.Since(s.lastNotified) >= s.MaxInterval
}

// RecordHeartbeat records that a heartbeat was sent.
func (s *Subscription) RecordHeartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastNotified = time.Now()
}

// SetPrimingValues sets the values the subscriber already knows.
func (s *Subscription) SetPrimingValues(values map[string]property.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for path, v := range values {
		s.lastValues[path] = v
	}
	s.lastNotified = time.Now()
}

// LastValues returns a copy of the last notified values.
func (s *Subscription) LastValues() map[string]property.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]property.Value, len(s.lastValues))
	for k, v := range s.lastValues {
		out[k] = v
	}
	return out
}

// TimeUntilCoalesceExpiry returns the time until the coalescing window
// closes, or 0 if no changes are pending.
func (s *Subscription) TimeUntilCoalesceExpiry() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasChanges {
		return 0
	}
	elapsed := time.Since(s.windowStart)
	if elapsed >= s.MinInterval {
		return 0
	}
	return s.MinInterval - elapsed
}

var idGenerator atomic.Uint32

func nextID() uint32 {
	return idGenerator.Add(1)
}
