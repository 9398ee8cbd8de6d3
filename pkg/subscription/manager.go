package subscription

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/wire"
)

// Notification is a batch of changes due for one subscription.
type Notification struct {
	SubscriptionID uint32

	// Owner is the connection the subscription belongs to.
	Owner string

	// Changes maps canonical paths to their new values.
	Changes map[string]property.Value

	IsPriming   bool
	IsHeartbeat bool

	Timestamp time.Time
}

// Wire converts the notification to its protocol form.
func (n Notification) Wire() *wire.Notification {
	changes := n.Changes
	if changes == nil {
		changes = map[string]property.Value{}
	}
	return &wire.Notification{SubscriptionID: n.SubscriptionID, Changes: changes}
}

// Manager dispatches tree changes to path-prefix subscriptions.
type Manager struct {
	mu sync.RWMutex

	config Config

	subscriptions map[uint32]*Subscription

	// prefixIndex maps a canonical prefix to the subscriptions watching it.
	prefixIndex map[string][]*Subscription

	onNotification func(Notification)
}

// NewManager creates a new subscription manager with default configuration.
func NewManager() *Manager {
	return NewManagerWithConfig(DefaultConfig())
}

// NewManagerWithConfig creates a new subscription manager with custom configuration.
func NewManagerWithConfig(config Config) *Manager {
	if config.MaxSubscriptions <= 0 {
		config.MaxSubscriptions = DefaultMaxSubscriptions
	}
	return &Manager{
		config:        config,
		subscriptions: make(map[uint32]*Subscription),
		prefixIndex:   make(map[string][]*Subscription),
	}
}

// Subscribe creates a subscription for owner on the subtree at prefix and
// returns its ID. current holds the values the subscriber starts from;
// entries outside prefix are ignored.
func (m *Manager) Subscribe(owner, prefix string, minInterval, maxInterval time.Duration, current map[string]property.Value) (uint32, error) {
	prefix, err := normalizePrefix(prefix)
	if err != nil {
		return 0, err
	}
	if maxInterval <= 0 || minInterval < 0 {
		return 0, ErrInvalidInterval
	}
	if minInterval > maxInterval {
		if !m.config.AutoCorrectIntervals {
			return 0, ErrInvalidInterval
		}
		minInterval, maxInterval = maxInterval, minInterval
	}

	m.mu.Lock()
	if len(m.subscriptions) >= m.config.MaxSubscriptions {
		m.mu.Unlock()
		return 0, ErrResourceExhausted
	}

	id := nextID()
	sub := NewSubscription(id, owner, prefix, minInterval, maxInterval)
	priming := filterPrefix(current, prefix)
	sub.SetPrimingValues(priming)

	m.subscriptions[id] = sub
	m.prefixIndex[prefix] = append(m.prefixIndex[prefix], sub)
	onNotify := m.onNotification
	m.mu.Unlock()

	if m.config.NotifyPriming && onNotify != nil && len(priming) > 0 {
		onNotify(Notification{
			SubscriptionID: id,
			Owner:          owner,
			Changes:        priming,
			IsPriming:      true,
			Timestamp:      time.Now(),
		})
	}
	return id, nil
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, exists := m.subscriptions[subscriptionID]
	if !exists {
		return ErrSubscriptionNotFound
	}
	m.removeLocked(sub)
	return nil
}

// UnsubscribeOwner removes every subscription belonging to owner and
// returns how many were removed.
func (m *Manager) UnsubscribeOwner(owner string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, sub := range m.subscriptions {
		if sub.Owner == owner {
			m.removeLocked(sub)
			n++
		}
	}
	return n
}

func (m *Manager) removeLocked(sub *Subscription) {
	sub.Deactivate()
	delete(m.subscriptions, sub.ID)

	subs := m.prefixIndex[sub.Prefix]
	for i, s := range subs {
		if s.ID == sub.ID {
			m.prefixIndex[sub.Prefix] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(m.prefixIndex[sub.Prefix]) == 0 {
		delete(m.prefixIndex, sub.Prefix)
	}
}

// NotifyChange records a value change at a canonical path. It only records;
// notifications go out from ProcessNotifications, so it is safe to call from
// inside tree callbacks.
func (m *Manager) NotifyChange(path string, value property.Value) {
	m.mu.RLock()
	var subs []*Subscription
	for _, prefix := range ancestors(path) {
		subs = append(subs, m.prefixIndex[prefix]...)
	}
	m.mu.RUnlock()

	for _, sub := range subs {
		sub.RecordChange(path, value)
	}
}

// ProcessNotifications sends due change notifications and heartbeats.
func (m *Manager) ProcessNotifications() {
	m.mu.RLock()
	subs := make([]*Subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	onNotify := m.onNotification
	config := m.config
	m.mu.RUnlock()

	if onNotify == nil {
		return
	}

	for _, sub := range subs {
		if changes := sub.PendingNotification(config.SuppressBounceBack); changes != nil {
			onNotify(Notification{
				SubscriptionID: sub.ID,
				Owner:          sub.Owner,
				Changes:        changes,
				Timestamp:      time.Now(),
			})
			continue
		}

		if sub.NeedsHeartbeat() {
			n := Notification{
				SubscriptionID: sub.ID,
				Owner:          sub.Owner,
				IsHeartbeat:    true,
				Timestamp:      time.Now(),
			}
			if config.HeartbeatMode == HeartbeatFull {
				n.Changes = sub.LastValues()
			}
			sub.RecordHeartbeat()
			onNotify(n)
		}
	}
}

// Run calls ProcessNotifications every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.ProcessNotifications()
		}
	}
}

// ClearAll removes all subscriptions.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subscriptions {
		sub.Deactivate()
	}
	m.subscriptions = make(map[uint32]*Subscription)
	m.prefixIndex = make(map[string][]*Subscription)
}

// Count returns the number of active subscriptions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Get returns a subscription by ID.
func (m *Manager) Get(subscriptionID uint32) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, exists := m.subscriptions[subscriptionID]
	if !exists {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

// OnNotification sets the callback for notifications.
func (m *Manager) OnNotification(fn func(Notification)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onNotification = fn
}

func normalizePrefix(prefix string) (string, error) {
	if !strings.HasPrefix(prefix, "/") {
		return "", ErrInvalidPrefix
	}
	if prefix != "/" {
		prefix = strings.TrimRight(prefix, "/")
		if prefix == "" {
			prefix = "/"
		}
	}
	return prefix, nil
}

// ancestors returns "/" and every prefix of path that ends at a segment
// boundary, including path itself.
func ancestors(path string) []string {
	out := []string{"/"}
	for i := 1; i < len(path); i++ {
		if path[i] == '/' {
			out = append(out, path[:i])
		}
	}
	if path != "/" {
		out = append(out, path)
	}
	return out
}

func filterPrefix(values map[string]property.Value, prefix string) map[string]property.Value {
	out := make(map[string]property.Value)
	for path, v := range values {
		if covers(prefix, path) {
			out[path] = v
		}
	}
	return out
}
