package subscription

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiotree/radiotree-go/pkg/property"
)

const freqPath = "/mboards/0/rx_dsps/0/freq/value"

func TestSubscriptionCovers(t *testing.T) {
	sub := NewSubscription(1, "c1", "/mboards/0/rx_dsps", 0, time.Second)

	assert.True(t, sub.Covers("/mboards/0/rx_dsps"))
	assert.True(t, sub.Covers(freqPath))
	assert.False(t, sub.Covers("/mboards/0/rx_dsps_extra/0"))
	assert.False(t, sub.Covers("/mboards/0/tick_rate"))

	root := NewSubscription(2, "c1", "/", 0, time.Second)
	assert.True(t, root.Covers(freqPath))
}

func TestSubscriptionRecordChange(t *testing.T) {
	sub := NewSubscription(1, "c1", "/mboards", 100*time.Millisecond, time.Second)

	assert.True(t, sub.RecordChange(freqPath, property.Float(1e6)), "first change opens a window")
	assert.False(t, sub.RecordChange(freqPath, property.Float(2e6)), "second change joins it")
	assert.False(t, sub.RecordChange("/blocks/0/Radio#0/gain/value", property.Float(3)), "outside prefix")
}

func TestSubscriptionCoalescing(t *testing.T) {
	sub := NewSubscription(1, "c1", "/", 50*time.Millisecond, time.Second)

	sub.RecordChange(freqPath, property.Float(1e6))
	sub.RecordChange(freqPath, property.Float(2e6))
	sub.RecordChange(freqPath, property.Float(3e6))

	assert.Nil(t, sub.PendingNotification(false), "window still open")
	assert.Greater(t, sub.TimeUntilCoalesceExpiry(), time.Duration(0))

	time.Sleep(70 * time.Millisecond)

	changes := sub.PendingNotification(false)
	require.Len(t, changes, 1)
	assert.True(t, changes[freqPath].Equal(property.Float(3e6)))
	assert.Nil(t, sub.PendingNotification(false), "pending changes are cleared")
	assert.Zero(t, sub.TimeUntilCoalesceExpiry())
}

func TestSubscriptionBounceBack(t *testing.T) {
	sub := NewSubscription(1, "c1", "/", 0, time.Second)
	sub.SetPrimingValues(map[string]property.Value{freqPath: property.Float(1e6)})

	sub.RecordChange(freqPath, property.Float(2e6))
	sub.RecordChange(freqPath, property.Float(1e6))
	assert.Nil(t, sub.PendingNotification(true))

	sub.RecordChange(freqPath, property.Float(1e6))
	changes := sub.PendingNotification(false)
	require.Len(t, changes, 1, "suppression disabled")
}

func TestSubscriptionHeartbeat(t *testing.T) {
	sub := NewSubscription(1, "c1", "/", 0, 30*time.Millisecond)
	assert.False(t, sub.NeedsHeartbeat())

	time.Sleep(40 * time.Millisecond)
	assert.True(t, sub.NeedsHeartbeat())

	sub.RecordHeartbeat()
	assert.False(t, sub.NeedsHeartbeat())

	sub.Deactivate()
	time.Sleep(40 * time.Millisecond)
	assert.False(t, sub.NeedsHeartbeat())
	assert.False(t, sub.IsActive())
}

func TestManagerSubscribeValidation(t *testing.T) {
	m := NewManager()

	_, err := m.Subscribe("c1", "mboards", 0, time.Second, nil)
	assert.ErrorIs(t, err, ErrInvalidPrefix)

	_, err = m.Subscribe("c1", "/", 0, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = m.Subscribe("c1", "/", 2*time.Second, time.Second, nil)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	fixed := NewManagerWithConfig(Config{AutoCorrectIntervals: true})
	id, err := fixed.Subscribe("c1", "/mboards/", 2*time.Second, time.Second, nil)
	require.NoError(t, err)
	sub, err := fixed.Get(id)
	require.NoError(t, err)
	assert.Equal(t, time.Second, sub.MinInterval)
	assert.Equal(t, 2*time.Second, sub.MaxInterval)
	assert.Equal(t, "/mboards", sub.Prefix)
}

func TestManagerResourceExhausted(t *testing.T) {
	m := NewManagerWithConfig(Config{MaxSubscriptions: 2})

	for i := 0; i < 2; i++ {
		_, err := m.Subscribe("c1", "/", 0, time.Second, nil)
		require.NoError(t, err)
	}
	_, err := m.Subscribe("c1", "/", 0, time.Second, nil)
	assert.ErrorIs(t, err, ErrResourceExhausted)
}

func TestManagerDispatchesByPrefix(t *testing.T) {
	m := NewManager()

	var mu sync.Mutex
	got := map[uint32]map[string]property.Value{}
	m.OnNotification(func(n Notification) {
		mu.Lock()
		defer mu.Unlock()
		got[n.SubscriptionID] = n.Changes
	})

	dsps, err := m.Subscribe("c1", "/mboards/0/rx_dsps", 0, time.Minute, nil)
	require.NoError(t, err)
	radio, err := m.Subscribe("c2", "/blocks", 0, time.Minute, nil)
	require.NoError(t, err)
	all, err := m.Subscribe("c2", "/", 0, time.Minute, nil)
	require.NoError(t, err)

	m.NotifyChange(freqPath, property.Float(5e6))
	m.ProcessNotifications()

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, got, dsps)
	assert.Contains(t, got, all)
	assert.NotContains(t, got, radio)
	assert.True(t, got[dsps][freqPath].Equal(property.Float(5e6)))
}

func TestManagerPrimingFiltersPrefix(t *testing.T) {
	m := NewManagerWithConfig(Config{NotifyPriming: true})

	var primed []Notification
	m.OnNotification(func(n Notification) { primed = append(primed, n) })

	_, err := m.Subscribe("c1", "/mboards", 0, time.Minute, map[string]property.Value{
		freqPath:                       property.Float(1e6),
		"/blocks/0/Radio#0/gain/value": property.Float(10),
	})
	require.NoError(t, err)

	require.Len(t, primed, 1)
	assert.True(t, primed[0].IsPriming)
	assert.Len(t, primed[0].Changes, 1)
	assert.Contains(t, primed[0].Changes, freqPath)
}

func TestManagerHeartbeatFull(t *testing.T) {
	m := NewManager()

	var beats []Notification
	m.OnNotification(func(n Notification) { beats = append(beats, n) })

	_, err := m.Subscribe("c1", "/", 0, 20*time.Millisecond, map[string]property.Value{
		freqPath: property.Float(1e6),
	})
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	m.ProcessNotifications()

	require.Len(t, beats, 1)
	assert.True(t, beats[0].IsHeartbeat)
	assert.True(t, beats[0].Changes[freqPath].Equal(property.Float(1e6)))

	w := beats[0].Wire()
	assert.Equal(t, beats[0].SubscriptionID, w.SubscriptionID)
	assert.Len(t, w.Changes, 1)
}

func TestManagerHeartbeatEmpty(t *testing.T) {
	m := NewManagerWithConfig(Config{HeartbeatMode: HeartbeatEmpty})

	var beats []Notification
	m.OnNotification(func(n Notification) { beats = append(beats, n) })

	_, err := m.Subscribe("c1", "/", 0, 20*time.Millisecond, map[string]property.Value{
		freqPath: property.Float(1e6),
	})
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	m.ProcessNotifications()

	require.Len(t, beats, 1)
	assert.Empty(t, beats[0].Changes)
	assert.NotNil(t, beats[0].Wire().Changes)
}

func TestManagerUnsubscribe(t *testing.T) {
	m := NewManager()

	a, err := m.Subscribe("c1", "/", 0, time.Minute, nil)
	require.NoError(t, err)
	_, err = m.Subscribe("c1", "/mboards", 0, time.Minute, nil)
	require.NoError(t, err)
	c, err := m.Subscribe("c2", "/mboards", 0, time.Minute, nil)
	require.NoError(t, err)

	require.NoError(t, m.Unsubscribe(a))
	assert.ErrorIs(t, m.Unsubscribe(a), ErrSubscriptionNotFound)

	assert.Equal(t, 1, m.UnsubscribeOwner("c1"))
	assert.Equal(t, 1, m.Count())

	_, err = m.Get(c)
	require.NoError(t, err)

	m.ClearAll()
	assert.Zero(t, m.Count())
}

func TestManagerRun(t *testing.T) {
	m := NewManager()

	delivered := make(chan Notification, 1)
	m.OnNotification(func(n Notification) {
		select {
		case delivered <- n:
		default:
		}
	})
	_, err := m.Subscribe("c1", "/", 0, time.Minute, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, 5*time.Millisecond) }()

	m.NotifyChange(freqPath, property.Float(7e6))

	select {
	case n := <-delivered:
		assert.Contains(t, n.Changes, freqPath)
	case <-time.After(time.Second):
		t.Fatal("no notification delivered")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestAncestors(t *testing.T) {
	assert.Equal(t, []string{"/"}, ancestors("/"))
	assert.Equal(t, []string{"/", "/a", "/a/b"}, ancestors("/a/b"))
}

func TestHeartbeatModeString(t *testing.T) {
	assert.Equal(t, "EMPTY", HeartbeatEmpty.String())
	assert.Equal(t, "FULL", HeartbeatFull.String())
	assert.Equal(t, "UNKNOWN", HeartbeatMode(9).String())
}
