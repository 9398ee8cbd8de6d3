package property

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNode(t *testing.T) {
	n, err := NewNode("/mboards/0/tick_rate", Float(100e6), Range(1e6, 250e6), &Metadata{Unit: "Hz"})
	require.NoError(t, err)

	assert.Equal(t, "/mboards/0/tick_rate", n.Path())
	assert.Equal(t, KindFloat, n.Kind())
	assert.True(t, n.Get().Equal(Float(100e6)))
	assert.Equal(t, "Hz", n.Metadata().Unit)
	assert.Equal(t, AccessReadWrite, n.Metadata().Access)
	assert.True(t, n.Alive())
}

func TestNewNodeRejectsInvalidInitial(t *testing.T) {
	_, err := NewNode("/x", Float(1), Range(10, 20), nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewNode("/x", Value{}, nil, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNodeInitialValueIsCoerced(t *testing.T) {
	n, err := NewNode("/gain", Float(90), Clip(0, 76), nil)
	require.NoError(t, err)
	assert.True(t, n.Get().Equal(Float(76)))
	assert.True(t, n.Desired().Equal(Float(90)))
}

func TestNodeApply(t *testing.T) {
	n, err := NewNode("/gain", Float(10), Clip(0, 76), nil)
	require.NoError(t, err)

	t.Run("Coerced", func(t *testing.T) {
		prev, out, err := n.Apply(Float(100), false)
		require.NoError(t, err)
		assert.True(t, out.Equal(Float(76)))
		assert.True(t, n.Get().Equal(Float(76)))
		assert.True(t, n.Desired().Equal(Float(100)))

		n.Restore(prev)
		assert.True(t, n.Get().Equal(Float(10)))
	})

	t.Run("WrongKind", func(t *testing.T) {
		_, _, err := n.Apply(String("loud"), false)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "/gain", ve.Path)
		assert.True(t, n.Get().Equal(Float(10)))
	})
}

func TestNodeReadOnly(t *testing.T) {
	n, err := NewNode("/sensors/temp", Float(40), nil, &Metadata{Access: AccessReadOnly})
	require.NoError(t, err)

	_, _, err = n.Apply(Float(41), false)
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = n.Apply(Float(41), true)
	require.NoError(t, err)
	assert.True(t, n.Get().Equal(Float(41)))
}

func TestNodeCoercerChangingKindIsRejected(t *testing.T) {
	bad := func(v Value) (Value, error) { return String("oops"), nil }
	_, err := NewNode("/x", Int(1), bad, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNodeCoercerPlainErrorIsWrapped(t *testing.T) {
	failing := func(v Value) (Value, error) { return Value{}, errors.New("hardware says no") }
	n, err := NewNode("/x", Int(1), nil, nil)
	require.NoError(t, err)
	n.coercer = failing

	_, _, err = n.Apply(Int(2), false)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "hardware says no")
}

func TestNodeSubscribersOrder(t *testing.T) {
	n, err := NewNode("/x", Int(0), nil, nil)
	require.NoError(t, err)

	var order []int
	s1 := n.Subscribe(Notify(func(Change) { order = append(order, 1) }))
	n.Subscribe(Notify(func(Change) { order = append(order, 2) }))
	n.Subscribe(Notify(func(Change) { order = append(order, 3) }))

	for _, s := range n.Subscribers() {
		require.NoError(t, s.Invoke(nil, Change{Path: "/x"}))
	}
	assert.Equal(t, []int{1, 2, 3}, order)

	snapshot := n.Subscribers()
	s1.Unsubscribe()
	s1.Unsubscribe()
	assert.Len(t, n.Subscribers(), 2)
	assert.Len(t, snapshot, 3)
}

func TestNodeKill(t *testing.T) {
	n, err := NewNode("/x", Int(0), nil, nil)
	require.NoError(t, err)
	n.Subscribe(Notify(func(Change) {}))

	n.Kill()
	assert.False(t, n.Alive())
	assert.Empty(t, n.Subscribers())

	_, _, err = n.Apply(Int(1), true)
	assert.ErrorIs(t, err, ErrStaleReference)
}

func TestAccessString(t *testing.T) {
	assert.Equal(t, "RW", AccessReadWrite.String())
	assert.Equal(t, "R", AccessReadOnly.String())
	assert.Equal(t, "-", Access(0).String())
}
