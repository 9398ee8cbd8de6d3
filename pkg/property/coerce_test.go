package property

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClip(t *testing.T) {
	c := Clip(0, 76)

	tests := []struct {
		name string
		in   Value
		want Value
	}{
		{"inside", Float(30), Float(30)},
		{"below", Float(-5), Float(0)},
		{"above", Float(80), Float(76)},
		{"int stays int", Int(100), Int(76)},
		{"int inside", Int(3), Int(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := c(String("x"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClipIntSaturates(t *testing.T) {
	got, err := Clip(1e20, 1e30)(Int(5))
	require.NoError(t, err)
	assert.True(t, got.Equal(Int(math.MaxInt64)), "got %s", got)

	got, err = Clip(-1e30, -1e20)(Int(0))
	require.NoError(t, err)
	assert.True(t, got.Equal(Int(math.MinInt64)), "got %s", got)

	got, err = Step(6e18)(Int(math.MaxInt64))
	require.NoError(t, err)
	assert.True(t, got.Equal(Int(math.MaxInt64)), "got %s", got)
}

func TestRange(t *testing.T) {
	c := Range(1e6, 250e6)

	_, err := c(Float(100e6))
	assert.NoError(t, err)
	_, err = c(Float(1e6))
	assert.NoError(t, err)
	_, err = c(Float(300e6))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = c(Bool(true))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStep(t *testing.T) {
	got, err := Step(0.5)(Float(10.3))
	require.NoError(t, err)
	assert.True(t, got.Equal(Float(10.5)))

	got, err = Step(4)(Int(9))
	require.NoError(t, err)
	assert.True(t, got.Equal(Int(8)))

	got, err = Step(0)(Float(1.23))
	require.NoError(t, err)
	assert.True(t, got.Equal(Float(1.23)))
}

func TestOneOf(t *testing.T) {
	c := OneOf(String("internal"), String("external"), String("gpsdo"))

	_, err := c(String("external"))
	assert.NoError(t, err)

	_, err = c(String("mimo"))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), `"gpsdo"`)
}

func TestNonEmpty(t *testing.T) {
	_, err := NonEmpty(String("B210"))
	assert.NoError(t, err)
	_, err = NonEmpty(String(""))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = NonEmpty(Int(1))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestChain(t *testing.T) {
	c := Chain(Clip(0, 100), nil, Step(10))
	got, err := c(Float(123))
	require.NoError(t, err)
	assert.True(t, got.Equal(Float(100)))

	got, err = c(Float(44))
	require.NoError(t, err)
	assert.True(t, got.Equal(Float(40)))

	_, err = Chain(Range(0, 1), Step(1))(Float(5))
	assert.ErrorIs(t, err, ErrValidation)
}
