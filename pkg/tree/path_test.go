package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
		segs int
	}{
		{"/", "/", 0},
		{"/mboards", "/mboards", 1},
		{"/mboards/0/tick_rate", "/mboards/0/tick_rate", 3},
		{"/blocks/0/Radio#0/gain/value", "/blocks/0/Radio#0/gain/value", 5},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := ParsePath(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.String())
			assert.Equal(t, tt.segs, p.Len())
		})
	}
}

func TestParsePathRejects(t *testing.T) {
	for _, in := range []string{"", "mboards", "/a//b", "/a/", "/a/./b", "/a/../b"} {
		_, err := ParsePath(in)
		assert.ErrorIs(t, err, ErrInvalidPath, in)
	}
}

func TestPathIsCaseSensitive(t *testing.T) {
	a := MustParsePath("/Radio")
	b := MustParsePath("/radio")
	assert.False(t, a.Equal(b))
}

func TestPathResolve(t *testing.T) {
	base := MustParsePath("/mboards/0")

	p, err := base.Resolve("tick_rate")
	require.NoError(t, err)
	assert.Equal(t, "/mboards/0/tick_rate", p.String())

	p, err = base.Resolve("/rx_dsps/0")
	require.NoError(t, err)
	assert.Equal(t, "/mboards/0/rx_dsps/0", p.String())

	p, err = base.Resolve("")
	require.NoError(t, err)
	assert.True(t, p.Equal(base))

	_, err = base.Resolve("../1")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestPathAlgebra(t *testing.T) {
	p := MustParsePath("/a/b/c")

	assert.Equal(t, "/a/b", p.Parent().String())
	assert.Equal(t, "c", p.Base())
	assert.Equal(t, "/a", p.Prefix(1).String())
	assert.True(t, Root.Parent().IsRoot())
	assert.Equal(t, "", Root.Base())

	assert.True(t, p.HasPrefix(MustParsePath("/a")))
	assert.True(t, p.HasPrefix(p))
	assert.True(t, p.HasPrefix(Root))
	assert.False(t, p.HasPrefix(MustParsePath("/a/bc")))
	assert.False(t, MustParsePath("/a/bc").HasPrefix(MustParsePath("/a/b")))

	rel, ok := p.TrimPrefix(MustParsePath("/a"))
	require.True(t, ok)
	assert.Equal(t, "/b/c", rel.String())

	_, ok = p.TrimPrefix(MustParsePath("/x"))
	assert.False(t, ok)

	assert.Equal(t, "/x/b/c", MustParsePath("/x").Append(rel).String())
	assert.Equal(t, []string{"a", "b", "c"}, p.Segments())
}

func TestPathJoinDoesNotAlias(t *testing.T) {
	base := MustParsePath("/a/b/c").Parent()
	x := base.Join("x")
	y := base.Join("y")
	assert.Equal(t, "/a/b/x", x.String())
	assert.Equal(t, "/a/b/y", y.String())
}
