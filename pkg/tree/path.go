package tree

import (
	"fmt"
	"strings"
)

// Separator is the path segment separator.
const Separator = "/"

// Path is an absolute, canonical property path: an ordered sequence of
// non-empty segments. The zero Path is the root.
type Path struct {
	segs []string
}

// Root is the root path "/".
var Root = Path{}

// ParsePath parses an absolute path such as "/mboards/0/tick_rate".
// Segments are case-sensitive; empty, "." and ".." segments are rejected.
func ParsePath(s string) (Path, error) {
	if !strings.HasPrefix(s, Separator) {
		return Path{}, fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, s)
	}
	return Root.Resolve(s)
}

// MustParsePath is ParsePath for constant paths; it panics on error.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Resolve parses s relative to p. A leading separator is optional and still
// means "relative to p", which lets subtree views accept "/freq" and "freq".
func (p Path) Resolve(s string) (Path, error) {
	s = strings.TrimPrefix(s, Separator)
	if s == "" {
		return p, nil
	}
	parts := strings.Split(s, Separator)
	for _, seg := range parts {
		if err := checkSegment(seg); err != nil {
			return Path{}, fmt.Errorf("%w: %q: %v", ErrInvalidPath, s, err)
		}
	}
	return p.Join(parts...), nil
}

func checkSegment(seg string) error {
	switch seg {
	case "":
		return fmt.Errorf("empty segment")
	case ".", "..":
		return fmt.Errorf("segment %q not allowed", seg)
	}
	return nil
}

// Join appends segments. Segments are not re-validated.
func (p Path) Join(segs ...string) Path {
	out := make([]string, 0, len(p.segs)+len(segs))
	out = append(out, p.segs...)
	out = append(out, segs...)
	return Path{segs: out}
}

// Append appends another path's segments.
func (p Path) Append(q Path) Path { return p.Join(q.segs...) }

// Segments returns a copy of the segments.
func (p Path) Segments() []string {
	out := make([]string, len(p.segs))
	copy(out, p.segs)
	return out
}

// Len returns the number of segments.
func (p Path) Len() int { return len(p.segs) }

// IsRoot reports whether p is "/".
func (p Path) IsRoot() bool { return len(p.segs) == 0 }

// Parent returns the parent path. The root is its own parent.
func (p Path) Parent() Path {
	if p.IsRoot() {
		return p
	}
	return Path{segs: p.segs[:len(p.segs)-1]}
}

// Base returns the last segment, or "" for the root.
func (p Path) Base() string {
	if p.IsRoot() {
		return ""
	}
	return p.segs[len(p.segs)-1]
}

// Prefix returns the first n segments.
func (p Path) Prefix(n int) Path { return Path{segs: p.segs[:n]} }

// HasPrefix reports whether q is p or an ancestor of p, segment-wise.
func (p Path) HasPrefix(q Path) bool {
	if len(q.segs) > len(p.segs) {
		return false
	}
	for i, s := range q.segs {
		if p.segs[i] != s {
			return false
		}
	}
	return true
}

// TrimPrefix returns p relative to q. ok is false when q is not a prefix.
func (p Path) TrimPrefix(q Path) (rel Path, ok bool) {
	if !p.HasPrefix(q) {
		return Path{}, false
	}
	return Path{segs: p.segs[len(q.segs):]}, true
}

// Equal reports whether the paths have the same segments.
func (p Path) Equal(q Path) bool {
	return len(p.segs) == len(q.segs) && p.HasPrefix(q)
}

// String returns the canonical form.
func (p Path) String() string {
	return Separator + strings.Join(p.segs, Separator)
}
