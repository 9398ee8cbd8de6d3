package inspect

import (
	"context"
	"strings"

	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/wire"
)

// SessionReader reads and writes a remote device.
// This is implemented by interaction.Client.
type SessionReader interface {
	Get(ctx context.Context, path string) (wire.ValuePayload, error)
	Set(ctx context.Context, path string, v property.Value) (wire.ValuePayload, error)
	Snapshot(ctx context.Context, path string) (*wire.SnapshotPayload, error)
}

// RemoteInspector provides the Inspector operations for a remote device.
type RemoteInspector struct {
	session SessionReader
}

// NewRemoteInspector creates a new remote inspector for the given session.
func NewRemoteInspector(session SessionReader) *RemoteInspector {
	return &RemoteInspector{session: session}
}

// Entries describes every node at or below path. A pattern path is
// expanded against its fixed prefix.
func (r *RemoteInspector) Entries(ctx context.Context, path string) ([]Entry, error) {
	if !IsPattern(path) {
		snap, err := r.session.Snapshot(ctx, path)
		if err != nil {
			return nil, err
		}
		return FromWire(snap.Nodes), nil
	}
	root := PatternRoot(path)
	snap, err := r.session.Snapshot(ctx, root)
	if err != nil {
		return nil, err
	}
	entries := FromWire(snap.Nodes)
	return filterEntries(rebase(path, root, canonicalRoot(root, snap, entries)), entries), nil
}

// Inspect returns a nested view of the subtree at path. The snapshot
// reports canonical paths, so an alias root is replaced by its target.
func (r *RemoteInspector) Inspect(ctx context.Context, path string) (*TreeNode, error) {
	snap, err := r.session.Snapshot(ctx, path)
	if err != nil {
		return nil, err
	}
	entries := FromWire(snap.Nodes)
	return BuildTree(canonicalRoot(path, snap, entries), entries), nil
}

// canonicalRoot resolves path through the snapshot's aliases, falling back
// to the entries' common prefix when no alias applies.
func canonicalRoot(path string, snap *wire.SnapshotPayload, entries []Entry) string {
	if c := unalias(path, snap.Aliases); c != path {
		return c
	}
	return commonRoot(path, entries)
}

// Read returns the value at path.
func (r *RemoteInspector) Read(ctx context.Context, path string) (property.Value, error) {
	v, err := r.session.Get(ctx, path)
	if err != nil {
		return property.Value{}, err
	}
	return v.Value, nil
}

// Write parses text and writes it. The node's kind is looked up first so
// "1" written to a float node stays a float.
func (r *RemoteInspector) Write(ctx context.Context, path, text string) (property.Value, error) {
	kind := property.KindInvalid
	if cur, err := r.session.Get(ctx, path); err == nil {
		kind = cur.Value.Kind()
	}
	v, err := ParseValue(kind, text)
	if err != nil {
		return property.Value{}, err
	}
	res, err := r.session.Set(ctx, path, v)
	if err != nil {
		return property.Value{}, err
	}
	return res.Value, nil
}

// unalias rewrites the longest alias prefix of path to its target.
func unalias(path string, aliases map[string]string) string {
	best := ""
	for alias := range aliases {
		if (path == alias || strings.HasPrefix(path, alias+"/")) && len(alias) > len(best) {
			best = alias
		}
	}
	if best == "" {
		return path
	}
	return aliases[best] + strings.TrimPrefix(path, best)
}

// commonRoot returns path if every entry lies at or below it, otherwise the
// longest common parent of the entries.
func commonRoot(path string, entries []Entry) string {
	if len(entries) == 0 {
		return path
	}
	inside := true
	for _, e := range entries {
		if e.Path != path && Relative(path, e.Path) == e.Path {
			inside = false
			break
		}
	}
	if inside {
		return path
	}
	prefix := splitSegments(entries[0].Path)
	if len(entries) == 1 {
		prefix = prefix[:len(prefix)-1]
	}
	for _, e := range entries[1:] {
		segs := splitSegments(e.Path)
		n := 0
		for n < len(prefix) && n < len(segs) && prefix[n] == segs[n] {
			n++
		}
		prefix = prefix[:n]
	}
	return "/" + strings.Join(prefix, "/")
}
