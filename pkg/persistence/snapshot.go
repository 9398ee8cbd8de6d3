package persistence

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/tree"
)

// SnapshotVersion is the current version of the snapshot file format.
const SnapshotVersion = 1

// Errors.
var (
	ErrDigestMismatch     = errors.New("snapshot digest mismatch")
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)

// NodeState is the saved value of one node.
type NodeState struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Value any    `json:"value"`
}

// Snapshot is the saved state of a tree.
type Snapshot struct {
	// Version is the snapshot file format version.
	Version int `json:"version"`

	// SavedAt is when the snapshot was captured.
	SavedAt time.Time `json:"saved_at"`

	// Device identifies the device the snapshot came from (serial number).
	Device string `json:"device,omitempty"`

	// Root is the subtree the snapshot covers.
	Root string `json:"root"`

	Nodes []NodeState `json:"nodes"`
}

// file is the on-disk layout. Nodes stays raw so the digest covers exactly
// the bytes that were written.
type file struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	Device  string          `json:"device,omitempty"`
	Root    string          `json:"root"`
	Digest  string          `json:"digest"`
	Nodes   json.RawMessage `json:"nodes"`
}

// Capture records every client-writable node at or below root.
func Capture(t *tree.Tree, root, device string) (*Snapshot, error) {
	infos, err := t.Nodes(root)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Version: SnapshotVersion,
		SavedAt: time.Now(),
		Device:  device,
		Root:    root,
		Nodes:   make([]NodeState, 0, len(infos)),
	}
	for _, info := range infos {
		if !info.Access.CanWrite() || !info.Value.IsValid() {
			continue
		}
		snap.Nodes = append(snap.Nodes, NodeState{
			Path:  info.Path,
			Kind:  info.Kind.String(),
			Value: info.Value.Any(),
		})
	}
	return snap, nil
}

// RestoreResult reports what Restore did per path.
type RestoreResult struct {
	Applied []string
	Skipped []string
	Failed  map[string]error
}

// Restore writes the saved values back as client writes, in path order.
// Nodes that no longer exist are skipped; a failed write does not stop the
// others.
func (s *Snapshot) Restore(t *tree.Tree) RestoreResult {
	res := RestoreResult{Failed: make(map[string]error)}
	for _, n := range s.Nodes {
		if !t.Exists(n.Path) {
			res.Skipped = append(res.Skipped, n.Path)
			continue
		}
		v, err := n.value()
		if err == nil {
			err = t.Set(n.Path, v)
		}
		if err != nil {
			res.Failed[n.Path] = err
			continue
		}
		res.Applied = append(res.Applied, n.Path)
	}
	return res
}

func (n NodeState) value() (property.Value, error) {
	kind, err := property.ParseKind(n.Kind)
	if err != nil {
		return property.Value{}, err
	}
	return property.Convert(kind, normalize(n.Value))
}

// normalize turns json.Number leaves into int64 or float64 so integer
// fields keep their kind.
func normalize(x any) any {
	switch t := x.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
	}
	return x
}

// Digest returns the BLAKE2b-256 digest of the compact JSON node list.
func Digest(nodes json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, nodes); err != nil {
		return "", err
	}
	sum := blake2b.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

// Store manages a snapshot file.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store for the snapshot at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot file path.
func (s *Store) Path() string { return s.path }

// Save writes snap to disk, replacing any previous snapshot atomically.
func (s *Store) Save(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes, err := json.Marshal(snap.Nodes)
	if err != nil {
		return err
	}
	digest, err := Digest(nodes)
	if err != nil {
		return err
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}
	data, err := json.MarshalIndent(file{
		Version: SnapshotVersion,
		SavedAt: snap.SavedAt,
		Device:  snap.Device,
		Root:    snap.Root,
		Digest:  digest,
		Nodes:   nodes,
	}, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads and verifies the snapshot.
// Returns nil, nil if the file doesn't exist.
func (s *Store) Load() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if f.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)
	}
	digest, err := Digest(f.Nodes)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if digest != f.Digest {
		return nil, fmt.Errorf("%w: %s", ErrDigestMismatch, s.path)
	}

	snap := &Snapshot{
		Version: f.Version,
		SavedAt: f.SavedAt,
		Device:  f.Device,
		Root:    f.Root,
	}
	dec := json.NewDecoder(bytes.NewReader(f.Nodes))
	dec.UseNumber()
	if err := dec.Decode(&snap.Nodes); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return snap, nil
}

// Clear removes the snapshot file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
