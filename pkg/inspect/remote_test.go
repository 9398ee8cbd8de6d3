package inspect

import (
	"context"
	"testing"

	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/wire"
)

// fakeSession serves a fixed snapshot for every path.
type fakeSession struct {
	snap   *wire.SnapshotPayload
	values map[string]property.Value
	sets   map[string]property.Value
	paths  []string
}

func (s *fakeSession) Get(ctx context.Context, path string) (wire.ValuePayload, error) {
	return wire.ValuePayload{Value: s.values[path]}, nil
}

func (s *fakeSession) Set(ctx context.Context, path string, v property.Value) (wire.ValuePayload, error) {
	if s.sets == nil {
		s.sets = make(map[string]property.Value)
	}
	s.sets[path] = v
	return wire.ValuePayload{Value: v}, nil
}

func (s *fakeSession) Snapshot(ctx context.Context, path string) (*wire.SnapshotPayload, error) {
	s.paths = append(s.paths, path)
	return s.snap, nil
}

func dspSnapshot() *wire.SnapshotPayload {
	return &wire.SnapshotPayload{
		Nodes: []wire.NodeInfo{
			{Path: "/mboards/0/rx_dsps/0/freq/value", Kind: property.KindFloat, Value: property.Float(0)},
			{Path: "/mboards/0/rx_dsps/0/rate/value", Kind: property.KindFloat, Value: property.Float(1e6)},
		},
		Aliases: map[string]string{"/rx_dsp0": "/mboards/0/rx_dsps/0"},
	}
}

func TestRemoteInspectThroughAlias(t *testing.T) {
	s := &fakeSession{snap: dspSnapshot()}
	r := NewRemoteInspector(s)

	n, err := r.Inspect(context.Background(), "/rx_dsp0")
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if n.Path != "/mboards/0/rx_dsps/0" {
		t.Errorf("root = %q", n.Path)
	}
	if len(n.Children) != 2 || n.Count() != 2 {
		t.Errorf("tree = %+v", n)
	}
}

func TestRemoteEntriesPattern(t *testing.T) {
	s := &fakeSession{snap: dspSnapshot()}
	r := NewRemoteInspector(s)

	got, err := r.Entries(context.Background(), "/rx_dsp0/rate/*")
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(s.paths) != 1 || s.paths[0] != "/rx_dsp0/rate" {
		t.Errorf("snapshot requested for %v, want [/rx_dsp0/rate]", s.paths)
	}
	if len(got) != 1 || got[0].Path != "/mboards/0/rx_dsps/0/rate/value" {
		t.Errorf("Entries() = %+v", got)
	}
}

func TestRemoteWriteKeepsKind(t *testing.T) {
	s := &fakeSession{values: map[string]property.Value{"/f": property.Float(0)}}
	r := NewRemoteInspector(s)

	v, err := r.Write(context.Background(), "/f", "7")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !v.Equal(property.Float(7)) {
		t.Errorf("Write() = %v, want float 7", v)
	}

	got, err := r.Read(context.Background(), "/f")
	if err != nil || !got.Equal(property.Float(0)) {
		t.Errorf("Read() = %v, %v", got, err)
	}
}

func TestUnalias(t *testing.T) {
	aliases := map[string]string{"/rx": "/mboards/0/rx_dsps", "/rx/0": "/dsp0"}
	tests := map[string]string{
		"/rx/1/freq": "/mboards/0/rx_dsps/1/freq",
		"/rx/0/freq": "/dsp0/freq",
		"/rx":        "/mboards/0/rx_dsps",
		"/rxx":       "/rxx",
	}
	for in, want := range tests {
		if got := unalias(in, aliases); got != want {
			t.Errorf("unalias(%q) = %q, want %q", in, got, want)
		}
	}
}
