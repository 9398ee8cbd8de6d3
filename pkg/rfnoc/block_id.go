package rfnoc

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidBlockID indicates a malformed block identifier.
var ErrInvalidBlockID = errors.New("invalid block ID")

// Block kinds known to the simulated device.
const (
	KindRadio = "Radio"
	KindDDC   = "DDC"
	KindDUC   = "DUC"
	KindFIFO  = "FIFO"
	KindSEP   = "SEP"
)

// BlockID names one RFNoC block: device number, block name and instance count,
// written "0/Radio#0".
type BlockID struct {
	Device int
	Name   string
	Count  int
}

var blockIDPattern = regexp.MustCompile(`^(?:(\d+)/)?([A-Za-z][A-Za-z0-9_]*)(?:#(\d+))?$`)

// ParseBlockID parses "0/Radio#1", "Radio#1" or "Radio". A missing device or
// count is 0.
func ParseBlockID(s string) (BlockID, error) {
	m := blockIDPattern.FindStringSubmatch(s)
	if m == nil {
		return BlockID{}, fmt.Errorf("%w: %q", ErrInvalidBlockID, s)
	}
	id := BlockID{Name: m[2]}
	if m[1] != "" {
		d, err := strconv.Atoi(m[1])
		if err != nil {
			return BlockID{}, fmt.Errorf("%w: %q: %v", ErrInvalidBlockID, s, err)
		}
		id.Device = d
	}
	if m[3] != "" {
		c, err := strconv.Atoi(m[3])
		if err != nil {
			return BlockID{}, fmt.Errorf("%w: %q: %v", ErrInvalidBlockID, s, err)
		}
		id.Count = c
	}
	return id, nil
}

// String returns the canonical "device/Name#count" form.
func (b BlockID) String() string {
	return fmt.Sprintf("%d/%s#%d", b.Device, b.Name, b.Count)
}

// Local returns "Name#count", the segment used below /blocks/<device>.
func (b BlockID) Local() string {
	return fmt.Sprintf("%s#%d", b.Name, b.Count)
}

// TreePath returns the block's subtree root.
func (b BlockID) TreePath() string {
	return fmt.Sprintf("/blocks/%d/%s", b.Device, b.Local())
}

// Match reports whether b is selected by a possibly partial id such as
// "Radio" (any radio) or "Radio#1" (radio 1 on any device).
func (b BlockID) Match(pattern string) bool {
	m := blockIDPattern.FindStringSubmatch(pattern)
	if m == nil || m[2] != b.Name {
		return false
	}
	if m[1] != "" && m[1] != strconv.Itoa(b.Device) {
		return false
	}
	if m[3] != "" && m[3] != strconv.Itoa(b.Count) {
		return false
	}
	return true
}

// Graph is the set of blocks on a device, keyed by ID string.
type Graph struct {
	blocks map[string]BlockID
	order  []BlockID
}

// NewGraph creates an empty block set.
func NewGraph() *Graph {
	return &Graph{blocks: make(map[string]BlockID)}
}

// Add adds a block with the next free count for its name on device.
func (g *Graph) Add(device int, name string) BlockID {
	id := BlockID{Device: device, Name: name}
	for {
		if _, taken := g.blocks[id.String()]; !taken {
			break
		}
		id.Count++
	}
	g.blocks[id.String()] = id
	g.order = append(g.order, id)
	return id
}

// Find returns the blocks matching pattern, in insertion order.
func (g *Graph) Find(pattern string) []BlockID {
	var out []BlockID
	for _, id := range g.order {
		if id.Match(pattern) {
			out = append(out, id)
		}
	}
	return out
}

// Blocks returns all blocks in insertion order.
func (g *Graph) Blocks() []BlockID {
	out := make([]BlockID, len(g.order))
	copy(out, g.order)
	return out
}
