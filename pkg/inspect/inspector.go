package inspect

import (
	"sort"
	"strings"

	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/tree"
	"github.com/radiotree/radiotree-go/pkg/wire"
)

// Entry describes one node, whether read locally or over the wire.
type Entry struct {
	Path        string
	Kind        property.Kind
	Value       property.Value
	Desired     property.Value
	Access      property.Access
	Unit        string
	Description string
}

// FromTree converts local node descriptions.
func FromTree(infos []tree.NodeInfo) []Entry {
	out := make([]Entry, len(infos))
	for i, n := range infos {
		out[i] = Entry{
			Path:        n.Path,
			Kind:        n.Kind,
			Value:       n.Value,
			Desired:     n.Desired,
			Access:      n.Access,
			Unit:        n.Unit,
			Description: n.Description,
		}
	}
	return out
}

// FromWire converts node descriptions from a Snapshot response.
func FromWire(infos []wire.NodeInfo) []Entry {
	out := make([]Entry, len(infos))
	for i, n := range infos {
		out[i] = Entry{
			Path:        n.Path,
			Kind:        n.Kind,
			Value:       n.Value,
			Desired:     n.Desired,
			Access:      n.Access,
			Unit:        n.Unit,
			Description: n.Description,
		}
	}
	return out
}

// TreeNode is one segment of a nested view. Entry is nil for segments that
// only exist as the parent of other nodes.
type TreeNode struct {
	Name     string
	Path     string
	Entry    *Entry
	Children []*TreeNode
}

// Count returns the number of entries at or below n.
func (n *TreeNode) Count() int {
	c := 0
	if n.Entry != nil {
		c++
	}
	for _, ch := range n.Children {
		c += ch.Count()
	}
	return c
}

// BuildTree nests entries under root. Entries outside root are ignored.
// Children are sorted by name.
func BuildTree(root string, entries []Entry) *TreeNode {
	top := &TreeNode{Name: root, Path: root}
	index := map[string]*TreeNode{root: top}

	var get func(path string) *TreeNode
	get = func(path string) *TreeNode {
		if n, ok := index[path]; ok {
			return n
		}
		i := strings.LastIndex(path, "/")
		parentPath := path[:i]
		if parentPath == "" {
			parentPath = "/"
		}
		parent := get(parentPath)
		n := &TreeNode{Name: path[i+1:], Path: path}
		parent.Children = append(parent.Children, n)
		index[path] = n
		return n
	}

	for i := range entries {
		e := &entries[i]
		if e.Path != root && Relative(root, e.Path) == e.Path {
			continue
		}
		get(e.Path).Entry = e
	}

	var sortAll func(n *TreeNode)
	sortAll = func(n *TreeNode) {
		sort.Slice(n.Children, func(i, j int) bool { return n.Children[i].Name < n.Children[j].Name })
		for _, c := range n.Children {
			sortAll(c)
		}
	}
	sortAll(top)
	return top
}

// Inspector reads and writes a local tree on behalf of the device console.
type Inspector struct {
	tree *tree.Tree
}

// NewInspector creates a new inspector for t.
func NewInspector(t *tree.Tree) *Inspector {
	return &Inspector{tree: t}
}

// Tree returns the underlying tree.
func (i *Inspector) Tree() *tree.Tree {
	return i.tree
}

// Entries describes every node at or below path. A pattern path is
// expanded against its fixed prefix.
func (i *Inspector) Entries(path string) ([]Entry, error) {
	if !IsPattern(path) {
		infos, err := i.tree.Nodes(path)
		if err != nil {
			return nil, err
		}
		return FromTree(infos), nil
	}
	root := PatternRoot(path)
	canonical, err := i.tree.Canonical(root)
	if err != nil {
		return nil, err
	}
	infos, err := i.tree.Nodes(canonical)
	if err != nil {
		return nil, err
	}
	return filterEntries(rebase(path, root, canonical), FromTree(infos)), nil
}

// Inspect returns a nested view of the subtree at path.
func (i *Inspector) Inspect(path string) (*TreeNode, error) {
	canonical, err := i.tree.Canonical(path)
	if err != nil {
		return nil, err
	}
	infos, err := i.tree.Nodes(canonical)
	if err != nil {
		return nil, err
	}
	return BuildTree(canonical, FromTree(infos)), nil
}

// Read returns the value at path.
func (i *Inspector) Read(path string) (property.Value, error) {
	return i.tree.Get(path)
}

// Write parses text according to the node's kind and writes it as a client
// write.
func (i *Inspector) Write(path, text string) (property.Value, error) {
	h, err := i.tree.Resolve(path)
	if err != nil {
		return property.Value{}, err
	}
	v, err := ParseValue(h.Kind(), text)
	if err != nil {
		return property.Value{}, err
	}
	if err := h.Set(v); err != nil {
		return property.Value{}, err
	}
	return h.Get()
}

// rebase replaces the root prefix of pattern with canonical.
func rebase(pattern, root, canonical string) string {
	rest := strings.TrimPrefix(pattern, root)
	if canonical == "/" {
		return "/" + strings.TrimPrefix(rest, "/")
	}
	return canonical + rest
}

func filterEntries(pattern string, entries []Entry) []Entry {
	out := entries[:0]
	for _, e := range entries {
		if Match(pattern, e.Path) {
			out = append(out, e)
		}
	}
	return out
}
