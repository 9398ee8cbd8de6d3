package tree

import (
	"github.com/radiotree/radiotree-go/pkg/property"
)

// View is a tree restricted to one subtree. Paths given to a View are
// relative to its root; "freq/value" and "/freq/value" are equivalent.
type View struct {
	tree *Tree
	root Path
}

// Root returns the absolute path the view is rooted at.
func (v *View) Root() Path { return v.root }

// Tree returns the underlying tree.
func (v *View) Tree() *Tree { return v.tree }

// Abs converts a view-relative path into an absolute one.
func (v *View) Abs(path string) (Path, error) { return v.root.Resolve(path) }

// CreateNode creates a node below the view root.
func (v *View) CreateNode(path string, initial property.Value, coercer property.Coercer, meta *property.Metadata) (*Handle, error) {
	p, err := v.Abs(path)
	if err != nil {
		return nil, err
	}
	t := v.tree
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.createLocked(p, initial, coercer, meta)
	if err != nil {
		return nil, err
	}
	return &Handle{tree: t, node: n, path: p}, nil
}

// CreateNodes creates nodes below the view root atomically.
func (v *View) CreateNodes(specs []NodeSpec) error {
	return v.tree.update(v.root, func(tx *Txn) error {
		for _, s := range specs {
			if _, err := tx.CreateNode(s.Path, s.Initial, s.Coercer, s.Metadata); err != nil {
				return err
			}
		}
		return nil
	})
}

// Resolve returns a handle to a node below the view root.
func (v *View) Resolve(path string) (*Handle, error) {
	p, err := v.Abs(path)
	if err != nil {
		return nil, err
	}
	return v.tree.resolvePath(p)
}

// Get returns the value of a node below the view root.
func (v *View) Get(path string) (property.Value, error) {
	h, err := v.Resolve(path)
	if err != nil {
		return property.Value{}, err
	}
	return h.Get()
}

// Set writes a node below the view root as a client.
func (v *View) Set(path string, val property.Value) error {
	p, err := v.Abs(path)
	if err != nil {
		return err
	}
	return v.tree.setPath(p, val, false)
}

// SetInternal writes a node below the view root on behalf of the device.
func (v *View) SetInternal(path string, val property.Value) error {
	p, err := v.Abs(path)
	if err != nil {
		return err
	}
	return v.tree.setPath(p, val, true)
}

// Subscribe registers cb on a node below the view root. Paths passed to the
// callback's Tx are relative to the view root as well.
func (v *View) Subscribe(path string, cb property.Callback) (*property.Subscription, error) {
	h, err := v.Resolve(path)
	if err != nil {
		return nil, err
	}
	root := v.root
	return h.Subscribe(func(tx property.Tx, c property.Change) error {
		return cb(&viewTx{Tx: tx, root: root}, c)
	})
}

// Update runs fn with a Txn based at the view root.
func (v *View) Update(fn func(tx *Txn) error) error {
	return v.tree.update(v.root, fn)
}

// Exists reports whether a node or subtree exists below the view root.
func (v *View) Exists(path string) bool {
	p, err := v.Abs(path)
	if err != nil {
		return false
	}
	t := v.tree
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.existsLocked(p)
}

// List returns the sorted child names of a path below the view root.
func (v *View) List(path string) ([]string, error) {
	p, err := v.Abs(path)
	if err != nil {
		return nil, err
	}
	t := v.tree
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.listLocked(p)
}

// Nodes describes every node below a path relative to the view root.
func (v *View) Nodes(path string) ([]NodeInfo, error) {
	p, err := v.Abs(path)
	if err != nil {
		return nil, err
	}
	t := v.tree
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodesLocked(p)
}

// Subtree narrows the view further.
func (v *View) Subtree(path string) (*View, error) {
	p, err := v.Abs(path)
	if err != nil {
		return nil, err
	}
	return v.tree.Subtree(p.String())
}

// RemoveSubtree removes a subtree below the view root. Passing "" removes
// the whole view, after which the view has nothing left to resolve.
func (v *View) RemoveSubtree(path string) error {
	p, err := v.Abs(path)
	if err != nil {
		return err
	}
	return v.tree.RemoveSubtree(p.String())
}

type viewTx struct {
	property.Tx
	root Path
}

func (x *viewTx) abs(path string) (string, error) {
	p, err := x.root.Resolve(path)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

func (x *viewTx) Get(path string) (property.Value, error) {
	p, err := x.abs(path)
	if err != nil {
		return property.Value{}, err
	}
	return x.Tx.Get(p)
}

func (x *viewTx) Set(path string, v property.Value) error {
	p, err := x.abs(path)
	if err != nil {
		return err
	}
	return x.Tx.Set(p, v)
}
