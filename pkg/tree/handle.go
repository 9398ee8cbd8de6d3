package tree

import (
	"github.com/radiotree/radiotree-go/pkg/property"
)

// Handle refers to one node. It stays bound to that node: once the node's
// subtree is removed every operation returns ErrStaleReference, even if a
// new node is later created at the same path.
type Handle struct {
	tree *Tree
	node *property.Node
	path Path
}

// Path returns the canonical path of the node.
func (h *Handle) Path() string { return h.node.Path() }

// Kind returns the node's kind.
func (h *Handle) Kind() property.Kind { return h.node.Kind() }

// Metadata returns the node's metadata.
func (h *Handle) Metadata() property.Metadata { return h.node.Metadata() }

// Alive reports whether the node still exists.
func (h *Handle) Alive() bool { return h.node.Alive() }

// Get returns the current value. It takes the tree read lock, so it never
// observes a write chain that is still in progress. Coercers and subscriber
// callbacks must use GetLocked or their Tx instead.
func (h *Handle) Get() (property.Value, error) {
	h.tree.mu.RLock()
	defer h.tree.mu.RUnlock()
	return h.GetLocked()
}

// Desired returns the last requested value before coercion.
func (h *Handle) Desired() (property.Value, error) {
	h.tree.mu.RLock()
	defer h.tree.mu.RUnlock()
	return h.DesiredLocked()
}

// GetLocked is Get for code already running under the tree write lock:
// coercers and subscriber callbacks.
func (h *Handle) GetLocked() (property.Value, error) {
	if !h.node.Alive() {
		return property.Value{}, ErrStaleReference
	}
	return h.node.Get(), nil
}

// DesiredLocked is Desired for code running under the tree write lock.
func (h *Handle) DesiredLocked() (property.Value, error) {
	if !h.node.Alive() {
		return property.Value{}, ErrStaleReference
	}
	return h.node.Desired(), nil
}

// Set writes as a client.
func (h *Handle) Set(v property.Value) error { return h.set(v, false) }

// SetInternal writes on behalf of the device.
func (h *Handle) SetInternal(v property.Value) error { return h.set(v, true) }

func (h *Handle) set(v property.Value, internal bool) error {
	t := h.tree
	t.mu.Lock()
	defer t.mu.Unlock()
	if !h.node.Alive() {
		return ErrStaleReference
	}
	tx := t.newTxn(Root, h.path, internal)
	return tx.finish(tx.apply(h.node, v, 0, internal))
}

// Subscribe registers cb on the node. It does not take the tree lock, so
// callbacks may subscribe further nodes through handles they hold.
func (h *Handle) Subscribe(cb property.Callback) (*property.Subscription, error) {
	if !h.node.Alive() {
		return nil, ErrStaleReference
	}
	return h.node.Subscribe(cb), nil
}
