package property

import (
	"sync"
	"sync/atomic"
)

// MaxPropagationDepth bounds nested writes issued from subscriber callbacks.
const MaxPropagationDepth = 32

// Access flags for nodes.
type Access uint8

const (
	// AccessRead allows reading the node.
	AccessRead Access = 1 << iota

	// AccessWrite allows client writes. Device-side writes ignore it.
	AccessWrite

	// AccessReadOnly is read only.
	AccessReadOnly = AccessRead

	// AccessReadWrite is read and write.
	AccessReadWrite = AccessRead | AccessWrite
)

// CanRead returns true if reading is allowed.
func (a Access) CanRead() bool { return a&AccessRead != 0 }

// CanWrite returns true if client writes are allowed.
func (a Access) CanWrite() bool { return a&AccessWrite != 0 }

// String returns the access flags as a string.
func (a Access) String() string {
	var s string
	if a.CanRead() {
		s += "R"
	}
	if a.CanWrite() {
		s += "W"
	}
	if s == "" {
		return "-"
	}
	return s
}

// Metadata describes a node beyond its value.
type Metadata struct {
	// Access defines the allowed client operations. Zero means read-write.
	Access Access

	// Unit is the unit of measurement (e.g., "Hz", "dB").
	Unit string

	// Description is a human-readable description.
	Description string
}

// Change is delivered to subscribers after a successful write.
type Change struct {
	Path     string
	Value    Value
	Previous Value
}

// Tx lets a subscriber callback read and write other nodes as part of the
// write that triggered it. Writes issued through a Tx run one level deeper.
type Tx interface {
	Get(path string) (Value, error)
	Set(path string, v Value) error
	Depth() int

	// OnRollback registers fn to run if the whole write is undone. It lets
	// callbacks revert side effects outside the tree, such as hardware
	// writes. Hooks run newest first; their errors are only logged.
	OnRollback(fn func() error)
}

// Callback is invoked synchronously, in subscription order, after every
// successful write. A non-nil error aborts the whole write chain.
type Callback func(tx Tx, c Change) error

// Notify adapts a function that only observes changes into a Callback.
func Notify(fn func(Change)) Callback {
	return func(_ Tx, c Change) error {
		fn(c)
		return nil
	}
}

// Subscription is a registered callback. Unsubscribe is idempotent.
type Subscription struct {
	id       uint64
	node     *Node
	callback Callback
}

// ID returns the subscription identifier, unique per node.
func (s *Subscription) ID() uint64 { return s.id }

// Invoke runs the callback.
func (s *Subscription) Invoke(tx Tx, c Change) error { return s.callback(tx, c) }

// Unsubscribe removes the callback from its node.
func (s *Subscription) Unsubscribe() { s.node.unsubscribe(s.id) }

// Snapshot captures a node's state for rollback.
type Snapshot struct {
	value   Value
	desired Value
}

// Node is a single named, typed, observable value slot.
type Node struct {
	mu sync.RWMutex

	path     string
	kind     Kind
	coercer  Coercer
	metadata Metadata

	value   Value
	desired Value

	subscribers []*Subscription
	nextSubID   uint64

	dead atomic.Bool
}

// NewNode creates a node. The initial value fixes the node's kind and must
// pass the coercer; the coerced result becomes the current value.
func NewNode(path string, initial Value, coercer Coercer, meta *Metadata) (*Node, error) {
	if coercer == nil {
		coercer = Identity
	}
	n := &Node{
		path:    path,
		kind:    initial.Kind(),
		coercer: coercer,
	}
	if meta != nil {
		n.metadata = *meta
	}
	if n.metadata.Access == 0 {
		n.metadata.Access = AccessReadWrite
	}
	if !initial.IsValid() {
		return nil, &ValidationError{Path: path, Value: initial, Reason: "initial value is invalid"}
	}
	v, err := n.Coerce(initial)
	if err != nil {
		return nil, err
	}
	n.value = v
	n.desired = initial
	return n, nil
}

// Path returns the node's canonical path.
func (n *Node) Path() string { return n.path }

// Kind returns the node's declared kind.
func (n *Node) Kind() Kind { return n.kind }

// Metadata returns the node metadata.
func (n *Node) Metadata() Metadata { return n.metadata }

// Get returns the current (coerced) value.
func (n *Node) Get() Value {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.value
}

// Desired returns the value most recently requested by a writer, before coercion.
func (n *Node) Desired() Value {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.desired
}

// Coerce runs the coercer without storing the result.
func (n *Node) Coerce(v Value) (Value, error) {
	if v.Kind() != n.kind {
		return Value{}, &ValidationError{Path: n.path, Value: v, Reason: "expected " + n.kind.String()}
	}
	out, err := n.coercer(v)
	if err != nil {
		if ve, ok := err.(*ValidationError); ok && ve.Path == "" {
			cp := *ve
			cp.Path = n.path
			return Value{}, &cp
		}
		return Value{}, &ValidationError{Path: n.path, Value: v, Reason: err.Error()}
	}
	if out.Kind() != n.kind {
		return Value{}, &ValidationError{Path: n.path, Value: out, Reason: "coercer changed kind to " + out.Kind().String()}
	}
	return out, nil
}

// Apply coerces and stores v, returning the state before the write.
// Client writes (internal == false) also require AccessWrite.
func (n *Node) Apply(v Value, internal bool) (Snapshot, Value, error) {
	if n.dead.Load() {
		return Snapshot{}, Value{}, ErrStaleReference
	}
	if !internal && !n.metadata.Access.CanWrite() {
		return Snapshot{}, Value{}, &ValidationError{Path: n.path, Value: v, Reason: "read-only"}
	}
	out, err := n.Coerce(v)
	if err != nil {
		return Snapshot{}, Value{}, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	prev := Snapshot{value: n.value, desired: n.desired}
	n.value = out
	n.desired = v
	return prev, out, nil
}

// Restore puts back state captured by Apply.
func (n *Node) Restore(s Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.value = s.value
	n.desired = s.desired
}

// Subscribe registers a callback invoked after every successful write.
func (n *Node) Subscribe(cb Callback) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextSubID++
	sub := &Subscription{id: n.nextSubID, node: n, callback: cb}
	n.subscribers = append(n.subscribers, sub)
	return sub
}

func (n *Node) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, s := range n.subscribers {
		if s.id == id {
			n.subscribers = append(n.subscribers[:i:i], n.subscribers[i+1:]...)
			return
		}
	}
}

// Subscribers returns the current subscribers in registration order.
func (n *Node) Subscribers() []*Subscription {
	n.mu.RLock()
	defer n.mu.RUnlock()
	subs := make([]*Subscription, len(n.subscribers))
	copy(subs, n.subscribers)
	return subs
}

// Kill marks the node destroyed and drops its subscribers.
func (n *Node) Kill() {
	n.dead.Store(true)
	n.mu.Lock()
	n.subscribers = nil
	n.mu.Unlock()
}

// Alive reports whether the node still belongs to a tree.
func (n *Node) Alive() bool { return !n.dead.Load() }
