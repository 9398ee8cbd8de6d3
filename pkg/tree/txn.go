package tree

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/radiotree/radiotree-go/pkg/log"
	"github.com/radiotree/radiotree-go/pkg/property"
)

// Txn is an in-progress coordinated update. It is only valid inside the
// function passed to Update or CreateNodes, while the tree write lock is held.
type Txn struct {
	tree     *Tree
	base     Path
	origin   Path
	internal bool

	journal []journalEntry
	created []*property.Node
	undo    []func() error

	// err is the first failure inside a callback chain. It fails the whole
	// update even when an intermediate callback drops it.
	err error
}

type journalEntry struct {
	node *property.Node
	snap property.Snapshot
}

func (t *Tree) newTxn(base, origin Path, internal bool) *Txn {
	return &Txn{tree: t, base: base, origin: origin, internal: internal}
}

// Base returns the path that relative Txn paths resolve against.
func (tx *Txn) Base() Path { return tx.base }

// Get reads a node relative to the base path.
func (tx *Txn) Get(path string) (property.Value, error) {
	p, err := tx.base.Resolve(path)
	if err != nil {
		return property.Value{}, err
	}
	n, err := tx.tree.resolveLocked(p)
	if err != nil {
		return property.Value{}, err
	}
	return n.Get(), nil
}

// Set writes a node relative to the base path, running its subscribers.
func (tx *Txn) Set(path string, v property.Value) error {
	p, err := tx.base.Resolve(path)
	if err != nil {
		return err
	}
	tx.origin = p
	return tx.set(p, v, 0, tx.internal)
}

// CreateNode creates a node relative to the base path. It is removed again
// if the update fails.
func (tx *Txn) CreateNode(path string, initial property.Value, coercer property.Coercer, meta *property.Metadata) (*Handle, error) {
	p, err := tx.base.Resolve(path)
	if err != nil {
		return nil, err
	}
	n, err := tx.tree.createLocked(p, initial, coercer, meta)
	if err != nil {
		return nil, err
	}
	tx.created = append(tx.created, n)
	return &Handle{tree: tx.tree, node: n, path: p}, nil
}

func (tx *Txn) set(p Path, v property.Value, depth int, internal bool) error {
	if depth > tx.tree.config.MaxDepth {
		return tx.fail(&PropagationError{
			Origin: tx.origin,
			Path:   p.String(),
			Depth:  depth,
			Err:    fmt.Errorf("%w: limit %d", ErrPropagationOverflow, tx.tree.config.MaxDepth),
		})
	}
	n, err := tx.tree.resolveLocked(p)
	if err != nil {
		return tx.wrap(p.String(), depth, err)
	}
	return tx.apply(n, v, depth, internal)
}

// apply stores v on n and runs n's subscribers in registration order. Each
// subscriber receives a scope one level deeper for its own writes.
func (tx *Txn) apply(n *property.Node, v property.Value, depth int, internal bool) error {
	t := tx.tree
	prev := n.Get()
	snap, out, err := n.Apply(v, internal)
	if err != nil {
		return tx.wrap(n.Path(), depth, err)
	}
	tx.journal = append(tx.journal, journalEntry{node: n, snap: snap})

	t.emit(log.Event{
		Category: log.CategoryMutation,
		Mutation: &log.MutationEvent{
			Path:     n.Path(),
			Value:    out,
			Previous: prev,
			Desired:  v,
			Depth:    depth,
			Internal: internal,
		},
	})

	change := property.Change{Path: n.Path(), Value: out, Previous: prev}
	child := &scope{tx: tx, depth: depth + 1}
	for _, sub := range n.Subscribers() {
		start := time.Now()
		err := sub.Invoke(child, change)
		tx.observe(n.Path(), depth, time.Since(start))
		if err != nil {
			var pe *PropagationError
			if errors.As(err, &pe) {
				return tx.fail(err)
			}
			return tx.fail(&PropagationError{Origin: tx.origin, Path: n.Path(), Depth: depth, Err: err})
		}
	}
	return nil
}

// OnRollback registers fn to run if the update is undone.
func (tx *Txn) OnRollback(fn func() error) {
	tx.undo = append(tx.undo, fn)
}

// wrap reports failures of nested writes as propagation errors. A failing
// top-level write returns its cause unchanged.
func (tx *Txn) wrap(path string, depth int, err error) error {
	if depth == 0 {
		return err
	}
	return tx.fail(&PropagationError{Origin: tx.origin, Path: path, Depth: depth, Err: err})
}

// fail records err as the chain's failure unless one is already recorded.
func (tx *Txn) fail(err error) error {
	if tx.err == nil {
		tx.err = err
	}
	return err
}

// finish ends a top-level write. A recorded chain failure wins over a nil
// result; any failure rolls the whole update back.
func (tx *Txn) finish(err error) error {
	if tx.err != nil {
		err = tx.err
	}
	if err != nil {
		tx.rollback(err)
	}
	return err
}

func (tx *Txn) observe(path string, depth int, d time.Duration) {
	t := tx.tree
	threshold := t.config.SlowCallbackThreshold
	if threshold < 0 || d <= threshold {
		return
	}
	t.logger.Warn("slow property callback",
		slog.String("path", path),
		slog.Duration("duration", d),
		slog.Int("depth", depth))
	t.emit(log.Event{
		Category: log.CategoryDiagnostic,
		Diagnostic: &log.DiagnosticEvent{
			Kind:     log.DiagnosticSlowCallback,
			Path:     path,
			Duration: d,
		},
	})
}

// rollback restores every journaled node and removes created nodes, newest
// first. Subscribers are not notified of the restored values.
func (tx *Txn) rollback(cause error) {
	t := tx.tree
	for i := len(tx.undo) - 1; i >= 0; i-- {
		if err := tx.undo[i](); err != nil {
			t.logger.Warn("rollback hook failed",
				slog.String("origin", tx.origin.String()),
				slog.Any("error", err))
		}
	}
	tx.undo = nil
	for i := len(tx.journal) - 1; i >= 0; i-- {
		e := tx.journal[i]
		e.node.Restore(e.snap)
	}
	for i := len(tx.created) - 1; i >= 0; i-- {
		n := tx.created[i]
		n.Kill()
		delete(t.nodes, n.Path())
	}
	if len(tx.journal) == 0 && len(tx.created) == 0 {
		return
	}
	t.logger.Debug("property update rolled back",
		slog.String("origin", tx.origin.String()),
		slog.Int("restored", len(tx.journal)),
		slog.Int("removed", len(tx.created)),
		slog.Any("error", cause))
	t.emit(log.Event{
		Category: log.CategoryDiagnostic,
		Diagnostic: &log.DiagnosticEvent{
			Kind:    log.DiagnosticRollback,
			Path:    tx.origin.String(),
			Count:   len(tx.journal) + len(tx.created),
			Message: cause.Error(),
		},
	})
	tx.journal = nil
	tx.created = nil
}

// scope is the property.Tx handed to subscriber callbacks.
type scope struct {
	tx    *Txn
	depth int
}

func (s *scope) Get(path string) (property.Value, error) {
	p, err := ParsePath(path)
	if err != nil {
		return property.Value{}, err
	}
	n, err := s.tx.tree.resolveLocked(p)
	if err != nil {
		return property.Value{}, err
	}
	return n.Get(), nil
}

// Set performs a device-side write one level deeper in the chain.
func (s *scope) Set(path string, v property.Value) error {
	p, err := ParsePath(path)
	if err != nil {
		return s.tx.wrap(path, s.depth, err)
	}
	return s.tx.set(p, v, s.depth, true)
}

func (s *scope) Depth() int { return s.depth }

func (s *scope) OnRollback(fn func() error) { s.tx.OnRollback(fn) }
