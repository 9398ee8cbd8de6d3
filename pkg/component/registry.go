package component

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radiotree/radiotree-go/pkg/log"
	"github.com/radiotree/radiotree-go/pkg/tree"
)

// Registry errors.
var (
	ErrDuplicateComponent = errors.New("duplicate component")
	ErrUnknownComponent   = errors.New("unknown component")
)

// Kinds of components registered by the device layer.
const (
	KindMotherboard = "motherboard"
	KindDSP         = "dsp"
	KindBlock       = "block"
	KindTransport   = "transport"
)

// Component describes a registered component.
type Component struct {
	ID   string
	Root string
	Kind string

	// InstanceID changes on every registration, so clients can tell a
	// re-registered component from the one they saw before.
	InstanceID string

	RegisteredAt time.Time
}

type entry struct {
	info Component
	view *tree.View
}

// Config configures a Registry.
type Config struct {
	Logger      *slog.Logger
	EventLogger log.Logger
}

// Registry maps component IDs to the subtree each component owns. It holds
// views only; the tree owns the nodes.
//
// Registry methods take the registry lock and then the tree lock. They must
// not be called from property callbacks.
type Registry struct {
	mu         sync.RWMutex
	tree       *tree.Tree
	components map[string]*entry

	logger *slog.Logger
	events log.Logger
}

// NewRegistry creates an empty registry over t.
func NewRegistry(t *tree.Tree, cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.EventLogger == nil {
		cfg.EventLogger = log.NoopLogger{}
	}
	return &Registry{
		tree:       t,
		components: make(map[string]*entry),
		logger:     cfg.Logger,
		events:     cfg.EventLogger,
	}
}

// Option adjusts a registration.
type Option func(*Component)

// WithKind sets the component kind.
func WithKind(kind string) Option {
	return func(c *Component) { c.Kind = kind }
}

// Register records that the component id owns the subtree at root, which
// must already exist.
func (r *Registry) Register(id, root string, opts ...Option) (*tree.View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkFreeLocked(id); err != nil {
		return nil, err
	}
	if !r.tree.Exists(root) {
		return nil, fmt.Errorf("component %s: %w: %s", id, tree.ErrNotFound, root)
	}
	return r.addLocked(id, root, opts)
}

// RegisterWith creates the component's nodes below root and registers it in
// one step. On failure neither the nodes nor the registration remain.
func (r *Registry) RegisterWith(id, root string, specs []tree.NodeSpec, opts ...Option) (*tree.View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkFreeLocked(id); err != nil {
		return nil, err
	}
	if err := r.tree.CreateNodes(root, specs); err != nil {
		return nil, fmt.Errorf("component %s: %w", id, err)
	}
	view, err := r.addLocked(id, root, opts)
	if err != nil {
		if rmErr := r.tree.RemoveSubtree(root); rmErr != nil {
			r.logger.Error("failed to undo component nodes", slog.String("component", id), slog.Any("error", rmErr))
		}
		return nil, err
	}
	return view, nil
}

func (r *Registry) checkFreeLocked(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty component id", ErrUnknownComponent)
	}
	if _, exists := r.components[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateComponent, id)
	}
	return nil
}

func (r *Registry) addLocked(id, root string, opts []Option) (*tree.View, error) {
	view, err := r.tree.Subtree(root)
	if err != nil {
		return nil, fmt.Errorf("component %s: %w", id, err)
	}
	info := Component{
		ID:           id,
		Root:         view.Root().String(),
		InstanceID:   uuid.NewString(),
		RegisteredAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&info)
	}
	r.components[id] = &entry{info: info, view: view}

	r.logger.Debug("component registered",
		slog.String("component", id),
		slog.String("root", info.Root),
		slog.String("kind", info.Kind))
	r.emit(log.ActionComponentRegistered, info)
	return view, nil
}

// Unregister removes the component and its subtree. Components rooted inside
// that subtree are unregistered with it.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.components[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownComponent, id)
	}
	root := e.view.Root()
	for other, oe := range r.components {
		if other != id && oe.view.Root().HasPrefix(root) {
			delete(r.components, other)
			r.emit(log.ActionComponentUnregistered, oe.info)
		}
	}
	delete(r.components, id)

	err := r.tree.RemoveSubtree(root.String())
	r.emit(log.ActionComponentUnregistered, e.info)

	switch {
	case errors.Is(err, tree.ErrNotFound):
		// The subtree was already removed directly; the mapping is gone now too.
		r.logger.Debug("component subtree already removed", slog.String("component", id))
		return nil
	case err != nil:
		return fmt.Errorf("component %s: %w", id, err)
	}
	r.logger.Debug("component unregistered", slog.String("component", id))
	return nil
}

// Lookup returns the view of a component's subtree.
func (r *Registry) Lookup(id string) (*tree.View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.components[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, id)
	}
	return e.view, nil
}

// Get returns the description of a component.
func (r *Registry) Get(id string) (Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.components[id]
	if !ok {
		return Component{}, fmt.Errorf("%w: %s", ErrUnknownComponent, id)
	}
	return e.info, nil
}

// Components returns all registered components sorted by ID.
func (r *Registry) Components() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Component, 0, len(r.components))
	for _, e := range r.components {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components)
}

func (r *Registry) emit(action log.LifecycleAction, info Component) {
	r.events.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: r.tree.SessionID(),
		Layer:     log.LayerRegistry,
		Category:  log.CategoryLifecycle,
		Lifecycle: &log.LifecycleEvent{
			Action:    action,
			Path:      info.Root,
			Component: info.ID,
		},
	})
}
