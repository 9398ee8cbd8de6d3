package tree

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radiotree/radiotree-go/pkg/log"
	"github.com/radiotree/radiotree-go/pkg/property"
)

// maxAliasHops bounds alias-to-alias rewriting during resolution.
const maxAliasHops = 8

// DefaultSlowCallbackThreshold is the callback duration above which a
// diagnostic is emitted.
const DefaultSlowCallbackThreshold = 50 * time.Millisecond

// Config configures a Tree.
type Config struct {
	// Logger receives operational logs. Defaults to slog.Default().
	Logger *slog.Logger

	// EventLogger receives structured tree events (optional).
	EventLogger log.Logger

	// SlowCallbackThreshold is the per-callback duration that triggers a
	// diagnostic. Zero uses the default; negative disables the check.
	SlowCallbackThreshold time.Duration

	// MaxDepth caps nested writes. Zero uses property.MaxPropagationDepth.
	MaxDepth int
}

// DefaultConfig returns the default tree configuration.
func DefaultConfig() Config {
	return Config{
		SlowCallbackThreshold: DefaultSlowCallbackThreshold,
		MaxDepth:              property.MaxPropagationDepth,
	}
}

// NodeSpec describes a node to create. Path is relative to the creation root.
type NodeSpec struct {
	Path     string
	Initial  property.Value
	Coercer  property.Coercer
	Metadata *property.Metadata
}

// NodeInfo is a point-in-time description of a node.
type NodeInfo struct {
	Path    string
	Kind    property.Kind
	Value   property.Value
	Desired property.Value
	Access  property.Access
	Unit    string

	Description string
}

type alias struct {
	target Path
	stale  bool
}

// Tree is a rooted namespace of property nodes. All mutations take a single
// tree-wide write lock; reads share it.
type Tree struct {
	mu sync.RWMutex

	config    Config
	logger    *slog.Logger
	events    log.Logger
	sessionID string

	nodes   map[string]*property.Node
	aliases map[string]*alias
}

// New creates an empty tree.
func New(config Config) *Tree {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.EventLogger == nil {
		config.EventLogger = log.NoopLogger{}
	}
	if config.SlowCallbackThreshold == 0 {
		config.SlowCallbackThreshold = DefaultSlowCallbackThreshold
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = property.MaxPropagationDepth
	}
	return &Tree{
		config:    config,
		logger:    config.Logger,
		events:    config.EventLogger,
		sessionID: uuid.NewString(),
		nodes:     make(map[string]*property.Node),
		aliases:   make(map[string]*alias),
	}
}

// SessionID identifies this tree instance in event logs.
func (t *Tree) SessionID() string { return t.sessionID }

// CreateNode creates a node at an absolute path.
func (t *Tree) CreateNode(path string, initial property.Value, coercer property.Coercer, meta *property.Metadata) (*Handle, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.createLocked(p, initial, coercer, meta)
	if err != nil {
		return nil, err
	}
	return &Handle{tree: t, node: n, path: p}, nil
}

// CreateNodes creates several nodes below root as one atomic step: either
// all exist afterwards or none do.
func (t *Tree) CreateNodes(root string, specs []NodeSpec) error {
	p, err := ParsePath(root)
	if err != nil {
		return err
	}
	return t.update(p, func(tx *Txn) error {
		for _, s := range specs {
			if _, err := tx.CreateNode(s.Path, s.Initial, s.Coercer, s.Metadata); err != nil {
				return err
			}
		}
		return nil
	})
}

func (t *Tree) createLocked(p Path, initial property.Value, coercer property.Coercer, meta *property.Metadata) (*property.Node, error) {
	if p.IsRoot() {
		return nil, fmt.Errorf("%w: cannot create a node at the root", ErrInvalidPath)
	}
	key := p.String()
	if _, exists := t.nodes[key]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePath, key)
	}
	for i := p.Len(); i >= 1; i-- {
		if _, ok := t.aliases[p.Prefix(i).String()]; ok {
			return nil, fmt.Errorf("%w: %s is inside alias %s", ErrDuplicatePath, key, p.Prefix(i))
		}
	}
	n, err := property.NewNode(key, initial, coercer, meta)
	if err != nil {
		return nil, err
	}
	t.nodes[key] = n
	t.emit(log.Event{
		Category:  log.CategoryLifecycle,
		Lifecycle: &log.LifecycleEvent{Action: log.ActionNodeCreated, Path: key, Value: n.Get()},
	})
	return n, nil
}

// Resolve returns a handle to the node at path.
func (t *Tree) Resolve(path string) (*Handle, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	return t.resolvePath(p)
}

func (t *Tree) resolvePath(p Path) (*Handle, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, err := t.resolveLocked(p)
	if err != nil {
		return nil, err
	}
	return &Handle{tree: t, node: n, path: p}, nil
}

// resolveLocked maps a path, following aliases, to its node.
func (t *Tree) resolveLocked(p Path) (*property.Node, error) {
	orig := p
	for hop := 0; hop <= maxAliasHops; hop++ {
		if n, ok := t.nodes[p.String()]; ok {
			return n, nil
		}
		target, rewritten, err := t.rewriteAliasLocked(p)
		if err != nil {
			return nil, err
		}
		if !rewritten {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, orig)
		}
		p = target
	}
	return nil, fmt.Errorf("%w: alias loop at %s", ErrInvalidPath, orig)
}

// rewriteAliasLocked replaces the longest aliased prefix of p with its target.
func (t *Tree) rewriteAliasLocked(p Path) (Path, bool, error) {
	for i := p.Len(); i >= 1; i-- {
		prefix := p.Prefix(i)
		a, ok := t.aliases[prefix.String()]
		if !ok {
			continue
		}
		if a.stale {
			return Path{}, false, fmt.Errorf("%w: alias %s targets removed %s", ErrStaleReference, prefix, a.target)
		}
		rest, _ := p.TrimPrefix(prefix)
		return a.target.Append(rest), true, nil
	}
	return Path{}, false, nil
}

// canonicalLocked rewrites every alias in p, without requiring a node at the end.
func (t *Tree) canonicalLocked(p Path) (Path, error) {
	for hop := 0; hop <= maxAliasHops; hop++ {
		target, rewritten, err := t.rewriteAliasLocked(p)
		if err != nil {
			return Path{}, err
		}
		if !rewritten {
			return p, nil
		}
		p = target
	}
	return Path{}, fmt.Errorf("%w: alias loop at %s", ErrInvalidPath, p)
}

// Canonical rewrites every alias in path. The result need not name a node.
func (t *Tree) Canonical(path string) (string, error) {
	p, err := ParsePath(path)
	if err != nil {
		return "", err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, err := t.canonicalLocked(p)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

// Exists reports whether path names a node or has nodes below it.
func (t *Tree) Exists(path string) bool {
	p, err := ParsePath(path)
	if err != nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.existsLocked(p)
}

func (t *Tree) existsLocked(p Path) bool {
	if _, err := t.resolveLocked(p); err == nil {
		return true
	}
	c, err := t.canonicalLocked(p)
	if err != nil {
		return false
	}
	return len(t.keysUnderLocked(c)) > 0
}

// keysUnderLocked returns the sorted node keys at or below p.
func (t *Tree) keysUnderLocked(p Path) []string {
	key := p.String()
	prefix := key + Separator
	if p.IsRoot() {
		prefix = Separator
	}
	var keys []string
	for k := range t.nodes {
		if k == key || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Get returns the current value at path.
func (t *Tree) Get(path string) (property.Value, error) {
	h, err := t.Resolve(path)
	if err != nil {
		return property.Value{}, err
	}
	return h.Get()
}

// Set writes a value as a client: access flags apply.
func (t *Tree) Set(path string, v property.Value) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}
	return t.setPath(p, v, false)
}

// SetInternal writes a value on behalf of the device, bypassing access flags.
// Asynchronous hardware events enter the tree through here.
func (t *Tree) SetInternal(path string, v property.Value) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}
	return t.setPath(p, v, true)
}

func (t *Tree) setPath(p Path, v property.Value, internal bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	tx := t.newTxn(Root, p, internal)
	return tx.finish(tx.set(p, v, 0, internal))
}

// Update runs fn as one coordinated multi-node update. Writes made through
// the Txn are device-side. If fn or any triggered callback fails, every
// change made during the update is undone.
func (t *Tree) Update(fn func(tx *Txn) error) error {
	return t.update(Root, fn)
}

func (t *Tree) update(base Path, fn func(tx *Txn) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	tx := t.newTxn(base, base, true)
	return tx.finish(fn(tx))
}

// Subscribe registers cb on the node at path.
func (t *Tree) Subscribe(path string, cb property.Callback) (*property.Subscription, error) {
	h, err := t.Resolve(path)
	if err != nil {
		return nil, err
	}
	return h.Subscribe(cb)
}

// Subtree returns a view restricted to path and its descendants.
func (t *Tree) Subtree(path string) (*View, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, err := t.canonicalLocked(p); err != nil {
		return nil, err
	}
	return &View{tree: t, root: p}, nil
}

// RemoveSubtree destroys all nodes at or below path. Aliases that target
// the removed region become stale; aliases located inside it are dropped.
// The write lock makes removal wait for in-flight notification chains.
func (t *Tree) RemoveSubtree(path string) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err = t.removeLocked(p)
	return err
}

func (t *Tree) removeLocked(p Path) (int, error) {
	c, err := t.canonicalLocked(p)
	if err != nil {
		return 0, err
	}
	keys := t.keysUnderLocked(c)
	if len(keys) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	for _, k := range keys {
		t.nodes[k].Kill()
		delete(t.nodes, k)
	}
	for name, a := range t.aliases {
		ap := MustParsePath(name)
		switch {
		case ap.HasPrefix(c):
			delete(t.aliases, name)
		case a.target.HasPrefix(c):
			a.stale = true
		}
	}
	t.emit(log.Event{
		Category:  log.CategoryLifecycle,
		Lifecycle: &log.LifecycleEvent{Action: log.ActionSubtreeRemoved, Path: c.String(), Count: len(keys)},
	})
	t.logger.Debug("subtree removed", slog.String("path", c.String()), slog.Int("nodes", len(keys)))
	return len(keys), nil
}

// Alias makes every path under aliasPath resolve to the same path under
// target. The alias shares the target's nodes; it holds no state.
func (t *Tree) Alias(aliasPath, target string) error {
	ap, err := ParsePath(aliasPath)
	if err != nil {
		return err
	}
	tp, err := ParsePath(target)
	if err != nil {
		return err
	}
	if ap.IsRoot() {
		return fmt.Errorf("%w: cannot alias the root", ErrInvalidPath)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.aliases[ap.String()]; ok || len(t.keysUnderLocked(ap)) > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, ap)
	}
	for i := ap.Len() - 1; i >= 1; i-- {
		if _, ok := t.aliases[ap.Prefix(i).String()]; ok {
			return fmt.Errorf("%w: %s is inside alias %s", ErrDuplicatePath, ap, ap.Prefix(i))
		}
	}
	ct, err := t.canonicalLocked(tp)
	if err != nil {
		return err
	}
	if ct.HasPrefix(ap) || ap.HasPrefix(ct) {
		return fmt.Errorf("%w: alias %s overlaps its target %s", ErrInvalidPath, ap, ct)
	}
	if len(t.keysUnderLocked(ct)) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, tp)
	}
	t.aliases[ap.String()] = &alias{target: ct}
	t.emit(log.Event{
		Category:  log.CategoryLifecycle,
		Lifecycle: &log.LifecycleEvent{Action: log.ActionAliasCreated, Path: ap.String(), Target: ct.String()},
	})
	return nil
}

// Unalias removes an alias, stale or not.
func (t *Tree) Unalias(aliasPath string) error {
	ap, err := ParsePath(aliasPath)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.aliases[ap.String()]; !ok {
		return fmt.Errorf("%w: alias %s", ErrNotFound, ap)
	}
	delete(t.aliases, ap.String())
	t.emit(log.Event{
		Category:  log.CategoryLifecycle,
		Lifecycle: &log.LifecycleEvent{Action: log.ActionAliasRemoved, Path: ap.String()},
	})
	return nil
}

// Aliases returns alias paths mapped to their canonical targets.
func (t *Tree) Aliases() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.aliases))
	for name, a := range t.aliases {
		out[name] = a.target.String()
	}
	return out
}

// List returns the sorted names of the immediate children of path.
func (t *Tree) List(path string) ([]string, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.listLocked(p)
}

func (t *Tree) listLocked(p Path) ([]string, error) {
	c, err := t.canonicalLocked(p)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, k := range t.keysUnderLocked(c) {
		rel, _ := MustParsePath(k).TrimPrefix(c)
		if rel.IsRoot() {
			continue
		}
		seen[rel.segs[0]] = struct{}{}
	}
	for name := range t.aliases {
		ap := MustParsePath(name)
		if ap.Parent().Equal(c) {
			seen[ap.Base()] = struct{}{}
		}
	}
	if len(seen) == 0 && !c.IsRoot() {
		if _, ok := t.nodes[c.String()]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Nodes describes every node at or below path, sorted by path. Paths are
// canonical: nodes reached through an alias are reported under their target.
func (t *Tree) Nodes(path string) ([]NodeInfo, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodesLocked(p)
}

func (t *Tree) nodesLocked(p Path) ([]NodeInfo, error) {
	c, err := t.canonicalLocked(p)
	if err != nil {
		return nil, err
	}
	keys := t.keysUnderLocked(c)
	if len(keys) == 0 && !c.IsRoot() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	infos := make([]NodeInfo, 0, len(keys))
	for _, k := range keys {
		infos = append(infos, describe(t.nodes[k]))
	}
	return infos, nil
}

// Walk calls fn for every node at or below path, in path order. It stops at
// the first error fn returns. fn runs under the read lock and must not call
// back into the tree.
func (t *Tree) Walk(path string, fn func(NodeInfo) error) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	infos, err := t.nodesLocked(p)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if err := fn(info); err != nil {
			return err
		}
	}
	return nil
}

func describe(n *property.Node) NodeInfo {
	meta := n.Metadata()
	return NodeInfo{
		Path:    n.Path(),
		Kind:    n.Kind(),
		Value:   n.Get(),
		Desired: n.Desired(),
		Access:  meta.Access,
		Unit:    meta.Unit,

		Description: meta.Description,
	}
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// emit stamps and forwards an event to the event logger.
func (t *Tree) emit(ev log.Event) {
	ev.Timestamp = time.Now()
	ev.SessionID = t.sessionID
	ev.Layer = log.LayerTree
	t.events.Log(ev)
}
