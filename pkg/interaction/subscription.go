package interaction

import (
	"sync"

	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/tree"
)

// watchSet keeps one tree callback per node for all remote subscriptions
// that cover it. Callbacks only record into the subscription manager.
type watchSet struct {
	mu      sync.Mutex
	tree    *tree.Tree
	record  func(path string, v property.Value)
	byNode  map[string]*watch
	bySubID map[uint32][]string
}

type watch struct {
	handle *tree.Handle
	sub    *property.Subscription
	refs   int
}

func newWatchSet(t *tree.Tree, record func(string, property.Value)) *watchSet {
	return &watchSet{
		tree:    t,
		record:  record,
		byNode:  make(map[string]*watch),
		bySubID: make(map[uint32][]string),
	}
}

// add watches every node in infos on behalf of subscription id. Nodes that
// vanish before they can be watched are skipped.
func (w *watchSet) add(id uint32, infos []tree.NodeInfo) {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(infos))
	for _, info := range infos {
		refs := 1
		if existing, ok := w.byNode[info.Path]; ok {
			if existing.handle.Alive() {
				existing.refs++
				paths = append(paths, info.Path)
				continue
			}
			// Node was recreated; older subscriptions still hold references.
			refs += existing.refs
		}
		h, err := w.tree.Resolve(info.Path)
		if err != nil {
			continue
		}
		sub, err := h.Subscribe(property.Notify(func(c property.Change) {
			w.record(c.Path, c.Value)
		}))
		if err != nil {
			continue
		}
		w.byNode[info.Path] = &watch{handle: h, sub: sub, refs: refs}
		paths = append(paths, info.Path)
	}
	w.bySubID[id] = paths
}

// remove drops the watches held for subscription id.
func (w *watchSet) remove(id uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, path := range w.bySubID[id] {
		wt, ok := w.byNode[path]
		if !ok {
			continue
		}
		wt.refs--
		if wt.refs <= 0 {
			wt.sub.Unsubscribe()
			delete(w.byNode, path)
		}
	}
	delete(w.bySubID, id)
}

func (w *watchSet) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.byNode)
}
