package pgfailover

import (
	"sync/atomic"
)

// Registry holds the static ordered node list plus the one piece of mutable
// process-wide state: the index of the most recently successful node. The
// sticky index biases the next acquisition toward the node that last worked;
// it is only ever a hint, so concurrent last-writer-wins updates are fine.
type Registry struct {
	nodes  []Node
	sticky atomic.Int64
}

// NewRegistry creates a Registry over the given nodes. List order is
// preference order: earlier nodes are tried first, all else equal.
func NewRegistry(nodes []Node) (*Registry, error) {
	if len(nodes) == 0 {
		return nil, ErrEmptyRegistry
	}

	var r = &Registry{
		nodes: make([]Node, len(nodes)),
	}
	copy(r.nodes, nodes)

	return r, nil
}

// Size returns the number of candidate nodes.
func (r *Registry) Size() int {
	return len(r.nodes)
}

// NodeAt returns the node at position i. Callers are expected to pass
// indices already reduced modulo Size.
func (r *Registry) NodeAt(i int) Node {
	return r.nodes[i]
}

// Sticky returns the index of the last node known to satisfy a request.
func (r *Registry) Sticky() int {
	return int(r.sticky.Load())
}

// SetSticky records i as the last successful node. The value is reduced
// modulo Size so the index stored is always valid.
func (r *Registry) SetSticky(i int) {
	r.sticky.Store(int64(((i % r.Size()) + r.Size()) % r.Size()))
}
