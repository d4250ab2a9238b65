// Package callgraph implements the whole-program method call graph.
//
// Nodes are keyed by method identity (owner.name+descriptor) and numbered in
// insertion order; adjacency and visited sets are roaring bitmaps over those
// numbers. Edges are never removed.
package callgraph

import (
	"errors"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/deadwood/pkg/models"
)

// ErrFrozen is returned when an edge is added after Freeze.
var ErrFrozen = errors.New("call graph is frozen")

// Node is a method in the call graph.
type Node struct {
	Method *models.Method
	id     uint32
	out    *roaring.Bitmap
	in     *roaring.Bitmap
}

// Key returns the node identity key.
func (n *Node) Key() string { return n.Method.Key() }

// ID returns the dense node number.
func (n *Node) ID() uint32 { return n.id }

// InDegree returns the number of distinct callers.
func (n *Node) InDegree() int { return int(n.in.GetCardinality()) }

// Graph is a directed graph of methods.
type Graph struct {
	nodes  []*Node
	index  map[string]uint32
	edges  int
	frozen bool
}

// New creates an empty call graph.
func New() *Graph {
	return &Graph{index: make(map[string]uint32)}
}

// FromProgram adds every method, then every static call edge whose callee is
// part of the program.
func FromProgram(methods []*models.Method) *Graph {
	g := New()
	for _, m := range methods {
		g.AddMethod(m)
	}
	for _, m := range methods {
		caller := m.Key()
		for _, in := range m.Instructions {
			if in.Tag == models.TagMethodCall && in.Ref != "" {
				_, _ = g.AddCall(caller, in.Ref)
			}
		}
	}
	return g
}

// AddMethod inserts a node for m. It is idempotent: an existing node with
// the same key is returned unchanged.
func (g *Graph) AddMethod(m *models.Method) *Node {
	key := m.Key()
	if id, ok := g.index[key]; ok {
		return g.nodes[id]
	}
	n := &Node{
		Method: m,
		id:     uint32(len(g.nodes)),
		out:    roaring.New(),
		in:     roaring.New(),
	}
	g.index[key] = n.id
	g.nodes = append(g.nodes, n)
	return n
}

// AddCall records a caller -> callee edge. The edge is dropped silently when
// either endpoint is unknown. It reports whether a new edge was added.
func (g *Graph) AddCall(caller, callee string) (bool, error) {
	if g.frozen {
		return false, ErrFrozen
	}
	from, ok := g.index[caller]
	if !ok {
		return false, nil
	}
	to, ok := g.index[callee]
	if !ok {
		return false, nil
	}
	if !g.nodes[from].out.CheckedAdd(to) {
		return false, nil
	}
	g.nodes[to].in.Add(from)
	g.edges++
	return true, nil
}

// Freeze forbids further edge insertion.
func (g *Graph) Freeze() { g.frozen = true }

// Frozen reports whether Freeze was called.
func (g *Graph) Frozen() bool { return g.frozen }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int { return g.edges }

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Node looks up a node by key.
func (g *Graph) Node(key string) (*Node, bool) {
	id, ok := g.index[key]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// Outgoing returns the sorted callee keys of key.
func (g *Graph) Outgoing(key string) []string {
	n, ok := g.Node(key)
	if !ok {
		return nil
	}
	return g.Keys(n.out)
}

// Incoming returns the sorted caller keys of key.
func (g *Graph) Incoming(key string) []string {
	n, ok := g.Node(key)
	if !ok {
		return nil
	}
	return g.Keys(n.in)
}

// ReachableFrom returns the sorted keys reachable from key, key included.
// An unknown key yields nil.
func (g *Graph) ReachableFrom(key string) []string {
	if _, ok := g.index[key]; !ok {
		return nil
	}
	return g.Keys(g.ReachableSet(key))
}

// ReachableSet runs a breadth-first search from every known start key and
// returns the visited node numbers. Unknown keys are ignored.
func (g *Graph) ReachableSet(starts ...string) *roaring.Bitmap {
	visited := roaring.New()
	queue := make([]uint32, 0, len(starts))
	for _, s := range starts {
		id, ok := g.index[s]
		if !ok {
			continue
		}
		if visited.CheckedAdd(id) {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		it := g.nodes[id].out.Iterator()
		for it.HasNext() {
			next := it.Next()
			if visited.CheckedAdd(next) {
				queue = append(queue, next)
			}
		}
	}
	return visited
}

// Keys maps node numbers back to sorted keys.
func (g *Graph) Keys(ids *roaring.Bitmap) []string {
	keys := make([]string, 0, ids.GetCardinality())
	it := ids.Iterator()
	for it.HasNext() {
		id := it.Next()
		if int(id) < len(g.nodes) {
			keys = append(keys, g.nodes[id].Key())
		}
	}
	sort.Strings(keys)
	return keys
}

// IDs maps keys to node numbers, skipping unknown keys.
func (g *Graph) IDs(keys []string) *roaring.Bitmap {
	bm := roaring.New()
	for _, k := range keys {
		if id, ok := g.index[k]; ok {
			bm.Add(id)
		}
	}
	return bm
}
