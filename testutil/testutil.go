package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/tracegc"
)

// Node is a traced test object with mutable outgoing edges.
type Node struct {
	ID int

	mu        sync.Mutex
	refs      []tracegc.Handle
	finalized atomic.Int32
}

// NewNode creates a Node with no edges.
func NewNode(id int) *Node {
	return &Node{ID: id}
}

// Link adds edges from n to each handle.
func (n *Node) Link(hs ...tracegc.Handle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refs = append(n.refs, hs...)
}

// Unlink removes every edge from n to h.
func (n *Node) Unlink(h tracegc.Handle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refs = slices.DeleteFunc(n.refs, func(r tracegc.Handle) bool { return r == h })
}

// Refs returns a copy of n's edges.
func (n *Node) Refs() []tracegc.Handle {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.refs)
}

// TraceReferences implements tracegc.Tracer.
func (n *Node) TraceReferences(yield func(tracegc.Handle)) {
	n.mu.Lock()
	refs := slices.Clone(n.refs)
	n.mu.Unlock()

	for _, h := range refs {
		yield(h)
	}
}

// Finalize implements tracegc.Finalizer.
func (n *Node) Finalize(context.Context) {
	n.finalized.Add(1)
}

// Finalized returns how many times Finalize ran.
func (n *Node) Finalized() int {
	return int(n.finalized.Load())
}

// Graph is a set of tracked nodes registered with one collector.
type Graph struct {
	GC      *tracegc.Collector
	Nodes   []*Node
	Handles []tracegc.Handle

	byHandle map[tracegc.Handle]int
}

// NewGraph tracks n unpinned nodes. Nothing keeps them alive until they are
// pinned or reachable from a root provider.
func NewGraph(ctx context.Context, gc *tracegc.Collector, n int, tag tracegc.TypeTag) (*Graph, error) {
	g := &Graph{
		GC:      gc,
		Nodes:   make([]*Node, 0, n),
		Handles: make([]tracegc.Handle, 0, n),
		byHandle: make(map[tracegc.Handle]int, n),
	}
	for i := range n {
		node := NewNode(i)
		h, err := gc.Track(ctx, node, tag)
		if err != nil {
			return nil, fmt.Errorf("track node %d: %w", i, err)
		}
		g.byHandle[h] = i
		g.Nodes = append(g.Nodes, node)
		g.Handles = append(g.Handles, h)
	}
	return g, nil
}

// Link adds an edge from node i to node j.
func (g *Graph) Link(i, j int) {
	g.Nodes[i].Link(g.Handles[j])
}

// RandomEdges adds m random edges. Self edges are allowed.
func (g *Graph) RandomEdges(rng *RNG, m int) {
	if len(g.Nodes) == 0 {
		return
	}
	for range m {
		g.Link(rng.Intn(len(g.Nodes)), rng.Intn(len(g.Nodes)))
	}
}

// Roots returns a root provider yielding the handles of the given nodes.
func (g *Graph) Roots(nodes ...int) tracegc.StaticRoots {
	roots := make(tracegc.StaticRoots, 0, len(nodes))
	for _, i := range nodes {
		roots = append(roots, g.Handles[i])
	}
	return roots
}

// Reachable returns the set of node indices reachable from the given nodes by
// following edges, computed without the collector.
func (g *Graph) Reachable(nodes ...int) map[int]bool {
	seen := make(map[int]bool, len(g.Nodes))
	stack := slices.Clone(nodes)
	for _, i := range nodes {
		seen[i] = true
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, h := range g.Nodes[i].Refs() {
			j, ok := g.byHandle[h]
			if !ok || seen[j] {
				continue
			}
			seen[j] = true
			stack = append(stack, j)
		}
	}
	return seen
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), //nolint:gosec // deterministic test data
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewSource(r.seed)) //nolint:gosec // deterministic test data
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Perm returns a pseudo-random permutation of [0,n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// Subset returns k distinct pseudo-random values in [0,n).
func (r *RNG) Subset(n, k int) []int {
	return r.Perm(n)[:min(k, n)]
}
