// Package graph provides the residual network used by the flow algorithms.
//
// This package contains:
//   - Graph: an append-only edge arena with paired reverse edges
//   - Flow extraction: flow value, total cost and per-edge flow
//   - BFS utilities: residual reachability, level graphs, reverse distances
//   - Path utilities: bottleneck computation and augmentation along edge paths
//   - Pool: memory pooling for batch solves
//
// # Residual Representation
//
// Every call to AddEdge appends two records to the arena: the forward edge
// with the given capacity and cost, and its reverse edge with capacity 0 and
// cost -cost. Each record stores the arena index of its pair, so
// Rev(Rev(id)) == id always holds and the arena can be resized or copied
// without invalidating references.
//
// Flow is never stored. The flow on an edge is Capacity - Residual, which for
// a reverse edge is the negated flow of its forward pair.
//
// # Thread Safety
//
// Graph is NOT thread-safe. A solve mutates residual capacities in place and
// must be the only user of the graph while it runs. Use Clone or CloneInto to
// hand independent copies to concurrent solvers.
//
// # Example
//
//	g := graph.New(4)
//	e, _ := g.AddEdge(0, 1, 3, 0)
//	g.AddEdge(0, 2, 2, 0)
//	g.AddEdge(1, 3, 2, 0)
//	g.AddEdge(2, 3, 3, 0)
//	// ... run a solver ...
//	flow, _ := g.FlowOn(e)
package graph

import (
	"iter"
	"math"

	"flowengine/pkg/apperror"
)

// =============================================================================
// Constants
// =============================================================================

// InfiniteCapacity marks an arc whose capacity never binds.
const InfiniteCapacity int64 = math.MaxInt64

// =============================================================================
// Edge
// =============================================================================

// EdgeID is the stable arena index of an edge record.
type EdgeID int

// NoEdge is returned alongside construction errors.
const NoEdge EdgeID = -1

// Edge is a single record of the residual arena.
//
// Forward edges (even indices) carry the capacity and cost given to AddEdge.
// Reverse edges (odd indices) start with capacity 0 and cost -cost, and their
// residual equals the flow on the forward pair.
type Edge struct {
	// From and To are the endpoints of this record.
	From, To int

	// Capacity is the original capacity. Zero for reverse edges.
	Capacity int64

	// Residual is the remaining capacity in the residual graph.
	Residual int64

	// Cost per unit of flow. Reverse edges carry the negated cost.
	Cost int64

	// Rev is the arena index of the paired record.
	Rev EdgeID
}

// Flow returns the signed flow on this record.
func (e Edge) Flow() int64 {
	return e.Capacity - e.Residual
}

// HasCapacity returns true if the record has positive residual capacity.
func (e Edge) HasCapacity() bool {
	return e.Residual > 0
}

// IsReverse reports whether the record was created as a reverse edge.
func (e Edge) IsReverse() bool {
	return e.Rev%2 == 0
}

// =============================================================================
// Graph
// =============================================================================

// Graph is the residual network for one problem instance.
type Graph struct {
	edges []Edge
	adj   [][]EdgeID
}

// New creates a graph with n isolated nodes numbered [0, n).
// A negative n is treated as zero.
func New(n int) *Graph {
	if n < 0 {
		n = 0
	}
	return &Graph{
		edges: make([]Edge, 0, 2*n),
		adj:   make([][]EdgeID, n),
	}
}

// AddNode appends an isolated node and returns its identifier.
func (g *Graph) AddNode() int {
	g.adj = append(g.adj, nil)
	return len(g.adj) - 1
}

// AddNodes appends k isolated nodes and returns the identifier of the first one.
func (g *Graph) AddNodes(k int) int {
	first := len(g.adj)
	for range k {
		g.adj = append(g.adj, nil)
	}
	return first
}

// AddEdge inserts a directed edge together with its reverse edge and returns
// the identifier of the forward record.
//
// Parallel edges are kept as separate records. Self-loops are accepted and
// never carry flow in any solver.
func (g *Graph) AddEdge(from, to int, capacity, cost int64) (EdgeID, error) {
	if capacity < 0 {
		return NoEdge, apperror.Newf(apperror.CodeNegativeCapacity,
			"edge %d -> %d has negative capacity %d", from, to, capacity).
			WithField("capacity").
			WithDetails("capacity", capacity)
	}
	if !g.HasNode(from) {
		return NoEdge, apperror.Newf(apperror.CodeNodeOutOfRange,
			"edge tail %d out of range [0, %d)", from, len(g.adj)).WithField("from")
	}
	if !g.HasNode(to) {
		return NoEdge, apperror.Newf(apperror.CodeNodeOutOfRange,
			"edge head %d out of range [0, %d)", to, len(g.adj)).WithField("to")
	}

	id := EdgeID(len(g.edges))
	g.edges = append(g.edges,
		Edge{From: from, To: to, Capacity: capacity, Residual: capacity, Cost: cost, Rev: id + 1},
		Edge{From: to, To: from, Capacity: 0, Residual: 0, Cost: -cost, Rev: id},
	)
	g.adj[from] = append(g.adj[from], id)
	g.adj[to] = append(g.adj[to], id+1)

	return id, nil
}

// MustAddEdge is AddEdge for statically known inputs; it panics on error.
func (g *Graph) MustAddEdge(from, to int, capacity, cost int64) EdgeID {
	id, err := g.AddEdge(from, to, capacity, cost)
	if err != nil {
		panic(err)
	}
	return id
}

// =============================================================================
// Accessors
// =============================================================================

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.adj)
}

// EdgeCount returns the number of forward edges added through AddEdge.
func (g *Graph) EdgeCount() int {
	return len(g.edges) / 2
}

// ArenaSize returns the number of edge records, reverse edges included.
func (g *Graph) ArenaSize() int {
	return len(g.edges)
}

// HasNode reports whether u is a valid node identifier.
func (g *Graph) HasNode(u int) bool {
	return u >= 0 && u < len(g.adj)
}

// HasEdge reports whether id is a valid arena index.
func (g *Graph) HasEdge(id EdgeID) bool {
	return id >= 0 && int(id) < len(g.edges)
}

// IsForward reports whether id names a forward edge returned by AddEdge.
func (g *Graph) IsForward(id EdgeID) bool {
	return g.HasEdge(id) && id%2 == 0
}

// Edge returns a copy of the record stored at id.
func (g *Graph) Edge(id EdgeID) Edge {
	return g.edges[id]
}

// Rev returns the index of the paired record.
func (g *Graph) Rev(id EdgeID) EdgeID {
	return g.edges[id].Rev
}

// Residual returns the residual capacity of id.
func (g *Graph) Residual(id EdgeID) int64 {
	return g.edges[id].Residual
}

// Head returns the node id points to.
func (g *Graph) Head(id EdgeID) int {
	return g.edges[id].To
}

// Tail returns the node id leaves.
func (g *Graph) Tail(id EdgeID) int {
	return g.edges[id].From
}

// Cost returns the per-unit cost of id.
func (g *Graph) Cost(id EdgeID) int64 {
	return g.edges[id].Cost
}

// Adjacent returns the records leaving u, forward and reverse, in insertion order.
// The returned slice must not be modified.
func (g *Graph) Adjacent(u int) []EdgeID {
	return g.adj[u]
}

// ForwardEdges iterates over the forward edges in insertion order.
func (g *Graph) ForwardEdges() iter.Seq[EdgeID] {
	return func(yield func(EdgeID) bool) {
		for i := 0; i < len(g.edges); i += 2 {
			if !yield(EdgeID(i)) {
				return
			}
		}
	}
}

// HasNegativeCost reports whether any forward edge has a negative cost.
func (g *Graph) HasNegativeCost() bool {
	for i := 0; i < len(g.edges); i += 2 {
		if g.edges[i].Cost < 0 {
			return true
		}
	}
	return false
}

// =============================================================================
// Mutation
// =============================================================================

// Push moves delta units of residual capacity from id to its pair.
// The caller guarantees 0 <= delta <= Residual(id).
func (g *Graph) Push(id EdgeID, delta int64) {
	g.edges[id].Residual -= delta
	g.edges[g.edges[id].Rev].Residual += delta
}

// SetFlow overwrites the flow on a forward edge. Used to restore a
// previously computed assignment onto a freshly built graph.
func (g *Graph) SetFlow(id EdgeID, flow int64) error {
	if !g.IsForward(id) {
		return apperror.Newf(apperror.CodeInvalidEdge, "edge %d is not a forward edge", id)
	}
	e := &g.edges[id]
	if flow < 0 || flow > e.Capacity {
		return apperror.Newf(apperror.CodeCapacityViolation,
			"flow %d outside [0, %d] on edge %d", flow, e.Capacity, id)
	}
	e.Residual = e.Capacity - flow
	g.edges[e.Rev].Residual = flow
	return nil
}

// Reset restores every residual capacity to its original value, removing all flow.
// The structure of the graph is unchanged.
func (g *Graph) Reset() {
	for i := range g.edges {
		g.edges[i].Residual = g.edges[i].Capacity
	}
}

// Clear removes all edges and resizes the graph to n isolated nodes,
// keeping allocated storage for reuse.
func (g *Graph) Clear(n int) {
	if n < 0 {
		n = 0
	}
	g.edges = g.edges[:0]
	if cap(g.adj) >= n {
		g.adj = g.adj[:n]
	} else {
		g.adj = make([][]EdgeID, n)
	}
	for i := range g.adj {
		g.adj[i] = g.adj[i][:0]
	}
}

// Clone returns a deep copy including the current residual state.
func (g *Graph) Clone() *Graph {
	clone := &Graph{}
	g.CloneInto(clone)
	return clone
}

// CloneInto copies the graph into dst, reusing dst's storage where possible.
func (g *Graph) CloneInto(dst *Graph) {
	dst.edges = append(dst.edges[:0], g.edges...)
	if cap(dst.adj) >= len(g.adj) {
		dst.adj = dst.adj[:len(g.adj)]
	} else {
		dst.adj = make([][]EdgeID, len(g.adj))
	}
	for u, ids := range g.adj {
		dst.adj[u] = append(dst.adj[u][:0], ids...)
	}
}
