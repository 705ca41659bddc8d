package graph

// This file implements the Breadth-First Search variants used by the flow algorithms:
//   - Augmenting path BFS (Edmonds-Karp)
//   - Level BFS for building level graphs (Dinic)
//   - Reverse BFS for exact distance labels (push-relabel global relabel)
//   - Residual reachability (minimum cut extraction)
//
// Neighbours are always visited in adjacency insertion order, so every BFS is
// deterministic for a given graph.

// Unreached marks a node that a BFS did not reach.
const Unreached = -1

// =============================================================================
// Queue Implementation
// =============================================================================

// Queue provides a FIFO queue of node identifiers for BFS traversal.
// It uses a slice with a head pointer and reuses storage between traversals.
type Queue struct {
	data []int
	head int
}

// NewQueue creates a new Queue with the specified initial capacity,
// typically the number of nodes in the graph.
func NewQueue(capacity int) *Queue {
	return &Queue{data: make([]int, 0, capacity)}
}

// Push adds an element to the end of the queue.
func (q *Queue) Push(v int) {
	q.data = append(q.data, v)
}

// Pop removes and returns the element at the front of the queue.
// Panics if the queue is empty.
func (q *Queue) Pop() int {
	v := q.data[q.head]
	q.head++
	return v
}

// Empty returns true if the queue contains no elements.
func (q *Queue) Empty() bool {
	return q.head >= len(q.data)
}

// Len returns the number of elements currently in the queue.
func (q *Queue) Len() int {
	return len(q.data) - q.head
}

// Reset clears the queue for reuse, keeping the underlying capacity.
func (q *Queue) Reset() {
	q.data = q.data[:0]
	q.head = 0
}

// =============================================================================
// Augmenting Path BFS
// =============================================================================

// BFSResult holds the outcome of an augmenting path search.
type BFSResult struct {
	// Found is true if the sink was reached.
	Found bool

	// ParentEdge[v] is the record used to reach v, or NoEdge.
	ParentEdge []EdgeID

	// Visited[v] is true if v was reached from the source.
	Visited []bool
}

// BFS finds a shortest (fewest edges) augmenting path from source to sink
// over records with positive residual capacity. The search stops as soon as
// the sink is reached.
//
// Time Complexity: O(V + E)
func BFS(g *Graph, source, sink int) *BFSResult {
	n := g.NodeCount()
	res := &BFSResult{
		ParentEdge: make([]EdgeID, n),
		Visited:    make([]bool, n),
	}
	for i := range res.ParentEdge {
		res.ParentEdge[i] = NoEdge
	}

	queue := NewQueue(n)
	queue.Push(source)
	res.Visited[source] = true

	for !queue.Empty() {
		u := queue.Pop()
		for _, id := range g.adj[u] {
			e := &g.edges[id]
			if e.Residual <= 0 || res.Visited[e.To] {
				continue
			}
			res.Visited[e.To] = true
			res.ParentEdge[e.To] = id
			if e.To == sink {
				res.Found = true
				return res
			}
			queue.Push(e.To)
		}
	}

	return res
}

// =============================================================================
// Level BFS (Dinic)
// =============================================================================

// BFSLevel computes BFS distances from source over positive-residual records
// into level, which must have NodeCount() entries. Unreachable nodes get
// Unreached. Returns true if sink was reached.
func BFSLevel(g *Graph, source, sink int, level []int, queue *Queue) bool {
	for i := range level {
		level[i] = Unreached
	}
	queue.Reset()

	level[source] = 0
	queue.Push(source)

	for !queue.Empty() {
		u := queue.Pop()
		for _, id := range g.adj[u] {
			e := &g.edges[id]
			if e.Residual > 0 && level[e.To] == Unreached {
				level[e.To] = level[u] + 1
				queue.Push(e.To)
			}
		}
	}

	return level[sink] != Unreached
}

// =============================================================================
// Reverse BFS (push-relabel)
// =============================================================================

// BFSReverse computes, for every node, the number of residual edges on a
// shortest path to sink. It walks records backwards: u is one step from v
// when the record u -> v has positive residual capacity. Unreachable nodes
// get Unreached.
func BFSReverse(g *Graph, sink int, dist []int, queue *Queue) {
	for i := range dist {
		dist[i] = Unreached
	}
	queue.Reset()

	dist[sink] = 0
	queue.Push(sink)

	for !queue.Empty() {
		v := queue.Pop()
		for _, id := range g.adj[v] {
			// id leaves v; its pair enters v from the same neighbour.
			u := g.edges[id].To
			if dist[u] != Unreached {
				continue
			}
			if g.edges[g.edges[id].Rev].Residual > 0 {
				dist[u] = dist[v] + 1
				queue.Push(u)
			}
		}
	}
}

// =============================================================================
// Reachability
// =============================================================================

// Reachable returns the set of nodes reachable from source over
// positive-residual records. After a maximum flow this is the source side of
// a minimum cut.
func Reachable(g *Graph, source int) []bool {
	seen := make([]bool, g.NodeCount())
	if !g.HasNode(source) {
		return seen
	}

	queue := NewQueue(g.NodeCount())
	queue.Push(source)
	seen[source] = true

	for !queue.Empty() {
		u := queue.Pop()
		for _, id := range g.adj[u] {
			e := &g.edges[id]
			if e.Residual > 0 && !seen[e.To] {
				seen[e.To] = true
				queue.Push(e.To)
			}
		}
	}

	return seen
}
