package algorithms

import (
	"context"
	"math"
	"slices"

	"flowengine/internal/graph"
)

// =============================================================================
// Bellman-Ford Algorithm
// =============================================================================
//
// Computes shortest residual-cost distances from a source over records with
// positive residual capacity. Unlike Dijkstra it handles negative costs and
// detects negative cycles.
//
// Time Complexity: O(V × E)
// Space Complexity: O(V)
//
// Use Cases:
//   - Initial potentials for successive shortest paths
//   - Detecting negative residual cycles (cycle canceling)
//
// Algorithm:
//  1. Initialize distances: dist[source] = 0, dist[v] = Unreachable otherwise
//  2. Repeat V-1 times: relax all records, stopping early if nothing changed
//  3. A relaxation in one more pass proves a negative cycle
//
// References:
//   - Bellman, R. (1958). "On a routing problem"
//   - Ford, L.R. (1956). "Network Flow Theory"
// =============================================================================

// Unreachable is the distance of nodes that a shortest path search did not reach.
const Unreachable int64 = math.MaxInt64

// ShortestPathResult holds the outcome of a single-source shortest path search.
type ShortestPathResult struct {
	// Dist[v] is the shortest residual cost from the source, or Unreachable.
	Dist []int64

	// ParentEdge[v] is the last record on the shortest path to v, or graph.NoEdge.
	ParentEdge []graph.EdgeID

	// NegativeCycle is set when a negative cycle is reachable from the source.
	// Dist is then not meaningful.
	NegativeCycle bool

	// Canceled indicates whether the search stopped on context cancellation.
	Canceled bool
}

// BellmanFord computes shortest residual-cost distances from source.
func BellmanFord(ctx context.Context, g *graph.Graph, source int) *ShortestPathResult {
	n := g.NodeCount()
	res := &ShortestPathResult{
		Dist:       make([]int64, n),
		ParentEdge: make([]graph.EdgeID, n),
	}
	for v := range n {
		res.Dist[v] = Unreachable
		res.ParentEdge[v] = graph.NoEdge
	}
	if !g.HasNode(source) {
		return res
	}
	res.Dist[source] = 0

	for pass := range n {
		if pass%checkInterval == 0 && ctx.Err() != nil {
			res.Canceled = true
			return res
		}
		if _, changed := relaxPass(g, res.Dist, res.ParentEdge, nil); !changed {
			return res
		}
	}

	// Still relaxing after n passes: the last pass found a negative cycle.
	res.NegativeCycle = true
	return res
}

// relaxPass relaxes every residual record whose endpoints are allowed (nil
// allows all) once. It returns the last node whose distance decreased and
// whether any did.
func relaxPass(g *graph.Graph, dist []int64, parent []graph.EdgeID, allowed []bool) (int, bool) {
	last := -1
	for u := range g.NodeCount() {
		if dist[u] == Unreachable || (allowed != nil && !allowed[u]) {
			continue
		}
		for _, id := range g.Adjacent(u) {
			if g.Residual(id) <= 0 {
				continue
			}
			v := g.Head(id)
			if allowed != nil && !allowed[v] {
				continue
			}
			if nd := dist[u] + g.Cost(id); nd < dist[v] {
				dist[v] = nd
				parent[v] = id
				last = v
			}
		}
	}
	return last, last >= 0
}

// FindNegativeCycle returns the records of a negative-cost cycle in the
// residual graph, in traversal order, or nil if none exists. Only nodes with
// allowed[v] set take part; a nil allowed admits every node.
//
// Every node starts at distance 0, as if joined to a virtual source, so
// cycles anywhere in the allowed subgraph are found.
func FindNegativeCycle(g *graph.Graph, allowed []bool) []graph.EdgeID {
	n := g.NodeCount()
	if n == 0 {
		return nil
	}
	dist := make([]int64, n)
	parent := make([]graph.EdgeID, n)
	for v := range n {
		parent[v] = graph.NoEdge
	}

	last := -1
	for range n {
		x, changed := relaxPass(g, dist, parent, allowed)
		if !changed {
			return nil
		}
		last = x
	}

	// Walking n parents from a node relaxed in pass n lands on the cycle.
	x := last
	for range n {
		id := parent[x]
		if id == graph.NoEdge {
			return nil
		}
		x = g.Tail(id)
	}

	var cycle []graph.EdgeID
	for v := x; ; {
		id := parent[v]
		if id == graph.NoEdge || len(cycle) > n {
			return nil
		}
		cycle = append(cycle, id)
		v = g.Tail(id)
		if v == x {
			break
		}
	}
	slices.Reverse(cycle)
	return cycle
}
