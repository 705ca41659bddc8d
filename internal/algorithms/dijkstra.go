package algorithms

import (
	"container/heap"
	"context"

	"flowengine/internal/graph"
)

// =============================================================================
// Dijkstra's Algorithm with Potentials
// =============================================================================
//
// Shortest paths over reduced costs c'(u,v) = c(u,v) + π(u) - π(v). With
// potentials taken from previous shortest distances every residual record has
// c' >= 0, which is what successive shortest paths relies on.
//
// Time Complexity: O((V + E) log V) with binary heap
// Space Complexity: O(V)
//
// References:
//   - Dijkstra, E. W. (1959). "A note on two problems in connexion with graphs"
//   - Edmonds, J. & Karp, R.M. (1972), potentials for min-cost flow
// =============================================================================

// priorityQueueItem represents an element in the priority queue.
type priorityQueueItem struct {
	node     int
	distance int64
	index    int
}

// priorityQueue is a min-heap on distance, tie-broken by node ID for determinism.
type priorityQueue []*priorityQueueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].distance != pq[j].distance {
		return pq[i].distance < pq[j].distance
	}
	return pq[i].node < pq[j].node
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*priorityQueueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// Dijkstra computes shortest reduced-cost distances from source. potential
// must make every residual reduced cost non-negative; a nil potential uses
// raw costs, which must then be non-negative.
func Dijkstra(ctx context.Context, g *graph.Graph, source int, potential []int64) *ShortestPathResult {
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

	reduced := func(id graph.EdgeID) int64 {
		c := g.Cost(id)
		if potential != nil {
			c += potential[g.Tail(id)] - potential[g.Head(id)]
		}
		return c
	}

	pq := make(priorityQueue, 0, n)
	heap.Push(&pq, &priorityQueueItem{node: source})

	done := make([]bool, n)
	iterations := 0
	for pq.Len() > 0 {
		if iterations%checkInterval == 0 && ctx.Err() != nil {
			res.Canceled = true
			return res
		}
		iterations++

		current := heap.Pop(&pq).(*priorityQueueItem)
		u := current.node
		// Skip stale entries.
		if done[u] || current.distance > res.Dist[u] {
			continue
		}
		done[u] = true

		for _, id := range g.Adjacent(u) {
			if g.Residual(id) <= 0 {
				continue
			}
			v := g.Head(id)
			if done[v] {
				continue
			}
			if nd := res.Dist[u] + reduced(id); nd < res.Dist[v] {
				res.Dist[v] = nd
				res.ParentEdge[v] = id
				heap.Push(&pq, &priorityQueueItem{node: v, distance: nd})
			}
		}
	}

	return res
}
