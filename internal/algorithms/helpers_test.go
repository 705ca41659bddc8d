package algorithms

import (
	"math/rand/v2"
	"testing"

	"flowengine/internal/graph"

	"github.com/stretchr/testify/require"
)

// testEdge describes an edge for table-driven graph construction.
type testEdge struct {
	from, to       int
	capacity, cost int64
}

func buildGraph(t *testing.T, n int, edges []testEdge) *graph.Graph {
	t.Helper()
	g := graph.New(n)
	for _, e := range edges {
		_, err := g.AddEdge(e.from, e.to, e.capacity, e.cost)
		require.NoError(t, err)
	}
	return g
}

var maxFlowAlgorithms = []Algorithm{
	AlgorithmPushRelabel,
	AlgorithmPushRelabelHighest,
	AlgorithmEdmondsKarp,
	AlgorithmDinic,
}

var minCostAlgorithms = []Algorithm{
	AlgorithmSuccessiveShortestPath,
	AlgorithmCycleCanceling,
}

// Scenario graphs shared by the max-flow and min-cost tables.
var (
	singleEdge = []testEdge{{0, 1, 5, 2}}

	diamondEdges = []testEdge{
		{0, 1, 3, 1},
		{0, 2, 2, 2},
		{1, 3, 2, 3},
		{2, 3, 3, 4},
	}

	// The second cheapest path runs 0->2, back over 2->1, then 1->3, so it
	// needs the reverse record with negative cost that the first path created.
	crossingEdges = []testEdge{
		{0, 1, 1, 1},
		{0, 2, 1, 5},
		{1, 3, 1, 5},
		{1, 2, 1, 1},
		{2, 3, 1, 1},
	}

	clrsEdges = []testEdge{
		{0, 1, 16, 0},
		{0, 2, 13, 0},
		{1, 3, 12, 0},
		{2, 1, 4, 0},
		{2, 4, 14, 0},
		{3, 2, 9, 0},
		{3, 5, 20, 0},
		{4, 3, 7, 0},
		{4, 5, 4, 0},
	}
)

// randomGraph builds a graph with m random edges between distinct nodes.
func randomGraph(rng *rand.Rand, n, m int, maxCap int64) []testEdge {
	edges := make([]testEdge, 0, m)
	for range m {
		u := rng.IntN(n)
		v := rng.IntN(n - 1)
		if v >= u {
			v++
		}
		edges = append(edges, testEdge{u, v, rng.Int64N(maxCap + 1), rng.Int64N(10)})
	}
	return edges
}

// randomDAG builds edges that only go from lower to higher node indices, so
// no cycle exists and costs may be negative.
func randomDAG(rng *rand.Rand, n, m int, maxCap int64) []testEdge {
	edges := make([]testEdge, 0, m)
	for range m {
		u := rng.IntN(n - 1)
		v := u + 1 + rng.IntN(n-1-u)
		edges = append(edges, testEdge{u, v, rng.Int64N(maxCap + 1), rng.Int64N(9) - 3})
	}
	return edges
}

// bruteForceMinCost enumerates every integral flow assignment and returns the
// minimum cost for each achievable flow value from source to sink.
func bruteForceMinCost(n int, edges []testEdge, source, sink int) map[uint64]int64 {
	best := make(map[uint64]int64)
	flow := make([]int64, len(edges))

	var walk func(i int)
	walk = func(i int) {
		if i < len(edges) {
			for f := int64(0); f <= edges[i].capacity; f++ {
				flow[i] = f
				walk(i + 1)
			}
			return
		}

		balance := make([]int64, n)
		var cost int64
		for j, e := range edges {
			balance[e.from] -= flow[j]
			balance[e.to] += flow[j]
			cost += flow[j] * e.cost
		}
		for v := range n {
			if v != source && v != sink && balance[v] != 0 {
				return
			}
		}
		if balance[source] > 0 {
			return
		}
		value := uint64(-balance[source])
		if c, ok := best[value]; !ok || cost < c {
			best[value] = cost
		}
	}
	walk(0)
	return best
}
