package algorithms

import (
	"context"
	"math/rand/v2"
	"testing"

	"flowengine/internal/graph"
	"flowengine/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxFlow_Scenarios(t *testing.T) {
	tests := []struct {
		name         string
		nodes        int
		edges        []testEdge
		source, sink int
		expectedFlow uint64
	}{
		{
			name:         "single_edge",
			nodes:        2,
			edges:        singleEdge,
			sink:         1,
			expectedFlow: 5,
		},
		{
			name:         "diamond",
			nodes:        4,
			edges:        diamondEdges,
			sink:         3,
			expectedFlow: 4,
		},
		{
			name:         "clrs",
			nodes:        6,
			edges:        clrsEdges,
			sink:         5,
			expectedFlow: 23,
		},
		{
			name:         "crossing",
			nodes:        4,
			edges:        crossingEdges,
			sink:         3,
			expectedFlow: 2,
		},
		{
			name:         "disconnected_sink",
			nodes:        4,
			edges:        []testEdge{{0, 1, 5, 0}, {1, 2, 5, 0}},
			sink:         3,
			expectedFlow: 0,
		},
		{
			name:         "parallel_edges",
			nodes:        3,
			edges:        []testEdge{{0, 1, 3, 0}, {0, 1, 4, 0}, {1, 2, 10, 0}},
			sink:         2,
			expectedFlow: 7,
		},
		{
			name:         "inner_cycle",
			nodes:        4,
			edges:        []testEdge{{0, 1, 5, 0}, {1, 2, 5, 0}, {2, 1, 5, 0}, {2, 3, 5, 0}},
			sink:         3,
			expectedFlow: 5,
		},
		{
			name:         "infinite_inner_edge",
			nodes:        4,
			edges:        []testEdge{{0, 1, 5, 0}, {1, 2, graph.InfiniteCapacity, 0}, {2, 3, 7, 0}},
			sink:         3,
			expectedFlow: 5,
		},
		{
			name:         "zero_capacities",
			nodes:        3,
			edges:        []testEdge{{0, 1, 0, 0}, {1, 2, 0, 0}},
			sink:         2,
			expectedFlow: 0,
		},
		{
			name:         "dead_end_branch",
			nodes:        4,
			edges:        []testEdge{{0, 1, 10, 0}, {1, 2, 10, 0}, {1, 3, 3, 0}},
			sink:         3,
			expectedFlow: 3,
		},
		{
			name:  "bipartite_matching",
			nodes: 8,
			edges: []testEdge{
				{0, 1, 1, 0}, {0, 2, 1, 0}, {0, 3, 1, 0},
				{1, 4, 1, 0}, {1, 5, 1, 0}, {2, 4, 1, 0}, {3, 6, 1, 0},
				{4, 7, 1, 0}, {5, 7, 1, 0}, {6, 7, 1, 0},
			},
			sink:         7,
			expectedFlow: 3,
		},
		{
			name:         "self_loops",
			nodes:        3,
			edges:        []testEdge{{0, 0, 4, 0}, {0, 1, 2, 0}, {1, 1, 4, 0}, {1, 2, 3, 0}},
			sink:         2,
			expectedFlow: 2,
		},
		{
			name:         "edge_into_source",
			nodes:        3,
			edges:        []testEdge{{0, 1, 4, 0}, {1, 0, 4, 0}, {1, 2, 3, 0}},
			sink:         2,
			expectedFlow: 3,
		},
	}

	algorithms := append(append([]Algorithm{}, maxFlowAlgorithms...), minCostAlgorithms...)

	for _, tt := range tests {
		for _, algo := range algorithms {
			t.Run(tt.name+"/"+algo.String(), func(t *testing.T) {
				g := buildGraph(t, tt.nodes, tt.edges)

				result, err := MaxFlow(context.Background(), g, tt.source, tt.sink, algo, nil)
				require.NoError(t, err)

				assert.Equal(t, tt.expectedFlow, result.Flow, "max flow mismatch")
				assert.Equal(t, StatusOptimal, result.Status)
				assert.Equal(t, algo, result.Algorithm)
				assert.Equal(t, tt.expectedFlow, g.FlowValue(tt.source))
				assert.Equal(t, tt.expectedFlow, g.InflowValue(tt.sink))
				assert.NoError(t, graph.CheckFlow(g, tt.source, tt.sink))

				cut := MinCut(g, tt.source)
				assert.Equal(t, tt.expectedFlow, cut.Capacity, "cut capacity must equal flow")
				assert.False(t, cut.SourceSide[tt.sink])
			})
		}
	}
}

func TestMaxFlow_SourceEqualsSink(t *testing.T) {
	for _, algo := range append(append([]Algorithm{}, maxFlowAlgorithms...), minCostAlgorithms...) {
		t.Run(algo.String(), func(t *testing.T) {
			g := buildGraph(t, 3, []testEdge{{0, 1, 5, 1}, {1, 0, 5, 1}})

			result, err := MaxFlow(context.Background(), g, 1, 1, algo, nil)
			require.NoError(t, err)
			assert.Zero(t, result.Flow)
			assert.Zero(t, result.Cost)
			assert.Equal(t, StatusOptimal, result.Status)
		})
	}
}

func TestMaxFlow_RandomGraphsAgree(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for i := range 40 {
		n := 2 + rng.IntN(9)
		edges := randomGraph(rng, n, rng.IntN(4*n), 12)
		source, sink := 0, n-1

		reference := buildGraph(t, n, edges)
		want := EdmondsKarp(context.Background(), reference, source, sink, nil).MaxFlow

		for _, algo := range maxFlowAlgorithms {
			g := buildGraph(t, n, edges)
			result, err := MaxFlow(context.Background(), g, source, sink, algo, nil)
			require.NoError(t, err, "graph %d", i)

			assert.Equal(t, want, result.Flow, "graph %d algorithm %s", i, algo)
			assert.NoError(t, graph.CheckFlow(g, source, sink), "graph %d algorithm %s", i, algo)
			assert.Equal(t, want, MinCut(g, source).Capacity, "graph %d algorithm %s", i, algo)
		}
	}
}

func TestMaxFlow_LongChain(t *testing.T) {
	// Deep paths must not depend on recursion.
	const n = 50_000
	g := graph.New(n)
	for v := range n - 1 {
		g.MustAddEdge(v, v+1, 3, 0)
	}

	for _, algo := range maxFlowAlgorithms {
		t.Run(algo.String(), func(t *testing.T) {
			g.Reset()
			result, err := MaxFlow(context.Background(), g, 0, n-1, algo, nil)
			require.NoError(t, err)
			assert.Equal(t, uint64(3), result.Flow)
		})
	}
}

func TestPushRelabel_CapacityOverflow(t *testing.T) {
	edges := []testEdge{
		{0, 1, graph.InfiniteCapacity, 0},
		{0, 2, graph.InfiniteCapacity, 0},
		{1, 3, 5, 0},
		{2, 3, 5, 0},
	}

	for _, algo := range []Algorithm{AlgorithmPushRelabel, AlgorithmPushRelabelHighest} {
		t.Run(algo.String(), func(t *testing.T) {
			_, err := MaxFlow(context.Background(), buildGraph(t, 4, edges), 0, 3, algo, nil)
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.CodeCapacityOverflow))
		})
	}

	t.Run("dinic_handles_it", func(t *testing.T) {
		result, err := MaxFlow(context.Background(), buildGraph(t, 4, edges), 0, 3, AlgorithmDinic, nil)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), result.Flow)
	})
}

func TestPushRelabel_Heuristics(t *testing.T) {
	// A wide layer that cannot reach the sink forces gap relabels and
	// excess returning to the source.
	g := graph.New(12)
	for v := 1; v <= 9; v++ {
		g.MustAddEdge(0, v, 10, 0)
		if v < 9 {
			g.MustAddEdge(v, v+1, 10, 0)
		}
	}
	g.MustAddEdge(9, 10, 1, 0)
	g.MustAddEdge(10, 11, 1, 0)

	for _, run := range []func(context.Context, *graph.Graph, int, int, *SolverOptions) *MaxFlowResult{
		PushRelabel, PushRelabelHighestLabel,
	} {
		g.Reset()
		result := run(context.Background(), g, 0, 11, nil)
		assert.Equal(t, uint64(1), result.MaxFlow)
		assert.False(t, result.Canceled)
		assert.NoError(t, graph.CheckFlow(g, 0, 11))
	}
}

func TestMaxFlow_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, algo := range append(append([]Algorithm{}, maxFlowAlgorithms...), minCostAlgorithms...) {
		t.Run(algo.String(), func(t *testing.T) {
			g := buildGraph(t, 6, clrsEdges)

			result, err := MaxFlow(ctx, g, 0, 5, algo, nil)
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.CodeCanceled))
			require.NotNil(t, result)
			assert.Equal(t, StatusCanceled, result.Status)
		})
	}
}

func TestMaxFlow_IterationLimit(t *testing.T) {
	g := buildGraph(t, 4, diamondEdges)
	opts := DefaultSolverOptions().WithMaxIterations(1)

	result, err := MaxFlow(context.Background(), g, 0, 3, AlgorithmEdmondsKarp, opts)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeIterationLimit))
	require.NotNil(t, result)
	assert.Equal(t, StatusIterationLimit, result.Status)
	assert.Equal(t, uint64(2), result.Flow)
	assert.NoError(t, graph.CheckFlow(g, 0, 3), "a partial augmenting-path flow is still a flow")
}

func TestMaxFlow_ReturnPaths(t *testing.T) {
	for _, algo := range []Algorithm{AlgorithmEdmondsKarp, AlgorithmDinic, AlgorithmSuccessiveShortestPath} {
		t.Run(algo.String(), func(t *testing.T) {
			g := buildGraph(t, 4, diamondEdges)
			opts := DefaultSolverOptions().WithReturnPaths(true)

			result, err := MaxFlow(context.Background(), g, 0, 3, algo, opts)
			require.NoError(t, err)
			require.NotEmpty(t, result.Paths)

			var total uint64
			for _, p := range result.Paths {
				total += p.Flow
				require.NotEmpty(t, p.Nodes)
				assert.Equal(t, 0, p.Nodes[0])
				assert.Equal(t, 3, p.Nodes[len(p.Nodes)-1])
				assert.Len(t, p.Edges, len(p.Nodes)-1)
			}
			assert.Equal(t, result.Flow, total)
		})
	}
}

func TestMaxFlow_ResetAndResolve(t *testing.T) {
	g := buildGraph(t, 6, clrsEdges)

	first, err := MaxFlow(context.Background(), g, 0, 5, AlgorithmDinic, nil)
	require.NoError(t, err)

	g.Reset()
	second, err := MaxFlow(context.Background(), g, 0, 5, AlgorithmPushRelabel, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Flow, second.Flow)
}
