package algorithms

import (
	"context"

	"flowengine/internal/graph"
)

// =============================================================================
// Edmonds-Karp Algorithm
// =============================================================================
//
// Ford-Fulkerson with BFS: every augmentation uses a path with the fewest
// records, which bounds the number of augmentations by O(V × E).
//
// Time Complexity: O(V × E²)
// Space Complexity: O(V + E)
//
// Comparison with other algorithms:
//   - Slower than Dinic for large graphs (O(V × E²) vs O(V² × E))
//   - Produces one augmenting path per iteration, so path decomposition is free
//
// References:
//   - Edmonds, J. & Karp, R.M. (1972). "Theoretical improvements in
//     algorithmic efficiency for network flow problems"
// =============================================================================

// EdmondsKarp computes a maximum flow by repeated BFS augmentation.
//
// Parameters:
//   - ctx: Context for cancellation support
//   - g: The residual graph (will be modified)
//   - source, sink: Terminal nodes
//   - options: Solver options (nil for defaults)
func EdmondsKarp(ctx context.Context, g *graph.Graph, source, sink int, options *SolverOptions) *MaxFlowResult {
	return edmondsKarp(ctx, g, source, sink, ^uint64(0), options.orDefault())
}

// edmondsKarp augments until no path remains or limit units were routed.
func edmondsKarp(ctx context.Context, g *graph.Graph, source, sink int, limit uint64, options *SolverOptions) *MaxFlowResult {
	result := &MaxFlowResult{}
	if source == sink {
		return result
	}

	for result.MaxFlow < limit {
		if result.Iterations%checkInterval == 0 {
			select {
			case <-ctx.Done():
				result.Canceled = true
				return result
			default:
			}
		}
		if options.limitReached(result.Iterations) {
			result.LimitReached = true
			return result
		}

		bfs := graph.BFS(g, source, sink)
		if !bfs.Found {
			break
		}
		path := graph.ReconstructPath(g, bfs.ParentEdge, source, sink)
		if len(path) == 0 {
			break
		}

		delta := graph.Bottleneck(g, path)
		if remaining := limit - result.MaxFlow; remaining < uint64(delta) {
			delta = int64(remaining)
		}
		if delta <= 0 {
			break
		}

		graph.Augment(g, path, delta)
		result.MaxFlow += uint64(delta)
		result.Iterations++

		if options.ReturnPaths {
			result.Paths = append(result.Paths, newFlowPath(g, path, delta))
		}
	}

	return result
}
