package algorithms

import (
	"context"

	"flowengine/internal/graph"
	"flowengine/pkg/apperror"
)

// =============================================================================
// Successive Shortest Path (Min-Cost Flow)
// =============================================================================
//
// Repeatedly augments along a cheapest source-sink path in the residual graph.
// Bellman-Ford gives the initial potentials, so negative costs are accepted as
// long as no negative cycle is reachable from the source. Afterwards each path
// is found by Dijkstra on reduced costs and the potentials are advanced by the
// new distances, which keeps every reduced cost non-negative.
//
// Each augmentation is cheapest among all augmentations of the current flow,
// so the flow after every step is a minimum-cost flow of its value.
//
// Time Complexity: O(V × E + F × E log V), F = number of augmentations
// Space Complexity: O(V + E)
//
// References:
//   - Ahuja, Magnanti, Orlin (1993). "Network Flows", chapter 9
// =============================================================================

// MinCostFlowResult contains the result of a min-cost flow algorithm.
type MinCostFlowResult struct {
	// Flow is the value routed from source to sink by this run.
	Flow uint64

	// Cost is the total cost of all flow on the graph.
	Cost int64

	// Iterations counts augmentations and canceled cycles.
	Iterations int

	// Paths holds augmentations when ReturnPaths is enabled.
	Paths []FlowPath

	// Status reports how the run ended.
	Status FlowStatus

	// Canceled indicates whether the context ended first.
	Canceled bool
}

// negativeCycleError reports a negative cycle that would make the cost unbounded.
func negativeCycleError(source int) error {
	return apperror.Newf(apperror.CodeNegativeCycle,
		"residual graph has a negative-cost cycle reachable from source %d", source)
}

// SuccessiveShortestPath computes a minimum-cost flow of value target (or of
// maximum value when target is nil).
//
// Returns a NEGATIVE_CYCLE error if a negative-cost cycle is reachable from
// the source. An unreachable target is not an error: Status reports
// BelowTarget or Infeasible and the result carries the maximum flow.
func SuccessiveShortestPath(ctx context.Context, g *graph.Graph, source, sink int, target *FlowTarget, options *SolverOptions) (*MinCostFlowResult, error) {
	options = options.orDefault()
	result := &MinCostFlowResult{}

	if source == sink {
		result.Cost = g.TotalCost()
		result.Status = statusFor(0, target)
		return result, nil
	}

	init := BellmanFord(ctx, g, source)
	if init.Canceled {
		return canceledMinCost(g, result), nil
	}
	if init.NegativeCycle {
		return nil, negativeCycleError(source)
	}

	potential := make([]int64, g.NodeCount())
	for v, d := range init.Dist {
		if d != Unreachable {
			potential[v] = d
		}
	}

	limit := target.limit()
	for result.Flow < limit {
		if ctx.Err() != nil {
			return canceledMinCost(g, result), nil
		}
		if options.limitReached(result.Iterations) {
			result.Cost = g.TotalCost()
			result.Status = StatusIterationLimit
			return result, nil
		}

		sp := Dijkstra(ctx, g, source, potential)
		if sp.Canceled {
			return canceledMinCost(g, result), nil
		}
		if sp.Dist[sink] == Unreachable {
			break
		}
		for v, d := range sp.Dist {
			if d != Unreachable {
				potential[v] += d
			}
		}

		path := graph.ReconstructPath(g, sp.ParentEdge, source, sink)
		delta := graph.Bottleneck(g, path)
		if remaining := limit - result.Flow; remaining < uint64(delta) {
			delta = int64(remaining)
		}
		if delta <= 0 {
			break
		}

		graph.Augment(g, path, delta)
		result.Flow += uint64(delta)
		result.Iterations++
		if options.ReturnPaths {
			result.Paths = append(result.Paths, newFlowPath(g, path, delta))
		}
	}

	result.Cost = g.TotalCost()
	result.Status = statusFor(result.Flow, target)
	return result, nil
}

func canceledMinCost(g *graph.Graph, result *MinCostFlowResult) *MinCostFlowResult {
	result.Canceled = true
	result.Cost = g.TotalCost()
	result.Status = StatusCanceled
	return result
}
