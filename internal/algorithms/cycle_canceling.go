package algorithms

import (
	"context"

	"flowengine/internal/graph"
)

// =============================================================================
// Cycle Canceling (Min-Cost Flow)
// =============================================================================
//
// Klein's method: route the requested amount with Edmonds-Karp ignoring cost,
// then push flow around negative-cost residual cycles until none remain.
// Canceling a cycle keeps the flow value and strictly lowers the cost, and a
// flow is of minimum cost exactly when its residual graph has no negative
// cycle.
//
// Only nodes reachable from the source before the run take part in the
// search. Flow never leaves that region, so cycles outside it cannot change
// the cost of the routed flow.
//
// Time Complexity: O(V × E² × C × U), pseudo-polynomial
// Space Complexity: O(V + E)
//
// References:
//   - Klein, M. (1967). "A primal method for minimal cost flows"
// =============================================================================

// CycleCanceling computes a minimum-cost flow of value target (or of maximum
// value when target is nil). Results match SuccessiveShortestPath in flow
// value and cost; the routing may differ when several optima exist.
func CycleCanceling(ctx context.Context, g *graph.Graph, source, sink int, target *FlowTarget, options *SolverOptions) (*MinCostFlowResult, error) {
	options = options.orDefault()
	result := &MinCostFlowResult{}

	if source == sink {
		result.Cost = g.TotalCost()
		result.Status = statusFor(0, target)
		return result, nil
	}

	region := graph.Reachable(g, source)
	if FindNegativeCycle(g, region) != nil {
		return nil, negativeCycleError(source)
	}

	routed := edmondsKarp(ctx, g, source, sink, target.limit(), options)
	result.Flow = routed.MaxFlow
	result.Iterations = routed.Iterations
	result.Paths = routed.Paths
	switch {
	case routed.Canceled:
		return canceledMinCost(g, result), nil
	case routed.LimitReached:
		result.Cost = g.TotalCost()
		result.Status = StatusIterationLimit
		return result, nil
	}

	for {
		if result.Iterations%checkInterval == 0 && ctx.Err() != nil {
			return canceledMinCost(g, result), nil
		}
		if options.limitReached(result.Iterations) {
			result.Cost = g.TotalCost()
			result.Status = StatusIterationLimit
			return result, nil
		}

		cycle := FindNegativeCycle(g, region)
		if cycle == nil {
			break
		}
		graph.Augment(g, cycle, graph.Bottleneck(g, cycle))
		result.Iterations++
	}

	result.Cost = g.TotalCost()
	result.Status = statusFor(result.Flow, target)
	return result, nil
}
