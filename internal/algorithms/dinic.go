package algorithms

import (
	"context"

	"flowengine/internal/graph"
)

// =============================================================================
// Dinic's Algorithm (Dinitz's Algorithm)
// =============================================================================
//
// Each phase builds a BFS level graph from the source and saturates it with a
// blocking flow: every source-sink path in the level graph loses at least one
// record. The sink distance grows strictly between phases, so there are at
// most V phases.
//
// Time Complexity: O(V² × E) general case, O(E × √V) for unit capacity graphs
// Space Complexity: O(V + E)
//
// Algorithm Phases:
//  1. BFS from source to build level graph (assigns levels to vertices)
//  2. Find blocking flow using DFS with current arc optimization
//  3. Repeat until sink is unreachable from source
//
// The blocking flow DFS is iterative and keeps the current path as a stack of
// record IDs. After an augmentation it retreats only to the tail of the first
// saturated record, and dead ends are removed from the level graph.
//
// References:
//   - Dinitz, Y. (1970). "Algorithm for solution of a problem of maximum flow
//     in a network with power estimation"
//   - Even, S. & Tarjan, R.E. (1975). "Network flow and testing graph connectivity"
// =============================================================================

// Dinic computes a maximum flow with level graphs and blocking flows.
// Iterations counts phases.
func Dinic(ctx context.Context, g *graph.Graph, source, sink int, options *SolverOptions) *MaxFlowResult {
	options = options.orDefault()
	result := &MaxFlowResult{}
	if source == sink {
		return result
	}

	scratch := graph.NewScratch(options.Pool)
	defer scratch.Release()

	n := g.NodeCount()
	level := scratch.Ints(n)
	current := scratch.Ints(n)
	queue := graph.NewQueue(n)
	path := make([]graph.EdgeID, 0, 64)

	for {
		select {
		case <-ctx.Done():
			result.Canceled = true
			return result
		default:
		}
		if options.limitReached(result.Iterations) {
			result.LimitReached = true
			return result
		}

		if !graph.BFSLevel(g, source, sink, level, queue) {
			break
		}
		clear(current)

		if !blockingFlow(ctx, g, source, sink, level, current, path, result, options) {
			result.Canceled = true
			return result
		}
		result.Iterations++
	}

	return result
}

// blockingFlow saturates the level graph and adds the routed flow to result.
// Returns false if ctx ended during the phase.
func blockingFlow(ctx context.Context, g *graph.Graph, source, sink int, level, current []int, path []graph.EdgeID, result *MaxFlowResult, options *SolverOptions) bool {
	path = path[:0]
	augmentations := 0
	u := source

	for {
		if u == sink {
			delta := graph.Bottleneck(g, path)
			graph.Augment(g, path, delta)
			result.MaxFlow += uint64(delta)
			if options.ReturnPaths {
				result.Paths = append(result.Paths, newFlowPath(g, path, delta))
			}

			augmentations++
			if augmentations%checkInterval == 0 && ctx.Err() != nil {
				return false
			}

			// Retreat to the tail of the first saturated record.
			cut := 0
			for cut < len(path) && g.Residual(path[cut]) > 0 {
				cut++
			}
			u = g.Tail(path[cut])
			path = path[:cut]
			continue
		}

		adj := g.Adjacent(u)
		advanced := false
		for current[u] < len(adj) {
			id := adj[current[u]]
			v := g.Head(id)
			if g.Residual(id) > 0 && level[v] == level[u]+1 {
				path = append(path, id)
				u = v
				advanced = true
				break
			}
			current[u]++
		}
		if advanced {
			continue
		}

		if u == source {
			return true
		}

		// Dead end: drop u from the level graph and step back.
		level[u] = graph.Unreached
		last := path[len(path)-1]
		path = path[:len(path)-1]
		u = g.Tail(last)
		current[u]++
	}
}
