package algorithms

import (
	"slices"
	"strings"

	"flowengine/internal/graph"
	"flowengine/pkg/apperror"
)

// =============================================================================
// Algorithm Registry
// =============================================================================

// Algorithm names an interchangeable implementation of the max-flow or
// min-cost flow contract.
type Algorithm string

const (
	// AlgorithmPushRelabel is FIFO push-relabel with gap and global relabel heuristics.
	AlgorithmPushRelabel Algorithm = "push_relabel"

	// AlgorithmPushRelabelHighest selects the active node with the highest label.
	AlgorithmPushRelabelHighest Algorithm = "push_relabel_highest"

	// AlgorithmEdmondsKarp augments along BFS shortest paths.
	AlgorithmEdmondsKarp Algorithm = "edmonds_karp"

	// AlgorithmDinic augments blocking flows in BFS level graphs.
	AlgorithmDinic Algorithm = "dinic"

	// AlgorithmSuccessiveShortestPath is min-cost flow by cheapest augmenting paths.
	AlgorithmSuccessiveShortestPath Algorithm = "successive_shortest_path"

	// AlgorithmCycleCanceling is min-cost flow by canceling negative residual cycles.
	AlgorithmCycleCanceling Algorithm = "cycle_canceling"
)

// Defaults used when no algorithm is requested.
const (
	DefaultMaxFlowAlgorithm = AlgorithmPushRelabel
	DefaultMinCostAlgorithm = AlgorithmSuccessiveShortestPath
)

var allAlgorithms = []Algorithm{
	AlgorithmPushRelabel,
	AlgorithmPushRelabelHighest,
	AlgorithmEdmondsKarp,
	AlgorithmDinic,
	AlgorithmSuccessiveShortestPath,
	AlgorithmCycleCanceling,
}

// ParseAlgorithm resolves a name, case-insensitively and accepting '-' for '_'.
// Common short forms such as "ssp", "pr" and "ek" are accepted.
func ParseAlgorithm(name string) (Algorithm, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	switch key {
	case "pr", "fifo":
		return AlgorithmPushRelabel, nil
	case "hl", "highest_label":
		return AlgorithmPushRelabelHighest, nil
	case "ek", "bfs":
		return AlgorithmEdmondsKarp, nil
	case "ssp", "min_cost", "mcmf":
		return AlgorithmSuccessiveShortestPath, nil
	case "cc":
		return AlgorithmCycleCanceling, nil
	}

	algo := Algorithm(key)
	if !algo.Valid() {
		return "", apperror.Newf(apperror.CodeInvalidAlgorithm, "unknown algorithm %q", name).
			WithDetails("known", allAlgorithms)
	}
	return algo, nil
}

// String returns the canonical name.
func (a Algorithm) String() string {
	return string(a)
}

// Valid reports whether a names a registered algorithm.
func (a Algorithm) Valid() bool {
	return slices.Contains(allAlgorithms, a)
}

// SupportsMinCost reports whether a minimises cost and accepts a flow target.
func (a Algorithm) SupportsMinCost() bool {
	return a == AlgorithmSuccessiveShortestPath || a == AlgorithmCycleCanceling
}

// =============================================================================
// Algorithm Information
// =============================================================================

// AlgorithmInfo provides metadata about a flow algorithm for display and selection.
type AlgorithmInfo struct {
	Algorithm       Algorithm `json:"algorithm"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	TimeComplexity  string    `json:"time_complexity"`
	SpaceComplexity string    `json:"space_complexity"`
	SupportsMinCost bool      `json:"supports_min_cost"`
	ReturnsPaths    bool      `json:"returns_paths"`
	BestFor         []string  `json:"best_for"`
	Caveats         []string  `json:"caveats"`
}

var algorithmInfos = map[Algorithm]*AlgorithmInfo{
	AlgorithmPushRelabel: {
		Algorithm:       AlgorithmPushRelabel,
		Name:            "Push-Relabel (FIFO)",
		Description:     "Preflow-push with FIFO active node selection, gap heuristic and periodic global relabel",
		TimeComplexity:  "O(V³)",
		SpaceComplexity: "O(V + E)",
		BestFor:         []string{"dense_graphs", "large_graphs"},
		Caveats: []string{
			"Does not produce augmenting paths",
			"Total capacity leaving the source must fit in int64",
		},
	},
	AlgorithmPushRelabelHighest: {
		Algorithm:       AlgorithmPushRelabelHighest,
		Name:            "Push-Relabel (Highest Label)",
		Description:     "Preflow-push discharging the highest labelled active node first",
		TimeComplexity:  "O(V² √E)",
		SpaceComplexity: "O(V + E)",
		BestFor:         []string{"dense_graphs", "very_large_graphs"},
		Caveats: []string{
			"Does not produce augmenting paths",
			"Total capacity leaving the source must fit in int64",
		},
	},
	AlgorithmEdmondsKarp: {
		Algorithm:       AlgorithmEdmondsKarp,
		Name:            "Edmonds-Karp",
		Description:     "Ford-Fulkerson with BFS for shortest augmenting paths",
		TimeComplexity:  "O(V × E²)",
		SpaceComplexity: "O(V + E)",
		ReturnsPaths:    true,
		BestFor:         []string{"small_graphs", "path_decomposition"},
		Caveats:         []string{"Slower than Dinic for large graphs"},
	},
	AlgorithmDinic: {
		Algorithm:       AlgorithmDinic,
		Name:            "Dinic",
		Description:     "Level graphs with blocking flows found by iterative DFS",
		TimeComplexity:  "O(V² × E), O(E √V) on unit networks",
		SpaceComplexity: "O(V + E)",
		ReturnsPaths:    true,
		BestFor:         []string{"sparse_graphs", "unit_capacity_graphs", "bipartite_matching"},
		Caveats:         []string{},
	},
	AlgorithmSuccessiveShortestPath: {
		Algorithm:       AlgorithmSuccessiveShortestPath,
		Name:            "Successive Shortest Path",
		Description:     "Cheapest augmenting paths; Bellman-Ford potentials then Dijkstra on reduced costs",
		TimeComplexity:  "O(V × E + F × E log V)",
		SpaceComplexity: "O(V + E)",
		SupportsMinCost: true,
		ReturnsPaths:    true,
		BestFor:         []string{"assignment_problems", "transportation_problems", "flow_targets"},
		Caveats: []string{
			"Negative cycles reachable from the source are rejected",
			"Running time grows with the number of augmentations",
		},
	},
	AlgorithmCycleCanceling: {
		Algorithm:       AlgorithmCycleCanceling,
		Name:            "Cycle Canceling",
		Description:     "Route the target flow with Edmonds-Karp, then cancel negative residual cycles",
		TimeComplexity:  "O(V × E² × C × U)",
		SpaceComplexity: "O(V + E)",
		SupportsMinCost: true,
		BestFor:         []string{"cross_checking", "small_graphs"},
		Caveats: []string{
			"Pseudo-polynomial; intended for small instances",
			"Negative cycles reachable from the source are rejected",
		},
	},
}

// GetAlgorithmInfo returns information about a specific algorithm, or nil if unknown.
func GetAlgorithmInfo(algo Algorithm) *AlgorithmInfo {
	return algorithmInfos[algo]
}

// GetAllAlgorithms returns information about all algorithms in a stable order.
func GetAllAlgorithms() []*AlgorithmInfo {
	infos := make([]*AlgorithmInfo, 0, len(allAlgorithms))
	for _, algo := range allAlgorithms {
		infos = append(infos, algorithmInfos[algo])
	}
	return infos
}

// RecommendAlgorithm suggests an algorithm from graph statistics.
//
//   - Min-cost required: successive shortest path
//   - Capacity sum does not fit in int64: Dinic
//   - Dense (>50% of possible edges) with more than 100 nodes: highest-label push-relabel
//   - More than 100 nodes: FIFO push-relabel
//   - Otherwise: Dinic
func RecommendAlgorithm(stats graph.Stats, needMinCost bool) Algorithm {
	if needMinCost {
		return AlgorithmSuccessiveShortestPath
	}
	if stats.TotalCapacity > uint64(graph.InfiniteCapacity) {
		return AlgorithmDinic
	}
	if stats.NodeCount > 100 {
		if stats.Density > 0.5 {
			return AlgorithmPushRelabelHighest
		}
		return AlgorithmPushRelabel
	}
	return AlgorithmDinic
}
