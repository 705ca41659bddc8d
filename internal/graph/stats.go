package graph

import "math"

// Stats describes the structure of a graph.
type Stats struct {
	NodeCount       int
	EdgeCount       int
	IsolatedNodes   int
	MaxOutDegree    int
	MinOutDegree    int
	AverageDegree   float64
	Density         float64
	TotalCapacity   uint64
	MaxCapacity     int64
	MinCost         int64
	MaxCost         int64
	HasNegativeCost bool
	ParallelEdges   int
	SelfLoops       int
}

// FlowStats summarises the flow currently assigned to the forward edges.
type FlowStats struct {
	ActiveEdges        int
	ZeroFlowEdges      int
	SaturatedEdges     int
	AverageUtilization float64
	Bottlenecks        []EdgeID
}

// Stats computes structural statistics in O(V + E).
func (g *Graph) Stats() Stats {
	s := Stats{
		NodeCount: g.NodeCount(),
		EdgeCount: g.EdgeCount(),
	}
	if s.NodeCount == 0 {
		return s
	}

	s.MinOutDegree = math.MaxInt
	s.MinCost = math.MaxInt64
	s.MaxCost = math.MinInt64

	outDegree := make([]int, s.NodeCount)
	inDegree := make([]int, s.NodeCount)
	seen := make(map[[2]int]struct{}, s.EdgeCount)

	for i := 0; i < len(g.edges); i += 2 {
		e := &g.edges[i]
		outDegree[e.From]++
		inDegree[e.To]++

		if e.From == e.To {
			s.SelfLoops++
		}
		key := [2]int{e.From, e.To}
		if _, dup := seen[key]; dup {
			s.ParallelEdges++
		} else {
			seen[key] = struct{}{}
		}

		if e.Capacity == InfiniteCapacity || s.TotalCapacity+uint64(e.Capacity) < s.TotalCapacity {
			s.TotalCapacity = math.MaxUint64
		} else if s.TotalCapacity != math.MaxUint64 {
			s.TotalCapacity += uint64(e.Capacity)
		}
		s.MaxCapacity = max(s.MaxCapacity, e.Capacity)
		s.MinCost = min(s.MinCost, e.Cost)
		s.MaxCost = max(s.MaxCost, e.Cost)
		if e.Cost < 0 {
			s.HasNegativeCost = true
		}
	}

	for u := range s.NodeCount {
		d := outDegree[u]
		s.MaxOutDegree = max(s.MaxOutDegree, d)
		s.MinOutDegree = min(s.MinOutDegree, d)
		if d == 0 && inDegree[u] == 0 {
			s.IsolatedNodes++
		}
	}

	if s.EdgeCount == 0 {
		s.MinCost, s.MaxCost = 0, 0
	}
	s.AverageDegree = float64(s.EdgeCount) / float64(s.NodeCount)
	if s.NodeCount > 1 {
		s.Density = float64(s.EdgeCount) / float64(s.NodeCount*(s.NodeCount-1))
	}

	return s
}

// FlowStats computes utilisation statistics of the current flow.
// Edges with zero capacity are counted as zero-flow and excluded from utilisation.
func (g *Graph) FlowStats() FlowStats {
	var (
		s     FlowStats
		total float64
	)
	for i := 0; i < len(g.edges); i += 2 {
		e := &g.edges[i]
		f := e.Flow()
		if f <= 0 {
			s.ZeroFlowEdges++
			continue
		}
		s.ActiveEdges++
		total += float64(f) / float64(e.Capacity)
		if e.Residual == 0 {
			s.SaturatedEdges++
			s.Bottlenecks = append(s.Bottlenecks, EdgeID(i))
		}
	}
	if s.ActiveEdges > 0 {
		s.AverageUtilization = total / float64(s.ActiveEdges)
	}
	return s
}
