package algorithms

import (
	"context"

	"flowengine/internal/graph"
	"flowengine/pkg/apperror"
)

// =============================================================================
// Minimum Cuts
// =============================================================================

// Cut is an s-t cut read off a residual graph.
type Cut struct {
	// SourceSide[v] is true for nodes on the source side.
	SourceSide []bool

	// Edges are the forward edges leaving the source side.
	Edges []graph.EdgeID

	// Capacity is the saturating sum of the capacities of Edges.
	Capacity uint64
}

// MinCut returns the cut formed by the nodes reachable from source over
// positive-residual records. After a maximum flow its capacity equals the
// flow value.
func MinCut(g *graph.Graph, source int) *Cut {
	side := graph.Reachable(g, source)
	cut := &Cut{SourceSide: side}
	for id := range g.ForwardEdges() {
		e := g.Edge(id)
		if side[e.From] && !side[e.To] {
			cut.Edges = append(cut.Edges, id)
			cut.Capacity = addSaturating(cut.Capacity, uint64(e.Capacity))
		}
	}
	return cut
}

// SourceNodes lists the source-side nodes in ascending order.
func (c *Cut) SourceNodes() []int {
	var nodes []int
	for v, in := range c.SourceSide {
		if in {
			nodes = append(nodes, v)
		}
	}
	return nodes
}

// SinkNodes lists the sink-side nodes in ascending order.
func (c *Cut) SinkNodes() []int {
	var nodes []int
	for v, in := range c.SourceSide {
		if !in {
			nodes = append(nodes, v)
		}
	}
	return nodes
}

func addSaturating(a, b uint64) uint64 {
	if s := a + b; s >= a {
		return s
	}
	return ^uint64(0)
}

// GlobalCut is the smallest directed cut over all terminal pairs.
type GlobalCut struct {
	// Value is the cut capacity, which equals the max flow from Source to Sink.
	Value uint64

	// Source and Sink are the terminals whose max flow attains Value.
	Source, Sink int

	// Cut is the cut on the graph solved from Source to Sink.
	Cut *Cut
}

// GlobalMinCut finds the minimum directed edge cut of g. Every cut separates
// node 0 from some node t in one direction or the other, so it takes the
// smallest max flow over 0→t and t→0 for every t.
//
// Runs on a reset clone; g is not modified.
func GlobalMinCut(ctx context.Context, g *graph.Graph, algorithm Algorithm, options *SolverOptions) (*GlobalCut, error) {
	if g == nil {
		return nil, apperror.New(apperror.CodeNilInput, "graph is nil")
	}
	n := g.NodeCount()
	if n < 2 {
		return nil, apperror.Newf(apperror.CodeInvalidNodeCount,
			"global min cut needs at least 2 nodes, got %d", n)
	}

	work := g.Clone()
	var best *GlobalCut
	for t := 1; t < n; t++ {
		for _, pair := range [2][2]int{{0, t}, {t, 0}} {
			s, sink := pair[0], pair[1]
			work.Reset()
			res, err := MaxFlow(ctx, work, s, sink, algorithm, options)
			if err != nil {
				return nil, err
			}
			if best == nil || res.Flow < best.Value {
				best = &GlobalCut{Value: res.Flow, Source: s, Sink: sink, Cut: MinCut(work, s)}
			}
			if best.Value == 0 {
				return best, nil
			}
		}
	}
	return best, nil
}
