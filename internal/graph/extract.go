package graph

import (
	"fmt"

	"flowengine/pkg/apperror"
)

// =============================================================================
// Flow / Cost Extraction
// =============================================================================
//
// All functions in this file are pure reads over the residual state. They
// never mutate the graph and return identical results when called repeatedly.

// FlowOn returns the flow carried by a forward edge.
func (g *Graph) FlowOn(id EdgeID) (uint64, error) {
	if !g.HasEdge(id) {
		return 0, apperror.Newf(apperror.CodeInvalidEdge, "edge %d does not exist", id)
	}
	if !g.IsForward(id) {
		return 0, apperror.Newf(apperror.CodeInvalidEdge, "edge %d is a reverse edge", id)
	}
	f := g.edges[id].Flow()
	if f < 0 {
		return 0, apperror.NewCritical(apperror.CodeResidualMismatch,
			fmt.Sprintf("edge %d has residual above capacity", id))
	}
	return uint64(f), nil
}

// FlowValue returns the net flow leaving source over forward edges:
// flow on edges out of source minus flow on edges into source.
func (g *Graph) FlowValue(source int) uint64 {
	if !g.HasNode(source) {
		return 0
	}
	var out, in uint64
	for _, id := range g.adj[source] {
		e := &g.edges[id]
		if e.IsReverse() {
			// The pair of a reverse record at source is a forward edge entering source.
			if f := e.Residual; f > 0 {
				in += uint64(f)
			}
			continue
		}
		if f := e.Flow(); f > 0 {
			out += uint64(f)
		}
	}
	if in >= out {
		return 0
	}
	return out - in
}

// InflowValue returns the net flow entering sink over forward edges.
// After a solve it equals FlowValue(source).
func (g *Graph) InflowValue(sink int) uint64 {
	if !g.HasNode(sink) {
		return 0
	}
	var out, in uint64
	for _, id := range g.adj[sink] {
		e := &g.edges[id]
		if e.IsReverse() {
			if f := e.Residual; f > 0 {
				in += uint64(f)
			}
			continue
		}
		if f := e.Flow(); f > 0 {
			out += uint64(f)
		}
	}
	if out >= in {
		return 0
	}
	return in - out
}

// TotalCost returns the sum of flow * cost over all forward edges.
func (g *Graph) TotalCost() int64 {
	var total int64
	for i := 0; i < len(g.edges); i += 2 {
		e := &g.edges[i]
		if f := e.Flow(); f != 0 {
			total += f * e.Cost
		}
	}
	return total
}

// EdgeFlows returns the flow on every forward edge, indexed by EdgeID/2.
func (g *Graph) EdgeFlows() []int64 {
	flows := make([]int64, 0, len(g.edges)/2)
	for i := 0; i < len(g.edges); i += 2 {
		flows = append(flows, g.edges[i].Flow())
	}
	return flows
}

// RestoreFlows applies flows produced by EdgeFlows to a graph with the same structure.
func (g *Graph) RestoreFlows(flows []int64) error {
	if len(flows) != g.EdgeCount() {
		return apperror.Newf(apperror.CodeInvalidArgument,
			"flow vector has %d entries, graph has %d edges", len(flows), g.EdgeCount())
	}
	for i, f := range flows {
		if err := g.SetFlow(EdgeID(2*i), f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Verification
// =============================================================================

// CheckFlow verifies the residual state against the flow invariants:
//   - pairing: Rev(Rev(id)) == id for every record
//   - residual consistency: flow(Rev(e)) == -flow(e)
//   - capacity respect: 0 <= flow(e) <= capacity(e) for forward edges
//   - conservation: inflow == outflow at every node except source and sink
//
// All violations are collected and returned together.
func CheckFlow(g *Graph, source, sink int) error {
	verrs := apperror.NewValidationErrors()
	balance := make([]int64, len(g.adj))

	for i := range g.edges {
		id := EdgeID(i)
		e := &g.edges[i]
		if !g.HasEdge(e.Rev) || g.edges[e.Rev].Rev != id {
			verrs.Add(apperror.NewCritical(apperror.CodeResidualMismatch,
				fmt.Sprintf("edge %d is not paired with its reverse", id)))
			continue
		}
		if e.IsReverse() {
			continue
		}
		rev := &g.edges[e.Rev]
		f := e.Flow()
		if rev.Flow() != -f {
			verrs.AddError(apperror.CodeResidualMismatch,
				fmt.Sprintf("edge %d carries %d but its reverse carries %d", id, f, rev.Flow()))
		}
		if f < 0 || f > e.Capacity {
			verrs.AddError(apperror.CodeCapacityViolation,
				fmt.Sprintf("edge %d carries %d outside [0, %d]", id, f, e.Capacity))
		}
		balance[e.From] -= f
		balance[e.To] += f
	}

	for u, b := range balance {
		if u == source || u == sink {
			continue
		}
		if b != 0 {
			verrs.AddError(apperror.CodeConservationViolation,
				fmt.Sprintf("node %d has imbalance %d", u, b))
		}
	}

	if g.HasNode(source) && g.HasNode(sink) && source != sink {
		if out, in := g.FlowValue(source), g.InflowValue(sink); out != in {
			verrs.AddError(apperror.CodeConservationViolation,
				fmt.Sprintf("flow leaving source %d differs from flow entering sink %d", out, in))
		}
	}

	return verrs.Err()
}
