package algorithms

import (
	"context"

	"flowengine/internal/graph"
	"flowengine/pkg/apperror"
)

// =============================================================================
// Circulation with Lower Bounds and Demands
// =============================================================================
//
// A circulation assigns every edge a flow in [lower, upper] such that at each
// node inflow - outflow equals its demand (positive demand consumes, negative
// demand supplies).
//
// Reduction: each edge carries capacity upper - lower and its lower bound is
// forced through. The forced flow and the demands leave every node v with an
// imbalance
//
//	b(v) = Σ lower(in) - Σ lower(out) - demand(v)
//
// which an auxiliary super source S (edges S→v of capacity b(v) > 0) and super
// sink T (edges v→T of capacity -b(v)) absorb. A feasible circulation exists
// iff the max S-T flow saturates every auxiliary edge. With costs the same
// network is solved as a min-cost flow with an exact target.
// =============================================================================

// Circulation is a flow problem with edge lower bounds and node demands.
type Circulation struct {
	nodes  int
	base   *graph.Graph
	edges  []circulationEdge
	demand []int64

	solved *graph.Graph
}

type circulationEdge struct {
	id           graph.EdgeID
	lower, upper int64
	cost         int64
}

// CirculationResult reports the outcome of Circulation.Solve.
type CirculationResult struct {
	// Algorithm used for the reduced flow problem.
	Algorithm Algorithm

	// Feasible is true when every lower bound and demand is met.
	Feasible bool

	// Flow routed through the auxiliary network; equals Required when feasible.
	Flow uint64

	// Required is the total positive imbalance that must be routed.
	Required uint64

	// Cost of the circulation, including the forced lower-bound flow.
	Cost int64

	// Status is StatusOptimal when feasible, StatusInfeasible otherwise.
	Status FlowStatus
}

// NewCirculation creates a circulation over n nodes.
func NewCirculation(n int) (*Circulation, error) {
	if n < 0 {
		return nil, apperror.Newf(apperror.CodeInvalidNodeCount, "node count %d is negative", n)
	}
	return &Circulation{
		nodes:  n,
		base:   graph.New(n + 2),
		demand: make([]int64, n),
	}, nil
}

// NodeCount returns the number of user nodes.
func (c *Circulation) NodeCount() int {
	return c.nodes
}

// EdgeCount returns the number of edges added.
func (c *Circulation) EdgeCount() int {
	return len(c.edges)
}

func (c *Circulation) checkNode(u int) error {
	if u < 0 || u >= c.nodes {
		return apperror.Newf(apperror.CodeNodeOutOfRange, "node %d out of range [0, %d)", u, c.nodes)
	}
	return nil
}

// AddEdge adds an edge whose flow must stay within [lower, upper] and
// returns its index.
func (c *Circulation) AddEdge(from, to int, lower, upper, cost int64) (int, error) {
	if err := c.checkNode(from); err != nil {
		return -1, err
	}
	if err := c.checkNode(to); err != nil {
		return -1, err
	}
	if lower < 0 || upper < lower {
		return -1, apperror.Newf(apperror.CodeInvalidBounds,
			"edge %d->%d needs 0 <= lower <= upper, got [%d, %d]", from, to, lower, upper)
	}

	id, err := c.base.AddEdge(from, to, upper-lower, cost)
	if err != nil {
		return -1, err
	}
	c.edges = append(c.edges, circulationEdge{id: id, lower: lower, upper: upper, cost: cost})
	c.solved = nil
	return len(c.edges) - 1, nil
}

// SetDemand sets the net inflow required at node. Positive values consume
// flow, negative values supply it.
func (c *Circulation) SetDemand(node int, demand int64) error {
	if err := c.checkNode(node); err != nil {
		return err
	}
	c.demand[node] = demand
	c.solved = nil
	return nil
}

// Demand returns the demand of node, or 0 if it is out of range.
func (c *Circulation) Demand(node int) int64 {
	if node < 0 || node >= c.nodes {
		return 0
	}
	return c.demand[node]
}

// hasCost reports whether any edge has a non-zero cost.
func (c *Circulation) hasCost() bool {
	for _, e := range c.edges {
		if e.cost != 0 {
			return true
		}
	}
	return false
}

// imbalances computes b(v) for every user node.
func (c *Circulation) imbalances() ([]int64, error) {
	b := make([]int64, c.nodes)
	for v, d := range c.demand {
		b[v] = -d
	}
	for _, e := range c.edges {
		if e.lower == 0 {
			continue
		}
		from, to := c.base.Tail(e.id), c.base.Head(e.id)
		var ok bool
		if b[to], ok = addInt64(b[to], e.lower); !ok {
			return nil, overflowError(to)
		}
		if b[from], ok = addInt64(b[from], -e.lower); !ok {
			return nil, overflowError(from)
		}
	}
	return b, nil
}

func addInt64(a, b int64) (int64, bool) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, false
	}
	return s, true
}

func overflowError(node int) error {
	return apperror.Newf(apperror.CodeCapacityOverflow, "imbalance at node %d overflows int64", node)
}

// Solve searches for a feasible circulation. An empty algorithm selects
// successive shortest paths when any edge has a cost and
// DefaultMaxFlowAlgorithm otherwise. Min-cost algorithms return the cheapest
// feasible circulation.
//
// Infeasibility is reported on the result, not as an error.
func (c *Circulation) Solve(ctx context.Context, algorithm Algorithm, options *SolverOptions) (*CirculationResult, error) {
	if algorithm == "" {
		algorithm = DefaultMaxFlowAlgorithm
		if c.hasCost() {
			algorithm = DefaultMinCostAlgorithm
		}
	}
	if !algorithm.Valid() {
		return nil, apperror.Newf(apperror.CodeInvalidAlgorithm, "unknown algorithm %q", algorithm)
	}

	b, err := c.imbalances()
	if err != nil {
		return nil, err
	}

	work := c.base.Clone()
	work.Reset()
	superSource, superSink := c.nodes, c.nodes+1

	var supply, absorb uint64
	for v, bv := range b {
		switch {
		case bv > 0:
			work.MustAddEdge(superSource, v, bv, 0)
			supply += uint64(bv)
		case bv < 0:
			work.MustAddEdge(v, superSink, -bv, 0)
			absorb += uint64(-bv)
		}
	}

	result := &CirculationResult{Algorithm: algorithm, Required: supply}

	var (
		lowerCost int64
		res       *SolverResult
	)
	for _, e := range c.edges {
		lowerCost += e.lower * e.cost
	}

	if supply > 0 {
		if algorithm.SupportsMinCost() {
			res, err = Solve(ctx, work, superSource, superSink, algorithm, Exactly(supply), options)
		} else {
			res, err = Solve(ctx, work, superSource, superSink, algorithm, nil, options)
		}
		if err != nil {
			return nil, err
		}
		result.Flow = res.Flow
	}

	c.solved = work
	result.Feasible = result.Flow == supply && supply == absorb
	result.Cost = work.TotalCost() + lowerCost
	result.Status = StatusOptimal
	if !result.Feasible {
		result.Status = StatusInfeasible
	}
	return result, nil
}

// Flow returns the flow on edge i after Solve, lower bound included.
func (c *Circulation) Flow(i int) (int64, error) {
	if i < 0 || i >= len(c.edges) {
		return 0, apperror.Newf(apperror.CodeInvalidEdge, "edge index %d out of range [0, %d)", i, len(c.edges))
	}
	if c.solved == nil {
		return 0, apperror.New(apperror.CodeInvalidArgument, "circulation has not been solved")
	}
	e := c.edges[i]
	return e.lower + c.solved.Edge(e.id).Flow(), nil
}

// Flows returns the flow on every edge in index order after Solve.
func (c *Circulation) Flows() ([]int64, error) {
	flows := make([]int64, len(c.edges))
	for i := range c.edges {
		f, err := c.Flow(i)
		if err != nil {
			return nil, err
		}
		flows[i] = f
	}
	return flows, nil
}

// Bounds returns the lower and upper bound of edge i.
func (c *Circulation) Bounds(i int) (lower, upper int64, ok bool) {
	if i < 0 || i >= len(c.edges) {
		return 0, 0, false
	}
	return c.edges[i].lower, c.edges[i].upper, true
}
