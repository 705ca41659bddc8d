// Package algorithms provides the maximum-flow and minimum-cost flow solvers
// that run on graph.Graph.
//
// Max-flow strategies: push-relabel (FIFO and highest-label), Edmonds-Karp
// and Dinic. Min-cost strategies: successive shortest paths with potentials
// and cycle canceling. Strategies of the same kind honour the same contract
// and are selected through the Algorithm enum.
//
// # Thread Safety
//
// Solvers mutate the residual capacities of the graph they are given and
// are NOT thread-safe. Use SolverPool to solve independent clones concurrently.
//
// # Determinism
//
// Adjacency lists are scanned in insertion order, so every strategy returns
// the same routing for the same graph.
//
// # Context Support
//
// Every solver checks its context every checkInterval iterations. A canceled
// solve returns its partial state with Canceled set; for push-relabel the
// residual state is then a preflow rather than a flow and the graph should be
// Reset before reuse.
//
// # Example Usage
//
//	g := graph.New(4)
//	g.AddEdge(0, 1, 3, 1)
//	g.AddEdge(1, 3, 2, 1)
//
//	res, err := algorithms.MinCostFlow(ctx, g, 0, 3, nil, "", nil)
//	if err != nil {
//	    return err
//	}
//	log.Printf("flow=%d cost=%d status=%s", res.Flow, res.Cost, res.Status)
package algorithms

import (
	"context"
	"errors"
	"time"

	"flowengine/internal/graph"
	"flowengine/pkg/apperror"
)

// checkInterval is how many iterations run between context checks.
const checkInterval = 100

// =============================================================================
// Solver Options
// =============================================================================

// SolverOptions configures the behavior of flow algorithms.
//
// A nil *SolverOptions is valid and means DefaultSolverOptions().
//
//	opts := DefaultSolverOptions().
//	    WithTimeout(10 * time.Second).
//	    WithReturnPaths(true)
type SolverOptions struct {
	// MaxIterations limits augmentations, discharges or canceled cycles.
	// Zero or negative means unlimited.
	MaxIterations int

	// Timeout sets the maximum duration for the solve. Zero means none.
	Timeout time.Duration

	// ReturnPaths collects each augmenting path for algorithms that produce them.
	ReturnPaths bool

	// Pool supplies scratch buffers. nil allocates per solve.
	Pool *graph.Pool
}

// DefaultSolverOptions returns options with sensible defaults for most use cases.
func DefaultSolverOptions() *SolverOptions {
	return &SolverOptions{
		Timeout: 30 * time.Second,
		Pool:    graph.GetPool(),
	}
}

// WithPool sets the buffer pool and returns the options for chaining.
func (o *SolverOptions) WithPool(pool *graph.Pool) *SolverOptions {
	o.Pool = pool
	return o
}

// WithTimeout sets the timeout and returns the options for chaining.
func (o *SolverOptions) WithTimeout(timeout time.Duration) *SolverOptions {
	o.Timeout = timeout
	return o
}

// WithReturnPaths enables path collection and returns the options for chaining.
func (o *SolverOptions) WithReturnPaths(returnPaths bool) *SolverOptions {
	o.ReturnPaths = returnPaths
	return o
}

// WithMaxIterations sets the iteration limit and returns the options for chaining.
func (o *SolverOptions) WithMaxIterations(limit int) *SolverOptions {
	o.MaxIterations = limit
	return o
}

func (o *SolverOptions) orDefault() *SolverOptions {
	if o == nil {
		return DefaultSolverOptions()
	}
	return o
}

func (o *SolverOptions) limitReached(iterations int) bool {
	return o.MaxIterations > 0 && iterations >= o.MaxIterations
}

// =============================================================================
// Targets and Results
// =============================================================================

// FlowTarget requests a specific amount of flow from a min-cost solver.
//
// A nil target asks for the maximum flow at minimum cost among all maximum
// flows. With Exact unset the solver delivers up to Value units and reports
// BelowTarget if fewer are possible; with Exact set an unreachable Value is
// reported as Infeasible.
type FlowTarget struct {
	Value uint64
	Exact bool
}

// AtMost returns a non-exact target.
func AtMost(v uint64) *FlowTarget {
	return &FlowTarget{Value: v}
}

// Exactly returns an exact target.
func Exactly(v uint64) *FlowTarget {
	return &FlowTarget{Value: v, Exact: true}
}

func (t *FlowTarget) limit() uint64 {
	if t == nil {
		return ^uint64(0)
	}
	return t.Value
}

// FlowStatus describes how a solve ended.
type FlowStatus string

const (
	// StatusOptimal: the requested (or maximum) flow was routed at minimum cost.
	StatusOptimal FlowStatus = "optimal"
	// StatusBelowTarget: a non-exact target exceeded the maximum flow; the maximum was routed.
	StatusBelowTarget FlowStatus = "below_target"
	// StatusInfeasible: an exact target exceeded the maximum flow.
	StatusInfeasible FlowStatus = "infeasible"
	// StatusCanceled: the context ended before the solver finished.
	StatusCanceled FlowStatus = "canceled"
	// StatusIterationLimit: MaxIterations was reached.
	StatusIterationLimit FlowStatus = "iteration_limit"
)

// statusFor derives the final status of a completed solve.
func statusFor(flow uint64, target *FlowTarget) FlowStatus {
	switch {
	case target == nil || flow >= target.Value:
		return StatusOptimal
	case target.Exact:
		return StatusInfeasible
	default:
		return StatusBelowTarget
	}
}

// FlowPath is one augmentation recorded when ReturnPaths is enabled.
type FlowPath struct {
	Edges []graph.EdgeID `json:"edges"`
	Nodes []int          `json:"nodes"`
	Flow  uint64         `json:"flow"`
	Cost  int64          `json:"cost"`
}

func newFlowPath(g *graph.Graph, path []graph.EdgeID, flow int64) FlowPath {
	return FlowPath{
		Edges: append([]graph.EdgeID(nil), path...),
		Nodes: graph.PathNodes(g, path),
		Flow:  uint64(flow),
		Cost:  graph.PathCost(g, path),
	}
}

// SolverResult contains the result of a dispatched solve.
type SolverResult struct {
	// Algorithm that produced the result.
	Algorithm Algorithm

	// Flow is the value routed from source to sink.
	Flow uint64

	// Cost is the total cost of the routed flow.
	Cost int64

	// Iterations counts augmentations, discharges or canceled cycles.
	Iterations int

	// Paths holds the augmentations if ReturnPaths was enabled.
	Paths []FlowPath

	// Status indicates the outcome of the computation.
	Status FlowStatus

	// EdgeFlows holds per-edge flows when the solve ran on a pooled clone.
	EdgeFlows []int64

	// Duration is the wall-clock time taken by the algorithm.
	Duration time.Duration
}

// =============================================================================
// Validation
// =============================================================================

// validateGraph checks the graph and terminals. source == sink is valid and
// yields a zero flow.
func validateGraph(g *graph.Graph, source, sink int) error {
	if g == nil {
		return apperror.New(apperror.CodeNilInput, "graph is nil")
	}
	if !g.HasNode(source) {
		return apperror.Newf(apperror.CodeInvalidSource,
			"source %d out of range [0, %d)", source, g.NodeCount()).WithField("source")
	}
	if !g.HasNode(sink) {
		return apperror.Newf(apperror.CodeInvalidSink,
			"sink %d out of range [0, %d)", sink, g.NodeCount()).WithField("sink")
	}
	return nil
}

// contextError converts a context error into a coded error.
func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.Wrap(err, apperror.CodeTimeout, "solve timed out")
	}
	return apperror.Wrap(err, apperror.CodeCanceled, "solve canceled")
}

// =============================================================================
// Main Solver Entry Point
// =============================================================================

// Solve dispatches to the requested algorithm.
//
// Max-flow algorithms accept no target. Min-cost algorithms accept an optional
// target. An empty algorithm selects DefaultMaxFlowAlgorithm, or
// DefaultMinCostAlgorithm when a target is given.
//
// The returned result is non-nil whenever validation passed, including when
// the error reports cancellation or the iteration limit.
func Solve(ctx context.Context, g *graph.Graph, source, sink int, algorithm Algorithm, target *FlowTarget, options *SolverOptions) (*SolverResult, error) {
	start := time.Now()
	options = options.orDefault()

	if algorithm == "" {
		algorithm = DefaultMaxFlowAlgorithm
		if target != nil {
			algorithm = DefaultMinCostAlgorithm
		}
	}
	if !algorithm.Valid() {
		return nil, apperror.Newf(apperror.CodeInvalidAlgorithm, "unknown algorithm %q", algorithm)
	}
	if target != nil && !algorithm.SupportsMinCost() {
		return nil, apperror.Newf(apperror.CodeInvalidTarget,
			"algorithm %s computes maximum flow and does not accept a flow target", algorithm)
	}
	if err := validateGraph(g, source, sink); err != nil {
		return nil, err
	}

	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	result, err := solveInternal(ctx, g, source, sink, algorithm, target, options)
	if result != nil {
		result.Algorithm = algorithm
		result.Duration = time.Since(start)
	}
	return result, err
}

// MaxFlow computes a maximum flow. Any algorithm is accepted; min-cost
// algorithms return the maximum flow at minimum cost.
func MaxFlow(ctx context.Context, g *graph.Graph, source, sink int, algorithm Algorithm, options *SolverOptions) (*SolverResult, error) {
	return Solve(ctx, g, source, sink, algorithm, nil, options)
}

// MinCostFlow computes a minimum-cost flow of the target value, or of maximum
// value when target is nil. An empty algorithm selects DefaultMinCostAlgorithm.
func MinCostFlow(ctx context.Context, g *graph.Graph, source, sink int, target *FlowTarget, algorithm Algorithm, options *SolverOptions) (*SolverResult, error) {
	if algorithm == "" {
		algorithm = DefaultMinCostAlgorithm
	}
	if algorithm.Valid() && !algorithm.SupportsMinCost() {
		return nil, apperror.Newf(apperror.CodeInvalidAlgorithm,
			"algorithm %s does not minimise cost", algorithm)
	}
	return Solve(ctx, g, source, sink, algorithm, target, options)
}

// solveInternal dispatches to the algorithm implementation and maps its
// outcome onto a SolverResult.
func solveInternal(ctx context.Context, g *graph.Graph, source, sink int, algorithm Algorithm, target *FlowTarget, options *SolverOptions) (*SolverResult, error) {
	if algorithm.SupportsMinCost() {
		var (
			res *MinCostFlowResult
			err error
		)
		if algorithm == AlgorithmCycleCanceling {
			res, err = CycleCanceling(ctx, g, source, sink, target, options)
		} else {
			res, err = SuccessiveShortestPath(ctx, g, source, sink, target, options)
		}
		if err != nil {
			return nil, err
		}
		result := &SolverResult{
			Flow:       res.Flow,
			Cost:       res.Cost,
			Iterations: res.Iterations,
			Paths:      res.Paths,
			Status:     res.Status,
		}
		return result, statusError(ctx, result.Status)
	}

	var res *MaxFlowResult
	switch algorithm {
	case AlgorithmPushRelabel, AlgorithmPushRelabelHighest:
		if err := checkSourceCapacity(g, source); err != nil {
			return nil, err
		}
		if algorithm == AlgorithmPushRelabelHighest {
			res = PushRelabelHighestLabel(ctx, g, source, sink, options)
		} else {
			res = PushRelabel(ctx, g, source, sink, options)
		}
	case AlgorithmEdmondsKarp:
		res = EdmondsKarp(ctx, g, source, sink, options)
	case AlgorithmDinic:
		res = Dinic(ctx, g, source, sink, options)
	default:
		return nil, apperror.Newf(apperror.CodeInvalidAlgorithm, "unknown algorithm %q", algorithm)
	}

	result := &SolverResult{
		Flow:       res.MaxFlow,
		Cost:       g.TotalCost(),
		Iterations: res.Iterations,
		Paths:      res.Paths,
		Status:     StatusOptimal,
	}
	switch {
	case res.Canceled:
		result.Status = StatusCanceled
	case res.LimitReached:
		result.Status = StatusIterationLimit
	}
	return result, statusError(ctx, result.Status)
}

// statusError returns the error that accompanies an unfinished status.
func statusError(ctx context.Context, status FlowStatus) error {
	switch status {
	case StatusCanceled:
		return contextError(ctx.Err())
	case StatusIterationLimit:
		return apperror.New(apperror.CodeIterationLimit, "iteration limit reached before the solve completed")
	default:
		return nil
	}
}

// checkSourceCapacity rejects graphs whose residual capacity leaving the
// source does not fit in int64; push-relabel stores that sum as excess.
func checkSourceCapacity(g *graph.Graph, source int) error {
	var total int64
	for _, id := range g.Adjacent(source) {
		r := g.Residual(id)
		if r <= 0 || g.Head(id) == source {
			continue
		}
		if total > graph.InfiniteCapacity-r {
			return apperror.Newf(apperror.CodeCapacityOverflow,
				"capacity leaving source %d exceeds int64; use %s or %s", source, AlgorithmDinic, AlgorithmEdmondsKarp)
		}
		total += r
	}
	return nil
}

// =============================================================================
// Solver Pool
// =============================================================================

// SolverPool runs solves concurrently on pooled clones.
//
// It provides:
//   - Concurrency limiting to prevent resource exhaustion
//   - Graph pooling for memory reuse
//   - Automatic graph cloning, so callers' graphs are never mutated
type SolverPool struct {
	graphPool *graph.Pool
	workers   chan struct{}
}

// NewSolverPool creates a solver pool. maxConcurrency <= 0 defaults to 10.
func NewSolverPool(maxConcurrency int) *SolverPool {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &SolverPool{
		graphPool: graph.GetPool(),
		workers:   make(chan struct{}, maxConcurrency),
	}
}

// Capacity returns the maximum number of concurrent solves.
func (sp *SolverPool) Capacity() int {
	return cap(sp.workers)
}

// Acquire obtains a worker slot, blocking until one is free or ctx ends. A
// free slot is taken even when ctx is already done, so the solver can report
// the cancellation with a partial result.
func (sp *SolverPool) Acquire(ctx context.Context) error {
	select {
	case sp.workers <- struct{}{}:
		return nil
	default:
	}
	select {
	case sp.workers <- struct{}{}:
		return nil
	case <-ctx.Done():
		return contextError(ctx.Err())
	}
}

// Release returns a worker slot. Must be called once per successful Acquire.
func (sp *SolverPool) Release() {
	<-sp.workers
}

// SolvePooled solves a clone of g and returns the per-edge flows in
// SolverResult.EdgeFlows. g is NOT modified and may be shared between
// concurrent calls as long as nobody writes to it.
func (sp *SolverPool) SolvePooled(ctx context.Context, g *graph.Graph, source, sink int, algorithm Algorithm, target *FlowTarget, options *SolverOptions) (*SolverResult, error) {
	if g == nil {
		return nil, apperror.New(apperror.CodeNilInput, "graph is nil")
	}
	if err := sp.Acquire(ctx); err != nil {
		return nil, err
	}
	defer sp.Release()

	cloned := sp.graphPool.CloneGraph(g)
	defer sp.graphPool.ReleaseGraph(cloned)

	opts := *options.orDefault()
	opts.Pool = sp.graphPool

	result, err := Solve(ctx, cloned, source, sink, algorithm, target, &opts)
	if result != nil {
		result.EdgeFlows = cloned.EdgeFlows()
	}
	return result, err
}
