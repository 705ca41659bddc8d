package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"flowengine/internal/algorithms"
	"flowengine/internal/graph"
	"flowengine/internal/instance"
	"flowengine/pkg/apperror"
	"flowengine/pkg/cache"
	"flowengine/pkg/logger"
	"flowengine/pkg/telemetry"
)

// Operation names used in metrics, spans and results.
const (
	OperationSolve       = "solve"
	OperationMinCut      = "mincut"
	OperationGlobalCut   = "globalcut"
	OperationCirculation = "circulation"
)

// Solve computes a maximum or minimum-cost flow on inst.
//
// Infeasible and below-target outcomes are reported in Result.Status with a
// nil error. When the solve is canceled or hits the iteration limit the
// partial result is returned together with the error.
func (s *SolverService) Solve(ctx context.Context, inst *instance.Instance, req Request) (*Result, error) {
	return s.solve(ctx, OperationSolve, inst, req)
}

// MinCut computes a maximum flow with algo and returns the minimum cut it
// certifies in Result.Cut.
func (s *SolverService) MinCut(ctx context.Context, inst *instance.Instance, algo algorithms.Algorithm) (*Result, error) {
	return s.solve(ctx, OperationMinCut, inst, Request{Mode: ModeMaxFlow, Algorithm: algo})
}

func (s *SolverService) solve(ctx context.Context, operation string, inst *instance.Instance, req Request) (result *Result, err error) {
	if inst == nil {
		return nil, apperror.New(apperror.CodeNilInput, "instance is nil")
	}

	ctx, runID := startRun(ctx)
	ctx, span := telemetry.StartSpan(ctx, "SolverService."+operation,
		trace.WithAttributes(
			attribute.String(telemetry.AttrInstance, inst.Name),
			attribute.String(telemetry.AttrRunID, runID),
		),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	start := time.Now()

	req, err = s.resolve(inst, req)
	if err != nil {
		s.recordError(operation, req.Algorithm, err)
		return nil, err
	}

	net, err := inst.Build()
	if err != nil {
		s.recordError(operation, req.Algorithm, err)
		return nil, err
	}
	req.Algorithm = recommend(req.Algorithm, net.Graph, req.Mode == ModeMinCost)
	s.recordGraph(operation, net.Graph)
	log := logger.WithAlgorithm(ctx, string(req.Algorithm), "instance", inst.Name, "operation", operation)
	telemetry.SetAttributes(ctx, telemetry.RequestAttributes(string(req.Mode), string(req.Algorithm), targetAttr(req.Target), req.Target != nil && req.Target.Exact)...)
	telemetry.SetAttributes(ctx, telemetry.GraphAttributes(inst.Nodes, len(inst.Edges), inst.Source, inst.Sink)...)

	result = &Result{
		RunID:     runID,
		Instance:  inst.Name,
		Operation: operation,
		Mode:      req.Mode,
		Algorithm: req.Algorithm,
		Target:    req.Target,
		Warnings:  inst.Warnings(),
	}

	key := cache.SolveKey{
		GraphHash: cache.GraphHash(net),
		Source:    inst.Source,
		Sink:      inst.Sink,
		Mode:      string(req.Mode),
		Algorithm: string(req.Algorithm),
	}
	if req.Target != nil {
		key.Target = &req.Target.Value
		key.Exact = req.Target.Exact
	}

	result.CacheHit = s.restoreCached(ctx, log, key, net, result)

	var solveErr error
	if !result.CacheHit {
		solveErr = s.compute(ctx, net, req, result)
		if solveErr != nil && result.Status == "" {
			s.recordError(operation, req.Algorithm, solveErr)
			log.Error("solve failed", "error", solveErr)
			return nil, solveErr
		}
	}

	result.EdgeFlows = net.EdgeFlows()
	result.Summary = summarize(net.Graph)

	if solveErr == nil {
		if certifiesCut(req, result, inst) {
			result.Cut = cutResult(net, inst.Source)
		}
		if s.cfg.Verify {
			if err := verifyNetwork(net, result); err != nil {
				s.recordVerifyFailure(req.Algorithm)
				s.recordError(operation, req.Algorithm, err)
				log.Error("verification failed", "error", err)
				return nil, err
			}
			result.Verified = true
		}
		if !result.CacheHit {
			s.storeCached(ctx, log, key, result)
		}
	}

	result.Duration = time.Since(start)
	s.recordSolve(operation, result)
	telemetry.SetAttributes(ctx, telemetry.ResultAttributes(string(result.Status), result.Flow, result.Cost, result.Iterations, result.CacheHit)...)

	if solveErr != nil {
		log.Warn("solve stopped early",
			"status", result.Status,
			"flow", result.Flow,
			"error", solveErr,
		)
		return result, solveErr
	}

	log.Info("solve finished",
		"mode", req.Mode,
		"status", result.Status,
		"flow", result.Flow,
		"cost", result.Cost,
		"iterations", result.Iterations,
		"cache_hit", result.CacheHit,
		"duration", result.Duration,
	)
	return result, nil
}

// resolve fills request defaults. The instance target applies unless the
// mode is explicitly max_flow. The algorithm stays empty when the configured
// default is auto; it is chosen once the network is built.
func (s *SolverService) resolve(inst *instance.Instance, req Request) (Request, error) {
	if req.Target == nil && req.Mode != ModeMaxFlow {
		req.Target = inst.FlowTarget()
	}

	if req.Mode == "" {
		req.Mode = ModeMaxFlow
		if req.Target != nil || req.Algorithm.SupportsMinCost() {
			req.Mode = ModeMinCost
		}
	}

	var err error
	switch req.Mode {
	case ModeMaxFlow:
		if req.Target != nil {
			return req, apperror.New(apperror.CodeInvalidTarget, "a flow target requires min_cost mode").WithField("target")
		}
		if req.Algorithm == "" {
			req.Algorithm, err = s.defaultMaxFlow()
		}
	case ModeMinCost:
		if req.Algorithm == "" {
			req.Algorithm, err = s.defaultMinCost()
		}
		if err == nil && req.Algorithm.Valid() && !req.Algorithm.SupportsMinCost() {
			return req, apperror.Newf(apperror.CodeInvalidAlgorithm,
				"algorithm %s does not minimise cost", req.Algorithm).WithField("algorithm")
		}
	default:
		return req, apperror.Newf(apperror.CodeInvalidArgument, "unknown mode %q", req.Mode).WithField("mode")
	}
	if err != nil {
		return req, err
	}

	if req.Algorithm != "" && !req.Algorithm.Valid() {
		return req, apperror.Newf(apperror.CodeInvalidAlgorithm, "unknown algorithm %q", req.Algorithm).WithField("algorithm")
	}
	return req, nil
}

// compute solves a pooled clone of the network graph, applies the routed
// flow back onto the network and fills result. A non-nil error with a set
// Status means the solve stopped early. resolve has already rejected targets
// in max_flow mode.
func (s *SolverService) compute(ctx context.Context, net *instance.Network, req Request, result *Result) error {
	inst := net.Instance

	res, err := s.pool.SolvePooled(ctx, net.Graph, inst.Source, inst.Sink, req.Algorithm, req.Target, s.solverOptions())
	if res == nil {
		return err
	}
	if rerr := net.Graph.RestoreFlows(res.EdgeFlows); rerr != nil {
		return apperror.Wrap(rerr, apperror.CodeInternal, "failed to apply solver flows")
	}

	result.Status = res.Status
	result.Flow = res.Flow
	result.Cost = res.Cost
	result.Iterations = res.Iterations
	result.Paths = res.Paths
	return err
}

// certifiesCut reports whether the routed flow is a maximum flow, so that
// the residual graph yields a minimum cut of equal value.
func certifiesCut(req Request, result *Result, inst *instance.Instance) bool {
	if inst.Source == inst.Sink {
		return false
	}
	switch result.Status {
	case algorithms.StatusOptimal:
		return req.Target == nil
	case algorithms.StatusBelowTarget, algorithms.StatusInfeasible:
		return true
	}
	return false
}

func cutResult(net *instance.Network, source int) *CutResult {
	cut := algorithms.MinCut(net.Graph, source)
	index := edgeIndex(net)

	res := &CutResult{
		Capacity:    cut.Capacity,
		Source:      source,
		Sink:        net.Instance.Sink,
		SourceNodes: cut.SourceNodes(),
		Edges:       make([]int, 0, len(cut.Edges)),
	}
	for _, id := range cut.Edges {
		res.Edges = append(res.Edges, index[int(id)])
	}
	return res
}

// edgeIndex maps graph edge IDs back to instance edge indices.
func edgeIndex(net *instance.Network) map[int]int {
	index := make(map[int]int, len(net.EdgeIDs))
	for i, id := range net.EdgeIDs {
		index[int(id)] = i
	}
	return index
}

// =============================================================================
// Cache
// =============================================================================

// restoreCached loads a cached result onto the network. Entries that do not
// fit the network are dropped and treated as misses.
func (s *SolverService) restoreCached(ctx context.Context, log *slog.Logger, key cache.SolveKey, net *instance.Network, result *Result) bool {
	if s.cache == nil {
		return false
	}

	cached, found, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn("cache lookup failed", "error", err)
	}
	if err != nil || !found {
		s.recordCacheLookup(false)
		return false
	}
	if s.cfg.ReturnPaths && cached.Flow > 0 && len(cached.Paths) == 0 {
		s.recordCacheLookup(false)
		return false
	}

	if err := net.Graph.RestoreFlows(cached.EdgeFlows); err != nil {
		log.Warn("discarding cached result", "error", err)
		if _, err := s.cache.Invalidate(ctx, key.GraphHash); err != nil {
			log.Warn("cache invalidation failed", "error", err)
		}
		net.Graph.Reset()
		s.recordCacheLookup(false)
		return false
	}

	s.recordCacheLookup(true)
	telemetry.AddEvent(ctx, "cache_hit", attribute.String("key", key.String()))

	result.Status = algorithms.FlowStatus(cached.Status)
	result.Flow = cached.Flow
	result.Cost = cached.Cost
	result.Iterations = cached.Iterations
	result.Paths = fromCachedPaths(cached.Paths)
	return true
}

func (s *SolverService) storeCached(ctx context.Context, log *slog.Logger, key cache.SolveKey, result *Result) {
	if s.cache == nil {
		return
	}
	entry := &cache.CachedSolveResult{
		Algorithm:  string(result.Algorithm),
		Flow:       result.Flow,
		Cost:       result.Cost,
		Status:     string(result.Status),
		Iterations: result.Iterations,
		EdgeFlows:  result.EdgeFlows,
		Paths:      toCachedPaths(result.Paths),
	}
	if err := s.cache.Set(ctx, key, entry, 0); err != nil {
		log.Warn("failed to cache solve result", "error", err)
	}
}

func toCachedPaths(paths []algorithms.FlowPath) []cache.CachedPath {
	if len(paths) == 0 {
		return nil
	}
	out := make([]cache.CachedPath, len(paths))
	for i, p := range paths {
		edges := make([]int, len(p.Edges))
		for j, id := range p.Edges {
			edges[j] = int(id)
		}
		out[i] = cache.CachedPath{Edges: edges, Nodes: p.Nodes, Flow: p.Flow, Cost: p.Cost}
	}
	return out
}

func fromCachedPaths(paths []cache.CachedPath) []algorithms.FlowPath {
	if len(paths) == 0 {
		return nil
	}
	out := make([]algorithms.FlowPath, len(paths))
	for i, p := range paths {
		edges := make([]graph.EdgeID, len(p.Edges))
		for j, id := range p.Edges {
			edges[j] = graph.EdgeID(id)
		}
		out[i] = algorithms.FlowPath{Edges: edges, Nodes: p.Nodes, Flow: p.Flow, Cost: p.Cost}
	}
	return out
}

// targetAttr converts a target for RequestAttributes; -1 means none.
func targetAttr(t *algorithms.FlowTarget) int64 {
	if t == nil {
		return -1
	}
	if t.Value > 1<<63-1 {
		return 1<<63 - 1
	}
	return int64(t.Value)
}

// =============================================================================
// Global Min Cut
// =============================================================================

// GlobalMinCut finds the smallest directed cut of the instance network over
// all terminal pairs. The instance source and sink are ignored; Result.Flow
// holds the cut value and Result.Cut the terminals that attain it.
func (s *SolverService) GlobalMinCut(ctx context.Context, inst *instance.Instance, algo algorithms.Algorithm) (result *Result, err error) {
	if inst == nil {
		return nil, apperror.New(apperror.CodeNilInput, "instance is nil")
	}

	ctx, runID := startRun(ctx)
	ctx, span := telemetry.StartSpan(ctx, "SolverService."+OperationGlobalCut,
		trace.WithAttributes(
			attribute.String(telemetry.AttrInstance, inst.Name),
			attribute.String(telemetry.AttrRunID, runID),
		),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	start := time.Now()

	if algo == "" {
		if algo, err = s.defaultMaxFlow(); err != nil {
			return nil, err
		}
	}

	net, err := inst.Build()
	if err != nil {
		s.recordError(OperationGlobalCut, algo, err)
		return nil, err
	}
	algo = recommend(algo, net.Graph, false)
	s.recordGraph(OperationGlobalCut, net.Graph)
	log := logger.WithAlgorithm(ctx, string(algo), "instance", inst.Name, "operation", OperationGlobalCut)

	gc, err := algorithms.GlobalMinCut(ctx, net.Graph, algo, s.solverOptions())
	if err != nil {
		s.recordError(OperationGlobalCut, algo, err)
		log.Error("global min cut failed", "error", err)
		return nil, err
	}

	index := edgeIndex(net)
	cut := &CutResult{
		Capacity:    gc.Value,
		Source:      gc.Source,
		Sink:        gc.Sink,
		SourceNodes: gc.Cut.SourceNodes(),
		Edges:       make([]int, 0, len(gc.Cut.Edges)),
	}
	for _, id := range gc.Cut.Edges {
		cut.Edges = append(cut.Edges, index[int(id)])
	}

	result = &Result{
		RunID:     runID,
		Instance:  inst.Name,
		Operation: OperationGlobalCut,
		Mode:      ModeMaxFlow,
		Algorithm: algo,
		Status:    algorithms.StatusOptimal,
		Flow:      gc.Value,
		Cut:       cut,
		Warnings:  inst.Warnings(),
		Duration:  time.Since(start),
	}
	if s.cfg.Verify && cut.Capacity != gc.Value {
		err = apperror.Newf(apperror.CodeCutMismatch,
			"global cut capacity %d differs from its flow %d", cut.Capacity, gc.Value).WithSeverity(apperror.SeverityCritical)
		s.recordVerifyFailure(algo)
		s.recordError(OperationGlobalCut, algo, err)
		return nil, err
	}
	result.Verified = s.cfg.Verify

	s.recordSolve(OperationGlobalCut, result)
	telemetry.SetAttributes(ctx, telemetry.ResultAttributes(string(result.Status), result.Flow, 0, 0, false)...)
	log.Info("global min cut found",
		"value", gc.Value,
		"source", gc.Source,
		"sink", gc.Sink,
		"duration", result.Duration,
	)
	return result, nil
}
