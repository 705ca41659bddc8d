// Package service runs flow computations on instances: it resolves solver
// defaults from configuration, consults the result cache, verifies results
// and records metrics, traces and logs for every run.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"flowengine/internal/algorithms"
	"flowengine/internal/graph"
	"flowengine/pkg/apperror"
	"flowengine/pkg/cache"
	"flowengine/pkg/config"
	"flowengine/pkg/logger"
	"flowengine/pkg/metrics"
)

// Mode selects what a solve optimises.
type Mode string

const (
	// ModeMaxFlow routes the maximum flow and ignores costs.
	ModeMaxFlow Mode = "max_flow"
	// ModeMinCost routes the target (or maximum) flow at minimum cost.
	ModeMinCost Mode = "min_cost"
)

// ParseMode accepts "max_flow"/"maxflow"/"max" and "min_cost"/"mincost"/"min".
func ParseMode(s string) (Mode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "", "auto":
		return "", nil
	case "max_flow", "maxflow", "max":
		return ModeMaxFlow, nil
	case "min_cost", "mincost", "min":
		return ModeMinCost, nil
	}
	return "", apperror.Newf(apperror.CodeInvalidArgument, "unknown mode %q: want max_flow or min_cost", s)
}

// Request describes one solve. Zero fields are filled from the instance and
// the solver configuration.
type Request struct {
	// Mode is inferred when empty: min_cost if a target is set or the
	// algorithm minimises cost, max_flow otherwise.
	Mode Mode

	// Algorithm overrides the configured default for the mode.
	Algorithm algorithms.Algorithm

	// Target overrides the instance target. Not allowed in max_flow mode.
	Target *algorithms.FlowTarget
}

// CutResult is a minimum cut expressed in instance terms.
type CutResult struct {
	Capacity    uint64 `json:"capacity"`
	Source      int    `json:"source"`
	Sink        int    `json:"sink"`
	SourceNodes []int  `json:"source_nodes"`
	// Edges are indices into Instance.Edges.
	Edges []int `json:"edges"`
}

// Result is the outcome of one run.
type Result struct {
	RunID      string                 `json:"run_id"`
	Instance   string                 `json:"instance"`
	Operation  string                 `json:"operation"`
	Mode       Mode                   `json:"mode,omitempty"`
	Algorithm  algorithms.Algorithm   `json:"algorithm"`
	Target     *algorithms.FlowTarget `json:"target,omitempty"`
	Status     algorithms.FlowStatus  `json:"status"`
	Flow       uint64                 `json:"flow"`
	Cost       int64                  `json:"cost"`
	Iterations int                    `json:"iterations"`

	// EdgeFlows[i] is the flow on Instance.Edges[i].
	EdgeFlows []int64               `json:"edge_flows"`
	Paths     []algorithms.FlowPath `json:"paths,omitempty"`
	Cut       *CutResult            `json:"cut,omitempty"`
	Summary   *FlowSummary          `json:"summary,omitempty"`

	// Circulation runs only.
	Feasible bool   `json:"feasible"`
	Required uint64 `json:"required,omitempty"`

	Verified bool          `json:"verified"`
	CacheHit bool          `json:"cache_hit"`
	Warnings []string      `json:"warnings,omitempty"`
	Duration time.Duration `json:"duration"`
}

// FlowSummary describes how the routed flow uses the network.
type FlowSummary struct {
	ActiveEdges        int     `json:"active_edges"`
	SaturatedEdges     int     `json:"saturated_edges"`
	AverageUtilization float64 `json:"average_utilization"`
}

// Infeasible reports whether the run ended without meeting an exact target
// or without a feasible circulation.
func (r *Result) Infeasible() bool {
	return r != nil && r.Status == algorithms.StatusInfeasible
}

// SolverService orchestrates runs. It is safe for concurrent use.
type SolverService struct {
	cfg     config.SolverConfig
	cache   *cache.SolverCache
	metrics *metrics.Metrics
	pool    *algorithms.SolverPool
}

// Option configures a SolverService.
type Option func(*SolverService)

// WithCache enables result caching.
func WithCache(c *cache.SolverCache) Option {
	return func(s *SolverService) {
		s.cache = c
	}
}

// WithMetrics sets the metrics sink. The default is metrics.Get().
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *SolverService) {
		s.metrics = m
	}
}

// NewSolverService creates a service using cfg for solver defaults.
func NewSolverService(cfg config.SolverConfig, opts ...Option) *SolverService {
	s := &SolverService{
		cfg:     cfg,
		metrics: metrics.Get(),
		pool:    algorithms.NewSolverPool(max(cfg.MaxConcurrency, 1)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the solver configuration in use.
func (s *SolverService) Config() config.SolverConfig {
	return s.cfg
}

// startRun assigns a run ID and stores it in ctx for the logger.
func startRun(ctx context.Context) (context.Context, string) {
	runID := uuid.NewString()
	return logger.ContextWithRunID(ctx, runID), runID
}

func (s *SolverService) solverOptions() *algorithms.SolverOptions {
	return algorithms.DefaultSolverOptions().
		WithTimeout(s.cfg.Timeout).
		WithMaxIterations(s.cfg.MaxIterations).
		WithReturnPaths(s.cfg.ReturnPaths)
}

// autoAlgorithm as a configured default defers the choice to the network
// statistics.
const autoAlgorithm = "auto"

// configuredAlgorithm parses a configured default, falling back when unset.
// An empty algorithm with a nil error means auto.
func configuredAlgorithm(name string, fallback algorithms.Algorithm) (algorithms.Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return fallback, nil
	case autoAlgorithm:
		return "", nil
	}
	return algorithms.ParseAlgorithm(name)
}

// recommend picks an algorithm for g when the configured default is auto.
func recommend(algo algorithms.Algorithm, g *graph.Graph, minCost bool) algorithms.Algorithm {
	if algo != "" {
		return algo
	}
	return algorithms.RecommendAlgorithm(g.Stats(), minCost)
}

// summarize reads utilisation figures off a solved graph.
func summarize(g *graph.Graph) *FlowSummary {
	fs := g.FlowStats()
	return &FlowSummary{
		ActiveEdges:        fs.ActiveEdges,
		SaturatedEdges:     fs.SaturatedEdges,
		AverageUtilization: fs.AverageUtilization,
	}
}

func (s *SolverService) defaultMaxFlow() (algorithms.Algorithm, error) {
	return configuredAlgorithm(s.cfg.DefaultMaxFlow, algorithms.DefaultMaxFlowAlgorithm)
}

func (s *SolverService) defaultMinCost() (algorithms.Algorithm, error) {
	return configuredAlgorithm(s.cfg.DefaultMinCost, algorithms.DefaultMinCostAlgorithm)
}

// =============================================================================
// Metrics
// =============================================================================

func (s *SolverService) recordSolve(operation string, r *Result) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordSolve(operation, string(r.Algorithm), string(r.Status), r.Duration, r.Flow, r.Cost, r.Iterations)
}

func (s *SolverService) recordError(operation string, algorithm algorithms.Algorithm, err error) {
	if s.metrics == nil || err == nil {
		return
	}
	if algorithm == "" {
		algorithm = autoAlgorithm
	}
	s.metrics.RecordError(operation, string(algorithm), string(apperror.Code(err)))
}

func (s *SolverService) recordGraph(operation string, g *graph.Graph) {
	if s.metrics == nil {
		return
	}
	stats := g.Stats()
	s.recordGraphSize(operation, stats.NodeCount, stats.EdgeCount)
}

func (s *SolverService) recordGraphSize(operation string, nodes, edges int) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordGraphSize(operation, nodes, edges)
}

func (s *SolverService) recordCacheLookup(hit bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCacheLookup(hit)
}

func (s *SolverService) recordVerifyFailure(algorithm algorithms.Algorithm) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordVerifyFailure(string(algorithm))
}
