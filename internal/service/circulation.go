package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"flowengine/internal/algorithms"
	"flowengine/internal/instance"
	"flowengine/pkg/apperror"
	"flowengine/pkg/logger"
	"flowengine/pkg/telemetry"
)

// Circulate searches for a circulation meeting the instance's lower bounds
// and demands, at minimum cost when any edge has a cost. An empty algo picks
// the configured min-cost default for costed instances and the max-flow
// default otherwise.
//
// An infeasible instance yields Status infeasible and a nil error; its
// EdgeFlows are then left empty.
func (s *SolverService) Circulate(ctx context.Context, inst *instance.Instance, algo algorithms.Algorithm) (result *Result, err error) {
	if inst == nil {
		return nil, apperror.New(apperror.CodeNilInput, "instance is nil")
	}

	ctx, runID := startRun(ctx)
	ctx, span := telemetry.StartSpan(ctx, "SolverService."+OperationCirculation,
		trace.WithAttributes(
			attribute.String(telemetry.AttrInstance, inst.Name),
			attribute.String(telemetry.AttrRunID, runID),
		),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	start := time.Now()

	if algo == "" {
		if algo, err = s.circulationAlgorithm(inst); err != nil {
			return nil, err
		}
	}

	c, err := inst.BuildCirculation()
	if err != nil {
		s.recordError(OperationCirculation, algo, err)
		return nil, err
	}
	s.recordGraphSize(OperationCirculation, c.NodeCount(), c.EdgeCount())

	res, err := c.Solve(ctx, algo, s.solverOptions())
	if err != nil {
		s.recordError(OperationCirculation, algo, err)
		logger.WithAlgorithm(ctx, string(algo), "instance", inst.Name, "operation", OperationCirculation).
			Error("circulation failed", "error", err)
		return nil, err
	}
	log := logger.WithAlgorithm(ctx, string(res.Algorithm), "instance", inst.Name, "operation", OperationCirculation)

	mode := ModeMaxFlow
	if res.Algorithm.SupportsMinCost() {
		mode = ModeMinCost
	}
	result = &Result{
		RunID:     runID,
		Instance:  inst.Name,
		Operation: OperationCirculation,
		Mode:      mode,
		Algorithm: res.Algorithm,
		Status:    res.Status,
		Flow:      res.Flow,
		Cost:      res.Cost,
		Feasible:  res.Feasible,
		Required:  res.Required,
		Warnings:  inst.Warnings(),
	}

	if res.Feasible {
		if result.EdgeFlows, err = c.Flows(); err != nil {
			return nil, err
		}
		if s.cfg.Verify {
			if err := verifyCirculation(inst, result.EdgeFlows); err != nil {
				s.recordVerifyFailure(res.Algorithm)
				s.recordError(OperationCirculation, res.Algorithm, err)
				log.Error("verification failed", "error", err)
				return nil, err
			}
			result.Verified = true
		}
	}

	result.Duration = time.Since(start)
	s.recordSolve(OperationCirculation, result)
	telemetry.SetAttributes(ctx, telemetry.ResultAttributes(string(result.Status), result.Flow, result.Cost, 0, false)...)

	log.Info("circulation finished",
		"feasible", res.Feasible,
		"required", res.Required,
		"routed", res.Flow,
		"cost", res.Cost,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *SolverService) circulationAlgorithm(inst *instance.Instance) (algorithms.Algorithm, error) {
	for _, e := range inst.Edges {
		if e.Cost != 0 {
			return s.defaultMinCost()
		}
	}
	return s.defaultMaxFlow()
}
