package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"flowengine/internal/instance"
	"flowengine/pkg/logger"
	"flowengine/pkg/metrics"
)

// BatchItem is the outcome of one instance of a batch.
type BatchItem struct {
	Instance string
	Result   *Result
	Err      error
}

// SolveBatch solves instances concurrently, at most as many at a time as the
// service's solver pool has slots (SolverConfig.MaxConcurrency). Circulation
// instances are routed to Circulate with req.Algorithm; the others to Solve
// with req, whose solver runs on a pooled graph clone.
//
// Items are returned in input order. A failing instance does not stop the
// others; its error is reported in BatchItem.Err.
func (s *SolverService) SolveBatch(ctx context.Context, insts []*instance.Instance, req Request) []BatchItem {
	items := make([]BatchItem, len(insts))

	limit := s.pool.Capacity()

	var tracker *metrics.SolveTracker
	if s.metrics != nil {
		tracker = metrics.NewSolveTracker(s.metrics.SolvesInFlight)
	}

	var eg errgroup.Group
	eg.SetLimit(limit)

	for i, inst := range insts {
		eg.Go(func() error {
			if tracker != nil {
				tracker.Start("batch")
				defer tracker.End("batch")
			}

			item := BatchItem{}
			if inst == nil {
				item.Err = fmt.Errorf("batch item %d: instance is nil", i)
				items[i] = item
				return nil
			}
			item.Instance = inst.Name

			if inst.IsCirculation() {
				item.Result, item.Err = s.Circulate(ctx, inst, req.Algorithm)
			} else {
				item.Result, item.Err = s.Solve(ctx, inst, req)
			}
			if item.Err != nil {
				item.Err = fmt.Errorf("instance %s: %w", inst.Name, item.Err)
			}
			items[i] = item
			return nil
		})
	}

	_ = eg.Wait()

	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
		}
	}
	logger.WithComponent("batch").Info("batch finished",
		"instances", len(insts),
		"failed", failed,
		"concurrency", limit,
	)
	return items
}
