package algorithms

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"flowengine/internal/graph"
	"flowengine/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolve_Validation(t *testing.T) {
	tests := []struct {
		name         string
		graph        *graph.Graph
		source, sink int
		algorithm    Algorithm
		target       *FlowTarget
		wantCode     apperror.ErrorCode
	}{
		{
			name:     "nil_graph",
			graph:    nil,
			wantCode: apperror.CodeNilInput,
		},
		{
			name:     "source_out_of_range",
			graph:    graph.New(2),
			source:   5,
			sink:     1,
			wantCode: apperror.CodeInvalidSource,
		},
		{
			name:     "negative_sink",
			graph:    graph.New(2),
			sink:     -1,
			wantCode: apperror.CodeInvalidSink,
		},
		{
			name:     "empty_graph",
			graph:    graph.New(0),
			wantCode: apperror.CodeInvalidSource,
		},
		{
			name:      "unknown_algorithm",
			graph:     graph.New(2),
			sink:      1,
			algorithm: "simplex",
			wantCode:  apperror.CodeInvalidAlgorithm,
		},
		{
			name:      "target_with_max_flow_algorithm",
			graph:     graph.New(2),
			sink:      1,
			algorithm: AlgorithmDinic,
			target:    AtMost(3),
			wantCode:  apperror.CodeInvalidTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Solve(context.Background(), tt.graph, tt.source, tt.sink, tt.algorithm, tt.target, nil)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.wantCode, apperror.Code(err))
		})
	}
}

func TestSolve_DefaultAlgorithm(t *testing.T) {
	g := buildGraph(t, 4, diamondEdges)

	result, err := Solve(context.Background(), g, 0, 3, "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxFlowAlgorithm, result.Algorithm)
	assert.Equal(t, uint64(4), result.Flow)
	assert.Equal(t, int64(20), result.Cost, "every max flow of the diamond has the same cost")
}

func TestContextError(t *testing.T) {
	assert.Equal(t, apperror.CodeTimeout, apperror.Code(contextError(context.DeadlineExceeded)))
	assert.Equal(t, apperror.CodeCanceled, apperror.Code(contextError(context.Canceled)))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		flow   uint64
		target *FlowTarget
		want   FlowStatus
	}{
		{"no_target", 3, nil, StatusOptimal},
		{"target_met", 3, AtMost(3), StatusOptimal},
		{"below_target", 2, AtMost(3), StatusBelowTarget},
		{"exact_missed", 2, Exactly(3), StatusInfeasible},
		{"exact_met", 3, Exactly(3), StatusOptimal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.flow, tt.target))
		})
	}
}

func TestSolverOptions(t *testing.T) {
	opts := DefaultSolverOptions().
		WithTimeout(time.Second).
		WithMaxIterations(5).
		WithReturnPaths(true).
		WithPool(nil)

	assert.Equal(t, time.Second, opts.Timeout)
	assert.Equal(t, 5, opts.MaxIterations)
	assert.True(t, opts.ReturnPaths)
	assert.Nil(t, opts.Pool)
	assert.True(t, opts.limitReached(5))
	assert.False(t, opts.limitReached(4))

	var none *SolverOptions
	assert.NotNil(t, none.orDefault())
	assert.False(t, none.orDefault().limitReached(1_000_000))
}

func TestSolverPool_SolvePooled(t *testing.T) {
	pool := NewSolverPool(4)
	g := buildGraph(t, 6, clrsEdges)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := pool.SolvePooled(context.Background(), g, 0, 5, AlgorithmDinic, nil, nil)
			if err != nil {
				errs <- err
				return
			}
			if result.Flow != 23 {
				errs <- fmt.Errorf("unexpected max flow %d", result.Flow)
			}
			if len(result.EdgeFlows) != g.EdgeCount() {
				errs <- fmt.Errorf("expected %d edge flows, got %d", g.EdgeCount(), len(result.EdgeFlows))
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Zero(t, g.FlowValue(0), "shared graph must not be modified")
}

func TestSolverPool_Exhaustion(t *testing.T) {
	pool := NewSolverPool(1)
	require.NoError(t, pool.Acquire(context.Background()))
	defer pool.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := pool.SolvePooled(ctx, buildGraph(t, 2, singleEdge), 0, 1, "", nil, nil)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeTimeout))
}

func TestSolverPool_CanceledWithFreeSlot(t *testing.T) {
	pool := NewSolverPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := pool.SolvePooled(ctx, buildGraph(t, 4, diamondEdges), 0, 3, AlgorithmEdmondsKarp, nil, nil)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeCanceled))
	require.NotNil(t, result, "the solver reports the cancellation")
	assert.Equal(t, StatusCanceled, result.Status)

	require.NoError(t, pool.Acquire(context.Background()), "slot was released")
	pool.Release()
}
