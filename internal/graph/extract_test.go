package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowengine/pkg/apperror"
)

// routeDiamond pushes the maximum flow of 4 through the diamond by hand.
func routeDiamond(g *Graph, ids []EdgeID) {
	g.Push(ids[0], 2) // 0->1
	g.Push(ids[2], 2) // 1->3
	g.Push(ids[1], 2) // 0->2
	g.Push(ids[3], 2) // 2->3
}

func TestGraph_FlowOn(t *testing.T) {
	g, ids := diamond(t)
	routeDiamond(g, ids)

	for _, id := range ids {
		f, err := g.FlowOn(id)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), f)
	}

	_, err := g.FlowOn(g.Rev(ids[0]))
	assert.True(t, apperror.Is(err, apperror.CodeInvalidEdge))

	_, err = g.FlowOn(EdgeID(100))
	assert.True(t, apperror.Is(err, apperror.CodeInvalidEdge))
}

func TestGraph_FlowValueAndCost(t *testing.T) {
	g, ids := diamond(t)
	routeDiamond(g, ids)

	assert.Equal(t, uint64(4), g.FlowValue(0))
	assert.Equal(t, uint64(4), g.InflowValue(3))
	// 2*1 + 2*2 + 2*3 + 2*4
	assert.Equal(t, int64(20), g.TotalCost())

	// idempotent
	for range 3 {
		assert.Equal(t, uint64(4), g.FlowValue(0))
		assert.Equal(t, int64(20), g.TotalCost())
	}

	assert.Equal(t, uint64(0), g.FlowValue(-1))
	assert.Equal(t, uint64(0), g.InflowValue(99))
}

func TestGraph_FlowValue_NetOfReturningFlow(t *testing.T) {
	// 0 -> 1 -> 0 cycle plus 0 -> 2: the cycle contributes nothing net.
	g := New(3)
	a := g.MustAddEdge(0, 1, 5, 0)
	b := g.MustAddEdge(1, 0, 5, 0)
	c := g.MustAddEdge(0, 2, 5, 0)
	g.Push(a, 3)
	g.Push(b, 3)
	g.Push(c, 1)

	assert.Equal(t, uint64(1), g.FlowValue(0))
	assert.Equal(t, uint64(1), g.InflowValue(2))
}

func TestGraph_TotalCost_NegativeCosts(t *testing.T) {
	g := New(2)
	id := g.MustAddEdge(0, 1, 10, -7)
	g.Push(id, 3)

	assert.Equal(t, int64(-21), g.TotalCost())
}

func TestGraph_EdgeFlowsRoundTrip(t *testing.T) {
	g, ids := diamond(t)
	routeDiamond(g, ids)
	flows := g.EdgeFlows()
	assert.Equal(t, []int64{2, 2, 2, 2}, flows)

	fresh, _ := diamond(t)
	require.NoError(t, fresh.RestoreFlows(flows))
	assert.Equal(t, g.FlowValue(0), fresh.FlowValue(0))
	assert.Equal(t, g.TotalCost(), fresh.TotalCost())

	err := fresh.RestoreFlows([]int64{1})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidArgument))
}

func TestCheckFlow(t *testing.T) {
	t.Run("valid flow", func(t *testing.T) {
		g, ids := diamond(t)
		routeDiamond(g, ids)
		assert.NoError(t, CheckFlow(g, 0, 3))
	})

	t.Run("zero flow", func(t *testing.T) {
		g, _ := diamond(t)
		assert.NoError(t, CheckFlow(g, 0, 3))
	})

	t.Run("conservation violated", func(t *testing.T) {
		g, ids := diamond(t)
		g.Push(ids[0], 2) // flow stuck at node 1

		err := CheckFlow(g, 0, 3)
		require.Error(t, err)

		var verrs *apperror.ValidationErrors
		require.True(t, errors.As(err, &verrs))
		codes := make([]apperror.ErrorCode, 0, len(verrs.Errors))
		for _, e := range verrs.Errors {
			codes = append(codes, e.Code)
		}
		assert.Contains(t, codes, apperror.CodeConservationViolation)
	})

	t.Run("capacity violated", func(t *testing.T) {
		g, ids := diamond(t)
		g.Push(ids[0], 5)
		g.Push(ids[2], 5)

		err := CheckFlow(g, 0, 3)
		require.Error(t, err)
		assert.Contains(t, err.Error(), string(apperror.CodeCapacityViolation))
	})
}
