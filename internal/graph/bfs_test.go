package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue(t *testing.T) {
	q := NewQueue(2)
	assert.True(t, q.Empty())

	q.Push(1)
	q.Push(2)
	q.Push(3)
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 1, q.Pop())
	assert.Equal(t, 2, q.Pop())
	assert.Equal(t, 1, q.Len())

	q.Reset()
	assert.True(t, q.Empty())
	assert.Equal(t, 0, q.Len())
}

func TestBFS_Chain(t *testing.T) {
	// 0 -> 1 -> 2 -> 3
	g := New(4)
	a := g.MustAddEdge(0, 1, 10, 0)
	b := g.MustAddEdge(1, 2, 10, 0)
	c := g.MustAddEdge(2, 3, 10, 0)

	res := BFS(g, 0, 3)
	require.True(t, res.Found)
	assert.Equal(t, []EdgeID{a, b, c}, ReconstructPath(g, res.ParentEdge, 0, 3))
	assert.Equal(t, []bool{true, true, true, true}, res.Visited)
}

func TestBFS_NoPath(t *testing.T) {
	g := New(4)
	g.MustAddEdge(0, 1, 10, 0)
	g.MustAddEdge(2, 3, 10, 0)

	res := BFS(g, 0, 3)
	assert.False(t, res.Found)
	assert.True(t, res.Visited[1])
	assert.False(t, res.Visited[2])
	assert.Nil(t, ReconstructPath(g, res.ParentEdge, 0, 3))
}

func TestBFS_SkipsSaturatedEdges(t *testing.T) {
	g := New(3)
	g.MustAddEdge(0, 1, 10, 0)
	g.MustAddEdge(1, 2, 0, 0)

	assert.False(t, BFS(g, 0, 2).Found)
}

func TestBFS_ShortestInEdges(t *testing.T) {
	// long path 0-1-2-3 and a direct edge 0-3 added last
	g := New(4)
	g.MustAddEdge(0, 1, 1, 0)
	g.MustAddEdge(1, 2, 1, 0)
	g.MustAddEdge(2, 3, 1, 0)
	direct := g.MustAddEdge(0, 3, 1, 0)

	res := BFS(g, 0, 3)
	assert.Equal(t, []EdgeID{direct}, ReconstructPath(g, res.ParentEdge, 0, 3))
}

func TestBFS_UsesReverseEdges(t *testing.T) {
	// flow on 1->2 can be undone to reach 1 from 2
	g := New(4)
	g.MustAddEdge(0, 2, 1, 0)
	mid := g.MustAddEdge(1, 2, 1, 0)
	g.MustAddEdge(1, 3, 1, 0)
	g.Push(mid, 1)

	res := BFS(g, 0, 3)
	require.True(t, res.Found)
	path := ReconstructPath(g, res.ParentEdge, 0, 3)
	assert.Equal(t, []int{0, 2, 1, 3}, PathNodes(g, path))
}

func TestBFSLevel(t *testing.T) {
	g, _ := diamond(t)
	level := make([]int, g.NodeCount())
	q := NewQueue(g.NodeCount())

	require.True(t, BFSLevel(g, 0, 3, level, q))
	assert.Equal(t, []int{0, 1, 1, 2}, level)

	g2 := New(3)
	g2.MustAddEdge(0, 1, 1, 0)
	level2 := make([]int, 3)
	assert.False(t, BFSLevel(g2, 0, 2, level2, q))
	assert.Equal(t, Unreached, level2[2])
}

func TestBFSReverse(t *testing.T) {
	g, ids := diamond(t)
	dist := make([]int, g.NodeCount())
	q := NewQueue(g.NodeCount())

	BFSReverse(g, 3, dist, q)
	assert.Equal(t, []int{2, 1, 1, 0}, dist)

	// saturate 1->3; node 1 can only reach the sink by pushing back to 0
	g.Push(ids[2], 2)
	g.Push(ids[0], 2)
	BFSReverse(g, 3, dist, q)
	assert.Equal(t, 1, dist[2])
	assert.Equal(t, 2, dist[0])
	assert.Equal(t, 3, dist[1])
}

func TestReachable(t *testing.T) {
	g, ids := diamond(t)
	routeDiamond(g, ids)

	// after max flow 1->3 and 0->2 are saturated: only 0 and 1 remain reachable
	assert.Equal(t, []bool{true, true, false, false}, Reachable(g, 0))
	assert.Equal(t, make([]bool, 4), Reachable(g, 42))
}
