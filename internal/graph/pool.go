package graph

import (
	"sync"
)

// =============================================================================
// Pool
// =============================================================================

// Pool provides memory pooling for graphs and per-solve scratch buffers.
//
// Batch solving allocates one graph clone and several node-indexed slices per
// instance. Pooling them reduces allocations and GC pressure when many
// instances are solved back to back.
//
// Reuse is always explicit: graphs are cleared on release, and scratch
// slices are re-sliced to the requested length and zeroed on acquire.
//
// The pool is safe for concurrent use from multiple goroutines.
type Pool struct {
	graphs sync.Pool
	ints   sync.Pool
	int64s sync.Pool
	bools  sync.Pool
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{
		graphs: sync.Pool{New: func() any { return New(0) }},
		ints: sync.Pool{New: func() any {
			s := make([]int, 0, 64)
			return &s
		}},
		int64s: sync.Pool{New: func() any {
			s := make([]int64, 0, 64)
			return &s
		}},
		bools: sync.Pool{New: func() any {
			s := make([]bool, 0, 64)
			return &s
		}},
	}
}

var globalPool = NewPool()

// GetPool returns the process-wide pool.
func GetPool() *Pool {
	return globalPool
}

// AcquireGraph obtains an empty graph from the pool.
func (p *Pool) AcquireGraph() *Graph {
	return p.graphs.Get().(*Graph)
}

// ReleaseGraph clears g and returns it to the pool. g must not be used afterwards.
// It is safe to pass nil.
func (p *Pool) ReleaseGraph(g *Graph) {
	if g == nil {
		return
	}
	g.Clear(0)
	p.graphs.Put(g)
}

// CloneGraph copies g into a pooled graph.
func (p *Pool) CloneGraph(g *Graph) *Graph {
	dst := p.AcquireGraph()
	g.CloneInto(dst)
	return dst
}

// AcquireInts returns a zeroed []int of length n.
func (p *Pool) AcquireInts(n int) *[]int {
	s := p.ints.Get().(*[]int)
	*s = resize(*s, n)
	return s
}

// ReleaseInts returns a slice obtained from AcquireInts.
func (p *Pool) ReleaseInts(s *[]int) {
	if s == nil {
		return
	}
	*s = (*s)[:0]
	p.ints.Put(s)
}

// AcquireInt64s returns a zeroed []int64 of length n.
func (p *Pool) AcquireInt64s(n int) *[]int64 {
	s := p.int64s.Get().(*[]int64)
	*s = resize(*s, n)
	return s
}

// ReleaseInt64s returns a slice obtained from AcquireInt64s.
func (p *Pool) ReleaseInt64s(s *[]int64) {
	if s == nil {
		return
	}
	*s = (*s)[:0]
	p.int64s.Put(s)
}

// AcquireBools returns a zeroed []bool of length n.
func (p *Pool) AcquireBools(n int) *[]bool {
	s := p.bools.Get().(*[]bool)
	*s = resize(*s, n)
	return s
}

// ReleaseBools returns a slice obtained from AcquireBools.
func (p *Pool) ReleaseBools(s *[]bool) {
	if s == nil {
		return
	}
	*s = (*s)[:0]
	p.bools.Put(s)
}

func resize[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	s = s[:n]
	clear(s)
	return s
}

// =============================================================================
// Scratch
// =============================================================================

// Scratch tracks buffers acquired for one solve and releases them together.
//
//	scratch := graph.NewScratch(pool)
//	defer scratch.Release()
//	height := scratch.Ints(g.NodeCount())
//
// A nil pool makes Scratch allocate plain slices. Scratch is NOT thread-safe.
type Scratch struct {
	pool   *Pool
	ints   []*[]int
	int64s []*[]int64
	bools  []*[]bool
}

// NewScratch creates a scratch tracker backed by pool.
func NewScratch(pool *Pool) *Scratch {
	return &Scratch{pool: pool}
}

// Ints returns a zeroed []int of length n.
func (s *Scratch) Ints(n int) []int {
	if s.pool == nil {
		return make([]int, n)
	}
	buf := s.pool.AcquireInts(n)
	s.ints = append(s.ints, buf)
	return *buf
}

// Int64s returns a zeroed []int64 of length n.
func (s *Scratch) Int64s(n int) []int64 {
	if s.pool == nil {
		return make([]int64, n)
	}
	buf := s.pool.AcquireInt64s(n)
	s.int64s = append(s.int64s, buf)
	return *buf
}

// Bools returns a zeroed []bool of length n.
func (s *Scratch) Bools(n int) []bool {
	if s.pool == nil {
		return make([]bool, n)
	}
	buf := s.pool.AcquireBools(n)
	s.bools = append(s.bools, buf)
	return *buf
}

// Release returns all tracked buffers to the pool. Safe to call multiple times.
func (s *Scratch) Release() {
	if s.pool == nil {
		return
	}
	for _, b := range s.ints {
		s.pool.ReleaseInts(b)
	}
	for _, b := range s.int64s {
		s.pool.ReleaseInt64s(b)
	}
	for _, b := range s.bools {
		s.pool.ReleaseBools(b)
	}
	s.ints = s.ints[:0]
	s.int64s = s.int64s[:0]
	s.bools = s.bools[:0]
}
