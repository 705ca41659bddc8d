package cache

import (
	"context"
	"testing"
	"time"
)

func newTestSolverCache(t *testing.T) (*SolverCache, *MemoryCache) {
	t.Helper()
	mem := NewMemoryCache(nil)
	t.Cleanup(func() { mem.Close() })
	return NewSolverCache(mem, 5*time.Minute), mem
}

func TestSolverCache_SetGet(t *testing.T) {
	sc, _ := newTestSolverCache(t)
	ctx := context.Background()
	key := SolveKey{GraphHash: "g1", Sink: 3, Mode: "max_flow", Algorithm: "dinic"}

	in := &CachedSolveResult{
		Algorithm:  "dinic",
		Flow:       23,
		Cost:       0,
		Status:     "optimal",
		Iterations: 3,
		EdgeFlows:  []int64{12, 11, 0, 12},
		Paths: []CachedPath{
			{Edges: []int{0, 6}, Nodes: []int{0, 1, 3}, Flow: 12, Cost: 0},
		},
	}
	if err := sc.Set(ctx, key, in, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if in.ComputedAt.IsZero() {
		t.Error("Set should stamp ComputedAt")
	}

	got, ok, err := sc.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v; want hit", ok, err)
	}
	if got.Flow != 23 || got.Status != "optimal" || len(got.EdgeFlows) != 4 || got.EdgeFlows[1] != 11 {
		t.Errorf("unexpected cached result: %+v", got)
	}
	if len(got.Paths) != 1 || got.Paths[0].Flow != 12 || len(got.Paths[0].Nodes) != 3 || got.Paths[0].Edges[1] != 6 {
		t.Errorf("paths not restored: %+v", got.Paths)
	}
}

func TestSolverCache_Miss(t *testing.T) {
	sc, _ := newTestSolverCache(t)
	ctx := context.Background()

	key := SolveKey{GraphHash: "g1", Sink: 3, Mode: "max_flow", Algorithm: "dinic"}
	sc.Set(ctx, key, &CachedSolveResult{Flow: 1}, 0)

	other := key
	other.Algorithm = "edmonds_karp"
	got, ok, err := sc.Get(ctx, other)
	if err != nil || ok || got != nil {
		t.Errorf("expected miss for another algorithm, got %v %v %v", got, ok, err)
	}
}

func TestSolverCache_CorruptEntry(t *testing.T) {
	sc, mem := newTestSolverCache(t)
	ctx := context.Background()
	key := SolveKey{GraphHash: "g1", Sink: 1, Mode: "max_flow", Algorithm: "dinic"}

	mem.Set(ctx, key.String(), []byte("{not json"), 0)

	_, ok, err := sc.Get(ctx, key)
	if err != nil || ok {
		t.Errorf("corrupt entry should read as a miss, got %v %v", ok, err)
	}
	if exists, _ := mem.Exists(ctx, key.String()); exists {
		t.Error("corrupt entry should be removed")
	}
}

func TestSolverCache_Invalidate(t *testing.T) {
	sc, _ := newTestSolverCache(t)
	ctx := context.Background()

	keys := []SolveKey{
		{GraphHash: "g1", Sink: 3, Mode: "max_flow", Algorithm: "dinic"},
		{GraphHash: "g1", Sink: 3, Mode: "min_cost", Algorithm: "successive_shortest_path"},
		{GraphHash: "g2", Sink: 3, Mode: "max_flow", Algorithm: "dinic"},
	}
	for _, k := range keys {
		sc.Set(ctx, k, &CachedSolveResult{Flow: 1}, 0)
	}

	n, err := sc.Invalidate(ctx, "g1")
	if err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Invalidate() removed %d, want 2", n)
	}
	if _, ok, _ := sc.Get(ctx, keys[2]); !ok {
		t.Error("other graph's entry should remain")
	}

	n, err = sc.InvalidateAll(ctx)
	if err != nil || n != 1 {
		t.Errorf("InvalidateAll() = %d, %v; want 1", n, err)
	}

	stats, err := sc.Stats(ctx)
	if err != nil || stats.TotalKeys != 0 {
		t.Errorf("expected empty cache, got %+v %v", stats, err)
	}
}
