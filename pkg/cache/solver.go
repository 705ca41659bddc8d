package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// SolverCache stores solve results as JSON under SolveKey strings.
type SolverCache struct {
	cache      Cache
	defaultTTL time.Duration
}

// CachedSolveResult is the stored form of a solve.
type CachedSolveResult struct {
	Algorithm  string       `json:"algorithm"`
	Flow       uint64       `json:"flow"`
	Cost       int64        `json:"cost"`
	Status     string       `json:"status"`
	Iterations int          `json:"iterations"`
	EdgeFlows  []int64      `json:"edge_flows"`
	Paths      []CachedPath `json:"paths,omitempty"`
	ComputedAt time.Time    `json:"computed_at"`
}

// CachedPath is one augmenting path of a cached solve. Edges are graph edge
// IDs, reverse edges included.
type CachedPath struct {
	Edges []int  `json:"edges"`
	Nodes []int  `json:"nodes"`
	Flow  uint64 `json:"flow"`
	Cost  int64  `json:"cost"`
}

// NewSolverCache wraps cache. A non-positive defaultTTL means ten minutes.
func NewSolverCache(cache Cache, defaultTTL time.Duration) *SolverCache {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &SolverCache{
		cache:      cache,
		defaultTTL: defaultTTL,
	}
}

// Get returns the cached result for key. A miss is (nil, false, nil).
func (sc *SolverCache) Get(ctx context.Context, key SolveKey) (*CachedSolveResult, bool, error) {
	k := key.String()

	data, err := sc.cache.Get(ctx, k)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var result CachedSolveResult
	if err := json.Unmarshal(data, &result); err != nil {
		_ = sc.cache.Delete(ctx, k) //nolint:errcheck // corrupt entry, best effort cleanup
		return nil, false, nil
	}

	return &result, true, nil
}

// Set stores result under key, stamping ComputedAt.
func (sc *SolverCache) Set(ctx context.Context, key SolveKey, result *CachedSolveResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = sc.defaultTTL
	}

	result.ComputedAt = time.Now()

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return sc.cache.Set(ctx, key.String(), data, ttl)
}

// Invalidate removes every cached request against the graph with graphHash.
func (sc *SolverCache) Invalidate(ctx context.Context, graphHash string) (int64, error) {
	return sc.cache.DeleteByPattern(ctx, "solve:*:*:"+graphHash+":*")
}

// InvalidateAll removes every cached solve.
func (sc *SolverCache) InvalidateAll(ctx context.Context) (int64, error) {
	return sc.cache.DeleteByPattern(ctx, "solve:*")
}

// Stats returns the statistics of the underlying cache.
func (sc *SolverCache) Stats(ctx context.Context) (*Stats, error) {
	return sc.cache.Stats(ctx)
}

// Close closes the underlying cache.
func (sc *SolverCache) Close() error {
	return sc.cache.Close()
}
