package algorithms

import (
	"context"

	"flowengine/internal/graph"
)

// =============================================================================
// Push-Relabel Algorithm (Preflow-Push)
// =============================================================================
//
// Heights h satisfy h(source) = n, h(sink) = 0 and h(u) <= h(v) + 1 for every
// residual record u -> v. Active nodes (positive excess, not a terminal) are
// discharged by pushing along admissible records (h(u) == h(v) + 1) and
// relabeled to 1 + min neighbour height when none remain.
//
// The run is single-phase: nodes that can no longer reach the sink rise above
// n and drain their excess back to the source, so on return the residual state
// is a valid maximum flow and conservation holds at every inner node.
//
// Heuristics:
//   - Global relabel: exact heights from a reverse BFS from the sink (and from
//     the source for nodes cut off from the sink), initially and after every
//     n relabels
//   - Gap: when no node is left at height k < n, every node with k < h < n
//     is lifted to n + 1
//
// Time Complexity:
//   - FIFO variant: O(V³)
//   - Highest Label variant: O(V² √E)
//
// Space Complexity: O(V + E)
// =============================================================================

// MaxFlowResult contains the result of a max-flow algorithm.
type MaxFlowResult struct {
	// MaxFlow is the flow value routed from source to sink.
	MaxFlow uint64

	// Iterations counts discharges (push-relabel), augmentations
	// (Edmonds-Karp) or phases (Dinic).
	Iterations int

	// Paths holds augmentations when ReturnPaths is enabled and supported.
	Paths []FlowPath

	// Canceled is set when the context ended first.
	Canceled bool

	// LimitReached is set when MaxIterations stopped the run.
	LimitReached bool
}

// =============================================================================
// Bucket Queue
// =============================================================================

// bucketQueue keeps active nodes bucketed by height for highest-label selection.
type bucketQueue struct {
	buckets     [][]int
	inBucket    []bool
	maxActive   int
	activeCount int
}

func newBucketQueue(maxHeight, nodeCount int, scratch *graph.Scratch) *bucketQueue {
	return &bucketQueue{
		buckets:   make([][]int, maxHeight+1),
		inBucket:  scratch.Bools(nodeCount),
		maxActive: -1,
	}
}

// push adds u to the bucket at height h. Nodes already queued are ignored.
func (bq *bucketQueue) push(u, h int) {
	if bq.inBucket[u] || h < 0 || h >= len(bq.buckets) {
		return
	}
	bq.buckets[h] = append(bq.buckets[h], u)
	bq.inBucket[u] = true
	bq.activeCount++
	if h > bq.maxActive {
		bq.maxActive = h
	}
}

// popHighest removes and returns a node from the highest non-empty bucket.
func (bq *bucketQueue) popHighest() (int, bool) {
	for bq.maxActive >= 0 {
		bucket := bq.buckets[bq.maxActive]
		if n := len(bucket); n > 0 {
			u := bucket[n-1]
			bq.buckets[bq.maxActive] = bucket[:n-1]
			bq.inBucket[u] = false
			bq.activeCount--
			return u, true
		}
		bq.maxActive--
	}
	return -1, false
}

// remove deletes u from the bucket at height h.
func (bq *bucketQueue) remove(u, h int) {
	if !bq.inBucket[u] || h < 0 || h >= len(bq.buckets) {
		return
	}
	bucket := bq.buckets[h]
	for i, v := range bucket {
		if v == u {
			bucket[i] = bucket[len(bucket)-1]
			bq.buckets[h] = bucket[:len(bucket)-1]
			bq.inBucket[u] = false
			bq.activeCount--
			return
		}
	}
}

// move re-buckets u after its height changed from oldH to newH.
func (bq *bucketQueue) move(u, oldH, newH int) {
	if !bq.inBucket[u] {
		return
	}
	bq.remove(u, oldH)
	bq.push(u, newH)
}

func (bq *bucketQueue) clear() {
	for i := range bq.buckets {
		bq.buckets[i] = bq.buckets[i][:0]
	}
	clear(bq.inBucket)
	bq.maxActive = -1
	bq.activeCount = 0
}

// =============================================================================
// Push-Relabel State
// =============================================================================

type prState struct {
	g            *graph.Graph
	source, sink int
	n            int
	maxHeight    int

	height      []int
	excess      []int64
	currentArc  []int
	heightCount []int

	// onHeightChange is invoked when a gap or global relabel moves an active node.
	onHeightChange func(u, oldH, newH int)
	onGlobal       func()

	relabelsSinceGlobal int
	globalPeriod        int

	pushes, relabels, globals int

	queue *graph.Queue
	dist  []int
}

func newPRState(g *graph.Graph, source, sink int, scratch *graph.Scratch) *prState {
	n := g.NodeCount()
	maxHeight := 2 * n
	return &prState{
		g:            g,
		source:       source,
		sink:         sink,
		n:            n,
		maxHeight:    maxHeight,
		height:       scratch.Ints(n),
		excess:       scratch.Int64s(n),
		currentArc:   scratch.Ints(n),
		heightCount:  scratch.Ints(maxHeight + 1),
		globalPeriod: max(n, 1),
		queue:        graph.NewQueue(n),
		dist:         scratch.Ints(n),
	}
}

// initialize saturates every residual record leaving the source and computes
// exact heights. activate is called for each node that received excess.
func (s *prState) initialize(activate func(int)) {
	s.height[s.source] = s.n
	for _, id := range s.g.Adjacent(s.source) {
		r := s.g.Residual(id)
		v := s.g.Head(id)
		if r <= 0 || v == s.source {
			continue
		}
		s.g.Push(id, r)
		s.excess[v] += r
		s.pushes++
	}
	s.globalRelabel()
	for v := range s.n {
		if s.isActive(v) {
			activate(v)
		}
	}
}

func (s *prState) isActive(u int) bool {
	return u != s.source && u != s.sink && s.excess[u] > 0
}

// globalRelabel sets every height to its exact residual distance: d(u, sink)
// for nodes that reach the sink, n + d(u, source) for the rest.
func (s *prState) globalRelabel() {
	s.globals++
	s.relabelsSinceGlobal = 0
	clear(s.heightCount)

	graph.BFSReverse(s.g, s.sink, s.dist, s.queue)
	toSink := s.dist
	for u := range s.n {
		if u == s.source {
			continue
		}
		if toSink[u] != graph.Unreached {
			s.height[u] = toSink[u]
		} else {
			s.height[u] = -1
		}
	}

	graph.BFSReverse(s.g, s.source, s.dist, s.queue)
	for u := range s.n {
		switch {
		case u == s.source:
			s.height[u] = s.n
		case s.height[u] >= 0:
		case s.dist[u] != graph.Unreached:
			s.height[u] = s.n + s.dist[u]
		default:
			s.height[u] = s.maxHeight
		}
		s.heightCount[s.height[u]]++
		s.currentArc[u] = 0
	}

	if s.onGlobal != nil {
		s.onGlobal()
	}
}

// push moves min(excess, residual) along id. Returns the amount moved.
func (s *prState) push(u int, id graph.EdgeID) int64 {
	delta := min(s.excess[u], s.g.Residual(id))
	v := s.g.Head(id)
	s.g.Push(id, delta)
	s.excess[u] -= delta
	s.excess[v] += delta
	s.pushes++
	return delta
}

// relabel lifts u to 1 + the lowest neighbour reachable by a residual record
// and applies the gap heuristic to the height it left.
func (s *prState) relabel(u int) {
	oldH := s.height[u]
	newH := s.maxHeight
	for _, id := range s.g.Adjacent(u) {
		if s.g.Residual(id) > 0 {
			newH = min(newH, s.height[s.g.Head(id)]+1)
		}
	}

	s.heightCount[oldH]--
	s.height[u] = newH
	s.heightCount[newH]++
	s.currentArc[u] = 0
	s.relabels++
	s.relabelsSinceGlobal++

	if s.heightCount[oldH] == 0 && oldH > 0 && oldH < s.n {
		s.gap(oldH)
	}
}

// gap lifts every node strictly between k and n to n + 1.
func (s *prState) gap(k int) {
	for v := range s.n {
		h := s.height[v]
		if h <= k || h >= s.n || v == s.source {
			continue
		}
		s.heightCount[h]--
		s.height[v] = s.n + 1
		s.heightCount[s.n+1]++
		s.currentArc[v] = 0
		if s.onHeightChange != nil {
			s.onHeightChange(v, h, s.n+1)
		}
	}
}

// discharge pushes excess out of u until it is exhausted, relabeling when no
// admissible record remains. activate is called for nodes that become active.
func (s *prState) discharge(u int, activate func(int)) {
	adj := s.g.Adjacent(u)
	for s.excess[u] > 0 {
		if s.currentArc[u] >= len(adj) {
			s.relabel(u)
			if s.height[u] >= s.maxHeight {
				// No residual record leaves u; its excess cannot move.
				return
			}
			if s.relabelsSinceGlobal >= s.globalPeriod {
				s.globalRelabel()
			}
			continue
		}

		id := adj[s.currentArc[u]]
		v := s.g.Head(id)
		if s.g.Residual(id) > 0 && s.height[u] == s.height[v]+1 {
			wasActive := s.isActive(v)
			s.push(u, id)
			if !wasActive && s.isActive(v) {
				activate(v)
			}
			continue
		}
		s.currentArc[u]++
	}
}

// =============================================================================
// Push-Relabel FIFO Variant
// =============================================================================

// PushRelabel computes a maximum flow with FIFO active node selection.
func PushRelabel(ctx context.Context, g *graph.Graph, source, sink int, options *SolverOptions) *MaxFlowResult {
	options = options.orDefault()
	if source == sink || g.NodeCount() == 0 {
		return &MaxFlowResult{}
	}

	scratch := graph.NewScratch(options.Pool)
	defer scratch.Release()

	state := newPRState(g, source, sink, scratch)

	queue := graph.NewQueue(state.n)
	inQueue := scratch.Bools(state.n)
	activate := func(v int) {
		if !inQueue[v] {
			inQueue[v] = true
			queue.Push(v)
		}
	}

	state.initialize(activate)

	result := &MaxFlowResult{}
	for !queue.Empty() {
		if result.Iterations%checkInterval == 0 {
			select {
			case <-ctx.Done():
				result.Canceled = true
				result.MaxFlow = uint64(state.excess[sink])
				return result
			default:
			}
		}
		if options.limitReached(result.Iterations) {
			result.LimitReached = true
			break
		}

		u := queue.Pop()
		inQueue[u] = false
		state.discharge(u, activate)
		result.Iterations++
	}

	result.MaxFlow = uint64(state.excess[sink])
	return result
}

// =============================================================================
// Push-Relabel Highest Label Variant
// =============================================================================

// PushRelabelHighestLabel computes a maximum flow, always discharging the
// active node with the highest label.
func PushRelabelHighestLabel(ctx context.Context, g *graph.Graph, source, sink int, options *SolverOptions) *MaxFlowResult {
	options = options.orDefault()
	if source == sink || g.NodeCount() == 0 {
		return &MaxFlowResult{}
	}

	scratch := graph.NewScratch(options.Pool)
	defer scratch.Release()

	state := newPRState(g, source, sink, scratch)
	bq := newBucketQueue(state.maxHeight, state.n, scratch)

	activate := func(v int) {
		bq.push(v, state.height[v])
	}
	state.onHeightChange = func(v, oldH, newH int) {
		bq.move(v, oldH, newH)
	}
	state.onGlobal = func() {
		bq.clear()
		for v := range state.n {
			if state.isActive(v) {
				bq.push(v, state.height[v])
			}
		}
	}

	state.initialize(activate)

	result := &MaxFlowResult{}
	for {
		if result.Iterations%checkInterval == 0 {
			select {
			case <-ctx.Done():
				result.Canceled = true
				result.MaxFlow = uint64(state.excess[sink])
				return result
			default:
			}
		}
		if options.limitReached(result.Iterations) {
			result.LimitReached = true
			break
		}

		u, ok := bq.popHighest()
		if !ok {
			break
		}
		state.discharge(u, activate)
		if state.isActive(u) && state.height[u] < state.maxHeight {
			bq.push(u, state.height[u])
		}
		result.Iterations++
	}

	result.MaxFlow = uint64(state.excess[sink])
	return result
}
