package graph

// ReconstructPath returns the records on the path from source to sink
// encoded by parent, in source-to-sink order. Returns nil if sink was not reached.
func ReconstructPath(g *Graph, parent []EdgeID, source, sink int) []EdgeID {
	if source == sink || parent[sink] == NoEdge {
		return nil
	}

	var path []EdgeID
	for v := sink; v != source; {
		id := parent[v]
		if id == NoEdge {
			return nil
		}
		path = append(path, id)
		v = g.edges[id].From
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Bottleneck returns the smallest residual capacity along path, or 0 for an empty path.
func Bottleneck(g *Graph, path []EdgeID) int64 {
	if len(path) == 0 {
		return 0
	}
	limit := InfiniteCapacity
	for _, id := range path {
		if r := g.edges[id].Residual; r < limit {
			limit = r
		}
	}
	return limit
}

// Augment pushes flow along every record of path.
func Augment(g *Graph, path []EdgeID, flow int64) {
	for _, id := range path {
		g.Push(id, flow)
	}
}

// PathCost returns the sum of record costs along path.
func PathCost(g *Graph, path []EdgeID) int64 {
	var cost int64
	for _, id := range path {
		cost += g.edges[id].Cost
	}
	return cost
}

// PathNodes returns the node sequence visited by path.
func PathNodes(g *Graph, path []EdgeID) []int {
	if len(path) == 0 {
		return nil
	}
	nodes := make([]int, 0, len(path)+1)
	nodes = append(nodes, g.edges[path[0]].From)
	for _, id := range path {
		nodes = append(nodes, g.edges[id].To)
	}
	return nodes
}
