package dag

// TransitiveReduction removes redundant edges from the graph.
//
// An edge (u, v) is redundant when u reaches v through at least one
// intermediate node. Ancestry graphs built from pairwise checks hold every
// such edge (hips→neck next to hips→spine→neck); dropping them leaves only
// the nearest selected ancestor of each node, which is what the DOT view shows.
//
// Time complexity is O(V²·E) in the worst case. Selections are small.
func TransitiveReduction(g *DAG) {
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return
	}

	index := PosMap(NodeIDs(nodes))
	adjacency := make([][]int, len(nodes))
	for _, e := range g.Edges() {
		adjacency[index[e.From]] = append(adjacency[index[e.From]], index[e.To])
	}

	reachable := computeReachability(adjacency)

	for _, e := range g.Edges() {
		src, dst := index[e.From], index[e.To]
		for _, mid := range adjacency[src] {
			if mid != dst && reachable[mid][dst] {
				g.RemoveEdge(e.From, e.To)
				break
			}
		}
	}
}

func computeReachability(adjacency [][]int) [][]bool {
	n := len(adjacency)
	reachable := make([][]bool, n)
	for i := range reachable {
		reachable[i] = make([]bool, n)
	}

	var dfs func(source, current int)
	dfs = func(source, current int) {
		for _, next := range adjacency[current] {
			if reachable[source][next] {
				continue
			}
			reachable[source][next] = true
			dfs(source, next)
		}
	}

	for i := range adjacency {
		dfs(i, i)
	}
	return reachable
}
