package graph

// TopoOrder returns the node ids in dependency order using Kahn's
// algorithm. Ties among simultaneously ready nodes are broken by original
// declaration order (FIFO queue).
//
// If the graph contains a cycle the produced order would be shorter than
// the node count; in that degenerate case the ids are returned in
// declaration order instead of failing. Callers must tolerate an order
// that is not a valid topological order when a cycle is present.
func (g *Graph) TopoOrder() []string {
	indeg := make(map[string]int, len(g.Nodes))
	outs := make(map[string][]string, len(g.Nodes))
	for _, n := range g.Nodes {
		indeg[n.ID] = 0
	}
	for _, e := range g.Edges {
		indeg[e.Target]++
		outs[e.Source] = append(outs[e.Source], e.Target)
	}

	var queue []string
	for _, n := range g.Nodes {
		if indeg[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	order := make([]string, 0, len(g.Nodes))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		for _, t := range outs[cur] {
			indeg[t]--
			if indeg[t] == 0 {
				queue = append(queue, t)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		// Cycle fallback: declaration order.
		order = order[:0]
		for _, n := range g.Nodes {
			order = append(order, n.ID)
		}
	}
	return order
}

// Ancestors returns the set of node ids reachable by walking edges
// backward from target, inclusive of the target itself. The set carries
// no ordering guarantee.
func (g *Graph) Ancestors(target string) map[string]bool {
	preds := g.Parents()
	keep := make(map[string]bool)
	stack := []string{target}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if keep[cur] {
			continue
		}
		keep[cur] = true
		stack = append(stack, preds[cur]...)
	}
	return keep
}

// SubgraphTo returns the induced subgraph restricted to the ancestor
// closure of target. An empty target returns the graph unchanged.
// Supports "preview up to this node" runs.
func (g *Graph) SubgraphTo(target string) *Graph {
	if target == "" {
		return g
	}
	keep := g.Ancestors(target)
	sub := &Graph{}
	for _, n := range g.Nodes {
		if keep[n.ID] {
			sub.Nodes = append(sub.Nodes, n)
		}
	}
	for _, e := range g.Edges {
		if keep[e.Source] && keep[e.Target] {
			sub.Edges = append(sub.Edges, e)
		}
	}
	return sub
}
