package graph

import (
	"fmt"
	"strings"
)

// Optimize prunes nodes that cannot reach target (when a target is given)
// and then collapses redundant adjacent operations. The input graph is not
// mutated; a rewritten copy is returned.
func Optimize(g *Graph, target string) *Graph {
	return CombineRedundant(g.SubgraphTo(target).clone())
}

// clone copies the graph deeply enough that node payloads can be rewritten.
func (g *Graph) clone() *Graph {
	out := &Graph{Edges: append([]Edge(nil), g.Edges...)}
	for _, n := range g.Nodes {
		cp := *n
		out.Nodes = append(out.Nodes, &cp)
	}
	return out
}

// CombineRedundant collapses chains of operations that compose trivially:
//
//   - select ∘ select: the column lists are intersected into one node
//     (a wildcard parent or child just disappears).
//   - filter ∘ filter: the predicates are conjoined with AND.
//   - a wildcard select with exactly one input and one output is elided.
//
// Nodes are only removed when they have a single input and single output,
// so the removal can splice its edges back together.
func CombineRedundant(g *Graph) *Graph {
	id2 := g.ByID()
	order := g.TopoOrder()
	edges := append([]Edge(nil), g.Edges...)
	removed := make(map[string]bool)

	parentsOf := func(id string) []string {
		var ps []string
		for _, e := range edges {
			if e.Target == id && !removed[e.Source] {
				ps = append(ps, e.Source)
			}
		}
		return ps
	}
	childrenOf := func(id string) []string {
		var cs []string
		for _, e := range edges {
			if e.Source == id && !removed[e.Target] {
				cs = append(cs, e.Target)
			}
		}
		return cs
	}
	// remove splices a single-in single-out node out of the edge list.
	remove := func(id string) {
		ins := parentsOf(id)
		outs := childrenOf(id)
		if len(ins) != 1 || len(outs) != 1 {
			return
		}
		var kept []Edge
		for _, e := range edges {
			if e.Source != id && e.Target != id {
				kept = append(kept, e)
			}
		}
		kept = append(kept, Edge{Source: ins[0], Target: outs[0]})
		edges = kept
		removed[id] = true
	}

	for _, nid := range order {
		n := id2[nid]
		if n == nil || removed[nid] {
			continue
		}

		switch n.Data.Type {
		case KindSelect:
			ps := parentsOf(nid)
			if len(ps) == 1 {
				if p := id2[ps[0]]; p != nil && p.Data.Type == KindSelect {
					cols1 := strings.TrimSpace(p.Data.Columns)
					cols2 := strings.TrimSpace(n.Data.Columns)
					switch {
					case wildcard(cols1) && !wildcard(cols2):
						remove(ps[0])
					case !wildcard(cols1) && wildcard(cols2):
						remove(nid)
					case !wildcard(cols1) && !wildcard(cols2):
						composed := intersectColumns(cols1, cols2)
						if composed == "" {
							composed = "*"
						}
						p.Data.Columns = composed
						remove(nid)
					}
				}
			}
			if !removed[nid] && wildcard(strings.TrimSpace(n.Data.Columns)) &&
				len(n.Data.Schema) == 0 &&
				len(parentsOf(nid)) == 1 && len(childrenOf(nid)) == 1 {
				remove(nid)
			}

		case KindFilter:
			ps := parentsOf(nid)
			if len(ps) != 1 {
				continue
			}
			p := id2[ps[0]]
			if p == nil || p.Data.Type != KindFilter {
				continue
			}
			e1 := strings.TrimSpace(p.Data.Expr)
			e2 := strings.TrimSpace(n.Data.Expr)
			switch {
			case e1 == "":
				p.Data.Expr = e2
			case e2 == "":
				// parent predicate stands alone
			default:
				p.Data.Expr = fmt.Sprintf("(%s) AND (%s)", e1, e2)
			}
			remove(nid)
		}
	}

	out := &Graph{}
	for _, nid := range order {
		if n := id2[nid]; n != nil && !removed[nid] {
			out.Nodes = append(out.Nodes, n)
		}
	}
	seen := make(map[[2]string]bool)
	for _, e := range edges {
		if removed[e.Source] || removed[e.Target] {
			continue
		}
		key := [2]string{e.Source, e.Target}
		if !seen[key] {
			out.Edges = append(out.Edges, e)
			seen[key] = true
		}
	}
	return out
}

func wildcard(cols string) bool {
	return cols == "" || cols == "*"
}

// intersectColumns keeps the columns of first that also appear in second,
// preserving first's order.
func intersectColumns(first, second string) string {
	in := make(map[string]bool)
	for _, c := range SplitList(second) {
		in[c] = true
	}
	var kept []string
	for _, c := range SplitList(first) {
		if in[c] {
			kept = append(kept, c)
		}
	}
	return strings.Join(kept, ",")
}

// SplitList splits a comma-separated column list, trimming whitespace and
// dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
