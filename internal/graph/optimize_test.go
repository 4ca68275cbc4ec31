package graph

import (
	"testing"
)

func linear(nodes ...*Node) *Graph {
	g := &Graph{Nodes: nodes}
	for i := 1; i < len(nodes); i++ {
		g.Edges = append(g.Edges, Edge{Source: nodes[i-1].ID, Target: nodes[i].ID})
	}
	return g
}

func TestCombineRedundant_FilterChain(t *testing.T) {
	src := node("src", KindSource)
	f1 := &Node{ID: "f1", Data: NodeData{Type: KindFilter, Expr: "a > 1"}}
	f2 := &Node{ID: "f2", Data: NodeData{Type: KindFilter, Expr: "b < 2"}}
	snk := node("snk", KindSink)

	out := CombineRedundant(linear(src, f1, f2, snk).clone())

	if len(out.Nodes) != 3 {
		t.Fatalf("expected filter chain collapsed to 3 nodes, got %d", len(out.Nodes))
	}
	var combined string
	for _, n := range out.Nodes {
		if n.Data.Type == KindFilter {
			combined = n.Data.Expr
		}
	}
	if combined != "(a > 1) AND (b < 2)" {
		t.Errorf("unexpected combined predicate %q", combined)
	}
}

func TestCombineRedundant_SelectComposition(t *testing.T) {
	src := node("src", KindSource)
	s1 := &Node{ID: "s1", Data: NodeData{Type: KindSelect, Columns: "a, b, c"}}
	s2 := &Node{ID: "s2", Data: NodeData{Type: KindSelect, Columns: "c, a"}}
	snk := node("snk", KindSink)

	out := CombineRedundant(linear(src, s1, s2, snk).clone())

	var cols string
	count := 0
	for _, n := range out.Nodes {
		if n.Data.Type == KindSelect {
			cols = n.Data.Columns
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected a single select node, got %d", count)
	}
	// Parent order is preserved, restricted to the child's columns.
	if cols != "a,c" {
		t.Errorf("expected composed columns a,c got %q", cols)
	}
}

func TestCombineRedundant_ElidesWildcardSelect(t *testing.T) {
	src := node("src", KindSource)
	sel := &Node{ID: "sel", Data: NodeData{Type: KindSelect, Columns: "*"}}
	snk := node("snk", KindSink)

	out := CombineRedundant(linear(src, sel, snk).clone())
	if len(out.Nodes) != 2 {
		t.Fatalf("expected wildcard select elided, got %d nodes", len(out.Nodes))
	}
	if len(out.Edges) != 1 || out.Edges[0].Source != "src" || out.Edges[0].Target != "snk" {
		t.Errorf("expected spliced edge src->snk, got %v", out.Edges)
	}
}

func TestOptimize_PrunesToTarget(t *testing.T) {
	a := node("a", KindSource)
	f := &Node{ID: "f", Data: NodeData{Type: KindFilter, Expr: "x > 0"}}
	dead := node("dead", KindSink)
	g := &Graph{
		Nodes: []*Node{a, f, dead},
		Edges: []Edge{{Source: "a", Target: "f"}, {Source: "f", Target: "dead"}},
	}

	out := Optimize(g, "f")
	if len(out.Nodes) != 2 {
		t.Fatalf("expected pruned graph with 2 nodes, got %d", len(out.Nodes))
	}
	if _, ok := out.Node("dead"); ok {
		t.Error("node past the target must be pruned")
	}
	// Input graph untouched.
	if len(g.Nodes) != 3 {
		t.Error("optimize must not mutate its input")
	}
}
