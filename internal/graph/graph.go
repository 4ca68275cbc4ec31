// Package graph provides the pipeline graph model: typed operation nodes,
// directed dependency edges, and the traversal primitives shared by the
// code generators and the interpreter.
package graph

// Kind identifies the operation a node performs.
// The wire strings match the exchange format produced by the editor.
type Kind string

// Supported operation kinds.
const (
	KindSource    Kind = "source.csv"
	KindSelect    Kind = "transform.select"
	KindFilter    Kind = "transform.filter"
	KindSummarize Kind = "transform.summarize"
	KindFormula   Kind = "transform.formula"
	KindSort      Kind = "transform.sort"
	KindSample    Kind = "transform.sample"
	KindJoin      Kind = "transform.join"
	KindInspect   Kind = "inspect.deepdive"
	KindSink      Kind = "sink.csv"
)

// Measure is one aggregate computation of a summarize node.
type Measure struct {
	Col string `json:"col"`
	Op  string `json:"op"`
	As  string `json:"as,omitempty"`
}

// SchemaField is one (column, target type) pair of a select node's
// optional coercion schema.
type SchemaField struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
}

// NodeData is the operation-specific configuration payload.
// The struct is flat so it round-trips the editor's exchange JSON verbatim;
// which fields are meaningful is determined entirely by Type.
type NodeData struct {
	Label string `json:"label,omitempty"`
	Type  Kind   `json:"type"`
	Color string `json:"color,omitempty"`

	// source.csv / sink.csv
	Path     string `json:"path,omitempty"`
	FileText string `json:"_fileText,omitempty"`

	// transform.select
	Columns string        `json:"columns,omitempty"`
	Schema  []SchemaField `json:"schema,omitempty"`

	// transform.filter / transform.formula
	Expr string `json:"expr,omitempty"`

	// transform.summarize
	GroupBy  string    `json:"groupBy,omitempty"`
	Measures []Measure `json:"measures,omitempty"`

	// transform.formula
	NewCol string `json:"newCol,omitempty"`

	// transform.sort
	SortSpec string `json:"sortSpec,omitempty"`

	// transform.sample
	Mode string `json:"mode,omitempty"`
	N    any    `json:"n,omitempty"`
	Frac any    `json:"frac,omitempty"`
	Seed any    `json:"seed,omitempty"`

	// transform.join
	How            string `json:"how,omitempty"`
	LeftOn         string `json:"left_on,omitempty"`
	RightOn        string `json:"right_on,omitempty"`
	DedupeLeft     bool   `json:"dedupeLeft,omitempty"`
	DedupeRight    bool   `json:"dedupeRight,omitempty"`
	DedupePick     string `json:"dedupePick,omitempty"`
	DedupeOrderCol string `json:"dedupeOrderCol,omitempty"`
}

// Node is one pipeline operation instance.
type Node struct {
	ID   string   `json:"id"`
	Data NodeData `json:"data"`
}

// Edge is a directed dependency from Source to Target.
type Edge struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is the full node/edge pipeline definition. The core only reads a
// graph snapshot per invocation; all mutation happens in the editor.
// Acyclicity is expected but not enforced (see TopoOrder).
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []Edge  `json:"edges"`
}

// ByID returns an id-indexed view of the nodes.
func (g *Graph) ByID() map[string]*Node {
	m := make(map[string]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		m[n.ID] = n
	}
	return m
}

// Parents returns, for every node, the ids of its direct inputs in edge
// declaration order. Every node appears as a key, even without inputs.
func (g *Graph) Parents() map[string][]string {
	p := make(map[string][]string, len(g.Nodes))
	for _, n := range g.Nodes {
		p[n.ID] = nil
	}
	for _, e := range g.Edges {
		p[e.Target] = append(p[e.Target], e.Source)
	}
	return p
}

// Children returns, for every node, the ids of its direct dependents in
// edge declaration order.
func (g *Graph) Children() map[string][]string {
	c := make(map[string][]string, len(g.Nodes))
	for _, n := range g.Nodes {
		c[n.ID] = nil
	}
	for _, e := range g.Edges {
		c[e.Source] = append(c[e.Source], e.Target)
	}
	return c
}

// Node returns the node with the given id, if present.
func (g *Graph) Node(id string) (*Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}
