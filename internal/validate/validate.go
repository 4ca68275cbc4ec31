// Package validate implements the structural rule checker run before any
// graph execution. Violations are collected in full; the first one is
// surfaced as the blocking error.
package validate

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapflow/internal/graph"
)

// Violation describes one broken structural rule.
type Violation struct {
	NodeID string
	Kind   graph.Kind
	Msg    string
}

func (v Violation) String() string {
	if v.NodeID == "" {
		return v.Msg
	}
	return fmt.Sprintf("node %s (%s): %s", v.NodeID, v.Kind, v.Msg)
}

// Error is returned by run entry points when a graph fails validation.
// It carries every violation; Error() surfaces the first.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	return e.Violations[0].String()
}

// requiredInputs is the fan-in arity rule per operation kind.
var requiredInputs = map[graph.Kind]int{
	graph.KindSource:    0,
	graph.KindSelect:    1,
	graph.KindFilter:    1,
	graph.KindSummarize: 1,
	graph.KindFormula:   1,
	graph.KindSort:      1,
	graph.KindSample:    1,
	graph.KindJoin:      2,
	graph.KindInspect:   1,
	graph.KindSink:      1,
}

// Check runs every structural rule over the graph and returns all
// violations. An empty result means the graph may be executed.
func Check(g *graph.Graph) []Violation {
	var out []Violation
	parents := g.Parents()

	hasSource := false
	for _, n := range g.Nodes {
		kind := n.Data.Type
		if kind == graph.KindSource {
			hasSource = true
			if strings.TrimSpace(n.Data.FileText) == "" && strings.TrimSpace(n.Data.Path) == "" {
				out = append(out, Violation{
					NodeID: n.ID, Kind: kind,
					Msg: "source has no uploaded data or path",
				})
			}
		}

		want, known := requiredInputs[kind]
		if !known {
			// Unrecognized kinds carry no arity rule here; the
			// interpreter rejects them at run time.
			continue
		}
		if got := len(parents[n.ID]); got != want {
			out = append(out, Violation{
				NodeID: n.ID, Kind: kind,
				Msg: fmt.Sprintf("requires %d input(s), has %d", want, got),
			})
		}
	}

	for _, e := range g.Edges {
		if _, ok := g.Node(e.Source); !ok {
			out = append(out, Violation{Msg: fmt.Sprintf("edge references missing source node %s", e.Source)})
		}
		if _, ok := g.Node(e.Target); !ok {
			out = append(out, Violation{Msg: fmt.Sprintf("edge references missing target node %s", e.Target)})
		}
	}

	if !hasSource {
		out = append(out, Violation{Msg: "graph has no source node"})
	}
	return out
}

// CheckBlocking returns a blocking *Error when the graph has violations,
// nil otherwise.
func CheckBlocking(g *graph.Graph) error {
	if vs := Check(g); len(vs) > 0 {
		return &Error{Violations: vs}
	}
	return nil
}
