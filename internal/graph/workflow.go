package graph

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Workflow is the persisted/exported exchange artifact: the graph plus the
// editor's selected output dialect and execution engine. The core only
// reads Nodes and Edges; Lang and Engine are carried through verbatim.
type Workflow struct {
	Nodes  []*Node `json:"nodes"`
	Edges  []Edge  `json:"edges"`
	Lang   string  `json:"lang,omitempty"`
	Engine string  `json:"engine,omitempty"`
}

// Graph returns the graph portion of the workflow.
func (w *Workflow) Graph() *Graph {
	return &Graph{Nodes: w.Nodes, Edges: w.Edges}
}

// DecodeWorkflow parses an exchange-format document. Nodes without an id
// are assigned one so the graph is always addressable.
func DecodeWorkflow(data []byte) (*Workflow, error) {
	var w Workflow
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parse workflow: %w", err)
	}
	for _, n := range w.Nodes {
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
	}
	return &w, nil
}

// EncodeWorkflow serializes a workflow back to the exchange format.
func EncodeWorkflow(w *Workflow) ([]byte, error) {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode workflow: %w", err)
	}
	return data, nil
}

// AsInt coerces a loosely typed numeric payload field (JSON may deliver a
// number or a string) to an int, falling back to def.
func AsInt(v any, def int) int {
	switch x := v.(type) {
	case nil:
		return def
	case float64:
		return int(x)
	case int:
		return x
	case int64:
		return int(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i)
		}
	case string:
		var f float64
		if _, err := fmt.Sscanf(x, "%g", &f); err == nil {
			return int(f)
		}
	}
	return def
}

// AsFloat coerces a loosely typed numeric payload field to a float64,
// falling back to def.
func AsFloat(v any, def float64) float64 {
	switch x := v.(type) {
	case nil:
		return def
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
	case string:
		var f float64
		if _, err := fmt.Sscanf(x, "%g", &f); err == nil {
			return f
		}
	}
	return def
}
