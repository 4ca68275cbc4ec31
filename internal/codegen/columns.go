package codegen

import (
	"strings"

	"github.com/leapstack-labs/leapflow/internal/graph"
)

// knownColumns propagates statically known column lists through the graph
// in dependency order. A node maps to nil when its columns cannot be known
// without executing (for example a source whose payload is absent); nil
// propagates downstream. The generators use this to rewrite bare column
// references; it is best effort by design.
func knownColumns(g *graph.Graph) map[string][]string {
	byID := g.ByID()
	parents := g.Parents()
	cols := make(map[string][]string, len(g.Nodes))

	for _, nid := range g.TopoOrder() {
		n := byID[nid]
		if n == nil {
			continue
		}
		var in [][]string
		for _, pid := range parents[nid] {
			in = append(in, cols[pid])
		}
		first := func() []string {
			if len(in) > 0 {
				return in[0]
			}
			return nil
		}

		switch n.Data.Type {
		case graph.KindSource:
			cols[nid] = headerColumns(n.Data.FileText)

		case graph.KindSelect:
			list := strings.TrimSpace(n.Data.Columns)
			if list == "" || list == "*" {
				cols[nid] = first()
			} else {
				cols[nid] = graph.SplitList(list)
			}

		case graph.KindFormula:
			if base := first(); base != nil {
				newCol := n.Data.NewCol
				if newCol == "" {
					newCol = "new_column"
				}
				cols[nid] = appendUnique(base, newCol)
			}

		case graph.KindSummarize:
			out := graph.SplitList(n.Data.GroupBy)
			for _, m := range n.Data.Measures {
				if m.Col == "" || m.Op == "" {
					continue
				}
				alias := m.As
				if alias == "" {
					alias = m.Op + "_" + m.Col
				}
				out = append(out, alias)
			}
			cols[nid] = out

		case graph.KindJoin:
			if len(in) == 2 && in[0] != nil && in[1] != nil {
				out := append([]string(nil), in[0]...)
				for _, c := range in[1] {
					out = appendUnique(out, c)
				}
				cols[nid] = out
			}

		default:
			// filter, sort, sample, inspect, sink: pass-through.
			cols[nid] = first()
		}
	}
	return cols
}

// headerColumns extracts the header row of an in-memory CSV payload.
func headerColumns(fileText string) []string {
	text := strings.TrimLeft(fileText, "\uFEFF\r\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	line := text
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	var out []string
	for _, f := range strings.Split(line, ",") {
		out = append(out, strings.Trim(strings.TrimSpace(f), `"`))
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, c := range list {
		if c == v {
			return list
		}
	}
	return append(append([]string(nil), list...), v)
}
