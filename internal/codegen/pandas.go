package codegen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapflow/internal/graph"
)

// Pandas emits the dataframe-style script: one named binding per node in
// dependency order, ending with a canonical "result" binding for the end
// node (the preview target when given, otherwise the last node).
func Pandas(g *graph.Graph, target string) string {
	byID := g.ByID()
	order := g.TopoOrder()
	parents := g.Parents()
	names := bindingNames(order, byID)

	var L []string
	L = append(L,
		"# Auto-generated by leapflow (pandas)",
		"import pandas as pd",
		"",
	)

	for _, nid := range order {
		n := byID[nid]
		if n == nil {
			continue
		}
		v := names[nid]
		var ps []string
		for _, pid := range parents[nid] {
			ps = append(ps, names[pid])
		}
		L = append(L, pandasNode(n, v, ps)...)
	}

	if end := endNode(order, target); end != "" {
		L = append(L, fmt.Sprintf("result = %s", names[end]), "")
	}
	return strings.Join(L, "\n")
}

// pandasNode emits the binding lines for one node. Nodes whose inputs are
// missing, and unrecognized kinds, degrade to a marked placeholder.
func pandasNode(n *graph.Node, v string, ps []string) []string {
	d := n.Data

	needs := 1
	switch d.Type {
	case graph.KindSource:
		needs = 0
	case graph.KindJoin:
		needs = 2
	}
	if len(ps) < needs {
		return []string{fmt.Sprintf("# TODO: %s %q is missing an input", d.Type, v), ""}
	}

	switch d.Type {
	case graph.KindSource:
		path := d.Path
		if path == "" {
			path = "uploaded.csv"
		}
		label := d.Label
		if label == "" {
			label = "CSV"
		}
		return []string{
			fmt.Sprintf("# Source: %s", label),
			fmt.Sprintf(`%s = pd.read_csv(r"%s")`, v, path),
			"",
		}

	case graph.KindSelect:
		return pandasSelect(d, v, ps[0])

	case graph.KindFilter:
		expr := d.Expr
		if expr == "" {
			expr = "True"
		}
		return []string{fmt.Sprintf("%s = %s.query(%s)", v, ps[0], pyStr(expr)), ""}

	case graph.KindSummarize:
		return pandasSummarize(d, v, ps[0])

	case graph.KindFormula:
		newCol := d.NewCol
		if newCol == "" {
			newCol = "new_column"
		}
		expr := d.Expr
		if expr == "" {
			expr = "0"
		}
		return []string{
			fmt.Sprintf("%s = %s.copy()", v, ps[0]),
			fmt.Sprintf(`%s[%s] = %s.eval(%s, engine="python")`, v, pyStr(newCol), v, pyStr(expr)),
			"",
		}

	case graph.KindSort:
		spec := strings.TrimSpace(d.SortSpec)
		if spec == "" {
			return []string{fmt.Sprintf("%s = %s.copy()", v, ps[0]), ""}
		}
		var cols []string
		var asc []bool
		for _, piece := range graph.SplitList(spec) {
			cols = append(cols, strings.Fields(piece)[0])
			asc = append(asc, !strings.HasSuffix(strings.ToLower(piece), "desc"))
		}
		return []string{
			fmt.Sprintf("%s = %s.sort_values(%s, ascending=%s)", v, ps[0], pyStrList(cols), pyBoolList(asc)),
			"",
		}

	case graph.KindSample:
		if d.Mode == "fraction" {
			f := graph.AsFloat(d.Frac, 0.1)
			return []string{fmt.Sprintf("%s = %s.sample(frac=%g, random_state=None)", v, ps[0], f), ""}
		}
		nRows := graph.AsInt(d.N, 100)
		return []string{
			fmt.Sprintf("%s = %s.sample(n=min(%d, len(%s)), random_state=None)", v, ps[0], nRows, ps[0]),
			"",
		}

	case graph.KindJoin:
		return pandasJoin(d, v, ps)

	case graph.KindInspect:
		return []string{fmt.Sprintf("%s = %s", v, ps[0]), ""}

	case graph.KindSink:
		path := d.Path
		if path == "" {
			path = "out.csv"
		}
		return []string{
			fmt.Sprintf(`%s.to_csv(r"%s", index=False)`, ps[0], path),
			fmt.Sprintf("# wrote: %s", path),
			fmt.Sprintf("%s = %s", v, ps[0]),
			"",
		}

	default:
		return []string{fmt.Sprintf("# TODO: unsupported operation %s", d.Type), ""}
	}
}

func pandasSelect(d graph.NodeData, v, parent string) []string {
	var L []string
	colsStr := strings.TrimSpace(d.Columns)
	if colsStr == "" || colsStr == "*" {
		L = append(L, fmt.Sprintf("%s = %s.copy()", v, parent))
	} else {
		L = append(L, fmt.Sprintf("%s = %s[%s].copy()", v, parent, pyStrList(graph.SplitList(colsStr))))
	}

	// Optional per-column type coercion; non-castable values become null.
	for _, s := range d.Schema {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		col := fmt.Sprintf("%s[%s]", v, pyStr(name))
		switch strings.ToLower(strings.TrimSpace(s.DType)) {
		case "integer":
			L = append(L, fmt.Sprintf(`%s = pd.to_numeric(%s, errors="coerce").astype("Int64")`, col, col))
		case "float":
			L = append(L, fmt.Sprintf(`%s = pd.to_numeric(%s, errors="coerce")`, col, col))
		case "boolean":
			L = append(L, fmt.Sprintf(`%s = %s.astype("boolean")`, col, col))
		case "date":
			L = append(L, fmt.Sprintf(`%s = pd.to_datetime(%s, errors="coerce").dt.date`, col, col))
		case "datetime":
			L = append(L, fmt.Sprintf(`%s = pd.to_datetime(%s, errors="coerce")`, col, col))
		default:
			L = append(L, fmt.Sprintf(`%s = %s.astype("string")`, col, col))
		}
	}
	return append(L, "")
}

func pandasSummarize(d graph.NodeData, v, parent string) []string {
	by := graph.SplitList(d.GroupBy)

	// Aggregate ops grouped per source column, with first-seen rename to
	// the requested aliases.
	type colOps struct {
		col string
		ops []string
	}
	var aggs []colOps
	idx := make(map[string]int)
	rename := make(map[string]string)
	var renameOrder []string
	for _, m := range d.Measures {
		if m.Col == "" || m.Op == "" {
			continue
		}
		alias := m.As
		if alias == "" {
			alias = m.Op + "_" + m.Col
		}
		if i, ok := idx[m.Col]; ok {
			aggs[i].ops = append(aggs[i].ops, m.Op)
		} else {
			idx[m.Col] = len(aggs)
			aggs = append(aggs, colOps{col: m.Col, ops: []string{m.Op}})
		}
		key := m.Op + "_" + m.Col
		if _, seen := rename[key]; !seen {
			rename[key] = alias
			renameOrder = append(renameOrder, key)
		}
	}

	var parts []string
	for _, a := range aggs {
		var ops []string
		for _, op := range a.ops {
			ops = append(ops, pyStr(op))
		}
		parts = append(parts, fmt.Sprintf("%s: [%s]", pyStr(a.col), strings.Join(ops, ", ")))
	}
	aggObj := "{" + strings.Join(parts, ", ") + "}"

	tmp := v + "_tmp"
	var L []string
	if len(by) > 0 {
		L = append(L, fmt.Sprintf("%s = %s.groupby(%s).agg(%s).reset_index()", tmp, parent, pyStrList(by), aggObj))
	} else {
		L = append(L, fmt.Sprintf("%s = %s.agg(%s)", tmp, parent, aggObj))
	}
	L = append(L,
		fmt.Sprintf("%s = %s.copy()", v, tmp),
		fmt.Sprintf("%s.columns = ['_'.join([str(c) for c in col]).strip('_') if isinstance(col, tuple) else col for col in %s.columns]", v, v),
	)
	for _, key := range renameOrder {
		L = append(L, fmt.Sprintf("%s.rename(columns={%s: %s}, inplace=True)", v, pyStr(key), pyStr(rename[key])))
	}
	return append(L, "")
}

func pandasJoin(d graph.NodeData, v string, ps []string) []string {
	how := d.How
	if how == "" {
		how = "inner"
	}
	lk := graph.SplitList(d.LeftOn)
	if len(lk) == 0 {
		lk = []string{"id"}
	}
	rk := graph.SplitList(d.RightOn)
	if len(rk) == 0 {
		rk = []string{"id"}
	}

	left, right := ps[0], ps[1]
	var L []string
	if d.DedupeLeft {
		left = v + "_l"
		L = append(L, pandasDedupe(left, ps[0], lk, d.DedupePick, d.DedupeOrderCol)...)
	}
	if d.DedupeRight {
		right = v + "_r"
		L = append(L, pandasDedupe(right, ps[1], rk, d.DedupePick, d.DedupeOrderCol)...)
	}

	leftArg := pyStrList(lk)
	rightArg := pyStrList(rk)
	if len(lk) == 1 {
		leftArg = pyStr(lk[0])
	}
	if len(rk) == 1 {
		rightArg = pyStr(rk[0])
	}
	L = append(L,
		fmt.Sprintf("%s = %s.merge(%s, how=%s, left_on=%s, right_on=%s)", v, left, right, pyStr(how), leftArg, rightArg),
		"",
	)
	return L
}

// pandasDedupe keeps one row per key tuple. With a tie-break column the
// side is sorted ascending for "first" and descending for "last" before
// the duplicates are dropped; without one, original row order decides.
func pandasDedupe(out, in string, keys []string, pick, orderCol string) []string {
	if pick != "last" {
		pick = "first"
	}
	if orderCol != "" {
		asc := "True"
		if pick == "last" {
			asc = "False"
		}
		return []string{fmt.Sprintf(
			"%s = %s.sort_values(%s, ascending=%s).drop_duplicates(subset=%s, keep=\"first\")",
			out, in, pyStr(orderCol), asc, pyStrList(keys),
		)}
	}
	return []string{fmt.Sprintf(
		"%s = %s.drop_duplicates(subset=%s, keep=%s)",
		out, in, pyStrList(keys), pyStr(pick),
	)}
}

// pyStr renders a Go string as a Python string literal. JSON string
// escaping is a compatible subset of Python's.
func pyStr(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func pyStrList(items []string) string {
	var quoted []string
	for _, it := range items {
		quoted = append(quoted, pyStr(it))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func pyBoolList(items []bool) string {
	var parts []string
	for _, b := range items {
		if b {
			parts = append(parts, "True")
		} else {
			parts = append(parts, "False")
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
