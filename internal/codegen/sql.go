package codegen

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapflow/internal/graph"
	"github.com/leapstack-labs/leapflow/internal/ident"
)

// SQL emits the declarative script: a single WITH chain with one named
// subquery per node in dependency order, terminated by a row-selecting
// statement against the end subquery.
func SQL(g *graph.Graph, target string) string {
	byID := g.ByID()
	order := g.TopoOrder()
	parents := g.Parents()
	names := bindingNames(order, byID)
	cols := knownColumns(g)

	var ctes []string
	for _, nid := range order {
		n := byID[nid]
		if n == nil {
			continue
		}
		alias := names[nid]
		var ps []string
		var inCols []string
		for _, pid := range parents[nid] {
			ps = append(ps, names[pid])
			if inCols == nil {
				inCols = cols[pid]
			}
		}
		ctes = append(ctes, sqlNode(n, alias, ps, inCols))
	}

	lines := []string{"-- Auto-generated by leapflow (SQL, DuckDB)"}
	if len(ctes) == 0 {
		lines = append(lines, "-- empty graph")
		return strings.Join(lines, "\n")
	}
	lines = append(lines, "WITH\n  "+strings.Join(ctes, ",\n  "))
	lines = append(lines, fmt.Sprintf("SELECT * FROM %s;", names[endNode(order, target)]))
	return strings.Join(lines, "\n")
}

// sqlNode emits one CTE. Missing inputs and unrecognized kinds degrade to
// a marked placeholder subquery so generation always completes.
func sqlNode(n *graph.Node, alias string, ps []string, inCols []string) string {
	d := n.Data

	needs := 1
	switch d.Type {
	case graph.KindSource:
		needs = 0
	case graph.KindJoin:
		needs = 2
	}
	if len(ps) < needs {
		return fmt.Sprintf("%s AS (SELECT NULL WHERE 1=0) -- TODO: %s missing input", alias, d.Type)
	}

	switch d.Type {
	case graph.KindSource:
		path := d.Path
		if path == "" {
			path = "uploaded.csv"
		}
		return fmt.Sprintf("%s AS (SELECT * FROM read_csv_auto('%s', header=true))",
			alias, strings.ReplaceAll(path, "'", "''"))

	case graph.KindSelect:
		colsStr := strings.TrimSpace(d.Columns)
		if colsStr == "" || colsStr == "*" {
			return fmt.Sprintf("%s AS (SELECT * FROM %s)", alias, ps[0])
		}
		var list []string
		for _, c := range graph.SplitList(colsStr) {
			list = append(list, ident.Quote(c))
		}
		return fmt.Sprintf("%s AS (SELECT %s FROM %s)", alias, strings.Join(list, ", "), ps[0])

	case graph.KindFilter:
		expr := d.Expr
		if expr == "" {
			expr = "1=1"
		}
		expr = ident.RewriteColumns(expr, inCols, ident.RewriteQuoted)
		expr = ident.SoftenNumericComparisons(expr)
		return fmt.Sprintf("%s AS (SELECT * FROM %s WHERE %s)", alias, ps[0], expr)

	case graph.KindSummarize:
		return sqlSummarize(d, alias, ps[0])

	case graph.KindFormula:
		newCol := d.NewCol
		if newCol == "" {
			newCol = "new_column"
		}
		expr := d.Expr
		if expr == "" {
			expr = "0"
		}
		expr = ident.RewriteColumns(expr, inCols, ident.RewriteQuoted)
		return fmt.Sprintf("%s AS (SELECT *, (%s) AS %s FROM %s)", alias, expr, ident.Quote(newCol), ps[0])

	case graph.KindSort:
		spec := strings.TrimSpace(d.SortSpec)
		if spec == "" {
			return fmt.Sprintf("%s AS (SELECT * FROM %s)", alias, ps[0])
		}
		var keys []string
		for _, piece := range graph.SplitList(spec) {
			col := strings.Fields(piece)[0]
			dir := "ASC"
			if strings.HasSuffix(strings.ToLower(piece), "desc") {
				dir = "DESC"
			}
			keys = append(keys, fmt.Sprintf("%s %s", ident.Quote(col), dir))
		}
		return fmt.Sprintf("%s AS (SELECT * FROM %s ORDER BY %s)", alias, ps[0], strings.Join(keys, ", "))

	case graph.KindSample:
		if d.Mode == "fraction" {
			f := graph.AsFloat(d.Frac, 0.1)
			// Bernoulli per row; intentionally diverges from the other
			// backends' randomization.
			return fmt.Sprintf("%s AS (SELECT * FROM %s WHERE random() < %g)", alias, ps[0], f)
		}
		nRows := graph.AsInt(d.N, 100)
		return fmt.Sprintf("%s AS (SELECT * FROM %s USING SAMPLE %d ROWS)", alias, ps[0], nRows)

	case graph.KindJoin:
		return sqlJoin(d, alias, ps)

	case graph.KindInspect, graph.KindSink:
		return fmt.Sprintf("%s AS (SELECT * FROM %s)", alias, ps[0])

	default:
		return fmt.Sprintf("%s AS (SELECT * FROM %s) -- TODO: unsupported operation %s", alias, ps[0], d.Type)
	}
}

func sqlSummarize(d graph.NodeData, alias, parent string) string {
	var by []string
	for _, c := range graph.SplitList(d.GroupBy) {
		by = append(by, ident.Quote(c))
	}

	var exprs []string
	for _, m := range d.Measures {
		if m.Col == "" || m.Op == "" {
			continue
		}
		out := m.As
		if out == "" {
			out = m.Op + "_" + m.Col
		}
		op := m.Op
		if op == "mean" {
			op = "avg"
		}
		exprs = append(exprs, fmt.Sprintf("%s(%s) AS %s", op, ident.Quote(m.Col), ident.Quote(out)))
	}

	selectParts := "*"
	if len(by) > 0 || len(exprs) > 0 {
		selectParts = strings.Join(append(append([]string(nil), by...), exprs...), ", ")
	}
	group := ""
	if len(by) > 0 {
		group = " GROUP BY " + strings.Join(by, ", ")
	}
	return fmt.Sprintf("%s AS (SELECT %s FROM %s%s)", alias, selectParts, parent, group)
}

func sqlJoin(d graph.NodeData, alias string, ps []string) string {
	how := strings.ToUpper(d.How)
	switch how {
	case "INNER", "LEFT", "RIGHT":
	case "OUTER":
		how = "FULL OUTER"
	default:
		how = "INNER"
	}

	lk := graph.SplitList(d.LeftOn)
	if len(lk) == 0 {
		lk = []string{"id"}
	}
	rk := graph.SplitList(d.RightOn)
	if len(rk) == 0 {
		rk = []string{"id"}
	}

	left := sqlJoinSide(ps[0], lk, d.DedupeLeft, d.DedupePick, d.DedupeOrderCol)
	right := sqlJoinSide(ps[1], rk, d.DedupeRight, d.DedupePick, d.DedupeOrderCol)

	var on []string
	for i := range lk {
		j := i
		if j >= len(rk) {
			j = 0
		}
		on = append(on, fmt.Sprintf("lhs.%s = rhs.%s", ident.Quote(lk[i]), ident.Quote(rk[j])))
	}

	return fmt.Sprintf(`%s AS (
  SELECT *
  FROM %s lhs
  %s JOIN %s rhs
    ON %s
)`, alias, left, how, right, strings.Join(on, " AND "))
}

// sqlJoinSide wraps a join input in a de-duplicating subquery when
// requested: one row per key tuple, picked via row_number over the
// tie-break column (ascending for "first", descending for "last").
// Without a tie-break column SQL keeps an arbitrary row per key, unlike
// the other backends, which keep the first or last in original order;
// the emitted subquery carries a marker comment for that case.
func sqlJoinSide(name string, keys []string, dedupe bool, pick, orderCol string) string {
	if !dedupe {
		return name
	}
	var quoted []string
	for _, k := range keys {
		quoted = append(quoted, ident.Quote(k))
	}
	over := "PARTITION BY " + strings.Join(quoted, ", ")
	note := ""
	if orderCol != "" {
		dir := "ASC"
		if pick == "last" {
			dir = "DESC"
		}
		over += fmt.Sprintf(" ORDER BY %s %s", ident.Quote(orderCol), dir)
	} else {
		note = " /* arbitrary row per key: no tie-break column */"
	}
	return fmt.Sprintf("(SELECT * FROM %s QUALIFY row_number() OVER (%s) = 1%s)", name, over, note)
}
