package interp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapflow/internal/graph"
)

func rowsOf(rs *RowSet, col string) []any {
	var out []any
	for _, r := range rs.Rows {
		out = append(out, r[col])
	}
	return out
}

func TestOpSelect_ProjectionAndSchema(t *testing.T) {
	in, err := DecodeCSV("id,amount,region\n1,10,east\n2,oops,west\n")
	require.NoError(t, err)

	out := opSelect(in, graph.NodeData{
		Columns: "id, amount, missing",
		Schema:  []graph.SchemaField{{Name: "amount", DType: "float"}},
	})
	require.Equal(t, []string{"id", "amount", "missing"}, out.Cols)
	require.Equal(t, []any{10.0, nil}, rowsOf(out, "amount"))
	// A selected column absent from the input yields nulls, not a failure.
	require.Equal(t, []any{nil, nil}, rowsOf(out, "missing"))
}

func TestOpSelect_WildcardIsIdentity(t *testing.T) {
	in, err := DecodeCSV("a,b\n1,2\n")
	require.NoError(t, err)
	out := opSelect(in, graph.NodeData{Columns: "*"})
	require.Equal(t, in.Cols, out.Cols)
	require.Equal(t, in.Rows, out.Rows)
}

func TestOpFilter_DropsFailingRows(t *testing.T) {
	in, err := DecodeCSV("amount\n10\n3\nnot-a-number\n")
	require.NoError(t, err)

	out, err := opFilter(in, graph.NodeData{Expr: "amount > 5"})
	require.NoError(t, err)
	// The unparseable row errors during evaluation and is excluded.
	require.Equal(t, []any{"10"}, rowsOf(out, "amount"))
}

func TestOpFilter_CompileErrorPassesInputThrough(t *testing.T) {
	in, err := DecodeCSV("a\n1\n2\n")
	require.NoError(t, err)

	out, err := opFilter(in, graph.NodeData{Expr: "a ==="})
	require.Error(t, err)
	require.Equal(t, in.Rows, out.Rows)
}

func TestOpFormula_AddsColumn(t *testing.T) {
	in, err := DecodeCSV("price,qty\n2.5,4\nbad,1\n")
	require.NoError(t, err)

	out, err := opFormula(in, graph.NodeData{NewCol: "total", Expr: "price * qty"})
	require.NoError(t, err)
	require.Equal(t, []string{"price", "qty", "total"}, out.Cols)
	require.Equal(t, 10.0, out.Rows[0]["total"])
	// num("bad") is None; None * num errors per row, yielding null.
	require.Nil(t, out.Rows[1]["total"])
}

func TestOpSummarize_GroupedAggregates(t *testing.T) {
	in, err := DecodeCSV("region,amount\neast,10\neast,20\nwest,5\nwest,\n")
	require.NoError(t, err)

	out := opSummarize(in, graph.NodeData{
		GroupBy: "region",
		Measures: []graph.Measure{
			{Col: "amount", Op: "sum", As: "total"},
			{Col: "amount", Op: "mean"},
			{Col: "amount", Op: "count"},
		},
	})
	require.Equal(t, []string{"region", "total", "mean_amount", "count_amount"}, out.Cols)
	require.Len(t, out.Rows, 2)

	// First-seen group order.
	require.Equal(t, "east", out.Rows[0]["region"])
	require.Equal(t, 30.0, out.Rows[0]["total"])
	require.Equal(t, 15.0, out.Rows[0]["mean_amount"])
	require.Equal(t, int64(2), out.Rows[0]["count_amount"])

	require.Equal(t, "west", out.Rows[1]["region"])
	require.Equal(t, 5.0, out.Rows[1]["total"])
	// Empty cells do not count.
	require.Equal(t, int64(1), out.Rows[1]["count_amount"])
}

func TestOpSummarize_NoKeysOneRow(t *testing.T) {
	in, err := DecodeCSV("x\n1\n2\n")
	require.NoError(t, err)

	out := opSummarize(in, graph.NodeData{Measures: []graph.Measure{{Col: "x", Op: "sum", As: "s"}}})
	require.Len(t, out.Rows, 1)
	require.Equal(t, 3.0, out.Rows[0]["s"])

	// Still one row over an empty input; sum of nothing is zero.
	empty := opSummarize(NewRowSet("x"), graph.NodeData{Measures: []graph.Measure{{Col: "x", Op: "sum", As: "s"}}})
	require.Len(t, empty.Rows, 1)
	require.Equal(t, 0.0, empty.Rows[0]["s"])
}

func TestOpSort_NumericStableWithNulls(t *testing.T) {
	in, err := DecodeCSV("n,tag\n10,a\n2,b\n,c\n2,d\n")
	require.NoError(t, err)

	out := opSort(in, graph.NodeData{SortSpec: "n"})
	// Nulls first, then numeric order; equal keys keep input order.
	require.Equal(t, []any{"c", "b", "d", "a"}, rowsOf(out, "tag"))

	desc := opSort(in, graph.NodeData{SortSpec: "n desc"})
	require.Equal(t, []any{"a", "b", "d", "c"}, rowsOf(desc, "tag"))
}

func TestOpSample(t *testing.T) {
	in, err := DecodeCSV("i\n1\n2\n3\n4\n5\n")
	require.NoError(t, err)
	r := &Runner{Seed: 7}

	// Row counts clamp to the input size.
	out := r.opSample(in, graph.NodeData{Mode: "rows", N: 100})
	require.Len(t, out.Rows, 5)

	out = r.opSample(in, graph.NodeData{Mode: "rows", N: 2})
	require.Len(t, out.Rows, 2)

	// Fractions clamp to [0, 1].
	require.Len(t, r.opSample(in, graph.NodeData{Mode: "fraction", Frac: 1.5}).Rows, 5)
	require.Empty(t, r.opSample(in, graph.NodeData{Mode: "fraction", Frac: -1}).Rows)
}

func TestOpJoin_LeftKeepsUnmatched(t *testing.T) {
	left, err := DecodeCSV("id,amount\n1,10\n2,20\n3,30\n")
	require.NoError(t, err)
	right, err := DecodeCSV("id,region\n1,east\n2,west\n")
	require.NoError(t, err)

	out := opJoin(left, right, graph.NodeData{How: "left", LeftOn: "id", RightOn: "id"})
	require.Equal(t, []string{"id", "amount", "region"}, out.Cols)
	require.Equal(t, []any{"east", "west", nil}, rowsOf(out, "region"))
}

func TestOpJoin_OuterEmitsUnmatchedRight(t *testing.T) {
	left, err := DecodeCSV("id,amount\n1,10\n")
	require.NoError(t, err)
	right, err := DecodeCSV("id,region\n1,east\n9,north\n9,south\n")
	require.NoError(t, err)

	out := opJoin(left, right, graph.NodeData{How: "outer"})
	require.Len(t, out.Rows, 2)
	// One representative row per unmatched right key.
	require.Equal(t, "north", out.Rows[1]["region"])
	require.Nil(t, out.Rows[1]["amount"])
}

func TestOpJoin_FanOutDoesNotShareColumns(t *testing.T) {
	// A shared input whose Cols slice has spare capacity, as a summarize
	// output does. Each join must own its column slice; appending the
	// right side's columns may not leak into the sibling join's schema.
	shared := &RowSet{
		Cols: append(make([]string, 0, 8), "g", "m1", "m2"),
		Rows: []Row{{"g": "east", "m1": 1.0, "m2": 2.0}},
	}

	rx, err := DecodeCSV("g,x\neast,7\n")
	require.NoError(t, err)
	ry, err := DecodeCSV("g,y\neast,8\n")
	require.NoError(t, err)

	first := opJoin(shared, rx, graph.NodeData{How: "inner", LeftOn: "g", RightOn: "g"})
	second := opJoin(shared, ry, graph.NodeData{How: "inner", LeftOn: "g", RightOn: "g"})

	require.Equal(t, []string{"g", "m1", "m2", "x"}, first.Cols)
	require.Equal(t, []string{"g", "m1", "m2", "y"}, second.Cols)
	require.Equal(t, "g,m1,m2,x\neast,1,2,7\n", EncodeCSV(first))
}

func TestOpJoin_DedupeRight(t *testing.T) {
	left, err := DecodeCSV("id\n1\n")
	require.NoError(t, err)
	right, err := DecodeCSV("id,ts,v\n1,2,old\n1,5,new\n")
	require.NoError(t, err)

	out := opJoin(left, right, graph.NodeData{
		How: "inner", DedupeRight: true, DedupePick: "last", DedupeOrderCol: "ts",
	})
	require.Len(t, out.Rows, 1)
	require.Equal(t, "new", out.Rows[0]["v"])
}

func TestDedupe_NoOrderColumnKeepsFirst(t *testing.T) {
	in, err := DecodeCSV("k,v\na,1\na,2\nb,3\n")
	require.NoError(t, err)
	out := dedupe(in, []string{"k"}, "first", "")
	require.Equal(t, []any{"1", "3"}, rowsOf(out, "v"))

	out = dedupe(in, []string{"k"}, "last", "")
	require.Equal(t, []any{"2", "3"}, rowsOf(out, "v"))
}
