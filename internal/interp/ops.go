package interp

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapflow/internal/graph"
)

func (r *Runner) opSource(ctx context.Context, d graph.NodeData) (*RowSet, error) {
	if d.FileText != "" {
		return DecodeCSV(d.FileText)
	}
	path := d.Path
	if path == "" {
		path = "uploaded.csv"
	}
	data, err := r.load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return DecodeCSV(string(data))
}

// opSelect projects the listed columns (all of them for "" or "*") and
// applies the optional coercion schema. A listed column absent from the
// input still appears in the output, filled with nulls.
func opSelect(in *RowSet, d graph.NodeData) *RowSet {
	colsStr := strings.TrimSpace(d.Columns)
	var out *RowSet
	if colsStr == "" || colsStr == "*" {
		out = in.Clone()
	} else {
		cols := graph.SplitList(colsStr)
		out = NewRowSet(cols...)
		out.Rows = make([]Row, len(in.Rows))
		for i, src := range in.Rows {
			row := make(Row, len(cols))
			for _, c := range cols {
				if v, ok := src[c]; ok {
					row[c] = v
				} else {
					row[c] = nil
				}
			}
			out.Rows[i] = row
		}
	}

	for _, s := range d.Schema {
		name := strings.TrimSpace(s.Name)
		if name == "" || !out.HasCol(name) {
			continue
		}
		for _, row := range out.Rows {
			row[name] = Cast(row[name], s.DType)
		}
	}
	return out
}

// opFilter keeps the rows the predicate accepts. A predicate that fails
// to compile leaves the input unchanged and surfaces a node error; a row
// on which evaluation fails is simply dropped.
func opFilter(in *RowSet, d graph.NodeData) (*RowSet, error) {
	pred, err := CompileFilter(d.Expr)
	if err != nil {
		return in, err
	}
	out := NewRowSet(in.Cols...)
	for _, row := range in.Rows {
		ok, err := pred(row)
		if err != nil || !ok {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func opFormula(in *RowSet, d graph.NodeData) (*RowSet, error) {
	newCol := d.NewCol
	if newCol == "" {
		newCol = "new_column"
	}
	out := in.Clone()
	if !out.HasCol(newCol) {
		out.Cols = append(out.Cols, newCol)
	}

	f, err := CompileFormula(d.Expr, in.Cols)
	if err != nil {
		for _, row := range out.Rows {
			row[newCol] = nil
		}
		return out, err
	}
	for _, row := range out.Rows {
		v, err := f(row)
		if err != nil {
			row[newCol] = nil
			continue
		}
		row[newCol] = v
	}
	return out, nil
}

func opSummarize(in *RowSet, d graph.NodeData) *RowSet {
	by := graph.SplitList(d.GroupBy)

	type bucket struct {
		key  Row
		rows []Row
	}
	var buckets []*bucket
	index := make(map[string]*bucket)
	for _, row := range in.Rows {
		var parts []string
		for _, c := range by {
			parts = append(parts, typedRepr(row[c]))
		}
		k := strings.Join(parts, "\x1f")
		b, ok := index[k]
		if !ok {
			key := make(Row, len(by))
			for _, c := range by {
				key[c] = row[c]
			}
			b = &bucket{key: key}
			index[k] = b
			buckets = append(buckets, b)
		}
		b.rows = append(b.rows, row)
	}
	// Aggregating an empty input without keys still yields one row.
	if len(by) == 0 && len(buckets) == 0 {
		buckets = append(buckets, &bucket{key: Row{}})
	}

	out := NewRowSet(by...)
	var aliases []string
	for _, m := range d.Measures {
		if m.Col == "" || m.Op == "" {
			continue
		}
		alias := m.As
		if alias == "" {
			alias = m.Op + "_" + m.Col
		}
		if !out.HasCol(alias) {
			out.Cols = append(out.Cols, alias)
		}
		aliases = append(aliases, alias)
	}

	for _, b := range buckets {
		row := make(Row, len(by)+len(aliases))
		for c, v := range b.key {
			row[c] = v
		}
		i := 0
		for _, m := range d.Measures {
			if m.Col == "" || m.Op == "" {
				continue
			}
			row[aliases[i]] = aggregate(m.Op, m.Col, b.rows)
			i++
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// aggregate computes one measure over a group. Sum of nothing is 0;
// mean/min/max of nothing is null; count counts non-null values.
func aggregate(op, col string, rows []Row) any {
	switch op {
	case "count":
		n := int64(0)
		for _, r := range rows {
			if !cellNull(r[col]) {
				n++
			}
		}
		return n

	case "first":
		for _, r := range rows {
			if !cellNull(r[col]) {
				return r[col]
			}
		}
		return nil

	case "last":
		for i := len(rows) - 1; i >= 0; i-- {
			if !cellNull(rows[i][col]) {
				return rows[i][col]
			}
		}
		return nil

	case "sum", "mean", "min", "max":
		var nums []float64
		for _, r := range rows {
			if f, ok := NumberOf(r[col]); ok {
				nums = append(nums, f)
			}
		}
		if op == "sum" {
			total := 0.0
			for _, f := range nums {
				total += f
			}
			return total
		}
		if len(nums) == 0 {
			return nil
		}
		switch op {
		case "mean":
			total := 0.0
			for _, f := range nums {
				total += f
			}
			return total / float64(len(nums))
		case "min":
			m := nums[0]
			for _, f := range nums[1:] {
				if f < m {
					m = f
				}
			}
			return m
		default:
			m := nums[0]
			for _, f := range nums[1:] {
				if f > m {
					m = f
				}
			}
			return m
		}

	default:
		return nil
	}
}

func opSort(in *RowSet, d graph.NodeData) *RowSet {
	spec := strings.TrimSpace(d.SortSpec)
	if spec == "" {
		return in.Clone()
	}
	type key struct {
		col string
		asc bool
	}
	var keys []key
	for _, piece := range graph.SplitList(spec) {
		keys = append(keys, key{
			col: strings.Fields(piece)[0],
			asc: !strings.HasSuffix(strings.ToLower(piece), "desc"),
		})
	}

	out := in.Clone()
	sort.SliceStable(out.Rows, func(i, j int) bool {
		for _, k := range keys {
			c := compareCells(out.Rows[i][k.col], out.Rows[j][k.col])
			if c == 0 {
				continue
			}
			if k.asc {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return out
}

// compareCells orders two cell values: nulls sort lowest, numeric
// comparison when both sides parse as numbers, lexicographic otherwise.
func compareCells(a, b any) int {
	an, bn := cellNull(a), cellNull(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	if af, aok := NumberOf(a); aok {
		if bf, bok := NumberOf(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(StringOf(a), StringOf(b))
}

func (r *Runner) opSample(in *RowSet, d graph.NodeData) *RowSet {
	rng := rand.New(rand.NewSource(r.seed(d)))
	out := NewRowSet(in.Cols...)

	if d.Mode == "fraction" {
		f := graph.AsFloat(d.Frac, 0.1)
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		for _, row := range in.Rows {
			if rng.Float64() < f {
				out.Rows = append(out.Rows, row)
			}
		}
		return out
	}

	n := graph.AsInt(d.N, 100)
	if n < 0 {
		n = 0
	}
	if n > len(in.Rows) {
		n = len(in.Rows)
	}
	perm := rng.Perm(len(in.Rows))
	for _, i := range perm[:n] {
		out.Rows = append(out.Rows, in.Rows[i])
	}
	return out
}

func opJoin(left, right *RowSet, d graph.NodeData) *RowSet {
	how := strings.ToLower(d.How)
	switch how {
	case "inner", "left", "right", "outer":
	default:
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
	for len(rk) < len(lk) {
		rk = append(rk, rk[0])
	}

	if d.DedupeLeft {
		left = dedupe(left, lk, d.DedupePick, d.DedupeOrderCol)
	}
	if d.DedupeRight {
		right = dedupe(right, rk, d.DedupePick, d.DedupeOrderCol)
	}

	out := NewRowSet(left.Cols...)
	for _, c := range right.Cols {
		if !out.HasCol(c) {
			out.Cols = append(out.Cols, c)
		}
	}

	index := make(map[string][]Row)
	for _, row := range right.Rows {
		k := joinKey(row, rk[:len(lk)])
		index[k] = append(index[k], row)
	}

	matched := make(map[string]bool)
	merge := func(l, r Row) Row {
		row := make(Row, len(out.Cols))
		for k, v := range l {
			row[k] = v
		}
		for k, v := range r {
			row[k] = v
		}
		return row
	}

	for _, lrow := range left.Rows {
		k := joinKey(lrow, lk)
		rights := index[k]
		if len(rights) == 0 {
			if how == "left" || how == "outer" {
				out.Rows = append(out.Rows, merge(lrow, nil))
			}
			continue
		}
		matched[k] = true
		for _, rrow := range rights {
			out.Rows = append(out.Rows, merge(lrow, rrow))
		}
	}

	if how == "right" || how == "outer" {
		seen := make(map[string]bool)
		for _, rrow := range right.Rows {
			k := joinKey(rrow, rk[:len(lk)])
			if matched[k] || seen[k] {
				continue
			}
			seen[k] = true
			out.Rows = append(out.Rows, merge(nil, rrow))
		}
	}
	return out
}

func joinKey(row Row, keys []string) string {
	var parts []string
	for _, k := range keys {
		parts = append(parts, typedRepr(row[k]))
	}
	return strings.Join(parts, "\x1f")
}

// dedupe keeps one row per key tuple. With an order column the rows are
// sorted by it first (ascending for "first", descending for "last") and
// the first of each key wins; without one, original order decides.
func dedupe(in *RowSet, keys []string, pick, orderCol string) *RowSet {
	if pick != "last" {
		pick = "first"
	}
	rows := in.Rows
	if orderCol != "" {
		rows = append([]Row(nil), in.Rows...)
		sort.SliceStable(rows, func(i, j int) bool {
			c := compareCells(rows[i][orderCol], rows[j][orderCol])
			if pick == "last" {
				return c > 0
			}
			return c < 0
		})
		pick = "first"
	}

	out := NewRowSet(in.Cols...)
	if pick == "first" {
		seen := make(map[string]bool)
		for _, row := range rows {
			k := joinKey(row, keys)
			if seen[k] {
				continue
			}
			seen[k] = true
			out.Rows = append(out.Rows, row)
		}
		return out
	}
	last := make(map[string]int)
	for i, row := range rows {
		last[joinKey(row, keys)] = i
	}
	for i, row := range rows {
		if last[joinKey(row, keys)] == i {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

func (r *Runner) opSink(in *RowSet, d graph.NodeData) error {
	path := d.Path
	if path == "" {
		path = "out.csv"
	}
	if err := r.sink(path, []byte(EncodeCSV(in))); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// typedRepr keys values for grouping and joining: equal values of equal
// dynamic type collide, a string "1" and a number 1 do not.
func typedRepr(v any) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T:%v", v, v)
}

// cellNull treats both nil and the empty string as null, matching how
// empty CSV fields decode.
func cellNull(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
