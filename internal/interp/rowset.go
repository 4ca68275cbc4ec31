// Package interp executes a pipeline graph in process, operation by
// operation, producing row-sets directly without a script stage. It is
// the reference semantics the two generators lower to.
package interp

// Row maps column names to scalar values (string, float64, int64, bool,
// or nil for null). A missing key reads as null.
type Row = map[string]any

// RowSet is an ordered sequence of rows plus the column order carried for
// previews and CSV artifacts. Row-sets are fully materialized; there is
// no paging or streaming.
type RowSet struct {
	Cols []string
	Rows []Row
}

// NewRowSet returns an empty row-set with the given column order. The
// column slice is copied: operations append to Cols, and sharing a
// caller's backing array would let one output clobber another's schema.
func NewRowSet(cols ...string) *RowSet {
	return &RowSet{Cols: append(make([]string, 0, len(cols)), cols...)}
}

// HasCol reports whether the column is part of the row-set's schema.
func (rs *RowSet) HasCol(name string) bool {
	for _, c := range rs.Cols {
		if c == name {
			return true
		}
	}
	return false
}

// cloneRows copies the row slice and each row map, leaving values shared.
func (rs *RowSet) cloneRows() []Row {
	out := make([]Row, len(rs.Rows))
	for i, r := range rs.Rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

// Clone returns an independent copy of the row-set.
func (rs *RowSet) Clone() *RowSet {
	return &RowSet{
		Cols: append([]string(nil), rs.Cols...),
		Rows: rs.cloneRows(),
	}
}
