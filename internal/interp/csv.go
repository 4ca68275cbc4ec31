package interp

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// DecodeCSV parses a comma-delimited textual payload with a header row
// into a row-set. Empty lines are skipped; short records are padded with
// empty fields. All decoded scalars are strings; downstream operations
// coerce as needed.
func DecodeCSV(text string) (*RowSet, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(text, "\uFEFF")))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv payload has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rs := NewRowSet(header...)
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs, nil
}

// EncodeCSV serializes a row-set to the tabular text artifact: header row
// first, double-quote escaping, fields containing the delimiter, a quote,
// or a newline quoted. Empty row-sets still produce a (possibly empty)
// artifact.
func EncodeCSV(rs *RowSet) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if len(rs.Cols) > 0 {
		_ = w.Write(rs.Cols)
	}
	record := make([]string, len(rs.Cols))
	for _, row := range rs.Rows {
		for i, col := range rs.Cols {
			record[i] = StringOf(row[col])
		}
		_ = w.Write(record)
	}
	w.Flush()
	return b.String()
}
