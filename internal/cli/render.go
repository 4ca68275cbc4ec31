package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/leapflow/internal/interp"
)

// renderRowSet prints a row-set in the requested format.
func renderRowSet(w io.Writer, rs *interp.RowSet, format string) error {
	switch format {
	case "json":
		return renderJSON(w, rs)
	case "csv":
		_, err := io.WriteString(w, interp.EncodeCSV(rs))
		return err
	default:
		return renderTable(w, rs)
	}
}

func renderTable(w io.Writer, rs *interp.RowSet) error {
	if len(rs.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(rs.Cols))
	for i, col := range rs.Cols {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, row := range rs.Rows {
		out := make(table.Row, len(rs.Cols))
		for i, col := range rs.Cols {
			if interp.IsNull(row[col]) {
				out[i] = "NULL"
			} else {
				out[i] = interp.StringOf(row[col])
			}
		}
		t.AppendRow(out)
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%s)\n", fmtRows(len(rs.Rows)))
	return nil
}

func renderJSON(w io.Writer, rs *interp.RowSet) error {
	doc := struct {
		Columns []string     `json:"columns"`
		Rows    []interp.Row `json:"rows"`
	}{Columns: rs.Cols, Rows: rs.Rows}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
