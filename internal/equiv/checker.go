package equiv

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/leapstack-labs/leapflow/internal/adapter"
	"github.com/leapstack-labs/leapflow/internal/codegen"
	"github.com/leapstack-labs/leapflow/internal/graph"
	"github.com/leapstack-labs/leapflow/internal/interp"
)

// Checker runs a graph through both the interpreter and the declarative
// backend and compares the results. The zero value opens an in-memory
// DuckDB per check.
type Checker struct {
	Logger *slog.Logger

	// Runner executes the interpreter side. Defaults to a runner whose
	// sinks are disabled, so a check never writes artifacts.
	Runner *interp.Runner

	// Open supplies the engine connection. Defaults to an in-memory
	// DuckDB adapter.
	Open func(ctx context.Context) (adapter.Adapter, error)
}

// Report is the outcome of one equivalence check.
type Report struct {
	Match      bool              `json:"match"`
	Reason     string            `json:"reason,omitempty"`
	Interp     Signature         `json:"interp"`
	Engine     Signature         `json:"engine"`
	SQL        string            `json:"sql"`
	NodeErrors map[string]string `json:"node_errors,omitempty"`
}

// Check executes the graph up to target on both backends and compares
// signatures. Structural validation errors abort; backend disagreement
// does not, it is reported.
func (c *Checker) Check(ctx context.Context, g *graph.Graph, target string) (*Report, error) {
	res, err := c.runner().Run(ctx, g, target)
	if err != nil {
		return nil, fmt.Errorf("interpret: %w", err)
	}

	sqlText := codegen.SQL(g, target)
	sqlText, cleanup, err := materializeSources(g, sqlText)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	db, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.Query(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("execute generated sql: %w", err)
	}
	engineSet, err := ScanRows(rows)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Interp:     SignatureOf(res.RowSet),
		Engine:     SignatureOf(engineSet),
		SQL:        sqlText,
		NodeErrors: res.NodeErrors,
	}
	rep.Match, rep.Reason = Compare(rep.Interp, rep.Engine)
	c.logger().Debug("equivalence check", "match", rep.Match, "reason", rep.Reason)
	return rep, nil
}

// ScanRows drains a SQL result set into a row-set. Byte slices are
// normalized to strings; everything else keeps its driver type.
func ScanRows(rows *adapter.Rows) (*interp.RowSet, error) {
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("result columns: %w", err)
	}
	rs := interp.NewRowSet(cols...)

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(interp.Row, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = vals[i]
			}
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return rs, nil
}

// materializeSources writes every in-memory source payload to a temp CSV
// file and rewrites the matching path literals in the SQL, so the engine
// reads the same bytes the interpreter saw. The returned cleanup removes
// the temp files.
func materializeSources(g *graph.Graph, sqlText string) (string, func(), error) {
	var temps []string
	cleanup := func() {
		for _, p := range temps {
			_ = os.Remove(p)
		}
	}

	for _, n := range g.Nodes {
		if n.Data.Type != graph.KindSource || n.Data.FileText == "" {
			continue
		}
		f, err := os.CreateTemp("", "leapflow-src-*.csv")
		if err != nil {
			cleanup()
			return "", nil, fmt.Errorf("materialize source %s: %w", n.ID, err)
		}
		if _, err := f.WriteString(n.Data.FileText); err != nil {
			_ = f.Close()
			cleanup()
			return "", nil, fmt.Errorf("materialize source %s: %w", n.ID, err)
		}
		_ = f.Close()
		temps = append(temps, f.Name())

		path := n.Data.Path
		if path == "" {
			path = "uploaded.csv"
		}
		old := fmt.Sprintf("read_csv_auto('%s'", strings.ReplaceAll(path, "'", "''"))
		repl := fmt.Sprintf("read_csv_auto('%s'", strings.ReplaceAll(f.Name(), "'", "''"))
		sqlText = strings.ReplaceAll(sqlText, old, repl)
	}
	return sqlText, cleanup, nil
}

func (c *Checker) runner() *interp.Runner {
	if c.Runner != nil {
		return c.Runner
	}
	return &interp.Runner{
		Logger: c.logger(),
		Sink:   func(string, []byte) error { return nil },
	}
}

func (c *Checker) open(ctx context.Context) (adapter.Adapter, error) {
	if c.Open != nil {
		return c.Open(ctx)
	}
	db, err := adapter.New(adapter.Config{Type: "duckdb"}, c.Logger)
	if err != nil {
		return nil, err
	}
	if err := db.Connect(ctx, adapter.Config{Type: "duckdb"}); err != nil {
		return nil, err
	}
	return db, nil
}

func (c *Checker) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}
