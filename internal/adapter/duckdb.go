package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Adapter { return NewDuckDB(logger) })
}

// DuckDB implements Adapter over an embedded DuckDB database.
type DuckDB struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDuckDB creates an unconnected DuckDB adapter.
func NewDuckDB(logger *slog.Logger) *DuckDB {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDB{logger: logger}
}

// Connect opens the database. An empty path means in-memory.
func (a *DuckDB) Connect(ctx context.Context, cfg Config) error {
	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping duckdb: %w", err)
	}
	a.db = db
	a.logger.Debug("duckdb connected", "path", cfg.Path)
	return nil
}

// Close closes the connection.
func (a *DuckDB) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Exec runs a statement that returns no rows.
func (a *DuckDB) Exec(ctx context.Context, sqlStr string) error {
	if a.db == nil {
		return fmt.Errorf("duckdb: not connected")
	}
	if _, err := a.db.ExecContext(ctx, sqlStr); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// Query runs a statement and returns its rows.
func (a *DuckDB) Query(ctx context.Context, sqlStr string) (*Rows, error) {
	if a.db == nil {
		return nil, fmt.Errorf("duckdb: not connected")
	}
	//nolint:rowserrcheck // rows.Err() is checked by the caller after iteration
	rows, err := a.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return &Rows{Rows: rows}, nil
}

// DialectName reports the SQL dialect.
func (a *DuckDB) DialectName() string {
	return "duckdb"
}

var _ Adapter = (*DuckDB)(nil)
