// Package adapter provides database engine adapters used to execute the
// declarative scripts the generator emits, plus a registry keyed by
// engine name.
package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Config holds the connection settings for an engine.
type Config struct {
	// Type is the engine name (e.g. "duckdb").
	Type string

	// Path is the database file for file-based engines; ":memory:" or
	// empty selects an in-memory database.
	Path string

	// Options carries additional driver-specific settings.
	Options map[string]string
}

// Rows wraps sql.Rows so callers stay decoupled from the driver.
type Rows struct {
	*sql.Rows
}

// Adapter is the minimal engine surface the equivalence checker needs.
type Adapter interface {
	// Connect establishes the connection described by cfg.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection.
	Close() error

	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, sql string) error

	// Query runs a statement and returns its rows. The caller owns the
	// rows and must check rows.Err after iterating.
	Query(ctx context.Context, sql string) (*Rows, error)

	// DialectName reports the SQL dialect the adapter speaks.
	DialectName() string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Adapter)
)

// Register adds an adapter factory to the registry. Called by adapter
// implementations in their init functions.
func Register(name string, factory func(*slog.Logger) Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New creates an adapter for the configured engine type. A nil logger
// falls back to a discard logger inside the adapter.
func New(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("engine type not specified")
	}
	registryMu.RLock()
	factory, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownEngineError{Type: cfg.Type, Available: List()}
	}
	return factory(logger), nil
}

// List returns all registered engine names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownEngineError is returned when no adapter is registered for the
// requested engine type.
type UnknownEngineError struct {
	Type      string
	Available []string
}

func (e *UnknownEngineError) Error() string {
	return fmt.Sprintf("unknown engine type %q (available: %v)", e.Type, e.Available)
}
