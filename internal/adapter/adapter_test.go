package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_DuckDBRegistered(t *testing.T) {
	require.Contains(t, List(), "duckdb")

	a, err := New(Config{Type: "duckdb"}, nil)
	require.NoError(t, err)
	require.Equal(t, "duckdb", a.DialectName())
}

func TestRegistry_UnknownEngine(t *testing.T) {
	_, err := New(Config{Type: "oracle"}, nil)
	var unknown *UnknownEngineError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "oracle", unknown.Type)
}

func TestRegistry_EmptyType(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
}

func TestDuckDB_NotConnected(t *testing.T) {
	a := NewDuckDB(nil)
	require.Error(t, a.Exec(context.Background(), "SELECT 1"))
	_, err := a.Query(context.Background(), "SELECT 1")
	require.Error(t, err)
	require.NoError(t, a.Close())
}
