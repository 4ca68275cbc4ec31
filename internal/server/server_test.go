package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapflow/internal/adapter"
	"github.com/leapstack-labs/leapflow/internal/equiv"
	"github.com/leapstack-labs/leapflow/internal/state"
	"github.com/leapstack-labs/leapflow/internal/testutil"
)

func workflowJSON(fileText string, target string) []byte {
	doc := map[string]any{
		"nodes": []map[string]any{
			{"id": "src", "data": map[string]any{"type": "source.csv", "label": "Orders", "_fileText": fileText}},
			{"id": "flt", "data": map[string]any{"type": "transform.filter", "label": "Big", "expr": "amount > 5"}},
		},
		"edges": []map[string]any{
			{"source": "src", "target": "flt"},
		},
	}
	if target != "" {
		doc["target"] = target
	}
	b, _ := json.Marshal(doc)
	return b
}

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = testutil.NewTestLogger(t)
	}
	ts := httptest.NewServer(New(cfg).Routes())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body []byte, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHandleGenerate(t *testing.T) {
	ts := newTestServer(t, Config{})

	var got generateResponse
	code := postJSON(t, ts.URL+"/api/generate", workflowJSON("id,amount\n1,10\n", ""), &got)
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, got.Python, "import pandas as pd")
	require.Contains(t, got.SQL, "WITH")
}

func TestHandleRun(t *testing.T) {
	store, err := state.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ts := newTestServer(t, Config{Store: store})

	var got runResponse
	code := postJSON(t, ts.URL+"/api/run", workflowJSON("id,amount\n1,10\n2,3\n", ""), &got)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []string{"id", "amount"}, got.Columns)
	require.Equal(t, 1, got.RowCount)
	require.False(t, got.Truncated)
	require.Empty(t, got.NodeErrors)
	require.NotEmpty(t, got.Python)
	require.NotEmpty(t, got.SQL)

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, state.RunStatusSuccess, runs[0].Status)
	require.Equal(t, 1, runs[0].RowCount)
}

func TestHandleRun_TruncatesPreview(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,amount\n")
	for i := 0; i < 250; i++ {
		fmt.Fprintf(&b, "%d,%d\n", i, i+100)
	}
	ts := newTestServer(t, Config{})

	var got runResponse
	code := postJSON(t, ts.URL+"/api/run", workflowJSON(b.String(), ""), &got)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 250, got.RowCount)
	require.Len(t, got.Rows, 200)
	require.True(t, got.Truncated)
}

func TestHandleRun_InvalidGraph(t *testing.T) {
	ts := newTestServer(t, Config{})

	// A source with neither payload nor path fails validation.
	var got errorResponse
	code := postJSON(t, ts.URL+"/api/run", workflowJSON("", ""), &got)
	require.Equal(t, http.StatusBadRequest, code)
	require.NotEmpty(t, got.Error)
	require.NotEmpty(t, got.Violations)
	require.Equal(t, "src", got.Violations[0].NodeID)
}

func TestHandleRun_MalformedBody(t *testing.T) {
	ts := newTestServer(t, Config{})

	var got errorResponse
	code := postJSON(t, ts.URL+"/api/run", []byte("{nope"), &got)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestHandleValidate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherFunc(func(_, _ string) error { return nil })))
	require.NoError(t, err)
	mock.ExpectQuery("").WillReturnRows(
		sqlmock.NewRows([]string{"id", "amount"}).AddRow("1", "10"),
	)

	checker := &equiv.Checker{
		Logger: testutil.NewTestLogger(t),
		Open: func(context.Context) (adapter.Adapter, error) {
			return &mockEngine{db: db}, nil
		},
	}
	store, err := state.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ts := newTestServer(t, Config{Checker: checker, Store: store})

	var rep equiv.Report
	code := postJSON(t, ts.URL+"/api/validate", workflowJSON("id,amount\n1,10\n2,3\n", ""), &rep)
	require.Equal(t, http.StatusOK, code)
	require.True(t, rep.Match, "reason: %s", rep.Reason)

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, state.RunKindValidate, runs[0].Kind)
	require.Equal(t, state.RunStatusSuccess, runs[0].Status)
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t, Config{})
	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// mockEngine adapts a sqlmock database to the adapter interface.
type mockEngine struct {
	db *sql.DB
}

func (m *mockEngine) Connect(context.Context, adapter.Config) error { return nil }
func (m *mockEngine) Close() error                                  { return m.db.Close() }
func (m *mockEngine) DialectName() string                           { return "mock" }

func (m *mockEngine) Exec(ctx context.Context, s string) error {
	_, err := m.db.ExecContext(ctx, s)
	return err
}

func (m *mockEngine) Query(ctx context.Context, s string) (*adapter.Rows, error) {
	rows, err := m.db.QueryContext(ctx, s)
	if err != nil {
		return nil, err
	}
	return &adapter.Rows{Rows: rows}, nil
}
