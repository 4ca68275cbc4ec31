package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapflow/internal/state"
)

func writeWorkflow(t *testing.T, fileText string) string {
	t.Helper()
	doc := map[string]any{
		"nodes": []map[string]any{
			{"id": "src", "data": map[string]any{"type": "source.csv", "label": "Orders", "_fileText": fileText}},
			{"id": "flt", "data": map[string]any{"type": "transform.filter", "label": "Big", "expr": "amount > 5"}},
		},
		"edges": []map[string]any{
			{"source": "src", "target": "flt"},
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "orders.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "leapflow v")
}

func TestGenerateCommand_WritesScripts(t *testing.T) {
	wf := writeWorkflow(t, "id,amount\n1,10\n")
	outDir := t.TempDir()

	_, err := execute(t, "generate", wf, "--out-dir", outDir)
	require.NoError(t, err)

	py, err := os.ReadFile(filepath.Join(outDir, "orders.py"))
	require.NoError(t, err)
	require.Contains(t, string(py), "import pandas as pd")

	sqlText, err := os.ReadFile(filepath.Join(outDir, "orders.sql"))
	require.NoError(t, err)
	require.Contains(t, string(sqlText), "WITH")
}

func TestGenerateCommand_Stdout(t *testing.T) {
	wf := writeWorkflow(t, "id,amount\n1,10\n")

	out, err := execute(t, "generate", wf, "--stdout")
	require.NoError(t, err)
	require.Contains(t, out, "# Auto-generated by leapflow (pandas)")
	require.Contains(t, out, "-- Auto-generated by leapflow (SQL, DuckDB)")
}

func TestRunCommand_CSVOutput(t *testing.T) {
	wf := writeWorkflow(t, "id,amount\n1,10\n2,3\n")
	statePath := filepath.Join(t.TempDir(), "history.db")

	out, err := execute(t, "run", wf, "-o", "csv", "--state", statePath)
	require.NoError(t, err)
	require.Equal(t, "id,amount\n1,10\n", out)

	store, err := state.Open(statePath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, state.RunStatusSuccess, runs[0].Status)
	require.Equal(t, 1, runs[0].RowCount)
}

func TestRunCommand_Limit(t *testing.T) {
	wf := writeWorkflow(t, "id,amount\n1,10\n2,30\n3,40\n")
	statePath := filepath.Join(t.TempDir(), "history.db")

	out, err := execute(t, "run", wf, "-o", "csv", "--state", statePath, "--limit", "1")
	require.NoError(t, err)
	require.Equal(t, "id,amount\n1,10\n", out)
}

func TestRunCommand_JSONOutput(t *testing.T) {
	wf := writeWorkflow(t, "id,amount\n1,10\n")
	statePath := filepath.Join(t.TempDir(), "history.db")

	out, err := execute(t, "run", wf, "-o", "json", "--state", statePath)
	require.NoError(t, err)

	var doc struct {
		Columns []string         `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Equal(t, []string{"id", "amount"}, doc.Columns)
	require.Len(t, doc.Rows, 1)
}

func TestValidateCommand_Valid(t *testing.T) {
	wf := writeWorkflow(t, "id,amount\n1,10\n")
	out, err := execute(t, "validate", wf)
	require.NoError(t, err)
	require.Contains(t, out, "structurally valid")
}

func TestValidateCommand_Invalid(t *testing.T) {
	// A source with neither payload nor path.
	wf := writeWorkflow(t, "")
	out, err := execute(t, "validate", wf)
	require.Error(t, err)
	require.Contains(t, err.Error(), "validation error")
	require.Contains(t, out, "src")
}

func TestRunCommand_MissingWorkflow(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "history.db")
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "nope.json"), "--state", statePath)
	require.Error(t, err)
}
