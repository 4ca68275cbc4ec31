package state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RunLifecycle(t *testing.T) {
	s := openTestStore(t)

	run, err := s.StartRun(RunKindRun, "agg")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	require.Equal(t, RunStatusRunning, run.Status)

	require.NoError(t, s.FinishRun(run.ID, RunStatusSuccess, 42, ""))

	got, err := s.GetRun(run.ID)
	require.NoError(t, err)
	require.Equal(t, RunStatusSuccess, got.Status)
	require.Equal(t, 42, got.RowCount)
	require.Equal(t, "agg", got.Target)
	require.NotNil(t, got.CompletedAt)
}

func TestStore_FinishUnknownRun(t *testing.T) {
	s := openTestStore(t)
	require.Error(t, s.FinishRun("nope", RunStatusFailed, 0, "boom"))
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)

	a, err := s.StartRun(RunKindRun, "")
	require.NoError(t, err)
	b, err := s.StartRun(RunKindValidate, "flt")
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(b.ID, RunStatusMismatch, 3, "content sample digest differs"))

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	ids := []string{runs[0].ID, runs[1].ID}
	require.Contains(t, ids, a.ID)
	require.Contains(t, ids, b.ID)
}

func TestStore_MigrationVersion(t *testing.T) {
	s := openTestStore(t)
	v, err := s.MigrationVersion()
	require.NoError(t, err)
	require.GreaterOrEqual(t, v, int64(1))
}
