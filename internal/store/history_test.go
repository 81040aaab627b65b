package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1", testEpoch)
	require.NoError(t, s.WriteRun(ctx, run))
	require.NoError(t, s.WriteRun(ctx, run))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run, runs[0])
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1", testEpoch)))

	require.NoError(t, s.FinishRun(ctx, "run-1", 2500*time.Millisecond, 3, 1, 1))

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, run.Finished)
	assert.Equal(t, 2500*time.Millisecond, run.Elapsed)
	assert.Equal(t, 3, run.NumRun)
	assert.Equal(t, 1, run.NumSkipped)
	assert.Equal(t, 1, run.NumFailed)

	err = s.FinishRun(ctx, "missing", 0, 0, 0, 0)
	assert.True(t, IsNotFoundError(err))
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "nope")
	assert.True(t, IsNotFoundError(err))
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.WriteRun(ctx, createTestRun(id, testEpoch.Add(time.Duration(i)*time.Minute))))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestUnitResults_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1", testEpoch)))

	failed := createTestUnitResult("run-1", 2, "suite/b")
	failed.Passed = false
	failed.ExitCode = 1
	failed.Annotations = []string{"EXIT 1"}
	failed.FailureReasons = []string{"ErrorCode[0]: exit code 1, expected 0", "<html> & stuff"}

	require.NoError(t, s.WriteUnitResult(ctx, failed))
	require.NoError(t, s.WriteUnitResult(ctx, createTestUnitResult("run-1", 1, "suite/a")))
	require.NoError(t, s.WriteUnitResult(ctx, createTestUnitResult("run-1", 1, "ignored")))

	results, err := s.ReadUnitResults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "suite/a", results[0].Name)
	assert.Equal(t, []string{}, results[0].Annotations)
	assert.Equal(t, failed, results[1])
}

func TestUnitHistory(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for i, id := range []string{"old", "new"} {
		require.NoError(t, s.WriteRun(ctx, createTestRun(id, testEpoch.Add(time.Duration(i)*time.Hour))))
		require.NoError(t, s.WriteUnitResult(ctx, createTestUnitResult(id, 1, "suite/a")))
		require.NoError(t, s.WriteUnitResult(ctx, createTestUnitResult(id, 2, "suite/b")))
	}

	history, err := s.UnitHistory(ctx, "suite/a", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "new", history[0].RunID)
	assert.Equal(t, "old", history[1].RunID)

	history, err = s.UnitHistory(ctx, "suite/a", 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
