package store

import (
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testEpoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// createTestRun creates a run with minimal required fields.
func createTestRun(id string, started time.Time) Run {
	return Run{
		ID:         id,
		Directory:  "tests",
		Weights:    "short",
		NumJobs:    4,
		Executable: "python3",
		StartedAt:  started,
	}
}

// createTestUnitResult creates a passing unit result.
func createTestUnitResult(runID string, seq int64, name string) UnitResult {
	return UnitResult{
		RunID:          runID,
		Seq:            seq,
		Name:           name,
		DefinitionHash: "test-hash",
		NumProcs:       1,
		Command:        "python3 " + name,
		Passed:         true,
		Elapsed:        1500 * time.Millisecond,
	}
}
