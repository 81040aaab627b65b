package store

import (
	"context"
	"fmt"
	"time"
)

// Run is one scheduler invocation.
type Run struct {
	ID         string        `json:"id"`
	Directory  string        `json:"directory"`
	Weights    string        `json:"weights"`
	NumJobs    int           `json:"num_jobs"`
	Executable string        `json:"executable"`
	StartedAt  time.Time     `json:"started_at"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	NumRun     int           `json:"num_run"`
	NumSkipped int           `json:"num_skipped"`
	NumFailed  int           `json:"num_failed"`
	Finished   bool          `json:"finished"`
}

// UnitResult is the outcome of one unit in a run. Seq is the unit's
// completion order within the run, starting at 1.
type UnitResult struct {
	RunID          string        `json:"run_id"`
	Seq            int64         `json:"seq"`
	Name           string        `json:"name"`
	DefinitionHash string        `json:"definition_hash"`
	NumProcs       int           `json:"num_procs"`
	Command        string        `json:"command"`
	Passed         bool          `json:"passed"`
	Skipped        bool          `json:"skipped"`
	ExitCode       int           `json:"exit_code"`
	Elapsed        time.Duration `json:"elapsed_ns"`
	Annotations    []string      `json:"annotations"`
	FailureReasons []string      `json:"failure_reasons"`
}

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, directory, weights, num_jobs, executable, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Directory,
		run.Weights,
		run.NumJobs,
		run.Executable,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// FinishRun records the aggregate counts of a run and marks it finished.
func (s *Store) FinishRun(ctx context.Context, id string, elapsed time.Duration, numRun, numSkipped, numFailed int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET elapsed_ms = ?, num_run = ?, num_skipped = ?, num_failed = ?, finished = 1
		WHERE id = ?
	`, elapsed.Milliseconds(), numRun, numSkipped, numFailed, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: %w", &NotFoundError{Kind: "run", ID: id})
	}
	return nil
}

// WriteUnitResult inserts a unit result.
// Uses ON CONFLICT DO NOTHING for idempotency - rewriting the same (run, seq) is ignored.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteUnitResult(ctx context.Context, r UnitResult) error {
	notes, err := marshalStrings(r.Annotations)
	if err != nil {
		return fmt.Errorf("write unit result: %w", err)
	}
	reasons, err := marshalStrings(r.FailureReasons)
	if err != nil {
		return fmt.Errorf("write unit result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO unit_results
		(run_id, seq, name, definition_hash, num_procs, command, passed, skipped, exit_code, elapsed_ms, annotations, failure_reasons)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		r.RunID,
		r.Seq,
		r.Name,
		r.DefinitionHash,
		r.NumProcs,
		r.Command,
		boolInt(r.Passed),
		boolInt(r.Skipped),
		r.ExitCode,
		r.Elapsed.Milliseconds(),
		notes,
		reasons,
	)
	if err != nil {
		return fmt.Errorf("write unit result: %w", err)
	}
	return nil
}
