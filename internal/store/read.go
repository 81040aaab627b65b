package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const runColumns = `id, directory, weights, num_jobs, executable, started_at, elapsed_ms, num_run, num_skipped, num_failed, finished`

const unitResultColumns = `run_id, seq, name, definition_hash, num_procs, command, passed, skipped, exit_code, elapsed_ms, annotations, failure_reasons`

// ListRuns returns the most recent runs, newest first. A limit of 0 or less
// returns every run.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id COLLATE BINARY DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns a single run by ID.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, &NotFoundError{Kind: "run", ID: id}
	}
	return run, err
}

// ReadUnitResults returns the results of a run in completion order.
//
// Returns an empty slice (not nil) if the run has no results.
func (s *Store) ReadUnitResults(ctx context.Context, runID string) ([]UnitResult, error) {
	return s.queryUnitResults(ctx, `
		SELECT `+unitResultColumns+`
		FROM unit_results
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// UnitHistory returns the results recorded for one unit name across runs,
// newest run first.
func (s *Store) UnitHistory(ctx context.Context, name string, limit int) ([]UnitResult, error) {
	query := `
		SELECT u.run_id, u.seq, u.name, u.definition_hash, u.num_procs, u.command, u.passed, u.skipped,
		       u.exit_code, u.elapsed_ms, u.annotations, u.failure_reasons
		FROM unit_results u
		JOIN runs r ON u.run_id = r.id
		WHERE u.name = ?
		ORDER BY r.started_at DESC, r.id COLLATE BINARY DESC`
	args := []any{name}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryUnitResults(ctx, query, args...)
}

func (s *Store) queryUnitResults(ctx context.Context, query string, args ...any) ([]UnitResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unit results: %w", err)
	}
	defer rows.Close()

	results := []UnitResult{}
	for rows.Next() {
		r, err := scanUnitResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unit results: %w", err)
	}
	return results, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		startedAt string
		elapsedMS int64
		finished  int
	)
	err := row.Scan(&run.ID, &run.Directory, &run.Weights, &run.NumJobs, &run.Executable,
		&startedAt, &elapsedMS, &run.NumRun, &run.NumSkipped, &run.NumFailed, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return Run{}, err
	}
	run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	run.Finished = finished != 0
	return run, nil
}

func scanUnitResult(row scanner) (UnitResult, error) {
	var (
		r               UnitResult
		passed, skipped int
		elapsedMS       int64
		notes, reasons  string
	)
	err := row.Scan(&r.RunID, &r.Seq, &r.Name, &r.DefinitionHash, &r.NumProcs, &r.Command,
		&passed, &skipped, &r.ExitCode, &elapsedMS, &notes, &reasons)
	if err != nil {
		return UnitResult{}, fmt.Errorf("scan unit result: %w", err)
	}
	r.Passed = passed != 0
	r.Skipped = skipped != 0
	r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	if r.Annotations, err = unmarshalStrings(notes); err != nil {
		return UnitResult{}, err
	}
	if r.FailureReasons, err = unmarshalStrings(reasons); err != nil {
		return UnitResult{}, err
	}
	return r, nil
}
