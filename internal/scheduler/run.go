package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/tfc/internal/metrics"
	"github.com/roach88/tfc/internal/param"
	"github.com/roach88/tfc/internal/report"
	"github.com/roach88/tfc/internal/store"
	"github.com/roach88/tfc/internal/unit"
)

// Summary is the outcome of a run.
type Summary = report.Summary

// Unsatisfiable is the reject reason for units whose dependencies can
// never finish.
const Unsatisfiable = "unsatisfiable dependencies"

// Tick runs one scheduling pass: submit every eligible pending unit that
// fits the remaining capacity in scan order, then poll every active unit
// and recompute the committed load. It reports done once a pass starts
// with no eligible unit left unfinished.
//
// A ProcessError from polling is returned and ends the run.
func (s *Scheduler) Tick() (done bool, err error) {
	s.ticks++
	s.metrics.Ticks.Inc()

	done = true
	progress := 0
	for _, u := range s.units {
		if u.State() == unit.Done {
			continue
		}
		if !s.opts.Weights.Allows(u.WeightClass()) {
			u.Exclude()
			progress++
			s.logger.Debug("unit excluded by weight class", "unit", u.Name(), "weight_class", u.WeightClass())
			continue
		}
		done = false

		if u.State() != unit.Pending {
			continue
		}
		if u.NumProcs() > s.opts.NumJobs {
			u.Reject(s, fmt.Sprintf("num_procs %d exceeds capacity %d", u.NumProcs(), s.opts.NumJobs))
			progress++
			continue
		}
		if !u.DependenciesMet(s.units) || u.NumProcs() > s.opts.NumJobs-s.load {
			continue
		}

		s.load += u.NumProcs()
		s.peakLoad = max(s.peakLoad, s.load)
		u.Submit(s)
		s.active = append(s.active, u)
		progress++
		s.metrics.UnitsSubmitted.Inc()
		s.logger.Debug("unit submitted", "unit", u.Name(), "command", u.Command(), "load", s.load)
	}

	s.load = 0
	for _, u := range s.active {
		if u.State() == unit.Done {
			continue
		}
		state, err := u.CheckProgress(s)
		if err != nil {
			s.logger.Error("polling failed", "unit", u.Name(), "error", err)
			return false, err
		}
		if state == unit.Done {
			progress++
			continue
		}
		s.load += u.NumProcs()
	}
	s.metrics.CommittedLoad.Set(float64(s.load))

	if !done && progress == 0 && s.load == 0 {
		s.rejectStalled()
	}
	return done, nil
}

// rejectStalled fails every pending unit when nothing runs and nothing
// can start: their dependencies wait on each other or on rejected units.
func (s *Scheduler) rejectStalled() {
	for _, u := range s.units {
		if u.State() == unit.Pending {
			s.logger.Warn("unit dependencies cannot be satisfied", "unit", u.Name(), "dependencies", u.Dependencies())
			u.Reject(s, Unsatisfiable)
		}
	}
}

// Run drives ticks until every eligible unit is done, then writes the
// summary. Cancelling ctx stops the loop between ticks; started processes
// are not killed.
func (s *Scheduler) Run(ctx context.Context) (*Summary, error) {
	s.started = s.Now()
	s.runID = s.opts.IDs.Generate()
	weights := s.opts.Weights.String()
	s.logger.Info("run starting", "run_id", s.runID, "units", len(s.units), "num_jobs", s.opts.NumJobs, "weights", weights)

	if s.opts.Store != nil {
		err := s.opts.Store.WriteRun(ctx, store.Run{
			ID:         s.runID,
			Directory:  s.opts.Directory,
			Weights:    weights,
			NumJobs:    s.opts.NumJobs,
			Executable: s.executable,
			StartedAt:  s.started,
		})
		if err != nil {
			return nil, err
		}
	}

	s.reporter.Header(weights, s.opts.NumJobs, s.executable)
	for {
		done, err := s.Tick()
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.opts.PollInterval):
		}
	}

	elapsed := s.Now().Sub(s.started)
	summary := report.Summarize(s.units, elapsed)
	summary.RunID = s.runID
	summary.Weights = weights
	s.reporter.WriteSummary(summary)

	s.metrics.RunDuration.Set(elapsed.Seconds())
	if s.opts.MetricsFile != "" {
		if err := s.metrics.WriteTextfile(s.opts.MetricsFile); err != nil {
			s.logger.Warn("metrics not written", "path", s.opts.MetricsFile, "error", err)
		}
	}
	if s.opts.Store != nil {
		if err := s.opts.Store.FinishRun(ctx, s.runID, elapsed, summary.Run, summary.Skipped, summary.Failed); err != nil {
			return summary, err
		}
	}

	s.logger.Info("run finished", "run_id", s.runID, "run", summary.Run, "skipped", summary.Skipped, "failed", summary.Failed, "ticks", s.ticks)
	return summary, nil
}

// Emit reports a unit that reached Done: status line, metrics and run
// history. History failures are logged, not fatal.
func (s *Scheduler) Emit(u *unit.Unit) {
	s.reporter.Emit(u)
	s.metrics.Completed(resultLabel(u), u.Elapsed().Seconds())
	s.logger.Debug("unit done", "unit", u.Name(), "passed", u.Passed(), "elapsed", u.Elapsed())

	if s.opts.Store == nil {
		return
	}
	s.seq++
	hash, err := param.Hash(u.Definition())
	if err != nil {
		s.logger.Warn("definition hash failed", "unit", u.Name(), "error", err)
	}
	err = s.opts.Store.WriteUnitResult(context.Background(), store.UnitResult{
		RunID:          s.runID,
		Seq:            s.seq,
		Name:           u.Name(),
		DefinitionHash: hash,
		NumProcs:       u.NumProcs(),
		Command:        u.Command(),
		Passed:         u.Passed(),
		Skipped:        u.Skipped(),
		ExitCode:       u.ExitCode(),
		Elapsed:        u.Elapsed(),
		Annotations:    u.Annotations(),
		FailureReasons: u.FailureReasons(),
	})
	if err != nil {
		s.logger.Warn("unit result not recorded", "unit", u.Name(), "error", err)
	}
}

func resultLabel(u *unit.Unit) string {
	switch {
	case u.RejectReason() != "":
		return metrics.ResultRejected
	case u.Skipped():
		return metrics.ResultSkipped
	case u.Passed():
		return metrics.ResultPassed
	default:
		return metrics.ResultFailed
	}
}
