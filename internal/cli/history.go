package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/roach88/tfc/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Unit     string
	Limit    int
}

// RunDetail is the JSON payload of "history <run-id>".
type RunDetail struct {
	Run   store.Run          `json:"run"`
	Units []store.UnitResult `json:"units"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `Show runs recorded with "tfc run --db". Without arguments the most recent
runs are listed; with a run ID the results of its units are shown; with
--unit the recent results of one unit across runs are shown.

Example:
  tfc history --db ./history.db
  tfc history --db ./history.db 0190a5c4-7d2e-7c3b-9a1f-2b6c1e8d4f00
  tfc history --db ./history.db --unit regression/solver/convergence`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return showHistory(cmd, opts, runID)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Unit, "unit", "", "show the results of this unit name across runs")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of rows; 0 for all")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func showHistory(cmd *cobra.Command, opts *HistoryOptions, runID string) error {
	logger := opts.logger()
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	st, err := store.OpenExisting(opts.Database)
	if err != nil {
		_ = f.Error(CodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	switch {
	case runID != "":
		run, err := st.ReadRun(ctx, runID)
		if err != nil {
			if store.IsNotFoundError(err) {
				_ = f.Error(CodeNotFound, err.Error(), nil)
				return WrapExitError(ExitCommandError, "run not found", err)
			}
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		units, err := st.ReadUnitResults(ctx, runID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read unit results", err)
		}
		if opts.Format == "json" {
			return f.Success(RunDetail{Run: run, Units: units})
		}
		return f.Success(runHeader(run) + "\n" + resultTable(units, false))

	case opts.Unit != "":
		units, err := st.UnitHistory(ctx, opts.Unit, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read unit history", err)
		}
		if opts.Format == "json" {
			return f.Success(units)
		}
		return f.Success(resultTable(units, true))

	default:
		runs, err := st.ListRuns(ctx, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		if opts.Format == "json" {
			return f.Success(runs)
		}
		return f.Success(runTable(runs))
	}
}

func runHeader(r store.Run) string {
	status := "finished"
	if !r.Finished {
		status = "unfinished"
	}
	return fmt.Sprintf("run %s (%s)\n  directory: %s\n  weights: %s, jobs: %d, executable: %s\n  started: %s, elapsed: %s\n  run: %d, skipped: %d, failed: %d",
		r.ID, status, r.Directory, r.Weights, r.NumJobs, r.Executable,
		r.StartedAt.Format("2006-01-02 15:04:05"), r.Elapsed, r.NumRun, r.NumSkipped, r.NumFailed)
}

func runTable(runs []store.Run) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "STARTED", "DIRECTORY", "WEIGHTS", "RUN", "SKIPPED", "FAILED", "ELAPSED")
	for _, r := range runs {
		elapsed := r.Elapsed.String()
		if !r.Finished {
			elapsed = "unfinished"
		}
		t.Row(r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Directory, r.Weights,
			strconv.Itoa(r.NumRun), strconv.Itoa(r.NumSkipped), strconv.Itoa(r.NumFailed), elapsed)
	}
	return t.String()
}

// resultTable lists unit results; withRun adds the run ID column used when
// the rows span runs.
func resultTable(results []store.UnitResult, withRun bool) string {
	headers := []string{"NAME", "PROCS", "RESULT", "EXIT", "ELAPSED", "NOTES"}
	if withRun {
		headers = append([]string{"RUN"}, headers...)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
	for _, r := range results {
		row := []string{r.Name, strconv.Itoa(r.NumProcs), resultWord(r),
			strconv.Itoa(r.ExitCode), r.Elapsed.String(), strings.Join(r.Annotations, " ")}
		if withRun {
			row = append([]string{r.RunID}, row...)
		}
		t.Row(row...)
	}
	return t.String()
}

func resultWord(r store.UnitResult) string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Passed:
		return "passed"
	default:
		return "failed"
	}
}
