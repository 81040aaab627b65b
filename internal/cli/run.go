package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tfc/internal/config"
	"github.com/roach88/tfc/internal/loader"
	"github.com/roach88/tfc/internal/metrics"
	"github.com/roach88/tfc/internal/scheduler"
	"github.com/roach88/tfc/internal/store"
	"github.com/roach88/tfc/internal/unit"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Directory    string
	ProjectRoot  string
	Executable   string
	NumJobs      int
	Weights      int
	ConfigFile   string
	Database     string
	MetricsFile  string
	PollInterval time.Duration

	// Launcher overrides process spawning (for testing). If nil, units run
	// through the shell.
	Launcher unit.Launcher

	// IDs overrides the run ID generator (for testing). If nil, defaults to
	// UUIDv7Generator.
	IDs scheduler.IDGenerator
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Weights  string          `json:"weights"`
	Elapsed  float64         `json:"elapsed_seconds"`
	Run      int             `json:"run"`
	Skipped  int             `json:"skipped"`
	Failed   int             `json:"failed"`
	Failures []FailureResult `json:"failures,omitempty"`
	Problems []string        `json:"load_problems,omitempty"`
}

// FailureResult names a failed unit and why it failed.
type FailureResult struct {
	Name    string   `json:"name"`
	Reasons []string `json:"reasons"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Discover and run the tests under a directory",
		Long: `Discover every *tests* definition file under the directory, build the units
they define and run them with at most --num-jobs process slots in use.

The exit status is 0 when every unit passed, 1 when any failed and 2 on a
command or configuration error.

Example:
  tfc run -d ./regression -j 8
  tfc run -d ./regression -w 7 --db ./history.db --metrics-file ./tfc.prom`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Directory, "directory", "d", "", "directory searched for test definition files (required)")
	cmd.Flags().StringVarP(&opts.Executable, "executable", "e", "python3", "executable for units that name none")
	cmd.Flags().StringVar(&opts.ProjectRoot, "project-root", "", "directory relative __executable values resolve against (default: working directory)")
	cmd.Flags().IntVarP(&opts.NumJobs, "num-jobs", "j", 4, "process slots available to running units")
	cmd.Flags().IntVarP(&opts.Weights, "weights", "w", 1, config.WeightsHelp)
	cmd.Flags().StringVar(&opts.ConfigFile, "config", config.DefaultFileName, "scheduler configuration file, relative to the directory")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write run metrics to this file in Prometheus text format")
	cmd.Flags().DurationVar(&opts.PollInterval, "poll-interval", scheduler.DefaultPollInterval, "pause between scheduling ticks")
	_ = cmd.MarkFlagRequired("directory")

	return cmd
}

func runTests(cmd *cobra.Command, opts *RunOptions) error {
	logger := opts.logger()
	f := opts.formatter(cmd)

	weights, err := config.DecodeWeightMask(opts.Weights)
	if err != nil {
		_ = f.Error(CodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid weights", err)
	}
	if opts.NumJobs < 1 {
		err := &config.ConfigurationError{Setting: "num_jobs", Value: opts.NumJobs, Reason: "must be at least 1"}
		_ = f.Error(CodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid num-jobs", err)
	}

	reg, err := newRegistry(logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register types", err)
	}

	var st *store.Store
	if opts.Database != "" {
		logger.Info("opening database", "path", opts.Database)
		st, err = store.Open(opts.Database)
		if err != nil {
			_ = f.Error(CodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	// Status lines share stdout with the JSON result only in text mode.
	var out io.Writer = cmd.OutOrStdout()
	if opts.Format == "json" {
		out = cmd.ErrOrStderr()
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	sched, res, err := scheduler.Build(ctx, reg, opts.ConfigFile, scheduler.Options{
		Directory:    opts.Directory,
		ProjectRoot:  opts.ProjectRoot,
		Executable:   opts.Executable,
		NumJobs:      opts.NumJobs,
		Weights:      weights,
		PollInterval: opts.PollInterval,
		Out:          out,
		Logger:       logger,
		Launcher:     opts.Launcher,
		IDs:          opts.IDs,
		Store:        st,
		Metrics:      metrics.New(),
		MetricsFile:  opts.MetricsFile,
	})
	if err != nil {
		if config.IsConfigurationError(err) {
			_ = f.Error(CodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
		_ = f.Error(CodeLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load tests", err)
	}
	reportLoad(f, logger, res)
	logger.Info("tests loaded", "dir", opts.Directory, "files", len(res.Files), "units", len(res.Units), "problems", len(res.Problems))

	summary, err := sched.Run(ctx)
	if err != nil {
		if unit.IsProcessError(err) {
			_ = f.Error(CodeProcess, err.Error(), nil)
			return WrapExitError(ExitFailure, "run aborted", err)
		}
		return WrapExitError(ExitCommandError, "run interrupted", err)
	}

	result := RunResult{
		Weights: summary.Weights,
		Elapsed: summary.Elapsed.Seconds(),
		Run:     summary.Run,
		Skipped: summary.Skipped,
		Failed:  summary.Failed,
	}
	for _, fl := range summary.Failures {
		result.Failures = append(result.Failures, FailureResult{Name: fl.Name, Reasons: fl.Reasons})
	}
	for _, p := range res.Problems {
		result.Problems = append(result.Problems, p.Error())
	}
	if err := f.SuccessRun(summary.RunID, result); err != nil {
		return err
	}

	if code := summary.ExitCode(); code != ExitSuccess {
		return NewExitError(code, fmt.Sprintf("%d of %d tests failed", summary.Failed, summary.Run))
	}
	return nil
}

// reportLoad lists the parsed files under --verbose and logs the
// definitions that could not be loaded as one aggregate warning.
func reportLoad(f *OutputFormatter, logger *slog.Logger, res *loader.Result) {
	for _, file := range res.Files {
		f.VerboseLog("parsed %s", file)
	}
	if err := res.Err(); err != nil {
		logger.Warn("some definitions were not loaded", "error", err)
	}
}

// signalContext derives a context cancelled on SIGINT or SIGTERM.
// Uses the command's context if available (for testing).
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
