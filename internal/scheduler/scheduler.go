package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/tfc/internal/config"
	"github.com/roach88/tfc/internal/factory"
	"github.com/roach88/tfc/internal/loader"
	"github.com/roach88/tfc/internal/metrics"
	"github.com/roach88/tfc/internal/report"
	"github.com/roach88/tfc/internal/store"
	"github.com/roach88/tfc/internal/unit"
)

// DefaultPollInterval is the pause between scheduling ticks.
const DefaultPollInterval = 10 * time.Millisecond

// Options configures a Scheduler. Zero values fall back to the defaults
// noted on each field.
type Options struct {
	// Directory is the root the units were discovered under.
	Directory string

	// ProjectRoot is where relative __executable values resolve; Build
	// defaults it to the working directory.
	ProjectRoot string

	// Executable runs units that name none. A configuration file
	// default_executable replaces it.
	Executable string

	// NumJobs is the process-slot capacity. Must be at least 1.
	NumJobs int

	// Weights selects the weight classes to run.
	Weights config.WeightMask

	// Config is the decoded configuration file; nil means config.Defaults().
	Config *config.File

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration

	// Out receives status lines and the summary; defaults to os.Stdout.
	Out io.Writer

	Logger   *slog.Logger
	Launcher unit.Launcher // defaults to unit.ExecLauncher
	Clock    Clock
	IDs      IDGenerator // defaults to UUIDv7Generator

	// Store records the run when set.
	Store *store.Store

	// Metrics defaults to a fresh metrics.Recorder.
	Metrics *metrics.Recorder

	// MetricsFile, when set, receives the metrics after the run.
	MetricsFile string
}

// Scheduler owns a batch of units for one run.
//
// All methods must be called from a single goroutine.
type Scheduler struct {
	opts       Options
	cfg        *config.File
	executable string
	units      []*unit.Unit
	maxProcs   int

	reporter *report.Reporter
	logger   *slog.Logger
	metrics  *metrics.Recorder

	active   []*unit.Unit
	load     int
	peakLoad int
	ticks    int

	runID   string
	seq     int64
	started time.Time
}

// New creates a scheduler for units.
func New(units []*unit.Unit, opts Options) (*Scheduler, error) {
	if opts.NumJobs < 1 {
		return nil, &config.ConfigurationError{Setting: "num_jobs", Value: opts.NumJobs, Reason: "must be at least 1"}
	}
	if opts.Weights > config.MaskAll {
		return nil, &config.ConfigurationError{Setting: "weights", Value: int(opts.Weights), Reason: "must be between 0 and 7"}
	}
	if opts.Config == nil {
		opts.Config = config.Defaults()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Launcher == nil {
		opts.Launcher = unit.ExecLauncher{}
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.IDs == nil {
		opts.IDs = UUIDv7Generator{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	s := &Scheduler{
		opts:       opts,
		cfg:        opts.Config,
		executable: opts.Executable,
		units:      units,
		maxProcs:   1,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	if s.cfg.DefaultExecutable != "" {
		s.executable = s.cfg.DefaultExecutable
	}
	for _, u := range units {
		s.maxProcs = max(s.maxProcs, u.NumProcs())
	}
	s.reporter = report.New(opts.Out, report.NewLayout(s.cfg.PrintWidth, s.maxProcs))
	s.metrics.Capacity.Set(float64(opts.NumJobs))
	s.warnUnknownDependencies()
	return s, nil
}

// Build loads the configuration file and the units under opts.Directory,
// then creates the scheduler. configFile is resolved against the
// directory when relative; a missing file means defaults.
//
// Load problems are logged and returned alongside the scheduler; they do
// not prevent the run.
func Build(ctx context.Context, reg *factory.Registry, configFile string, opts Options) (*Scheduler, *loader.Result, error) {
	if opts.Config == nil {
		cfg, err := config.LoadForDirectory(opts.Directory, configFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		opts.Config = cfg
	}
	if opts.ProjectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, nil, err
		}
		opts.ProjectRoot = wd
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ldOpts := []loader.Option{
		loader.WithLogger(logger),
		loader.WithWeights(opts.Weights),
		loader.WithProjectRoot(opts.ProjectRoot),
	}
	if opts.Config.UnitType != "" {
		ldOpts = append(ldOpts, loader.WithUnitType(opts.Config.UnitType))
	}
	res, err := loader.New(reg, ldOpts...).Load(ctx, opts.Directory)
	if err != nil {
		return nil, nil, err
	}

	s, err := New(res.Units, opts)
	if err != nil {
		return nil, nil, err
	}
	return s, res, nil
}

// warnUnknownDependencies logs dependency names no unit carries. They
// never block a unit.
func (s *Scheduler) warnUnknownDependencies() {
	known := make(map[string]bool, len(s.units))
	for _, u := range s.units {
		known[u.BaseName()] = true
	}
	for _, u := range s.units {
		for _, dep := range u.Dependencies() {
			if !known[dep] {
				s.logger.Warn("dependency matches no unit", "unit", u.Name(), "dependency", dep)
			}
		}
	}
}

// Units returns the scheduled units in load order.
func (s *Scheduler) Units() []*unit.Unit {
	out := make([]*unit.Unit, len(s.units))
	copy(out, s.units)
	return out
}

// Load is the process slots held by running units after the last tick.
func (s *Scheduler) Load() int { return s.load }

// PeakLoad is the highest committed load seen so far.
func (s *Scheduler) PeakLoad() int { return s.peakLoad }

// RunID is the ID of the current run, set by Run.
func (s *Scheduler) RunID() string { return s.runID }

// unit.System

func (s *Scheduler) Executable() string         { return s.executable }
func (s *Scheduler) NumJobs() int               { return s.opts.NumJobs }
func (s *Scheduler) MaxNumProcs() int           { return s.maxProcs }
func (s *Scheduler) DefaultArgs() string        { return s.cfg.DefaultArgs }
func (s *Scheduler) Env() []string              { return s.cfg.Env }
func (s *Scheduler) MPILauncher() string        { return s.cfg.MPILauncher }
func (s *Scheduler) Launcher() unit.Launcher    { return s.opts.Launcher }
func (s *Scheduler) Now() time.Time             { return s.opts.Clock.Now() }
func (s *Scheduler) Weights() config.WeightMask { return s.opts.Weights }
