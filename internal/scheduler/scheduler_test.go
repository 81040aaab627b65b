package scheduler_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tfc/internal/check"
	"github.com/roach88/tfc/internal/config"
	"github.com/roach88/tfc/internal/factory"
	"github.com/roach88/tfc/internal/scheduler"
	"github.com/roach88/tfc/internal/store"
	"github.com/roach88/tfc/internal/testutil"
	"github.com/roach88/tfc/internal/unit"
)

type fixture struct {
	t        *testing.T
	dir      string
	registry *factory.Registry
	launcher *testutil.FakeLauncher
	out      bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := factory.New()
	require.NoError(t, r.Install(check.Module(), unit.Module()))
	return &fixture{t: t, dir: t.TempDir(), registry: r, launcher: &testutil.FakeLauncher{}}
}

// unit builds a unit named key in the fixture directory. Its args is the
// key, so launcher scripts can tell units apart by command line.
func (f *fixture) unit(key string, fields map[string]any) *unit.Unit {
	f.t.Helper()
	raw := map[string]any{
		"type":   unit.TypeName,
		"args":   key,
		"checks": []any{map[string]any{"type": "ErrorCode"}},
	}
	for k, v := range fields {
		raw[k] = v
	}
	u, err := factory.Make[*unit.Unit](f.registry, filepath.Join(f.dir, key), raw)
	require.NoError(f.t, err)
	return u
}

func (f *fixture) options(numJobs int) scheduler.Options {
	return scheduler.Options{
		Directory:    f.dir,
		Executable:   "python3",
		NumJobs:      numJobs,
		Weights:      config.MaskShort,
		PollInterval: time.Nanosecond,
		Out:          &f.out,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Launcher:     f.launcher,
		Clock:        testutil.NewStepClock(100 * time.Millisecond),
		IDs:          testutil.FixedRunID("run-1"),
	}
}

func (f *fixture) scheduler(numJobs int, units ...*unit.Unit) *scheduler.Scheduler {
	f.t.Helper()
	s, err := scheduler.New(units, f.options(numJobs))
	require.NoError(f.t, err)
	return s
}

// tickUntilDone runs ticks, checking the load bound after each one.
func tickUntilDone(t *testing.T, s *scheduler.Scheduler) int {
	t.Helper()
	for i := 1; i <= 1000; i++ {
		done, err := s.Tick()
		require.NoError(t, err)
		require.LessOrEqual(t, s.Load(), s.NumJobs())
		if done {
			return i
		}
	}
	t.Fatal("scheduler did not finish")
	return 0
}

func startedArgs(l *testutil.FakeLauncher) []string {
	var out []string
	for _, c := range l.Started() {
		fields := strings.Fields(c.Line)
		out = append(out, fields[len(fields)-1])
	}
	return out
}

func TestNew_RejectsBadCapacity(t *testing.T) {
	f := newFixture(t)
	opts := f.options(0)

	_, err := scheduler.New(nil, opts)
	assert.True(t, config.IsConfigurationError(err))
}

func TestNew_ConfigOverrides(t *testing.T) {
	f := newFixture(t)
	opts := f.options(2)
	opts.Config = &config.File{DefaultExecutable: "./solver", PrintWidth: 80, DefaultArgs: "-v", MPILauncher: "mpirun"}

	s, err := scheduler.New([]*unit.Unit{f.unit("a", map[string]any{"num_procs": 2})}, opts)
	require.NoError(t, err)
	assert.Equal(t, "./solver", s.Executable())
	assert.Equal(t, "-v", s.DefaultArgs())
	assert.Equal(t, "mpirun", s.MPILauncher())
	assert.Equal(t, 2, s.MaxNumProcs())
}

func TestTick_IndependentUnitsRespectCapacity(t *testing.T) {
	f := newFixture(t)
	f.launcher.ScriptFor = func(unit.Command) testutil.Script { return testutil.Script{Polls: 2} }

	var units []*unit.Unit
	for i := 0; i < 7; i++ {
		units = append(units, f.unit(fmt.Sprintf("u%d", i), nil))
	}
	s := f.scheduler(3, units...)

	tickUntilDone(t, s)

	assert.Equal(t, 3, s.PeakLoad())
	assert.Equal(t, 3, f.launcher.MaxLive())
	for _, u := range units {
		assert.Equal(t, unit.Done, u.State(), u.Name())
		assert.True(t, u.Passed(), u.Name())
	}
}

func TestTick_DependencyAndCapacityScenario(t *testing.T) {
	f := newFixture(t)
	a := f.unit("A", nil)
	b := f.unit("B", map[string]any{"dependencies": []any{"A"}})
	c := f.unit("C", map[string]any{"num_procs": 2})

	f.launcher.ScriptFor = func(cmd unit.Command) testutil.Script {
		if strings.HasSuffix(cmd.Line, " B") {
			assert.Equal(t, unit.Done, a.State(), "B started before A finished")
		}
		return testutil.Script{Polls: 1}
	}
	s := f.scheduler(2, a, b, c)

	tickUntilDone(t, s)

	assert.LessOrEqual(t, s.PeakLoad(), 2)
	assert.Equal(t, []string{"A", "B", "C"}, startedArgs(f.launcher))
	for _, u := range []*unit.Unit{a, b, c} {
		assert.True(t, u.Passed(), u.Name())
	}
}

func TestTick_SkippedDependencyStillReleases(t *testing.T) {
	f := newFixture(t)
	d := f.unit("D", map[string]any{"skip": "broken upstream"})
	e := f.unit("E", map[string]any{"dependencies": []any{"D"}})
	s := f.scheduler(1, e, d)

	tickUntilDone(t, s)

	assert.True(t, d.Skipped())
	assert.True(t, e.Passed())
	assert.Equal(t, []string{"E"}, startedArgs(f.launcher))
}

func TestTick_WeightExclusion(t *testing.T) {
	f := newFixture(t)
	long := f.unit("L", map[string]any{"weight_class": "long"})
	short := f.unit("S", map[string]any{"dependencies": []any{"L"}})
	s := f.scheduler(2, short, long)

	tickUntilDone(t, s)

	assert.True(t, long.Excluded())
	assert.False(t, long.Executed())
	assert.True(t, short.Passed())
	assert.Equal(t, []string{"S"}, startedArgs(f.launcher))
}

func TestTick_OverCapacityRejected(t *testing.T) {
	f := newFixture(t)
	wide := f.unit("W", map[string]any{"num_procs": 4})
	s := f.scheduler(2, wide)

	tickUntilDone(t, s)

	assert.False(t, wide.Passed())
	assert.Equal(t, "num_procs 4 exceeds capacity 2", wide.RejectReason())
	assert.Empty(t, f.launcher.Started())
}

func TestTick_CyclicDependenciesRejected(t *testing.T) {
	f := newFixture(t)
	x := f.unit("X", map[string]any{"dependencies": []any{"Y"}})
	y := f.unit("Y", map[string]any{"dependencies": []any{"X"}})
	ok := f.unit("Z", nil)
	s := f.scheduler(2, x, y, ok)

	tickUntilDone(t, s)

	assert.True(t, ok.Passed())
	assert.Equal(t, scheduler.Unsatisfiable, x.RejectReason())
	assert.Equal(t, scheduler.Unsatisfiable, y.RejectReason())
}

func TestTick_PollErrorIsFatal(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("wait failed")
	f.launcher.ScriptFor = func(cmd unit.Command) testutil.Script {
		if strings.HasSuffix(cmd.Line, " bad") {
			return testutil.Script{PollErr: boom}
		}
		return testutil.Script{}
	}
	s := f.scheduler(2, f.unit("good", nil), f.unit("bad", nil))

	_, err := s.Tick()
	require.Error(t, err)
	assert.True(t, unit.IsProcessError(err))
	assert.ErrorIs(t, err, boom)

	_, err = s.Run(context.Background())
	assert.True(t, unit.IsProcessError(err))
}

func TestRun_SummaryAndExitCode(t *testing.T) {
	f := newFixture(t)
	f.launcher.ScriptFor = func(cmd unit.Command) testutil.Script {
		if strings.HasSuffix(cmd.Line, " fails") {
			return testutil.Script{ExitCode: 1}
		}
		return testutil.Script{}
	}
	s := f.scheduler(2,
		f.unit("passes", nil),
		f.unit("fails", nil),
		f.unit("skips", map[string]any{"skip": "later"}),
	)

	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, 3, summary.Run)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.ExitCode())
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, filepath.Join(f.dir, "fails"), summary.Failures[0].Name)

	out := f.out.String()
	assert.Contains(t, out, "Number of failed tests  : 1")
	assert.Contains(t, out, "[skipped:later]Passed")
	assert.Contains(t, out, "[EXIT 1]Failed")
}

func TestRun_AllPassedExitsZero(t *testing.T) {
	f := newFixture(t)
	s := f.scheduler(1, f.unit("only", nil))

	summary, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ExitCode())
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.launcher.ScriptFor = func(unit.Command) testutil.Script { return testutil.Script{Polls: 1 << 30} }
	opts := f.options(1)
	opts.PollInterval = time.Hour
	s, err := scheduler.New([]*unit.Unit{f.unit("forever", nil)}, opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_RecordsHistoryAndMetrics(t *testing.T) {
	f := newFixture(t)
	db, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	opts := f.options(2)
	opts.Store = db
	opts.MetricsFile = filepath.Join(t.TempDir(), "tfc.prom")
	s, err := scheduler.New([]*unit.Unit{f.unit("a", nil), f.unit("b", nil)}, opts)
	require.NoError(t, err)

	_, err = s.Run(context.Background())
	require.NoError(t, err)

	ctx := context.Background()
	run, err := db.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, run.Finished)
	assert.Equal(t, 2, run.NumRun)
	assert.Equal(t, "short", run.Weights)

	results, err := db.ReadUnitResults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].Seq)
	assert.NotEmpty(t, results[0].DefinitionHash)
	assert.FileExists(t, opts.MetricsFile)
}

func TestBuild_LoadsDirectory(t *testing.T) {
	f := newFixture(t)
	testutil.WriteFile(t, f.dir, "suite/x_tests.yaml", `
first:
  args: one
  checks:
    - type: ErrorCode
second:
  args: two
  num_procs: 2
  dependencies: [first]
  checks: []
`)
	testutil.WriteFile(t, f.dir, config.DefaultFileName, "print_width: 60\ndefault_args: --fast\n")

	opts := f.options(2)
	s, res, err := scheduler.Build(context.Background(), f.registry, "", opts)
	require.NoError(t, err)
	require.Empty(t, res.Problems)
	require.Len(t, s.Units(), 2)
	assert.Equal(t, "--fast", s.DefaultArgs())
	assert.Equal(t, 2, s.MaxNumProcs())

	summary, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ExitCode())
	assert.Equal(t, []string{"one", "two"}, startedArgs(f.launcher))
}

func TestBuild_ProjectRootAndUnitType(t *testing.T) {
	f := newFixture(t)
	testutil.WriteFile(t, f.dir, "suite/x_tests.yaml", `
__executable: bin/solver
only:
  args: run
  checks: []
`)
	root := t.TempDir()

	opts := f.options(1)
	opts.ProjectRoot = root
	s, res, err := scheduler.Build(context.Background(), f.registry, "", opts)
	require.NoError(t, err)
	require.Empty(t, res.Problems)
	_, err = s.Run(context.Background())
	require.NoError(t, err)

	started := f.launcher.Started()
	require.Len(t, started, 1)
	assert.Equal(t, filepath.Join(root, "bin", "solver")+" run", started[0].Line)

	testutil.WriteFile(t, f.dir, config.DefaultFileName, "unit_type: LegacyUnit\n")
	_, res, err = scheduler.Build(context.Background(), f.registry, "", f.options(1))
	require.NoError(t, err)
	assert.Empty(t, res.Units)
	require.Len(t, res.Problems, 1)
	assert.True(t, factory.IsUnknownTypeError(res.Problems[0]))
}
