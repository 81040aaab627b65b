package unit_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tfc/internal/unit"
)

func startShell(t *testing.T, c unit.Command) unit.Process {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("ExecLauncher needs /bin/sh")
	}
	p, err := unit.ExecLauncher{}.Start(c)
	require.NoError(t, err)
	return p
}

// waitExit polls p until it exits or the deadline passes.
func waitExit(t *testing.T, p unit.Process) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		exited, err := p.Poll()
		require.NoError(t, err)
		if exited {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("process did not exit")
}

func TestExecLauncher_PollDoesNotBlock(t *testing.T) {
	p := startShell(t, unit.Command{Line: "sleep 0.2"})

	exited, err := p.Poll()
	require.NoError(t, err)
	assert.False(t, exited)

	waitExit(t, p)
	assert.Equal(t, 0, p.ExitCode())
}

func TestExecLauncher_CapturesOutput(t *testing.T) {
	p := startShell(t, unit.Command{Line: "echo to-stdout; echo to-stderr >&2"})
	waitExit(t, p)

	assert.Equal(t, "to-stdout\n", string(p.Stdout()))
	assert.Equal(t, "to-stderr\n", string(p.Stderr()))
}

func TestExecLauncher_ExitCode(t *testing.T) {
	p := startShell(t, unit.Command{Line: "echo partial; exit 3"})
	waitExit(t, p)

	assert.Equal(t, 3, p.ExitCode())
	assert.Equal(t, "partial\n", string(p.Stdout()))
}

func TestExecLauncher_DirAndEnv(t *testing.T) {
	dir := t.TempDir()
	p := startShell(t, unit.Command{
		Line: `printf %s "$TFC_MARKER" > marker.txt`,
		Dir:  dir,
		Env:  []string{"TFC_MARKER=from-env"},
	})
	waitExit(t, p)
	require.Equal(t, 0, p.ExitCode(), "stderr: %s", p.Stderr())

	data, err := os.ReadFile(filepath.Join(dir, "marker.txt"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", string(data))
}

func TestExecLauncher_StartFailure(t *testing.T) {
	_, err := unit.ExecLauncher{Shell: filepath.Join(t.TempDir(), "no-shell")}.Start(unit.Command{Line: "true"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `start "true"`)
}

func TestExecLauncher_DrivesUnit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("ExecLauncher needs /bin/sh")
	}
	dir := t.TempDir()
	sys := newSystem()
	u := makeUnit(t, filepath.Join(dir, "real"), map[string]any{
		"executable": "echo",
		"args":       "hello",
		"checks":     []any{map[string]any{"type": "StrCompare", "key": "hello", "wordnum": 0, "gold": "hello"}},
	})

	u.Submit(launchingSystem{sys})
	for i := 0; u.State() != unit.Done; i++ {
		require.Less(t, i, 1000, "unit never finished")
		_, err := u.CheckProgress(launchingSystem{sys})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	assert.True(t, u.Passed(), "reasons: %v", u.FailureReasons())
	log, err := os.ReadFile(filepath.Join(dir, "out", "real.out"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "echo hello\nhello\n")
}

// launchingSystem swaps the fake launcher for a real one.
type launchingSystem struct {
	*fakeSystem
}

func (launchingSystem) Launcher() unit.Launcher { return unit.ExecLauncher{} }
