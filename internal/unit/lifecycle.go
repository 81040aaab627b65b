package unit

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/roach88/tfc/internal/check"
)

// OutputDirName is the per-directory folder holding unit logs.
const OutputDirName = "out"

// OutputSuffix is appended to the log file prefix.
const OutputSuffix = ".out"

// BuildCommand returns the shell command line for the unit:
// [<launcher> -np <n> ]<executable> <default args> <args>.
func (u *Unit) BuildCommand(sys System) string {
	var parts []string
	if !u.disableMPI {
		parts = append(parts, sys.MPILauncher(), "-np", strconv.Itoa(u.numProcs))
	}
	exe := u.executable
	if exe == "" {
		exe = sys.Executable()
	}
	parts = append(parts, exe, sys.DefaultArgs(), u.args)

	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// LogPath is where the combined log is written: out/<prefix>.out under the
// unit directory, prefix defaulting to the unit's base name.
func (u *Unit) LogPath() string {
	prefix := u.outFilePrefix
	if prefix == "" {
		prefix = u.BaseName()
	}
	return filepath.Join(u.dir, OutputDirName, prefix+OutputSuffix)
}

// Submit records the command and start time and spawns the process. A
// skipped unit spawns nothing. A spawn failure is kept and reported as a
// unit failure on the next CheckProgress.
func (u *Unit) Submit(sys System) {
	u.state = Submitted
	u.command = u.BuildCommand(sys)
	u.start = sys.Now()
	if u.skip != "" {
		return
	}

	proc, err := sys.Launcher().Start(Command{Line: u.command, Dir: u.dir, Env: sys.Env()})
	if err != nil {
		u.spawnErr = err
		return
	}
	u.proc = proc
	u.state = Running
}

// CheckProgress advances a submitted unit. It returns Running while the
// process is alive. Once the process exits it writes the log, runs every
// check, emits the unit and returns Done.
//
// Only a polling failure is returned as an error (a ProcessError); log and
// check failures are recorded on the unit.
func (u *Unit) CheckProgress(sys System) (State, error) {
	switch {
	case u.state == Done:
		return Done, nil
	case u.state == Pending:
		return Pending, nil
	case u.skip != "":
		u.end = sys.Now()
		u.passed = true
		u.notes.Add(u.skip)
		return u.finish(sys), nil
	case u.spawnErr != nil:
		u.end = sys.Now()
		u.passed = false
		u.errs = append(u.errs, u.spawnErr)
		u.notes.Add("SPAWN FAILED")
		return u.finish(sys), nil
	}

	exited, err := u.proc.Poll()
	if err != nil {
		return u.state, &ProcessError{Unit: u.name, Err: err}
	}
	if !exited {
		return Running, nil
	}

	u.end = sys.Now()
	u.exitCode = u.proc.ExitCode()
	if err := u.writeLog(); err != nil {
		u.passed = false
		u.errs = append(u.errs, err)
		u.notes.Add("NO LOG")
		return u.finish(sys), nil
	}

	u.passed = true
	ctx := &check.Context{
		Unit:       u,
		Scheduler:  sys,
		ExitCode:   u.exitCode,
		OutputFile: u.outputFile,
		OutputDir:  filepath.Dir(u.outputFile),
	}
	for _, c := range u.checks {
		if !u.runCheck(c, ctx) {
			u.passed = false
		}
	}
	return u.finish(sys), nil
}

func (u *Unit) finish(sys System) State {
	u.state = Done
	sys.Emit(u)
	return Done
}

// runCheck executes one check, turning a panic into a failure of this unit.
func (u *Unit) runCheck(c check.Check, ctx *check.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			u.errs = append(u.errs, fmt.Errorf("check %s[%s] panicked: %v", c.TypeName(), c.Name(), r))
			ok = false
		}
	}()
	return c.Execute(ctx, &u.notes)
}

func (u *Unit) writeLog() error {
	path := u.LogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(u.command)
	buf.WriteByte('\n')
	buf.Write(u.proc.Stdout())
	buf.WriteByte('\n')
	buf.Write(u.proc.Stderr())
	buf.WriteByte('\n')
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	u.outputFile = path
	return nil
}
