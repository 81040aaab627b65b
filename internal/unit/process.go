package unit

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Command describes a child process to start.
type Command struct {
	Line string   // shell command line
	Dir  string   // working directory
	Env  []string // KEY=VALUE pairs added to the inherited environment
}

// Launcher starts child processes.
type Launcher interface {
	Start(cmd Command) (Process, error)
}

// Process is a started child. Poll never blocks; the output accessors are
// only meaningful once Poll has reported the exit.
type Process interface {
	Poll() (exited bool, err error)
	ExitCode() int
	Stdout() []byte
	Stderr() []byte
}

// ExecLauncher runs commands through "sh -c".
type ExecLauncher struct {
	// Shell defaults to /bin/sh.
	Shell string
}

// Start spawns the command with stdout and stderr captured.
func (l ExecLauncher) Start(c Command) (Process, error) {
	shell := l.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	cmd := exec.Command(shell, "-c", c.Line)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	cmd.Stdout = &p.stdout
	cmd.Stderr = &p.stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %q: %w", c.Line, err)
	}
	go p.wait()
	return p, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout bytes.Buffer
	stderr bytes.Buffer

	// written by wait before done is closed
	exitCode int
	waitErr  error
	done     chan struct{}
}

func (p *execProcess) wait() {
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		p.exitCode = 0
	case errors.As(err, &exitErr):
		p.exitCode = exitErr.ExitCode()
	default:
		p.exitCode = -1
		p.waitErr = err
	}
	close(p.done)
}

func (p *execProcess) Poll() (bool, error) {
	select {
	case <-p.done:
		return true, p.waitErr
	default:
		return false, nil
	}
}

func (p *execProcess) ExitCode() int  { return p.exitCode }
func (p *execProcess) Stdout() []byte { return p.stdout.Bytes() }
func (p *execProcess) Stderr() []byte { return p.stderr.Bytes() }
