package testutil

import (
	"errors"
	"sync"

	"github.com/roach88/tfc/internal/unit"
)

// Script describes how a fake process behaves.
type Script struct {
	// Polls is the number of Poll calls that report "still running"
	// before the process exits.
	Polls    int
	ExitCode int
	Stdout   string
	Stderr   string

	// StartErr makes Start fail.
	StartErr error

	// PollErr is returned by the first Poll.
	PollErr error
}

// FakeLauncher starts scripted processes instead of real ones.
//
// Thread-safety: all methods are safe for concurrent use.
type FakeLauncher struct {
	// ScriptFor picks the script for a command. Nil means every process
	// exits 0 on its second poll.
	ScriptFor func(cmd unit.Command) Script

	mu      sync.Mutex
	started []unit.Command
	live    int
	maxLive int
}

// Start records cmd and returns a scripted process.
func (l *FakeLauncher) Start(cmd unit.Command) (unit.Process, error) {
	s := Script{Polls: 1}
	if l.ScriptFor != nil {
		s = l.ScriptFor(cmd)
	}
	if s.StartErr != nil {
		return nil, s.StartErr
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = append(l.started, cmd)
	l.live++
	if l.live > l.maxLive {
		l.maxLive = l.live
	}
	return &fakeProcess{launcher: l, script: s}, nil
}

// Started returns the commands started so far, in order.
func (l *FakeLauncher) Started() []unit.Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]unit.Command, len(l.started))
	copy(out, l.started)
	return out
}

// MaxLive is the largest number of processes alive at once.
func (l *FakeLauncher) MaxLive() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.maxLive
}

func (l *FakeLauncher) exited() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.live--
}

type fakeProcess struct {
	launcher *FakeLauncher
	script   Script
	polls    int
	done     bool
}

func (p *fakeProcess) Poll() (bool, error) {
	if p.done {
		return true, nil
	}
	if p.script.PollErr != nil {
		return false, p.script.PollErr
	}
	if p.polls < p.script.Polls {
		p.polls++
		return false, nil
	}
	p.done = true
	p.launcher.exited()
	return true, nil
}

func (p *fakeProcess) ExitCode() int  { return p.script.ExitCode }
func (p *fakeProcess) Stdout() []byte { return []byte(p.script.Stdout) }
func (p *fakeProcess) Stderr() []byte { return []byte(p.script.Stderr) }

// ErrSpawn is a ready-made StartErr.
var ErrSpawn = errors.New("spawn failed")
