package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/roach88/tfc/internal/unit"
)

// Failure is one failed unit and why it failed.
type Failure struct {
	Name    string
	Reasons []string
}

// DebugLog is the output log of a failed unit that asked for it.
type DebugLog struct {
	Name     string
	Path     string
	Contents string
}

// Summary is the aggregate outcome of a run.
type Summary struct {
	RunID     string
	Weights   string
	Elapsed   time.Duration
	Run       int
	Skipped   int
	Failed    int
	Failures  []Failure
	DebugLogs []DebugLog
}

// ExitCode is 0 when no unit failed and 1 otherwise.
func (s *Summary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}

// Summarize counts the units that took part in the run. Excluded units
// are not counted.
func Summarize(units []*unit.Unit, elapsed time.Duration) *Summary {
	s := &Summary{Elapsed: elapsed}
	for _, u := range units {
		if !u.Executed() {
			continue
		}
		s.Run++
		if u.Skipped() {
			s.Skipped++
		}
		if u.Passed() {
			continue
		}
		s.Failed++
		s.Failures = append(s.Failures, Failure{Name: u.Name(), Reasons: u.FailureReasons()})
		if u.Debug() && u.OutputFile() != "" {
			s.DebugLogs = append(s.DebugLogs, readDebugLog(u))
		}
	}
	return s
}

func readDebugLog(u *unit.Unit) DebugLog {
	log := DebugLog{Name: u.Name(), Path: u.OutputFile()}
	data, err := os.ReadFile(log.Path)
	if err != nil {
		log.Contents = fmt.Sprintf("(unreadable: %v)", err)
		return log
	}
	log.Contents = string(data)
	return log
}

// WriteSummary prints the counts, the failure reasons and any debug logs.
func (r *Reporter) WriteSummary(s *Summary) {
	fmt.Fprintf(r.out, "\nDone executing tests with class in: %s\n\n", s.Weights)
	fmt.Fprintf(r.out, "Elapsed time            : %.2f seconds\n", s.Elapsed.Seconds())
	fmt.Fprintf(r.out, "Number of tests run     : %d\n", s.Run)
	fmt.Fprintf(r.out, "Number of tests skipped : %d\n", s.Skipped)
	failed := fmt.Sprintf("Number of failed tests  : %d", s.Failed)
	if s.Failed > 0 {
		failed = r.styles.Fail.Render(failed)
	}
	fmt.Fprintln(r.out, failed)

	if len(s.Failures) > 0 {
		lines := []string{"Failure reasons:"}
		for _, f := range s.Failures {
			lines = append(lines, f.Name+":")
			for _, reason := range f.Reasons {
				for _, line := range strings.Split(strings.TrimRight(reason, "\n"), "\n") {
					lines = append(lines, "  "+line)
				}
			}
		}
		fmt.Fprintln(r.out)
		// Styled per line: a multi-line render pads every line to the widest.
		for _, line := range lines {
			fmt.Fprintln(r.out, r.styles.Fail.Render(line))
		}
	}

	for _, log := range s.DebugLogs {
		fmt.Fprintf(r.out, "\nOutput of failed test: %s\n%s\n%s", log.Name, log.Path, log.Contents)
		if !strings.HasSuffix(log.Contents, "\n") {
			fmt.Fprintln(r.out)
		}
	}
}
