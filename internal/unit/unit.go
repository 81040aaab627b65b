package unit

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/tfc/internal/check"
	"github.com/roach88/tfc/internal/config"
	"github.com/roach88/tfc/internal/factory"
	"github.com/roach88/tfc/internal/param"
)

// TypeName is the registered type of test units.
const TypeName = "TFCTestObject"

// System is the scheduler as seen by a unit.
type System interface {
	check.SchedulerView

	// MaxNumProcs is the widest num_procs among the loaded units.
	MaxNumProcs() int
	DefaultArgs() string
	Env() []string
	MPILauncher() string
	Launcher() Launcher
	Now() time.Time

	// Emit reports a unit that just reached Done.
	Emit(u *Unit)
}

// Unit is one schedulable test.
type Unit struct {
	name          string
	dir           string
	executable    string
	args          string
	numProcs      int
	weightClass   config.WeightClass
	dependencies  []string
	skip          string
	outFilePrefix string
	disableMPI    bool
	debug         bool
	checks        []check.Check
	definition    *param.Parameter

	state      State
	passed     bool
	excluded   bool
	rejected   string
	command    string
	start, end time.Time
	exitCode   int
	proc       Process
	spawnErr   error
	outputFile string
	notes      check.Annotations
	errs       []error
}

// Parameters is the unit schema.
func Parameters() *param.InputParameters {
	s := factory.BaseParameters()
	s.DeclareRequired("args", param.KindString, "arguments passed to the executable")
	s.DeclareRequired("checks", param.KindArray, "check definitions evaluated after the process exits")
	s.DeclareOptional("disable_mpi", true, "run the executable directly instead of through the MPI launcher")
	s.DeclareOptional("num_procs", 1, "process slots the unit occupies while running")
	s.DeclareOptional("weight_class", string(config.Short), "weight class: short, intermediate or long")
	s.DeclareOptional("outfileprefix", "", "log file name prefix; defaults to the unit name")
	s.DeclareOptional("skip", "", "when non-empty the unit is not run and this reason is reported")
	s.DeclareOptional("dependencies", []string{}, "unit names that must finish before this one starts")
	s.DeclareOptional("executable", "", "executable for this unit; defaults to the scheduler's")
	s.DeclareOptional("debug", false, "print the unit log after the summary when the unit fails")
	return s
}

type module struct{}

// Module returns the factory module registering TypeName.
func Module() factory.Module {
	return module{}
}

func (module) Register(r *factory.Registry) error {
	return r.Register(factory.Descriptor{
		TypeName:    TypeName,
		Description: "a command run under the scheduler and judged by its checks",
		Construct:   construct,
		Schema:      Parameters,
	})
}

func construct(r *factory.Registry, name string, p *param.Parameter) (any, error) {
	name = norm.NFC.String(name)
	u := &Unit{
		name:       name,
		dir:        filepath.Dir(name),
		definition: p,
	}

	var err error
	if u.args, err = p.GetString("args"); err != nil {
		return nil, err
	}
	if u.disableMPI, err = p.GetBool("disable_mpi"); err != nil {
		return nil, err
	}
	if u.numProcs, err = p.GetInt("num_procs"); err != nil {
		return nil, err
	}
	if u.numProcs < 1 {
		return nil, &param.ValidationError{Owner: name, Type: TypeName, Field: "num_procs", Reason: "must be at least 1"}
	}
	wc, err := p.GetString("weight_class")
	if err != nil {
		return nil, err
	}
	if u.weightClass, err = config.ParseWeightClass(wc); err != nil {
		return nil, err
	}
	if u.outFilePrefix, err = p.GetString("outfileprefix"); err != nil {
		return nil, err
	}
	if u.skip, err = p.GetString("skip"); err != nil {
		return nil, err
	}
	if u.executable, err = p.GetString("executable"); err != nil {
		return nil, err
	}
	if u.debug, err = p.GetBool("debug"); err != nil {
		return nil, err
	}
	deps, err := p.GetStrings("dependencies")
	if err != nil {
		return nil, err
	}
	for _, d := range deps {
		if d != "" {
			u.dependencies = append(u.dependencies, norm.NFC.String(d))
		}
	}

	checks, err := p.Field("checks")
	if err != nil {
		return nil, err
	}
	for i, def := range checks.Items() {
		c, err := factory.Make[check.Check](r, strconv.Itoa(i), def)
		if err != nil {
			return nil, fmt.Errorf("check %d: %w", i, err)
		}
		u.checks = append(u.checks, c)
	}
	return u, nil
}

// Name is the unit's path-like identifier: definition directory joined
// with its key.
func (u *Unit) Name() string { return u.name }

// BaseName is the last path segment of Name, the form dependencies use.
func (u *Unit) BaseName() string { return filepath.Base(u.name) }

// Dir is the working directory of the unit's process.
func (u *Unit) Dir() string { return u.dir }

func (u *Unit) NumProcs() int                   { return u.numProcs }
func (u *Unit) WeightClass() config.WeightClass { return u.weightClass }
func (u *Unit) SkipReason() string              { return u.skip }
func (u *Unit) Debug() bool                     { return u.debug }
func (u *Unit) Checks() []check.Check           { return u.checks }
func (u *Unit) State() State                    { return u.state }
func (u *Unit) Passed() bool                    { return u.passed }
func (u *Unit) Excluded() bool                  { return u.excluded }
func (u *Unit) Command() string                 { return u.command }
func (u *Unit) ExitCode() int                   { return u.exitCode }
func (u *Unit) OutputFile() string              { return u.outputFile }
func (u *Unit) Annotations() []string           { return u.notes.Items() }
func (u *Unit) RejectReason() string            { return u.rejected }

// Dependencies returns the names this unit waits for.
func (u *Unit) Dependencies() []string {
	out := make([]string, len(u.dependencies))
	copy(out, u.dependencies)
	return out
}

// Definition is the validated parameter tree the unit was built from.
func (u *Unit) Definition() *param.Parameter { return u.definition }

// Elapsed is the time between submission and completion.
func (u *Unit) Elapsed() time.Duration {
	if u.end.IsZero() {
		return 0
	}
	return u.end.Sub(u.start)
}

// Executed reports whether the unit took part in the run: it finished
// after submission or was rejected, as opposed to being excluded.
func (u *Unit) Executed() bool {
	return u.state == Done && !u.excluded
}

// Skipped reports whether the unit finished without running because of a
// skip reason. A rejected unit is never skipped.
func (u *Unit) Skipped() bool {
	return u.Executed() && u.skip != "" && u.rejected == ""
}

// FailureReasons lists why the unit failed: each failed check and any
// error isolated to the unit.
func (u *Unit) FailureReasons() []string {
	if u.passed || u.state != Done {
		return nil
	}
	var out []string
	if u.rejected != "" {
		out = append(out, u.rejected)
	}
	for _, err := range u.errs {
		out = append(out, err.Error())
	}
	for _, c := range u.checks {
		if c.Failed() {
			out = append(out, fmt.Sprintf("%s[%s]: %s", c.TypeName(), c.Name(), c.FailReason()))
		}
	}
	return out
}

// DependenciesMet reports whether every unit this one depends on is Done.
// Dependencies match on the last path segment of a unit's name; names that
// match nothing are treated as met.
func (u *Unit) DependenciesMet(units []*Unit) bool {
	for _, dep := range u.dependencies {
		for _, other := range units {
			if other.BaseName() == dep && other.state != Done {
				return false
			}
		}
	}
	return true
}

// Exclude takes the unit out of the run because its weight class is not
// selected. It counts as Done for dependency purposes.
func (u *Unit) Exclude() {
	u.excluded = true
	u.passed = true
	u.state = Done
}

// Reject finishes a pending unit as failed without running it.
func (u *Unit) Reject(sys System, reason string) {
	now := sys.Now()
	u.start, u.end = now, now
	u.rejected = reason
	u.passed = false
	u.state = Done
	u.notes.Add("REJECTED")
	sys.Emit(u)
}
