// Package check defines the pass/fail extension point evaluated when a unit
// finishes, and a few built-in checks.
package check

import (
	"strings"

	"github.com/roach88/tfc/internal/factory"
	"github.com/roach88/tfc/internal/param"
)

// UnitView is the read-only view of a unit a check receives.
type UnitView interface {
	Name() string
	Dir() string
	NumProcs() int
}

// SchedulerView is the read-only view of the running scheduler.
type SchedulerView interface {
	Executable() string
	NumJobs() int
}

// Context is what a check sees after its unit's process exits.
type Context struct {
	Unit       UnitView
	Scheduler  SchedulerView
	ExitCode   int
	OutputFile string // combined log written for the unit
	OutputDir  string // directory holding OutputFile
}

// Annotations collects short notes rendered on the unit's status line.
type Annotations struct {
	items []string
}

// Add appends a note.
func (a *Annotations) Add(note string) {
	a.items = append(a.items, note)
}

// Items returns the notes in the order they were added.
func (a *Annotations) Items() []string {
	out := make([]string, len(a.items))
	copy(out, a.items)
	return out
}

// String joins the notes with single spaces.
func (a *Annotations) String() string {
	return strings.Join(a.items, " ")
}

// Check is a pass/fail evaluator owned by one unit.
//
// Execute returns false on failure and records the reason so Failed and
// FailReason report it afterwards.
type Check interface {
	Execute(ctx *Context, notes *Annotations) bool
	Name() string
	TypeName() string
	Failed() bool
	FailReason() string
}

// Base carries the state every check shares. Embed it and call Fail.
type Base struct {
	name     string
	typeName string
	failed   bool
	reason   string
}

// NewBase returns a Base that has not failed.
func NewBase(name, typeName string) Base {
	return Base{name: name, typeName: typeName, reason: "Unknown"}
}

func (b *Base) Name() string       { return b.name }
func (b *Base) TypeName() string   { return b.typeName }
func (b *Base) Failed() bool       { return b.failed }
func (b *Base) FailReason() string { return b.reason }

// Fail marks the check failed and returns false for use as Execute's result.
func (b *Base) Fail(reason string) bool {
	b.failed = true
	b.reason = reason
	return false
}

// Parameters is the schema shared by all checks.
func Parameters() *param.InputParameters {
	return factory.BaseParameters()
}

// module registers the built-in checks.
type module struct{}

// Module returns the factory module for the built-in checks.
func Module() factory.Module {
	return module{}
}

func (module) Register(r *factory.Registry) error {
	descs := []factory.Descriptor{
		{TypeName: TypeErrorCode, Description: "compare the process exit code", Construct: newErrorCode, Schema: errorCodeParameters},
		{TypeName: TypeStrCompare, Description: "find a key in the output and compare a word", Construct: newStrCompare, Schema: strCompareParameters},
		{TypeName: TypeFloatCompare, Description: "compare a number in the output within tolerance", Construct: newFloatCompare, Schema: floatCompareParameters},
		{TypeName: TypeGoldFile, Description: "compare a produced file with a gold copy", Construct: newGoldFile, Schema: goldFileParameters},
	}
	for _, d := range descs {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}
