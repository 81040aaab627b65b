package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/tfc/internal/config"
	"github.com/roach88/tfc/internal/document"
	"github.com/roach88/tfc/internal/factory"
	"github.com/roach88/tfc/internal/param"
	"github.com/roach88/tfc/internal/unit"
)

// Reserved keys in definition files.
const (
	TemplatePrefix = "TEMPLATE_"
	ExecutableKey  = "__executable"

	fromTemplateKey = "from_template"
	copyTestKey     = "copy_test"
	envVarSkipKey   = "env_var_skip"
)

// FileMarker must appear in a definition file's base name after its first
// character.
const FileMarker = "tests"

// Definition is a resolved entry ready for the registry.
type Definition struct {
	// Name is the definition file's directory joined with the entry key.
	Name   string
	Fields *param.Parameter
}

// Result collects the outcome of a load in discovery order.
type Result struct {
	Files    []string
	Units    []*unit.Unit
	Problems []*Problem
}

// Loader turns definition files into units.
type Loader struct {
	registry    *factory.Registry
	weights     config.WeightMask
	projectRoot string
	unitType    string
	copier      CopyRunner
	lookupEnv   func(string) (string, bool)
	logger      *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader logger.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		ld.logger = l
	}
}

// WithWeights sets the weight classes copy directives are expanded for.
func WithWeights(m config.WeightMask) Option {
	return func(ld *Loader) {
		ld.weights = m
	}
}

// WithProjectRoot sets the directory relative __executable values resolve against.
func WithProjectRoot(dir string) Option {
	return func(ld *Loader) {
		ld.projectRoot = dir
	}
}

// WithUnitType sets the type given to entries that do not name one.
func WithUnitType(typeName string) Option {
	return func(ld *Loader) {
		ld.unitType = typeName
	}
}

// WithCopyRunner replaces the runner for copy_test scripts.
func WithCopyRunner(c CopyRunner) Option {
	return func(ld *Loader) {
		ld.copier = c
	}
}

// WithLookupEnv replaces os.LookupEnv for env_var_skip.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(ld *Loader) {
		ld.lookupEnv = fn
	}
}

// New creates a Loader building units through registry.
func New(registry *factory.Registry, opts ...Option) *Loader {
	ld := &Loader{
		registry:  registry,
		weights:   config.MaskShort,
		unitType:  unit.TypeName,
		copier:    ExecCopyRunner{},
		lookupEnv: os.LookupEnv,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// IsDefinitionFile reports whether a file name follows the definition
// naming convention: a supported extension and FileMarker in the base name
// past its first character.
func IsDefinitionFile(name string) bool {
	if _, ok := document.FormatFor(name); !ok {
		return false
	}
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return strings.Index(base, FileMarker) > 0
}

// Discover walks root and returns the definition files under it in walk
// order.
func Discover(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("test directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("test directory %q is not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsDefinitionFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

// Load discovers every definition file under root and builds its units.
// Per-file and per-entry failures are collected in Result.Problems; the
// returned error is only set when root cannot be walked.
func (l *Loader) Load(ctx context.Context, root string) (*Result, error) {
	files, err := Discover(root)
	if err != nil {
		return nil, err
	}
	l.logger.Info("discovered definition files", "root", root, "count", len(files))

	res := &Result{Files: files}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l.loadFile(ctx, path, res)
	}
	return res, nil
}

func (l *Loader) loadFile(ctx context.Context, path string, res *Result) {
	l.logger.Debug("parsing definition file", "path", path)
	doc, err := document.ReadFile(path)
	if err != nil {
		res.add(l.logger, &Problem{File: path, Err: err})
		return
	}
	if doc.Len() == 0 {
		res.add(l.logger, &Problem{File: path, Err: errors.New("no definitions")})
		return
	}

	defs, problems := l.Resolve(ctx, path, doc)
	for _, p := range problems {
		res.add(l.logger, p)
	}
	if len(defs) == 0 {
		return
	}

	batch := param.EmptyObject(path)
	for _, def := range defs {
		if batch.Has(def.Name) {
			res.add(l.logger, &Problem{File: path, Entry: filepath.Base(def.Name), Err: errors.New("duplicate definition")})
			continue
		}
		if err := batch.SetField(def.Name, def.Fields); err != nil {
			res.add(l.logger, &Problem{File: path, Entry: filepath.Base(def.Name), Err: err})
		}
	}

	built, err := l.registry.ReadBatch(batch)
	if err != nil {
		res.add(l.logger, &Problem{File: path, Err: err})
		return
	}
	for _, e := range built.Errors {
		res.add(l.logger, &Problem{File: path, Entry: filepath.Base(e.Name), Err: e.Err})
	}
	for _, b := range built.Objects {
		u, ok := b.Object.(*unit.Unit)
		if !ok {
			res.add(l.logger, &Problem{File: path, Entry: filepath.Base(b.Name), Err: fmt.Errorf("constructed %T, not a unit", b.Object)})
			continue
		}
		res.Units = append(res.Units, u)
	}
}

// Resolve expands the entries of one decoded definition file. Templates
// and reserved keys are consumed; every other entry becomes a Definition
// whose fields are a fresh tree, so no two definitions share nodes.
func (l *Loader) Resolve(ctx context.Context, path string, doc *param.Parameter) ([]Definition, []*Problem) {
	if doc.Kind() != param.KindObject {
		return nil, []*Problem{{File: path, Err: fmt.Errorf("top level is %s, not a mapping", doc.Kind())}}
	}

	var problems []*Problem
	report := func(entry string, err error) {
		problems = append(problems, &Problem{File: path, Entry: entry, Err: err})
	}

	templates := map[string]*param.Parameter{}
	for _, key := range doc.Keys() {
		if strings.HasPrefix(key, TemplatePrefix) {
			t, _ := doc.Field(key)
			templates[key] = t
		}
	}

	executable := ""
	type entry struct {
		key    string
		fields *param.Parameter
	}
	var expanded []entry
	for _, key := range doc.Keys() {
		if strings.HasPrefix(key, TemplatePrefix) {
			continue
		}
		raw, _ := doc.Field(key)
		if key == ExecutableKey {
			exe, err := raw.AsString()
			if err != nil {
				report(key, err)
				continue
			}
			executable = l.resolveExecutable(exe)
			continue
		}
		if raw.Kind() != param.KindObject {
			report(key, fmt.Errorf("definition is %s, not a mapping", raw.Kind()))
			continue
		}
		fields, err := applyTemplate(raw, templates)
		if err != nil {
			report(key, err)
			continue
		}
		expanded = append(expanded, entry{key: key, fields: fields})
	}

	var withCopies []entry
	for _, e := range expanded {
		withCopies = append(withCopies, e)
		copyKey, err := l.expandCopy(ctx, e.key, e.fields)
		if err != nil {
			report(e.key, err)
		}
		if copyKey != "" {
			withCopies = append(withCopies, entry{key: copyKey, fields: e.fields.Clone()})
		}
	}

	dir := filepath.Dir(path)
	defs := make([]Definition, 0, len(withCopies))
	for _, e := range withCopies {
		fields, err := l.finalize(e.key, e.fields, executable)
		if err != nil {
			report(e.key, err)
			continue
		}
		defs = append(defs, Definition{Name: filepath.Join(dir, e.key), Fields: fields})
	}
	return defs, problems
}

func (l *Loader) resolveExecutable(exe string) string {
	if exe == "" || filepath.IsAbs(exe) || l.projectRoot == "" {
		return exe
	}
	return filepath.Join(l.projectRoot, exe)
}

// applyTemplate copies the named template's fields and overlays the
// entry's own, entry fields winning.
func applyTemplate(raw *param.Parameter, templates map[string]*param.Parameter) (*param.Parameter, error) {
	out := param.EmptyObject(raw.Name())
	if raw.Has(fromTemplateKey) {
		name, err := raw.GetString(fromTemplateKey)
		if err != nil {
			return nil, err
		}
		tmpl, ok := templates[name]
		if !ok {
			return nil, fmt.Errorf("template %q not found", name)
		}
		if tmpl.Kind() != param.KindObject {
			return nil, fmt.Errorf("template %q is %s, not a mapping", name, tmpl.Kind())
		}
		if err := overlay(out, tmpl); err != nil {
			return nil, err
		}
	}
	if err := overlay(out, raw); err != nil {
		return nil, err
	}
	out.DeleteField(fromTemplateKey)
	return out, nil
}

// overlay sets every field of src on dst as a deep copy.
func overlay(dst, src *param.Parameter) error {
	for _, key := range src.Keys() {
		v, _ := src.Field(key)
		if err := dst.SetField(key, v.Clone()); err != nil {
			return err
		}
	}
	return nil
}

// finalize builds the registry payload: the unit type, an env_var_skip
// reason, the entry's fields and the file-level executable.
func (l *Loader) finalize(key string, fields *param.Parameter, executable string) (*param.Parameter, error) {
	out := param.EmptyObject(key)
	if err := out.SetField(factory.TypeKey, l.unitType); err != nil {
		return nil, err
	}

	if fields.Has(envVarSkipKey) {
		reason, err := l.envSkip(fields)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			if err := out.SetField("skip", reason); err != nil {
				return nil, err
			}
		}
	}

	for _, name := range fields.Keys() {
		if name == envVarSkipKey {
			continue
		}
		v, _ := fields.Field(name)
		if err := out.SetField(name, v.Clone()); err != nil {
			return nil, err
		}
	}

	if executable != "" && !out.Has("executable") {
		if err := out.SetField("executable", executable); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// envSkip returns "NAME==VALUE" when the named variable is set to value.
func (l *Loader) envSkip(fields *param.Parameter) (string, error) {
	pair, err := fields.GetStrings(envVarSkipKey)
	if err != nil {
		return "", err
	}
	if len(pair) != 2 {
		return "", &param.ValidationError{Owner: fields.Name(), Field: envVarSkipKey, Reason: "expected [name, value]"}
	}
	if v, ok := l.lookupEnv(pair[0]); ok && v == pair[1] {
		return pair[0] + "==" + pair[1], nil
	}
	return "", nil
}
