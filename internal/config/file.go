package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/roach88/tfc/internal/document"
	"github.com/roach88/tfc/internal/param"
)

// DefaultFileName is looked up in the test directory when no path is given.
const DefaultFileName = "TestSystemCONFIG.yaml"

// DefaultPrintWidth is the status line width when the file does not set one.
const DefaultPrintWidth = 120

// File is the decoded scheduler configuration file.
type File struct {
	// DefaultExecutable replaces the command line executable when set.
	DefaultExecutable string

	// PrintWidth is the visible width of a status line.
	PrintWidth int

	// DefaultArgs is placed before every unit's own args.
	DefaultArgs string

	// Env holds KEY=VALUE pairs added to every child process, sorted by key.
	Env []string

	// MPILauncher wraps units that do not disable MPI.
	MPILauncher string

	// UnitType is the registered type built for each definition entry;
	// empty means the built-in unit type.
	UnitType string

	// Path is where the file was read from; empty when defaults were used.
	Path string
}

// FileParameters is the schema of the configuration file.
func FileParameters() *param.InputParameters {
	s := param.NewInputParameters()
	s.DeclareOptional("default_executable", "", "executable used instead of the command line one")
	s.DeclareOptional("print_width", DefaultPrintWidth, "visible width of status lines")
	s.DeclareOptional("default_args", "", "arguments placed before each unit's args")
	s.DeclareOptional("env_vars", nil, "environment for child processes: a list of KEY=VALUE lines, a mapping, or a dotenv block")
	s.DeclareOptional("mpi_launcher", "mpiexec", "launcher used for units with disable_mpi false")
	s.DeclareOptional("unit_type", "", "registered type built for each definition entry")
	return s
}

// Defaults returns the configuration used when no file exists.
func Defaults() *File {
	return &File{PrintWidth: DefaultPrintWidth, MPILauncher: "mpiexec"}
}

// LoadFile reads the configuration file at path. A missing file yields
// Defaults, not an error.
func LoadFile(path string) (*File, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	doc, err := document.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Decode(path, doc)
	if err != nil {
		return nil, err
	}
	f.Path = path
	return f, nil
}

// LoadForDirectory reads the configuration file of a test directory.
// A relative path is resolved against dir; an empty one means
// DefaultFileName.
func LoadForDirectory(dir, path string) (*File, error) {
	if path == "" {
		path = DefaultFileName
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	return LoadFile(path)
}

// Decode validates and converts a configuration document.
func Decode(name string, doc *param.Parameter) (*File, error) {
	p, err := FileParameters().Validate(name, doc)
	if err != nil {
		return nil, err
	}

	f := &File{}
	if f.DefaultExecutable, err = p.GetString("default_executable"); err != nil {
		return nil, err
	}
	if f.PrintWidth, err = p.GetInt("print_width"); err != nil {
		return nil, err
	}
	if f.PrintWidth <= 0 {
		return nil, &ConfigurationError{Setting: "print_width", Value: f.PrintWidth, Reason: "must be positive"}
	}
	if f.DefaultArgs, err = p.GetString("default_args"); err != nil {
		return nil, err
	}
	if f.MPILauncher, err = p.GetString("mpi_launcher"); err != nil {
		return nil, err
	}
	if f.UnitType, err = p.GetString("unit_type"); err != nil {
		return nil, err
	}
	env, err := p.Field("env_vars")
	if err != nil {
		return nil, err
	}
	if f.Env, err = decodeEnv(env); err != nil {
		return nil, err
	}
	return f, nil
}

// decodeEnv accepts a list of KEY=VALUE lines, a mapping, or a single
// dotenv-formatted string.
func decodeEnv(p *param.Parameter) ([]string, error) {
	var vars map[string]string
	switch p.Kind() {
	case param.KindUnset:
		return nil, nil
	case param.KindString:
		s, _ := p.AsString()
		m, err := godotenv.Unmarshal(s)
		if err != nil {
			return nil, &ConfigurationError{Setting: "env_vars", Value: s, Reason: err.Error()}
		}
		vars = m
	case param.KindArray:
		lines, err := p.AsStrings()
		if err != nil {
			return nil, &ConfigurationError{Setting: "env_vars", Value: p.String(), Reason: "list entries must be strings"}
		}
		for _, l := range lines {
			if !strings.Contains(l, "=") {
				return nil, &ConfigurationError{Setting: "env_vars", Value: l, Reason: "expected KEY=VALUE"}
			}
		}
		m, err := godotenv.Unmarshal(strings.Join(lines, "\n"))
		if err != nil {
			return nil, &ConfigurationError{Setting: "env_vars", Value: p.String(), Reason: err.Error()}
		}
		vars = m
	case param.KindObject:
		vars = make(map[string]string, p.Len())
		for _, k := range p.Keys() {
			v, _ := p.Field(k)
			vars[k] = scalarString(v)
		}
	default:
		return nil, &ConfigurationError{Setting: "env_vars", Value: p.String(), Reason: "expected a list, mapping or string"}
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+vars[k])
	}
	return out, nil
}

func scalarString(p *param.Parameter) string {
	if s, err := p.AsString(); err == nil {
		return s
	}
	if p.IsUnset() {
		return ""
	}
	return fmt.Sprint(p.Literal())
}
