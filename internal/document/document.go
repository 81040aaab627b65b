// Package document decodes structured definition files into ordered literals
// that param.New accepts.
//
// YAML and JSON go through yaml.v3 nodes so mapping order survives; CUE
// files are evaluated with the CUE runtime and must be concrete.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/tfc/internal/param"
)

// Format identifies a supported document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCUE  Format = "cue"
)

// Extensions maps supported file extensions to their format.
var Extensions = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
	".cue":  FormatCUE,
}

// DecodeError reports a document that could not be parsed.
type DecodeError struct {
	Path   string
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode %s: %v", e.Path, e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FormatFor returns the format for a path based on its extension.
func FormatFor(path string) (Format, bool) {
	f, ok := Extensions[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// ReadFile reads and decodes the file at path. An empty document decodes
// to an empty object.
func ReadFile(path string) (*param.Parameter, error) {
	format, ok := FormatFor(path)
	if !ok {
		return nil, fmt.Errorf("%s: unsupported document extension %q", path, filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Decode(path, format, data)
}

// Decode decodes data in the given format. name labels errors and the root
// Parameter.
func Decode(name string, format Format, data []byte) (*param.Parameter, error) {
	var (
		lit any
		err error
	)
	switch format {
	case FormatYAML, FormatJSON:
		lit, err = decodeYAML(data)
	case FormatCUE:
		lit, err = decodeCUE(name, data)
	default:
		return nil, fmt.Errorf("%s: unsupported format %q", name, format)
	}
	if err != nil {
		return nil, &DecodeError{Path: name, Format: format, Err: err}
	}
	if lit == nil {
		return param.EmptyObject(name), nil
	}
	return param.New(name, lit)
}
