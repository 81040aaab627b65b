package document

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tfc/internal/param"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadYAMLKeepsOrder(t *testing.T) {
	path := writeFile(t, "heat_tests.yaml", `
zeta:
  args: "-i zeta.i"
alpha:
  args: "-i alpha.i"
  num_procs: 2
  dt: 0.01
  checks:
    - type: ErrorCode
`)

	p, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, p.Keys())

	procs, err := p.Path("alpha", "num_procs")
	require.NoError(t, err)
	assert.Equal(t, param.KindInt, procs.Kind())

	dt, err := p.Path("alpha", "dt")
	require.NoError(t, err)
	assert.Equal(t, param.KindFloat, dt.Kind())

	typ, err := p.Path("alpha", "checks", 0, "type")
	require.NoError(t, err)
	s, err := typ.AsString()
	require.NoError(t, err)
	assert.Equal(t, "ErrorCode", s)
}

func TestReadYAMLAliasesAndMerge(t *testing.T) {
	path := writeFile(t, "merge_tests.yml", `
base: &base
  args: "base"
  num_procs: 2
derived:
  <<: *base
  args: "derived"
copy: *base
`)

	p, err := ReadFile(path)
	require.NoError(t, err)

	args, err := p.Path("derived", "args")
	require.NoError(t, err)
	s, err := args.AsString()
	require.NoError(t, err)
	assert.Equal(t, "derived", s)

	procs, err := p.Path("derived", "num_procs")
	require.NoError(t, err)
	n, err := procs.AsInt()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	copied, err := p.Path("copy", "args")
	require.NoError(t, err)
	s, err = copied.AsString()
	require.NoError(t, err)
	assert.Equal(t, "base", s)
}

func TestReadJSON(t *testing.T) {
	path := writeFile(t, "a_tests.json", `{"b": {"args": "x", "skip": null}, "a": {"args": "y", "deps": ["b"]}}`)

	p, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, p.Keys())

	skip, err := p.Path("b", "skip")
	require.NoError(t, err)
	assert.True(t, skip.IsUnset())
}

func TestReadCUE(t *testing.T) {
	path := writeFile(t, "a_tests.cue", `
#Base: {
	num_procs: int | *1
	weight_class: "short"
	...
}
second: #Base & {
	args: "-i second.i"
	num_procs: 4
}
first: #Base & {
	args: "-i first.i"
	dependencies: ["second"]
}
`)

	p, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, p.Keys())

	procs, err := p.Path("first", "num_procs")
	require.NoError(t, err)
	n, err := procs.AsInt()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	dep, err := p.Path("first", "dependencies", 0)
	require.NoError(t, err)
	s, err := dep.AsString()
	require.NoError(t, err)
	assert.Equal(t, "second", s)
}

func TestReadCUENonConcrete(t *testing.T) {
	path := writeFile(t, "bad_tests.cue", `a: { args: string }`)

	_, err := ReadFile(path)
	require.Error(t, err)
	var de *DecodeError
	assert.True(t, errors.As(err, &de))
}

func TestReadEmptyDocument(t *testing.T) {
	path := writeFile(t, "empty_tests.yaml", "")

	p, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, param.KindObject, p.Kind())
	assert.Equal(t, 0, p.Len())
}

func TestReadMalformedYAML(t *testing.T) {
	path := writeFile(t, "bad_tests.yaml", "a: [unclosed")

	_, err := ReadFile(path)
	require.Error(t, err)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, FormatYAML, de.Format)
}

func TestReadUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "a_tests.toml", "a = 1")

	_, err := ReadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported document extension")
}
