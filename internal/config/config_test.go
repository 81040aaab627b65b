package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeWeightMask(t *testing.T) {
	tests := []struct {
		n    int
		want []WeightClass
		str  string
	}{
		{0, nil, "none"},
		{1, []WeightClass{Short}, "short"},
		{2, []WeightClass{Intermediate}, "intermediate"},
		{3, []WeightClass{Intermediate, Short}, "intermediate+short"},
		{4, []WeightClass{Long}, "long"},
		{5, []WeightClass{Long, Short}, "long+short"},
		{6, []WeightClass{Long, Intermediate}, "long+intermediate"},
		{7, []WeightClass{Long, Intermediate, Short}, "long+intermediate+short"},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			m, err := DecodeWeightMask(tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Classes())
			assert.Equal(t, tt.str, m.String())
		})
	}
}

func TestWeightMaskFiveExcludesIntermediate(t *testing.T) {
	m, err := DecodeWeightMask(5)
	require.NoError(t, err)
	assert.True(t, m.Allows(Long))
	assert.True(t, m.Allows(Short))
	assert.False(t, m.Allows(Intermediate))
	assert.False(t, m.Allows(WeightClass("huge")))
}

func TestDecodeWeightMaskOutOfRange(t *testing.T) {
	for _, n := range []int{-1, 8, 100} {
		_, err := DecodeWeightMask(n)
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
	}
}

func TestParseWeightClass(t *testing.T) {
	c, err := ParseWeightClass("intermediate")
	require.NoError(t, err)
	assert.Equal(t, Intermediate, c)

	_, err = ParseWeightClass("Short")
	assert.True(t, IsConfigurationError(err))
}

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	f, err := LoadFile(filepath.Join(t.TempDir(), DefaultFileName))
	require.NoError(t, err)
	assert.Equal(t, DefaultPrintWidth, f.PrintWidth)
	assert.Equal(t, "mpiexec", f.MPILauncher)
	assert.Empty(t, f.DefaultExecutable)
	assert.Empty(t, f.Path)
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantEnv []string
	}{
		{
			name: "env list",
			content: `
default_executable: ./bin/solver
print_width: 80
default_args: "--quiet"
env_vars:
  - OMP_NUM_THREADS=1
  - "LABEL=two words"
`,
			wantEnv: []string{"LABEL=two words", "OMP_NUM_THREADS=1"},
		},
		{
			name: "env mapping",
			content: `
default_executable: ./bin/solver
print_width: 80
default_args: "--quiet"
env_vars:
  ZED: 1
  ALPHA: on
`,
			wantEnv: []string{"ALPHA=on", "ZED=1"},
		},
		{
			name: "env dotenv block",
			content: `
default_executable: ./bin/solver
print_width: 80
default_args: "--quiet"
env_vars: |
  # comment
  B=2
  export A="quoted"
`,
			wantEnv: []string{"A=quoted", "B=2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), DefaultFileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			f, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "./bin/solver", f.DefaultExecutable)
			assert.Equal(t, 80, f.PrintWidth)
			assert.Equal(t, "--quiet", f.DefaultArgs)
			assert.Equal(t, tt.wantEnv, f.Env)
			assert.Equal(t, path, f.Path)
		})
	}
}

func TestLoadForDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte("unit_type: LegacyUnit\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alt.yaml"), []byte("print_width: 60\n"), 0644))

	f, err := LoadForDirectory(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "LegacyUnit", f.UnitType)
	assert.Equal(t, filepath.Join(dir, DefaultFileName), f.Path)

	f, err = LoadForDirectory(dir, "alt.yaml")
	require.NoError(t, err)
	assert.Equal(t, 60, f.PrintWidth)
	assert.Empty(t, f.UnitType)

	abs := filepath.Join(t.TempDir(), "elsewhere.yaml")
	f, err = LoadForDirectory(dir, abs)
	require.NoError(t, err)
	assert.Empty(t, f.Path, "a missing absolute path falls back to defaults")
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad print width", "print_width: 0\n"},
		{"wrong kind", "print_width: wide\n"},
		{"env line without equals", "env_vars: [JUSTNAME]\n"},
		{"env wrong kind", "env_vars: 5\n"},
		{"unit type not a string", "unit_type: [a]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), DefaultFileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadFile(path)
			require.Error(t, err)
		})
	}
}
