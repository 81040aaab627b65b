package check

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tfc/internal/factory"
)

type fakeUnit struct {
	name string
	dir  string
}

func (u fakeUnit) Name() string  { return u.name }
func (u fakeUnit) Dir() string   { return u.dir }
func (u fakeUnit) NumProcs() int { return 1 }

func newRegistry(t *testing.T) *factory.Registry {
	t.Helper()
	r := factory.New()
	require.NoError(t, r.Install(Module()))
	return r
}

func makeCheck(t *testing.T, raw map[string]any) Check {
	t.Helper()
	c, err := factory.Make[Check](newRegistry(t), "0", raw)
	require.NoError(t, err)
	return c
}

// newContext writes log as the unit's output file.
func newContext(t *testing.T, exitCode int, log string) *Context {
	t.Helper()
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(outDir, 0755))
	outFile := filepath.Join(outDir, "unit.out")
	require.NoError(t, os.WriteFile(outFile, []byte(log), 0644))
	return &Context{
		Unit:       fakeUnit{name: filepath.Join(dir, "unit"), dir: dir},
		ExitCode:   exitCode,
		OutputFile: outFile,
		OutputDir:  outDir,
	}
}

func TestBaseDefaults(t *testing.T) {
	b := NewBase("0", "X")
	assert.False(t, b.Failed())
	assert.Equal(t, "Unknown", b.FailReason())

	assert.False(t, b.Fail("boom"))
	assert.True(t, b.Failed())
	assert.Equal(t, "boom", b.FailReason())
}

func TestRegisterAllBuiltins(t *testing.T) {
	r := newRegistry(t)
	assert.Equal(t, []string{TypeErrorCode, TypeFloatCompare, TypeGoldFile, TypeStrCompare}, r.Types())
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]any
		exitCode int
		pass     bool
	}{
		{"default zero passes", map[string]any{"type": TypeErrorCode}, 0, true},
		{"default zero fails on 1", map[string]any{"type": TypeErrorCode}, 1, false},
		{"expected nonzero", map[string]any{"type": TypeErrorCode, "error_code": 3}, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := makeCheck(t, tt.raw)
			notes := &Annotations{}
			got := c.Execute(newContext(t, tt.exitCode, ""), notes)
			assert.Equal(t, tt.pass, got)
			assert.Equal(t, !tt.pass, c.Failed())
			if !tt.pass {
				assert.Contains(t, c.FailReason(), "exit code")
				assert.Equal(t, []string{"EXIT 1"}, notes.Items())
			}
		})
	}
}

func TestStrCompare(t *testing.T) {
	log := "step 1 status converging\nstep 2 status converged\n"

	tests := []struct {
		name string
		raw  map[string]any
		pass bool
	}{
		{"key present", map[string]any{"type": TypeStrCompare, "key": "status"}, true},
		{"key absent", map[string]any{"type": TypeStrCompare, "key": "diverged"}, false},
		{"last line word matches", map[string]any{"type": TypeStrCompare, "key": "status", "wordnum": 3, "gold": "converged"}, true},
		{"word differs", map[string]any{"type": TypeStrCompare, "key": "status", "wordnum": 3, "gold": "failed"}, false},
		{"word out of range", map[string]any{"type": TypeStrCompare, "key": "status", "wordnum": 9, "gold": "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := makeCheck(t, tt.raw)
			assert.Equal(t, tt.pass, c.Execute(newContext(t, 0, log), &Annotations{}))
		})
	}
}

func TestFloatCompare(t *testing.T) {
	log := "residual 1.0e-3\nresidual 2.5e-7\n"

	tests := []struct {
		name string
		raw  map[string]any
		pass bool
	}{
		{"within abs tol", map[string]any{"type": TypeFloatCompare, "key": "residual", "wordnum": 1, "gold": 2.5e-7}, true},
		{"outside abs tol", map[string]any{"type": TypeFloatCompare, "key": "residual", "wordnum": 1, "gold": 1.0, "abs_tol": 0.1}, false},
		{"within rel tol", map[string]any{"type": TypeFloatCompare, "key": "residual", "wordnum": 1, "gold": 2.6e-7, "abs_tol": 0, "rel_tol": 0.1}, true},
		{"integer gold", map[string]any{"type": TypeFloatCompare, "key": "residual", "wordnum": 1, "gold": 0, "abs_tol": 1e-6}, true},
		{"not a number", map[string]any{"type": TypeFloatCompare, "key": "residual", "wordnum": 0, "gold": 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := makeCheck(t, tt.raw)
			assert.Equal(t, tt.pass, c.Execute(newContext(t, 0, log), &Annotations{}))
		})
	}
}

func TestFloatCompareRequiresGold(t *testing.T) {
	_, err := newRegistry(t).MakeObject("0", map[string]any{"type": TypeFloatCompare, "key": "k", "wordnum": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gold")
}

func TestGoldFile(t *testing.T) {
	ctx := newContext(t, 0, "")
	dir := ctx.Unit.Dir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "result.csv"), []byte("header v2\nx,y\n1,2\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gold.csv"), []byte("header v1\nx,y\n1,2\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.csv"), []byte("header v1\nx,y\n1,3\n"), 0644))

	t.Run("match after skip", func(t *testing.T) {
		c := makeCheck(t, map[string]any{"type": TypeGoldFile, "file": "result.csv", "gold_file": "gold.csv", "skip_lines_until": "x,y"})
		assert.True(t, c.Execute(ctx, &Annotations{}))
	})

	t.Run("header differs without skip", func(t *testing.T) {
		c := makeCheck(t, map[string]any{"type": TypeGoldFile, "file": "result.csv", "gold_file": "gold.csv"})
		notes := &Annotations{}
		assert.False(t, c.Execute(ctx, notes))
		assert.Contains(t, c.FailReason(), "-header v1")
		assert.Contains(t, c.FailReason(), "+header v2")
		assert.Equal(t, "DIFF", notes.String())
	})

	t.Run("body differs", func(t *testing.T) {
		c := makeCheck(t, map[string]any{"type": TypeGoldFile, "file": "bad.csv", "gold_file": "gold.csv", "skip_lines_until": "x,y"})
		assert.False(t, c.Execute(ctx, &Annotations{}))
		assert.Contains(t, c.FailReason(), "+1,3")
	})

	t.Run("missing file", func(t *testing.T) {
		c := makeCheck(t, map[string]any{"type": TypeGoldFile, "file": "nope.csv", "gold_file": "gold.csv"})
		notes := &Annotations{}
		assert.False(t, c.Execute(ctx, notes))
		assert.Equal(t, []string{"NO FILE"}, notes.Items())
	})
}

func TestTruncateLines(t *testing.T) {
	assert.Equal(t, "a\nb\n", truncateLines("a\nb\n", 5))
	assert.Equal(t, "a\n... (2 more lines)\n", truncateLines("a\nb\nc\n", 1))
}
