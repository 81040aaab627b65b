package check

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/roach88/tfc/internal/factory"
	"github.com/roach88/tfc/internal/param"
)

// Built-in check type names.
const (
	TypeErrorCode    = "ErrorCode"
	TypeStrCompare   = "StrCompare"
	TypeFloatCompare = "FloatCompare"
	TypeGoldFile     = "GoldFile"
)

// maxDiffLines bounds the diff carried in a GoldFile fail reason.
const maxDiffLines = 40

// fieldReader reads several fields and keeps the first error.
type fieldReader struct {
	p   *param.Parameter
	err error
}

func (r *fieldReader) getString(name string) string {
	if r.err != nil {
		return ""
	}
	v, err := r.p.GetString(name)
	r.err = err
	return v
}

func (r *fieldReader) getInt(name string) int {
	if r.err != nil {
		return 0
	}
	v, err := r.p.GetInt(name)
	r.err = err
	return v
}

func (r *fieldReader) getFloat(name string) float64 {
	if r.err != nil {
		return 0
	}
	v, err := r.p.GetFloat(name)
	r.err = err
	return v
}

// ErrorCode passes when the process exit code equals error_code.
type ErrorCode struct {
	Base
	Expected int
}

func errorCodeParameters() *param.InputParameters {
	s := Parameters()
	s.DeclareOptional("error_code", 0, "expected process exit code")
	return s
}

func newErrorCode(_ *factory.Registry, name string, p *param.Parameter) (any, error) {
	r := &fieldReader{p: p}
	c := &ErrorCode{Base: NewBase(name, TypeErrorCode), Expected: r.getInt("error_code")}
	return c, r.err
}

func (c *ErrorCode) Execute(ctx *Context, notes *Annotations) bool {
	if ctx.ExitCode != c.Expected {
		notes.Add(fmt.Sprintf("EXIT %d", ctx.ExitCode))
		return c.Fail(fmt.Sprintf("exit code %d, expected %d", ctx.ExitCode, c.Expected))
	}
	return true
}

// StrCompare finds the last output line containing key. With wordnum >= 0
// the whitespace-separated word at that index must equal gold; otherwise
// the key only has to appear.
type StrCompare struct {
	Base
	Key     string
	WordNum int
	Gold    string
	File    string
}

func strCompareParameters() *param.InputParameters {
	s := Parameters()
	s.DeclareRequired("key", param.KindString, "text identifying the line to inspect")
	s.DeclareOptional("wordnum", -1, "index of the word to compare; -1 only requires the key")
	s.DeclareOptional("gold", "", "expected word")
	s.DeclareOptional("file", "", "file to search, relative to the unit directory; empty means the unit log")
	return s
}

func newStrCompare(_ *factory.Registry, name string, p *param.Parameter) (any, error) {
	r := &fieldReader{p: p}
	c := &StrCompare{
		Base:    NewBase(name, TypeStrCompare),
		Key:     r.getString("key"),
		WordNum: r.getInt("wordnum"),
		Gold:    r.getString("gold"),
		File:    r.getString("file"),
	}
	return c, r.err
}

func (c *StrCompare) Execute(ctx *Context, notes *Annotations) bool {
	line, err := findLine(ctx, c.File, c.Key)
	if err != nil {
		notes.Add("NO " + c.Key)
		return c.Fail(err.Error())
	}
	if c.WordNum < 0 {
		return true
	}
	word, err := wordAt(line, c.WordNum)
	if err != nil {
		return c.Fail(err.Error())
	}
	if word != c.Gold {
		notes.Add(c.Key + " DIFF")
		return c.Fail(fmt.Sprintf("%s: got %q, expected %q", c.Key, word, c.Gold))
	}
	return true
}

// FloatCompare reads the number at wordnum on the last line containing key
// and compares it to gold within abs_tol or rel_tol.
type FloatCompare struct {
	Base
	Key     string
	WordNum int
	Gold    float64
	AbsTol  float64
	RelTol  float64
	File    string
}

func floatCompareParameters() *param.InputParameters {
	s := Parameters()
	s.DeclareRequired("key", param.KindString, "text identifying the line to inspect")
	s.DeclareRequired("wordnum", param.KindInt, "index of the word holding the number")
	s.DeclareRequired("gold", param.KindFloat, "expected value")
	s.DeclareOptional("abs_tol", 1e-6, "absolute tolerance")
	s.DeclareOptional("rel_tol", 0.0, "relative tolerance")
	s.DeclareOptional("file", "", "file to search, relative to the unit directory; empty means the unit log")
	return s
}

func newFloatCompare(_ *factory.Registry, name string, p *param.Parameter) (any, error) {
	r := &fieldReader{p: p}
	c := &FloatCompare{
		Base:    NewBase(name, TypeFloatCompare),
		Key:     r.getString("key"),
		WordNum: r.getInt("wordnum"),
		Gold:    r.getFloat("gold"),
		AbsTol:  r.getFloat("abs_tol"),
		RelTol:  r.getFloat("rel_tol"),
		File:    r.getString("file"),
	}
	return c, r.err
}

func (c *FloatCompare) Execute(ctx *Context, notes *Annotations) bool {
	line, err := findLine(ctx, c.File, c.Key)
	if err != nil {
		notes.Add("NO " + c.Key)
		return c.Fail(err.Error())
	}
	word, err := wordAt(line, c.WordNum)
	if err != nil {
		return c.Fail(err.Error())
	}
	got, err := strconv.ParseFloat(word, 64)
	if err != nil {
		return c.Fail(fmt.Sprintf("%s: %q is not a number", c.Key, word))
	}
	diff := math.Abs(got - c.Gold)
	if diff <= c.AbsTol || (c.RelTol > 0 && diff <= c.RelTol*math.Abs(c.Gold)) {
		return true
	}
	notes.Add(c.Key + " DIFF")
	return c.Fail(fmt.Sprintf("%s: got %g, expected %g (diff %g)", c.Key, got, c.Gold, diff))
}

// GoldFile compares a produced file with a gold copy. With
// skip_lines_until set, both files are compared from the first line
// containing that marker.
type GoldFile struct {
	Base
	File           string
	Gold           string
	SkipLinesUntil string
}

func goldFileParameters() *param.InputParameters {
	s := Parameters()
	s.DeclareRequired("file", param.KindString, "produced file, relative to the unit directory")
	s.DeclareRequired("gold_file", param.KindString, "expected file, relative to the unit directory")
	s.DeclareOptional("skip_lines_until", "", "ignore lines before the first one containing this text")
	return s
}

func newGoldFile(_ *factory.Registry, name string, p *param.Parameter) (any, error) {
	r := &fieldReader{p: p}
	c := &GoldFile{
		Base:           NewBase(name, TypeGoldFile),
		File:           r.getString("file"),
		Gold:           r.getString("gold_file"),
		SkipLinesUntil: r.getString("skip_lines_until"),
	}
	return c, r.err
}

func (c *GoldFile) Execute(ctx *Context, notes *Annotations) bool {
	got, err := os.ReadFile(resolve(ctx, c.File))
	if err != nil {
		notes.Add("NO FILE")
		return c.Fail(fmt.Sprintf("read %s: %v", c.File, err))
	}
	gold, err := os.ReadFile(resolve(ctx, c.Gold))
	if err != nil {
		notes.Add("NO GOLD")
		return c.Fail(fmt.Sprintf("read %s: %v", c.Gold, err))
	}

	a := skipUntil(difflib.SplitLines(string(gold)), c.SkipLinesUntil)
	b := skipUntil(difflib.SplitLines(string(got)), c.SkipLinesUntil)
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: c.Gold,
		ToFile:   c.File,
		Context:  2,
	})
	if err != nil {
		return c.Fail(fmt.Sprintf("diff %s: %v", c.File, err))
	}
	if text == "" {
		return true
	}
	notes.Add("DIFF")
	return c.Fail(truncateLines(text, maxDiffLines))
}

func resolve(ctx *Context, path string) string {
	if filepath.IsAbs(path) || ctx.Unit == nil {
		return path
	}
	return filepath.Join(ctx.Unit.Dir(), path)
}

// findLine returns the last line of the unit log (or file) containing key.
func findLine(ctx *Context, file, key string) (string, error) {
	path := ctx.OutputFile
	if file != "" {
		path = resolve(ctx, file)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	lines := strings.Split(string(data), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], key) {
			return lines[i], nil
		}
	}
	return "", fmt.Errorf("%q not found in %s", key, filepath.Base(path))
}

func wordAt(line string, n int) (string, error) {
	words := strings.Fields(line)
	if n < 0 || n >= len(words) {
		return "", fmt.Errorf("line %q has no word %d", strings.TrimSpace(line), n)
	}
	return words[n], nil
}

func skipUntil(lines []string, marker string) []string {
	if marker == "" {
		return lines
	}
	for i, l := range lines {
		if strings.Contains(l, marker) {
			return lines[i:]
		}
	}
	return nil
}

func truncateLines(s string, n int) string {
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "") + fmt.Sprintf("... (%d more lines)\n", len(lines)-n)
}
