// Package report renders unit status lines and the end-of-run summary.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Result is the part of a finished unit a status line shows.
type Result interface {
	Name() string
	NumProcs() int
	Annotations() []string
	Passed() bool
	Skipped() bool
	Elapsed() time.Duration
}

// SkipMarker prefixes the annotations of a skipped unit in its status line.
const SkipMarker = "skipped:"

// Styles colors the parts of the output. On a writer that is not a
// terminal every style renders plain text.
type Styles struct {
	Procs      lipgloss.Style
	Annotation lipgloss.Style
	Pass       lipgloss.Style
	Fail       lipgloss.Style
	Heading    lipgloss.Style
}

// NewStyles builds the styles for the renderer's color profile.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Procs:      r.NewStyle().Foreground(lipgloss.Color("3")),
		Annotation: r.NewStyle().Foreground(lipgloss.Color("6")),
		Pass:       r.NewStyle().Foreground(lipgloss.Color("2")),
		Fail:       r.NewStyle().Foreground(lipgloss.Color("1")),
		Heading:    r.NewStyle().Bold(true),
	}
}

// Layout fixes the column widths shared by every status line of a run.
type Layout struct {
	// Width is the visible width of the line up to the verdict.
	Width int

	// ProcsWidth is the digit count of the widest num_procs in the batch.
	ProcsWidth int
}

// NewLayout returns the layout for a batch whose widest unit uses
// maxNumProcs slots.
func NewLayout(printWidth, maxNumProcs int) Layout {
	return Layout{Width: printWidth, ProcsWidth: len(strconv.Itoa(max(maxNumProcs, 1)))}
}

// Reporter writes status lines and summaries to one writer.
type Reporter struct {
	out    io.Writer
	styles Styles
	layout Layout
}

// New creates a Reporter styled for out.
func New(out io.Writer, layout Layout) *Reporter {
	return &Reporter{
		out:    out,
		styles: NewStyles(lipgloss.NewRenderer(out)),
		layout: layout,
	}
}

// StatusLine renders "[procs] name....[note]Passed 1.0s", padding with dots
// so the verdict ends at the layout width. A skipped unit's only note is
// its skip reason, shown as [skipped:reason].
func (r *Reporter) StatusLine(u Result) string {
	prefix := r.styles.Procs.Render(fmt.Sprintf("[%*d]", r.layout.ProcsWidth, u.NumProcs())) + " "

	marker := ""
	if u.Skipped() {
		marker = SkipMarker
	}
	var suffix strings.Builder
	for _, note := range u.Annotations() {
		suffix.WriteString(r.styles.Annotation.Render("[" + marker + note + "]"))
	}
	if u.Passed() {
		suffix.WriteString(r.styles.Pass.Render("Passed"))
	} else {
		suffix.WriteString(r.styles.Fail.Render("Failed"))
	}

	pad := r.layout.Width - lipgloss.Width(prefix) - lipgloss.Width(u.Name()) - lipgloss.Width(suffix.String())
	return prefix + u.Name() + strings.Repeat(".", max(pad, 0)) + suffix.String() +
		fmt.Sprintf(" %.1fs", u.Elapsed().Seconds())
}

// Emit writes the status line of a finished unit.
func (r *Reporter) Emit(u Result) {
	fmt.Fprintln(r.out, r.StatusLine(u))
}

// Header announces the start of a run.
func (r *Reporter) Header(weights string, numJobs int, executable string) {
	fmt.Fprintln(r.out, r.styles.Heading.Render("Running tests"))
	fmt.Fprintf(r.out, "  Main executable: %s\n", executable)
	fmt.Fprintf(r.out, "  Number of jobs : %d\n", numJobs)
	fmt.Fprintf(r.out, "  Weight classes : %s\n\n", weights)
}
