package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vesper-lang/vesper/internal/source"
)

// Styles.
var (
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")).
			Bold(true)
	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3")).
			Bold(true)
	logStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	locStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	gutterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	caretStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")).
			Bold(true)
	noteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
)

// Renderer writes diagnostics as annotated source snippets. Files must
// be registered so spans can be resolved back to their text.
type Renderer struct {
	files map[string]*source.File
	color bool
}

// NewRenderer creates a renderer. With color false all styling is
// suppressed, which tests and non-terminal output rely on.
func NewRenderer(color bool) *Renderer {
	return &Renderer{files: make(map[string]*source.File), color: color}
}

// AddFile registers a source file for snippet lookup
func (r *Renderer) AddFile(f *source.File) {
	r.files[f.Name] = f
}

// Render writes every message to w, each as a header line, a location
// line, and a caret-annotated snippet when the file is known.
func (r *Renderer) Render(w io.Writer, msgs []Message) {
	for _, m := range msgs {
		r.renderOne(w, m)
	}
}

func (r *Renderer) renderOne(w io.Writer, m Message) {
	fmt.Fprintf(w, "%s: %s\n", r.paint(severityStyle(m.Severity), m.Severity.String()), m.Text)

	if !m.Span.IsValid() {
		r.renderNotes(w, m.Notes, "")
		return
	}

	pos := m.Span.Start
	fmt.Fprintf(w, "%s\n", r.paint(locStyle, fmt.Sprintf("  --> %s:%d:%d", pos.Filename, pos.Line, pos.Column)))

	f := r.files[pos.Filename]
	if f == nil {
		r.renderNotes(w, m.Notes, "")
		return
	}

	line := f.Line(pos.Line)
	gutter := fmt.Sprintf("%4d | ", pos.Line)
	fmt.Fprintf(w, "%s%s\n", r.paint(gutterStyle, gutter), line)

	width := m.Span.Length()
	if m.Span.End.Line != pos.Line || width < 1 {
		width = 1
	}
	pad := strings.Repeat(" ", len(gutter)+pos.Column-1)
	fmt.Fprintf(w, "%s%s\n", pad, r.paint(caretStyle, strings.Repeat("^", width)))

	r.renderNotes(w, m.Notes, strings.Repeat(" ", len(gutter)))
}

func (r *Renderer) renderNotes(w io.Writer, notes []string, indent string) {
	for _, n := range notes {
		fmt.Fprintf(w, "%s%s %s\n", indent, r.paint(noteStyle, "note:"), n)
	}
}

func (r *Renderer) paint(style lipgloss.Style, s string) string {
	if !r.color {
		return s
	}
	return style.Render(s)
}

func severityStyle(sev Severity) lipgloss.Style {
	switch sev {
	case SeverityError:
		return errorStyle
	case SeverityWarning:
		return warningStyle
	default:
		return logStyle
	}
}
