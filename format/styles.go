// Package format renders syntax trees, query matches and edit diffs for
// the arbor command line tool and the HTTP server.
package format

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

type Styles struct {
	Type      lipgloss.Style
	Anonymous lipgloss.Style
	Field     lipgloss.Style
	Error     lipgloss.Style
	Missing   lipgloss.Style
	Range     lipgloss.Style
	Text      lipgloss.Style
	Capture   lipgloss.Style
	Location  lipgloss.Style

	DiffHeader lipgloss.Style
	DiffHunk   lipgloss.Style
	DiffAdd    lipgloss.Style
	DiffRemove lipgloss.Style

	color bool
}

func NewStyles(color bool) *Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return &Styles{
			Type: plain, Anonymous: plain, Field: plain, Error: plain,
			Missing: plain, Range: plain, Text: plain, Capture: plain,
			Location: plain, DiffHeader: plain, DiffHunk: plain,
			DiffAdd: plain, DiffRemove: plain,
		}
	}
	return &Styles{
		color:     true,
		Type:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		Anonymous: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Field:     lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Missing:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Italic(true),
		Range:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Text:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Capture:   lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		Location:  lipgloss.NewStyle().Bold(true),

		DiffHeader: lipgloss.NewStyle().Bold(true),
		DiffHunk:   lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		DiffAdd:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		DiffRemove: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// render leaves text untouched when color is off. lipgloss expands tabs
// even for an empty style.
func (s *Styles) render(style lipgloss.Style, text string) string {
	if !s.color {
		return text
	}
	return style.Render(text)
}

// Path renders a file path or location.
func (s *Styles) Path(text string) string {
	return s.render(s.Location, text)
}

// ColorEnabled resolves a --color mode ("auto", "always" or "never") for w.
func ColorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Width returns the terminal width of w, or 0 when w is not a terminal.
func Width(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
