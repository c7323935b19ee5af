package tui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Status levels shared by diagnostics and summaries.
const (
	StatusOK      = "ok"
	StatusChanged = "changed"
	StatusWarning = "warning"
	StatusError   = "error"
	StatusInfo    = "info"
)

// Styler renders labels for one output writer. A plain styler returns text
// unchanged.
type Styler struct {
	color    bool
	header   lipgloss.Style
	faint    lipgloss.Style
	statuses map[string]lipgloss.Style
}

// NewStyler builds a styler for out in the given mode. Rich mode forces ANSI
// colors even when out is not a terminal, which is how --color always is
// honored.
func NewStyler(out io.Writer, mode OutputMode) Styler {
	if mode != ModeRich {
		return Styler{}
	}
	r := lipgloss.NewRenderer(out)
	r.SetColorProfile(termenv.ANSI)
	return Styler{
		color:  true,
		header: r.NewStyle().Bold(true),
		faint:  r.NewStyle().Faint(true),
		statuses: map[string]lipgloss.Style{
			StatusOK:      r.NewStyle().Foreground(lipgloss.Color("2")),
			StatusChanged: r.NewStyle().Foreground(lipgloss.Color("4")),
			StatusWarning: r.NewStyle().Foreground(lipgloss.Color("3")),
			StatusError:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
			StatusInfo:    r.NewStyle().Foreground(lipgloss.Color("4")),
		},
	}
}

// Colored reports whether the styler emits ANSI sequences.
func (s Styler) Colored() bool { return s.color }

// Header styles a section heading.
func (s Styler) Header(text string) string {
	if !s.color {
		return text
	}
	return s.header.Render(text)
}

// Faint styles secondary text such as paths.
func (s Styler) Faint(text string) string {
	if !s.color {
		return text
	}
	return s.faint.Render(text)
}

// Status styles text for a status level.
func (s Styler) Status(status, text string) string {
	if !s.color {
		return text
	}
	if st, ok := s.statuses[status]; ok {
		return st.Render(text)
	}
	return text
}
