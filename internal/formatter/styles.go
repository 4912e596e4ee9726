package formatter

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/unnipv/musync/internal/tasks"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a small stylesheet built with named [lipgloss.Style] fields.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	muted lipgloss.Style
}

func NewPalette(t, s, e, w, m string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewBold(w),
		muted: NewEm(m),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// Status renders an outcome in its color.
func (p *Palette) Status(o tasks.Outcome) string {
	switch o {
	case tasks.OutcomeSynced:
		return p.ok.Render(string(o))
	case tasks.OutcomePartial, tasks.OutcomeWarning:
		return p.warn.Render(string(o))
	default:
		return p.err.Render(string(o))
	}
}
