package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/unnipv/musync/internal/tasks"
)

var styles = NewPalette("#1DB954", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a small stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
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

// outcome picks the style and glyph for a platform outcome.
func (p *Palette) outcome(o tasks.Outcome) (lipgloss.Style, string) {
	switch o {
	case tasks.OutcomeSynced:
		return p.ok, "✓"
	case tasks.OutcomePartial, tasks.OutcomeWarning:
		return p.warn, "!"
	default:
		return p.err, "✗"
	}
}
