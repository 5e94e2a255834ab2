package formatter

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/setsum/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
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

// Title renders a section heading for terminal output.
func Title(s string) string {
	return styles.title.Render(s)
}

// Help renders de-emphasized hint text for terminal output.
func Help(s string) string {
	return styles.help.Render(s)
}

// Status renders a run status string in its matching color.
func Status(status string) string {
	switch status {
	case models.RunStatusOK:
		return styles.ok.Render(status)
	case models.RunStatusFailed:
		return styles.err.Render(status)
	case models.RunStatusSkipped:
		return styles.warn.Render(status)
	default:
		return styles.help.Render(status)
	}
}
