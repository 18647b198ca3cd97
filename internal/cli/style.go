package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Status line colors
var (
	labelColor  = lipgloss.Color("245")
	activeColor = lipgloss.Color("#22C55E")
	idleColor   = lipgloss.Color("#F59E0B")
	stopColor   = lipgloss.Color("#EF4444")
)

type styles struct {
	label  lipgloss.Style
	value  lipgloss.Style
	active lipgloss.Style
	idle   lipgloss.Style
	stop   lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{label: plain, value: plain, active: plain, idle: plain, stop: plain}
	}
	return styles{
		label:  lipgloss.NewStyle().Foreground(labelColor),
		value:  lipgloss.NewStyle().Bold(true),
		active: lipgloss.NewStyle().Foreground(activeColor).Bold(true),
		idle:   lipgloss.NewStyle().Foreground(idleColor),
		stop:   lipgloss.NewStyle().Foreground(stopColor).Bold(true),
	}
}

// field renders "label=value".
func (s styles) field(label, value string) string {
	return s.label.Render(label+"=") + s.value.Render(value)
}
