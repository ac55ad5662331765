package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/danielpatrickdp/calmbridge/internal/triage"
)

var (
	calmBlue  = lipgloss.Color("#4FA3D9")
	softGreen = lipgloss.Color("#8BC34A")
	amber     = lipgloss.Color("#FFC107")
	alertRed  = lipgloss.Color("#E53935")
	muted     = lipgloss.Color("#7A8594")
)

// Styles holds every lipgloss style the coach screens use.
type Styles struct {
	Title    lipgloss.Style
	Script   lipgloss.Style
	Circle   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Status   map[triage.Status]lipgloss.Style
}

// DefaultStyles returns the calm palette.
func DefaultStyles() Styles {
	badge := lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("#101F38"))
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(calmBlue),
		Script:   lipgloss.NewStyle().Italic(true).Padding(1, 2),
		Circle:   lipgloss.NewStyle().Foreground(calmBlue),
		Muted:    lipgloss.NewStyle().Foreground(muted),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(softGreen),
		Error:    lipgloss.NewStyle().Foreground(alertRed),
		Status: map[triage.Status]lipgloss.Style{
			triage.StatusGreen:  badge.Background(softGreen),
			triage.StatusYellow: badge.Background(amber),
			triage.StatusRed:    badge.Background(alertRed),
		},
	}
}
