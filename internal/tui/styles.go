package tui

import "github.com/charmbracelet/lipgloss"

var (
	purpleLight = lipgloss.Color("#9b87f5")
	purpleDark  = lipgloss.Color("#6E59A5")
	muted       = lipgloss.Color("#8E9196")
	danger      = lipgloss.Color("#ea384c")
)

type styles struct {
	Header     lipgloss.Style
	Pane       lipgloss.Style
	LocalBody  lipgloss.Style
	RemoteBody lipgloss.Style
	Label      lipgloss.Style
	Timestamp  lipgloss.Style
	Status     lipgloss.Style
	Error      lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Header:     lipgloss.NewStyle().Bold(true).Foreground(purpleLight).Padding(0, 1),
		Pane:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(purpleDark),
		LocalBody:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(purpleLight).Padding(0, 1),
		RemoteBody: lipgloss.NewStyle().Padding(0, 1),
		Label:      lipgloss.NewStyle().Bold(true).Foreground(purpleDark),
		Timestamp:  lipgloss.NewStyle().Foreground(muted),
		Status:     lipgloss.NewStyle().Foreground(muted).Padding(0, 1),
		Error:      lipgloss.NewStyle().Foreground(danger).Padding(0, 1),
	}
}
