package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent  = lipgloss.Color("#2E7D32")
	muted   = lipgloss.Color("245")
	danger  = lipgloss.Color("#C62828")
	warning = lipgloss.Color("#F9A825")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(accent)
	subtitleStyle = lipgloss.NewStyle().Italic(true).Foreground(muted)
	mutedStyle    = lipgloss.NewStyle().Foreground(muted)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	checkedStyle  = lipgloss.NewStyle().Strikethrough(true).Foreground(muted)
	errorStyle    = lipgloss.NewStyle().Foreground(danger)
	countStyle    = lipgloss.NewStyle().Bold(true).Foreground(warning)
	helpStyle     = lipgloss.NewStyle().Foreground(muted).MarginTop(1)

	toastStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(accent)

	reviewStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(warning).
			Padding(0, 1).
			MarginTop(1)
)

const (
	boxUnchecked = "☐"
	boxChecked   = "☑"
)
