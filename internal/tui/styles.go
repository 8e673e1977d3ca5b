package tui

import "github.com/charmbracelet/lipgloss"

// Color palette shared by prompts and the summary output.
var (
	PrimaryColor = lipgloss.Color("#00D4FF")
	SuccessColor = lipgloss.Color("#10B981")
	ErrorColor   = lipgloss.Color("#EF4444")
	WarningColor = lipgloss.Color("#F59E0B")
	MutedColor   = lipgloss.Color("#9CA3AF")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	LabelStyle = lipgloss.NewStyle().Bold(true)

	AnsweredStyle = lipgloss.NewStyle().Foreground(MutedColor)

	ErrorStyle = lipgloss.NewStyle().Foreground(ErrorColor)

	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(SuccessColor)

	HelpStyle = lipgloss.NewStyle().Foreground(MutedColor)

	CommandStyle = lipgloss.NewStyle().Foreground(PrimaryColor)
)
