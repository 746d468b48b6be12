package main

import "github.com/charmbracelet/lipgloss"

// Centralized style definitions for the TUI.
var (
	userPrefixStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")) // blue
	userBlockStyle  = lipgloss.NewStyle().PaddingLeft(1)

	answerPrefixStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")) // cyan
	answerBlockStyle  = lipgloss.NewStyle().PaddingLeft(1)

	sourceHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")) // yellow
	sourceTitleStyle  = lipgloss.NewStyle()
	sourceURLStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Underline(true)
	sourceBlockStyle  = lipgloss.NewStyle().
				PaddingLeft(1).
				BorderLeft(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("3"))

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")) // magenta
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray

	errorBlockStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("1")).
			Foreground(lipgloss.Color("1"))
)
