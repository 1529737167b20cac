package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	checkedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("247"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Faint(true)
)
