package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).MarginBottom(1)

	labelStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	focusedLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)

	buttonStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("240"))
	focusedButtonStyle = buttonStyle.Background(lipgloss.Color("63")).Bold(true)
	busyButtonStyle    = buttonStyle.Foreground(lipgloss.Color("250")).Background(lipgloss.Color("238"))

	successNoticeStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(lipgloss.Color("255")).
				Background(lipgloss.Color("28"))
	errorNoticeStyle = successNoticeStyle.Background(lipgloss.Color("124"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)
)
