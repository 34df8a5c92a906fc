package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	PanelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("6")).Padding(0, 1)
	PromptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	ResponseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	CommandStyle  = lipgloss.NewStyle().Bold(true)
	AccentStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	SuccessStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	WarnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	ErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	MutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

const ruleWidth = 43

// Panel draws body inside a rounded border with a title line.
func Panel(title, body string) string {
	return PanelStyle.Render(TitleStyle.Render(title) + "\n" + strings.TrimRight(body, "\n"))
}

// Rule is the separator printed around an extracted command.
func Rule() string {
	return WarnStyle.Render(strings.Repeat("─", ruleWidth))
}
