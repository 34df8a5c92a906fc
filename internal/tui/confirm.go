package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// confirmModel asks a y/n question. Anything but y answers no.
type confirmModel struct {
	question    string
	answered    bool
	yes         bool
	interrupted bool
}

func newConfirmModel(question string) confirmModel {
	return confirmModel{question: question}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch strings.ToLower(key.String()) {
	case "y":
		m.answered, m.yes = true, true
		return m, tea.Quit
	case "n", "enter", "esc":
		m.answered = true
		return m, tea.Quit
	case "ctrl+c", "ctrl+d":
		m.interrupted = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	prompt := WarnStyle.Render(m.question+" ") + SuccessStyle.Render("y") + "/" + ErrorStyle.Render("n") + MutedStyle.Render(" (n) ")
	switch {
	case m.interrupted:
		return prompt + "\n"
	case m.answered && m.yes:
		return prompt + "y\n"
	case m.answered:
		return prompt + "n\n"
	}
	return prompt
}
