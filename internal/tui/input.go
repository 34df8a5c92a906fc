package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type inputOutcome int

const (
	inputPending inputOutcome = iota
	inputSubmitted
	inputInterrupted
	inputEOF
)

// inputModel reads one line with up/down recall of earlier lines.
type inputModel struct {
	input   textinput.Model
	outcome inputOutcome

	history []string
	histIdx int    // -1 while editing a fresh line
	histBuf string // the fresh line saved while browsing history
}

func newInputModel(prompt string, history []string) inputModel {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.CharLimit = 0
	ti.Focus()
	return inputModel{input: ti, history: history, histIdx: -1}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC:
			m.outcome = inputInterrupted
			return m, tea.Quit
		case tea.KeyCtrlD:
			if m.input.Value() == "" {
				m.outcome = inputEOF
				return m, tea.Quit
			}
		case tea.KeyEnter:
			m.outcome = inputSubmitted
			return m, tea.Quit
		case tea.KeyUp:
			m.recallOlder()
			return m, nil
		case tea.KeyDown:
			m.recallNewer()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *inputModel) recallOlder() {
	if len(m.history) == 0 {
		return
	}
	switch {
	case m.histIdx == -1:
		m.histBuf = m.input.Value()
		m.histIdx = len(m.history) - 1
	case m.histIdx > 0:
		m.histIdx--
	}
	m.input.SetValue(m.history[m.histIdx])
	m.input.CursorEnd()
}

func (m *inputModel) recallNewer() {
	if m.histIdx == -1 {
		return
	}
	if m.histIdx < len(m.history)-1 {
		m.histIdx++
		m.input.SetValue(m.history[m.histIdx])
	} else {
		m.histIdx = -1
		m.input.SetValue(m.histBuf)
	}
	m.input.CursorEnd()
}

// Value returns the current line.
func (m inputModel) Value() string {
	return m.input.Value()
}

func (m inputModel) View() string {
	if m.outcome != inputPending {
		// Leave the prompt and the final text on screen without a cursor.
		return m.input.Prompt + m.input.Value() + "\n"
	}
	return m.input.View()
}
