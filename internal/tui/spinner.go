package tui

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rafabd1/cmd-ai/pkg/events"
)

type spinnerModel struct {
	spinner spinner.Model
	label   string
	done    bool
}

func newSpinnerModel(label string) spinnerModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = AccentStyle
	return spinnerModel{spinner: sp, label: label}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case events.ResponseMsg:
		m.done = true
		return m, tea.Quit
	case events.StatusMsg:
		m.label = msg.Label
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + MutedStyle.Render(m.label)
}

// slowAfter is when the spinner label starts telling the user the wait is long.
const slowAfter = 15 * time.Second

type workResult struct {
	content string
	err     error
}

// runSpinner shows a spinner on out while work runs. The program never reads
// input so the terminal stays usable for signals.
func runSpinner(ctx context.Context, out io.Writer, label string, work func(context.Context) (string, error)) (string, error) {
	p := tea.NewProgram(newSpinnerModel(label),
		tea.WithInput(nil),
		tea.WithOutput(out),
		tea.WithContext(ctx),
	)

	slow := time.AfterFunc(slowAfter, func() {
		p.Send(events.StatusMsg{Label: label + " (this is taking a while)"})
	})
	defer slow.Stop()

	results := make(chan workResult, 1)
	go func() {
		content, err := work(ctx)
		results <- workResult{content: content, err: err}
		p.Send(events.ResponseMsg{Content: content, Err: err})
	}()

	// The program may end early on interrupt; the work result is authoritative.
	_, _ = p.Run()
	r := <-results
	return r.content, r.err
}
