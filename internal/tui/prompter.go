package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/rafabd1/cmd-ai/pkg/utils"
)

// ErrInterrupted is returned when the user presses Ctrl+C at a prompt.
var ErrInterrupted = errors.New("interrupted")

// Prompter reads user input. On a terminal it runs small bubbletea programs;
// otherwise it reads plain lines, which keeps piped input and tests working.
type Prompter struct {
	in          io.Reader
	out         io.Writer
	reader      *bufio.Reader
	interactive bool
	history     *LineHistory
}

// NewPrompter creates a prompter over in and out. history may be nil.
func NewPrompter(in io.Reader, out io.Writer, history *LineHistory) *Prompter {
	if history == nil {
		history = NewLineHistory("")
	}
	return &Prompter{
		in:          in,
		out:         out,
		reader:      bufio.NewReader(in),
		interactive: isTerminal(in) && isTerminal(out),
		history:     history,
	}
}

func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Interactive reports whether prompts use the terminal UI.
func (p *Prompter) Interactive() bool {
	return p.interactive
}

// ReadLine shows prompt and returns the entered line. It returns io.EOF at end
// of input and ErrInterrupted on Ctrl+C.
func (p *Prompter) ReadLine(ctx context.Context, prompt string) (string, error) {
	var line string
	var err error
	if p.interactive {
		line, err = p.runInput(ctx, PromptStyle.Render(prompt)+" ", p.history.Lines())
	} else {
		fmt.Fprint(p.out, PromptStyle.Render(prompt)+" ")
		line, err = p.readPlainLine()
	}
	if err != nil {
		return "", err
	}
	p.history.Add(strings.TrimSpace(line))
	return line, nil
}

// Prompt asks a free-text question. An empty answer yields def.
func (p *Prompter) Prompt(ctx context.Context, question, def string) (string, error) {
	label := question
	if def != "" {
		label += " " + MutedStyle.Render("("+utils.Truncate(strings.ReplaceAll(def, "\n", " "), 40)+")")
	}
	label += ": "

	var answer string
	var err error
	if p.interactive {
		answer, err = p.runInput(ctx, label, nil)
	} else {
		fmt.Fprint(p.out, label)
		answer, err = p.readPlainLine()
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return def, nil
	}
	return strings.TrimSpace(answer), nil
}

// Confirm asks a y/n question whose default is no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	if !p.interactive {
		fmt.Fprint(p.out, WarnStyle.Render(question)+" y/n (n) ")
		answer, err := p.readPlainLine()
		if err != nil {
			if err == io.EOF {
				return false, nil
			}
			return false, err
		}
		a := strings.ToLower(strings.TrimSpace(answer))
		return a == "y" || a == "yes", nil
	}

	final, err := tea.NewProgram(newConfirmModel(question),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
		tea.WithContext(ctx),
	).Run()
	if err != nil {
		return false, p.programError(ctx, err)
	}
	m := final.(confirmModel)
	if m.interrupted {
		return false, ErrInterrupted
	}
	return m.yes, nil
}

// Spin runs work while a spinner labelled label is shown.
func (p *Prompter) Spin(ctx context.Context, label string, work func(context.Context) (string, error)) (string, error) {
	if !p.interactive {
		return work(ctx)
	}
	return runSpinner(ctx, p.out, label, work)
}

// Markdown renders an LLM reply for display.
func (p *Prompter) Markdown(text string) string {
	if !p.interactive {
		return ResponseStyle.Render(text)
	}
	return RenderMarkdown(text, defaultWrap)
}

// SaveHistory persists the REPL input history.
func (p *Prompter) SaveHistory() error {
	return p.history.Save()
}

func (p *Prompter) runInput(ctx context.Context, prompt string, history []string) (string, error) {
	final, err := tea.NewProgram(newInputModel(prompt, history),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
		tea.WithContext(ctx),
	).Run()
	if err != nil {
		return "", p.programError(ctx, err)
	}
	m := final.(inputModel)
	switch m.outcome {
	case inputInterrupted:
		return "", ErrInterrupted
	case inputEOF:
		return "", io.EOF
	}
	return m.Value(), nil
}

func (p *Prompter) programError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, tea.ErrProgramKilled) {
		return ErrInterrupted
	}
	return errors.Wrap(err, "terminal prompt failed")
}

func (p *Prompter) readPlainLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
