package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"

	"github.com/rafabd1/cmd-ai/internal/task"
	"github.com/rafabd1/cmd-ai/internal/tui"
	"github.com/rafabd1/cmd-ai/pkg/utils"
)

const (
	shortIDLen     = 8
	taskOutputTail = 20
)

// TaskCmd implements the !task command: it lists the commands executed in
// this session and shows the details of one of them.
type TaskCmd struct {
	Manager func() task.ExecutionManager
}

func (c *TaskCmd) Name() string { return "task" }

func (c *TaskCmd) Description() string {
	return "List commands run this session (!task status <id> for details)"
}

func (c *TaskCmd) Execute(ctx context.Context, args []string, output io.Writer) error {
	m := c.Manager()
	if m == nil {
		return errors.New("execution manager is not available")
	}

	if len(args) == 0 {
		c.list(m, output)
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "status":
		if len(args) < 2 {
			fmt.Fprintln(output, tui.WarnStyle.Render("Usage: "+Prefix+"task status <id>"))
			return nil
		}
		t, err := findTask(m, args[1])
		if err != nil {
			fmt.Fprintln(output, tui.ErrorStyle.Render(err.Error()))
			return nil
		}
		printTask(t, output)
	default:
		fmt.Fprintln(output, tui.WarnStyle.Render(fmt.Sprintf("Unknown task subcommand: %s", args[0])))
		fmt.Fprintln(output, c.Description())
	}
	return nil
}

func (c *TaskCmd) list(m task.ExecutionManager, output io.Writer) {
	tasks := m.ListTasks()
	if len(tasks) == 0 {
		fmt.Fprintln(output, tui.WarnStyle.Render("No commands executed this session."))
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tui.MutedStyle).
		Headers("ID", "Command", "Status", "Exit", "Duration").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tui.TitleStyle
			}
			if col == 0 {
				return tui.MutedStyle
			}
			return lipgloss.NewStyle()
		})
	for _, tk := range tasks {
		exit, duration := "-", "-"
		if tk.Finished() {
			exit = strconv.Itoa(tk.ExitCode)
			duration = tk.EndTime.Sub(tk.StartTime).Round(time.Millisecond).String()
		}
		t.Row(shortID(tk.ID), utils.Truncate(utils.FirstLine(tk.CommandString), 50), string(tk.Status), exit, duration)
	}

	fmt.Fprintln(output, tui.TitleStyle.Render("Session Commands"))
	fmt.Fprintln(output, t.Render())
	if summary := m.GetRunningTasksSummary(); summary != "" {
		fmt.Fprintln(output, tui.WarnStyle.Render(summary))
	}
}

// findTask resolves a full task ID or a unique prefix of one.
func findTask(m task.ExecutionManager, id string) (*task.Task, error) {
	if t, err := m.GetTaskStatus(id); err == nil {
		return t, nil
	}
	var match *task.Task
	for _, t := range m.ListTasks() {
		if !strings.HasPrefix(t.ID, id) {
			continue
		}
		if match != nil {
			return nil, errors.Errorf("task id %q is ambiguous", id)
		}
		match = t
	}
	if match == nil {
		return nil, errors.Wrapf(task.ErrTaskNotFound, "task %q", id)
	}
	return match, nil
}

func printTask(t *task.Task, output io.Writer) {
	fmt.Fprintln(output, tui.TitleStyle.Render(fmt.Sprintf("Task %s", t.ID)))
	fmt.Fprintf(output, "Command: %s\n", t.CommandString)
	fmt.Fprintf(output, "Status: %s\n", t.Status)
	fmt.Fprintf(output, "Interactive: %t\n", t.IsInteractive)
	fmt.Fprintf(output, "Start Time: %s\n", t.StartTime.Format(time.RFC3339))
	if t.Finished() {
		fmt.Fprintf(output, "Duration: %s\n", t.EndTime.Sub(t.StartTime).Round(time.Millisecond))
		fmt.Fprintf(output, "Exit Code: %d\n", t.ExitCode)
	}
	if t.Error != nil {
		fmt.Fprintln(output, tui.ErrorStyle.Render(fmt.Sprintf("Execution Error: %v", t.Error)))
	}
	printTail(output, "Output", t.Stdout.String())
	printTail(output, "Errors", t.Stderr.String())
}

func printTail(output io.Writer, label, text string) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}
	lines := strings.Split(text, "\n")
	if len(lines) > taskOutputTail {
		lines = lines[len(lines)-taskOutputTail:]
	}
	fmt.Fprintln(output, tui.MutedStyle.Render(fmt.Sprintf("--- %s (last %d lines) ---", label, len(lines))))
	fmt.Fprintln(output, strings.Join(lines, "\n"))
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}
