package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rafabd1/cmd-ai/internal/config"
	"github.com/rafabd1/cmd-ai/internal/tui"
)

var helpExamples = []string{
	"How do I find files modified in the last 24 hours?",
	"What's the command to check disk space usage?",
	"How can I extract a tar.gz file?",
}

// HelpCmd implements the !help command.
type HelpCmd struct {
	Registry *Registry
	Config   func() *config.Config
}

func (c *HelpCmd) Name() string        { return "help" }
func (c *HelpCmd) Description() string { return "Show this help" }

func (c *HelpCmd) Execute(ctx context.Context, args []string, output io.Writer) error {
	var b strings.Builder
	b.WriteString("This tool helps you find the right bash commands by asking an AI.\n\n")
	b.WriteString(tui.CommandStyle.Render("Available commands:") + "\n")

	cmds := c.Registry.GetAll()
	width := 0
	for _, cmd := range cmds {
		if n := len(cmd.Name()) + len(Prefix); n > width {
			width = n
		}
	}
	for _, cmd := range cmds {
		name := fmt.Sprintf("%-*s", width, Prefix+cmd.Name())
		fmt.Fprintf(&b, "  %s - %s\n", tui.AccentStyle.Render(name), cmd.Description())
	}
	b.WriteString("\nOr just type your question about a bash command and press Enter.\n")

	if c.Config != nil {
		if c.Config().AutoRun() {
			b.WriteString("\nCommand execution prompt is currently " + tui.SuccessStyle.Render("enabled") + ".\n")
		} else {
			b.WriteString("\nCommand execution prompt is currently " + tui.ErrorStyle.Render("not enabled") + ".\n")
		}
		b.WriteString("When enabled, you'll be asked whether to run each command after receiving it.\n")
		b.WriteString("You can toggle this feature in the configuration menu (" + Prefix + "config).\n")
	}

	b.WriteString("\n" + tui.CommandStyle.Render("Examples:") + "\n")
	for _, ex := range helpExamples {
		b.WriteString("  " + ex + "\n")
	}

	fmt.Fprintln(output, tui.Panel("Command AI Help", b.String()))
	return nil
}
