package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/rafabd1/cmd-ai/internal/tui"
)

// QuitCmd implements the !quit command.
type QuitCmd struct{}

func (c *QuitCmd) Name() string        { return "quit" }
func (c *QuitCmd) Description() string { return "Exit the tool" }

func (c *QuitCmd) Execute(ctx context.Context, args []string, output io.Writer) error {
	fmt.Fprintln(output, tui.SuccessStyle.Render("Goodbye!"))
	return ErrExitRequested
}
