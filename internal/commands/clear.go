package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/rafabd1/cmd-ai/internal/memory"
	"github.com/rafabd1/cmd-ai/internal/tui"
)

// ClearCmd implements the !clear command.
type ClearCmd struct {
	Store *memory.Store
}

func (c *ClearCmd) Name() string        { return "clear" }
func (c *ClearCmd) Description() string { return "Clear command history" }

func (c *ClearCmd) Execute(ctx context.Context, args []string, output io.Writer) error {
	c.Store.Clear()
	if err := c.Store.Save(); err != nil {
		return errors.Wrap(err, "history cleared for this session only")
	}
	fmt.Fprintln(output, tui.SuccessStyle.Render("History cleared."))
	return nil
}
