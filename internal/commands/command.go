package commands

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// Prefix marks REPL input as a built-in command rather than a question.
const Prefix = "!"

// ErrExitRequested is returned by a command that ends the session.
var ErrExitRequested = errors.New("exit requested")

// Command defines the interface for executable !commands.
type Command interface {
	Name() string        // Returns the command name (e.g., "help")
	Description() string // Returns a brief description
	// Executes the command, writing output to the provided writer.
	Execute(ctx context.Context, args []string, output io.Writer) error
}

// Prompter asks the user a free-text question. An empty answer yields def.
type Prompter interface {
	Prompt(ctx context.Context, question, def string) (string, error)
}
