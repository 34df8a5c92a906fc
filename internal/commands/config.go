package commands

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/pkg/errors"

	"github.com/rafabd1/cmd-ai/internal/config"
	"github.com/rafabd1/cmd-ai/internal/tui"
	"github.com/rafabd1/cmd-ai/pkg/utils"
)

// ConfigCmd implements the !config command: a one-shot menu that edits a
// single setting and saves the file.
type ConfigCmd struct {
	Config   func() *config.Config
	Path     string
	Prompter Prompter
	// OnChange receives the new configuration after it has been saved.
	OnChange func(*config.Config)
}

func (c *ConfigCmd) Name() string        { return "config" }
func (c *ConfigCmd) Description() string { return "Configure the tool" }

func (c *ConfigCmd) Execute(ctx context.Context, args []string, output io.Writer) error {
	current := c.Config()
	updated := current.Clone()

	enabled := "Disabled"
	if current.AutoRun() {
		enabled = "Enabled"
	}
	summary := fmt.Sprintf("Current model: %s\nCurrent API URL: %s\nRun command prompt: %s\nCurrent prompt: %s",
		tui.CommandStyle.Render(current.Model),
		tui.CommandStyle.Render(current.URL),
		tui.CommandStyle.Render(enabled),
		tui.CommandStyle.Render(utils.Truncate(strings.ReplaceAll(current.PromptPrefix, "\n", " "), 53)),
	)
	fmt.Fprintln(output, tui.Panel("Command AI Configuration", summary))
	fmt.Fprintln(output, "What would you like to change?\n"+
		"  1. Model name\n"+
		"  2. API URL\n"+
		"  3. Prompt prefix\n"+
		"  4. Toggle run command prompt\n"+
		"  5. Save and exit")

	choice, err := c.Prompter.Prompt(ctx, "Enter your choice (1-5)", "5")
	if err != nil {
		return err
	}

	switch strings.TrimSpace(choice) {
	case "1":
		model, err := c.Prompter.Prompt(ctx, "Enter new model name", current.Model)
		if err != nil {
			return err
		}
		if model != "" {
			updated.Model = model
		}
	case "2":
		url, err := c.Prompter.Prompt(ctx, "Enter new API URL", current.URL)
		if err != nil {
			return err
		}
		if url != "" {
			updated.URL = strings.TrimRight(url, "/")
		}
	case "3":
		fmt.Fprintf(output, "\nCurrent prompt prefix:\n%s\n", tui.MutedStyle.Render(current.PromptPrefix))
		prefix, err := c.Prompter.Prompt(ctx, "Enter new prompt prefix", current.PromptPrefix)
		if err != nil {
			return err
		}
		if prefix != "" {
			updated.PromptPrefix = prefix
		}
	case "4":
		updated.SetAutoRun(!current.AutoRun())
		state := "enabled"
		if current.AutoRun() {
			state = "disabled"
		}
		fmt.Fprintln(output, tui.SuccessStyle.Render("Run command prompt "+state+"."))
	case "5":
	default:
		fmt.Fprintln(output, tui.ErrorStyle.Render("Invalid choice. Configuration not saved."))
		return nil
	}

	if reflect.DeepEqual(current, updated) {
		fmt.Fprintln(output, tui.WarnStyle.Render("No changes made to configuration."))
		return nil
	}

	if err := updated.Save(c.Path); err != nil {
		return errors.Wrap(err, "configuration not saved")
	}
	if c.OnChange != nil {
		c.OnChange(updated)
	}
	fmt.Fprintln(output, tui.SuccessStyle.Render("Configuration saved."))
	return nil
}
