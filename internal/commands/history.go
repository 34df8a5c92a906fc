package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rafabd1/cmd-ai/internal/memory"
	"github.com/rafabd1/cmd-ai/internal/tui"
)

// historyRows is how many of the newest exchanges !history shows.
const historyRows = 10

// HistoryCmd implements the !history command.
type HistoryCmd struct {
	Store *memory.Store
}

func (c *HistoryCmd) Name() string        { return "history" }
func (c *HistoryCmd) Description() string { return "Show command history" }

func (c *HistoryCmd) Execute(ctx context.Context, args []string, output io.Writer) error {
	entries := c.Store.Recent(historyRows)
	if len(entries) == 0 {
		fmt.Fprintln(output, tui.WarnStyle.Render("No command history found."))
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tui.MutedStyle).
		Headers("ID", "Query", "Response").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tui.TitleStyle
			}
			switch col {
			case 0:
				return tui.MutedStyle
			case 1:
				return tui.SuccessStyle
			}
			return tui.ResponseStyle
		})
	for i, e := range entries {
		t.Row(strconv.Itoa(i+1), e.Query, e.Response)
	}

	fmt.Fprintln(output, tui.TitleStyle.Render("Command History"))
	fmt.Fprintln(output, t.Render())
	return nil
}
