package events

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ResponseMsg is sent to a running program when the background work it is
// waiting on has finished.
type ResponseMsg struct {
	Content string
	Err     error
}

// StatusMsg replaces the label shown next to a spinner.
type StatusMsg struct {
	Label string
}

var _ tea.Msg = ResponseMsg{}
var _ tea.Msg = StatusMsg{}
