// Package tui provides the terminal user interface for interactive chat.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/linanwx/echochat/panel"
)

// Panel is a composable TUI region with its own state, update logic, and view.
// The root App model orchestrates panels without knowing their internals.
type Panel interface {
	Update(tea.Msg) (Panel, tea.Cmd)
	View() string
	SetSize(width, height int)
}

// LogLineMsg carries a single log line from the logger writer.
type LogLineMsg struct{ Line string }

// InputSubmitMsg is emitted when the user presses Enter in the input panel.
type InputSubmitMsg struct{ Text string }

// ResetMsg replaces every provider panel with the given snapshots.
type ResetMsg struct{ Snapshots []panel.Snapshot }

// RefreshMsg redraws the panel the snapshot belongs to.
type RefreshMsg struct{ Snapshot panel.Snapshot }

type sendDoneMsg struct{ err error }

type clearDoneMsg struct{ err error }
