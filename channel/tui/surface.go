package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/linanwx/echochat/panel"
)

// Surface forwards reconciler output into a running program. It must only
// be driven from outside the program's event loop (tea.Cmd goroutines),
// since tea.Program.Send blocks until the loop receives the message.
type Surface struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

// NewSurface returns a Surface that drops output until Attach is called.
func NewSurface() *Surface {
	return &Surface{}
}

// Attach binds the surface to a program.
func (s *Surface) Attach(p *tea.Program) {
	s.AttachFunc(p.Send)
}

// AttachFunc binds the surface to an arbitrary message sink.
func (s *Surface) AttachFunc(send func(tea.Msg)) {
	s.mu.Lock()
	s.send = send
	s.mu.Unlock()
}

func (s *Surface) Reset(snaps []panel.Snapshot) {
	s.emit(ResetMsg{Snapshots: snaps})
}

func (s *Surface) Refresh(snap panel.Snapshot) {
	s.emit(RefreshMsg{Snapshot: snap})
}

func (s *Surface) emit(msg tea.Msg) {
	s.mu.RLock()
	send := s.send
	s.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}
