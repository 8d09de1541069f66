package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxInputHistory = 100

// InputPanel provides a single-line text input. Up and Down walk through
// previously submitted lines.
type InputPanel struct {
	input         textinput.Model
	width, height int

	history []string
	cursor  int // len(history) when not browsing
}

// NewInputPanel creates an input panel with the given prompt.
func NewInputPanel(prompt string) *InputPanel {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = "message, or /help"
	ti.Focus()
	return &InputPanel{input: ti}
}

func (p *InputPanel) Update(msg tea.Msg) (Panel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			text := p.input.Value()
			if text == "" {
				return p, nil
			}
			p.remember(text)
			p.input.Reset()
			return p, func() tea.Msg { return InputSubmitMsg{Text: text} }
		case tea.KeyUp:
			p.browse(-1)
			return p, nil
		case tea.KeyDown:
			p.browse(1)
			return p, nil
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p *InputPanel) remember(text string) {
	if n := len(p.history); n == 0 || p.history[n-1] != text {
		p.history = append(p.history, text)
	}
	if len(p.history) > maxInputHistory {
		p.history = p.history[len(p.history)-maxInputHistory:]
	}
	p.cursor = len(p.history)
}

func (p *InputPanel) browse(delta int) {
	if len(p.history) == 0 {
		return
	}
	p.cursor = min(max(p.cursor+delta, 0), len(p.history))
	if p.cursor == len(p.history) {
		p.input.SetValue("")
		return
	}
	p.input.SetValue(p.history[p.cursor])
	p.input.CursorEnd()
}

// Value returns the current unsent text.
func (p *InputPanel) Value() string { return p.input.Value() }

func (p *InputPanel) View() string {
	return p.input.View()
}

func (p *InputPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.input.Width = width - lipgloss.Width(p.input.Prompt) - 1
}
