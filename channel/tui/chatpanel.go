package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/linanwx/echochat/internal/tokens"
	"github.com/linanwx/echochat/panel"
	"github.com/linanwx/echochat/termmd"
)

const receivingGlyph = "●"

var (
	userMsgStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6")) // cyan
	errorMsgStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	titleStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	glyphStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// ChatPanel renders one provider's conversation in a scrollable viewport,
// under a header showing the provider, model and reply token count.
type ChatPanel struct {
	viewport viewport.Model
	snap     panel.Snapshot
	model    string
	styles   termmd.Styles
	width    int
	replyTok int
}

// NewChatPanel creates a panel for snap.
func NewChatPanel(snap panel.Snapshot, model string, styles termmd.Styles) *ChatPanel {
	vp := viewport.New(0, 0)
	p := &ChatPanel{viewport: vp, snap: snap, model: model, styles: styles}
	p.render()
	return p
}

// Provider returns the provider key the panel displays.
func (p *ChatPanel) Provider() string { return p.snap.Provider }

// Snapshot returns the last snapshot drawn.
func (p *ChatPanel) Snapshot() panel.Snapshot { return p.snap }

func (p *ChatPanel) Update(msg tea.Msg) (Panel, tea.Cmd) {
	switch msg := msg.(type) {
	case RefreshMsg:
		if msg.Snapshot.Provider != p.snap.Provider {
			return p, nil
		}
		p.snap = msg.Snapshot
		p.render()
		p.viewport.GotoBottom()
		return p, nil
	}
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *ChatPanel) View() string {
	return p.header() + "\n" + p.viewport.View()
}

func (p *ChatPanel) SetSize(width, height int) {
	p.width = width
	p.viewport.Width = width
	p.viewport.Height = max(height-1, 1)
	p.render()
}

func (p *ChatPanel) header() string {
	parts := []string{titleStyle.Render(p.snap.Title)}
	if model := p.currentModel(); model != "" {
		parts = append(parts, dimStyle.Render(model))
	}
	if !p.snap.IsNotice() {
		parts = append(parts, dimStyle.Render(fmt.Sprintf("%d tok", p.replyTok)))
	}
	if p.snap.Receiving {
		parts = append(parts, glyphStyle.Render(receivingGlyph))
	}
	return lipgloss.NewStyle().MaxWidth(max(p.width, 1)).Render(strings.Join(parts, " "))
}

// currentModel is the model named by the latest reply, falling back to the
// selected model.
func (p *ChatPanel) currentModel() string {
	for i := len(p.snap.Bubbles) - 1; i >= 0; i-- {
		b := p.snap.Bubbles[i]
		if !b.IsUser() && b.Model != "" {
			return b.Model
		}
	}
	return p.model
}

func (p *ChatPanel) replyTokens() int {
	n := 0
	for _, b := range p.snap.Bubbles {
		if !b.IsUser() {
			n += tokens.Count(b.Text)
		}
	}
	return n
}

func (p *ChatPanel) render() {
	wrap := lipgloss.NewStyle()
	if p.width > 0 {
		wrap = wrap.Width(p.width)
	}
	blocks := make([]string, 0, len(p.snap.Bubbles))
	for _, b := range p.snap.Bubbles {
		blocks = append(blocks, wrap.Render(p.bubble(b)))
	}
	p.viewport.SetContent(strings.Join(blocks, "\n\n"))
	p.replyTok = p.replyTokens()
}

func (p *ChatPanel) bubble(b panel.Bubble) string {
	switch {
	case b.IsUser():
		return userMsgStyle.Render("> " + b.Text)
	case p.snap.IsNotice():
		if b.IsError {
			return errorMsgStyle.Render(b.Text)
		}
		return noticeStyle.Render(b.Text)
	}

	body := termmd.Render(b.Text, p.styles)
	if b.IsError {
		body = errorMsgStyle.Render(b.Text)
	}
	if b.Model == "" {
		return body
	}
	return dimStyle.Render(p.snap.Title+": "+b.Model) + "\n" + body
}
