package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/linanwx/echochat/config"
	"github.com/linanwx/echochat/dispatch"
	"github.com/linanwx/echochat/logger"
	"github.com/linanwx/echochat/panel"
	"github.com/linanwx/echochat/selection"
	"github.com/linanwx/echochat/termmd"
)

const (
	defaultLogRatio = 0.25
	noticeHeight    = 4
)

const helpText = `Commands:
/select   choose providers and models
/stream   toggle streaming
/reason   toggle reasoning
/clear    clear conversation history
/logs     show or hide the log strip
/quit     exit`

var (
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	busyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Options wires an App to the send pipeline.
type Options struct {
	Controller *dispatch.Controller
	Panels     *panel.Reconciler
	Catalog    []config.CatalogEntry
	Selection  selection.Selection
	Streaming  bool
	Reasoning  bool
	Styles     termmd.Styles
	// SaveSelection persists a selection picked with /select. Optional.
	SaveSelection func(selection.Selection) error
}

// App is the root bubbletea model: one column per provider, a notice
// strip, an optional log strip and the input line.
type App struct {
	ctx     context.Context
	ctrl    *dispatch.Controller
	panels  *panel.Reconciler
	catalog []config.CatalogEntry
	save    func(selection.Selection) error
	styles  termmd.Styles

	sel       selection.Selection
	streaming bool
	reasoning bool

	providerPanels []*ChatPanel
	noticePanel    *ChatPanel
	logPanel       Panel
	inputPanel     *InputPanel
	form           *SelectionForm

	width, height int
	logRatio      float64
	showLogs      bool
}

// NewApp creates the root TUI model. The reconciler is primed with the
// initial selection so the first send does not rebuild the panels.
func NewApp(ctx context.Context, opts Options) *App {
	m := &App{
		ctx:        ctx,
		ctrl:       opts.Controller,
		panels:     opts.Panels,
		catalog:    opts.Catalog,
		save:       opts.SaveSelection,
		styles:     opts.Styles,
		sel:        opts.Selection,
		streaming:  opts.Streaming,
		reasoning:  opts.Reasoning,
		logPanel:   NewLogPanel(),
		inputPanel: NewInputPanel("echochat> "),
		logRatio:   defaultLogRatio,
		showLogs:   true,
	}
	m.panels.EnsurePanels(m.sel.Providers())
	m.rebuild(m.panels.Snapshots())
	return m
}

func (m *App) Init() tea.Cmd {
	return textinput.Blink
}

func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.form != nil {
			m.form.Form = m.form.Form.WithWidth(msg.Width)
		}
		return m, nil

	case ResetMsg:
		m.rebuild(msg.Snapshots)
		m.recalcLayout()
		return m, nil

	case RefreshMsg:
		return m, m.refresh(msg)

	case LogLineMsg:
		p, cmd := m.logPanel.Update(msg)
		m.logPanel = p
		return m, cmd

	case sendDoneMsg, clearDoneMsg:
		// Failures were already logged and surfaced as notices.
		return m, nil

	case InputSubmitMsg:
		return m, m.submit(msg.Text)

	case tea.KeyMsg:
		if m.form != nil {
			if msg.Type == tea.KeyEsc || msg.Type == tea.KeyCtrlC {
				m.form = nil
				return m, nil
			}
			return m.updateForm(msg)
		}
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyPgUp, tea.KeyPgDown:
			return m, m.scroll(msg)
		}
		p, cmd := m.inputPanel.Update(msg)
		m.inputPanel = p.(*InputPanel)
		cmds = append(cmds, cmd)

	case tea.MouseMsg:
		return m, m.scroll(msg)

	default:
		if m.form != nil {
			return m.updateForm(msg)
		}
		// Unknown messages go to the input panel (e.g. cursor blink).
		p, cmd := m.inputPanel.Update(msg)
		m.inputPanel = p.(*InputPanel)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := m.form.Form.Update(msg)
	if f, ok := model.(*huh.Form); ok {
		m.form.Form = f
	}
	switch m.form.Form.State {
	case huh.StateCompleted:
		sel := m.form.Selection()
		m.form = nil
		return m, m.applySelection(sel)
	case huh.StateAborted:
		m.form = nil
		return m, nil
	}
	return m, cmd
}

func (m *App) scroll(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	for i, p := range m.providerPanels {
		next, cmd := p.Update(msg)
		m.providerPanels[i] = next.(*ChatPanel)
		cmds = append(cmds, cmd)
	}
	if m.showLogs {
		p, cmd := m.logPanel.Update(msg)
		m.logPanel = p
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (m *App) rebuild(snaps []panel.Snapshot) {
	m.providerPanels = m.providerPanels[:0]
	for _, s := range snaps {
		if s.IsNotice() {
			m.noticePanel = NewChatPanel(s, "", m.styles)
			continue
		}
		model, _ := m.sel.Model(s.Provider)
		m.providerPanels = append(m.providerPanels, NewChatPanel(s, model, m.styles))
	}
	if m.noticePanel == nil {
		m.noticePanel = NewChatPanel(panel.Snapshot{Title: "Notices"}, "", m.styles)
	}
}

func (m *App) refresh(msg RefreshMsg) tea.Cmd {
	if msg.Snapshot.IsNotice() {
		_, cmd := m.noticePanel.Update(msg)
		return cmd
	}
	for _, p := range m.providerPanels {
		if p.Provider() == msg.Snapshot.Provider {
			_, cmd := p.Update(msg)
			return cmd
		}
	}
	return nil
}

// submit turns an input line into a command or a send. Reconciler calls
// happen inside tea.Cmds because the surface feeds back into this loop.
func (m *App) submit(text string) tea.Cmd {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/") || text == "exit" || text == "quit" {
		return m.command(text)
	}

	ctx, ctrl := m.ctx, m.ctrl
	req := dispatch.Request{
		Message:   text,
		Selection: m.sel,
		Streaming: m.streaming,
		Reasoning: m.reasoning,
	}
	return func() tea.Msg {
		return sendDoneMsg{err: ctrl.Send(ctx, req)}
	}
}

func (m *App) command(line string) tea.Cmd {
	fields := strings.Fields(line)
	name := strings.TrimPrefix(fields[0], "/")
	switch name {
	case "quit", "exit":
		return tea.Quit
	case "help":
		return m.notice(helpText, false)
	case "stream":
		m.streaming = toggle(m.streaming, fields[1:])
		return m.notice("Streaming "+onOff(m.streaming)+".", false)
	case "reason":
		m.reasoning = toggle(m.reasoning, fields[1:])
		return m.notice("Reasoning "+onOff(m.reasoning)+".", false)
	case "logs":
		m.showLogs = !m.showLogs
		m.recalcLayout()
		return nil
	case "clear":
		ctx, ctrl, sel := m.ctx, m.ctrl, m.sel
		return func() tea.Msg {
			return clearDoneMsg{err: ctrl.ClearHistory(ctx, sel)}
		}
	case "select":
		m.form = NewSelectionForm(m.catalog, m.sel)
		if m.width > 0 {
			m.form.Form = m.form.Form.WithWidth(m.width)
		}
		return m.form.Form.Init()
	default:
		return m.notice(fmt.Sprintf("Unknown command: %s. Type /help.", fields[0]), true)
	}
}

func (m *App) applySelection(sel selection.Selection) tea.Cmd {
	m.sel = sel
	panels, save := m.panels, m.save
	return func() tea.Msg {
		if !selection.EqualProviders(panels.Providers(), sel.Providers()) {
			panels.EnsurePanels(sel.Providers())
		}
		text := "Selection: " + sel.String()
		if sel.Empty() {
			text = "Selection: none"
		}
		if save != nil {
			if err := save(sel); err != nil {
				logger.Warn("save selection failed", "err", err)
				panels.Notice("Error: unable to save selection: "+err.Error(), true)
				return nil
			}
			text += " (saved)"
		}
		panels.Notice(text, false)
		return nil
	}
}

func (m *App) notice(text string, isError bool) tea.Cmd {
	panels := m.panels
	return func() tea.Msg {
		panels.Notice(text, isError)
		return nil
	}
}

func (m *App) View() string {
	if m.width == 0 || m.height == 0 {
		return "initializing..."
	}

	sep := separatorStyle.Render(strings.Repeat("─", m.width))
	if m.form != nil {
		return lipgloss.JoinVertical(lipgloss.Left, m.form.Form.View(), sep, m.statusLine())
	}

	sections := []string{m.columnsView(), sep, m.noticePanel.View(), sep}
	if m.showLogs {
		sections = append(sections, m.logPanel.View(), sep)
	}
	sections = append(sections, m.statusLine(), m.inputPanel.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *App) columnsView() string {
	h := m.mainHeight()
	if len(m.providerPanels) == 0 {
		return lipgloss.NewStyle().Width(m.width).Height(h).
			Render(statusStyle.Render("No providers selected. Use /select."))
	}
	w := m.columnWidth()
	cell := lipgloss.NewStyle().Width(w).Height(h).MaxHeight(h)
	divider := separatorStyle.Render(strings.TrimSuffix(strings.Repeat("│\n", h), "\n"))

	cols := make([]string, 0, 2*len(m.providerPanels))
	for i, p := range m.providerPanels {
		if i > 0 {
			cols = append(cols, divider)
		}
		cols = append(cols, cell.Render(p.View()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m *App) statusLine() string {
	parts := []string{
		"stream " + onOff(m.streaming),
		"reasoning " + onOff(m.reasoning),
	}
	if m.sel.Empty() {
		parts = append(parts, "no providers")
	} else {
		parts = append(parts, m.sel.String())
	}
	line := statusStyle.Render(strings.Join(parts, " · "))
	if m.ctrl.State() == dispatch.StateAwaitingResponse {
		line += " " + busyStyle.Render("waiting for response…")
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(line)
}

func (m *App) logHeight(usable int) int {
	if !m.showLogs {
		return 0
	}
	return max(int(float64(usable)*m.logRatio), 1)
}

func (m *App) usableHeight() int {
	const inputH, statusH = 1, 1
	seps := 2
	if m.showLogs {
		seps = 3
	}
	return max(m.height-inputH-statusH-seps, 4)
}

func (m *App) mainHeight() int {
	usable := m.usableHeight()
	return max(usable-m.logHeight(usable)-noticeHeight, 2)
}

func (m *App) columnWidth() int {
	n := len(m.providerPanels)
	if n == 0 {
		return m.width
	}
	return max((m.width-(n-1))/n, 1)
}

func (m *App) recalcLayout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	usable := m.usableHeight()
	mainH := m.mainHeight()
	colW := m.columnWidth()

	for _, p := range m.providerPanels {
		p.SetSize(colW, mainH)
	}
	m.noticePanel.SetSize(m.width, noticeHeight)
	m.logPanel.SetSize(m.width, m.logHeight(usable))
	m.inputPanel.SetSize(m.width, 1)
}

func toggle(cur bool, args []string) bool {
	if len(args) == 0 {
		return !cur
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}
	return !cur
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
