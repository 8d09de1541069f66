package channel

import (
	"bytes"
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/linanwx/echochat/channel/tui"
	"github.com/linanwx/echochat/logger"
	"github.com/linanwx/echochat/panel"
	"github.com/linanwx/echochat/selection"
	"github.com/linanwx/echochat/termmd"
)

// TUIChannel runs the multi-column bubbletea interface.
type TUIChannel struct {
	opts Options
}

func newTUIChannel(opts Options) *TUIChannel {
	return &TUIChannel{opts: opts}
}

func (c *TUIChannel) Name() string { return "tui" }

func (c *TUIChannel) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := c.opts.Config
	surface := tui.NewSurface()
	panels := panel.NewReconciler(surface)
	app := tui.NewApp(ctx, tui.Options{
		Controller: c.opts.controller(panels),
		Panels:     panels,
		Catalog:    cfg.Catalog,
		Selection:  c.opts.Selection,
		Streaming:  c.opts.Streaming,
		Reasoning:  c.opts.Reasoning,
		Styles:     termmd.DefaultStyles(),
		SaveSelection: func(sel selection.Selection) error {
			cfg.SetSelection(sel)
			return cfg.Save()
		},
	})

	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	surface.Attach(program)

	// Redirect logger output to the TUI log panel.
	logger.Intercept(&logWriter{program: program})
	defer logger.Restore()

	logger.Info("cli channel started (TUI mode)")
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// logWriter implements io.Writer and sends each write as a LogLineMsg to the TUI.
type logWriter struct {
	program *tea.Program
}

func (w *logWriter) Write(p []byte) (int, error) {
	// Split on newlines in case a single write contains multiple lines.
	lines := bytes.Split(p, []byte("\n"))
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		w.program.Send(tui.LogLineMsg{Line: string(line)})
	}
	return len(p), nil
}
