package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/linanwx/echochat/dispatch"
	"github.com/linanwx/echochat/logger"
	"github.com/linanwx/echochat/panel"
	"github.com/linanwx/echochat/termmd"
)

// NewCLIChannel creates the interactive channel.
// If stdin is a terminal, it returns the TUI; otherwise a plain line reader.
func NewCLIChannel(opts Options) (Channel, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.In == nil && term.IsTerminal(int(os.Stdin.Fd())) {
		return newTUIChannel(opts), nil
	}
	return newPlainCLIChannel(opts), nil
}

// plainCLIChannel reads one message per line and prints the replies.
type plainCLIChannel struct {
	opts    Options
	prompt  string
	in      io.Reader
	out     io.Writer
	printer *Printer
	ctrl    *dispatch.Controller
}

func newPlainCLIChannel(opts Options) *plainCLIChannel {
	out := opts.output()
	printer := NewPrinter(out, termmd.Plain())
	printer.SetSelection(opts.Selection)
	printer.ShowTokens(true)
	panels := panel.NewReconciler(printer)
	return &plainCLIChannel{
		opts:    opts,
		prompt:  "echochat> ",
		in:      opts.input(),
		out:     out,
		printer: printer,
		ctrl:    opts.controller(panels),
	}
}

func (c *plainCLIChannel) Name() string { return "cli" }

func (c *plainCLIChannel) Run(ctx context.Context) error {
	logger.Info("cli channel started (plain mode)")
	defer logger.Info("cli channel stopped")

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(c.out, c.prompt)
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit", "/exit", "/quit":
			return nil
		case "/clear":
			if err := c.ctrl.ClearHistory(ctx, c.opts.Selection); err != nil {
				logger.Warn("clear history failed", "err", err)
			}
			continue
		}

		err := c.ctrl.Send(ctx, dispatch.Request{
			Message:   line,
			Selection: c.opts.Selection,
			Streaming: c.opts.Streaming,
			Reasoning: c.opts.Reasoning,
		})
		if err != nil && ctx.Err() == nil {
			logger.Warn("send failed", "err", err)
		}
	}
}
