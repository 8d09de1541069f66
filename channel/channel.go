// Package channel provides the front ends that drive a chat session: the
// bubbletea TUI for terminals and a line-oriented channel for pipes.
package channel

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/linanwx/echochat/config"
	"github.com/linanwx/echochat/dispatch"
	"github.com/linanwx/echochat/panel"
	"github.com/linanwx/echochat/selection"
)

// Channel is an interactive front end.
type Channel interface {
	// Name returns the channel name ("tui", "cli").
	Name() string

	// Run blocks until the user quits, input ends, or ctx is cancelled.
	Run(ctx context.Context) error
}

// Options configures a front end.
type Options struct {
	Transport dispatch.Transport
	Config    *config.Config
	Selection selection.Selection
	Streaming bool
	Reasoning bool

	// In and Out default to stdin and stdout for the line channel.
	In  io.Reader
	Out io.Writer
}

func (o Options) validate() error {
	if o.Transport == nil {
		return errors.New("channel: transport is required")
	}
	if o.Config == nil {
		return errors.New("channel: config is required")
	}
	return nil
}

func (o Options) controller(panels *panel.Reconciler) *dispatch.Controller {
	return dispatch.NewController(o.Transport, panels, dispatch.Options{
		StreamIdleTimeout: o.Config.StreamIdleTimeout(),
	})
}

func (o Options) input() io.Reader {
	if o.In != nil {
		return o.In
	}
	return os.Stdin
}

func (o Options) output() io.Writer {
	if o.Out != nil {
		return o.Out
	}
	return os.Stdout
}
