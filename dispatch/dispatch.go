// Package dispatch owns the send lifecycle: validation, the single in-flight
// request, mode selection, and routing results and errors into panels.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/linanwx/echochat/client"
	"github.com/linanwx/echochat/logger"
	"github.com/linanwx/echochat/panel"
	"github.com/linanwx/echochat/selection"
	"github.com/linanwx/echochat/stream"
)

// State is the controller state.
type State int32

const (
	StateIdle State = iota
	StateAwaitingResponse
)

func (s State) String() string {
	if s == StateAwaitingResponse {
		return "awaiting-response"
	}
	return "idle"
}

// User-visible notices.
const (
	NoticeSelectProvider = "Please select at least one provider and model."
	NoticeBusy           = "A request is already in progress. Wait for it to finish."
	NoticeStreamFailed   = "Error: Unable to get a streaming response from the server."
	NoticeNoResponse     = "Error: Unable to get a response from the server."
	NoticeConnectFailed  = "Error: Unable to connect to the server."
	NoticeHistoryCleared = "Conversation history cleared."
)

const (
	errorPrefix           = "Error: "
	defaultStreamIdleTime = 60 * time.Second
)

var (
	ErrBusy          = errors.New("dispatch: a request is already in flight")
	ErrEmptyMessage  = errors.New("dispatch: empty message")
	ErrNoProviders   = errors.New("dispatch: no provider selected")
	ErrIdleTimeout   = errors.New("dispatch: stream idle timeout")
	ErrServerFailure = errors.New("dispatch: server reported failure")
)

// Transport is the backend collaborator.
type Transport interface {
	Chat(ctx context.Context, req client.ChatRequest) (*client.ChatReply, error)
	Stream(ctx context.Context, req client.ChatRequest) (client.EventStream, error)
	ClearHistory(ctx context.Context, provider string) error
}

// Request is one user send, captured at dispatch time.
type Request struct {
	Message   string
	Selection selection.Selection
	Streaming bool
	Reasoning bool
}

// Options tunes a Controller.
type Options struct {
	// StreamIdleTimeout cancels a stream that stays silent this long.
	// Zero uses the default; negative disables the timeout.
	StreamIdleTimeout time.Duration
	// NewRequestID overrides request id generation.
	NewRequestID func() string
}

// Controller dispatches sends to the transport and renders the outcome.
type Controller struct {
	transport   Transport
	panels      *panel.Reconciler
	idleTimeout time.Duration
	newID       func() string
	state       atomic.Int32
}

// NewController returns an idle Controller.
func NewController(transport Transport, panels *panel.Reconciler, opts Options) *Controller {
	idle := opts.StreamIdleTimeout
	switch {
	case idle == 0:
		idle = defaultStreamIdleTime
	case idle < 0:
		idle = 0
	}
	newID := opts.NewRequestID
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	return &Controller{
		transport:   transport,
		panels:      panels,
		idleTimeout: idle,
		newID:       newID,
	}
}

// State returns the current state.
func (c *Controller) State() State { return State(c.state.Load()) }

func (c *Controller) acquire() bool {
	return c.state.CompareAndSwap(int32(StateIdle), int32(StateAwaitingResponse))
}

func (c *Controller) release() { c.state.Store(int32(StateIdle)) }

// Send validates req and runs it to completion. Every outcome is rendered
// into the panels; the returned error only reports it.
func (c *Controller) Send(ctx context.Context, req Request) error {
	if !c.acquire() {
		c.panels.Notice(NoticeBusy, true)
		return ErrBusy
	}
	defer c.release()

	message := strings.TrimSpace(req.Message)
	if req.Selection.Empty() {
		c.panels.Notice(NoticeSelectProvider, true)
		return ErrNoProviders
	}
	if message == "" {
		return ErrEmptyMessage
	}

	providers := req.Selection.Providers()
	if !selection.EqualProviders(c.panels.Providers(), providers) {
		c.panels.EnsurePanels(providers)
	}
	c.panels.AppendMessage(panel.NoticeKey, message, true, false, "")

	creq := client.ChatRequest{
		Message:   message,
		Providers: req.Selection,
		Reasoning: req.Reasoning,
		RequestID: c.newID(),
	}
	logger.Info("dispatching message",
		"requestID", creq.RequestID,
		"providers", req.Selection.String(),
		"streaming", req.Streaming,
		"reasoning", req.Reasoning,
	)

	if req.Streaming {
		return c.runStream(ctx, creq)
	}
	return c.runSingle(ctx, creq, req.Selection)
}

func (c *Controller) runSingle(ctx context.Context, req client.ChatRequest, sel selection.Selection) error {
	reply, err := c.transport.Chat(ctx, req)
	if err != nil {
		logger.Warn("chat request failed", "requestID", req.RequestID, "err", err)
		c.panels.Notice(transportNotice(err), true)
		return err
	}
	if reply.Error != "" {
		logger.Warn("backend reported error", "requestID", req.RequestID, "error", reply.Error)
		c.panels.Notice(errorPrefix+reply.Error, true)
		return fmt.Errorf("%w: %s", ErrServerFailure, reply.Error)
	}
	RenderResponses(c.panels, reply.Responses, sel)
	return nil
}

// RenderResponses appends one bubble per single-shot response. The model
// label comes from the payload when present, otherwise from sel.
func RenderResponses(panels *panel.Reconciler, responses []client.Response, sel selection.Selection) {
	for _, r := range responses {
		model := r.Model
		if !r.Structured {
			model, _ = sel.Model(r.Provider)
		}
		panels.AppendMessage(r.Provider, r.Content, false, stream.IsErrorText(r.Content), model)
	}
}

func transportNotice(err error) string {
	var se *client.StatusError
	switch {
	case errors.As(err, &se):
		if se.Message != "" {
			return errorPrefix + se.Message
		}
		return NoticeNoResponse
	case errors.Is(err, client.ErrInvalidReply):
		return NoticeNoResponse
	default:
		return NoticeConnectFailed
	}
}

func (c *Controller) runStream(parent context.Context, req client.ChatRequest) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	es, err := c.transport.Stream(ctx, req)
	if err != nil {
		logger.Warn("push channel failed to open", "requestID", req.RequestID, "err", err)
		c.panels.Notice(NoticeStreamFailed, true)
		return err
	}
	defer es.Close()

	var timedOut atomic.Bool
	var idle *time.Timer
	if c.idleTimeout > 0 {
		idle = time.AfterFunc(c.idleTimeout, func() {
			timedOut.Store(true)
			cancel()
		})
		defer idle.Stop()
	}

	demux := stream.NewDemultiplexer(c.panels)
	events := 0
	for {
		ev, err := es.Next()
		if err == io.EOF {
			demux.Close()
			logger.Info("stream finished",
				"requestID", req.RequestID,
				"events", events,
				"providers", strings.Join(demux.Providers(), ","),
			)
			return nil
		}
		if err == nil && idle != nil {
			idle.Reset(c.idleTimeout)
		}
		if err == nil && ev.Kind == stream.KindFailure {
			demux.Close()
			logger.Warn("backend reported stream failure", "requestID", req.RequestID, "error", ev.Text)
			c.panels.Notice(ev.Text, true)
			return fmt.Errorf("%w: %s", ErrServerFailure, ev.Text)
		}
		if err == nil {
			err = demux.Handle(ev)
		}
		if err != nil {
			demux.Close()
			if timedOut.Load() {
				err = fmt.Errorf("%w after %s: %v", ErrIdleTimeout, c.idleTimeout, err)
			} else if parent.Err() != nil {
				logger.Info("stream cancelled", "requestID", req.RequestID)
				return parent.Err()
			}
			logger.Warn("stream failed", "requestID", req.RequestID, "events", events, "err", err)
			c.panels.Notice(NoticeStreamFailed, true)
			return err
		}
		events++
	}
}

// ClearHistory clears backend history for every selected provider, then
// resets the panels.
func (c *Controller) ClearHistory(ctx context.Context, sel selection.Selection) error {
	if !c.acquire() {
		c.panels.Notice(NoticeBusy, true)
		return ErrBusy
	}
	defer c.release()

	var (
		errs    []error
		notices []string
	)
	sel.Each(func(provider, _ string) {
		if err := c.transport.ClearHistory(ctx, provider); err != nil {
			logger.Warn("clear history failed", "provider", provider, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", provider, err))
			notices = append(notices, fmt.Sprintf("Error clearing history for %s: %s", provider, clearErrorText(err)))
		}
	})

	c.panels.EnsurePanels(sel.Providers())
	for _, n := range notices {
		c.panels.Notice(n, true)
	}
	c.panels.Notice(NoticeHistoryCleared, false)
	return errors.Join(errs...)
}

func clearErrorText(err error) string {
	var se *client.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return err.Error()
}

