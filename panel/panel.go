// Package panel keeps one conversation panel per selected provider and
// reconciles responses into them.
package panel

import (
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/linanwx/echochat/stream"
)

// Origin identifies who produced a bubble.
type Origin int

const (
	OriginUser Origin = iota
	OriginResponse
	OriginStreaming
)

// Bubble is one message in a panel.
type Bubble struct {
	Text    string
	Origin  Origin
	IsError bool
	Model   string // optional model label
}

// IsUser reports whether the bubble carries the user's own message.
func (b Bubble) IsUser() bool { return b.Origin == OriginUser }

// NoticeKey is the key of the provider-less notice panel.
const NoticeKey = ""

// Snapshot is a copy of one panel's state. Surfaces only ever see snapshots.
type Snapshot struct {
	Provider  string
	Title     string
	Bubbles   []Bubble
	Receiving bool
}

// IsNotice reports whether the snapshot is the notice panel.
func (s Snapshot) IsNotice() bool { return s.Provider == NoticeKey }

// Surface draws panels.
type Surface interface {
	// Reset replaces every drawn panel. The notice panel comes last.
	Reset(panels []Snapshot)
	// Refresh redraws one panel and scrolls its message list to the end.
	Refresh(panel Snapshot)
}

type panelState struct {
	provider  string
	bubbles   []Bubble
	receiving bool
}

func (p *panelState) snapshot() Snapshot {
	title := Title(p.provider)
	if p.provider == NoticeKey {
		title = "Notices"
	}
	return Snapshot{
		Provider:  p.provider,
		Title:     title,
		Bubbles:   append([]Bubble(nil), p.bubbles...),
		Receiving: p.receiving,
	}
}

var _ stream.Sink = (*Reconciler)(nil)

// Reconciler owns the panel set and pushes every change to its Surface.
type Reconciler struct {
	mu      sync.Mutex
	surface Surface
	order   []string
	panels  map[string]*panelState
	notice  *panelState
}

// NewReconciler returns a Reconciler with no provider panels. A nil surface
// discards updates.
func NewReconciler(surface Surface) *Reconciler {
	if surface == nil {
		surface = discardSurface{}
	}
	return &Reconciler{
		surface: surface,
		panels:  make(map[string]*panelState),
		notice:  &panelState{provider: NoticeKey},
	}
}

// EnsurePanels rebuilds the panel set to exactly one empty panel per
// provider, in the given order. Prior messages are discarded.
func (r *Reconciler) EnsurePanels(providers []string) {
	r.mu.Lock()
	r.order = make([]string, 0, len(providers))
	r.panels = make(map[string]*panelState, len(providers))
	for _, p := range providers {
		if _, dup := r.panels[p]; dup || p == NoticeKey {
			continue
		}
		r.order = append(r.order, p)
		r.panels[p] = &panelState{provider: p}
	}
	r.notice = &panelState{provider: NoticeKey}
	snaps := r.snapshotsLocked()
	r.mu.Unlock()

	r.surface.Reset(snaps)
}

// Providers returns the providers that currently have a panel, in order.
func (r *Reconciler) Providers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// AppendMessage adds a bubble. A user message with provider "" goes to every
// provider panel; any other message with provider "" goes to the notice
// panel. Messages for an unknown provider are dropped.
func (r *Reconciler) AppendMessage(provider, text string, isUser, isError bool, model string) {
	origin := OriginResponse
	if isUser {
		origin = OriginUser
	}
	b := Bubble{Text: text, Origin: origin, IsError: isError, Model: model}

	r.mu.Lock()
	var targets []*panelState
	switch {
	case provider == NoticeKey && isUser:
		for _, p := range r.order {
			targets = append(targets, r.panels[p])
		}
	case provider == NoticeKey:
		targets = append(targets, r.notice)
	default:
		if p, ok := r.panels[provider]; ok {
			targets = append(targets, p)
		}
	}
	snaps := make([]Snapshot, 0, len(targets))
	for _, p := range targets {
		p.bubbles = append(p.bubbles, b)
		snaps = append(snaps, p.snapshot())
	}
	r.mu.Unlock()

	for _, s := range snaps {
		r.surface.Refresh(s)
	}
}

// Notice adds a provider-less message to the notice panel.
func (r *Reconciler) Notice(text string, isError bool) {
	r.AppendMessage(NoticeKey, text, false, isError, "")
}

// UpsertStreamingBubble replaces the text of the provider's trailing
// streaming bubble, or appends one if the last bubble is anything else.
func (r *Reconciler) UpsertStreamingBubble(provider, fullText string) {
	r.mu.Lock()
	p, ok := r.panels[provider]
	if !ok {
		r.mu.Unlock()
		return
	}
	isErr := stream.IsErrorText(fullText)
	if n := len(p.bubbles); n > 0 && p.bubbles[n-1].Origin == OriginStreaming {
		p.bubbles[n-1].Text = fullText
		p.bubbles[n-1].IsError = isErr
	} else {
		p.bubbles = append(p.bubbles, Bubble{Text: fullText, Origin: OriginStreaming, IsError: isErr})
	}
	snap := p.snapshot()
	r.mu.Unlock()

	r.surface.Refresh(snap)
}

// StreamStarted marks the provider's panel as receiving and makes sure its
// last bubble is a streaming bubble, so a segment with no fragments still
// shows an (empty) reply. A re-opened segment keeps its existing bubble.
func (r *Reconciler) StreamStarted(provider string) {
	r.mu.Lock()
	p, ok := r.panels[provider]
	if !ok {
		r.mu.Unlock()
		return
	}
	if n := len(p.bubbles); n == 0 || p.bubbles[n-1].Origin != OriginStreaming {
		p.bubbles = append(p.bubbles, Bubble{Origin: OriginStreaming})
	}
	p.receiving = true
	snap := p.snapshot()
	r.mu.Unlock()

	r.surface.Refresh(snap)
}

// StreamUpdated forwards the full buffer to UpsertStreamingBubble.
func (r *Reconciler) StreamUpdated(provider, text string) {
	r.UpsertStreamingBubble(provider, text)
}

// StreamEnded clears the provider's receiving flag. The bubble stays.
func (r *Reconciler) StreamEnded(provider string) {
	r.setReceiving(provider, false)
}

// StopReceiving clears the receiving flag on every panel.
func (r *Reconciler) StopReceiving() {
	for _, p := range r.Providers() {
		r.setReceiving(p, false)
	}
}

func (r *Reconciler) setReceiving(provider string, on bool) {
	r.mu.Lock()
	p, ok := r.panels[provider]
	if !ok || p.receiving == on {
		r.mu.Unlock()
		return
	}
	p.receiving = on
	snap := p.snapshot()
	r.mu.Unlock()

	r.surface.Refresh(snap)
}

// Snapshots returns copies of every panel, notice panel last.
func (r *Reconciler) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotsLocked()
}

// Snapshot returns a copy of one panel.
func (r *Reconciler) Snapshot(provider string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if provider == NoticeKey {
		return r.notice.snapshot(), true
	}
	p, ok := r.panels[provider]
	if !ok {
		return Snapshot{}, false
	}
	return p.snapshot(), true
}

func (r *Reconciler) snapshotsLocked() []Snapshot {
	out := make([]Snapshot, 0, len(r.order)+1)
	for _, p := range r.order {
		out = append(out, r.panels[p].snapshot())
	}
	return append(out, r.notice.snapshot())
}

// Title capitalizes a provider id for display ("groq" → "Groq").
func Title(provider string) string {
	if provider == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(provider)
	return string(unicode.ToUpper(r)) + provider[size:]
}

type discardSurface struct{}

func (discardSurface) Reset([]Snapshot)  {}
func (discardSurface) Refresh(Snapshot) {}
