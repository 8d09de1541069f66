package stream

import (
	"fmt"
	"strings"
)

// Sink receives buffer changes from a Demultiplexer.
type Sink interface {
	// StreamStarted is called every time a segment opens, including when a
	// provider's segment re-opens within the same request.
	StreamStarted(provider string)
	// StreamUpdated is called after every fragment with the provider's full
	// accumulated text.
	StreamUpdated(provider, text string)
	// StreamEnded is called when a provider's segment closes.
	StreamEnded(provider string)
}

// ProviderBuffer is one provider's accumulated response text.
type ProviderBuffer struct {
	text      strings.Builder
	receiving bool
}

// Text returns the accumulated text.
func (b *ProviderBuffer) Text() string { return b.text.String() }

// Receiving reports whether a segment for this provider is open.
func (b *ProviderBuffer) Receiving() bool { return b.receiving }

// Demultiplexer rebuilds per-provider buffers from one interleaved event
// sequence. It is not safe for concurrent use; each request owns a fresh
// instance.
type Demultiplexer struct {
	sink    Sink
	current string
	buffers map[string]*ProviderBuffer
	order   []string
}

// NewDemultiplexer returns a Demultiplexer reporting to sink. A nil sink is
// allowed.
func NewDemultiplexer(sink Sink) *Demultiplexer {
	return &Demultiplexer{
		sink:    sink,
		buffers: make(map[string]*ProviderBuffer),
	}
}

// Handle applies one event.
func (d *Demultiplexer) Handle(ev Event) error {
	switch ev.Kind {
	case KindEnd:
		d.closeSegment()
		return nil

	case KindBegin:
		if ev.Provider == "" {
			return fmt.Errorf("stream: begin without provider")
		}
		d.closeSegment()
		buf, ok := d.buffers[ev.Provider]
		if !ok {
			buf = &ProviderBuffer{}
			d.buffers[ev.Provider] = buf
			d.order = append(d.order, ev.Provider)
		}
		buf.receiving = true
		d.current = ev.Provider
		if d.sink != nil {
			d.sink.StreamStarted(ev.Provider)
		}
		return nil

	case KindFragment:
		if d.current == "" {
			return ErrNoOpenSegment
		}
		buf := d.buffers[d.current]
		buf.text.WriteString(ev.Text)
		if d.sink != nil {
			d.sink.StreamUpdated(d.current, buf.text.String())
		}
		return nil

	default:
		return fmt.Errorf("stream: demultiplexer cannot handle %s", ev.Kind)
	}
}

// Close ends any segment left open when the channel finished.
func (d *Demultiplexer) Close() {
	d.closeSegment()
}

func (d *Demultiplexer) closeSegment() {
	if d.current == "" {
		return
	}
	provider := d.current
	d.buffers[provider].receiving = false
	d.current = ""
	if d.sink != nil {
		d.sink.StreamEnded(provider)
	}
}

// Current returns the provider whose segment is open, or "".
func (d *Demultiplexer) Current() string { return d.current }

// Buffer returns the accumulated text for provider.
func (d *Demultiplexer) Buffer(provider string) (string, bool) {
	buf, ok := d.buffers[provider]
	if !ok {
		return "", false
	}
	return buf.Text(), true
}

// Providers returns providers in the order their first segment opened.
func (d *Demultiplexer) Providers() []string {
	return append([]string(nil), d.order...)
}
