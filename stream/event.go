// Package stream decodes the backend push channel into tagged events and
// demultiplexes them into per-provider text buffers.
package stream

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies an event variant.
type Kind int

const (
	// KindBegin opens a segment for Event.Provider.
	KindBegin Kind = iota + 1
	// KindFragment carries text for the open segment.
	KindFragment
	// KindEnd closes the open segment.
	KindEnd
	// KindFailure carries a server-reported error outside any segment.
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindBegin:
		return "begin"
	case KindFragment:
		return "fragment"
	case KindEnd:
		return "end"
	case KindFailure:
		return "failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one decoded push-channel event.
type Event struct {
	Kind     Kind
	Provider string // KindBegin
	Text     string // KindFragment, KindFailure
}

// Begin returns a segment-opening event.
func Begin(provider string) Event { return Event{Kind: KindBegin, Provider: provider} }

// Fragment returns a text event.
func Fragment(text string) Event { return Event{Kind: KindFragment, Text: text} }

// End returns a segment-closing event.
func End() Event { return Event{Kind: KindEnd} }

// Failure returns a server-reported error event.
func Failure(text string) Event { return Event{Kind: KindFailure, Text: text} }

func (e Event) String() string {
	switch e.Kind {
	case KindBegin:
		return "begin(" + e.Provider + ")"
	case KindFragment:
		return fmt.Sprintf("fragment(%q)", e.Text)
	case KindFailure:
		return fmt.Sprintf("failure(%q)", e.Text)
	default:
		return e.Kind.String()
	}
}

// Wire markers shared with the backend.
const (
	DoneMarker     = "[DONE]"
	BareDoneMarker = "DONE"
	ErrorPrefix    = "Error:"
)

// Protocol errors.
var (
	ErrNoOpenSegment      = errors.New("stream: fragment with no open segment")
	ErrUnexpectedProvider = errors.New("stream: unexpected provider")
)

// IsDone reports whether a data line terminates the current segment.
func IsDone(line string) bool {
	return line == DoneMarker || line == BareDoneMarker
}

// IsErrorText reports whether text carries the backend's error marker.
func IsErrorText(text string) bool {
	return strings.HasPrefix(text, ErrorPrefix)
}
