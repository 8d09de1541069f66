package stream

import "fmt"

// Framer turns raw push-channel data lines into tagged events.
//
// The backend reuses plain lines as delimiters: a bare provider id opens a
// segment, DONE closes it, and everything in between is payload. Framer is
// the only place that interprets that convention.
type Framer struct {
	open     bool
	expected map[string]bool
}

// NewFramer returns a Framer. When expected is non-empty, a segment may only
// be opened for one of those providers.
func NewFramer(expected []string) *Framer {
	f := &Framer{}
	if len(expected) > 0 {
		f.expected = make(map[string]bool, len(expected))
		for _, p := range expected {
			f.expected[p] = true
		}
	}
	return f
}

// Decode classifies one data line.
func (f *Framer) Decode(line string) (Event, error) {
	switch {
	case IsDone(line):
		f.open = false
		return End(), nil
	case f.open:
		return Fragment(line), nil
	case IsErrorText(line):
		return Failure(line), nil
	}

	if f.expected != nil && !f.expected[line] {
		return Event{}, fmt.Errorf("%w: %q", ErrUnexpectedProvider, line)
	}
	f.open = true
	return Begin(line), nil
}

// Open reports whether a segment is currently open.
func (f *Framer) Open() bool { return f.open }
