package stream

import (
	"bufio"
	"io"
	"strings"
)

// SSEReader extracts the data payload of each text/event-stream event.
type SSEReader struct {
	r *bufio.Reader
}

// NewSSEReader wraps r.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the data of the next dispatched event. Multiple data lines in
// one event are joined with "\n". It returns io.EOF once the stream ends; an
// event left without its terminating blank line is discarded.
func (s *SSEReader) Next() (string, error) {
	var (
		data    strings.Builder
		hasData bool
	)
	for {
		line, err := s.r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		atEOF := err == io.EOF
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if atEOF {
				return "", io.EOF
			}
			if hasData {
				return data.String(), nil
			}
			continue
		}

		if atEOF {
			// Incomplete trailing event.
			return "", io.EOF
		}

		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}
		if field != "data" {
			continue
		}
		if hasData {
			data.WriteByte('\n')
		}
		data.WriteString(value)
		hasData = true
	}
}
