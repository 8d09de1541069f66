package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/coder/websocket"

	"github.com/linanwx/echochat/logger"
	"github.com/linanwx/echochat/stream"
)

const wsReadLimit = 1 << 20

// EventStream yields decoded push-channel events. Next returns io.EOF once
// the backend ends the stream. The stream's lifetime is bound to the context
// passed to Client.Stream.
type EventStream interface {
	Next() (stream.Event, error)
	Close() error
}

// lineSource yields raw data lines from a push channel.
type lineSource interface {
	next() (string, error)
	close() error
}

type eventStream struct {
	src    lineSource
	framer *stream.Framer
	closed bool
}

func (s *eventStream) Next() (stream.Event, error) {
	line, err := s.src.next()
	if err != nil {
		return stream.Event{}, err
	}
	return s.framer.Decode(line)
}

func (s *eventStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.src.close()
}

// streamQuery encodes the request as the push channel's query parameters.
func streamQuery(req ChatRequest) (url.Values, error) {
	providers, err := json.Marshal(req.Providers)
	if err != nil {
		return nil, fmt.Errorf("client: encode providers: %w", err)
	}
	q := url.Values{}
	q.Set("message", req.Message)
	q.Set("providers", string(providers))
	q.Set("use_reasoning", strconv.FormatBool(req.Reasoning))
	q.Set("use_streaming", "true")
	return q, nil
}

// Stream opens the push channel for req.
func (c *Client) Stream(ctx context.Context, req ChatRequest) (EventStream, error) {
	q, err := streamQuery(req)
	if err != nil {
		return nil, err
	}

	var src lineSource
	switch c.push {
	case PushWebSocket:
		src, err = c.openWebSocket(ctx, q, req.RequestID)
	default:
		src, err = c.openSSE(ctx, q, req.RequestID)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("push channel open",
		"requestID", req.RequestID,
		"mode", string(c.push),
		"providers", req.Providers.String(),
	)
	return &eventStream{src: src, framer: stream.NewFramer(req.Providers.Providers())}, nil
}

type sseSource struct {
	body   io.ReadCloser
	reader *stream.SSEReader
}

func (c *Client) openSSE(ctx context.Context, q url.Values, requestID string) (*sseSource, error) {
	u := c.endpoint("/chat")
	u.RawQuery = q.Encode()
	req, err := c.newRequest(ctx, http.MethodGet, u, nil, requestID)
	if err != nil {
		return nil, fmt.Errorf("client: build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readStatusError(resp)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("client: unexpected stream content type %q", ct)
	}
	return &sseSource{body: resp.Body, reader: stream.NewSSEReader(resp.Body)}, nil
}

func (s *sseSource) next() (string, error) { return s.reader.Next() }
func (s *sseSource) close() error          { return s.body.Close() }

type wsSource struct {
	ctx  context.Context
	conn *websocket.Conn
}

func (c *Client) openWebSocket(ctx context.Context, q url.Values, requestID string) (*wsSource, error) {
	u := c.endpoint("/chat/ws")
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("User-Agent", userAgent)
	if requestID != "" {
		header.Set(requestIDHeader, requestID)
	}
	conn, resp, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPClient: c.streamHTTP,
		HTTPHeader: header,
	})
	if err != nil {
		if resp != nil && resp.StatusCode >= 300 {
			return nil, &StatusError{Status: resp.StatusCode}
		}
		return nil, fmt.Errorf("client: dial websocket: %w", err)
	}
	conn.SetReadLimit(wsReadLimit)
	return &wsSource{ctx: ctx, conn: conn}, nil
}

func (s *wsSource) next() (string, error) {
	for {
		typ, data, err := s.conn.Read(s.ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return "", io.EOF
			}
			return "", fmt.Errorf("client: websocket read: %w", err)
		}
		if typ != websocket.MessageText {
			continue
		}
		return string(data), nil
	}
}

func (s *wsSource) close() error {
	return s.conn.CloseNow()
}
