// Package client talks to the EchoChat backend: single-shot chat, the
// server-push response stream, and history clearing.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/linanwx/echochat/logger"
	"github.com/linanwx/echochat/selection"
)

const (
	defaultRequestTimeout = 120 * time.Second
	maxErrorBodyBytes     = 64 * 1024
	userAgent             = "echochat/1.0"
	requestIDHeader       = "X-Request-ID"
)

// PushMode selects the server-push channel used for streaming.
type PushMode string

const (
	PushSSE       PushMode = "sse"
	PushWebSocket PushMode = "websocket"
)

// ErrInvalidReply is returned when a 2xx reply body is not the expected JSON.
var ErrInvalidReply = errors.New("client: invalid reply")

// StatusError is a non-2xx reply. Message holds the body's "error" field if
// there was one.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("client: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("client: status %d", e.Status)
}

// ChatRequest is one fan-out request.
type ChatRequest struct {
	Message   string
	Providers selection.Selection
	Reasoning bool
	RequestID string
}

// Response is one provider's single-shot reply.
type Response struct {
	Provider string
	Content  string
	// Model is set when the backend answered with {model, content}.
	Model string
	// Structured reports whether Model came from the payload.
	Structured bool
}

// ChatReply is the decoded single-shot reply. Responses keep the order the
// backend wrote them in.
type ChatReply struct {
	Responses []Response
	Error     string
}

// Config configures a Client.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	Push           PushMode
	// HTTPClient overrides the client used for every request. Its Timeout
	// is ignored for push channels.
	HTTPClient *http.Client
}

// Client is an EchoChat backend client.
type Client struct {
	base       *url.URL
	push       PushMode
	http       *http.Client
	streamHTTP *http.Client
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		return nil, fmt.Errorf("client: base URL is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("client: invalid base URL %q: %w", raw, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("client: base URL %q must be http or https", raw)
	}

	push := cfg.Push
	switch push {
	case "":
		push = PushSSE
	case PushSSE, PushWebSocket:
	default:
		return nil, fmt.Errorf("client: unknown push mode %q", cfg.Push)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	var httpClient, streamClient *http.Client
	if cfg.HTTPClient != nil {
		httpClient = cfg.HTTPClient
		sc := *cfg.HTTPClient
		sc.Timeout = 0
		streamClient = &sc
	} else {
		httpClient = &http.Client{Timeout: timeout}
		streamClient = &http.Client{}
	}

	return &Client{base: base, push: push, http: httpClient, streamHTTP: streamClient}, nil
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.base.String() }

// Push returns the configured push mode.
func (c *Client) Push() PushMode { return c.push }

func (c *Client) endpoint(path string) *url.URL {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return &u
}

func (c *Client) newRequest(ctx context.Context, method string, u *url.URL, body []byte, requestID string) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", userAgent)
	if requestID != "" {
		req.Header.Set(requestIDHeader, requestID)
	}
	return req, nil
}

// chatBody builds {message, providers, use_reasoning, use_streaming}.
func chatBody(req ChatRequest, streaming bool) ([]byte, error) {
	providers, err := json.Marshal(req.Providers)
	if err != nil {
		return nil, fmt.Errorf("client: encode providers: %w", err)
	}
	body := []byte(`{}`)
	if body, err = sjson.SetBytes(body, "message", req.Message); err != nil {
		return nil, err
	}
	if body, err = sjson.SetRawBytes(body, "providers", providers); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "use_reasoning", req.Reasoning); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "use_streaming", streaming); err != nil {
		return nil, err
	}
	return body, nil
}

// Chat sends a single-shot request and decodes the reply.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	body, err := chatBody(req, false)
	if err != nil {
		return nil, err
	}
	httpReq, err := c.newRequest(ctx, http.MethodPost, c.endpoint("/chat"), body, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("client: build chat request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("client: chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readStatusError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read chat reply: %w", err)
	}
	reply, err := DecodeChatReply(raw)
	if err != nil {
		return nil, err
	}
	logger.Debug("chat reply received",
		"requestID", req.RequestID,
		"responses", len(reply.Responses),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return reply, nil
}

// DecodeChatReply decodes {responses:{p: string|{model,content}}} or {error}.
func DecodeChatReply(raw []byte) (*ChatReply, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: body is not JSON", ErrInvalidReply)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: body is not an object", ErrInvalidReply)
	}

	reply := &ChatReply{}
	if e := root.Get("error"); e.Exists() && e.Type != gjson.Null {
		reply.Error = e.String()
		if reply.Error != "" {
			return reply, nil
		}
	}

	responses := root.Get("responses")
	if !responses.IsObject() {
		return nil, fmt.Errorf("%w: missing responses", ErrInvalidReply)
	}
	responses.ForEach(func(key, value gjson.Result) bool {
		reply.Responses = append(reply.Responses, decodeResponse(key.String(), value))
		return true
	})
	return reply, nil
}

func decodeResponse(provider string, value gjson.Result) Response {
	r := Response{Provider: provider}
	switch {
	case value.IsObject():
		model, content := value.Get("model"), value.Get("content")
		if model.Exists() && content.Exists() {
			r.Model = model.String()
			r.Content = content.String()
			r.Structured = true
		} else {
			r.Content = value.Raw
		}
	case value.Type == gjson.Null:
		r.Content = ""
	default:
		r.Content = value.String()
	}
	return r
}

// ClearHistory asks the backend to forget one provider's conversation.
func (c *Client) ClearHistory(ctx context.Context, provider string) error {
	body, err := sjson.SetBytes([]byte(`{}`), "provider", provider)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("/clear_history"), body, "")
	if err != nil {
		return fmt.Errorf("client: build clear request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: clear history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readStatusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	logger.Info("history cleared", "provider", provider)
	return nil
}

func readStatusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	se := &StatusError{Status: resp.StatusCode}
	if gjson.ValidBytes(raw) {
		se.Message = gjson.GetBytes(raw, "error").String()
	}
	logger.Warn("backend returned error status", "status", resp.StatusCode, "error", se.Message)
	return se
}
