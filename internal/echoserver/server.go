// Package echoserver is a local chat backend speaking the same wire contract
// as the real service. Every provider answers by echoing the message, which
// makes it useful for development and for exercising the client end to end.
package echoserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/linanwx/echochat/logger"
)

// DefaultProviders are the provider ids the server answers for when
// Options.Providers is empty.
var DefaultProviders = []string{"groq", "gemini", "anthropic", "openai", "cerebras"}

const (
	doneLine       = "[DONE]"
	reasoningHead  = "Reasoning:\n"
	finalHead      = "\n\nFinal Response:\n"
	readBodyLimit  = 1 << 20
	requestIDField = "X-Request-ID"
)

// Responder produces the reply chunks for one provider.
type Responder func(ctx context.Context, provider, model, message string, reasoning bool) ([]string, error)

// Options configures a Server.
type Options struct {
	Providers []string
	Responder Responder
	// Structured makes single-shot responses {"model","content"} objects
	// instead of bare strings.
	Structured bool
	// ChunkDelay is slept between streamed chunks.
	ChunkDelay time.Duration
}

// Server is an http.Handler implementing /chat, /chat/ws and /clear_history.
type Server struct {
	known      map[string]bool
	respond    Responder
	structured bool
	delay      time.Duration
	mux        *http.ServeMux

	mu      sync.Mutex
	history map[string][]string
}

// New builds a Server.
func New(opts Options) *Server {
	providers := opts.Providers
	if len(providers) == 0 {
		providers = DefaultProviders
	}
	known := make(map[string]bool, len(providers))
	for _, p := range providers {
		known[p] = true
	}
	respond := opts.Responder
	if respond == nil {
		respond = Echo
	}

	s := &Server{
		known:      known,
		respond:    respond,
		structured: opts.Structured,
		delay:      opts.ChunkDelay,
		history:    make(map[string][]string),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/chat/ws", s.handleWebSocket)
	mux.HandleFunc("/clear_history", s.handleClearHistory)
	s.mux = mux
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("echo server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("echoserver: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("echo server stopping")
		return srv.Shutdown(shutdownCtx)
	}
}

// HistoryLen returns the number of recorded turns for provider.
func (s *Server) HistoryLen(provider string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history[provider])
}

// Echo is the default Responder. It splits the echoed reply on word
// boundaries so streams carry several fragments.
func Echo(_ context.Context, provider, model, message string, reasoning bool) ([]string, error) {
	reply := strings.SplitAfter(fmt.Sprintf("%s echoes: %s", model, message), " ")
	if !reasoning {
		return reply, nil
	}
	chunks := []string{reasoningHead, fmt.Sprintf("The %s provider repeats what it was told.", provider), finalHead}
	return append(chunks, reply...), nil
}

type chatParams struct {
	message   string
	providers []providerModel
	reasoning bool
	streaming bool
}

type providerModel struct {
	provider string
	model    string
}

func parseProviders(raw string) ([]providerModel, error) {
	if !gjson.Valid(raw) {
		return nil, errors.New("providers is not valid JSON")
	}
	res := gjson.Parse(raw)
	if !res.IsObject() {
		return nil, errors.New("providers must be an object")
	}
	var out []providerModel
	res.ForEach(func(k, v gjson.Result) bool {
		out = append(out, providerModel{provider: k.String(), model: v.String()})
		return true
	})
	return out, nil
}

func parseChat(r *http.Request) (chatParams, error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		providers, err := parseProviders(q.Get("providers"))
		if err != nil {
			return chatParams{}, err
		}
		return chatParams{
			message:   q.Get("message"),
			providers: providers,
			reasoning: q.Get("use_reasoning") == "true",
			streaming: q.Get("use_streaming") == "true",
		}, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, readBodyLimit))
	if err != nil {
		return chatParams{}, fmt.Errorf("read body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return chatParams{}, errors.New("request body is not valid JSON")
	}
	p := chatParams{
		message:   gjson.GetBytes(body, "message").String(),
		reasoning: gjson.GetBytes(body, "use_reasoning").Bool(),
		streaming: gjson.GetBytes(body, "use_streaming").Bool(),
	}
	if raw := gjson.GetBytes(body, "providers"); raw.Exists() {
		if p.providers, err = parseProviders(raw.Raw); err != nil {
			return chatParams{}, err
		}
	}
	return p, nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, err := parseChat(r)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	logger.Debug("chat request",
		"requestID", r.Header.Get(requestIDField),
		"providers", len(p.providers),
		"streaming", p.streaming,
		"reasoning", p.reasoning,
	)

	if p.streaming {
		s.serveSSE(w, r, p)
		return
	}
	s.serveSingle(w, r, p)
}

type structuredReply struct {
	Model   string `json:"model"`
	Content string `json:"content"`
}

func (s *Server) serveSingle(w http.ResponseWriter, r *http.Request, p chatParams) {
	responses := orderedmap.New[string, any]()
	for _, pm := range p.providers {
		if !s.known[pm.provider] {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Unknown provider: " + pm.provider})
			return
		}
		chunks, err := s.respond(r.Context(), pm.provider, pm.model, p.message, p.reasoning)
		if err != nil {
			logger.Warn("responder failed", "provider", pm.provider, "err", err)
			responses.Set(pm.provider, "Error: "+err.Error())
			continue
		}
		content := strings.Join(chunks, "")
		s.record(pm.provider, p.message, content)
		if s.structured {
			responses.Set(pm.provider, structuredReply{Model: pm.model, Content: content})
		} else {
			responses.Set(pm.provider, content)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"responses": responses})
}

// emitFunc sends one logical data line to the client.
type emitFunc func(line string) error

func (s *Server) serveSSE(w http.ResponseWriter, r *http.Request, p chatParams) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(line string) error {
		var b strings.Builder
		for _, l := range strings.Split(line, "\n") {
			b.WriteString("data: ")
			b.WriteString(l)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}
	if err := s.stream(r.Context(), p, emit); err != nil {
		logger.Debug("sse stream ended early", "err", err)
	}
}

// stream writes every provider segment in order. A failure is reported as
// an "Error: ..." line and ends the stream without a closing marker.
func (s *Server) stream(ctx context.Context, p chatParams, emit emitFunc) error {
	for _, pm := range p.providers {
		if err := emit(pm.provider); err != nil {
			return err
		}
		if !s.known[pm.provider] {
			return emit("Error: Unknown provider: " + pm.provider)
		}
		chunks, err := s.respond(ctx, pm.provider, pm.model, p.message, p.reasoning)
		if err != nil {
			logger.Warn("responder failed", "provider", pm.provider, "err", err)
			return emit("Error: " + err.Error())
		}
		for i, c := range chunks {
			if c == "" {
				continue
			}
			if i > 0 && s.delay > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(s.delay):
				}
			}
			if err := emit(c); err != nil {
				return err
			}
		}
		s.record(pm.provider, p.message, strings.Join(chunks, ""))
		if err := emit(doneLine); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) record(provider, message, reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[provider] = append(s.history[provider], message, reply)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, readBodyLimit))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	provider := gjson.GetBytes(body, "provider").String()

	s.mu.Lock()
	_, ok := s.history[provider]
	if ok {
		s.history[provider] = []string{}
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid provider or no conversation history"})
		return
	}
	logger.Info("history cleared", "provider", provider)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation history cleared"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("write response failed", "err", err)
	}
}
