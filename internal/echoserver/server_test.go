package echoserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func post(t *testing.T, srv *httptest.Server, path, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data)
}

func TestSingleShotPreservesProviderOrder(t *testing.T) {
	srv := httptest.NewServer(New(Options{}))
	defer srv.Close()

	status, body := post(t, srv, "/chat", `{"message":"hi","providers":{"openai":"gpt-4o","groq":"llama3"},"use_streaming":false}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %s", status, body)
	}
	var keys []string
	gjson.Get(body, "responses").ForEach(func(k, v gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	if strings.Join(keys, ",") != "openai,groq" {
		t.Fatalf("response order = %v", keys)
	}
	if got := gjson.Get(body, "responses.groq").String(); got != "llama3 echoes: hi" {
		t.Fatalf("groq = %q", got)
	}
}

func TestSingleShotStructured(t *testing.T) {
	srv := httptest.NewServer(New(Options{Structured: true}))
	defer srv.Close()

	_, body := post(t, srv, "/chat", `{"message":"hi","providers":{"gemini":"gemini-pro"}}`)
	if got := gjson.Get(body, "responses.gemini.model").String(); got != "gemini-pro" {
		t.Fatalf("model = %q, body %s", got, body)
	}
	if got := gjson.Get(body, "responses.gemini.content").String(); got != "gemini-pro echoes: hi" {
		t.Fatalf("content = %q", got)
	}
}

func TestSingleShotErrors(t *testing.T) {
	failing := func(_ context.Context, provider, _, _ string, _ bool) ([]string, error) {
		if provider == "groq" {
			return nil, errors.New("rate limited")
		}
		return []string{"ok"}, nil
	}
	srv := httptest.NewServer(New(Options{Responder: failing}))
	defer srv.Close()

	_, body := post(t, srv, "/chat", `{"message":"hi","providers":{"groq":"a","openai":"b"}}`)
	if got := gjson.Get(body, "responses.groq").String(); got != "Error: rate limited" {
		t.Fatalf("groq = %q", got)
	}
	if got := gjson.Get(body, "responses.openai").String(); got != "ok" {
		t.Fatalf("openai = %q", got)
	}

	status, body := post(t, srv, "/chat", `{"message":"hi","providers":{"nope":"x"}}`)
	if status != http.StatusInternalServerError || gjson.Get(body, "error").String() != "Unknown provider: nope" {
		t.Fatalf("unknown provider: status %d body %s", status, body)
	}
}

func TestStreamSSE(t *testing.T) {
	srv := httptest.NewServer(New(Options{}))
	defer srv.Close()

	q := url.Values{}
	q.Set("message", "hi there")
	q.Set("providers", `{"groq":"llama3"}`)
	q.Set("use_streaming", "true")
	resp, err := http.Get(srv.URL + "/chat?" + q.Encode())
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	data, _ := io.ReadAll(resp.Body)

	want := "data: groq\n\n" +
		"data: llama3 \n\n" +
		"data: echoes: \n\n" +
		"data: hi \n\n" +
		"data: there\n\n" +
		"data: [DONE]\n\n"
	if string(data) != want {
		t.Fatalf("stream =\n%q\nwant\n%q", data, want)
	}
}

func TestStreamMultilineChunkAndUnknownProvider(t *testing.T) {
	srv := httptest.NewServer(New(Options{}))
	defer srv.Close()

	q := url.Values{}
	q.Set("message", "x")
	q.Set("providers", `{"groq":"m","bogus":"m"}`)
	q.Set("use_streaming", "true")
	q.Set("use_reasoning", "true")
	resp, err := http.Get(srv.URL + "/chat?" + q.Encode())
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	out := string(data)

	if !strings.HasPrefix(out, "data: groq\n\ndata: Reasoning:\ndata: \n\n") {
		t.Fatalf("reasoning header not split into data lines: %q", out)
	}
	if !strings.HasSuffix(out, "data: bogus\n\ndata: Error: Unknown provider: bogus\n\n") {
		t.Fatalf("unknown provider should end the stream with an error: %q", out)
	}
	if strings.Count(out, "[DONE]") != 1 {
		t.Fatalf("only the groq segment should be closed: %q", out)
	}
}

func TestClearHistory(t *testing.T) {
	s := New(Options{})
	srv := httptest.NewServer(s)
	defer srv.Close()

	status, body := post(t, srv, "/clear_history", `{"provider":"groq"}`)
	if status != http.StatusBadRequest || gjson.Get(body, "error").String() != "Invalid provider or no conversation history" {
		t.Fatalf("clear before chat: %d %s", status, body)
	}

	post(t, srv, "/chat", `{"message":"hi","providers":{"groq":"llama3"}}`)
	if s.HistoryLen("groq") != 2 {
		t.Fatalf("HistoryLen = %d, want 2", s.HistoryLen("groq"))
	}

	status, body = post(t, srv, "/clear_history", `{"provider":"groq"}`)
	if status != http.StatusOK || gjson.Get(body, "message").String() != "Conversation history cleared" {
		t.Fatalf("clear after chat: %d %s", status, body)
	}
	if s.HistoryLen("groq") != 0 {
		t.Fatal("history should be empty")
	}
}

func TestEcho(t *testing.T) {
	chunks, _ := Echo(context.Background(), "groq", "llama3", "a b", true)
	got := strings.Join(chunks, "")
	want := "Reasoning:\nThe groq provider repeats what it was told.\n\nFinal Response:\nllama3 echoes: a b"
	if got != want {
		t.Fatalf("Echo() = %q, want %q", got, want)
	}
}
