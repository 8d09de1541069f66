package channel

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/linanwx/echochat/client"
	"github.com/linanwx/echochat/config"
	"github.com/linanwx/echochat/internal/echoserver"
	"github.com/linanwx/echochat/panel"
	"github.com/linanwx/echochat/selection"
	"github.com/linanwx/echochat/stream"
	"github.com/linanwx/echochat/termmd"
)

func init() {
	color.NoColor = true
}

func groqSelection() selection.Selection {
	return selection.Resolve([]selection.Selector{{Provider: "groq", Model: "llama3"}})
}

func TestPrinterSingleShot(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, termmd.Plain())
	r := panel.NewReconciler(p)
	r.EnsurePanels([]string{"groq", "gemini"})

	r.AppendMessage(panel.NoticeKey, "hello", true, false, "")
	r.AppendMessage("groq", "**hi**", false, false, "llama3")
	r.AppendMessage("gemini", "Error: quota", false, true, "gemini-pro")
	r.Notice("Conversation history cleared.", false)

	want := "Groq (llama3)\nhi\n\n" +
		"Gemini (gemini-pro)\nError: quota\n\n" +
		"Conversation history cleared.\n"
	if got := buf.String(); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestPrinterStreaming(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, termmd.Plain())
	p.SetSelection(groqSelection())
	r := panel.NewReconciler(p)
	r.EnsurePanels([]string{"groq"})

	r.StreamStarted("groq")
	r.StreamUpdated("groq", "Hel")
	r.StreamUpdated("groq", "Hello")
	r.StreamEnded("groq")

	r.AppendMessage("groq", "next", true, false, "")
	r.StreamStarted("groq")
	r.StreamUpdated("groq", "again\n")
	r.StopReceiving()

	want := "Groq (llama3)\nHello\n\n" + "Groq (llama3)\nagain\n\n"
	if got := buf.String(); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestPrinterReopenedSegment(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, termmd.Plain())
	p.SetSelection(groqSelection())
	r := panel.NewReconciler(p)
	r.EnsurePanels([]string{"groq"})

	d := stream.NewDemultiplexer(r)
	for _, ev := range []stream.Event{
		stream.Begin("groq"), stream.Fragment("A"), stream.End(),
		stream.Begin("groq"), stream.Fragment("B"), stream.End(),
	} {
		if err := d.Handle(ev); err != nil {
			t.Fatalf("Handle(%s) error = %v", ev, err)
		}
	}

	want := "Groq (llama3)\nA\n\n" + "Groq (llama3)\nB\n\n"
	if got := buf.String(); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestPrinterEmptySegment(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, termmd.Plain())
	p.SetSelection(groqSelection())
	r := panel.NewReconciler(p)
	r.EnsurePanels([]string{"groq"})

	r.StreamStarted("groq")
	r.StreamEnded("groq")

	if got, want := buf.String(), "Groq (llama3)\n\n\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestPrinterTokenFooter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, termmd.Plain())
	p.ShowTokens(true)
	r := panel.NewReconciler(p)
	r.EnsurePanels([]string{"groq"})
	r.AppendMessage("groq", "hi", false, false, "llama3")

	if !strings.Contains(buf.String(), " tokens]\n") {
		t.Fatalf("output = %q, want a token footer", buf.String())
	}
}

func TestPrinterResetForgetsOldBubbles(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, termmd.Plain())
	r := panel.NewReconciler(p)
	r.EnsurePanels([]string{"groq"})
	r.AppendMessage("groq", "one", false, false, "m")
	r.EnsurePanels([]string{"groq"})
	r.AppendMessage("groq", "two", false, false, "m")

	if got := strings.Count(buf.String(), "one"); got != 1 {
		t.Fatalf("first reply printed %d times: %q", got, buf.String())
	}
	if !strings.HasSuffix(buf.String(), "Groq (m)\ntwo\n\n") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestNewCLIChannelValidates(t *testing.T) {
	if _, err := NewCLIChannel(Options{}); err == nil {
		t.Fatal("expected error without transport")
	}
}

func TestPlainChannelRoundTrip(t *testing.T) {
	srv := httptest.NewServer(echoserver.New(echoserver.Options{}))
	defer srv.Close()

	for _, streaming := range []bool{false, true} {
		name := "single"
		if streaming {
			name = "stream"
		}
		t.Run(name, func(t *testing.T) {
			c, err := client.New(client.Config{BaseURL: srv.URL})
			if err != nil {
				t.Fatalf("client.New() error = %v", err)
			}
			var out bytes.Buffer
			ch, err := NewCLIChannel(Options{
				Transport: c,
				Config:    config.DefaultConfig(),
				Selection: groqSelection(),
				Streaming: streaming,
				In:        strings.NewReader("hello\n\n/quit\nignored\n"),
				Out:       &out,
			})
			if err != nil {
				t.Fatalf("NewCLIChannel() error = %v", err)
			}
			if ch.Name() != "cli" {
				t.Fatalf("Name() = %q", ch.Name())
			}
			if err := ch.Run(context.Background()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			got := out.String()
			for _, want := range []string{"echochat> ", "Groq (llama3)\n", "llama3 echoes: hello", " tokens]"} {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
			if strings.Contains(got, "ignored") {
				t.Errorf("input after /quit was processed:\n%s", got)
			}
		})
	}
}

func TestPlainChannelEndsAtEOF(t *testing.T) {
	var out bytes.Buffer
	ch, err := NewCLIChannel(Options{
		Transport: &client.Client{},
		Config:    config.DefaultConfig(),
		In:        strings.NewReader(""),
		Out:       &out,
	})
	if err != nil {
		t.Fatalf("NewCLIChannel() error = %v", err)
	}
	if err := ch.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.String() != "echochat> \n" {
		t.Fatalf("output = %q", out.String())
	}
}
