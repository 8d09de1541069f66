package panel

import (
	"testing"
)

type fakeSurface struct {
	resets    [][]Snapshot
	refreshes []Snapshot
}

func (s *fakeSurface) Reset(panels []Snapshot) { s.resets = append(s.resets, panels) }
func (s *fakeSurface) Refresh(p Snapshot)      { s.refreshes = append(s.refreshes, p) }

func mustSnapshot(t *testing.T, r *Reconciler, provider string) Snapshot {
	t.Helper()
	s, ok := r.Snapshot(provider)
	if !ok {
		t.Fatalf("no panel for %q", provider)
	}
	return s
}

func TestEnsurePanelsRebuilds(t *testing.T) {
	surface := &fakeSurface{}
	r := NewReconciler(surface)

	r.EnsurePanels([]string{"a", "b"})
	r.AppendMessage(NoticeKey, "hello", true, false, "")
	r.AppendMessage("b", "from b", false, false, "m")
	r.Notice("note", false)

	r.EnsurePanels([]string{"a"})

	if got := r.Providers(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("Providers() = %v, want [a]", got)
	}
	if _, ok := r.Snapshot("b"); ok {
		t.Fatal("panel b should be gone")
	}
	if a := mustSnapshot(t, r, "a"); len(a.Bubbles) != 0 {
		t.Fatalf("panel a should be empty after rebuild, got %+v", a.Bubbles)
	}
	if n := mustSnapshot(t, r, NoticeKey); len(n.Bubbles) != 0 {
		t.Fatalf("notice panel should be reset, got %+v", n.Bubbles)
	}

	last := surface.resets[len(surface.resets)-1]
	if len(last) != 2 || last[0].Provider != "a" || !last[1].IsNotice() {
		t.Fatalf("last Reset = %+v, want [a, notices]", last)
	}
}

func TestEnsurePanelsKeepsOrderAndDropsDuplicates(t *testing.T) {
	r := NewReconciler(nil)
	r.EnsurePanels([]string{"openai", "groq", "openai", "", "gemini"})
	got := r.Providers()
	want := []string{"openai", "groq", "gemini"}
	if len(got) != len(want) {
		t.Fatalf("Providers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Providers() = %v, want %v", got, want)
		}
	}
}

func TestAppendUserMessageGoesToEveryPanel(t *testing.T) {
	surface := &fakeSurface{}
	r := NewReconciler(surface)
	r.EnsurePanels([]string{"groq", "gemini"})

	r.AppendMessage(NoticeKey, "hi all", true, false, "")

	for _, p := range []string{"groq", "gemini"} {
		s := mustSnapshot(t, r, p)
		if len(s.Bubbles) != 1 || !s.Bubbles[0].IsUser() || s.Bubbles[0].Text != "hi all" {
			t.Fatalf("panel %s bubbles = %+v", p, s.Bubbles)
		}
	}
	if n := mustSnapshot(t, r, NoticeKey); len(n.Bubbles) != 0 {
		t.Fatal("user message must not land in the notice panel")
	}
	if len(surface.refreshes) != 2 {
		t.Fatalf("Refresh called %d times, want 2", len(surface.refreshes))
	}
}

func TestAppendToUnknownProviderIsNoop(t *testing.T) {
	surface := &fakeSurface{}
	r := NewReconciler(surface)
	r.EnsurePanels([]string{"groq"})

	r.AppendMessage("anthropic", "lost", false, false, "claude")

	if len(surface.refreshes) != 0 {
		t.Fatalf("unexpected refreshes: %+v", surface.refreshes)
	}
	if s := mustSnapshot(t, r, "groq"); len(s.Bubbles) != 0 {
		t.Fatalf("groq panel should be untouched, got %+v", s.Bubbles)
	}
}

func TestNoticeLandsInNoticePanel(t *testing.T) {
	r := NewReconciler(nil)
	r.Notice("Please select at least one provider and model.", true)

	n := mustSnapshot(t, r, NoticeKey)
	if len(n.Bubbles) != 1 || !n.Bubbles[0].IsError {
		t.Fatalf("notice bubbles = %+v", n.Bubbles)
	}
	if n.Title != "Notices" {
		t.Fatalf("notice title = %q", n.Title)
	}
}

func TestUpsertStreamingBubbleSingleBubble(t *testing.T) {
	surface := &fakeSurface{}
	r := NewReconciler(surface)
	r.EnsurePanels([]string{"groq"})
	r.AppendMessage(NoticeKey, "question", true, false, "")

	texts := []string{"H", "He", "Hel", "Hell", "Hello"}
	for _, text := range texts {
		r.UpsertStreamingBubble("groq", text)
	}

	s := mustSnapshot(t, r, "groq")
	if len(s.Bubbles) != 2 {
		t.Fatalf("bubbles = %+v, want user + one streaming bubble", s.Bubbles)
	}
	got := s.Bubbles[1]
	if got.Origin != OriginStreaming || got.Text != "Hello" {
		t.Fatalf("streaming bubble = %+v", got)
	}
	if last := surface.refreshes[len(surface.refreshes)-1]; last.Bubbles[1].Text != "Hello" {
		t.Fatalf("last refresh text = %q", last.Bubbles[1].Text)
	}
}

func TestUpsertAfterUserMessageStartsNewBubble(t *testing.T) {
	r := NewReconciler(nil)
	r.EnsurePanels([]string{"groq"})

	r.UpsertStreamingBubble("groq", "first answer")
	r.AppendMessage(NoticeKey, "second question", true, false, "")
	r.UpsertStreamingBubble("groq", "second answer")

	s := mustSnapshot(t, r, "groq")
	if len(s.Bubbles) != 3 {
		t.Fatalf("bubbles = %+v", s.Bubbles)
	}
	if s.Bubbles[0].Text != "first answer" || s.Bubbles[2].Text != "second answer" {
		t.Fatalf("bubbles = %+v", s.Bubbles)
	}
}

func TestUpsertMarksErrorText(t *testing.T) {
	r := NewReconciler(nil)
	r.EnsurePanels([]string{"groq"})
	r.UpsertStreamingBubble("groq", "Error: quota exceeded")

	if b := mustSnapshot(t, r, "groq").Bubbles[0]; !b.IsError {
		t.Fatalf("bubble = %+v, want error", b)
	}
}

func TestSinkTogglesReceiving(t *testing.T) {
	surface := &fakeSurface{}
	r := NewReconciler(surface)
	r.EnsurePanels([]string{"groq", "gemini"})

	r.StreamStarted("groq")
	if !mustSnapshot(t, r, "groq").Receiving {
		t.Fatal("groq should be receiving")
	}
	if b := mustSnapshot(t, r, "groq").Bubbles; len(b) != 1 || b[0].Origin != OriginStreaming || b[0].Text != "" {
		t.Fatalf("StreamStarted should open an empty streaming bubble, got %+v", b)
	}
	r.StreamUpdated("groq", "abc")
	r.StreamEnded("groq")

	s := mustSnapshot(t, r, "groq")
	if s.Receiving {
		t.Fatal("groq should have stopped receiving")
	}
	if len(s.Bubbles) != 1 || s.Bubbles[0].Text != "abc" {
		t.Fatalf("bubble should survive the segment end, got %+v", s.Bubbles)
	}

	// A re-opened segment resumes the same bubble.
	r.StreamStarted("groq")
	if s := mustSnapshot(t, r, "groq"); !s.Receiving || len(s.Bubbles) != 1 || s.Bubbles[0].Text != "abc" {
		t.Fatalf("reopen = %+v", s)
	}
	r.StreamUpdated("groq", "abcdef")
	r.StreamEnded("groq")
	if b := mustSnapshot(t, r, "groq").Bubbles; len(b) != 1 || b[0].Text != "abcdef" {
		t.Fatalf("bubbles after reopen = %+v", b)
	}

	r.StreamStarted("gemini")
	r.StopReceiving()
	if mustSnapshot(t, r, "gemini").Receiving {
		t.Fatal("StopReceiving should clear every panel")
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	r := NewReconciler(nil)
	r.EnsurePanels([]string{"groq"})
	r.AppendMessage("groq", "one", false, false, "")

	s := mustSnapshot(t, r, "groq")
	s.Bubbles[0].Text = "mutated"

	if got := mustSnapshot(t, r, "groq").Bubbles[0].Text; got != "one" {
		t.Fatalf("snapshot mutation leaked into reconciler: %q", got)
	}
}

func TestTitle(t *testing.T) {
	tests := map[string]string{
		"groq":   "Groq",
		"openai": "Openai",
		"":       "",
		"élan":   "Élan",
	}
	for in, want := range tests {
		if got := Title(in); got != want {
			t.Errorf("Title(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSegmentWithoutFragmentsLeavesEmptyBubble(t *testing.T) {
	r := NewReconciler(nil)
	r.EnsurePanels([]string{"groq"})
	r.AppendMessage(NoticeKey, "hi", true, false, "")

	r.StreamStarted("groq")
	r.StreamEnded("groq")

	b := mustSnapshot(t, r, "groq").Bubbles
	if len(b) != 2 || b[1].Origin != OriginStreaming || b[1].Text != "" {
		t.Fatalf("bubbles = %+v, want user bubble then an empty streaming bubble", b)
	}
}
