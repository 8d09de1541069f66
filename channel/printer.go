package channel

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/linanwx/echochat/internal/tokens"
	"github.com/linanwx/echochat/panel"
	"github.com/linanwx/echochat/selection"
	"github.com/linanwx/echochat/termmd"
)

var (
	labelColor  = color.New(color.FgCyan, color.Bold)
	modelColor  = color.New(color.FgHiBlack)
	errorColor  = color.New(color.FgRed)
	noticeColor = color.New(color.FgYellow)
)

// Printer is a panel.Surface that writes replies to w as they arrive.
// Streamed text is written incrementally; completed replies are rendered
// as Markdown. User bubbles are not echoed.
type Printer struct {
	mu         sync.Mutex
	w          io.Writer
	styles     termmd.Styles
	sel        selection.Selection
	showTokens bool
	state      map[string]*printState
}

type printState struct {
	seen       int // bubbles fully written
	open       bool
	streamIdx  int
	streamLen  int
	streamDone bool // streamIdx was finished and may re-open
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer, styles termmd.Styles) *Printer {
	return &Printer{w: w, styles: styles, state: make(map[string]*printState)}
}

// SetSelection sets the models used to label streamed replies.
func (p *Printer) SetSelection(sel selection.Selection) {
	p.mu.Lock()
	p.sel = sel
	p.mu.Unlock()
}

// ShowTokens toggles the token count footer.
func (p *Printer) ShowTokens(on bool) {
	p.mu.Lock()
	p.showTokens = on
	p.mu.Unlock()
}

func (p *Printer) Reset(snaps []panel.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = make(map[string]*printState, len(snaps))
	for _, s := range snaps {
		p.state[s.Provider] = &printState{seen: len(s.Bubbles)}
	}
}

func (p *Printer) Refresh(s panel.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.state[s.Provider]
	if !ok {
		st = &printState{}
		p.state[s.Provider] = st
	}

	// A re-opened segment continues its finished streaming bubble.
	if last := len(s.Bubbles) - 1; s.Receiving && !st.open && st.streamDone &&
		st.streamIdx == last && st.seen == last+1 {
		p.label(s.Provider, "")
		st.open, st.streamDone = true, false
		st.seen = last
	}

	for i := st.seen; i < len(s.Bubbles); i++ {
		b := s.Bubbles[i]
		switch {
		case b.IsUser():
			st.seen = i + 1
		case s.IsNotice():
			c := noticeColor
			if b.IsError {
				c = errorColor
			}
			c.Fprintln(p.w, b.Text)
			st.seen = i + 1
		case b.Origin == panel.OriginStreaming:
			if !st.open || st.streamIdx != i {
				p.label(s.Provider, "")
				st.open, st.streamIdx, st.streamLen, st.streamDone = true, i, 0, false
			}
			if len(b.Text) > st.streamLen {
				delta := b.Text[st.streamLen:]
				if b.IsError {
					errorColor.Fprint(p.w, delta)
				} else {
					fmt.Fprint(p.w, delta)
				}
				st.streamLen = len(b.Text)
			}
		default:
			p.label(s.Provider, b.Model)
			if b.IsError {
				errorColor.Fprintln(p.w, b.Text)
			} else {
				fmt.Fprintln(p.w, termmd.Render(b.Text, p.styles))
			}
			p.footer(b.Text)
			st.seen = i + 1
		}
	}

	if st.open && !s.Receiving {
		text := ""
		if st.streamIdx < len(s.Bubbles) {
			text = s.Bubbles[st.streamIdx].Text
		}
		if !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(p.w)
		}
		p.footer(text)
		st.seen = st.streamIdx + 1
		st.open, st.streamDone = false, true
	}
}

func (p *Printer) label(provider, model string) {
	if model == "" {
		model, _ = p.sel.Model(provider)
	}
	line := labelColor.Sprint(panel.Title(provider))
	if model != "" {
		line += " " + modelColor.Sprintf("(%s)", model)
	}
	fmt.Fprintln(p.w, line)
}

func (p *Printer) footer(text string) {
	if p.showTokens {
		modelColor.Fprintf(p.w, "[%d tokens]\n", tokens.Count(text))
	}
	fmt.Fprintln(p.w)
}
