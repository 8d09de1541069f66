// Package termmd renders Markdown replies as styled terminal text.
//
// Providers answer in Markdown (GFM tables, strikethrough and task lists
// included). The terminal has no layout engine, so block elements are
// flattened:
//   - Headings become styled lines
//   - Code blocks are indented
//   - Tables become aligned rows separated by " | "
//   - Links and images show their destination in parentheses
package termmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// StyleFunc decorates a run of text.
type StyleFunc func(string) string

// Styles holds the decorations applied per element.
type Styles struct {
	Heading StyleFunc
	Bold    StyleFunc
	Italic  StyleFunc
	Strike  StyleFunc
	Code    StyleFunc
	Link    StyleFunc
	Quote   StyleFunc
	Rule    StyleFunc
}

// DefaultStyles returns lipgloss-backed styles for a colour terminal.
func DefaultStyles() Styles {
	return Styles{
		Heading: style(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))),
		Bold:    style(lipgloss.NewStyle().Bold(true)),
		Italic:  style(lipgloss.NewStyle().Italic(true)),
		Strike:  style(lipgloss.NewStyle().Strikethrough(true)),
		Code:    style(lipgloss.NewStyle().Foreground(lipgloss.Color("214"))),
		Link:    style(lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("6"))),
		Quote:   style(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))),
		Rule:    style(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))),
	}
}

func style(s lipgloss.Style) StyleFunc {
	return func(text string) string { return s.Render(text) }
}

// Plain returns styles that leave text untouched.
func Plain() Styles {
	id := func(s string) string { return s }
	return Styles{Heading: id, Bold: id, Italic: id, Strike: id, Code: id, Link: id, Quote: id, Rule: id}
}

// Render converts markdown to terminal text using st.
func Render(markdown string, st Styles) string {
	source := []byte(markdown)
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(source))

	r := &renderer{source: source, st: st}
	r.walkBlock(doc)
	return strings.TrimRight(r.buf.String(), "\n ")
}

type renderer struct {
	source    []byte
	st        Styles
	buf       bytes.Buffer
	listDepth int
}

func (r *renderer) sub() *renderer {
	return &renderer{source: r.source, st: r.st, listDepth: r.listDepth}
}

func (r *renderer) walkBlock(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.block(c)
	}
}

func (r *renderer) block(node ast.Node) {
	switch n := node.(type) {
	case *ast.Document:
		r.walkBlock(n)

	case *ast.Heading:
		r.buf.WriteString(r.st.Heading(r.inlineString(n)))
		r.buf.WriteString("\n\n")

	case *ast.Paragraph:
		r.inlines(n)
		r.buf.WriteString("\n\n")

	case *ast.TextBlock:
		r.inlines(n)
		r.buf.WriteString("\n")

	case *ast.Blockquote:
		sub := r.sub()
		sub.walkBlock(n)
		body := strings.TrimRight(sub.buf.String(), "\n ")
		for _, line := range strings.Split(body, "\n") {
			r.buf.WriteString(r.st.Quote("│ " + line))
			r.buf.WriteByte('\n')
		}
		r.buf.WriteByte('\n')

	case *ast.List:
		r.list(n)

	case *ast.ListItem:
		r.walkBlock(n)

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		r.codeLines(n)
		r.buf.WriteByte('\n')

	case *ast.ThematicBreak:
		r.buf.WriteString(r.st.Rule(strings.Repeat("─", 10)))
		r.buf.WriteString("\n\n")

	case *ast.HTMLBlock:
		r.writeLines(n)
		r.buf.WriteString("\n")

	default:
		if t, ok := node.(*east.Table); ok {
			r.table(t)
			return
		}
		if node.HasChildren() {
			r.walkBlock(node)
		}
	}
}

// codeLines writes a code block indented by two spaces.
func (r *renderer) codeLines(n ast.Node) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(r.source)), "\n")
		r.buf.WriteString("  ")
		r.buf.WriteString(r.st.Code(line))
		r.buf.WriteByte('\n')
	}
}

func (r *renderer) writeLines(n ast.Node) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		r.buf.Write(seg.Value(r.source))
	}
}

func (r *renderer) inlineString(n ast.Node) string {
	sub := r.sub()
	sub.inlines(n)
	return sub.buf.String()
}

func (r *renderer) inlines(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.inline(c)
	}
}

func (r *renderer) inline(node ast.Node) {
	switch n := node.(type) {
	case *ast.Text:
		r.buf.Write(n.Text(r.source))
		if n.SoftLineBreak() || n.HardLineBreak() {
			r.buf.WriteByte('\n')
		}

	case *ast.String:
		r.buf.Write(n.Value)

	case *ast.Emphasis:
		style := r.st.Italic
		if n.Level == 2 {
			style = r.st.Bold
		}
		r.buf.WriteString(style(r.inlineString(n)))

	case *ast.CodeSpan:
		r.buf.WriteString(r.st.Code(r.textContent(n)))

	case *ast.Link:
		label := r.inlineString(n)
		dest := string(n.Destination)
		if label == dest || label == "" {
			r.buf.WriteString(r.st.Link(dest))
			return
		}
		fmt.Fprintf(&r.buf, "%s (%s)", label, r.st.Link(dest))

	case *ast.AutoLink:
		r.buf.WriteString(r.st.Link(string(n.URL(r.source))))

	case *ast.Image:
		alt := r.textContent(n)
		if alt == "" {
			alt = "image"
		}
		fmt.Fprintf(&r.buf, "[%s] (%s)", alt, r.st.Link(string(n.Destination)))

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			r.buf.Write(seg.Value(r.source))
		}

	default:
		switch v := node.(type) {
		case *east.Strikethrough:
			r.buf.WriteString(r.st.Strike(r.inlineString(v)))
		case *east.TaskCheckBox:
			if v.IsChecked {
				r.buf.WriteString("[x] ")
			} else {
				r.buf.WriteString("[ ] ")
			}
		default:
			if node.HasChildren() {
				r.inlines(node)
			}
		}
	}
}

func (r *renderer) textContent(n ast.Node) string {
	var buf bytes.Buffer
	r.collectText(n, &buf)
	return buf.String()
}

func (r *renderer) collectText(node ast.Node, buf *bytes.Buffer) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Text(r.source))
		case *ast.String:
			buf.Write(t.Value)
		default:
			r.collectText(c, buf)
		}
	}
}

func (r *renderer) list(n *ast.List) {
	idx := 0
	if n.Start > 0 {
		idx = n.Start - 1
	}
	indent := strings.Repeat("  ", r.listDepth)

	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		item, ok := child.(*ast.ListItem)
		if !ok {
			continue
		}
		if n.IsOrdered() {
			idx++
			fmt.Fprintf(&r.buf, "%s%d. ", indent, idx)
		} else {
			r.buf.WriteString(indent)
			r.buf.WriteString("• ")
		}
		r.listItemContent(item)
		r.buf.WriteByte('\n')
	}
	if r.listDepth == 0 {
		r.buf.WriteByte('\n')
	}
}

func (r *renderer) listItemContent(item *ast.ListItem) {
	first := true
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		switch n := c.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			if !first {
				r.buf.WriteByte('\n')
				r.buf.WriteString(strings.Repeat("  ", r.listDepth+1))
			}
			r.inlines(n)
			first = false
		case *ast.List:
			r.buf.WriteByte('\n')
			r.listDepth++
			r.list(n)
			r.listDepth--
			// nested list already ended the line
			r.buf.Truncate(len(bytes.TrimRight(r.buf.Bytes(), "\n")))
		default:
			r.block(c)
			first = false
		}
	}
}

func (r *renderer) table(t *east.Table) {
	var rows [][]string
	header := -1
	for child := t.FirstChild(); child != nil; child = child.NextSibling() {
		var cells []string
		switch row := child.(type) {
		case *east.TableHeader:
			header = len(rows)
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				cells = append(cells, r.textContent(cell))
			}
		case *east.TableRow:
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				cells = append(cells, r.textContent(cell))
			}
		default:
			continue
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return
	}

	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	for i, row := range rows {
		cells := make([]string, len(widths))
		for j := range widths {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			cells[j] = runewidth.FillRight(cell, widths[j])
		}
		line := strings.TrimRight(strings.Join(cells, " | "), " ")
		if i == header {
			r.buf.WriteString(r.st.Bold(line))
			r.buf.WriteByte('\n')
			seps := make([]string, len(widths))
			for j, w := range widths {
				seps[j] = strings.Repeat("-", w)
			}
			r.buf.WriteString(strings.Join(seps, "-+-"))
		} else {
			r.buf.WriteString(line)
		}
		r.buf.WriteByte('\n')
	}
	r.buf.WriteByte('\n')
}
