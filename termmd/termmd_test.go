package termmd

import (
	"strings"
	"testing"
)

func tagged() Styles {
	wrap := func(tag string) StyleFunc {
		return func(s string) string { return tag + "(" + s + ")" }
	}
	return Styles{
		Heading: wrap("H"),
		Bold:    wrap("B"),
		Italic:  wrap("I"),
		Strike:  wrap("S"),
		Code:    wrap("C"),
		Link:    wrap("L"),
		Quote:   wrap("Q"),
		Rule:    wrap("R"),
	}
}

func TestInline(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello world", "Hello world"},
		{"Hello **world**", "Hello B(world)"},
		{"Hello *world*", "Hello I(world)"},
		{"Hello ~~world~~", "Hello S(world)"},
		{"Use `fmt.Println`", "Use C(fmt.Println)"},
		{"[Google](https://google.com)", "Google (L(https://google.com))"},
		{"<https://example.com>", "L(https://example.com)"},
		{"a < b & c > d", "a < b & c > d"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			expect(t, Render(tt.in, tagged()), tt.want)
		})
	}
}

func TestHeadings(t *testing.T) {
	expect(t, Render("# Title", tagged()), "H(Title)")
	expect(t, Render("### Deep **bold**", tagged()), "H(Deep B(bold))")
}

func TestPlainLeavesTextUntouched(t *testing.T) {
	got := Render("# Title\n\nSome **bold** and `code`.", Plain())
	expect(t, got, "Title\n\nSome bold and code.")
}

func TestFencedCodeBlock(t *testing.T) {
	got := Render("```go\nfmt.Println(\"hi\")\nreturn\n```", tagged())
	expect(t, got, "  C(fmt.Println(\"hi\"))\n  C(return)")
}

func TestImage(t *testing.T) {
	got := Render("![chart](https://example.com/c.png)", tagged())
	expect(t, got, "[chart] (L(https://example.com/c.png))")
}

func TestLists(t *testing.T) {
	expect(t, Render("- item 1\n- item 2", Plain()), "• item 1\n• item 2")
	expect(t, Render("3. three\n4. four", Plain()), "3. three\n4. four")
	expect(t, Render("- item 1\n  - sub 1\n  - sub 2\n- item 2", Plain()), "• item 1\n  • sub 1\n  • sub 2\n• item 2")
}

func TestTaskList(t *testing.T) {
	got := Render("- [x] Done\n- [ ] Todo", Plain())
	if !strings.Contains(got, "[x]") || !strings.Contains(got, "[ ]") {
		t.Errorf("missing checkboxes, got: %q", got)
	}
	if !strings.Contains(got, "Done") || !strings.Contains(got, "Todo") {
		t.Errorf("missing task text, got: %q", got)
	}
}

func TestBlockquote(t *testing.T) {
	got := Render("> Hello world", tagged())
	expect(t, got, "Q(│ Hello world)")
}

func TestThematicBreak(t *testing.T) {
	got := Render("above\n\n---\n\nbelow", tagged())
	if !strings.Contains(got, "R(──────────)") {
		t.Errorf("missing rule, got: %q", got)
	}
}

func TestTable(t *testing.T) {
	md := "| Name | Age |\n|------|-----|\n| Alice | 30 |\n| Bob | 25 |"
	got := Render(md, Plain())
	want := "Name  | Age\n------+----\nAlice | 30\nBob   | 25"
	expect(t, got, want)
}

func TestTableCJK(t *testing.T) {
	md := "| 名前 | 年齢 |\n|------|------|\n| 太郎 | 30 |"
	got := Render(md, Plain())
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("want 3 lines, got: %q", got)
	}
	if !strings.HasPrefix(lines[2], "太郎 | 30") {
		t.Errorf("CJK cells misaligned, got: %q", got)
	}
}

func TestIncompleteMarkdown(t *testing.T) {
	// Streaming bubbles render partial replies.
	got := Render("Here is **bol", Plain())
	expect(t, got, "Here is **bol")
}

func expect(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("\n got: %q\nwant: %q", got, want)
	}
}

func TestDefaultStyles(t *testing.T) {
	got := Render("# Title\n\n**bold** and `code`, see [docs](https://example.com)", DefaultStyles())
	for _, want := range []string{"Title", "bold", "code", "docs", "(https://example.com)"} {
		if !strings.Contains(got, want) {
			t.Errorf("Render() = %q, missing %q", got, want)
		}
	}
	for _, marker := range []string{"# ", "**", "`"} {
		if strings.Contains(got, marker) {
			t.Errorf("Render() = %q, kept markdown marker %q", got, marker)
		}
	}
}
