package selection

import (
	"encoding/json"
	"testing"
)

func TestResolveSkipsUnselected(t *testing.T) {
	sel := Resolve([]Selector{
		{Provider: "groq", Model: "llama3-8b-8192"},
		{Provider: "gemini", Model: ""},
		{Provider: "anthropic", Model: "  "},
		{Provider: "openai", Model: "gpt-4o"},
	})

	if sel.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", sel.Len())
	}
	got := sel.Providers()
	if got[0] != "groq" || got[1] != "openai" {
		t.Fatalf("Providers() = %v, want [groq openai]", got)
	}
	if m, ok := sel.Model("openai"); !ok || m != "gpt-4o" {
		t.Fatalf("Model(openai) = %q, %v", m, ok)
	}
	if _, ok := sel.Model("gemini"); ok {
		t.Fatal("gemini should not be selected")
	}
}

func TestResolveEmpty(t *testing.T) {
	sel := Resolve([]Selector{{Provider: "groq"}, {Provider: "gemini"}})
	if !sel.Empty() {
		t.Fatalf("expected empty selection, got %s", sel)
	}

	var zero Selection
	if !zero.Empty() || len(zero.Providers()) != 0 {
		t.Fatal("zero Selection should behave as empty")
	}
	b, err := json.Marshal(zero)
	if err != nil {
		t.Fatalf("Marshal(zero) error = %v", err)
	}
	if string(b) != "{}" {
		t.Fatalf("Marshal(zero) = %s, want {}", b)
	}
}

func TestResolveDuplicateKeepsFirstPosition(t *testing.T) {
	sel := Resolve([]Selector{
		{Provider: "groq", Model: "a"},
		{Provider: "gemini", Model: "g"},
		{Provider: "groq", Model: "b"},
	})
	if sel.String() != "groq=b,gemini=g" {
		t.Fatalf("String() = %q", sel.String())
	}
}

func TestMarshalJSONKeepsOrder(t *testing.T) {
	sel := Resolve([]Selector{
		{Provider: "openai", Model: "gpt-4o"},
		{Provider: "anthropic", Model: "claude-3-haiku"},
		{Provider: "groq", Model: "llama3"},
	})
	b, err := json.Marshal(sel)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"openai":"gpt-4o","anthropic":"claude-3-haiku","groq":"llama3"}`
	if string(b) != want {
		t.Fatalf("Marshal() = %s, want %s", b, want)
	}
}

func TestFromMapOrdersByCatalogThenName(t *testing.T) {
	sel := FromMap([]string{"groq", "gemini"}, map[string]string{
		"zeta":   "z1",
		"gemini": "gemini-pro",
		"alpha":  "a1",
		"groq":   "llama3",
	})
	if sel.String() != "groq=llama3,gemini=gemini-pro,alpha=a1,zeta=z1" {
		t.Fatalf("String() = %q", sel.String())
	}
}

func TestSameProviders(t *testing.T) {
	a := Resolve([]Selector{{Provider: "groq", Model: "x"}, {Provider: "gemini", Model: "y"}})
	b := Resolve([]Selector{{Provider: "groq", Model: "other"}, {Provider: "gemini", Model: "y"}})
	c := Resolve([]Selector{{Provider: "gemini", Model: "y"}, {Provider: "groq", Model: "x"}})

	if !a.SameProviders(b) {
		t.Fatal("model changes should not change the provider set")
	}
	if a.SameProviders(c) {
		t.Fatal("order changes should count as a different provider set")
	}
	if !EqualProviders(a.Providers(), b.Providers()) || EqualProviders(a.Providers(), []string{"groq"}) {
		t.Fatal("EqualProviders disagrees with SameProviders")
	}
}

func TestEqual(t *testing.T) {
	a := Resolve([]Selector{{Provider: "groq", Model: "x"}, {Provider: "gemini", Model: "y"}})
	tests := []struct {
		name  string
		other Selection
		want  bool
	}{
		{"identical", Resolve([]Selector{{Provider: "groq", Model: "x"}, {Provider: "gemini", Model: "y"}}), true},
		{"model differs", Resolve([]Selector{{Provider: "groq", Model: "z"}, {Provider: "gemini", Model: "y"}}), false},
		{"order differs", Resolve([]Selector{{Provider: "gemini", Model: "y"}, {Provider: "groq", Model: "x"}}), false},
		{"empty", Selection{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Equal(tt.other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
	if !(Selection{}).Equal(Selection{}) {
		t.Error("two empty selections should be equal")
	}
}

func TestParsePairs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{name: "single", in: []string{"groq=llama3"}, want: "groq=llama3"},
		{name: "comma separated", in: []string{"groq=llama3, gemini=gemini-pro"}, want: "groq=llama3,gemini=gemini-pro"},
		{name: "repeated flags", in: []string{"groq=llama3", "openai=gpt-4o"}, want: "groq=llama3,openai=gpt-4o"},
		{name: "missing model dropped", in: []string{"groq", "openai=gpt-4o"}, want: "openai=gpt-4o"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(ParsePairs(tt.in)).String()
			if got != tt.want {
				t.Errorf("ParsePairs(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
