// Package selection resolves selector state into an ordered provider→model mapping.
package selection

import (
	"encoding/json"
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Selector is one provider's model picker. An empty Model means unselected.
type Selector struct {
	Provider string
	Model    string
}

// Selection maps provider ids to model ids in selector order.
// A Selection is read-only once built.
type Selection struct {
	m *orderedmap.OrderedMap[string, string]
}

// Resolve builds a Selection from every selector holding a non-empty model.
func Resolve(selectors []Selector) Selection {
	m := orderedmap.New[string, string]()
	for _, s := range selectors {
		provider := strings.TrimSpace(s.Provider)
		model := strings.TrimSpace(s.Model)
		if provider == "" || model == "" {
			continue
		}
		m.Set(provider, model)
	}
	return Selection{m: m}
}

// FromMap builds a Selection from a plain map, ordered by order first and
// then by any remaining keys in sorted order.
func FromMap(order []string, models map[string]string) Selection {
	selectors := make([]Selector, 0, len(models))
	seen := make(map[string]bool, len(models))
	for _, p := range order {
		if model, ok := models[p]; ok && !seen[p] {
			selectors = append(selectors, Selector{Provider: p, Model: model})
			seen[p] = true
		}
	}
	var rest []string
	for p := range models {
		if !seen[p] {
			rest = append(rest, p)
		}
	}
	sort.Strings(rest)
	for _, p := range rest {
		selectors = append(selectors, Selector{Provider: p, Model: models[p]})
	}
	return Resolve(selectors)
}

// Len returns the number of selected providers.
func (s Selection) Len() int {
	if s.m == nil {
		return 0
	}
	return s.m.Len()
}

// Empty reports whether no provider is selected.
func (s Selection) Empty() bool { return s.Len() == 0 }

// Model returns the selected model for provider.
func (s Selection) Model(provider string) (string, bool) {
	if s.m == nil {
		return "", false
	}
	return s.m.Get(provider)
}

// Providers returns provider ids in selection order.
func (s Selection) Providers() []string {
	out := make([]string, 0, s.Len())
	s.Each(func(provider, _ string) {
		out = append(out, provider)
	})
	return out
}

// Each calls fn for every provider/model pair in order.
func (s Selection) Each(fn func(provider, model string)) {
	if s.m == nil {
		return
	}
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Map returns a copy of the selection as a plain map.
func (s Selection) Map() map[string]string {
	out := make(map[string]string, s.Len())
	s.Each(func(provider, model string) {
		out[provider] = model
	})
	return out
}

// Equal reports whether both selections hold the same pairs in the same
// order.
func (s Selection) Equal(other Selection) bool {
	if !s.SameProviders(other) {
		return false
	}
	equal := true
	s.Each(func(provider, model string) {
		if m, _ := other.Model(provider); m != model {
			equal = false
		}
	})
	return equal
}

// SameProviders reports whether both selections name the same providers in
// the same order, regardless of models.
func (s Selection) SameProviders(other Selection) bool {
	return EqualProviders(s.Providers(), other.Providers())
}

// EqualProviders reports whether two provider lists match in order.
func EqualProviders(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the selection as a JSON object, keeping order.
func (s Selection) MarshalJSON() ([]byte, error) {
	if s.m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.m)
}

// String renders "provider=model" pairs separated by commas.
func (s Selection) String() string {
	parts := make([]string, 0, s.Len())
	s.Each(func(provider, model string) {
		parts = append(parts, provider+"="+model)
	})
	return strings.Join(parts, ",")
}

// ParsePairs parses "provider=model" arguments into selectors.
// Entries without '=' select the provider with an empty model, which
// Resolve then drops.
func ParsePairs(pairs []string) []Selector {
	out := make([]Selector, 0, len(pairs))
	for _, raw := range pairs {
		for _, item := range strings.Split(raw, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			provider, model, _ := strings.Cut(item, "=")
			out = append(out, Selector{Provider: provider, Model: model})
		}
	}
	return out
}
