package tui

import (
	"github.com/charmbracelet/huh"

	"github.com/linanwx/echochat/config"
	"github.com/linanwx/echochat/panel"
	"github.com/linanwx/echochat/selection"
)

// SelectionForm lets the user pick a model (or none) per catalog provider.
type SelectionForm struct {
	Form *huh.Form

	providers []string
	values    []string
}

// NewSelectionForm builds the form, preselecting current.
func NewSelectionForm(catalog []config.CatalogEntry, current selection.Selection) *SelectionForm {
	f := &SelectionForm{
		providers: make([]string, len(catalog)),
		values:    make([]string, len(catalog)),
	}
	fields := make([]huh.Field, 0, len(catalog))
	for i, entry := range catalog {
		f.providers[i] = entry.Provider
		f.values[i], _ = current.Model(entry.Provider)

		opts := []huh.Option[string]{huh.NewOption("none", "")}
		for _, m := range entry.Models {
			opts = append(opts, huh.NewOption(m, m))
		}
		fields = append(fields, huh.NewSelect[string]().
			Title(panel.Title(entry.Provider)).
			Options(opts...).
			Value(&f.values[i]))
	}
	f.Form = huh.NewForm(huh.NewGroup(fields...))
	return f
}

// Selection returns the chosen providers in catalog order.
func (f *SelectionForm) Selection() selection.Selection {
	selectors := make([]selection.Selector, len(f.providers))
	for i, p := range f.providers {
		selectors[i] = selection.Selector{Provider: p, Model: f.values[i]}
	}
	return selection.Resolve(selectors)
}
