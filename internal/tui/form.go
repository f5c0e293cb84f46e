package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"grimm.is/rulestage/internal/rules"
)

// DraftForm is an interactive huh form generated from a category
// descriptor, one input or select per rule field.
type DraftForm struct {
	*huh.Form
	values map[string]*string
	order  []string
}

// NewDraftForm builds a form pre-filled from initial (usually the
// descriptor's defaults). Inputs run the same checks as the console form.
func NewDraftForm(desc *rules.Descriptor, initial rules.Draft) *DraftForm {
	df := &DraftForm{values: make(map[string]*string, len(desc.Fields))}
	var fields []huh.Field

	for _, f := range desc.Fields {
		v := initial[f.Name]
		ptr := &v
		df.values[f.Name] = ptr
		df.order = append(df.order, f.Name)

		title := f.Label
		if f.Required {
			title += " *"
		}

		if len(f.Options) > 0 {
			fields = append(fields, huh.NewSelect[string]().
				Title(title).
				Options(huh.NewOptions(f.Options...)...).
				Value(ptr))
			continue
		}

		input := huh.NewInput().
			Title(title).
			Placeholder(f.Placeholder).
			Value(ptr).
			Validate(fieldValidator(f))
		fields = append(fields, input)
	}

	df.Form = huh.NewForm(
		huh.NewGroup(fields...).Title(desc.Title),
	).WithTheme(huh.ThemeBase16())
	return df
}

// Values returns the entered values keyed by field name.
func (df *DraftForm) Values() map[string]string {
	out := make(map[string]string, len(df.values))
	for _, name := range df.order {
		out[name] = strings.TrimSpace(*df.values[name])
	}
	return out
}

func fieldValidator(f rules.Field) func(string) error {
	return func(s string) error {
		s = strings.TrimSpace(s)
		if f.Required && s == "" {
			return fmt.Errorf("%s is required", f.Label)
		}
		if fe := f.Check(s); fe != nil {
			return fe
		}
		return nil
	}
}
