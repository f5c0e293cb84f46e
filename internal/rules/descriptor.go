package rules

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"grimm.is/rulestage/internal/validation"
)

// DefaultSettleDelay is how long the console waits after a mutation before
// re-reading the active list, giving the router time to apply its config.
const DefaultSettleDelay = time.Second

// Field describes one form input.
type Field struct {
	Name        string
	Label       string
	Kind        validation.Kind
	Options     []string // select values, in display order
	Default     string
	Required    bool
	Lower       bool // lower-cased when the draft is turned into a request record
	Placeholder string
}

// Check validates value against the field's syntax.
func (f Field) Check(value string) *validation.FormatError {
	return validation.Check(f.Kind, f.Name, value, f.Options...)
}

// Column is one column of the active-rule table. Keys are tried in order;
// the first is the router's native option name.
type Column struct {
	Title  string
	Keys   []string
	Format func(string) string
}

// Descriptor is everything category-specific about a rule collection.
type Descriptor struct {
	Category    Category
	Title       string
	Path        string
	Fields      []Field
	KeyField    string
	Columns     []Column
	SettleDelay time.Duration
	Summary     func(Draft) string
}

// Field looks up a field by name.
func (d *Descriptor) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns field names in form order.
func (d *Descriptor) FieldNames() []string {
	out := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		out[i] = f.Name
	}
	return out
}

// Defaults returns a fresh form populated with default values.
func (d *Descriptor) Defaults() Draft {
	out := make(Draft, len(d.Fields))
	for _, f := range d.Fields {
		out[f.Name] = f.Default
	}
	return out
}

// MissingRequired lists mandatory fields that are empty in form, in form order.
func (d *Descriptor) MissingRequired(form Draft) []string {
	var missing []string
	for _, f := range d.Fields {
		if f.Required && strings.TrimSpace(form[f.Name]) == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// Validate checks every field of form and returns the failures keyed by
// field name. Empty values are not format errors.
func (d *Descriptor) Validate(form Draft) map[string]*validation.FormatError {
	errs := make(map[string]*validation.FormatError)
	for _, f := range d.Fields {
		if fe := f.Check(form[f.Name]); fe != nil {
			errs[f.Name] = fe
		}
	}
	return errs
}

// Record turns a draft into the JSON object sent to the router.
func (d *Descriptor) Record(draft Draft) map[string]any {
	out := make(map[string]any, len(d.Fields))
	for _, f := range d.Fields {
		v := draft[f.Name]
		if f.Lower {
			v = strings.ToLower(v)
		}
		out[f.Name] = v
	}
	return out
}

// ParseActive extracts the key from a raw list record. Records without a
// key are rejected; a key is never synthesised.
func (d *Descriptor) ParseActive(raw map[string]any) (ActiveRule, bool) {
	key := Stringify(raw[d.KeyField])
	if key == "" {
		return ActiveRule{}, false
	}
	return ActiveRule{Key: key, Fields: raw}, true
}

// Headers returns the active-rule table titles.
func (d *Descriptor) Headers() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Title
	}
	return out
}

// Row projects an active rule onto the table columns. Missing values are "-".
func (d *Descriptor) Row(r ActiveRule) []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		v := r.Get(c.Keys...)
		if c.Format != nil {
			v = c.Format(v)
		}
		if v == "" {
			v = "-"
		}
		out[i] = v
	}
	return out
}

// Summarize renders a staged draft on one line.
func (d *Descriptor) Summarize(draft Draft) string {
	if d.Summary != nil {
		return d.Summary(draft)
	}
	names := make([]string, 0, len(draft))
	for k := range draft {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", k, draft[k]))
	}
	return strings.Join(parts, " ")
}
