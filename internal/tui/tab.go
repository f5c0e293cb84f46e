package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"grimm.is/rulestage/internal/console"
	"grimm.is/rulestage/internal/rules"
)

type focusArea int

const (
	focusForm focusArea = iota
	focusDrafts
	focusActive
)

// tab is the per-category view state. The controller owns the data; the
// tab only holds cursor positions and widgets.
type tab struct {
	ctl    *console.Controller
	desc   *rules.Descriptor
	inputs []textinput.Model // zero value for select fields
	field  int
	focus  focusArea
	draft  int
	table  table.Model
}

func newTab(ctl *console.Controller) *tab {
	desc := ctl.Descriptor()
	t := &tab{ctl: ctl, desc: desc, inputs: make([]textinput.Model, len(desc.Fields))}

	form := ctl.Snapshot().Form
	for i, f := range desc.Fields {
		if len(f.Options) > 0 {
			continue
		}
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = f.Placeholder
		ti.CharLimit = 253
		ti.Width = 28
		ti.PromptStyle = StyleInputPrompt
		ti.TextStyle = StyleInputText
		ti.PlaceholderStyle = StyleInputPlaceholder
		ti.Cursor.Style = StyleInputCursor
		ti.SetValue(form[f.Name])
		t.inputs[i] = ti
	}

	cols := make([]table.Column, len(desc.Columns))
	for i, c := range desc.Columns {
		cols[i] = table.Column{Title: c.Title, Width: max(len(c.Title), 14)}
	}
	tbl := table.New(
		table.WithColumns(cols),
		table.WithHeight(8),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorDeep).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(ColorIce).
		Background(ColorDeep).
		Bold(false)
	tbl.SetStyles(s)
	t.table = tbl
	return t
}

func (t *tab) isSelect(i int) bool { return len(t.desc.Fields[i].Options) > 0 }

// sync copies controller state into the widgets.
func (t *tab) sync() {
	st := t.ctl.Snapshot()
	rows := make([]table.Row, len(st.Active))
	for i, r := range st.Active {
		rows[i] = table.Row(t.desc.Row(r))
	}
	t.table.SetRows(rows)
	// SetRows clamps an empty table's cursor to -1 and never raises it.
	if t.table.Cursor() < 0 && len(rows) > 0 {
		t.table.SetCursor(0)
	}
	if n := len(st.Drafts); t.draft >= n {
		t.draft = max(n-1, 0)
	}
}

// syncInputs reloads text inputs from the controller form, e.g. after a
// reset.
func (t *tab) syncInputs() {
	form := t.ctl.Snapshot().Form
	for i, f := range t.desc.Fields {
		if !t.isSelect(i) {
			t.inputs[i].SetValue(form[f.Name])
		}
	}
}

func (t *tab) resize(width, height int) {
	n := len(t.desc.Columns)
	if n == 0 {
		return
	}
	w := max((width-10)/n-2, 8)
	cols := t.table.Columns()
	for i := range cols {
		cols[i].Width = max(w, len(cols[i].Title))
	}
	t.table.SetColumns(cols)
	t.table.SetHeight(max(height-len(t.desc.Fields)-22, 4))
}

func (t *tab) blur() {
	for i := range t.inputs {
		t.inputs[i].Blur()
	}
	t.table.Blur()
}

func (t *tab) focusField(i int) tea.Cmd {
	t.blur()
	t.focus = focusForm
	t.field = i
	if t.isSelect(i) {
		return nil
	}
	return t.inputs[i].Focus()
}

func (t *tab) moveField(delta int) tea.Cmd {
	n := len(t.desc.Fields)
	return t.focusField((t.field + delta + n) % n)
}

// cycleFocus walks form fields, then drafts, then the active table.
func (t *tab) cycleFocus(delta int) tea.Cmd {
	last := len(t.desc.Fields) - 1
	switch t.focus {
	case focusForm:
		switch {
		case delta > 0 && t.field < last:
			return t.focusField(t.field + 1)
		case delta < 0 && t.field > 0:
			return t.focusField(t.field - 1)
		case delta > 0:
			t.blur()
			t.focus = focusDrafts
		default:
			t.blur()
			t.focus = focusActive
			t.table.Focus()
		}
	case focusDrafts:
		if delta > 0 {
			t.focus = focusActive
			t.table.Focus()
		} else {
			return t.focusField(last)
		}
	case focusActive:
		t.table.Blur()
		if delta > 0 {
			return t.focusField(0)
		}
		t.focus = focusDrafts
	}
	return nil
}

// cycleOption steps a select field through its options. It reports false
// when the focused field is free text.
func (t *tab) cycleOption(delta int) bool {
	if !t.isSelect(t.field) {
		return false
	}
	f := t.desc.Fields[t.field]
	cur := t.ctl.Snapshot().Form[f.Name]
	idx := 0
	for i, o := range f.Options {
		if strings.EqualFold(o, cur) {
			idx = i
			break
		}
	}
	n := len(f.Options)
	t.ctl.SetField(f.Name, f.Options[(idx+delta+n)%n])
	return true
}

func (t *tab) updateInput(msg tea.Msg) tea.Cmd {
	if t.isSelect(t.field) {
		return nil
	}
	before := t.inputs[t.field].Value()
	var cmd tea.Cmd
	t.inputs[t.field], cmd = t.inputs[t.field].Update(msg)
	if v := t.inputs[t.field].Value(); v != before {
		// Format errors are kept by the controller and rendered from its state.
		t.ctl.SetField(t.desc.Fields[t.field].Name, v)
	}
	return cmd
}

func (t *tab) addRule() {
	if _, err := t.ctl.AddRule(); err != nil {
		return
	}
	t.syncInputs()
	t.draft = len(t.ctl.Snapshot().Drafts) - 1
	t.focusField(0)
}

func (t *tab) moveDraft(delta int) {
	n := len(t.ctl.Snapshot().Drafts)
	if n == 0 {
		return
	}
	t.draft = (t.draft + delta + n) % n
}

func (t *tab) deleteDraft() {
	if err := t.ctl.DeleteDraft(t.draft); err != nil {
		return
	}
	t.sync()
}

func (t *tab) selectedActive() (string, bool) {
	st := t.ctl.Snapshot()
	i := t.table.Cursor()
	if i < 0 || i >= len(st.Active) {
		return "", false
	}
	return st.Active[i].Key, true
}

func (t *tab) viewForm(st console.State) string {
	var b strings.Builder
	for i, f := range t.desc.Fields {
		labelStyle := StyleLabel
		if t.focus == focusForm && i == t.field {
			labelStyle = StyleLabelFocused
		}
		label := f.Label
		if f.Required {
			label += StyleRequired.Render(" *")
		}
		b.WriteString(labelStyle.Render(label))

		if t.isSelect(i) {
			b.WriteString(StyleInputText.Render("‹ " + st.Form[f.Name] + " ›"))
		} else {
			b.WriteString(t.inputs[i].View())
		}
		b.WriteString("\n")

		if msg, ok := st.FieldErrors[f.Name]; ok {
			b.WriteString(StyleFieldError.Render(msg))
			b.WriteString("\n")
		}
	}
	if st.Required != nil {
		b.WriteString(StyleStatusBad.Render(fmt.Sprintf("missing: %s", strings.Join(st.Required.Fields, ", "))))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (t *tab) viewDrafts(st console.State) string {
	if len(st.Drafts) == 0 {
		return StyleSubtitle.Render("nothing staged")
	}
	lines := make([]string, len(st.Drafts))
	for i, d := range st.Drafts {
		line := fmt.Sprintf("%d. %s", i+1, t.desc.Summarize(d))
		if t.focus == focusDrafts && i == t.draft {
			lines[i] = StyleDraftSelected.Render(line)
		} else {
			lines[i] = StyleDraft.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
