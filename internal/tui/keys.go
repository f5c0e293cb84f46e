package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the console's key bindings.
type KeyMap struct {
	NextTab      key.Binding
	PrevTab      key.Binding
	NextFocus    key.Binding
	PrevFocus    key.Binding
	Up           key.Binding
	Down         key.Binding
	Left         key.Binding
	Right        key.Binding
	Add          key.Binding
	Submit       key.Binding
	DeleteDraft  key.Binding
	DeleteActive key.Binding
	Refresh      key.Binding
	Dismiss      key.Binding
	Quit         key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextTab:      key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "next category")),
		PrevTab:      key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "prev category")),
		NextFocus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
		PrevFocus:    key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev pane")),
		Up:           key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
		Down:         key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
		Left:         key.NewBinding(key.WithKeys("left"), key.WithHelp("←/→", "choose")),
		Right:        key.NewBinding(key.WithKeys("right")),
		Add:          key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add rule")),
		Submit:       key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit")),
		DeleteDraft:  key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "drop draft")),
		DeleteActive: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete active")),
		Refresh:      key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh")),
		Dismiss:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),
		Quit:         key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.NextFocus, k.Add, k.Submit, k.Refresh, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextTab, k.PrevTab, k.NextFocus, k.PrevFocus},
		{k.Add, k.Left, k.Submit, k.Refresh},
		{k.DeleteDraft, k.DeleteActive, k.Dismiss, k.Quit},
	}
}
