// Package tui is the interactive console: one tab per rule category, each
// with its entry form, staged drafts and the active rules on the router.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"grimm.is/rulestage/internal/brand"
	"grimm.is/rulestage/internal/console"
	"grimm.is/rulestage/internal/logging"
	"grimm.is/rulestage/internal/rules"
)

// changedMsg reports a controller change made outside the event loop,
// such as a scheduled refresh landing.
type changedMsg struct{ cat rules.Category }

// opDoneMsg reports a finished network operation.
type opDoneMsg struct {
	cat rules.Category
	op  string
	err error
}

// Model is the main application state
type Model struct {
	ctx     context.Context
	console *console.Console
	cats    []rules.Category
	tabs    map[rules.Category]*tab
	current int
	changes chan rules.Category

	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	Width  int
	Height int
}

// NewModel creates the console model. Controller changes are delivered to
// the event loop through a channel.
func NewModel(ctx context.Context, c *console.Console) Model {
	m := Model{
		ctx:     ctx,
		console: c,
		cats:    c.Categories(),
		tabs:    make(map[rules.Category]*tab),
		changes: make(chan rules.Category, 64),
		keys:    DefaultKeyMap(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(StyleStatusWarn)),
	}
	for _, cat := range m.cats {
		ctl, _ := c.Controller(cat)
		m.tabs[cat] = newTab(ctl)
	}
	m.tab().focusField(0)
	m.syncKeys()

	ch := m.changes
	c.SetOnChange(func(cat rules.Category) {
		select {
		case ch <- cat:
		default:
			// A render is already queued.
		}
	})
	return m
}

// Run starts the console and blocks until the user quits.
func Run(ctx context.Context, c *console.Console) error {
	p := tea.NewProgram(NewModel(ctx, c), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) tab() *tab { return m.tabs[m.cats[m.current]] }

func waitForChange(ch <-chan rules.Category) tea.Cmd {
	return func() tea.Msg {
		return changedMsg{cat: <-ch}
	}
}

func (m Model) refreshCmd(t *tab) tea.Cmd {
	ctx, ctl := m.ctx, t.ctl
	return func() tea.Msg {
		return opDoneMsg{cat: ctl.Category(), op: "refresh", err: ctl.RefreshActive(ctx)}
	}
}

func (m Model) submitCmd(t *tab) tea.Cmd {
	ctx, ctl := m.ctx, t.ctl
	return func() tea.Msg {
		return opDoneMsg{cat: ctl.Category(), op: "submit", err: ctl.Submit(ctx)}
	}
}

func (m Model) deleteCmd(t *tab, key string) tea.Cmd {
	ctx, ctl := m.ctx, t.ctl
	return func() tea.Msg {
		return opDoneMsg{cat: ctl.Category(), op: "delete", err: ctl.DeleteActive(ctx, key)}
	}
}

// Init loads every category's active list.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, waitForChange(m.changes)}
	for _, cat := range m.cats {
		cmds = append(cmds, m.refreshCmd(m.tabs[cat]))
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	nm := next.(Model)
	nm.syncKeys()
	return nm, cmd
}

// syncKeys enables submit only while the current tab has staged drafts.
func (m *Model) syncKeys() {
	m.keys.Submit.SetEnabled(len(m.tab().ctl.Snapshot().Drafts) > 0)
}

func (m Model) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.help.Width = msg.Width
		for _, t := range m.tabs {
			t.resize(msg.Width, msg.Height)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case changedMsg:
		if t, ok := m.tabs[msg.cat]; ok {
			t.sync()
		}
		return m, waitForChange(m.changes)

	case opDoneMsg:
		if t, ok := m.tabs[msg.cat]; ok {
			t.sync()
		}
		if msg.err != nil {
			logging.WithComponent("tui").WithCategory(string(msg.cat)).Debug("operation finished with error", "op", msg.op, "error", msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t := m.tab()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.NextTab):
		return m.selectIndex((m.current + 1) % len(m.cats))
	case key.Matches(msg, m.keys.PrevTab):
		return m.selectIndex((m.current - 1 + len(m.cats)) % len(m.cats))
	case key.Matches(msg, m.keys.NextFocus):
		return m, t.cycleFocus(1)
	case key.Matches(msg, m.keys.PrevFocus):
		return m, t.cycleFocus(-1)
	case key.Matches(msg, m.keys.Submit):
		return m, m.submitCmd(t)
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshCmd(t)
	case key.Matches(msg, m.keys.Dismiss):
		t.ctl.DismissNotice()
		return m, nil
	}

	switch t.focus {
	case focusDrafts:
		switch {
		case key.Matches(msg, m.keys.Up):
			t.moveDraft(-1)
		case key.Matches(msg, m.keys.Down):
			t.moveDraft(1)
		case key.Matches(msg, m.keys.DeleteDraft):
			t.deleteDraft()
		}
		return m, nil

	case focusActive:
		if key.Matches(msg, m.keys.DeleteActive) {
			if k, ok := t.selectedActive(); ok {
				return m, m.deleteCmd(t, k)
			}
			return m, nil
		}
		var cmd tea.Cmd
		t.table, cmd = t.table.Update(msg)
		return m, cmd
	}

	// Form
	switch {
	case key.Matches(msg, m.keys.Add):
		t.addRule()
		return m, nil
	case key.Matches(msg, m.keys.Left):
		if t.cycleOption(-1) {
			return m, nil
		}
	case key.Matches(msg, m.keys.Right):
		if t.cycleOption(1) {
			return m, nil
		}
	case key.Matches(msg, m.keys.Up):
		return m, t.moveField(-1)
	case key.Matches(msg, m.keys.Down):
		return m, t.moveField(1)
	}
	return m, t.updateInput(msg)
}

func (m Model) selectIndex(i int) (tea.Model, tea.Cmd) {
	m.tab().blur()
	m.current = i
	t := m.tab()
	t.sync()
	m.syncKeys()
	return m, t.focusField(t.field)
}

// selectCategory switches to the tab for cat.
func (m Model) selectCategory(cat rules.Category) Model {
	for i, c := range m.cats {
		if c == cat {
			next, _ := m.selectIndex(i)
			return next.(Model)
		}
	}
	return m
}

// View renders the application
func (m Model) View() string {
	t := m.tab()
	st := t.ctl.Snapshot()

	top := m.viewTopBar()

	formCard, draftCard, activeCard := StyleCard, StyleCard, StyleCard
	switch t.focus {
	case focusForm:
		formCard = StyleActiveCard
	case focusDrafts:
		draftCard = StyleActiveCard
	case focusActive:
		activeCard = StyleActiveCard
	}

	staging := lipgloss.JoinHorizontal(lipgloss.Top,
		formCard.Render(StyleTitle.Render("New "+t.desc.Title+" rule")+"\n"+t.viewForm(st)),
		draftCard.Render(StyleTitle.Render(fmt.Sprintf("Staged (%d)", len(st.Drafts)))+"\n"+t.viewDrafts(st)),
	)

	status := fmt.Sprintf("%d active rule(s)", len(st.Active))
	if !st.Loaded {
		status = "loading active rules"
	}
	if st.Busy {
		status = m.spinner.View() + " " + status
	}
	active := activeCard.Render(StyleTitle.Render("Active") + "  " + StyleSubtitle.Render(status) + "\n" + t.table.View())

	parts := []string{top, staging, active}
	if st.Notice != nil {
		parts = append(parts, noticeStyle(st.Notice.Kind.String()).Render(st.Notice.Text)+StyleSubtitle.Render("  (esc)"))
	}
	parts = append(parts, m.viewActivity(), m.help.View(m.keys))

	return StyleApp.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// viewTopBar renders the category tabs
func (m Model) viewTopBar() string {
	pending := m.console.PendingDrafts()
	items := []string{StyleTitle.Render(strings.ToUpper(brand.Name) + " ")}
	for i, cat := range m.cats {
		label := m.tabs[cat].desc.Title
		if n := pending[cat]; n > 0 {
			label += StyleMenuKey.Render(fmt.Sprintf(" [%d]", n))
		}
		if i == m.current {
			items = append(items, StyleMenuItemActive.Render(label))
		} else {
			items = append(items, StyleMenuItem.Render(label))
		}
	}
	return StyleTopBar.Render(lipgloss.JoinHorizontal(lipgloss.Top, items...))
}

func (m Model) viewActivity() string {
	entries := logging.Activity().ForCategory(string(m.cats[m.current]), 4)
	if len(entries) == 0 {
		return ""
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return StyleActivity.Render(strings.Join(lines, "\n"))
}
