// Package tui is the terminal front end for a list session.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"family-groceries/internal/parse"
	"family-groceries/internal/session"
)

// Controller is the list session driven by the terminal. *session.Session
// satisfies it.
type Controller interface {
	View() session.View
	Changes() <-chan struct{}
	Done() <-chan struct{}

	Add(ctx context.Context, name, quantity string) error
	QuickAdd(ctx context.Context, name string) error
	SuggestionDisabled(name string) bool
	Toggle(ctx context.Context, id string, checked bool) error
	RequestDelete(id string) error
	RequestPurchase() error
	ConfirmReview(ctx context.Context) error
	CancelReview() error
	Undo(ctx context.Context) error
	Refresh(ctx context.Context) error
}

var _ Controller = (*session.Session)(nil)

type mode int

const (
	modeList mode = iota
	modeAdd
)

type (
	changedMsg struct{}
	closedMsg  struct{}
	// doneMsg reports the end of a command that talked to the store.
	doneMsg struct {
		op  string
		err error
	}
)

// Model is the bubbletea model for the shopping list.
type Model struct {
	ctx  context.Context
	ctrl Controller

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	name    textinput.Model
	qty     textinput.Model

	view     session.View
	cursor   int
	mode     mode
	width    int
	quitting bool
}

// New creates a model over ctrl. Commands run with ctx.
func New(ctx context.Context, ctrl Controller) Model {
	name := textinput.New()
	name.Placeholder = "Add an item..."
	name.Prompt = "> "
	name.CharLimit = parse.MaxNameLength
	name.Cursor.SetMode(cursor.CursorStatic)

	qty := textinput.New()
	qty.Placeholder = "Qty"
	qty.Prompt = "× "
	qty.CharLimit = 16
	qty.Width = 8
	qty.Cursor.SetMode(cursor.CursorStatic)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle

	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		keys:    defaultKeys(),
		help:    help.New(),
		spinner: sp,
		name:    name,
		qty:     qty,
		view:    ctrl.View(),
	}
}

// Cursor returns the index of the highlighted row.
func (m Model) Cursor() int { return m.cursor }

// Adding reports whether the add form is open.
func (m Model) Adding() bool { return m.mode == modeAdd }

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.ctrl), m.spinner.Tick)
}

func waitForChange(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctrl.Changes():
			return changedMsg{}
		case <-ctrl.Done():
			return closedMsg{}
		}
	}
}

func (m Model) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return doneMsg{op: op, err: fn(ctx)}
	}
}

// sync pulls a fresh view and keeps the cursor on the list.
func (m *Model) sync() {
	m.view = m.ctrl.View()
	if m.cursor >= len(m.view.Items) {
		m.cursor = len(m.view.Items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case changedMsg:
		m.sync()
		return m, waitForChange(m.ctrl)

	case closedMsg:
		m.quitting = true
		return m, tea.Quit

	case doneMsg:
		m.sync()
		if msg.op == "add" && msg.err == nil {
			m.closeAdd()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Interrupt) {
			m.quitting = true
			return m, tea.Quit
		}
		switch {
		case m.mode == modeAdd:
			return m.updateAdd(msg)
		case m.view.Review != nil:
			return m.updateReview(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.view.Items)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Toggle):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.run("toggle", func(ctx context.Context) error {
			return m.ctrl.Toggle(ctx, item.ID, !item.Checked)
		})

	case key.Matches(msg, m.keys.Add):
		m.mode = modeAdd
		m.qty.Blur()
		return m, m.name.Focus()

	case key.Matches(msg, m.keys.Delete):
		if item, ok := m.selected(); ok {
			_ = m.ctrl.RequestDelete(item.ID)
			m.sync()
		}

	case key.Matches(msg, m.keys.Buy):
		if m.view.CheckedCount > 0 {
			_ = m.ctrl.RequestPurchase()
			m.sync()
		}

	case key.Matches(msg, m.keys.Undo):
		if m.view.CanUndo {
			return m, m.run("undo", m.ctrl.Undo)
		}

	case key.Matches(msg, m.keys.Refresh):
		return m, m.run("refresh", m.ctrl.Refresh)

	case key.Matches(msg, m.keys.Quick):
		idx := int(msg.String()[0] - '1')
		if idx >= len(m.view.Suggestions) {
			return m, nil
		}
		name := m.view.Suggestions[idx].Name
		if m.view.Suggestions[idx].Disabled || m.ctrl.SuggestionDisabled(name) {
			return m, nil
		}
		return m, m.run("quick-add", func(ctx context.Context) error {
			return m.ctrl.QuickAdd(ctx, name)
		})
	}
	return m, nil
}

func (m Model) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		return m, m.run("confirm", m.ctrl.ConfirmReview)
	case key.Matches(msg, m.keys.Cancel):
		_ = m.ctrl.CancelReview()
		m.sync()
	}
	return m, nil
}

func (m Model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.closeAdd()
		return m, nil

	case key.Matches(msg, m.keys.Switch):
		if m.name.Focused() {
			m.name.Blur()
			return m, m.qty.Focus()
		}
		m.qty.Blur()
		return m, m.name.Focus()

	case key.Matches(msg, m.keys.Submit):
		name, qty := m.name.Value(), m.qty.Value()
		if strings.TrimSpace(name) == "" {
			return m, nil
		}
		return m, m.run("add", func(ctx context.Context) error {
			return m.ctrl.Add(ctx, name, qty)
		})
	}

	var cmd tea.Cmd
	if m.name.Focused() {
		m.name, cmd = m.name.Update(msg)
	} else {
		m.qty, cmd = m.qty.Update(msg)
	}
	return m, cmd
}

func (m *Model) closeAdd() {
	m.mode = modeList
	m.name.Reset()
	m.qty.Reset()
	m.name.Blur()
	m.qty.Blur()
}

func (m Model) selected() (session.ViewItem, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Items) {
		return session.ViewItem{}, false
	}
	return m.view.Items[m.cursor], true
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("🛒 Family Groceries"))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("Shop together, eat together"))
	b.WriteString("\n\n")

	if m.mode == modeAdd {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.name.View(), "  ", m.qty.View()))
		b.WriteString("\n\n")
	}

	if s := m.suggestionsView(); s != "" {
		b.WriteString(s)
		b.WriteString("\n\n")
	}

	b.WriteString(m.listView())

	if m.view.Loaded && len(m.view.Items) > 0 {
		b.WriteString("\n")
		label := "Buy Checked Items"
		if m.view.CheckedCount > 0 {
			label += " " + countStyle.Render(fmt.Sprintf("(%d)", m.view.CheckedCount))
			b.WriteString(label)
		} else {
			b.WriteString(mutedStyle.Render(label))
		}
		b.WriteString("\n")
	}

	if m.view.Review != nil {
		b.WriteString(m.reviewView())
		b.WriteString("\n")
	}

	if t := m.view.Toast; t != nil {
		msg := t.Message
		if t.Undoable {
			msg += "  (u to undo)"
		}
		b.WriteString("\n")
		b.WriteString(toastStyle.Render(msg))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(m.help.ShortHelpView(m.helpKeys())))
	return b.String()
}

func (m Model) helpKeys() []key.Binding {
	switch {
	case m.mode == modeAdd:
		return m.keys.addHelp()
	case m.view.Review != nil:
		return m.keys.reviewHelp()
	default:
		return m.keys.listHelp()
	}
}

func (m Model) suggestionsView() string {
	if len(m.view.Suggestions) == 0 {
		return ""
	}
	parts := make([]string, 0, len(m.view.Suggestions))
	for i, s := range m.view.Suggestions {
		if i >= 9 {
			break
		}
		label := fmt.Sprintf("[%d] %s", i+1, s.Name)
		if s.Disabled {
			label = mutedStyle.Render(label)
		}
		parts = append(parts, label)
	}
	return mutedStyle.Render("Quick add: ") + strings.Join(parts, "  ")
}

func (m Model) listView() string {
	switch {
	case !m.view.Loaded && m.view.Error != "":
		return errorStyle.Render(m.view.Error+". Press r to retry.") + "\n"
	case !m.view.Loaded:
		return m.spinner.View() + " Loading...\n"
	case len(m.view.Items) == 0:
		return mutedStyle.Render("Your list is empty. Add some items to get started!") + "\n"
	}

	var b strings.Builder
	if m.view.Error != "" {
		b.WriteString(errorStyle.Render(m.view.Error))
		b.WriteString("\n")
	}
	for i, item := range m.view.Items {
		box := mutedStyle.Render(boxUnchecked)
		name := item.Name
		if item.Checked {
			box = selectedStyle.Render(boxChecked)
			name = checkedStyle.Render(name)
		}
		line := fmt.Sprintf("%s %s %s", box, item.Emoji, name)
		if item.Quantity != "" && item.Quantity != "1" {
			line += mutedStyle.Render(" × " + item.Quantity)
		}

		prefix := "  "
		if i == m.cursor {
			prefix = selectedStyle.Render("> ")
		}
		b.WriteString(prefix + line + "\n")
	}
	return b.String()
}

func (m Model) reviewView() string {
	r := m.view.Review
	var b strings.Builder
	if r.Kind == session.ReviewPurchase {
		b.WriteString(titleStyle.Render("Ready to checkout?"))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("Review your checked items before removing them"))
		b.WriteString("\n")
		for _, item := range r.Items {
			fmt.Fprintf(&b, "  • %s (%s)\n", item.Name, item.Quantity)
		}
	} else if len(r.Items) > 0 {
		fmt.Fprintf(&b, "Remove %s from the list?\n", r.Items[0].Name)
	}
	b.WriteString(mutedStyle.Render("y to confirm, n to cancel"))
	return reviewStyle.Render(b.String())
}
