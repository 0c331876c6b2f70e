package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Toggle    key.Binding
	Add       key.Binding
	Delete    key.Binding
	Buy       key.Binding
	Undo      key.Binding
	Refresh   key.Binding
	Quick     key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
	Back      key.Binding
	Submit    key.Binding
	Switch    key.Binding
	Quit      key.Binding
	Interrupt key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:    key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "check")),
		Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Buy:       key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "buy checked")),
		Undo:      key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quick:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "quick add")),
		Confirm:   key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y", "confirm")),
		Cancel:    key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel")),
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Switch:    key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "name/qty")),
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		Interrupt: key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

func (k keyMap) listHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Add, k.Delete, k.Buy, k.Undo, k.Quick, k.Refresh, k.Quit}
}

func (k keyMap) addHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Switch, k.Back}
}

func (k keyMap) reviewHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}
