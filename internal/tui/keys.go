package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Toggle      key.Binding
	SelectAll   key.Binding
	DeselectAll key.Binding
	Clear       key.Binding
	Export      key.Binding
	Refresh     key.Binding
	Filter      key.Binding
	Done        key.Binding
	Quit        key.Binding
}

var keys = keyMap{
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	PageUp:      key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
	PageDown:    key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
	Toggle:      key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
	SelectAll:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select visible")),
	DeselectAll: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "deselect visible")),
	Clear:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
	Export:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
	Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "re-fetch")),
	Filter:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	Done:        key.NewBinding(key.WithKeys("enter", "esc")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Toggle, k.SelectAll, k.DeselectAll, k.Clear, k.Filter, k.Export, k.Refresh, k.Quit}
}
