package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	done    key.Binding
	remove  key.Binding
	export  key.Binding
	refresh key.Binding
	yes     key.Binding
	no      key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		done:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "done")),
		remove:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		export:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export all")),
		refresh: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh")),
		yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:      key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "back to lists")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.done, k.remove, k.export, k.refresh},
		{k.yes, k.no, k.restart, k.quit},
	}
}
