package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Add         key.Binding
	Mutate      key.Binding
	DeleteFirst key.Binding
	Delete      key.Binding
	Up          key.Binding
	Down        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Mutate: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mutate n-1"),
		),
		DeleteFirst: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "delete 0"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete row"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k", "ctrl+p"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j", "ctrl+n"),
			key.WithHelp("↓/j", "down"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp and FullHelp satisfy help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Mutate, k.DeleteFirst, k.Delete, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Add, k.Mutate, k.DeleteFirst, k.Delete},
		{k.Up, k.Down},
		{k.Help, k.Quit},
	}
}
