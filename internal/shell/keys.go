package shell

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Scan     key.Binding
	Connect  key.Binding
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Focus    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Scan:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "scan for devices")),
		Connect:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect to selected")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select:   key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter/space", "select / press")),
		Focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next control")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll log up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdown", "scroll log down")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Scan, k.Connect, k.Select, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Scan, k.Connect, k.Focus, k.Select},
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Help, k.Quit},
	}
}
