package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Clear    key.Binding
	Train    key.Binding
	Download key.Binding
	Cancel   key.Binding
	Page     key.Binding
	Bottom   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Select, k.Clear, k.Train, k.Download, k.Cancel, k.Page, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Clear},
		{k.Train, k.Download, k.Cancel},
		{k.Page, k.Bottom, k.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑↓/jk", "navigate")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select:   key.NewBinding(key.WithKeys("enter", " ", "space"), key.WithHelp("enter", "select")),
		Clear:    key.NewBinding(key.WithKeys("backspace", "x"), key.WithHelp("x", "clear")),
		Train:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "train")),
		Download: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download")),
		Cancel:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cancel")),
		Page:     key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("PgUp/PgDn", "logs")),
		Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "log end")),
	}
}
