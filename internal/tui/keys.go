package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keyboard bindings.
type KeyMap struct {
	Down     key.Binding
	Up       key.Binding
	HalfDown key.Binding
	HalfUp   key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Cancel   key.Binding
	Easing   key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "line down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "line up"),
		),
		HalfDown: key.NewBinding(
			key.WithKeys("d", "pgdown"),
			key.WithHelp("d", "half page down"),
		),
		HalfUp: key.NewBinding(
			key.WithKeys("u", "pgup"),
			key.WithHelp("u", "half page up"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "bottom"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", " "),
			key.WithHelp("esc", "stop"),
		),
		Easing: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "easing"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k KeyMap) help() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.HalfDown, k.HalfUp, k.Top, k.Bottom, k.Easing, k.Cancel, k.Quit}
}
