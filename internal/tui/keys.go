package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up           key.Binding
	Down         key.Binding
	Cycle        key.Binding
	Weekday      key.Binding
	MorePct      key.Binding
	LessPct      key.Binding
	Reset        key.Binding
	ShowInactive key.Binding
	Copy         key.Binding
	Quit         key.Binding
	PreviewUp    key.Binding
	PreviewDn    key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k", "ctrl+k"),
		key.WithHelp("up/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j", "ctrl+j"),
		key.WithHelp("dn/j", "down"),
	),
	Cycle: key.NewBinding(
		key.WithKeys("enter", " ", "space"),
		key.WithHelp("space", "auto/exclude/include"),
	),
	Weekday: key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6", "7"),
		key.WithHelp("1-7", "toggle Mon..Sun"),
	),
	MorePct: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "raise min %"),
	),
	LessPct: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-", "lower min %"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset"),
	),
	ShowInactive: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "show inactive"),
	),
	Copy: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy active"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	PreviewUp: key.NewBinding(
		key.WithKeys("ctrl+u"),
		key.WithHelp("C-u", "preview up"),
	),
	PreviewDn: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("C-d", "preview down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "preview pgup"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "preview pgdn"),
	),
}
