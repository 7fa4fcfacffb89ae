package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines keybindings
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Scope    key.Binding
	Upload   key.Binding
	Delete   key.Binding
	Share    key.Binding
	Open     key.Binding
	Reload   key.Binding
	Help     key.Binding
	Quit     key.Binding
	Back     key.Binding
	Submit   key.Binding
	Describe key.Binding
	Public   key.Binding
	Pick     key.Binding
	Remove   key.Binding
	Confirm  key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Scope: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "my/public files"),
		),
		Upload: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "upload"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Share: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "share link"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "download"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "upload file"),
		),
		Describe: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "description"),
		),
		Public: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "toggle public"),
		),
		Pick: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "type a path"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "remove file"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "confirm"),
		),
	}
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Scope, k.Upload, k.Delete, k.Share, k.Open, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Scope, k.Reload},
		{k.Upload, k.Delete, k.Share, k.Open},
		{k.Help, k.Quit},
	}
}

// dropKeys is the help shown on the upload panel.
type dropKeys struct{ KeyMap }

func (k dropKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Pick, k.Describe, k.Public, k.Remove, k.Submit, k.Back}
}

func (k dropKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
