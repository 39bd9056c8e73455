package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the bindings surfaced in the help line.
type keyMap struct {
	Submit    key.Binding
	PlayPause key.Binding
	SeekBack  key.Binding
	SeekFwd   key.Binding
	VolUp     key.Binding
	VolDown   key.Binding
	Mute      key.Binding
	History   key.Binding
	Clear     key.Binding
	NewFile   key.Binding
	Cancel    key.Binding
	Quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "analyze")),
		PlayPause: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		SeekBack:  key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "seek back")),
		SeekFwd:   key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "seek fwd")),
		VolUp:     key.NewBinding(key.WithKeys("+", "up"), key.WithHelp("+", "louder")),
		VolDown:   key.NewBinding(key.WithKeys("-", "down"), key.WithHelp("-", "quieter")),
		Mute:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		History:   key.NewBinding(key.WithKeys("h", "tab"), key.WithHelp("h", "history")),
		Clear:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear history")),
		NewFile:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "new file")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap for the results screen.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PlayPause, k.SeekBack, k.SeekFwd, k.VolDown, k.VolUp, k.Mute, k.History, k.NewFile, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PlayPause, k.SeekBack, k.SeekFwd},
		{k.VolDown, k.VolUp, k.Mute},
		{k.History, k.Clear, k.NewFile, k.Quit},
	}
}
