package widget

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the editing bindings. Terminals disagree on modifier
// encodings, so movement accepts both alt and ctrl forms.
type KeyMap struct {
	Left, Right, Up, Down key.Binding
	WordLeft, WordRight   key.Binding
	Home, End             key.Binding
	DocStart, DocEnd      key.Binding
	PageUp, PageDown      key.Binding

	Backspace, Delete  key.Binding
	DeleteWordBackward key.Binding
	DeleteToLineStart  key.Binding
	DeleteToLineEnd    key.Binding
	Enter, Tab         key.Binding
}

// DefaultKeyMap returns the bindings used by New.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Left:      key.NewBinding(key.WithKeys("left", "ctrl+b")),
		Right:     key.NewBinding(key.WithKeys("right", "ctrl+f")),
		Up:        key.NewBinding(key.WithKeys("up", "ctrl+p")),
		Down:      key.NewBinding(key.WithKeys("down", "ctrl+n")),
		WordLeft:  key.NewBinding(key.WithKeys("alt+left", "ctrl+left", "alt+b")),
		WordRight: key.NewBinding(key.WithKeys("alt+right", "ctrl+right", "alt+f")),
		Home:      key.NewBinding(key.WithKeys("home", "ctrl+a")),
		End:       key.NewBinding(key.WithKeys("end", "ctrl+e")),
		DocStart:  key.NewBinding(key.WithKeys("ctrl+home", "alt+<")),
		DocEnd:    key.NewBinding(key.WithKeys("ctrl+end", "alt+>")),
		PageUp:    key.NewBinding(key.WithKeys("pgup")),
		PageDown:  key.NewBinding(key.WithKeys("pgdown")),

		Backspace:          key.NewBinding(key.WithKeys("backspace", "ctrl+h")),
		Delete:             key.NewBinding(key.WithKeys("delete", "ctrl+d")),
		DeleteWordBackward: key.NewBinding(key.WithKeys("alt+backspace", "ctrl+w")),
		DeleteToLineStart:  key.NewBinding(key.WithKeys("ctrl+u")),
		DeleteToLineEnd:    key.NewBinding(key.WithKeys("ctrl+k")),
		Enter:              key.NewBinding(key.WithKeys("enter")),
		Tab:                key.NewBinding(key.WithKeys("tab")),
	}
}
