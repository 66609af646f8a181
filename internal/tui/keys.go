package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	FocusToggle  key.Binding
	NextLanguage key.Binding
	PrevLanguage key.Binding
	NextTheme    key.Binding
	FontUp       key.Binding
	FontDown     key.Binding
	Copy         key.Binding
	Download     key.Binding
	Clear        key.Binding
	Help         key.Binding
	Quit         key.Binding

	Indent key.Binding

	Left     key.Binding
	Right    key.Binding
	Up       key.Binding
	Down     key.Binding
	Activate key.Binding
	Erase    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		FocusToggle:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "panel/editor")),
		NextLanguage: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "language")),
		PrevLanguage: key.NewBinding(key.WithKeys("alt+l"), key.WithHelp("alt+l", "prev language")),
		NextTheme:    key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "theme")),
		FontUp:       key.NewBinding(key.WithKeys("alt+=", "alt++"), key.WithHelp("alt+=", "font +")),
		FontDown:     key.NewBinding(key.WithKeys("alt+-"), key.WithHelp("alt+-", "font -")),
		Copy:         key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy")),
		Download:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "download")),
		Clear:        key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "clear")),
		Help:         key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
		Quit:         key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),

		Indent: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "indent")),

		Left:     key.NewBinding(key.WithKeys("left", "h", "shift+tab"), key.WithHelp("←/→", "field")),
		Right:    key.NewBinding(key.WithKeys("right", "l", "tab")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/↓", "change")),
		Down:     key.NewBinding(key.WithKeys("down", "j")),
		Activate: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "apply")),
		Erase:    key.NewBinding(key.WithKeys("backspace")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.FocusToggle, k.Copy, k.Download, k.Clear, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.FocusToggle, k.Left, k.Up, k.Activate},
		{k.NextLanguage, k.PrevLanguage, k.NextTheme, k.FontUp, k.FontDown},
		{k.Copy, k.Download, k.Clear, k.Indent},
		{k.Help, k.Quit},
	}
}
