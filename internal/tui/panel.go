package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vibe-terminal/internal/catalog"
	"vibe-terminal/internal/session"
	"vibe-terminal/internal/theme"
)

// panelField is a focusable element of the control panel, in display order.
type panelField int

const (
	fieldLanguage panelField = iota
	fieldTheme
	fieldFontSize
	fieldCopy
	fieldDownload
	fieldClear
	fieldCount
)

const maxFontInputDigits = 3

// panelAction is what a panel key press asks the model to do.
type panelAction int

const (
	actionNone panelAction = iota
	actionLanguage
	actionTheme
	actionFontSize
	actionCopy
	actionDownload
	actionClear
)

// panelIntent carries the requested action and its argument.
type panelIntent struct {
	action   panelAction
	language catalog.LanguageID
	theme    catalog.ThemeID
	fontSize string
}

// panel is the control bar. It never mutates session state itself; it turns
// keys into intents that the model applies.
type panel struct {
	field     panelField
	fontInput string
}

func (p panel) update(msg tea.KeyMsg, keys keyMap, state *session.State) (panel, panelIntent) {
	switch {
	case key.Matches(msg, keys.Left):
		intent := p.commitFontInput()
		p.fontInput = ""
		p.field = (p.field + fieldCount - 1) % fieldCount
		return p, intent
	case key.Matches(msg, keys.Right):
		intent := p.commitFontInput()
		p.fontInput = ""
		p.field = (p.field + 1) % fieldCount
		return p, intent
	case key.Matches(msg, keys.Up):
		return p.step(-1, state)
	case key.Matches(msg, keys.Down):
		return p.step(1, state)
	case key.Matches(msg, keys.Erase):
		if p.field == fieldFontSize && len(p.fontInput) > 0 {
			p.fontInput = p.fontInput[:len(p.fontInput)-1]
		}
		return p, panelIntent{}
	case key.Matches(msg, keys.Activate):
		switch p.field {
		case fieldFontSize:
			intent := p.commitFontInput()
			p.fontInput = ""
			return p, intent
		case fieldCopy:
			return p, panelIntent{action: actionCopy}
		case fieldDownload:
			return p, panelIntent{action: actionDownload}
		case fieldClear:
			return p, panelIntent{action: actionClear}
		}
		return p, panelIntent{}
	}

	if p.field == fieldFontSize && msg.Type == tea.KeyRunes && isDigits(msg.Runes) {
		if len(p.fontInput)+len(msg.Runes) <= maxFontInputDigits {
			p.fontInput += string(msg.Runes)
		}
	}
	return p, panelIntent{}
}

// step moves the focused selector by delta. Up walks backwards through the
// catalogs and enlarges the font.
func (p panel) step(delta int, state *session.State) (panel, panelIntent) {
	switch p.field {
	case fieldLanguage:
		return p, panelIntent{action: actionLanguage, language: catalog.NextLanguage(state.Language(), delta)}
	case fieldTheme:
		return p, panelIntent{action: actionTheme, theme: catalog.NextTheme(state.Theme(), delta)}
	case fieldFontSize:
		p.fontInput = ""
		return p, panelIntent{action: actionFontSize, fontSize: strconv.Itoa(state.FontSize() - delta)}
	}
	return p, panelIntent{}
}

func (p panel) commitFontInput() panelIntent {
	if p.field != fieldFontSize || p.fontInput == "" {
		return panelIntent{}
	}
	return panelIntent{action: actionFontSize, fontSize: p.fontInput}
}

func (p panel) view(state *session.State, styles theme.Styles, focused bool, width int) string {
	lang, _ := catalog.LookupLanguage(state.Language())
	th, _ := catalog.LookupTheme(state.Theme())

	font := strconv.Itoa(state.FontSize())
	if focused && p.field == fieldFontSize && p.fontInput != "" {
		font = p.fontInput + "_"
	}

	control := func(field panelField, text string) string {
		if focused && p.field == field {
			return styles.ActiveControl.Render(text)
		}
		return styles.Control.Render(text)
	}
	label := func(text string) string {
		return styles.Panel.Render(text)
	}

	selectors := lipgloss.JoinHorizontal(lipgloss.Center,
		label("Language:"), control(fieldLanguage, lang.Name+" ▾"),
		label("Theme:"), control(fieldTheme, th.Name+" ▾"),
		label("Font Size:"), control(fieldFontSize, font),
	)
	buttons := lipgloss.JoinHorizontal(lipgloss.Center,
		control(fieldCopy, "Copy"), " ",
		control(fieldDownload, "Download"), " ",
		control(fieldClear, "Clear"),
	)

	gap := width - lipgloss.Width(selectors) - lipgloss.Width(buttons)
	if gap < 2 {
		return styles.Panel.MaxWidth(width).Render(lipgloss.JoinVertical(lipgloss.Left, selectors, buttons))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, selectors, styles.Panel.Render(strings.Repeat(" ", gap-2)), buttons)
}

// isDigits accepts ASCII 0-9 only, so fontInput's byte length is its digit
// count and Atoi accepts everything it holds.
func isDigits(rs []rune) bool {
	if len(rs) == 0 {
		return false
	}
	for _, r := range rs {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
