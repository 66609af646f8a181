package tui

import (
	"github.com/charmbracelet/lipgloss"

	"vibe-terminal/internal/theme"
)

type noticeKind int

const (
	noticeInfo noticeKind = iota
	noticeFailure
)

// notice is a modal message. While one is shown every key dismisses it and
// does nothing else.
type notice struct {
	kind  noticeKind
	title string
	body  string
}

func (n notice) view(styles theme.Styles, width, height int) string {
	style := styles.Notice
	if n.kind == noticeFailure {
		style = styles.Warning
	}
	text := n.title
	if n.body != "" {
		text += "\n\n" + n.body
	}
	text += "\n\n" + styles.Muted.Render("press any key")
	box := style.Render(text)
	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
