package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vibe-terminal/internal/catalog"
	"vibe-terminal/internal/highlight"
	"vibe-terminal/internal/session"
	"vibe-terminal/internal/theme"
	"vibe-terminal/internal/widget"
)

const loadingText = "Loading Vibe Coding..."

// editorSurface owns the embedded widget. Edits flow upward only through
// onChange; everything else flows down through render.
type editorSurface struct {
	state  *session.State
	widget *widget.Widget
}

func newEditorSurface(state *session.State, hl *highlight.Highlighter) *editorSurface {
	e := &editorSurface{state: state}
	e.widget = widget.New(state.Buffer(), widget.DefaultOptions(), hl, e.onChange)
	return e
}

func (e *editorSurface) onChange(value string) {
	e.state.SetBuffer(value)
}

// renderConfig is everything the widget needs from the session for a frame.
type renderConfig struct {
	Language catalog.LanguageID
	Theme    catalog.ThemeID
	FontSize int
	Buffer   string
}

// render pushes cfg into the widget. The widget value is only rewritten when
// the session buffer changed underneath it (clear), so the cursor survives
// every other reconfiguration.
func (e *editorSurface) render(cfg renderConfig, styles theme.Styles, profile theme.TermProfile) {
	lang, err := catalog.LookupLanguage(cfg.Language)
	if err != nil {
		lang, _ = catalog.LookupLanguage(catalog.DefaultLanguage)
	}
	th, err := catalog.LookupTheme(cfg.Theme)
	if err != nil {
		th, _ = catalog.LookupTheme(catalog.DefaultTheme)
	}

	e.widget.Configure(widget.Config{
		Language: string(lang.ID),
		Lexer:    lang.Lexer,
		Style:    th.Style,
		FontSize: cfg.FontSize,
		Profile:  profile.ColorProfile(),
		Text:     styles.Editor,
		Gutter:   styles.Muted,
		Frame:    styles.Border,
		Ruler:    styles.Muted,
		Minimap:  styles.Editor,
	})
	if e.widget.Value() != cfg.Buffer {
		e.widget.SetValue(cfg.Buffer)
	}
}

func (e *editorSurface) resize(width, height int) {
	// The frame border takes one cell on every side.
	e.widget.Resize(max(width-2, 1), max(height-2, 1))
}

func (e *editorSurface) update(msg tea.Msg) tea.Cmd {
	return e.widget.Update(msg)
}

func (e *editorSurface) insert(s string) {
	e.widget.InsertString(s)
}

func (e *editorSurface) focus() tea.Cmd { return e.widget.Focus() }

func (e *editorSurface) blur() { e.widget.Blur() }

func (e *editorSurface) view() string {
	return e.widget.View()
}

func (e *editorSurface) cursor() (row, col int) {
	return e.widget.Cursor()
}

// placeholder is shown instead of the widget until the session is Ready.
func placeholder(width, height int) string {
	if width <= 0 || height <= 0 {
		return loadingText
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, loadingText)
}
