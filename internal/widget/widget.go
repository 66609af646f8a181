// Package widget is the embedded editing widget: it accepts language, theme,
// value, a change callback and an options bag, highlights what the user edits
// and can be reconfigured without losing the buffer or cursor.
package widget

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"vibe-terminal/internal/highlight"
)

const (
	minMinimapTextWidth = 40
	minTextHeight       = 1
	wheelLines          = 3
)

// Config is the per-render configuration from the control panel.
type Config struct {
	Language string
	Lexer    string
	// Style is the chroma style name for highlighted output.
	Style    string
	FontSize int
	Profile  termenv.Profile

	Text    lipgloss.Style
	Gutter  lipgloss.Style
	Frame   lipgloss.Style
	Ruler   lipgloss.Style
	Minimap lipgloss.Style
}

// ChangeFunc receives the full buffer whenever an edit changes it.
type ChangeFunc func(value string)

// Widget is the embedded editor. The zero value is not usable; call New.
type Widget struct {
	buf      *buffer
	caret    cursor.Model
	keys     KeyMap
	focused  bool
	cfg      Config
	opts     Options
	onChange ChangeFunc
	hl       *highlight.Highlighter

	width  int
	height int
	// top and topSeg are the first logical line and wrapped row shown;
	// left is the horizontal offset when word wrap is off.
	top    int
	topSeg int
	left   int
}

// New builds a widget holding value with the caret at its end. hl may be
// shared between widgets.
func New(value string, opts Options, hl *highlight.Highlighter, onChange ChangeFunc) *Widget {
	if hl == nil {
		hl = highlight.New()
	}
	caret := cursor.New()
	if opts.CursorBlinking == "smooth" {
		caret.SetMode(cursor.CursorBlink)
	} else {
		caret.SetMode(cursor.CursorStatic)
	}
	w := &Widget{
		buf:      newBuffer(value),
		caret:    caret,
		keys:     DefaultKeyMap(),
		opts:     opts.clone(),
		onChange: onChange,
		hl:       hl,
	}
	w.Focus()
	return w
}

// Configure applies a new language/theme/font configuration. The buffer and
// cursor position are untouched.
func (w *Widget) Configure(cfg Config) {
	w.cfg = cfg
}

// Config returns the active configuration.
func (w *Widget) Config() Config { return w.cfg }

// Options returns a copy of the options bag.
func (w *Widget) Options() Options { return w.opts.clone() }

// Value returns the current buffer.
func (w *Widget) Value() string { return w.buf.value() }

// LineCount is the number of lines in the buffer.
func (w *Widget) LineCount() int { return w.buf.lineCount() }

// SetValue replaces the buffer verbatim and moves the caret to the end. It
// does not fire the change callback; the caller already knows the new value.
func (w *Widget) SetValue(value string) {
	w.buf.set(value)
}

// InsertString types s at the cursor as if the user had entered it.
func (w *Widget) InsertString(s string) {
	w.edit(func() { w.buf.insert(s) })
}

// Focus gives the widget keyboard input.
func (w *Widget) Focus() tea.Cmd {
	w.focused = true
	return w.caret.Focus()
}

// Blur stops keyboard input.
func (w *Widget) Blur() {
	w.focused = false
	w.caret.Blur()
}

// Focused reports whether the widget receives keys.
func (w *Widget) Focused() bool { return w.focused }

// Resize lays the widget out in a width x height cell box.
func (w *Widget) Resize(width, height int) {
	w.width = max(width, 1)
	w.height = max(height, 1)
}

func (w *Widget) textHeight() int {
	return max(w.height-w.opts.PaddingTop-w.opts.PaddingBottom-w.rulerRows(), minTextHeight)
}

// edit runs fn and reports a change through the callback when the buffer
// version moved.
func (w *Widget) edit(fn func()) {
	before := w.buf.version
	fn()
	if w.buf.version != before && w.onChange != nil {
		w.onChange(w.buf.value())
	}
}

// Update handles editing keys and cursor blinking.
func (w *Widget) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	w.caret, cmd = w.caret.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !w.focused {
			return cmd
		}
		w.edit(func() { w.handleKey(msg) })
		// Keep the caret solid while typing.
		w.caret.Blink = false
		return tea.Batch(cmd, w.caret.BlinkCmd())
	case tea.MouseMsg:
		if !w.focused || msg.Action != tea.MouseActionPress {
			return cmd
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			w.buf.vertical(-wheelLines)
		case tea.MouseButtonWheelDown:
			w.buf.vertical(wheelLines)
		}
	}
	return cmd
}

func (w *Widget) handleKey(msg tea.KeyMsg) {
	b := w.buf
	k := w.keys
	// Pasted text is literal and never matches a binding.
	if msg.Paste {
		b.insert(string(msg.Runes))
		return
	}
	switch {
	case key.Matches(msg, k.Enter):
		b.insert("\n")
	case key.Matches(msg, k.Tab):
		b.insert("\t")
	case key.Matches(msg, k.Backspace):
		b.deleteBackward()
	case key.Matches(msg, k.Delete):
		b.deleteForward()
	case key.Matches(msg, k.DeleteWordBackward):
		b.deleteWordBackward()
	case key.Matches(msg, k.DeleteToLineStart):
		b.deleteToLineStart()
	case key.Matches(msg, k.DeleteToLineEnd):
		b.deleteToLineEnd()
	case key.Matches(msg, k.WordLeft):
		b.wordLeft()
	case key.Matches(msg, k.WordRight):
		b.wordRight()
	case key.Matches(msg, k.Left):
		b.left()
	case key.Matches(msg, k.Right):
		b.right()
	case key.Matches(msg, k.Up):
		b.vertical(-1)
	case key.Matches(msg, k.Down):
		b.vertical(1)
	case key.Matches(msg, k.Home):
		b.home()
	case key.Matches(msg, k.End):
		b.end()
	case key.Matches(msg, k.DocStart):
		b.docStart()
	case key.Matches(msg, k.DocEnd):
		b.docEnd()
	case key.Matches(msg, k.PageUp):
		b.vertical(-w.textHeight())
	case key.Matches(msg, k.PageDown):
		b.vertical(w.textHeight())
	case msg.Type == tea.KeyRunes && !msg.Alt:
		b.insert(string(msg.Runes))
	case msg.Type == tea.KeySpace:
		b.insert(" ")
	}
}

// Cursor returns the zero-based row and column of the caret.
func (w *Widget) Cursor() (row, col int) {
	return w.buf.cursor.row, w.buf.cursor.col
}

// View renders the ruler, padded text area and minimap.
func (w *Widget) View() string {
	rows := make([]string, 0, w.height)
	if w.rulerRows() > 0 {
		rows = append(rows, w.renderRuler())
	}
	for i := 0; i < w.opts.PaddingTop; i++ {
		rows = append(rows, "")
	}
	rows = append(rows, w.textRows(w.textHeight())...)
	for i := 0; i < w.opts.PaddingBottom; i++ {
		rows = append(rows, "")
	}
	body := strings.Join(rows, "\n")

	if w.minimapVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, w.renderMinimap())
	}
	return w.cfg.Frame.Render(body)
}

func (w *Widget) minimapVisible() bool {
	return w.opts.Minimap && w.width-w.opts.MinimapWidth >= minMinimapTextWidth
}

func (w *Widget) textWidth() int {
	if w.minimapVisible() {
		return w.width - w.opts.MinimapWidth - 1
	}
	return w.width
}

func (w *Widget) rulerRows() int {
	if len(w.opts.Rulers) == 0 {
		return 0
	}
	return 1
}

func (w *Widget) gutterWidth() int {
	if !w.opts.LineNumbers {
		return 0
	}
	digits := len(strconv.Itoa(max(w.buf.lineCount(), 1)))
	return max(digits, 3) + 2
}

// renderRuler draws a column scale with a marker at every ruler position that
// fits in the text area.
func (w *Widget) renderRuler() string {
	width := w.textWidth()
	gutter := w.gutterWidth()
	if width <= gutter {
		return ""
	}
	cols := []rune(strings.Repeat("·", width-gutter))
	for c := 10; c <= len(cols); c += 10 {
		cols[c-1] = '+'
	}
	for _, r := range w.opts.Rulers {
		if r >= 1 && r <= len(cols) {
			cols[r-1] = '│'
		}
	}
	return strings.Repeat(" ", gutter) + w.cfg.Ruler.Render(string(cols))
}

// renderMinimap draws a highlighted, truncated overview of the whole buffer
// scaled down to the widget height.
func (w *Widget) renderMinimap() string {
	lines := w.hl.Lines(highlight.Request{
		Text:    w.buf.value(),
		Lexer:   w.cfg.Lexer,
		Style:   w.cfg.Style,
		Profile: w.cfg.Profile,
	})
	height := w.height
	step := 1
	if len(lines) > height {
		step = (len(lines) + height - 1) / height
	}
	tab := strings.Repeat(" ", tabWidth)
	out := make([]string, 0, height)
	for i := 0; i < len(lines) && len(out) < height; i += step {
		line := strings.ReplaceAll(lines[i], "\t", tab)
		out = append(out, ansi.Truncate(line, w.opts.MinimapWidth, ""))
	}
	for len(out) < height {
		out = append(out, "")
	}
	return w.cfg.Minimap.Width(w.opts.MinimapWidth).MarginLeft(1).Render(strings.Join(out, "\n"))
}
