package widget

import (
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibe-terminal/internal/highlight"
)

func typeRunes(w *Widget, s string) {
	for _, r := range s {
		w.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func newTestWidget(t *testing.T, value string, onChange ChangeFunc) *Widget {
	t.Helper()
	w := New(value, DefaultOptions(), nil, onChange)
	w.Configure(Config{Language: "go", Lexer: "go", Style: "github-dark", FontSize: 14, Profile: termenv.Ascii})
	w.Resize(160, 30)
	return w
}

func TestUpdateReportsChanges(t *testing.T) {
	var got []string
	w := newTestWidget(t, "", func(v string) { got = append(got, v) })

	typeRunes(w, "ab")
	require.Equal(t, []string{"a", "ab"}, got)
	assert.Equal(t, "ab", w.Value())
}

func TestUpdateWithoutEditDoesNotReport(t *testing.T) {
	calls := 0
	w := newTestWidget(t, "abc", func(string) { calls++ })
	w.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 0, calls)
}

func TestConfigurePreservesBufferAndCursor(t *testing.T) {
	w := newTestWidget(t, "line one\nline two", nil)
	w.Update(tea.KeyMsg{Type: tea.KeyUp})
	row, col := w.Cursor()

	w.Configure(Config{Language: "python", Lexer: "python", Style: "vs", FontSize: 22, Profile: termenv.ANSI256})

	assert.Equal(t, "line one\nline two", w.Value())
	gotRow, gotCol := w.Cursor()
	assert.Equal(t, row, gotRow)
	assert.Equal(t, col, gotCol)
	assert.Equal(t, "python", w.Config().Language)
	assert.Equal(t, 22, w.Config().FontSize)
}

func TestSetValueDoesNotFireCallback(t *testing.T) {
	calls := 0
	w := newTestWidget(t, "abc", func(string) { calls++ })
	w.SetValue("")
	assert.Equal(t, "", w.Value())
	assert.Equal(t, 0, calls)
}

func TestViewDrawsRulersAndMinimap(t *testing.T) {
	w := newTestWidget(t, "package main\n\nfunc main() {}\n", nil)
	view := ansi.Strip(w.View())

	lines := strings.Split(view, "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, 2, strings.Count(lines[0], "│"), "ruler row should mark columns 80 and 120")
	assert.Contains(t, view, "func main() {}")
	assert.Equal(t, 30, lipgloss.Height(w.View()))
}

func TestNarrowWidgetHidesMinimap(t *testing.T) {
	w := newTestWidget(t, "x", nil)
	w.Resize(50, 10)
	assert.False(t, w.minimapVisible())
	assert.Equal(t, 50, w.textWidth())
}

func TestOptionsAreCopied(t *testing.T) {
	opts := DefaultOptions()
	w := New("", opts, nil, nil)
	opts.Rulers[0] = 1
	assert.Equal(t, []int{80, 120}, w.Options().Rulers)

	got := w.Options()
	got.Rulers[1] = 2
	assert.Equal(t, []int{80, 120}, w.Options().Rulers)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.True(t, opts.Minimap)
	assert.True(t, opts.WordWrap)
	assert.True(t, opts.AutomaticLayout)
	assert.True(t, opts.LineNumbers)
	assert.True(t, opts.FontLigatures)
	assert.True(t, opts.SmoothScrolling)
	assert.Equal(t, "selection", opts.RenderWhitespace)
	assert.Equal(t, "smooth", opts.CursorBlinking)
	assert.Equal(t, 1, opts.PaddingTop)
	assert.Equal(t, 1, opts.PaddingBottom)
}

func TestInsertStringReportsChange(t *testing.T) {
	var got string
	w := newTestWidget(t, "x", func(v string) { got = v })
	w.InsertString("  ")
	assert.Equal(t, "x  ", got)
	assert.Equal(t, "x  ", w.Value())
}

func trueColorConfig(lexer string) Config {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.TrueColor)
	text := r.NewStyle()
	return Config{
		Language: lexer, Lexer: lexer, Style: "monokai", FontSize: 14, Profile: termenv.TrueColor,
		Text: text, Gutter: text, Frame: text, Ruler: text, Minimap: text,
	}
}

func TestViewHighlightsEditedTextPerLanguage(t *testing.T) {
	const src = "// note\nx = 1 # two"
	views := make(map[string]string)
	for _, lexer := range []string{"javascript", "python", "markdown"} {
		w := New(src, DefaultOptions(), highlight.New(), nil)
		w.Configure(trueColorConfig(lexer))
		w.Resize(50, 12)
		require.False(t, w.minimapVisible())
		view := w.View()
		assert.Contains(t, view, "\x1b[38;2;", "%s text should carry chroma colors", lexer)
		assert.Contains(t, ansi.Strip(view), "x = 1 # two")
		views[lexer] = view
	}
	assert.NotEqual(t, views["javascript"], views["python"])
	assert.NotEqual(t, views["javascript"], views["markdown"])
}

func TestBufferHasNoLineCap(t *testing.T) {
	big := strings.Repeat("line\n", 12000) + "end"
	w := newTestWidget(t, "", nil)
	w.SetValue(big)
	assert.Equal(t, 12001, w.LineCount())
	assert.Equal(t, big, w.Value())

	view := ansi.Strip(w.View())
	assert.Contains(t, view, "12001 end", "caret line at the end is scrolled into view")

	var got string
	w = newTestWidget(t, "", func(v string) { got = v })
	w.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(big), Paste: true})
	assert.Equal(t, big, got)
	assert.Equal(t, 12001, w.LineCount())
}

func TestTabsSurviveTypingAndPaste(t *testing.T) {
	var got string
	w := newTestWidget(t, "", func(v string) { got = v })
	w.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a\tb"), Paste: true})
	assert.Equal(t, "a\tb", got)

	w.Update(tea.KeyMsg{Type: tea.KeyTab})
	typeRunes(w, "c")
	assert.Equal(t, "a\tb\tc", w.Value())
	assert.Contains(t, ansi.Strip(w.View()), "a   b   c", "tabs expand to 4-column stops on screen")
}

func TestPasteNormalizesLineEndings(t *testing.T) {
	w := newTestWidget(t, "", nil)
	w.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a\r\nb\rc"), Paste: true})
	assert.Equal(t, "a\nb\nc", w.Value())
}

func TestPastedTextNeverTriggersBindings(t *testing.T) {
	w := newTestWidget(t, "", nil)
	w.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("ctrl+k"), Paste: true})
	assert.Equal(t, "ctrl+k", w.Value())
}

func TestEditingKeys(t *testing.T) {
	key := func(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }
	tests := []struct {
		name  string
		start string
		keys  []tea.KeyMsg
		want  string
		row   int
		col   int
	}{
		{name: "backspace joins lines", start: "ab\ncd", keys: []tea.KeyMsg{key(tea.KeyHome), key(tea.KeyBackspace)}, want: "abcd", row: 0, col: 2},
		{name: "delete joins next line", start: "ab\ncd", keys: []tea.KeyMsg{key(tea.KeyUp), key(tea.KeyEnd), key(tea.KeyDelete)}, want: "abcd", row: 0, col: 2},
		{name: "enter splits line", start: "abcd", keys: []tea.KeyMsg{key(tea.KeyLeft), key(tea.KeyLeft), key(tea.KeyEnter)}, want: "ab\ncd", row: 1, col: 0},
		{name: "ctrl+w deletes word", start: "foo bar", keys: []tea.KeyMsg{key(tea.KeyCtrlW)}, want: "foo ", row: 0, col: 4},
		{name: "ctrl+u deletes to line start", start: "x\nfoo bar", keys: []tea.KeyMsg{key(tea.KeyCtrlU)}, want: "x\n", row: 1, col: 0},
		{name: "ctrl+k deletes to line end", start: "foo bar", keys: []tea.KeyMsg{key(tea.KeyHome), key(tea.KeyCtrlK)}, want: "", row: 0, col: 0},
		{name: "ctrl+k at line end joins", start: "a\nb", keys: []tea.KeyMsg{key(tea.KeyUp), key(tea.KeyEnd), key(tea.KeyCtrlK)}, want: "ab", row: 0, col: 1},
		{name: "space inserts", start: "ab", keys: []tea.KeyMsg{{Type: tea.KeySpace, Runes: []rune{' '}}}, want: "ab ", row: 0, col: 3},
		{name: "backspace at start is a no-op", start: "", keys: []tea.KeyMsg{key(tea.KeyBackspace)}, want: "", row: 0, col: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWidget(t, tt.start, nil)
			for _, k := range tt.keys {
				w.Update(k)
			}
			assert.Equal(t, tt.want, w.Value())
			row, col := w.Cursor()
			assert.Equal(t, tt.row, row)
			assert.Equal(t, tt.col, col)
		})
	}
}

func TestVerticalMovementKeepsGoalColumn(t *testing.T) {
	w := newTestWidget(t, "long line here\nab\nanother long line", nil)
	w.Update(tea.KeyMsg{Type: tea.KeyCtrlHome})
	for i := 0; i < 10; i++ {
		w.Update(tea.KeyMsg{Type: tea.KeyRight})
	}
	w.Update(tea.KeyMsg{Type: tea.KeyDown})
	row, col := w.Cursor()
	assert.Equal(t, 1, row)
	assert.Equal(t, 2, col)

	w.Update(tea.KeyMsg{Type: tea.KeyDown})
	row, col = w.Cursor()
	assert.Equal(t, 2, row)
	assert.Equal(t, 10, col)
}

func TestWordMovement(t *testing.T) {
	w := newTestWidget(t, "foo  bar baz", nil)
	w.Update(tea.KeyMsg{Type: tea.KeyLeft, Alt: true})
	_, col := w.Cursor()
	assert.Equal(t, 9, col)
	w.Update(tea.KeyMsg{Type: tea.KeyLeft, Alt: true})
	_, col = w.Cursor()
	assert.Equal(t, 5, col)
	w.Update(tea.KeyMsg{Type: tea.KeyRight, Alt: true})
	_, col = w.Cursor()
	assert.Equal(t, 8, col)
}

func TestBlurredWidgetIgnoresKeys(t *testing.T) {
	w := newTestWidget(t, "x", nil)
	w.Blur()
	typeRunes(w, "y")
	assert.Equal(t, "x", w.Value())
	w.Focus()
	typeRunes(w, "y")
	assert.Equal(t, "xy", w.Value())
}

func TestLongLinesWrap(t *testing.T) {
	w := newTestWidget(t, strings.Repeat("a", 100), nil)
	w.Resize(50, 12)
	rows := w.textRows(w.textHeight())
	// 50 columns minus a 5 column gutter leaves 45 per row: 45 + 45 + 10 and the caret.
	assert.Equal(t, strings.Repeat("a", 45), strings.TrimSpace(ansi.Strip(rows[0]))[len("1 "):])
	assert.Equal(t, strings.Repeat("a", 45), strings.TrimSpace(ansi.Strip(rows[1])))
	assert.Equal(t, strings.Repeat("a", 10), strings.TrimSpace(ansi.Strip(rows[2])))
}

func TestNoWrapScrollsHorizontally(t *testing.T) {
	opts := DefaultOptions()
	opts.WordWrap = false
	w := New(strings.Repeat("a", 90)+"Z", opts, nil, nil)
	w.Configure(Config{Lexer: "text", Profile: termenv.Ascii})
	w.Resize(50, 12)
	rows := w.textRows(w.textHeight())
	assert.Contains(t, ansi.Strip(rows[0]), "Z", "caret column is kept on screen")
	// 45 columns: 43 trailing a's, Z and the caret.
	assert.Equal(t, 43, strings.Count(ansi.Strip(rows[0]), "a"), "line start scrolled off")
}

func TestScrollFollowsCaret(t *testing.T) {
	w := newTestWidget(t, strings.Repeat("x\n", 200)+"last", nil)
	w.Resize(160, 20)
	view := ansi.Strip(w.View())
	assert.Contains(t, view, "201 last")
	assert.NotContains(t, view, "  1 x")

	w.Update(tea.KeyMsg{Type: tea.KeyCtrlHome})
	view = ansi.Strip(w.View())
	assert.Contains(t, view, "  1 x")
	assert.NotContains(t, view, "201 last")
}
