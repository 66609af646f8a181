package widget

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rivo/uniseg"

	"vibe-terminal/internal/highlight"
)

const tabWidth = 4

// cell is one drawn unit of a logical line.
type cell struct {
	text  string
	width int
	// col is the rune column the cell starts at; the caret cell past the end
	// of a line has col == len(line).
	col  int
	attr highlight.Attr
	ws   bool
}

// segment is one visual row of a logical line.
type segment struct {
	cells []cell
}

// lineCells turns a line into drawable cells. Tabs expand to the next tab
// stop and control runes show as a replacement glyph. attrs may be nil.
func (w *Widget) lineCells(line []rune, attrs []highlight.Attr, withCaret bool) []cell {
	cells := make([]cell, 0, len(line)+1)
	x := 0
	showWS := w.opts.RenderWhitespace == "all"
	for i, r := range line {
		c := cell{col: i}
		if attrs != nil {
			c.attr = attrs[i]
		}
		switch {
		case r == '\t':
			c.width = tabWidth - x%tabWidth
			if showWS {
				c.text = "→" + strings.Repeat(" ", c.width-1)
				c.ws = true
			} else {
				c.text = strings.Repeat(" ", c.width)
			}
		case r == ' ' && showWS:
			c.text, c.width, c.ws = "·", 1, true
		case r < 0x20 || r == 0x7f:
			c.text, c.width = "�", 1
		default:
			c.text = string(r)
			c.width = uniseg.StringWidth(c.text)
		}
		if c.width == 0 && len(cells) > 0 {
			cells[len(cells)-1].text += c.text
			continue
		}
		x += c.width
		cells = append(cells, c)
	}
	if withCaret {
		cells = append(cells, cell{text: " ", width: 1, col: len(line)})
	}
	return cells
}

// wrap splits cells into rows of at most width columns. An empty line is one
// empty row.
func wrap(cells []cell, width int) []segment {
	if len(cells) == 0 {
		return []segment{{}}
	}
	var out []segment
	start, used := 0, 0
	for i, c := range cells {
		if used+c.width > width && i > start {
			out = append(out, segment{cells: cells[start:i]})
			start, used = i, 0
		}
		used += c.width
	}
	return append(out, segment{cells: cells[start:]})
}

// window keeps the cells whose columns fall in [left, left+width).
func window(cells []cell, left, width int) segment {
	var out []cell
	x := 0
	for _, c := range cells {
		if x >= left && x+c.width <= left+width {
			out = append(out, c)
		}
		x += c.width
	}
	return segment{cells: out}
}

func cellsWidth(cells []cell) int {
	n := 0
	for _, c := range cells {
		n += c.width
	}
	return n
}

// caretX is the display column of the caret within cells.
func caretX(cells []cell, col int) int {
	x := 0
	for _, c := range cells {
		if c.col >= col {
			return x
		}
		x += c.width
	}
	return x
}

func (w *Widget) contentWidth() int {
	return max(w.textWidth()-w.gutterWidth(), 1)
}

// segments lays out one logical line. The caret row gets a trailing caret
// cell so a caret at end of line has a place to sit.
func (w *Widget) segments(row int, attrs []highlight.Attr) []segment {
	line := w.buf.line(row)
	isCaretRow := row == w.buf.cursor.row
	cells := w.lineCells(line, attrs, isCaretRow)
	width := w.contentWidth()
	if w.opts.WordWrap {
		return wrap(cells, width)
	}
	return []segment{window(cells, w.left, width)}
}

// caretCell finds the cell the caret is drawn on: the first cell at or after
// col, since combining runes share the cell of their base rune. It returns
// the row index within segs and the cell's column.
func caretCell(segs []segment, col int) (seg, cellCol int) {
	for i, s := range segs {
		for _, c := range s.cells {
			if c.col >= col {
				return i, c.col
			}
		}
	}
	return len(segs) - 1, -1
}

// scroll moves the viewport so the caret row is visible.
func (w *Widget) scroll(height int) {
	c := w.buf.cursor
	if !w.opts.WordWrap {
		width := w.contentWidth()
		x := caretX(w.lineCells(w.buf.line(c.row), nil, true), c.col)
		if x < w.left {
			w.left = x
		}
		if x >= w.left+width {
			w.left = x - width + 1
		}
	}

	if w.top > c.row {
		w.top, w.topSeg = c.row, 0
	}
	if c.row-w.top >= height {
		w.top, w.topSeg = c.row-height+1, 0
	}
	caretSeg, _ := caretCell(w.segments(c.row, nil), c.col)
	if w.top == c.row && w.topSeg > caretSeg {
		w.topSeg = caretSeg
	}
	for w.rowsThroughCaret(caretSeg) > height {
		w.topSeg++
		if w.topSeg >= len(w.segments(w.top, nil)) {
			w.top, w.topSeg = w.top+1, 0
		}
	}
}

// rowsThroughCaret counts visual rows from the top of the viewport down to
// and including the caret row.
func (w *Widget) rowsThroughCaret(caretSeg int) int {
	c := w.buf.cursor
	if w.top == c.row {
		return caretSeg - w.topSeg + 1
	}
	n := len(w.segments(w.top, nil)) - w.topSeg
	for row := w.top + 1; row < c.row; row++ {
		n += len(w.segments(row, nil))
	}
	return n + caretSeg + 1
}

// attrsFor maps highlighter tokens onto rune columns, or returns nil when the
// tokens do not cover the line exactly.
func attrsFor(line []rune, tokens []highlight.Token) []highlight.Attr {
	if len(tokens) == 0 {
		return nil
	}
	attrs := make([]highlight.Attr, 0, len(line))
	for _, t := range tokens {
		for range t.Text {
			attrs = append(attrs, t.Attr)
		}
	}
	if len(attrs) != len(line) {
		return nil
	}
	return attrs
}

// textRows renders height rows of the text area: gutter, highlighted cells
// and the caret.
func (w *Widget) textRows(height int) []string {
	w.scroll(height)
	var tokens [][]highlight.Token
	if w.hl != nil {
		tokens = w.hl.Tokens(highlight.Request{
			Text:    w.buf.value(),
			Lexer:   w.cfg.Lexer,
			Style:   w.cfg.Style,
			Profile: w.cfg.Profile,
		})
	}

	styles := make(map[highlight.Attr]lipgloss.Style)
	styleFor := func(a highlight.Attr) lipgloss.Style {
		if s, ok := styles[a]; ok {
			return s
		}
		s := w.cfg.Text
		if a.Color != "" {
			s = s.Foreground(lipgloss.Color(a.Color))
		}
		s = s.Bold(a.Bold).Italic(a.Italic).Underline(a.Underline)
		styles[a] = s
		return s
	}

	width := w.contentWidth()
	gutter := w.gutterWidth()
	rows := make([]string, 0, height)
	for row := w.top; row < w.buf.lineCount() && len(rows) < height; row++ {
		var attrs []highlight.Attr
		if row < len(tokens) {
			attrs = attrsFor(w.buf.line(row), tokens[row])
		}
		segs := w.segments(row, attrs)
		first := 0
		if row == w.top {
			first = min(w.topSeg, len(segs)-1)
		}
		isCaretRow := row == w.buf.cursor.row
		caretCol := -1
		if isCaretRow {
			_, caretCol = caretCell(segs, w.buf.cursor.col)
		}
		for i := first; i < len(segs) && len(rows) < height; i++ {
			var sb strings.Builder
			if gutter > 0 {
				sb.WriteString(w.renderGutter(row, i, isCaretRow, gutter))
			}
			sb.WriteString(w.renderSegment(segs[i], caretCol, styleFor))
			if pad := width - cellsWidth(segs[i].cells); pad > 0 {
				sb.WriteString(w.cfg.Text.Render(strings.Repeat(" ", pad)))
			}
			rows = append(rows, sb.String())
		}
	}
	for len(rows) < height {
		rows = append(rows, w.cfg.Text.Render(strings.Repeat(" ", gutter+width)))
	}
	return rows
}

func (w *Widget) renderGutter(row, seg int, isCaretRow bool, width int) string {
	text := strings.Repeat(" ", width)
	if seg == 0 {
		text = fmt.Sprintf(" %*d ", width-2, row+1)
	}
	if isCaretRow {
		return w.cfg.Gutter.Bold(true).Render(text)
	}
	return w.cfg.Gutter.Render(text)
}

// renderSegment draws runs of equally styled cells in one Render call each;
// the cell at caretCol goes through the cursor model.
func (w *Widget) renderSegment(seg segment, caretCol int, styleFor func(highlight.Attr) lipgloss.Style) string {
	var sb, run strings.Builder
	var runStyle lipgloss.Style
	var runAttr highlight.Attr
	runWS, inRun := false, false
	flush := func() {
		if inRun {
			sb.WriteString(runStyle.Render(run.String()))
			run.Reset()
			inRun = false
		}
	}
	for _, c := range seg.cells {
		style := styleFor(c.attr)
		if c.ws {
			style = w.cfg.Gutter
		}
		if c.col == caretCol {
			flush()
			w.caret.Style = style
			w.caret.TextStyle = style
			w.caret.SetChar(c.text)
			sb.WriteString(w.caret.View())
			continue
		}
		if inRun && (c.attr != runAttr || c.ws != runWS) {
			flush()
		}
		if !inRun {
			runStyle, runAttr, runWS = style, c.attr, c.ws
			inRun = true
		}
		run.WriteString(c.text)
	}
	flush()
	return sb.String()
}
