package widget

import (
	"strings"
	"unicode"
)

// pos addresses the document by zero-based line and rune column.
type pos struct {
	row int
	col int
}

// buffer is the editable document: rune lines and a caret. There is no line
// or length cap, and text is stored exactly as inserted apart from CR/CRLF
// line endings, which become '\n'.
type buffer struct {
	lines  [][]rune
	cursor pos
	// goal is the column up/down movement tries to return to.
	goal int

	version uint64
	text    string
	stale   bool
}

func newBuffer(text string) *buffer {
	b := &buffer{}
	b.set(text)
	return b
}

// set replaces the document verbatim and puts the caret at the end.
func (b *buffer) set(text string) {
	parts := strings.Split(text, "\n")
	b.lines = make([][]rune, len(parts))
	for i, p := range parts {
		b.lines[i] = []rune(p)
	}
	last := len(b.lines) - 1
	b.cursor = pos{row: last, col: len(b.lines[last])}
	b.goal = b.cursor.col
	b.text = text
	b.stale = false
	b.version++
}

func (b *buffer) value() string {
	if !b.stale {
		return b.text
	}
	var sb strings.Builder
	for i, line := range b.lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(string(line))
	}
	b.text = sb.String()
	b.stale = false
	return b.text
}

func (b *buffer) lineCount() int { return len(b.lines) }

func (b *buffer) line(row int) []rune {
	if row < 0 || row >= len(b.lines) {
		return nil
	}
	return b.lines[row]
}

func (b *buffer) changed() {
	b.version++
	b.stale = true
	b.goal = b.cursor.col
}

// insert types s at the caret.
func (b *buffer) insert(s string) {
	if s == "" {
		return
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	row, col := b.cursor.row, b.cursor.col
	cur := b.lines[row]
	prefix := cur[:col:col]
	suffix := append([]rune(nil), cur[col:]...)

	parts := strings.Split(s, "\n")
	if len(parts) == 1 {
		ins := []rune(parts[0])
		line := make([]rune, 0, len(prefix)+len(ins)+len(suffix))
		line = append(line, prefix...)
		line = append(line, ins...)
		line = append(line, suffix...)
		b.lines[row] = line
		b.cursor.col = col + len(ins)
		b.changed()
		return
	}

	repl := make([][]rune, len(parts))
	repl[0] = append(append([]rune(nil), prefix...), []rune(parts[0])...)
	for i := 1; i < len(parts)-1; i++ {
		repl[i] = []rune(parts[i])
	}
	tail := []rune(parts[len(parts)-1])
	repl[len(parts)-1] = append(tail, suffix...)

	lines := make([][]rune, 0, len(b.lines)+len(parts)-1)
	lines = append(lines, b.lines[:row]...)
	lines = append(lines, repl...)
	lines = append(lines, b.lines[row+1:]...)
	b.lines = lines
	b.cursor = pos{row: row + len(parts) - 1, col: len(tail)}
	b.changed()
}

// deleteRange removes the text between from and to (from before to).
func (b *buffer) deleteRange(from, to pos) {
	if from == to {
		return
	}
	head := b.lines[from.row][:from.col:from.col]
	joined := append(head, b.lines[to.row][to.col:]...)
	lines := make([][]rune, 0, len(b.lines)-(to.row-from.row))
	lines = append(lines, b.lines[:from.row]...)
	lines = append(lines, joined)
	lines = append(lines, b.lines[to.row+1:]...)
	b.lines = lines
	b.cursor = from
	b.changed()
}

func (b *buffer) deleteBackward() {
	c := b.cursor
	switch {
	case c.col > 0:
		b.deleteRange(pos{c.row, c.col - 1}, c)
	case c.row > 0:
		b.deleteRange(pos{c.row - 1, len(b.lines[c.row-1])}, c)
	}
}

func (b *buffer) deleteForward() {
	c := b.cursor
	switch {
	case c.col < len(b.lines[c.row]):
		b.deleteRange(c, pos{c.row, c.col + 1})
	case c.row < len(b.lines)-1:
		b.deleteRange(c, pos{c.row + 1, 0})
	}
}

func (b *buffer) deleteWordBackward() {
	c := b.cursor
	if c.col == 0 {
		b.deleteBackward()
		return
	}
	b.deleteRange(pos{c.row, prevWordBoundary(b.lines[c.row], c.col)}, c)
}

func (b *buffer) deleteToLineStart() {
	b.deleteRange(pos{b.cursor.row, 0}, b.cursor)
}

func (b *buffer) deleteToLineEnd() {
	c := b.cursor
	if c.col == len(b.lines[c.row]) {
		b.deleteForward()
		return
	}
	b.deleteRange(c, pos{c.row, len(b.lines[c.row])})
}

func (b *buffer) moveTo(p pos, keepGoal bool) {
	p.row = clampInt(p.row, 0, len(b.lines)-1)
	p.col = clampInt(p.col, 0, len(b.lines[p.row]))
	b.cursor = p
	if !keepGoal {
		b.goal = p.col
	}
}

func (b *buffer) left() {
	c := b.cursor
	switch {
	case c.col > 0:
		b.moveTo(pos{c.row, c.col - 1}, false)
	case c.row > 0:
		b.moveTo(pos{c.row - 1, len(b.lines[c.row-1])}, false)
	}
}

func (b *buffer) right() {
	c := b.cursor
	switch {
	case c.col < len(b.lines[c.row]):
		b.moveTo(pos{c.row, c.col + 1}, false)
	case c.row < len(b.lines)-1:
		b.moveTo(pos{c.row + 1, 0}, false)
	}
}

// vertical moves the caret n lines down (negative is up), keeping the goal
// column.
func (b *buffer) vertical(n int) {
	b.moveTo(pos{b.cursor.row + n, b.goal}, true)
}

func (b *buffer) home() { b.moveTo(pos{b.cursor.row, 0}, false) }

func (b *buffer) end() { b.moveTo(pos{b.cursor.row, len(b.lines[b.cursor.row])}, false) }

func (b *buffer) docStart() { b.moveTo(pos{}, false) }

func (b *buffer) docEnd() {
	last := len(b.lines) - 1
	b.moveTo(pos{last, len(b.lines[last])}, false)
}

func (b *buffer) wordLeft() {
	c := b.cursor
	if c.col == 0 {
		b.left()
		return
	}
	b.moveTo(pos{c.row, prevWordBoundary(b.lines[c.row], c.col)}, false)
}

func (b *buffer) wordRight() {
	c := b.cursor
	if c.col == len(b.lines[c.row]) {
		b.right()
		return
	}
	b.moveTo(pos{c.row, nextWordBoundary(b.lines[c.row], c.col)}, false)
}

func prevWordBoundary(line []rune, col int) int {
	i := clampInt(col, 0, len(line))
	for i > 0 && unicode.IsSpace(line[i-1]) {
		i--
	}
	for i > 0 && !unicode.IsSpace(line[i-1]) {
		i--
	}
	return i
}

func nextWordBoundary(line []rune, col int) int {
	i := clampInt(col, 0, len(line))
	for i < len(line) && unicode.IsSpace(line[i]) {
		i++
	}
	for i < len(line) && !unicode.IsSpace(line[i]) {
		i++
	}
	return i
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
