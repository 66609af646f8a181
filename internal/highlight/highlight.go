// Package highlight renders source text with chroma lexers and styles, either
// as per-line ANSI strings or as styled tokens a caller can lay out itself.
package highlight

import (
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/muesli/termenv"
)

const (
	// DefaultCacheBytes bounds the memory held by a Highlighter's cache.
	DefaultCacheBytes = 16 << 20

	reset = "\x1b[0m"

	// Rough per-item bookkeeping cost added to the byte estimate.
	lineOverhead  = 24
	tokenOverhead = 48
)

// Request names what to highlight and how.
type Request struct {
	Text    string
	Lexer   string
	Style   string
	Profile termenv.Profile
}

// Attr is the presentation chroma assigns to a token.
type Attr struct {
	// Color is a "#rrggbb" foreground, empty when the style leaves it unset.
	Color     string
	Bold      bool
	Italic    bool
	Underline bool
}

// Token is a run of text on one line sharing one Attr.
type Token struct {
	Text string
	Attr Attr
}

type outputKind int

const (
	kindANSI outputKind = iota
	kindTokens
)

type cacheKey struct {
	req  Request
	kind outputKind
}

type cacheEntry struct {
	lines  []string
	tokens [][]Token
	size   int
}

// Highlighter caches results by request. The cache is bounded by an
// estimate of the bytes it holds; the oldest entries are evicted first.
type Highlighter struct {
	mu       sync.Mutex
	maxBytes int
	bytes    int
	cache    map[cacheKey]cacheEntry
	order    []cacheKey
}

// New returns a Highlighter with the default cache budget.
func New() *Highlighter {
	return NewWithBudget(DefaultCacheBytes)
}

// NewWithBudget returns a Highlighter whose cache holds at most maxBytes.
// A budget of zero or less disables caching.
func NewWithBudget(maxBytes int) *Highlighter {
	return &Highlighter{maxBytes: maxBytes, cache: make(map[cacheKey]cacheEntry)}
}

// Lines returns one rendered string per source line. Every returned line ends
// with a reset so lines can be truncated or placed independently. On any
// lexer or formatter failure the plain lines are returned.
func (h *Highlighter) Lines(req Request) []string {
	key := cacheKey{req: req, kind: kindANSI}
	if e, ok := h.lookup(key); ok {
		return e.lines
	}
	out := renderANSI(req)
	size := len(req.Text)
	for _, l := range out {
		size += len(l) + lineOverhead
	}
	h.store(key, cacheEntry{lines: out, size: size})
	return out
}

// Tokens returns the styled tokens of every source line. Concatenating the
// token texts of a line gives the line back. With the Ascii profile every
// line is a single unstyled token.
func (h *Highlighter) Tokens(req Request) [][]Token {
	key := cacheKey{req: req, kind: kindTokens}
	if e, ok := h.lookup(key); ok {
		return e.tokens
	}
	out := tokenize(req)
	size := len(req.Text)
	for _, line := range out {
		size += lineOverhead
		for _, t := range line {
			size += len(t.Text) + len(t.Attr.Color) + tokenOverhead
		}
	}
	h.store(key, cacheEntry{tokens: out, size: size})
	return out
}

// CachedBytes reports the estimated size of the cache.
func (h *Highlighter) CachedBytes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bytes
}

func (h *Highlighter) lookup(key cacheKey) (cacheEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.cache[key]
	return e, ok
}

func (h *Highlighter) store(key cacheKey, e cacheEntry) {
	if e.size > h.maxBytes {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.cache[key]; ok {
		return
	}
	for h.bytes+e.size > h.maxBytes && len(h.order) > 0 {
		oldest := h.order[0]
		h.order = h.order[1:]
		h.bytes -= h.cache[oldest].size
		delete(h.cache, oldest)
	}
	h.cache[key] = e
	h.order = append(h.order, key)
	h.bytes += e.size
}

func lexerFor(name string) chroma.Lexer {
	lexer := lexers.Get(name)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// tokenLines splits the chroma token stream into source lines with the line
// terminators removed. It reports false when the token text does not add up
// to the source.
func tokenLines(req Request) ([][]chroma.Token, bool) {
	it, err := lexerFor(req.Lexer).Tokenise(nil, req.Text)
	if err != nil {
		return nil, false
	}
	lines := chroma.SplitTokensIntoLines(it.Tokens())
	for i, line := range lines {
		kept := line[:0]
		for _, t := range line {
			t.Value = strings.TrimRight(t.Value, "\n")
			if t.Value != "" {
				kept = append(kept, t)
			}
		}
		lines[i] = kept
	}
	plain := strings.Split(req.Text, "\n")
	for len(lines) < len(plain) {
		lines = append(lines, nil)
	}
	lines = lines[:len(plain)]
	for i, line := range lines {
		n := 0
		for _, t := range line {
			n += len(t.Value)
		}
		if n != len(plain[i]) {
			return nil, false
		}
	}
	return lines, true
}

func plainTokens(text string) [][]Token {
	plain := strings.Split(text, "\n")
	out := make([][]Token, len(plain))
	for i, l := range plain {
		if l != "" {
			out[i] = []Token{{Text: l}}
		}
	}
	return out
}

func tokenize(req Request) [][]Token {
	if req.Profile == termenv.Ascii {
		return plainTokens(req.Text)
	}
	lines, ok := tokenLines(req)
	if !ok {
		return plainTokens(req.Text)
	}
	style := styles.Get(req.Style)
	out := make([][]Token, len(lines))
	for i, line := range lines {
		toks := make([]Token, 0, len(line))
		for _, t := range line {
			toks = append(toks, Token{Text: t.Value, Attr: attrFor(style.Get(t.Type))})
		}
		out[i] = toks
	}
	return out
}

func attrFor(e chroma.StyleEntry) Attr {
	a := Attr{
		Bold:      e.Bold == chroma.Yes,
		Italic:    e.Italic == chroma.Yes,
		Underline: e.Underline == chroma.Yes,
	}
	if e.Colour.IsSet() {
		a.Color = e.Colour.String()
	}
	return a
}

func renderANSI(req Request) []string {
	plain := strings.Split(req.Text, "\n")
	if req.Profile == termenv.Ascii {
		return plain
	}
	lines, ok := tokenLines(req)
	if !ok {
		return plain
	}
	style := styles.Get(req.Style)
	formatter := formatters.Get(FormatterName(req.Profile))

	out := make([]string, 0, len(plain))
	var buf strings.Builder
	for _, tokens := range lines {
		buf.Reset()
		if err := formatter.Format(&buf, style, chroma.Literator(tokens...)); err != nil {
			return plain
		}
		line := strings.ReplaceAll(buf.String(), "\n", "")
		out = append(out, line+reset)
	}
	return out
}

// FormatterName picks the chroma terminal formatter for a color profile.
func FormatterName(p termenv.Profile) string {
	switch p {
	case termenv.TrueColor:
		return "terminal16m"
	case termenv.ANSI256:
		return "terminal256"
	case termenv.ANSI:
		return "terminal16"
	default:
		return "noop"
	}
}

// HasLexer reports whether chroma knows the named lexer.
func HasLexer(name string) bool {
	return lexers.Get(name) != nil
}
