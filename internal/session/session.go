// Package session holds the per-program editing state shared by the control
// panel and the editor surface. A State is owned by exactly one bubbletea
// Update loop and is not safe for concurrent use.
package session

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/rivo/uniseg"

	"vibe-terminal/internal/catalog"
)

const (
	MinFontSize     = 10
	MaxFontSize     = 30
	DefaultFontSize = 14
)

// DefaultBuffer is the sample program shown when a session starts.
const DefaultBuffer = `// Welcome to Vibe Coding!
// Start coding with style

function fibonacci(n) {
  if (n <= 1) return n;
  return fibonacci(n - 1) + fibonacci(n - 2);
}

console.log('Fib(10):', fibonacci(10));

// Try different languages from the selector!
`

// Phase tracks whether the embedded widget may render yet.
type Phase int

const (
	PhaseUnmounted Phase = iota
	PhaseMounting
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseUnmounted:
		return "unmounted"
	case PhaseMounting:
		return "mounting"
	case PhaseReady:
		return "ready"
	default:
		return "phase(" + strconv.Itoa(int(p)) + ")"
	}
}

// State is the session record: buffer text plus the three selector values.
type State struct {
	buffer   string
	language catalog.LanguageID
	theme    catalog.ThemeID
	fontSize int
	phase    Phase
}

// New returns a State holding the defaults.
func New() *State {
	return &State{
		buffer:   DefaultBuffer,
		language: catalog.DefaultLanguage,
		theme:    catalog.DefaultTheme,
		fontSize: DefaultFontSize,
		phase:    PhaseUnmounted,
	}
}

func (s *State) Buffer() string               { return s.buffer }
func (s *State) Language() catalog.LanguageID { return s.language }
func (s *State) Theme() catalog.ThemeID       { return s.theme }
func (s *State) FontSize() int                { return s.fontSize }
func (s *State) Phase() Phase                 { return s.phase }

// Ready reports whether the widget has finished mounting.
func (s *State) Ready() bool { return s.phase == PhaseReady }

// SelectLanguage switches the highlight mode. Ids outside the catalog are
// rejected and leave the state untouched.
func (s *State) SelectLanguage(id catalog.LanguageID) error {
	if _, err := catalog.LookupLanguage(id); err != nil {
		return err
	}
	s.language = id
	return nil
}

// SelectTheme switches the color scheme.
func (s *State) SelectTheme(id catalog.ThemeID) error {
	if _, err := catalog.LookupTheme(id); err != nil {
		return err
	}
	s.theme = id
	return nil
}

// SetFontSize stores n clamped to [MinFontSize, MaxFontSize] and returns the
// stored value.
func (s *State) SetFontSize(n int) int {
	s.fontSize = ClampFontSize(n)
	return s.fontSize
}

// SetFontSizeInput coerces typed text to an integer before clamping.
// Unparseable input, NaN and infinities keep the current size. Finite values
// beyond the bounds clamp without passing through an int conversion.
func (s *State) SetFontSizeInput(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.fontSize
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return s.SetFontSize(n)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return s.fontSize
	}
	switch {
	case math.IsNaN(f), math.IsInf(f, 0):
		return s.fontSize
	case f >= MaxFontSize:
		return s.SetFontSize(MaxFontSize)
	case f <= MinFontSize:
		return s.SetFontSize(MinFontSize)
	}
	return s.SetFontSize(int(f))
}

// SetBuffer replaces the buffer with text reported by the editor.
func (s *State) SetBuffer(text string) {
	s.buffer = text
}

// Clear empties the buffer.
func (s *State) Clear() {
	s.buffer = ""
}

// BeginMount moves Unmounted to Mounting. It reports whether a transition
// happened.
func (s *State) BeginMount() bool {
	if s.phase != PhaseUnmounted {
		return false
	}
	s.phase = PhaseMounting
	return true
}

// FinishMount moves Mounting to Ready. There is no way back.
func (s *State) FinishMount() bool {
	if s.phase != PhaseMounting {
		return false
	}
	s.phase = PhaseReady
	return true
}

// ClampFontSize bounds n to the supported range.
func ClampFontSize(n int) int {
	if n < MinFontSize {
		return MinFontSize
	}
	if n > MaxFontSize {
		return MaxFontSize
	}
	return n
}

// Stats is the footer summary of a buffer.
type Stats struct {
	Lines      int
	Characters int
}

// Measure counts lines (newline-separated segments, so "" is one line) and
// user-perceived characters (grapheme clusters).
func Measure(buffer string) Stats {
	return Stats{
		Lines:      strings.Count(buffer, "\n") + 1,
		Characters: uniseg.GraphemeClusterCount(buffer),
	}
}

// Stats summarizes the current buffer.
func (s *State) Stats() Stats { return Measure(s.buffer) }
