package theme

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"vibe-terminal/internal/catalog"
)

// SemanticRoles defines stable semantic color slots used across the UI.
//
// Components should generally depend on these semantic roles rather than
// variant-specific color literals.
type SemanticRoles struct {
	Primary string
	Accent  string
	Muted   string
	Danger  string
	Success string
	Border  string
}

// Style describes presentational attributes for a UI element.
type Style struct {
	Foreground string
	Background string
	Bold       bool
}

// StyleSet provides strongly-typed styles for the editor chrome.
type StyleSet struct {
	Header        Style
	Panel         Style
	Control       Style
	ActiveControl Style
	Editor        Style
	Footer        Style
	Notice        Style
	Warning       Style
}

// Bundle contains all display styles for one theme.
type Bundle struct {
	StyleSet
	Roles SemanticRoles
}

// TermProfile describes terminal rendering capabilities derived from TERM.
type TermProfile struct {
	Colors    int
	TrueColor bool
	IsTTY     bool
}

// TermProfileDetector maps a TERM value to a terminal capability profile.
type TermProfileDetector func(term string) TermProfile

// ErrUnknownVariant is returned when a requested theme has no palette.
var ErrUnknownVariant = errors.New("unknown theme variant")

var (
	termProfileCache sync.Map
	knownProfiles    = map[string]TermProfile{
		"dumb":           {Colors: 0, TrueColor: false, IsTTY: false},
		"ansi":           {Colors: 8, TrueColor: false, IsTTY: true},
		"linux":          {Colors: 16, TrueColor: false, IsTTY: true},
		"xterm":          {Colors: 16, TrueColor: false, IsTTY: true},
		"xterm-256color": {Colors: 256, TrueColor: false, IsTTY: true},
		"screen":         {Colors: 8, TrueColor: false, IsTTY: true},
		"tmux":           {Colors: 256, TrueColor: false, IsTTY: true},
		"tmux-256color":  {Colors: 256, TrueColor: false, IsTTY: true},
		"vt100":          {Colors: 8, TrueColor: false, IsTTY: true},
		"xterm-kitty":    {Colors: 1 << 24, TrueColor: true, IsTTY: true},
		"wezterm":        {Colors: 1 << 24, TrueColor: true, IsTTY: true},
		"alacritty":      {Colors: 1 << 24, TrueColor: true, IsTTY: true},
	}
)

var palettes = map[catalog.ThemeID]Bundle{
	catalog.ThemeDark: {
		StyleSet: StyleSet{
			Header:        Style{Foreground: "#E9D5FF", Background: "#2E1065", Bold: true},
			Panel:         Style{Foreground: "#E5E7EB", Background: "#1E1B4B"},
			Control:       Style{Foreground: "#C7D2FE", Background: "#312E81"},
			ActiveControl: Style{Foreground: "#FFFFFF", Background: "#7C3AED", Bold: true},
			Editor:        Style{Foreground: "#D4D4D4", Background: "#1E1E1E"},
			Footer:        Style{Foreground: "#9CA3AF", Background: "#111827"},
			Notice:        Style{Foreground: "#F5F3FF", Background: "#6D28D9", Bold: true},
			Warning:       Style{Foreground: "#FFE4E6", Background: "#9F1239", Bold: true},
		},
		Roles: SemanticRoles{Primary: "#7C3AED", Accent: "#EC4899", Muted: "#4B5563", Danger: "#DC2626", Success: "#16A34A", Border: "#4338CA"},
	},
	catalog.ThemeLight: {
		StyleSet: StyleSet{
			Header:        Style{Foreground: "#3B0764", Background: "#EDE9FE", Bold: true},
			Panel:         Style{Foreground: "#1F2937", Background: "#F5F3FF"},
			Control:       Style{Foreground: "#312E81", Background: "#E0E7FF"},
			ActiveControl: Style{Foreground: "#FFFFFF", Background: "#6D28D9", Bold: true},
			Editor:        Style{Foreground: "#000000", Background: "#FFFFFF"},
			Footer:        Style{Foreground: "#4B5563", Background: "#F3F4F6"},
			Notice:        Style{Foreground: "#FFFFFF", Background: "#7C3AED", Bold: true},
			Warning:       Style{Foreground: "#FFFFFF", Background: "#B91C1C", Bold: true},
		},
		Roles: SemanticRoles{Primary: "#6D28D9", Accent: "#DB2777", Muted: "#9CA3AF", Danger: "#B91C1C", Success: "#15803D", Border: "#A5B4FC"},
	},
	catalog.ThemeHighContrast: highContrastBundle(),
}

// Resolve resolves a concrete style bundle for a theme and terminal.
//
// Non-interactive terminals (TERM=dumb or empty) always get the
// high-contrast bundle unless color is forced.
func Resolve(id catalog.ThemeID, opts ResolveOptions) (Bundle, TermProfile, error) {
	return resolveWithProfile(id, opts, detectTermProfile)
}

// ResolveWithDetector resolves a bundle using a caller-provided TERM detector.
func ResolveWithDetector(id catalog.ThemeID, opts ResolveOptions, detector TermProfileDetector) (Bundle, TermProfile, error) {
	if detector == nil {
		detector = detectTermProfile
	}
	return resolveWithProfile(id, opts, detector)
}

// DetectTermProfile maps TERM to a terminal capability profile.
func DetectTermProfile(term string) TermProfile {
	return detectTermProfile(term)
}

// OptionsFromEnv reads the runtime overrides VIBE_FORCE_COLOR and
// VIBE_FORCE_MONO. When VIBE_THEME_DEBUG is true, resolution decisions are
// logged at debug level.
func OptionsFromEnv(term string) ResolveOptions {
	return ResolveOptions{
		Term:       term,
		ForceColor: parseBoolEnv("VIBE_FORCE_COLOR"),
		ForceMono:  parseBoolEnv("VIBE_FORCE_MONO"),
		Debug:      parseBoolEnv("VIBE_THEME_DEBUG"),
	}
}

// ResolveOptions controls how a bundle is selected once a TERM profile exists.
type ResolveOptions struct {
	Term       string
	ForceColor bool
	ForceMono  bool
	Debug      bool
}

func resolveWithProfile(id catalog.ThemeID, opts ResolveOptions, detector TermProfileDetector) (Bundle, TermProfile, error) {
	base, ok := palettes[id]
	if !ok {
		return Bundle{}, TermProfile{}, fmt.Errorf("%w: %s", ErrUnknownVariant, id)
	}

	term := strings.TrimSpace(opts.Term)
	if term == "" {
		term = os.Getenv("TERM")
	}

	profile := detector(term)
	if opts.ForceColor && profile.Colors == 0 {
		profile = TermProfile{Colors: 256, IsTTY: true}
	}
	mono := shouldUseMonochrome(profile, opts)
	if opts.Debug {
		log.Debug("theme resolved", "theme", id, "term", term, "colors", profile.Colors, "truecolor", profile.TrueColor, "tty", profile.IsTTY, "mono", mono)
	}
	if mono {
		return cloneBundle(highContrastBundle()), TermProfile{Colors: 0, IsTTY: profile.IsTTY}, nil
	}

	return cloneBundle(base), profile, nil
}

func parseBoolEnv(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func shouldUseMonochrome(profile TermProfile, opts ResolveOptions) bool {
	if opts.ForceMono {
		return true
	}
	if opts.ForceColor {
		return false
	}
	return !profile.IsTTY || profile.Colors == 0
}

func detectTermProfile(term string) TermProfile {
	norm := strings.ToLower(strings.TrimSpace(term))
	if cached, ok := termProfileCache.Load(norm); ok {
		return cached.(TermProfile)
	}

	profile := detectTermProfileUncached(norm)
	termProfileCache.Store(norm, profile)
	return profile
}

func detectTermProfileUncached(norm string) TermProfile {
	if norm == "" {
		return TermProfile{Colors: 0, TrueColor: false, IsTTY: false}
	}

	if p, ok := knownProfiles[norm]; ok {
		return p
	}

	profile := TermProfile{Colors: 16, TrueColor: false, IsTTY: true}
	if strings.Contains(norm, "truecolor") || strings.Contains(norm, "24bit") || strings.Contains(norm, "kitty") || strings.Contains(norm, "wezterm") {
		profile.TrueColor = true
		profile.Colors = 1 << 24
	}
	if strings.Contains(norm, "256") {
		profile.Colors = 256
	}
	if strings.Contains(norm, "dumb") {
		profile = TermProfile{Colors: 0, TrueColor: false, IsTTY: false}
	}
	if strings.Contains(norm, "screen") && !strings.Contains(norm, "256") {
		profile.Colors = 8
	}

	return profile
}

// ColorProfile maps the capability profile onto a termenv profile.
func (p TermProfile) ColorProfile() termenv.Profile {
	switch {
	case p.TrueColor:
		return termenv.TrueColor
	case p.Colors >= 256:
		return termenv.ANSI256
	case p.Colors > 0:
		return termenv.ANSI
	default:
		return termenv.Ascii
	}
}

func highContrastBundle() Bundle {
	return Bundle{
		StyleSet: StyleSet{
			Header:        Style{Foreground: "#FFFFFF", Background: "#000000", Bold: true},
			Panel:         Style{Foreground: "#FFFFFF", Background: "#000000"},
			Control:       Style{Foreground: "#FFFFFF", Background: "#000000"},
			ActiveControl: Style{Foreground: "#000000", Background: "#FFFF00", Bold: true},
			Editor:        Style{Foreground: "#FFFFFF", Background: "#000000"},
			Footer:        Style{Foreground: "#FFFFFF", Background: "#000000"},
			Notice:        Style{Foreground: "#000000", Background: "#FFFFFF", Bold: true},
			Warning:       Style{Foreground: "#000000", Background: "#FFFF00", Bold: true},
		},
		Roles: SemanticRoles{Primary: "#FFFFFF", Accent: "#FFFF00", Muted: "#C0C0C0", Danger: "#FFFF00", Success: "#00FF00", Border: "#FFFFFF"},
	}
}

func cloneBundle(in Bundle) Bundle {
	return in
}
