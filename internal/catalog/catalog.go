// Package catalog holds the fixed language and theme menus offered by the
// control panel.
package catalog

import (
	"errors"
	"fmt"
)

// LanguageID identifies an entry of the language catalog.
type LanguageID string

// ThemeID identifies an entry of the theme catalog.
type ThemeID string

const (
	JavaScript LanguageID = "javascript"
	TypeScript LanguageID = "typescript"
	Python     LanguageID = "python"
	Java       LanguageID = "java"
	CPP        LanguageID = "cpp"
	CSharp     LanguageID = "csharp"
	Go         LanguageID = "go"
	Rust       LanguageID = "rust"
	HTML       LanguageID = "html"
	CSS        LanguageID = "css"
	JSON       LanguageID = "json"
	Markdown   LanguageID = "markdown"
)

const (
	ThemeDark         ThemeID = "vs-dark"
	ThemeLight        ThemeID = "light"
	ThemeHighContrast ThemeID = "hc-black"
)

const (
	DefaultLanguage = JavaScript
	DefaultTheme    = ThemeDark
)

var (
	ErrUnknownLanguage = errors.New("unknown language")
	ErrUnknownTheme    = errors.New("unknown theme")
)

// Language is one selectable highlight mode.
type Language struct {
	ID   LanguageID
	Name string
	// Lexer is the chroma lexer name used for highlighting.
	Lexer string
}

// Theme is one selectable color scheme.
type Theme struct {
	ID   ThemeID
	Name string
	// Style is the chroma style name used for highlighted text.
	Style string
}

var languages = [...]Language{
	{ID: JavaScript, Name: "JavaScript", Lexer: "javascript"},
	{ID: TypeScript, Name: "TypeScript", Lexer: "typescript"},
	{ID: Python, Name: "Python", Lexer: "python"},
	{ID: Java, Name: "Java", Lexer: "java"},
	{ID: CPP, Name: "C++", Lexer: "c++"},
	{ID: CSharp, Name: "C#", Lexer: "c#"},
	{ID: Go, Name: "Go", Lexer: "go"},
	{ID: Rust, Name: "Rust", Lexer: "rust"},
	{ID: HTML, Name: "HTML", Lexer: "html"},
	{ID: CSS, Name: "CSS", Lexer: "css"},
	{ID: JSON, Name: "JSON", Lexer: "json"},
	{ID: Markdown, Name: "Markdown", Lexer: "markdown"},
}

var themes = [...]Theme{
	{ID: ThemeDark, Name: "Dark", Style: "github-dark"},
	{ID: ThemeLight, Name: "Light", Style: "vs"},
	{ID: ThemeHighContrast, Name: "High Contrast", Style: "bw"},
}

var extensions = map[LanguageID]string{
	JavaScript: "js",
	TypeScript: "ts",
	Python:     "py",
}

const defaultExtension = "txt"

// Languages returns the language catalog in display order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages[:])
	return out
}

// Themes returns the theme catalog in display order.
func Themes() []Theme {
	out := make([]Theme, len(themes))
	copy(out, themes[:])
	return out
}

// LookupLanguage returns the catalog entry for id.
func LookupLanguage(id LanguageID) (Language, error) {
	for _, l := range languages {
		if l.ID == id {
			return l, nil
		}
	}
	return Language{}, fmt.Errorf("%w: %q", ErrUnknownLanguage, id)
}

// LookupTheme returns the catalog entry for id.
func LookupTheme(id ThemeID) (Theme, error) {
	for _, t := range themes {
		if t.ID == id {
			return t, nil
		}
	}
	return Theme{}, fmt.Errorf("%w: %q", ErrUnknownTheme, id)
}

// Extension maps a language to the file extension used for downloads.
// Languages without an explicit mapping fall back to "txt".
func Extension(id LanguageID) string {
	if ext, ok := extensions[id]; ok {
		return ext
	}
	return defaultExtension
}

// NextLanguage returns the entry after id, wrapping around. A negative step
// walks backwards.
func NextLanguage(id LanguageID, step int) LanguageID {
	idx := 0
	for i, l := range languages {
		if l.ID == id {
			idx = i
			break
		}
	}
	return languages[wrap(idx+step, len(languages))].ID
}

// NextTheme returns the entry after id, wrapping around.
func NextTheme(id ThemeID, step int) ThemeID {
	idx := 0
	for i, t := range themes {
		if t.ID == id {
			idx = i
			break
		}
	}
	return themes[wrap(idx+step, len(themes))].ID
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}
