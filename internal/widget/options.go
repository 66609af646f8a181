package widget

// Options is the presentation bag handed to the widget unchanged. Fields the
// terminal cannot honor (font family, ligatures) are carried so a host that
// can render them receives the same settings.
type Options struct {
	// PaddingTop and PaddingBottom are blank rows around the text area.
	PaddingTop    int
	PaddingBottom int

	Minimap      bool
	MinimapWidth int

	WordWrap        bool
	AutomaticLayout bool

	FontFamily    string
	FontLigatures bool

	LineNumbers bool
	Rulers      []int

	// RenderWhitespace is one of "none", "selection", "all".
	RenderWhitespace string

	CursorBlinking             string
	CursorSmoothCaretAnimation bool
	SmoothScrolling            bool
}

// DefaultOptions returns the editor presentation used by every session.
func DefaultOptions() Options {
	return Options{
		PaddingTop:                 1,
		PaddingBottom:              1,
		Minimap:                    true,
		MinimapWidth:               24,
		WordWrap:                   true,
		AutomaticLayout:            true,
		FontFamily:                 "'Fira Code', 'Cascadia Code', 'JetBrains Mono', Consolas, monospace",
		FontLigatures:              true,
		LineNumbers:                true,
		Rulers:                     []int{80, 120},
		RenderWhitespace:           "selection",
		CursorBlinking:             "smooth",
		CursorSmoothCaretAnimation: true,
		SmoothScrolling:            true,
	}
}

func (o Options) clone() Options {
	out := o
	out.Rulers = append([]int(nil), o.Rulers...)
	return out
}
