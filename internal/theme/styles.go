package theme

import "github.com/charmbracelet/lipgloss"

// Styles are the lipgloss renderings of a Bundle for one renderer. SSH
// sessions each carry their own renderer, so Styles are built per session.
type Styles struct {
	Header        lipgloss.Style
	Panel         lipgloss.Style
	Control       lipgloss.Style
	ActiveControl lipgloss.Style
	Editor        lipgloss.Style
	Footer        lipgloss.Style
	Notice        lipgloss.Style
	Warning       lipgloss.Style
	Border        lipgloss.Style
	Muted         lipgloss.Style
}

// Styles renders the bundle through r. A nil renderer uses lipgloss' default.
func (b Bundle) Styles(r *lipgloss.Renderer) Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return Styles{
		Header:        b.Header.lipgloss(r).Padding(0, 1),
		Panel:         b.Panel.lipgloss(r).Padding(0, 1),
		Control:       b.Control.lipgloss(r).Padding(0, 1),
		ActiveControl: b.ActiveControl.lipgloss(r).Padding(0, 1),
		Editor:        b.Editor.lipgloss(r),
		Footer:        b.Footer.lipgloss(r).Padding(0, 1),
		Notice:        b.Notice.lipgloss(r).Padding(1, 3).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(b.Roles.Border)),
		Warning:       b.Warning.lipgloss(r).Padding(1, 3).Border(lipgloss.ThickBorder()).BorderForeground(lipgloss.Color(b.Roles.Danger)),
		Border:        r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(b.Roles.Border)),
		Muted:         r.NewStyle().Foreground(lipgloss.Color(b.Roles.Muted)),
	}
}

func (s Style) lipgloss(r *lipgloss.Renderer) lipgloss.Style {
	out := r.NewStyle().Bold(s.Bold)
	if s.Foreground != "" {
		out = out.Foreground(lipgloss.Color(s.Foreground))
	}
	if s.Background != "" {
		out = out.Background(lipgloss.Color(s.Background))
	}
	return out
}
