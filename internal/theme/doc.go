// Package theme resolves typed, immutable palette bundles for the editor's
// chrome (header, control panel, editor frame, footer, notifications).
//
// Integration example:
//
//	bundle, profile, err := theme.Resolve(catalog.ThemeDark, theme.ResolveOptions{Term: pty.Term})
//	if err != nil {
//		return err
//	}
//	styles := bundle.Styles(renderer)
//	header := styles.Header.Render("Vibe Coding")
//	_ = profile.ColorProfile()
//
// Highlighted source text takes its colors from chroma styles; see the
// highlight package.
package theme
