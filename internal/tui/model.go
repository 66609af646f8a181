// Package tui implements the editor screen: header, control panel, editor
// surface and footer, driven by one bubbletea program per session.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"vibe-terminal/internal/catalog"
	"vibe-terminal/internal/clipboard"
	"vibe-terminal/internal/export"
	"vibe-terminal/internal/highlight"
	"vibe-terminal/internal/session"
	"vibe-terminal/internal/theme"
)

const (
	title                   = "Vibe Coding"
	tagline                 = "Code with Style"
	copiedText              = "Code copied to clipboard!"
	defaultClipboardTimeout = 5 * time.Second
)

type focusArea int

const (
	focusEditor focusArea = iota
	focusPanel
)

// Message types consumed by Update.
type (
	mountedMsg    struct{}
	copyResultMsg struct{ err error }
)

// Options are the collaborators of one editor session.
type Options struct {
	Renderer         *lipgloss.Renderer
	Theme            theme.ResolveOptions
	Clipboard        clipboard.Writer
	Exporter         export.Exporter
	Highlighter      *highlight.Highlighter
	Logger           *log.Logger
	ClipboardTimeout time.Duration
}

// Model is the bubbletea model for one session.
type Model struct {
	state  *session.State
	editor *editorSurface
	panel  panel
	keys   keyMap
	help   help.Model
	notice *notice
	status string
	focus  focusArea

	width  int
	height int

	renderer    *lipgloss.Renderer
	themeOpts   theme.ResolveOptions
	profile     theme.TermProfile
	styles      theme.Styles
	clip        clipboard.Writer
	exporter    export.Exporter
	hl          *highlight.Highlighter
	logger      *log.Logger
	clipTimeout time.Duration
}

// New builds a Model in the Unmounted phase. It renders the loading
// placeholder until the first window size arrives.
func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	clip := opts.Clipboard
	if clip == nil {
		clip = clipboard.Chain{}
	}
	exporter := opts.Exporter
	if exporter == nil {
		exporter = export.NewFileExporter("")
	}
	hl := opts.Highlighter
	if hl == nil {
		hl = highlight.New()
	}
	timeout := opts.ClipboardTimeout
	if timeout <= 0 {
		timeout = defaultClipboardTimeout
	}

	m := Model{
		state:       session.New(),
		keys:        defaultKeyMap(),
		help:        help.New(),
		focus:       focusEditor,
		renderer:    opts.Renderer,
		themeOpts:   opts.Theme,
		clip:        clip,
		exporter:    exporter,
		hl:          hl,
		logger:      logger,
		clipTimeout: timeout,
	}
	m.applyTheme()
	return m
}

// State exposes the session record.
func (m Model) State() *session.State { return m.state }

func (m Model) Init() tea.Cmd {
	return nil
}

// Update advances model state in response to events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if m.state.BeginMount() {
			m.editor = newEditorSurface(m.state, m.hl)
			m.layout()
			m.render()
			m.logger.Debug("editor mounting", "width", msg.Width, "height", msg.Height)
			return m, func() tea.Msg { return mountedMsg{} }
		}
		if m.editor != nil {
			m.layout()
		}
		return m, nil

	case mountedMsg:
		if !m.state.FinishMount() {
			return m, nil
		}
		m.logger.Info("editor ready", "event", "session_ready")
		return m, tea.Batch(m.editor.focus(), cursor.Blink)

	case copyResultMsg:
		if msg.err != nil {
			friendly := mapClipboardError(msg.err)
			m.logger.Warn("clipboard write failed", "event", "clipboard", "code", friendly.Code, "err", msg.err)
			m.notice = &notice{kind: noticeFailure, title: "Copy failed", body: friendly.Message}
			return m, nil
		}
		m.logger.Info("clipboard write", "event", "clipboard", "bytes", len(m.state.Buffer()))
		m.notice = &notice{kind: noticeInfo, title: copiedText}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if !m.state.Ready() {
			return m, nil
		}
		if m.notice != nil {
			m.notice = nil
			return m, nil
		}
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		m.render()
		return m, cmd
	}

	if !m.state.Ready() {
		return m, nil
	}
	return m, m.editor.update(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	m.status = ""
	switch {
	case key.Matches(msg, m.keys.FocusToggle):
		return m.toggleFocus()
	case key.Matches(msg, m.keys.NextLanguage):
		m.selectLanguage(catalog.NextLanguage(m.state.Language(), 1))
	case key.Matches(msg, m.keys.PrevLanguage):
		m.selectLanguage(catalog.NextLanguage(m.state.Language(), -1))
	case key.Matches(msg, m.keys.NextTheme):
		m.selectTheme(catalog.NextTheme(m.state.Theme(), 1))
	case key.Matches(msg, m.keys.FontUp):
		m.setFontSize(m.state.FontSize() + 1)
	case key.Matches(msg, m.keys.FontDown):
		m.setFontSize(m.state.FontSize() - 1)
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyToClipboard()
	case key.Matches(msg, m.keys.Download):
		m.downloadAsFile()
	case key.Matches(msg, m.keys.Clear):
		m.clear()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
	case m.focus == focusPanel:
		return m.updatePanel(msg)
	case key.Matches(msg, m.keys.Indent):
		m.editor.insert("  ")
	default:
		return m, m.editor.update(msg)
	}
	return m, nil
}

func (m Model) toggleFocus() (Model, tea.Cmd) {
	if m.focus == focusEditor {
		m.focus = focusPanel
		m.editor.blur()
		return m, nil
	}
	m.focus = focusEditor
	return m, m.editor.focus()
}

func (m Model) updatePanel(msg tea.KeyMsg) (Model, tea.Cmd) {
	var intent panelIntent
	m.panel, intent = m.panel.update(msg, m.keys, m.state)
	switch intent.action {
	case actionLanguage:
		m.selectLanguage(intent.language)
	case actionTheme:
		m.selectTheme(intent.theme)
	case actionFontSize:
		m.setFontSizeInput(intent.fontSize)
	case actionCopy:
		return m, m.copyToClipboard()
	case actionDownload:
		m.downloadAsFile()
	case actionClear:
		m.clear()
	}
	return m, nil
}

func (m *Model) selectLanguage(id catalog.LanguageID) {
	if err := m.state.SelectLanguage(id); err != nil {
		m.logger.Warn("language rejected", "language", id, "err", err)
	}
}

func (m *Model) selectTheme(id catalog.ThemeID) {
	if err := m.state.SelectTheme(id); err != nil {
		m.logger.Warn("theme rejected", "theme", id, "err", err)
		return
	}
	m.applyTheme()
}

func (m *Model) setFontSize(n int) {
	m.state.SetFontSize(n)
}

func (m *Model) setFontSizeInput(raw string) {
	m.state.SetFontSizeInput(raw)
}

// copyToClipboard snapshots the buffer and writes it off the update loop.
func (m Model) copyToClipboard() tea.Cmd {
	text := m.state.Buffer()
	writer := m.clip
	timeout := m.clipTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return copyResultMsg{err: writer.Write(ctx, text)}
	}
}

func (m *Model) downloadAsFile() {
	name := export.FileName(m.state.Language())
	path, err := m.exporter.Export(name, []byte(m.state.Buffer()))
	if err != nil {
		friendly := mapExportError(err)
		m.logger.Error("export failed", "event", "export", "code", friendly.Code, "file", name, "err", err)
		m.notice = &notice{kind: noticeFailure, title: "Download failed", body: friendly.Message}
		return
	}
	m.logger.Info("export written", "event", "export", "file", name, "path", path, "bytes", len(m.state.Buffer()))
	m.status = "Saved " + path
}

func (m *Model) clear() {
	m.state.Clear()
	m.logger.Debug("buffer cleared")
}

func (m *Model) applyTheme() {
	bundle, profile, err := theme.Resolve(m.state.Theme(), m.themeOpts)
	if err != nil {
		m.logger.Error("theme resolve failed", "theme", m.state.Theme(), "err", err)
		return
	}
	m.profile = profile
	m.styles = bundle.Styles(m.renderer)
	m.help.Styles.ShortKey = m.styles.Muted.Bold(true)
	m.help.Styles.ShortDesc = m.styles.Muted
	m.help.Styles.FullKey = m.styles.Muted.Bold(true)
	m.help.Styles.FullDesc = m.styles.Muted
}

// render is the Editor Surface render(config) call for the current state.
func (m *Model) render() {
	if m.editor == nil {
		return
	}
	m.editor.render(renderConfig{
		Language: m.state.Language(),
		Theme:    m.state.Theme(),
		FontSize: m.state.FontSize(),
		Buffer:   m.state.Buffer(),
	}, m.styles, m.profile)
}

// layout gives the editor whatever rows the chrome leaves.
func (m *Model) layout() {
	chrome := lipgloss.Height(m.renderHeader()) +
		lipgloss.Height(m.panel.view(m.state, m.styles, m.focus == focusPanel, m.width)) +
		lipgloss.Height(m.renderFooter()) +
		lipgloss.Height(m.help.View(m.keys))
	m.editor.resize(m.width, max(m.height-chrome, 3))
}

// View renders the loading placeholder before Ready and the full screen
// afterwards.
func (m Model) View() string {
	if !m.state.Ready() {
		return placeholder(m.width, m.height)
	}
	if m.notice != nil {
		return m.notice.view(m.styles, m.width, m.height)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.panel.view(m.state, m.styles, m.focus == focusPanel, m.width),
		m.editor.view(),
		m.renderFooter(),
		m.help.View(m.keys),
	)
}

func (m Model) renderHeader() string {
	left := m.styles.Header.Render("🚀 " + title)
	right := m.styles.Header.Render(tagline)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		return left
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, m.styles.Header.UnsetPadding().Render(strings.Repeat(" ", gap)), right)
}

func (m Model) renderFooter() string {
	stats := m.state.Stats()
	line := fmt.Sprintf("Lines: %d | Characters: %d", stats.Lines, stats.Characters)
	if m.editor != nil {
		row, col := m.editor.cursor()
		line += fmt.Sprintf(" | Ln %d, Col %d", row+1, col+1)
	}
	if m.status != "" {
		line += " | " + m.status
	}
	if m.width <= 0 {
		return m.styles.Footer.Render(line)
	}
	return m.styles.Footer.Width(m.width).Align(lipgloss.Center).Render(line)
}
