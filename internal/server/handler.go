package server

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish/activeterm"
	bm "github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"

	"vibe-terminal/internal/clipboard"
	"vibe-terminal/internal/config"
	"vibe-terminal/internal/export"
	"vibe-terminal/internal/highlight"
	"vibe-terminal/internal/router"
	"vibe-terminal/internal/theme"
	"vibe-terminal/internal/tui"
)

// makeRenderer is swapped in tests; the wish renderer queries the client
// terminal.
var makeRenderer = bm.MakeRenderer

// EditorHandler builds the editor model for an SSH session. Clipboard writes
// go back over the session as OSC 52 and downloads land in a directory owned
// by the SSH user.
func EditorHandler(cfg config.Config, logger *log.Logger, hl *highlight.Highlighter) bm.Handler {
	return func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
		pty, _, _ := s.Pty()
		sessionLogger := logger.With("user", s.User(), "remote_ip", remoteIP(s))
		if md, ok := router.MetadataFrom(s.Context()); ok {
			sessionLogger = sessionLogger.With("session_id", md.ID)
		}

		model := tui.New(tui.Options{
			Renderer:    makeRenderer(s),
			Theme:       theme.OptionsFromEnv(pty.Term),
			Clipboard:   clipboard.NewOSC52(s, pty.Term),
			Exporter:    export.NewFileExporter(export.UserDir(cfg.ExportDir, s.User())),
			Highlighter: hl,
			Logger:      sessionLogger,
		})
		return model, []tea.ProgramOption{tea.WithAltScreen()}
	}
}

// DefaultChain is the production middleware chain, outermost first.
func DefaultChain(cfg config.Config, logger *log.Logger) []router.Descriptor {
	hl := highlight.New()
	return []router.Descriptor{
		{Name: "logging", Middleware: logging.StructuredMiddlewareWithLogger(logger, log.InfoLevel)},
		{Name: "rate-limit", Middleware: RateLimitMiddleware(cfg.RateLimitPerMinute, cfg.RateLimitBurst, logger)},
		{Name: "max-sessions", Middleware: MaxSessionsMiddleware(cfg.MaxSessions, logger)},
		{Name: "session-metadata", Middleware: router.SessionMetadata()},
		{Name: "active-terminal", Middleware: activeterm.Middleware()},
		{Name: "editor", Middleware: bm.Middleware(EditorHandler(cfg, logger, hl))},
	}
}
