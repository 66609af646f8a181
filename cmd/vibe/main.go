// Command vibe runs the editor in the local terminal.
package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"vibe-terminal/internal/clipboard"
	"vibe-terminal/internal/config"
	"vibe-terminal/internal/export"
	"vibe-terminal/internal/theme"
	"vibe-terminal/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "vibe:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The screen owns stdout, so logs only go to a file when asked for.
	var out io.Writer = io.Discard
	if path := os.Getenv("VIBE_LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Formatter:       log.LogfmtFormatter,
		Level:           cfg.LogLevel,
	}).With("session_id", uuid.NewString(), "mode", "local")

	term := os.Getenv("TERM")
	model := tui.New(tui.Options{
		Theme:     theme.OptionsFromEnv(term),
		Clipboard: clipboardFor(os.Getenv("VIBE_CLIPBOARD"), term),
		Exporter:  export.NewFileExporter(cfg.ExportDir),
		Logger:    logger,
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run editor: %w", err)
	}
	return nil
}

// clipboardFor picks the clipboard path. "osc52" skips the host clipboard,
// which is what the browser gateway wants: the host is a server.
func clipboardFor(mode, term string) clipboard.Writer {
	osc := clipboard.NewOSC52(os.Stdout, term)
	switch mode {
	case "osc52":
		return osc
	case "system":
		return clipboard.System{}
	}
	return clipboard.Chain{clipboard.System{}, osc}
}
