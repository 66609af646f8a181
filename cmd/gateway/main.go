// Command gateway serves the editor to browser terminals over HTTP and
// websockets, running one local editor process per session.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"vibe-terminal/internal/config"
	"vibe-terminal/internal/gateway"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Formatter:       log.LogfmtFormatter,
		Prefix:          "gateway",
	})

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Fatal("load config", "err", err)
	}
	logger.SetLevel(cfg.LogLevel)

	launcher := gateway.NewEditorLauncher(cfg.GatewayEditorPath, cfg.ExportDir)
	svc, err := gateway.NewService(launcher, gateway.Options{MaxSessions: cfg.MaxSessions, Logger: logger})
	if err != nil {
		logger.Fatal("build gateway", "err", err)
	}

	srv := &http.Server{
		Addr:              cfg.GatewayAddr,
		Handler:           gateway.NewHandler(svc, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go svc.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("startup", "addr", cfg.GatewayAddr, "editor_path", cfg.GatewayEditorPath, "max_sessions", cfg.MaxSessions, "export_dir", cfg.ExportDir)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve gateway", "err", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown gateway", "err", err)
		}
	}
}
