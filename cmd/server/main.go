package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"vibe-terminal/internal/config"
	"vibe-terminal/internal/server"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Formatter:       log.LogfmtFormatter,
		Prefix:          "vibe",
	})

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Fatal("load config", "err", err)
	}
	logger.SetLevel(cfg.LogLevel)

	runtime, err := server.New(cfg, server.DefaultChain(cfg, logger), logger)
	if err != nil {
		logger.Fatal("build ssh server", "err", err)
	}

	if err := runtime.Run(context.Background()); err != nil {
		logger.Fatal("run ssh server", "err", err)
	}
}
