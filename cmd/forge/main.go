package main

import (
	"log/slog"
	"os"

	"github.com/forgecli/forge/internal/cli"
	"github.com/forgecli/forge/internal/config"
)

func main() {
	// Logs go to stderr so they never corrupt the interactive UI.
	logLevel := slog.LevelWarn
	if config.IsDevMode() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cli.Execute()
}
