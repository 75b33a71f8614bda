// Package cli consolidates the startup sequence shared by the server and
// worker binaries.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"carteira/internal/config"
)

// Bootstrap prepares a binary for work: loads the optional .env file,
// installs the default structured logger, and loads and validates
// configuration. Exits the process when the configuration is unusable.
func Bootstrap(name string) (*slog.Logger, *config.Config) {
	// .env is for local development; in production env vars come from the
	// runtime, so a missing file is not an error.
	_ = godotenv.Load()

	logger := SetupLogger()
	logger.Info("Starting " + name)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return logger, cfg
}

// SetupLogger installs a text slog handler on stdout as the default logger.
func SetupLogger() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}
