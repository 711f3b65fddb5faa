// Package cli provides common process bootstrap shared by cmd/expensebot and
// cmd/expense-notifier.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expensebot/internal/config"
	applog "expensebot/internal/log"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(component string) *applog.Logger {
	level, err := applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	format := os.Getenv("LOG_FORMAT")
	logger := applog.New(applog.Config{
		Level:     level,
		Format:    format,
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info log level", "error", err)
	}
	return logger
}

// LoadAndValidateConfig loads configuration and validates it with validate
// (cfg.Validate or cfg.ValidateNotifier). Exits the process on failure.
func LoadAndValidateConfig(logger *applog.Logger, validate func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-finished:
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// Fatal logs err and exits.
func Fatal(logger *applog.Logger, msg string, err error) {
	logger.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
