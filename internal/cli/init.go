// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/savvy, cmd/savvy-worker and cmd/savvyctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"savvy/internal/backend"
	"savvy/internal/config"
	"savvy/internal/log"
	"savvy/internal/reference"
	"savvy/internal/sheets"
	gsheet "savvy/internal/sheets/google"
	"savvy/internal/sheets/memory"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger for component and makes it the
// slog default. An unknown level falls back to info; Validate reports it.
func SetupLogger(level, component string) *log.Logger {
	cfg := log.DefaultConfig()
	if lvl, err := log.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and checks it with validate.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger, validate func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// LoadReference returns REFERENCE_DATA_FILE when set, the embedded data
// otherwise.
func LoadReference(cfg *config.Config) (*reference.Data, error) {
	if cfg.ReferenceDataFile == "" {
		return reference.Default()
	}
	ref, err := reference.Load(cfg.ReferenceDataFile)
	if err != nil {
		return nil, fmt.Errorf("load reference data: %w", err)
	}
	return ref, nil
}

// OpenBackend creates the configured record store.
func OpenBackend(ctx context.Context, cfg *config.Config, ref *reference.Data, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg, ref)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.Slog()).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}
	return res, nil
}

// OpenLedger returns the Google Sheets ledger when a spreadsheet is
// configured and an in-process one otherwise.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.Ledger, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, using in-memory ledger")
		return memory.New(), nil
	}
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		LedgerSheet:        cfg.GoogleSheetName,
		GoalsSheet:         cfg.GoogleGoalsSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	}, logger.Slog())
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	return cli, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// Shutdown runs stop with a fresh timeout context. A stop that outlives the
// timeout is reported, not waited for.
func Shutdown(logger *log.Logger, timeout time.Duration, stop func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := stop(ctx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("Shutdown timeout reached", "timeout", timeout)
	case err != nil:
		logger.Error("Shutdown error", "error", err)
	default:
		logger.Info("Shutdown complete")
	}
	return err
}
