package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"savvy/internal/cli"
	"savvy/internal/config"
	"savvy/internal/log"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel string
}

var rootCmd = &cobra.Command{
	Use:   "savvyctl",
	Short: "Administer the savvy dashboard backend",
	Long:  "savvyctl migrates the SQLite store, inspects records, mints\ndevelopment tokens and backfills the spreadsheet ledger.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		cli.LoadEnvFile()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "warn", "log level written to stderr")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(transactionsCmd)
	rootCmd.AddCommand(goalsCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.Version = version
}

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger keeps stdout for command output.
func newLogger() *log.Logger {
	cfg := log.DefaultConfig()
	if lvl, err := log.ParseLevel(rootFlags.logLevel); err == nil {
		cfg.Level = lvl
	}
	cfg.Component = log.ComponentCLI
	cfg.Output = os.Stderr
	return log.New(cfg)
}

// ownerOr falls back to DEMO_OWNER so local runs need no flag.
func ownerOr(owner string, cfg *config.Config) (string, error) {
	if owner != "" {
		return owner, nil
	}
	if cfg.DemoOwner != "" {
		return cfg.DemoOwner, nil
	}
	return "", fmt.Errorf("--owner is required when DEMO_OWNER is not set")
}
