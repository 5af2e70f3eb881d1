package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"savvy/internal/cli"
	"savvy/internal/sheets"
	"savvy/internal/sheets/memory"
	"savvy/internal/worker"
)

var ledgerFlags struct {
	owner  string
	dryRun bool
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Maintain the spreadsheet ledger mirror",
}

var ledgerBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Copy every record of an owner into the ledger",
	Long:  "Copy every transaction and goal of an owner into the ledger.\nRows are keyed by record ID, so running it twice rewrites them in place.",
	Args:  cobra.NoArgs,
	RunE:  runLedgerBackfill,
}

func init() {
	f := ledgerBackfillCmd.Flags()
	f.StringVar(&ledgerFlags.owner, "owner", "", "owner user ID (default DEMO_OWNER)")
	f.BoolVar(&ledgerFlags.dryRun, "dry-run", false, "write to an in-memory ledger and report counts only")

	ledgerCmd.AddCommand(ledgerBackfillCmd)
}

func runLedgerBackfill(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, res, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(res)

	owner, err := ownerOr(ledgerFlags.owner, cfg)
	if err != nil {
		return err
	}

	logger := newLogger()
	var ledger sheets.Ledger = memory.New()
	if !ledgerFlags.dryRun {
		if ledger, err = cli.OpenLedger(ctx, cfg, logger); err != nil {
			return err
		}
	}

	stats, err := worker.NewSyncWorker(ledger, logger.Slog()).Backfill(ctx, res.Store, owner)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Owner:        %s\n", owner)
	fmt.Fprintf(out, "Transactions: %d\n", stats.Transactions)
	fmt.Fprintf(out, "Goals:        %d\n", stats.Goals)
	if stats.Errors > 0 {
		return fmt.Errorf("%d rows failed to sync", stats.Errors)
	}
	return nil
}
