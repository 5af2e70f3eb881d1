package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"savvy/internal/backend"
	"savvy/internal/cli"
	"savvy/internal/config"
	"savvy/internal/viewmodel"
)

var recordFlags struct {
	owner string
	sort  string
	dir   string
}

var transactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "Inspect transactions in the configured record store",
}

var transactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List an owner's transactions in table order",
	Args:  cobra.NoArgs,
	RunE:  runTransactionsList,
}

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Inspect savings goals in the configured record store",
}

var goalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List an owner's savings goals with progress",
	Args:  cobra.NoArgs,
	RunE:  runGoalsList,
}

func init() {
	for _, c := range []*cobra.Command{transactionsListCmd, goalsListCmd} {
		c.Flags().StringVar(&recordFlags.owner, "owner", "", "owner user ID (default DEMO_OWNER)")
	}
	f := transactionsListCmd.Flags()
	f.StringVar(&recordFlags.sort, "sort", string(viewmodel.DefaultSortState.Field), "sort field: date, description, category, type, amount")
	f.StringVar(&recordFlags.dir, "dir", string(viewmodel.DefaultSortState.Direction), "sort direction: asc, desc")

	transactionsCmd.AddCommand(transactionsListCmd)
	goalsCmd.AddCommand(goalsListCmd)
}

// openStore opens the record store named by DATA_BACKEND.
func openStore(ctx context.Context) (*config.Config, *backend.BackendResult, error) {
	cfg := config.Load()
	ref, err := cli.LoadReference(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := cli.OpenBackend(ctx, cfg, ref, newLogger())
	if err != nil {
		return nil, nil, err
	}
	return cfg, res, nil
}

func closeStore(res *backend.BackendResult) {
	if res.Cleanup != nil {
		_ = res.Cleanup()
	}
}

func runTransactionsList(cmd *cobra.Command, _ []string) error {
	field, err := viewmodel.ParseSortField(recordFlags.sort)
	if err != nil {
		return err
	}
	dir, err := viewmodel.ParseSortDirection(recordFlags.dir)
	if err != nil {
		return err
	}

	cfg, res, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore(res)

	owner, err := ownerOr(recordFlags.owner, cfg)
	if err != nil {
		return err
	}
	sorter, err := viewmodel.NewSorter(cfg.CollationLocale)
	if err != nil {
		return err
	}
	txs, err := res.Store.ListTransactions(cmd.Context(), owner)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	list := sorter.Transactions(txs, viewmodel.SortState{Field: field, Direction: dir})

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tDESCRIPTION\tCATEGORY\tTYPE\tAMOUNT")
	for _, t := range list.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Date, t.Description, t.Category, t.Type, t.Amount.StringFixed(2))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d transactions, sorted by %s %s\n", len(list.Items), list.Sort.Field, list.Sort.Direction)
	return nil
}

func runGoalsList(cmd *cobra.Command, _ []string) error {
	cfg, res, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore(res)

	owner, err := ownerOr(recordFlags.owner, cfg)
	if err != nil {
		return err
	}
	goals, err := res.Store.ListGoals(cmd.Context(), owner)
	if err != nil {
		return fmt.Errorf("list goals: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSAVED\tTARGET\tPROGRESS\tDEADLINE")
	for _, g := range viewmodel.Goals(goals) {
		progress := "n/a"
		if g.ProgressDefined {
			progress = fmt.Sprintf("%d%%", g.Percent)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", g.ID, g.Name, g.CurrentAmount.StringFixed(2), g.TargetAmount.StringFixed(2), progress, g.Deadline)
	}
	return w.Flush()
}
