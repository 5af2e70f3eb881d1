package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"savvy/internal/config"
	"savvy/internal/storage"
)

var migrateFlags struct {
	dbPath string
	steps  int
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the SQLite schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := migrateDBPath()
		if err := storage.RunMigrations(path); err != nil {
			return err
		}
		return printVersion(cmd, path)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := migrateDBPath()
		if err := storage.RollbackMigrations(path, migrateFlags.steps); err != nil {
			return err
		}
		return printVersion(cmd, path)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printVersion(cmd, migrateDBPath())
	},
}

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrateFlags.dbPath, "db", "", "SQLite database path (default SQLITE_DB_PATH)")
	migrateDownCmd.Flags().IntVar(&migrateFlags.steps, "steps", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}

func migrateDBPath() string {
	if migrateFlags.dbPath != "" {
		return migrateFlags.dbPath
	}
	return config.Load().SQLiteDBPath
}

func printVersion(cmd *cobra.Command, path string) error {
	v, dirty, err := storage.MigrationVersion(path)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database: %s\n", path)
	fmt.Fprintf(out, "Version:  %d\n", v)
	if dirty {
		fmt.Fprintln(out, "State:    dirty (fix the failed migration and force the version)")
	}
	return nil
}
