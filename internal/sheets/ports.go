// Package sheets defines the spreadsheet ledger that mirrors the record
// store. Rows are keyed by record ID in the first column, so replaying an
// event rewrites the same row instead of adding a duplicate.
package sheets

import (
	"context"
	"errors"

	"savvy/internal/records"
)

// ErrRowNotFound is returned when no row carries the requested ID.
var ErrRowNotFound = errors.New("sheets: row not found")

// Column layouts of the two tabs.
var (
	TransactionHeader = []string{"ID", "Date", "Description", "Category", "Type", "Amount", "Owner", "Created At"}
	GoalHeader        = []string{"ID", "Name", "Icon", "Target Amount", "Current Amount", "Deadline", "Owner", "Created At"}
)

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		UpsertTransaction(ctx context.Context, row records.TransactionRow) (rowRef string, err error)
		DeleteTransaction(ctx context.Context, id string) error
	}

	GoalWriter interface {
		UpsertGoal(ctx context.Context, row records.GoalRow) (rowRef string, err error)
		DeleteGoal(ctx context.Context, id string) error
	}

	// Ledger mirrors both record kinds.
	Ledger interface {
		TransactionWriter
		GoalWriter
		// EnsureHeaders writes the header row of each tab that lacks one.
		EnsureHeaders(ctx context.Context) error
	}
)
