package records

import (
	"context"
	"errors"

	"savvy/internal/core"
)

// ErrNotFound is returned when a row does not exist or is not visible to
// the owner.
var ErrNotFound = errors.New("record not found")

// Ports for record store backends. Every call carries the owner so the
// backend can scope the query; access policy is enforced by the backend.
type (
	TransactionStore interface {
		// ListTransactions returns the owner's transactions, newest date first.
		ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error)
		InsertTransaction(ctx context.Context, owner string, in core.TransactionInput) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, owner, id string) error
	}

	GoalStore interface {
		// ListGoals returns the owner's goals, most recently created first.
		ListGoals(ctx context.Context, owner string) ([]core.SavingsGoal, error)
		InsertGoal(ctx context.Context, owner string, in core.GoalInput) (core.SavingsGoal, error)
		UpdateGoal(ctx context.Context, owner, id string, in core.GoalInput) (core.SavingsGoal, error)
		DeleteGoal(ctx context.Context, owner, id string) error
	}

	Store interface {
		TransactionStore
		GoalStore
	}
)
