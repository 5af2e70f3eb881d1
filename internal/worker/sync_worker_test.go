package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savvy/internal/amqp"
	"savvy/internal/core"
	"savvy/internal/records"
	recmemory "savvy/internal/records/memory"
	"savvy/internal/sheets"
	"savvy/internal/sheets/memory"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func txEvent(op amqp.RecordOp, id string) *amqp.RecordEvent {
	ev := amqp.NewRecordEvent(amqp.KindTransaction, op, "user-1", id)
	if op != amqp.OpDeleted {
		ev.Transaction = &records.TransactionRow{
			ID: id, Description: "Monthly Rent", Amount: decimal.NewFromInt(2500),
			Category: "Rent", Type: "need", Date: "2023-04-03",
		}
	}
	return ev
}

func TestHandleTransactionEvents(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	w := NewSyncWorker(ledger, quiet())
	require.NoError(t, w.Prepare(ctx))

	require.NoError(t, w.HandleRecordEvent(ctx, txEvent(amqp.OpCreated, "tx1")))
	require.NoError(t, w.HandleRecordEvent(ctx, txEvent(amqp.OpCreated, "tx1")))

	rows := ledger.Rows(memory.TabTransactions)
	require.Len(t, rows, 2, "redelivered create must not duplicate the row")
	assert.Equal(t, "user-1", rows[1][6], "owner filled from the event")

	require.NoError(t, w.HandleRecordEvent(ctx, txEvent(amqp.OpDeleted, "tx1")))
	assert.Len(t, ledger.Rows(memory.TabTransactions), 1)

	require.NoError(t, w.HandleRecordEvent(ctx, txEvent(amqp.OpDeleted, "tx1")), "deleting an absent row is done")
}

func TestHandleGoalEvents(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	w := NewSyncWorker(ledger, quiet())

	ev := amqp.NewRecordEvent(amqp.KindGoal, amqp.OpUpdated, "user-1", "goal1")
	ev.Goal = &records.GoalRow{Name: "Vacation", IconName: "calendar", TargetAmount: decimal.NewFromInt(30000), CurrentAmount: decimal.NewFromInt(5000), Deadline: "2023-08-15"}
	require.NoError(t, w.HandleRecordEvent(ctx, ev))

	goals := ledger.Rows(memory.TabGoals)
	require.Len(t, goals, 2)
	assert.Equal(t, "goal1", goals[1][0], "ID filled from the event")

	require.NoError(t, w.HandleRecordEvent(ctx, amqp.NewRecordEvent(amqp.KindGoal, amqp.OpDeleted, "user-1", "goal1")))
	assert.Len(t, ledger.Rows(memory.TabGoals), 1)
}

func TestEventWithoutRowIsDropped(t *testing.T) {
	ledger := memory.New()
	w := NewSyncWorker(ledger, quiet())

	ev := amqp.NewRecordEvent(amqp.KindTransaction, amqp.OpCreated, "user-1", "tx1")
	require.NoError(t, w.HandleRecordEvent(context.Background(), ev))
	assert.Empty(t, ledger.Rows(memory.TabTransactions))
}

type failingLedger struct {
	*memory.Ledger
	err error
}

func (f failingLedger) UpsertTransaction(context.Context, records.TransactionRow) (string, error) {
	return "", f.err
}

func (f failingLedger) DeleteTransaction(context.Context, string) error { return f.err }

func TestLedgerFailureRequeues(t *testing.T) {
	boom := errors.New("quota exceeded")
	w := NewSyncWorker(failingLedger{Ledger: memory.New(), err: boom}, quiet())

	err := w.HandleRecordEvent(context.Background(), txEvent(amqp.OpCreated, "tx1"))
	assert.ErrorIs(t, err, boom)
	err = w.HandleRecordEvent(context.Background(), txEvent(amqp.OpDeleted, "tx1"))
	assert.ErrorIs(t, err, boom)

	w = NewSyncWorker(failingLedger{Ledger: memory.New(), err: sheets.ErrRowNotFound}, quiet())
	assert.NoError(t, w.HandleRecordEvent(context.Background(), txEvent(amqp.OpDeleted, "tx1")))
}

func TestBackfill(t *testing.T) {
	ctx := context.Background()
	store := recmemory.New()
	store.Seed("user-1", []core.Transaction{
		{ID: "tx1", OwnerID: "user-1", Description: "Dinner", Amount: core.MoneyFromInt(600), Category: "Dining", Type: core.Want, Date: core.NewDate(2023, 4, 1), CreatedAt: time.Unix(1, 0)},
		{ID: "tx2", OwnerID: "user-1", Description: "Rent", Amount: core.MoneyFromInt(2500), Category: "Rent", Type: core.Need, Date: core.NewDate(2023, 4, 3), CreatedAt: time.Unix(2, 0)},
	}, []core.SavingsGoal{
		{ID: "goal1", OwnerID: "user-1", Name: "Laptop", IconName: core.IconLaptop, TargetAmount: core.MoneyFromInt(80000), CurrentAmount: core.MoneyFromInt(15000), Deadline: core.NewDate(2023, 10, 1), CreatedAt: time.Unix(1, 0)},
	})

	ledger := memory.New()
	w := NewSyncWorker(ledger, quiet())

	stats, err := w.Backfill(ctx, store, "user-1")
	require.NoError(t, err)
	assert.Equal(t, BackfillStats{Transactions: 2, Goals: 1}, stats)

	stats, err = w.Backfill(ctx, store, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Transactions)
	assert.Len(t, ledger.Rows(memory.TabTransactions), 3, "backfill is idempotent")
	assert.Len(t, ledger.Rows(memory.TabGoals), 2)
}
