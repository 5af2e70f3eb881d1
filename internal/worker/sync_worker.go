package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"savvy/internal/amqp"
	"savvy/internal/records"
	"savvy/internal/sheets"
)

// SyncWorker mirrors record events into the spreadsheet ledger.
type SyncWorker struct {
	ledger sheets.Ledger
	logger *slog.Logger
}

func NewSyncWorker(ledger sheets.Ledger, logger *slog.Logger) *SyncWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorker{ledger: ledger, logger: logger}
}

// Prepare writes missing tab headers. Call it once before consuming.
func (w *SyncWorker) Prepare(ctx context.Context) error {
	if err := w.ledger.EnsureHeaders(ctx); err != nil {
		return fmt.Errorf("ensure ledger headers: %w", err)
	}
	return nil
}

// HandleRecordEvent applies one event. A returned error requeues the event,
// so malformed events are logged and dropped instead.
func (w *SyncWorker) HandleRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error {
	w.logger.InfoContext(ctx, "Processing record event",
		"event_id", ev.EventID,
		"kind", ev.Kind,
		"op", ev.Op,
		"id", ev.ID)

	switch ev.Kind {
	case amqp.KindTransaction:
		return w.syncTransaction(ctx, ev)
	case amqp.KindGoal:
		return w.syncGoal(ctx, ev)
	default:
		w.logger.WarnContext(ctx, "Dropping event of unknown kind", "kind", ev.Kind, "event_id", ev.EventID)
		return nil
	}
}

func (w *SyncWorker) syncTransaction(ctx context.Context, ev *amqp.RecordEvent) error {
	if ev.Op == amqp.OpDeleted {
		return w.deleted(ctx, ev, w.ledger.DeleteTransaction(ctx, ev.ID))
	}
	if ev.Transaction == nil {
		w.logger.WarnContext(ctx, "Dropping transaction event without row", "event_id", ev.EventID, "id", ev.ID)
		return nil
	}
	row := *ev.Transaction
	if row.ID == "" {
		row.ID = ev.ID
	}
	if row.UserID == "" {
		row.UserID = ev.OwnerID
	}
	ref, err := w.ledger.UpsertTransaction(ctx, row)
	if err != nil {
		return fmt.Errorf("upsert transaction %s: %w", ev.ID, err)
	}
	w.logger.InfoContext(ctx, "Synced transaction", "id", ev.ID, "sheets_ref", ref, "amount", row.Amount.String())
	return nil
}

func (w *SyncWorker) syncGoal(ctx context.Context, ev *amqp.RecordEvent) error {
	if ev.Op == amqp.OpDeleted {
		return w.deleted(ctx, ev, w.ledger.DeleteGoal(ctx, ev.ID))
	}
	if ev.Goal == nil {
		w.logger.WarnContext(ctx, "Dropping goal event without row", "event_id", ev.EventID, "id", ev.ID)
		return nil
	}
	row := *ev.Goal
	if row.ID == "" {
		row.ID = ev.ID
	}
	if row.UserID == "" {
		row.UserID = ev.OwnerID
	}
	ref, err := w.ledger.UpsertGoal(ctx, row)
	if err != nil {
		return fmt.Errorf("upsert goal %s: %w", ev.ID, err)
	}
	w.logger.InfoContext(ctx, "Synced goal", "id", ev.ID, "sheets_ref", ref)
	return nil
}

// deleted treats a row that is already gone as done.
func (w *SyncWorker) deleted(ctx context.Context, ev *amqp.RecordEvent, err error) error {
	switch {
	case err == nil:
		w.logger.InfoContext(ctx, "Deleted ledger row", "kind", ev.Kind, "id", ev.ID)
		return nil
	case errors.Is(err, sheets.ErrRowNotFound):
		w.logger.InfoContext(ctx, "Ledger row already absent", "kind", ev.Kind, "id", ev.ID)
		return nil
	default:
		return fmt.Errorf("delete %s %s: %w", ev.Kind, ev.ID, err)
	}
}

// BackfillStats counts the rows written by Backfill.
type BackfillStats struct {
	Transactions int
	Goals        int
	Errors       int
}

// Backfill copies every record of owner into the ledger. It recovers from
// events lost while the worker was down.
func (w *SyncWorker) Backfill(ctx context.Context, store records.Store, owner string) (BackfillStats, error) {
	var stats BackfillStats
	if err := w.Prepare(ctx); err != nil {
		return stats, err
	}

	txs, err := store.ListTransactions(ctx, owner)
	if err != nil {
		return stats, fmt.Errorf("list transactions: %w", err)
	}
	for _, tx := range txs {
		if _, err := w.ledger.UpsertTransaction(ctx, records.TransactionToRow(tx)); err != nil {
			w.logger.ErrorContext(ctx, "Failed to backfill transaction", "id", tx.ID, "error", err)
			stats.Errors++
			continue
		}
		stats.Transactions++
	}

	goals, err := store.ListGoals(ctx, owner)
	if err != nil {
		return stats, fmt.Errorf("list goals: %w", err)
	}
	for _, g := range goals {
		if _, err := w.ledger.UpsertGoal(ctx, records.GoalToRow(g)); err != nil {
			w.logger.ErrorContext(ctx, "Failed to backfill goal", "id", g.ID, "error", err)
			stats.Errors++
			continue
		}
		stats.Goals++
	}

	w.logger.InfoContext(ctx, "Backfill completed",
		"owner_id", owner,
		"transactions", stats.Transactions,
		"goals", stats.Goals,
		"errors", stats.Errors)
	return stats, nil
}
