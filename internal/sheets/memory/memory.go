// Package memory is an in-process ledger with the same row semantics as
// the spreadsheet. The worker uses it when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"savvy/internal/records"
	ports "savvy/internal/sheets"
)

var _ ports.Ledger = (*Ledger)(nil)

const (
	TabTransactions = "transactions"
	TabGoals        = "goals"
)

type Ledger struct {
	mu   sync.Mutex
	tabs map[string][][]any
}

func New() *Ledger {
	return &Ledger{tabs: map[string][][]any{}}
}

func (l *Ledger) EnsureHeaders(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureHeader(TabTransactions, ports.TransactionHeader)
	l.ensureHeader(TabGoals, ports.GoalHeader)
	return nil
}

func (l *Ledger) ensureHeader(tab string, header []string) {
	rows := l.tabs[tab]
	switch {
	case ports.HasHeader(rows, header):
	case len(rows) > 0 && len(rows[0]) == 0:
		rows[0] = ports.HeaderValues(header)
	default:
		l.tabs[tab] = append([][]any{ports.HeaderValues(header)}, rows...)
	}
}

func (l *Ledger) UpsertTransaction(_ context.Context, row records.TransactionRow) (string, error) {
	return l.upsert(TabTransactions, row.ID, ports.TransactionValues(row))
}

func (l *Ledger) DeleteTransaction(_ context.Context, id string) error {
	return l.delete(TabTransactions, id)
}

func (l *Ledger) UpsertGoal(_ context.Context, row records.GoalRow) (string, error) {
	return l.upsert(TabGoals, row.ID, ports.GoalValues(row))
}

func (l *Ledger) DeleteGoal(_ context.Context, id string) error {
	return l.delete(TabGoals, id)
}

// Rows returns a copy of a tab, header included.
func (l *Ledger) Rows(tab string) [][]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]any, len(l.tabs[tab]))
	for i, r := range l.tabs[tab] {
		out[i] = append([]any(nil), r...)
	}
	return out
}

func (l *Ledger) upsert(tab, id string, values []any) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%s row without ID", tab)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := ports.FindRow(l.tabs[tab], id); n > 0 {
		l.tabs[tab][n-1] = values
		return fmt.Sprintf("mem:%s:%d", tab, n), nil
	}
	if len(l.tabs[tab]) == 0 {
		// row 1 is reserved for the header
		l.tabs[tab] = [][]any{nil}
	}
	l.tabs[tab] = append(l.tabs[tab], values)
	return fmt.Sprintf("mem:%s:%d", tab, len(l.tabs[tab])), nil
}

func (l *Ledger) delete(tab, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := ports.FindRow(l.tabs[tab], id)
	if n == 0 {
		return ports.ErrRowNotFound
	}
	rows := l.tabs[tab]
	l.tabs[tab] = append(rows[:n-1], rows[n:]...)
	return nil
}
