package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savvy/internal/records"
	ports "savvy/internal/sheets"
)

func TestLedgerUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	l := New()

	ref, err := l.UpsertTransaction(ctx, records.TransactionRow{ID: "tx1", Description: "Rent", Amount: decimal.NewFromInt(2500)})
	require.NoError(t, err)
	assert.Equal(t, "mem:transactions:2", ref)

	require.NoError(t, l.EnsureHeaders(ctx))
	rows := l.Rows(TabTransactions)
	require.Len(t, rows, 2)
	assert.True(t, ports.HasHeader(rows, ports.TransactionHeader))

	_, err = l.UpsertTransaction(ctx, records.TransactionRow{ID: "tx1", Description: "Monthly Rent", Amount: decimal.NewFromInt(2500)})
	require.NoError(t, err)
	rows = l.Rows(TabTransactions)
	require.Len(t, rows, 2)
	assert.Equal(t, "Monthly Rent", rows[1][2])

	require.NoError(t, l.DeleteTransaction(ctx, "tx1"))
	assert.Len(t, l.Rows(TabTransactions), 1)
	assert.True(t, errors.Is(l.DeleteTransaction(ctx, "tx1"), ports.ErrRowNotFound))
}

func TestLedgerGoalsAndValidation(t *testing.T) {
	ctx := context.Background()
	l := New()
	require.NoError(t, l.EnsureHeaders(ctx))
	require.NoError(t, l.EnsureHeaders(ctx))

	_, err := l.UpsertGoal(ctx, records.GoalRow{ID: "goal1", Name: "Vacation", TargetAmount: decimal.NewFromInt(30000)})
	require.NoError(t, err)
	goals := l.Rows(TabGoals)
	require.Len(t, goals, 2)
	assert.Equal(t, "30000", goals[1][3])

	_, err = l.UpsertGoal(ctx, records.GoalRow{Name: "No ID"})
	assert.Error(t, err)
	assert.Len(t, l.Rows(TabTransactions), 1)
}
