// Package records defines the record store ports and the row adapters that
// translate between stored rows and domain types.
//
// Stored goal columns use flattened lowercase names (iconname, targetamount,
// currentamount). The adapters below are the only place that naming
// convention is known; they are pure and lossless in both directions.
package records

import (
	"time"

	"github.com/shopspring/decimal"

	"savvy/internal/core"
)

// GoalRow is a savings_goals row as stored and as sent over the wire.
type GoalRow struct {
	ID            string          `json:"id,omitempty"`
	UserID        string          `json:"user_id,omitempty"`
	Name          string          `json:"name"`
	IconName      string          `json:"iconname"`
	TargetAmount  decimal.Decimal `json:"targetamount"`
	CurrentAmount decimal.Decimal `json:"currentamount"`
	Deadline      string          `json:"deadline"`
	CreatedAt     *time.Time      `json:"created_at,omitempty"`
}

// TransactionRow is a transactions row as stored and as sent over the wire.
type TransactionRow struct {
	ID          string          `json:"id,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Type        string          `json:"type"`
	Date        string          `json:"date"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
}

func GoalFromRow(r GoalRow) (core.SavingsGoal, error) {
	deadline, err := core.ParseDate(r.Deadline)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	return core.SavingsGoal{
		ID:            r.ID,
		OwnerID:       r.UserID,
		Name:          r.Name,
		IconName:      core.GoalIcon(r.IconName),
		TargetAmount:  core.NewMoney(r.TargetAmount),
		CurrentAmount: core.NewMoney(r.CurrentAmount),
		Deadline:      deadline,
		CreatedAt:     derefTime(r.CreatedAt),
	}, nil
}

func GoalToRow(g core.SavingsGoal) GoalRow {
	row := GoalInputToRow(g.Input())
	row.ID = g.ID
	row.UserID = g.OwnerID
	row.CreatedAt = timePtr(g.CreatedAt)
	return row
}

// GoalInputToRow builds the insert/update body. ID, owner and creation time
// are left for the store to assign.
func GoalInputToRow(in core.GoalInput) GoalRow {
	return GoalRow{
		Name:          in.Name,
		IconName:      string(in.IconName),
		TargetAmount:  in.TargetAmount.Decimal,
		CurrentAmount: in.CurrentAmount.Decimal,
		Deadline:      in.Deadline.String(),
	}
}

func TransactionFromRow(r TransactionRow) (core.Transaction, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          r.ID,
		OwnerID:     r.UserID,
		Description: r.Description,
		Amount:      core.NewMoney(r.Amount),
		Category:    r.Category,
		Type:        core.TransactionType(r.Type),
		Date:        date,
		CreatedAt:   derefTime(r.CreatedAt),
	}, nil
}

func TransactionToRow(t core.Transaction) TransactionRow {
	row := TransactionInputToRow(core.TransactionInput{
		Description: t.Description,
		Amount:      t.Amount,
		Category:    t.Category,
		Type:        t.Type,
		Date:        t.Date,
	})
	row.ID = t.ID
	row.UserID = t.OwnerID
	row.CreatedAt = timePtr(t.CreatedAt)
	return row
}

func TransactionInputToRow(in core.TransactionInput) TransactionRow {
	return TransactionRow{
		Description: in.Description,
		Amount:      in.Amount.Decimal,
		Category:    in.Category,
		Type:        string(in.Type),
		Date:        in.Date.String(),
	}
}

// GoalsFromRows converts a list, failing on the first malformed row.
func GoalsFromRows(rows []GoalRow) ([]core.SavingsGoal, error) {
	out := make([]core.SavingsGoal, 0, len(rows))
	for _, r := range rows {
		g, err := GoalFromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func TransactionsFromRows(rows []TransactionRow) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		t, err := TransactionFromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
