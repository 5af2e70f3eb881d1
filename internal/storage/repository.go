package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"savvy/internal/core"
	"savvy/internal/records"

	_ "modernc.org/sqlite"
)

// createdAtLayout sorts lexically in time order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, description, amount, category, type, date, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY date DESC, created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []records.TransactionRow
	for rows.Next() {
		var row records.TransactionRow
		var created string
		if err := rows.Scan(&row.ID, &row.UserID, &row.Description, &row.Amount, &row.Category, &row.Type, &row.Date, &created); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if row.CreatedAt, err = parseCreatedAt(created); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return records.TransactionsFromRows(out)
}

// InsertTransaction implements records.TransactionStore
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, owner string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	row := records.TransactionInputToRow(in)
	row.ID = uuid.NewString()
	row.UserID = owner
	created := r.now().UTC()
	row.CreatedAt = &created

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, description, amount, category, type, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.UserID, row.Description, row.Amount.String(), row.Category, row.Type, row.Date, created.Format(createdAtLayout))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"user_id", owner,
		"amount", row.Amount.String(),
		"date", row.Date)

	return records.TransactionFromRow(row)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return affectedOne(res, "delete transaction", id)
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, owner string) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, iconname, targetamount, currentamount, deadline, created_at
		FROM savings_goals
		WHERE user_id = ?
		ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []records.GoalRow
	for rows.Next() {
		row, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return records.GoalsFromRows(out)
}

func (r *SQLiteRepository) InsertGoal(ctx context.Context, owner string, in core.GoalInput) (core.SavingsGoal, error) {
	if err := in.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	row := records.GoalInputToRow(in)
	row.ID = uuid.NewString()
	row.UserID = owner
	created := r.now().UTC()
	row.CreatedAt = &created

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO savings_goals (id, user_id, name, iconname, targetamount, currentamount, deadline, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.UserID, row.Name, row.IconName, row.TargetAmount.String(), row.CurrentAmount.String(), row.Deadline, created.Format(createdAtLayout))
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("insert goal: %w", err)
	}

	slog.InfoContext(ctx, "Goal saved to SQLite", "id", row.ID, "user_id", owner, "name", row.Name)
	return records.GoalFromRow(row)
}

// UpdateGoal replaces every mutable column and returns the stored row.
func (r *SQLiteRepository) UpdateGoal(ctx context.Context, owner, id string, in core.GoalInput) (core.SavingsGoal, error) {
	if err := in.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	row := records.GoalInputToRow(in)
	res, err := r.db.ExecContext(ctx, `
		UPDATE savings_goals
		SET name = ?, iconname = ?, targetamount = ?, currentamount = ?, deadline = ?
		WHERE id = ? AND user_id = ?`,
		row.Name, row.IconName, row.TargetAmount.String(), row.CurrentAmount.String(), row.Deadline, id, owner)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("update goal: %w", err)
	}
	if err := affectedOne(res, "update goal", id); err != nil {
		return core.SavingsGoal{}, err
	}

	stored, err := scanGoal(r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, iconname, targetamount, currentamount, deadline, created_at
		FROM savings_goals WHERE id = ? AND user_id = ?`, id, owner))
	if err != nil {
		return core.SavingsGoal{}, err
	}
	return records.GoalFromRow(stored)
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM savings_goals WHERE id = ? AND user_id = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return affectedOne(res, "delete goal", id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGoal(s scanner) (records.GoalRow, error) {
	var row records.GoalRow
	var created string
	err := s.Scan(&row.ID, &row.UserID, &row.Name, &row.IconName, &row.TargetAmount, &row.CurrentAmount, &row.Deadline, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return row, records.ErrNotFound
	}
	if err != nil {
		return row, fmt.Errorf("scan goal: %w", err)
	}
	row.CreatedAt, err = parseCreatedAt(created)
	return row, err
}

func parseCreatedAt(s string) (*time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return &t, nil
}

func affectedOne(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, records.ErrNotFound)
	}
	return nil
}

var _ records.Store = (*SQLiteRepository)(nil)
