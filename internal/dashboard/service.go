// Package dashboard implements the dashboard's read model and its action
// handlers.
//
// The service keeps, per owner, the last list the record store returned.
// Reads are always re-derived from that cache through the view models.
// A successful action merges the stored record into the cache; a failed one
// leaves the cache exactly as it was before the request.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/singleflight"

	"savvy/internal/amqp"
	"savvy/internal/cache"
	"savvy/internal/core"
	"savvy/internal/forms"
	"savvy/internal/records"
	"savvy/internal/reference"
	"savvy/internal/session"
	"savvy/internal/viewmodel"
)

// EventPublisher receives change events after successful mutations.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error
}

// Result is the outcome of an action, phrased for a toast notification.
type Result struct {
	OK      bool   `json:"ok"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ActionError wraps a record store failure with the action that hit it.
type ActionError struct {
	Op  string
	Err error
}

func (e *ActionError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *ActionError) Unwrap() error { return e.Err }

type Options struct {
	Reference    *reference.Data
	Sorter       viewmodel.Sorter
	Events       EventPublisher
	Logger       *slog.Logger
	CacheSize    int
	CacheTTL     time.Duration
	StoreTimeout time.Duration
	// Caches, when set, sweeps the service's caches in the background.
	Caches *cache.Manager
}

type Service struct {
	store    records.Store
	sessions session.Provider
	ref      *reference.Data
	sorter   viewmodel.Sorter
	events   EventPublisher
	logger   *slog.Logger
	timeout  time.Duration

	txs   *cache.LRUCache[[]core.Transaction]
	goals *cache.LRUCache[[]core.SavingsGoal]
	group singleflight.Group
}

func New(store records.Store, sessions session.Provider, opts Options) (*Service, error) {
	if opts.Reference == nil {
		ref, err := reference.Default()
		if err != nil {
			return nil, err
		}
		opts.Reference = ref
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 7 * time.Second
	}
	s := &Service{
		store:    store,
		sessions: sessions,
		ref:      opts.Reference,
		sorter:   opts.Sorter,
		events:   opts.Events,
		logger:   opts.Logger,
		timeout:  opts.StoreTimeout,
		txs:      cache.NewLRUCache[[]core.Transaction](opts.CacheSize, opts.CacheTTL),
		goals:    cache.NewLRUCache[[]core.SavingsGoal](opts.CacheSize, opts.CacheTTL),
	}
	if opts.Caches != nil {
		opts.Caches.Register("transactions", s.txs)
		opts.Caches.Register("goals", s.goals)
	}
	return s, nil
}

func (s *Service) owner(ctx context.Context) (string, error) {
	id, ok := s.sessions.Identity(ctx)
	if !ok {
		return "", session.ErrNoSession
	}
	return id.UserID, nil
}

// Refresh drops the caller's cached lists so the next read hits the store.
func (s *Service) Refresh(ctx context.Context) error {
	owner, err := s.owner(ctx)
	if err != nil {
		return err
	}
	s.txs.Delete(owner)
	s.goals.Delete(owner)
	return nil
}

// fetchContext detaches a shared fetch from the caller that started it, so
// one caller going away does not fail everyone waiting on the same fetch.
func (s *Service) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
}

func (s *Service) loadTransactions(ctx context.Context, owner string) ([]core.Transaction, error) {
	if txs, ok := s.txs.Get(owner); ok {
		return txs, nil
	}
	v, err, _ := s.group.Do("transactions:"+owner, func() (any, error) {
		ctx, cancel := s.fetchContext(ctx)
		defer cancel()
		txs, err := s.store.ListTransactions(ctx, owner)
		if err != nil {
			return nil, err
		}
		s.txs.Set(owner, txs)
		return txs, nil
	})
	if err != nil {
		return nil, &ActionError{Op: "fetch transactions", Err: err}
	}
	return v.([]core.Transaction), nil
}

func (s *Service) loadGoals(ctx context.Context, owner string) ([]core.SavingsGoal, error) {
	if goals, ok := s.goals.Get(owner); ok {
		return goals, nil
	}
	v, err, _ := s.group.Do("goals:"+owner, func() (any, error) {
		ctx, cancel := s.fetchContext(ctx)
		defer cancel()
		goals, err := s.store.ListGoals(ctx, owner)
		if err != nil {
			return nil, err
		}
		s.goals.Set(owner, goals)
		return goals, nil
	})
	if err != nil {
		return nil, &ActionError{Op: "fetch goals", Err: err}
	}
	return v.([]core.SavingsGoal), nil
}

// Transactions returns the caller's transactions in the requested order.
func (s *Service) Transactions(ctx context.Context, st viewmodel.SortState) (viewmodel.TransactionList, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return viewmodel.TransactionList{}, err
	}
	txs, err := s.loadTransactions(ctx, owner)
	if err != nil {
		return viewmodel.TransactionList{}, err
	}
	return s.sorter.Transactions(txs, st), nil
}

// Goals returns the caller's goals with progress, newest first.
func (s *Service) Goals(ctx context.Context) ([]viewmodel.GoalView, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	goals, err := s.loadGoals(ctx, owner)
	if err != nil {
		return nil, err
	}
	return viewmodel.Goals(goals), nil
}

func (s *Service) MonthlySpending(ctx context.Context) ([]viewmodel.SpendingBar, error) {
	if _, err := s.owner(ctx); err != nil {
		return nil, err
	}
	return viewmodel.MonthlySpendingChart(s.ref.MonthlySpending), nil
}

func (s *Service) Nudges(ctx context.Context) (viewmodel.NudgeFeed, error) {
	if _, err := s.owner(ctx); err != nil {
		return viewmodel.NudgeFeed{}, err
	}
	return viewmodel.Nudges(s.ref.Nudges), nil
}

// ProfileCard is the profile summary with the signed-in user's details.
type ProfileCard struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	viewmodel.ProfileView
}

func (s *Service) Profile(ctx context.Context) (ProfileCard, error) {
	id, ok := s.sessions.Identity(ctx)
	if !ok {
		return ProfileCard{}, session.ErrNoSession
	}
	card := ProfileCard{
		Name:        id.FullName,
		Email:       id.Email,
		ProfileView: viewmodel.ProfileSummary(s.ref.Profile),
	}
	if card.Name == "" {
		card.Name = s.ref.Name
	}
	if card.Email == "" {
		card.Email = s.ref.Email
	}
	return card, nil
}

var errInvalidForm = Result{OK: false, Title: "Invalid form", Message: "Please fix the highlighted fields"}

// CreateTransaction validates the form, stores it and merges the stored row
// into the cache.
func (s *Service) CreateTransaction(ctx context.Context, f forms.TransactionForm) (core.Transaction, Result, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return core.Transaction{}, Result{}, err
	}
	in, err := forms.ValidateTransaction(f)
	if err != nil {
		return core.Transaction{}, errInvalidForm, err
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	tx, err := s.store.InsertTransaction(sctx, owner, in)
	if err != nil {
		return core.Transaction{}, s.failed(ctx, "create transaction", "Error adding transaction", err), &ActionError{Op: "create transaction", Err: err}
	}

	s.txs.Update(owner, func(cur []core.Transaction, ok bool) ([]core.Transaction, bool) {
		if !ok {
			return nil, false
		}
		return append([]core.Transaction{tx}, cur...), true
	})

	ev := amqp.NewRecordEvent(amqp.KindTransaction, amqp.OpCreated, owner, tx.ID)
	row := records.TransactionToRow(tx)
	ev.Transaction = &row
	s.publish(ctx, ev)

	return tx, Result{OK: true, Title: "Transaction added", Message: "New transaction has been successfully added"}, nil
}

// DeleteTransaction removes exactly one transaction with one store call.
func (s *Service) DeleteTransaction(ctx context.Context, id string) (Result, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return Result{}, err
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.store.DeleteTransaction(sctx, owner, id); err != nil {
		return s.failed(ctx, "delete transaction", "Error deleting transaction", err), &ActionError{Op: "delete transaction", Err: err}
	}

	s.txs.Update(owner, func(cur []core.Transaction, ok bool) ([]core.Transaction, bool) {
		if !ok {
			return nil, false
		}
		return slices.DeleteFunc(slices.Clone(cur), func(t core.Transaction) bool { return t.ID == id }), true
	})
	s.publish(ctx, amqp.NewRecordEvent(amqp.KindTransaction, amqp.OpDeleted, owner, id))

	return Result{OK: true, Title: "Transaction deleted", Message: "Transaction has been successfully deleted"}, nil
}

func (s *Service) CreateGoal(ctx context.Context, f forms.GoalForm) (core.SavingsGoal, Result, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return core.SavingsGoal{}, Result{}, err
	}
	in, err := forms.ValidateGoal(f)
	if err != nil {
		return core.SavingsGoal{}, errInvalidForm, err
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	g, err := s.store.InsertGoal(sctx, owner, in)
	if err != nil {
		return core.SavingsGoal{}, s.failed(ctx, "create goal", "Error adding goal", err), &ActionError{Op: "create goal", Err: err}
	}

	s.goals.Update(owner, func(cur []core.SavingsGoal, ok bool) ([]core.SavingsGoal, bool) {
		if !ok {
			return nil, false
		}
		return append([]core.SavingsGoal{g}, cur...), true
	})
	s.publishGoal(ctx, amqp.OpCreated, owner, g)

	return g, Result{OK: true, Title: "Goal added", Message: "New savings goal has been successfully added"}, nil
}

// UpdateGoal replaces every editable field of the goal.
func (s *Service) UpdateGoal(ctx context.Context, id string, f forms.GoalForm) (core.SavingsGoal, Result, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return core.SavingsGoal{}, Result{}, err
	}
	in, err := forms.ValidateGoal(f)
	if err != nil {
		return core.SavingsGoal{}, errInvalidForm, err
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	g, err := s.store.UpdateGoal(sctx, owner, id, in)
	if err != nil {
		return core.SavingsGoal{}, s.failed(ctx, "update goal", "Error updating goal", err), &ActionError{Op: "update goal", Err: err}
	}

	s.goals.Update(owner, func(cur []core.SavingsGoal, ok bool) ([]core.SavingsGoal, bool) {
		if !ok {
			return nil, false
		}
		next := slices.Clone(cur)
		for i := range next {
			if next[i].ID == g.ID {
				next[i] = g
			}
		}
		return next, true
	})
	s.publishGoal(ctx, amqp.OpUpdated, owner, g)

	return g, Result{OK: true, Title: "Goal updated", Message: "Savings goal has been successfully updated"}, nil
}

func (s *Service) DeleteGoal(ctx context.Context, id string) (Result, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return Result{}, err
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.store.DeleteGoal(sctx, owner, id); err != nil {
		return s.failed(ctx, "delete goal", "Error deleting goal", err), &ActionError{Op: "delete goal", Err: err}
	}

	s.goals.Update(owner, func(cur []core.SavingsGoal, ok bool) ([]core.SavingsGoal, bool) {
		if !ok {
			return nil, false
		}
		return slices.DeleteFunc(slices.Clone(cur), func(g core.SavingsGoal) bool { return g.ID == id }), true
	})
	s.publish(ctx, amqp.NewRecordEvent(amqp.KindGoal, amqp.OpDeleted, owner, id))

	return Result{OK: true, Title: "Goal deleted", Message: "Savings goal has been successfully deleted"}, nil
}

// GoalForm returns the edit form pre-filled from the cached goal.
func (s *Service) GoalForm(ctx context.Context, id string) (forms.GoalForm, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return forms.GoalForm{}, err
	}
	goals, err := s.loadGoals(ctx, owner)
	if err != nil {
		return forms.GoalForm{}, err
	}
	for _, g := range goals {
		if g.ID == id {
			return forms.GoalFormFrom(g), nil
		}
	}
	return forms.GoalForm{}, &ActionError{Op: "edit goal", Err: records.ErrNotFound}
}

func (s *Service) publishGoal(ctx context.Context, op amqp.RecordOp, owner string, g core.SavingsGoal) {
	ev := amqp.NewRecordEvent(amqp.KindGoal, op, owner, g.ID)
	row := records.GoalToRow(g)
	ev.Goal = &row
	s.publish(ctx, ev)
}

// publish is best effort: a broker failure is logged and never fails the
// action that already succeeded at the store.
func (s *Service) publish(ctx context.Context, ev *amqp.RecordEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishRecordEvent(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.WarnContext(ctx, "record event not published",
			"kind", ev.Kind, "op", ev.Op, "id", ev.ID, "error", err)
	}
}

type publicError interface {
	PublicMessage() string
}

func (s *Service) failed(ctx context.Context, op, title string, err error) Result {
	s.logger.ErrorContext(ctx, "record store action failed", "operation", op, "error", err)
	return Result{OK: false, Title: title, Message: UserMessage(err)}
}

// UserMessage phrases a record store failure for the person at the screen.
func UserMessage(err error) string {
	var pe publicError
	switch {
	case errors.As(err, &pe) && pe.PublicMessage() != "":
		return pe.PublicMessage()
	case errors.Is(err, records.ErrNotFound):
		return "The record no longer exists"
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out, please try again"
	default:
		return "Something went wrong, please try again"
	}
}
