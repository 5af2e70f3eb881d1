package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"savvy/internal/core"
	"savvy/internal/records"
)

// Store is an in-process record store keyed by owner. It is used for local
// development, demos and tests.
type Store struct {
	mu    sync.Mutex
	txs   map[string][]core.Transaction
	goals map[string][]core.SavingsGoal
	now   func() time.Time
}

func New() *Store {
	return &Store{
		txs:   map[string][]core.Transaction{},
		goals: map[string][]core.SavingsGoal{},
		now:   time.Now,
	}
}

// WithClock replaces the creation-time source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Seed assigns the rows to owner, keeping their IDs and timestamps.
func (s *Store) Seed(owner string, txs []core.Transaction, goals []core.SavingsGoal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range txs {
		t.OwnerID = owner
		s.txs[owner] = append(s.txs[owner], t)
	}
	for _, g := range goals {
		g.OwnerID = owner
		s.goals[owner] = append(s.goals[owner], g)
	}
}

func (s *Store) ListTransactions(_ context.Context, owner string) ([]core.Transaction, error) {
	s.mu.Lock()
	out := slices.Clone(s.txs[owner])
	s.mu.Unlock()
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *Store) InsertTransaction(_ context.Context, owner string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		Description: in.Description,
		Amount:      in.Amount,
		Category:    in.Category,
		Type:        in.Type,
		Date:        in.Date,
		CreatedAt:   s.now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[owner] = append(s.txs[owner], t)
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.txs[owner]
	i := slices.IndexFunc(list, func(t core.Transaction) bool { return t.ID == id })
	if i < 0 {
		return records.ErrNotFound
	}
	s.txs[owner] = slices.Delete(list, i, i+1)
	return nil
}

func (s *Store) ListGoals(_ context.Context, owner string) ([]core.SavingsGoal, error) {
	s.mu.Lock()
	out := slices.Clone(s.goals[owner])
	s.mu.Unlock()
	slices.SortStableFunc(out, func(a, b core.SavingsGoal) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	return out, nil
}

func (s *Store) InsertGoal(_ context.Context, owner string, in core.GoalInput) (core.SavingsGoal, error) {
	if err := in.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	g := core.SavingsGoal{
		ID:            uuid.NewString(),
		OwnerID:       owner,
		Name:          in.Name,
		IconName:      in.IconName,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: in.CurrentAmount,
		Deadline:      in.Deadline,
		CreatedAt:     s.now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[owner] = append(s.goals[owner], g)
	return g, nil
}

func (s *Store) UpdateGoal(_ context.Context, owner, id string, in core.GoalInput) (core.SavingsGoal, error) {
	if err := in.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.goals[owner]
	i := slices.IndexFunc(list, func(g core.SavingsGoal) bool { return g.ID == id })
	if i < 0 {
		return core.SavingsGoal{}, records.ErrNotFound
	}
	g := list[i]
	g.Name = in.Name
	g.IconName = in.IconName
	g.TargetAmount = in.TargetAmount
	g.CurrentAmount = in.CurrentAmount
	g.Deadline = in.Deadline
	list[i] = g
	return g, nil
}

func (s *Store) DeleteGoal(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.goals[owner]
	i := slices.IndexFunc(list, func(g core.SavingsGoal) bool { return g.ID == id })
	if i < 0 {
		return records.ErrNotFound
	}
	s.goals[owner] = slices.Delete(list, i, i+1)
	return nil
}

var _ records.Store = (*Store)(nil)
