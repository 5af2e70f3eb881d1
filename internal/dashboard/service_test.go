package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savvy/internal/amqp"
	"savvy/internal/core"
	"savvy/internal/forms"
	"savvy/internal/records"
	"savvy/internal/records/memory"
	"savvy/internal/session"
	"savvy/internal/viewmodel"
)

// countingStore wraps the memory store, counts calls and can fail on demand.
type countingStore struct {
	*memory.Store
	mu      sync.Mutex
	calls   map[string]int
	failErr error
	gate    chan struct{}
}

func newCountingStore() *countingStore {
	return &countingStore{Store: memory.New(), calls: map[string]int{}}
}

func (c *countingStore) hit(op string) error {
	c.mu.Lock()
	c.calls[op]++
	err := c.failErr
	gate := c.gate
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (c *countingStore) count(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

func (c *countingStore) fail(err error) {
	c.mu.Lock()
	c.failErr = err
	c.mu.Unlock()
}

func (c *countingStore) ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error) {
	if err := c.hit("list_transactions"); err != nil {
		return nil, err
	}
	return c.Store.ListTransactions(ctx, owner)
}

func (c *countingStore) InsertTransaction(ctx context.Context, owner string, in core.TransactionInput) (core.Transaction, error) {
	if err := c.hit("insert_transaction"); err != nil {
		return core.Transaction{}, err
	}
	return c.Store.InsertTransaction(ctx, owner, in)
}

func (c *countingStore) DeleteTransaction(ctx context.Context, owner, id string) error {
	if err := c.hit("delete_transaction"); err != nil {
		return err
	}
	return c.Store.DeleteTransaction(ctx, owner, id)
}

func (c *countingStore) ListGoals(ctx context.Context, owner string) ([]core.SavingsGoal, error) {
	if err := c.hit("list_goals"); err != nil {
		return nil, err
	}
	return c.Store.ListGoals(ctx, owner)
}

func (c *countingStore) UpdateGoal(ctx context.Context, owner, id string, in core.GoalInput) (core.SavingsGoal, error) {
	if err := c.hit("update_goal"); err != nil {
		return core.SavingsGoal{}, err
	}
	return c.Store.UpdateGoal(ctx, owner, id, in)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.RecordEvent
	err    error
}

func (r *recordingPublisher) PublishRecordEvent(_ context.Context, ev *amqp.RecordEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

var signedIn = session.Static{ID: session.Identity{UserID: "user-1", Email: "alex@example.com"}}

func newService(t *testing.T, store records.Store, sessions session.Provider, events EventPublisher) *Service {
	t.Helper()
	sorter, err := viewmodel.NewSorter("en")
	require.NoError(t, err)
	svc, err := New(store, sessions, Options{
		Sorter: sorter,
		Events: events,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return svc
}

func seed(store *countingStore) {
	store.Seed("user-1", []core.Transaction{
		{ID: "tx1", Description: "Dinner", Amount: core.MoneyFromInt(600), Category: "Dining", Type: core.Want, Date: core.NewDate(2023, 4, 1), CreatedAt: time.Unix(1, 0)},
		{ID: "tx2", Description: "Grocery Shopping", Amount: core.MoneyFromInt(1200), Category: "Groceries", Type: core.Need, Date: core.NewDate(2023, 4, 2), CreatedAt: time.Unix(2, 0)},
		{ID: "tx3", Description: "Movie Night", Amount: core.MoneyFromInt(800), Category: "Entertainment", Type: core.Want, Date: core.NewDate(2023, 3, 30), CreatedAt: time.Unix(3, 0)},
	}, []core.SavingsGoal{
		{ID: "goal1", Name: "Emergency Fund", IconName: core.IconPiggyBank, TargetAmount: core.MoneyFromInt(50000), CurrentAmount: core.MoneyFromInt(20000), Deadline: core.NewDate(2023, 12, 31), CreatedAt: time.Unix(1, 0)},
	})
}

func listIDs(l viewmodel.TransactionList) []string {
	out := make([]string, 0, len(l.Items))
	for _, it := range l.Items {
		out = append(out, it.ID)
	}
	return out
}

func TestDeleteTransactionRemovesExactlyOne(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	seed(store)
	events := &recordingPublisher{}
	svc := newService(t, store, signedIn, events)

	before, err := svc.Transactions(ctx, viewmodel.DefaultSortState)
	require.NoError(t, err)
	assert.Equal(t, []string{"tx2", "tx1", "tx3"}, listIDs(before))

	res, err := svc.DeleteTransaction(ctx, "tx1")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 1, store.count("delete_transaction"))

	after, err := svc.Transactions(ctx, viewmodel.DefaultSortState)
	require.NoError(t, err)
	assert.Equal(t, []string{"tx2", "tx3"}, listIDs(after))
	assert.Equal(t, 1, store.count("list_transactions"), "read after delete is served from the cache")

	require.Len(t, events.events, 1)
	assert.Equal(t, amqp.OpDeleted, events.events[0].Op)
	assert.Equal(t, "tx1", events.events[0].ID)
}

func TestInvalidFormNeverReachesStore(t *testing.T) {
	store := newCountingStore()
	svc := newService(t, store, signedIn, nil)

	_, res, err := svc.CreateTransaction(context.Background(), forms.TransactionForm{
		Description: "ab", Amount: "10", Category: "Dining", Type: "want", Date: "2023-04-01",
	})
	var fe forms.FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe, "description")
	assert.False(t, res.OK)
	assert.Equal(t, 0, store.count("insert_transaction"))
}

func TestNoSessionMakesNoStoreCall(t *testing.T) {
	store := newCountingStore()
	svc := newService(t, store, session.Static{}, nil)
	ctx := context.Background()

	_, err := svc.Transactions(ctx, viewmodel.DefaultSortState)
	assert.ErrorIs(t, err, session.ErrNoSession)
	_, err = svc.DeleteTransaction(ctx, "tx1")
	assert.ErrorIs(t, err, session.ErrNoSession)
	_, err = svc.Goals(ctx)
	assert.ErrorIs(t, err, session.ErrNoSession)
	_, err = svc.Profile(ctx)
	assert.ErrorIs(t, err, session.ErrNoSession)
	_, err = svc.Nudges(ctx)
	assert.ErrorIs(t, err, session.ErrNoSession)

	assert.Zero(t, store.count("list_transactions"))
	assert.Zero(t, store.count("delete_transaction"))
	assert.Zero(t, store.count("list_goals"))
}

func TestStoreFailureLeavesCacheUntouched(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	seed(store)
	events := &recordingPublisher{}
	svc := newService(t, store, signedIn, events)

	before, err := svc.Transactions(ctx, viewmodel.DefaultSortState)
	require.NoError(t, err)

	store.fail(errors.New("network unreachable"))
	res, err := svc.DeleteTransaction(ctx, "tx1")
	var ae *ActionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "delete transaction", ae.Op)
	assert.False(t, res.OK)
	assert.Equal(t, "Error deleting transaction", res.Title)

	_, res, err = svc.CreateTransaction(ctx, forms.TransactionForm{
		Description: "Coffee", Amount: "3.50", Category: "Dining", Type: "want", Date: "2023-04-04",
	})
	require.Error(t, err)
	assert.False(t, res.OK)

	store.fail(nil)
	after, err := svc.Transactions(ctx, viewmodel.DefaultSortState)
	require.NoError(t, err)
	assert.Equal(t, listIDs(before), listIDs(after))
	assert.Empty(t, events.events, "failed actions publish nothing")
}

func TestCreateMergesStoredRecord(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	seed(store)
	svc := newService(t, store, signedIn, nil)

	_, err := svc.Transactions(ctx, viewmodel.DefaultSortState)
	require.NoError(t, err)

	tx, res, err := svc.CreateTransaction(ctx, forms.TransactionForm{
		Description: "Electricity Bill", Amount: "1500", Category: "Utilities", Type: "need", Date: "2023-04-05",
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.NotEmpty(t, tx.ID)

	list, err := svc.Transactions(ctx, viewmodel.SortState{Field: viewmodel.SortByAmount, Direction: viewmodel.Asc})
	require.NoError(t, err)
	assert.Equal(t, []string{"tx1", "tx3", "tx2", tx.ID}, listIDs(list))
	assert.Equal(t, 1, store.count("list_transactions"))
}

func TestGoalActions(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	seed(store)
	events := &recordingPublisher{err: errors.New("broker down")}
	svc := newService(t, store, signedIn, events)

	goals, err := svc.Goals(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.EqualValues(t, 40, goals[0].Percent)

	created, res, err := svc.CreateGoal(ctx, forms.GoalForm{
		Name: "Vacation", IconName: "calendar", TargetAmount: "30000", CurrentAmount: "5000", Deadline: "2023-08-15",
	})
	require.NoError(t, err, "publish failures must not fail the action")
	assert.True(t, res.OK)

	f, err := svc.GoalForm(ctx, "goal1")
	require.NoError(t, err)
	f.CurrentAmount = "60000"
	updated, res, err := svc.UpdateGoal(ctx, "goal1", f)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "goal1", updated.ID)

	goals, err = svc.Goals(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, created.ID, goals[0].ID)
	assert.EqualValues(t, 120, goals[1].Percent)

	_, err = svc.DeleteGoal(ctx, created.ID)
	require.NoError(t, err)
	goals, _ = svc.Goals(ctx)
	assert.Len(t, goals, 1)
	assert.Equal(t, 1, store.count("list_goals"))

	require.Len(t, events.events, 3)
	assert.NotNil(t, events.events[0].Goal)
	assert.Equal(t, amqp.OpUpdated, events.events[1].Op)

	_, _, err = svc.UpdateGoal(ctx, "missing", f)
	assert.ErrorIs(t, err, records.ErrNotFound)
	_, err = svc.GoalForm(ctx, "missing")
	assert.ErrorIs(t, err, records.ErrNotFound)
}

func TestConcurrentReadsCollapse(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	seed(store)
	store.gate = make(chan struct{})
	svc := newService(t, store, signedIn, nil)

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Transactions(ctx, viewmodel.DefaultSortState); err != nil {
				failures.Add(1)
			}
		}()
	}
	// let the readers pile up behind the first fetch
	time.Sleep(50 * time.Millisecond)
	close(store.gate)
	wg.Wait()

	assert.Zero(t, failures.Load())
	assert.LessOrEqual(t, store.count("list_transactions"), 2)
}

// slowGoalStore holds ListGoals until released, failing early if its
// context ends first.
type slowGoalStore struct {
	*memory.Store
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (s *slowGoalStore) ListGoals(ctx context.Context, owner string) ([]core.SavingsGoal, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.Store.ListGoals(ctx, owner)
}

func TestSharedFetchOutlivesCancelledCaller(t *testing.T) {
	store := &slowGoalStore{Store: memory.New(), started: make(chan struct{}), release: make(chan struct{})}
	store.Seed("user-1", nil, []core.SavingsGoal{
		{ID: "goal1", Name: "Emergency Fund", IconName: core.IconPiggyBank, TargetAmount: core.MoneyFromInt(50000), CurrentAmount: core.MoneyFromInt(20000), Deadline: core.NewDate(2023, 12, 31)},
	})
	svc := newService(t, store, signedIn, nil)

	first, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 2)
	go func() {
		_, err := svc.Goals(first)
		errs <- err
	}()
	<-store.started

	views := make(chan []viewmodel.GoalView, 1)
	go func() {
		v, err := svc.Goals(context.Background())
		views <- v
		errs <- err
	}()
	// let the second reader join the fetch in flight
	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(store.release)

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.Len(t, <-views, 1)
}

func TestRefreshRefetches(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	seed(store)
	svc := newService(t, store, signedIn, nil)

	_, _ = svc.Transactions(ctx, viewmodel.DefaultSortState)
	require.NoError(t, svc.Refresh(ctx))
	_, _ = svc.Transactions(ctx, viewmodel.DefaultSortState)
	assert.Equal(t, 2, store.count("list_transactions"))
}

func TestReferenceReads(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, newCountingStore(), signedIn, nil)

	bars, err := svc.MonthlySpending(ctx)
	require.NoError(t, err)
	assert.Len(t, bars, 4)

	feed, err := svc.Nudges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, feed.Unread)

	card, err := svc.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alex@example.com", card.Email)
	assert.Equal(t, "Alex Kumar", card.Name, "falls back to reference name")
	assert.EqualValues(t, 86, card.SavingsPercent)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "The record no longer exists", UserMessage(records.ErrNotFound))
	assert.Equal(t, "The request timed out, please try again", UserMessage(context.DeadlineExceeded))
	assert.Equal(t, "Something went wrong, please try again", UserMessage(errors.New("boom")))
}
