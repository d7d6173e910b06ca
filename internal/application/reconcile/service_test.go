package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/amazon-ynab-sync/internal/adapters/providers"
	"github.com/eshaffer321/amazon-ynab-sync/internal/adapters/ynab"
	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matchstate"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/logging"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/storage"
)

var testNow = time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)

type fakeOrders struct {
	orders []matcher.AmazonOrder
	err    error
	window providers.FetchOptions
}

func (f *fakeOrders) Name() string { return "fake" }

func (f *fakeOrders) FetchOrders(ctx context.Context, opts providers.FetchOptions) ([]matcher.AmazonOrder, error) {
	f.window = opts
	return f.orders, f.err
}

type fakeTransactions struct {
	txns  []matcher.YnabTransaction
	err   error
	since time.Time
}

func (f *fakeTransactions) FetchTransactions(ctx context.Context, since time.Time) ([]matcher.YnabTransaction, error) {
	f.since = since
	return f.txns, f.err
}

type fakeLock struct {
	lockErr  error
	locked   int
	waited   time.Duration
	unlocked int

	mu      sync.Mutex
	extends int
}

func (f *fakeLock) Lock(ctx context.Context, ttl time.Duration) error {
	if f.lockErr != nil {
		return f.lockErr
	}
	f.locked++
	return nil
}

func (f *fakeLock) WaitLock(ctx context.Context, ttl, wait time.Duration) error {
	f.waited = wait
	return f.Lock(ctx, ttl)
}

func (f *fakeLock) Extend(ctx context.Context, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extends++
	return nil
}

func (f *fakeLock) extendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.extends
}

func (f *fakeLock) Unlock(ctx context.Context) error {
	f.unlocked++
	return nil
}

type fakeMemos struct {
	calls  int
	dryRun bool
}

func (f *fakeMemos) Apply(ctx context.Context, runID string, dryRun bool, matches []matcher.MatchRecord, batches []matcher.BatchMatchRecord) (*ynab.MemoReport, error) {
	f.calls++
	f.dryRun = dryRun
	return &ynab.MemoReport{DryRun: dryRun, Written: len(matches) + len(batches)}, nil
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func order(id string, d int, total string) matcher.AmazonOrder {
	return matcher.AmazonOrder{
		OrderID:       id,
		Date:          day(d),
		Total:         decimal.RequireFromString(total),
		PaymentMethod: "Chase Sapphire",
		Items:         []matcher.OrderItem{{Name: "Item " + id, Quantity: 1}},
	}
}

func txn(id string, d int, milliunits int64) matcher.YnabTransaction {
	return matcher.YnabTransaction{
		ID:          id,
		Date:        day(d),
		Amount:      milliunits,
		PayeeName:   "Amazon.com",
		AccountName: "Chase Sapphire",
	}
}

type fixture struct {
	orders *fakeOrders
	txns   *fakeTransactions
	repo   *storage.MockRepository
	lock   *fakeLock
	memos  *fakeMemos
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orders: &fakeOrders{orders: []matcher.AmazonOrder{
			order("A1", 15, "25.98"),
			order("A2", 16, "10.00"),
			order("A3", 16, "5.00"),
		}},
		txns: &fakeTransactions{txns: []matcher.YnabTransaction{
			txn("Y1", 15, -25980),
			txn("Y2", 17, -15000),
			txn("Y9", 18, -99990),
		}},
		repo:  storage.NewMockRepository(),
		lock:  &fakeLock{},
		memos: &fakeMemos{},
	}

	svc, err := NewService(Dependencies{
		Orders:        f.orders,
		Transactions:  f.txns,
		State:         f.repo,
		LedgerOptions: []matchstate.Option{matchstate.WithClock(func() time.Time { return testNow })},
		MatchConfig:   matcher.DefaultConfig(),
		Runs:          f.repo,
		Memos:         f.memos,
		Lock:          f.lock,
		Logger:        logging.Discard(),
		Now:           func() time.Time { return testNow },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewService_RequiresSources(t *testing.T) {
	_, err := NewService(Dependencies{MatchConfig: matcher.DefaultConfig()})
	assert.Error(t, err)

	_, err = NewService(Dependencies{
		Orders:       &fakeOrders{},
		Transactions: &fakeTransactions{},
		State:        storage.NewMockRepository(),
		MatchConfig:  matcher.Config{},
	})
	assert.True(t, errors.Is(err, matcher.ErrInvalidConfig))
}

func TestService_Run(t *testing.T) {
	// Arrange
	f := newFixture(t)
	ctx := context.Background()

	// Act
	result, err := f.svc.Run(ctx, Options{IncludeBatches: true, LookbackDays: 10})

	// Assert: one 1:1 match and one consolidated charge
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, result.Orders)
	assert.Equal(t, 3, result.Transactions)

	require.Len(t, result.Matches, 1)
	assert.Equal(t, "A1", result.Matches[0].AmazonOrderID)
	assert.Equal(t, "Y1", result.Matches[0].YnabTransactionID)

	require.Len(t, result.BatchMatches, 1)
	batch := result.BatchMatches[0]
	assert.Equal(t, matcher.ConsolidatedCharge, batch.Type)
	assert.Len(t, batch.AmazonOrders, 2)
	assert.Equal(t, "Y2", batch.YnabTransactions[0].ID)

	assert.Empty(t, result.UnmatchedAmazon)
	require.Len(t, result.UnmatchedYnab, 1)
	assert.Equal(t, "Y9", result.UnmatchedYnab[0].ID)
	assert.Equal(t, 1, result.Stats.TotalMatches)

	// Window: lookback from now, transactions fetched with the date tolerance buffer
	assert.Equal(t, day(10), f.orders.window.StartDate)
	assert.Equal(t, day(8), f.txns.since)

	// Side effects
	assert.Equal(t, 1, f.lock.locked)
	assert.Equal(t, 1, f.lock.unlocked)
	assert.Equal(t, 1, f.memos.calls)
	assert.False(t, f.memos.dryRun)
	assert.Equal(t, 1, f.repo.SaveCalled)
	assert.Len(t, f.repo.LastSavedState.MatchedPairs, 3)

	run, err := f.repo.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, storage.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Matches)
	assert.Equal(t, 1, run.BatchMatches)
	assert.Equal(t, 1, run.UnmatchedYnab)
}

func TestService_RunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Run(ctx, Options{IncludeBatches: true})
	require.NoError(t, err)

	second, err := f.svc.Run(ctx, Options{IncludeBatches: true})

	require.NoError(t, err)
	assert.Empty(t, second.Matches)
	assert.Empty(t, second.BatchMatches)
	assert.ElementsMatch(t, []string{"A1", "A2", "A3"}, second.PreviouslyMatched)
	require.Len(t, second.UnmatchedYnab, 1)
	assert.Equal(t, "Y9", second.UnmatchedYnab[0].ID)
}

func TestService_RunWithoutBatches(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Run(context.Background(), Options{})

	require.NoError(t, err)
	assert.Len(t, result.Matches, 1)
	assert.Empty(t, result.BatchMatches)
	assert.Len(t, result.UnmatchedAmazon, 2)
	assert.Len(t, result.UnmatchedYnab, 2)
}

func TestService_DryRunDoesNotPersistState(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Run(context.Background(), Options{DryRun: true, IncludeBatches: true})

	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Len(t, result.Matches, 1)
	assert.Equal(t, 0, f.repo.SaveCalled)
	assert.True(t, f.memos.dryRun)

	run, err := f.repo.GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.True(t, run.DryRun)
}

func TestService_LockHeld(t *testing.T) {
	f := newFixture(t)
	f.lock.lockErr = errors.New("lock is already held")

	_, err := f.svc.Run(context.Background(), Options{})

	require.Error(t, err)
	assert.False(t, f.repo.StartRunCalled, "nothing runs without the lock")
	assert.Equal(t, 0, f.lock.unlocked)
}

func TestService_WaitsForLockWhenConfigured(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.svc.deps.LockWait = 2 * time.Minute

	// Act
	_, err := f.svc.Run(context.Background(), Options{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, f.lock.waited)
	assert.Equal(t, 1, f.lock.locked)
	assert.Equal(t, 1, f.lock.unlocked)
}

func TestService_KeepLockAliveExtendsUntilStopped(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.svc.deps.LockTTL = 20 * time.Millisecond

	// Act
	stop := f.svc.keepLockAlive(context.Background(), logging.Discard())
	require.Eventually(t, func() bool { return f.lock.extendCount() >= 2 }, time.Second, 5*time.Millisecond)
	stop()
	extended := f.lock.extendCount()
	time.Sleep(50 * time.Millisecond)

	// Assert
	assert.Equal(t, extended, f.lock.extendCount(), "no renewals after stop")
}

func TestService_FetchFailureFailsRun(t *testing.T) {
	f := newFixture(t)
	f.txns.err = errors.New("ynab unavailable")

	_, err := f.svc.Run(context.Background(), Options{})

	require.Error(t, err)
	assert.ErrorContains(t, err, "ynab unavailable")
	runs, listErr := f.repo.ListRuns(context.Background(), 1)
	require.NoError(t, listErr)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.RunStatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "ynab unavailable")
	assert.Equal(t, 1, f.lock.unlocked, "lock released on failure")
}

func TestService_InvalidOrderFailsRun(t *testing.T) {
	f := newFixture(t)
	f.orders.orders = append(f.orders.orders, matcher.AmazonOrder{OrderID: "bad"})

	_, err := f.svc.Run(context.Background(), Options{})

	assert.True(t, errors.Is(err, matcher.ErrInvalidOrder))
	assert.Equal(t, 1, f.repo.FailRunCalls)
}

func TestService_SinceOverridesLookback(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Run(context.Background(), Options{Since: time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC), LookbackDays: 99})

	require.NoError(t, err)
	assert.Equal(t, day(2), f.orders.window.StartDate)
	assert.Equal(t, testNow, f.orders.window.EndDate)
}
