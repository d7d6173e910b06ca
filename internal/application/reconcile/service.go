// Package reconcile runs the end-to-end Amazon to YNAB reconciliation:
// load orders and transactions, match them against the ledger, write memos
// and record the run.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/amazon-ynab-sync/internal/adapters/providers"
	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matchstate"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/storage"
)

// DefaultLookbackDays is used when neither Since nor LookbackDays is set.
const DefaultLookbackDays = 30

// Dependencies wires a Service. Orders, Transactions and State are required.
type Dependencies struct {
	Orders        providers.OrderSource
	Transactions  TransactionSource
	State         matchstate.Store
	LedgerOptions []matchstate.Option
	MatchConfig   matcher.Config
	Runs          storage.RunRepository // Optional run history
	Memos         MemoApplier           // Optional; nil skips memo writing
	Lock          Locker                // Optional cross-process lock
	LockTTL       time.Duration         // Renewed every LockTTL/2 while the run is in progress
	LockWait      time.Duration         // How long to wait for a held lock; 0 fails at once
	Logger        *slog.Logger
	Now           func() time.Time
}

// Service runs reconciliations
type Service struct {
	deps   Dependencies
	logger *slog.Logger
	now    func() time.Time
}

// NewService validates dependencies and creates a Service.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Orders == nil {
		return nil, fmt.Errorf("order source is required")
	}
	if deps.Transactions == nil {
		return nil, fmt.Errorf("transaction source is required")
	}
	if deps.State == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if err := deps.MatchConfig.Validate(); err != nil {
		return nil, err
	}
	if deps.LockTTL <= 0 {
		deps.LockTTL = 5 * time.Minute
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		deps:   deps,
		logger: logger.With(slog.String("system", "reconcile")),
		now:    now,
	}, nil
}

// Run performs one reconciliation. The lock (if any) is held from before the
// ledger is read until after it is saved.
func (s *Service) Run(ctx context.Context, opts Options) (*Result, error) {
	started := s.now()
	runID := uuid.NewString()
	logger := s.logger.With(slog.String("run_id", runID))

	if s.deps.Lock != nil {
		if err := s.acquireLock(ctx); err != nil {
			return nil, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		stopKeepAlive := s.keepLockAlive(ctx, logger)
		defer func() {
			stopKeepAlive()
			// Release even if ctx was cancelled mid-run
			if err := s.deps.Lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("Failed to release run lock", "error", err)
			}
		}()
	}

	if err := s.startRun(ctx, runID, opts.DryRun); err != nil {
		return nil, err
	}

	result, err := s.run(ctx, logger, runID, opts)
	if err != nil {
		s.failRun(ctx, logger, runID, err)
		return nil, err
	}

	result.Duration = s.now().Sub(started)
	s.completeRun(ctx, logger, result)

	logger.Info("Reconcile complete",
		"orders", result.Orders,
		"transactions", result.Transactions,
		"matches", len(result.Matches),
		"batch_matches", len(result.BatchMatches),
		"previously_matched", len(result.PreviouslyMatched),
		"unmatched_amazon", len(result.UnmatchedAmazon),
		"unmatched_ynab", len(result.UnmatchedYnab),
		"dry_run", opts.DryRun,
	)
	return result, nil
}

func (s *Service) run(ctx context.Context, logger *slog.Logger, runID string, opts Options) (*Result, error) {
	window := s.window(opts)

	orders, err := s.fetchOrders(ctx, logger, window)
	if err != nil {
		return nil, err
	}
	txns, err := s.fetchTransactions(ctx, logger, window)
	if err != nil {
		return nil, err
	}

	ledgerOpts := append([]matchstate.Option{matchstate.WithLogger(logger)}, s.deps.LedgerOptions...)
	if opts.DryRun {
		ledgerOpts = append(ledgerOpts, matchstate.ReadOnly())
	}
	ledger := matchstate.NewLedger(s.deps.State, ledgerOpts...)
	ledger.Load(ctx)

	m, err := matcher.NewMatcher(s.deps.MatchConfig, ledger, logger)
	if err != nil {
		return nil, err
	}

	full, err := s.match(ctx, m, orders, txns, opts.IncludeBatches)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:             runID,
		DryRun:            opts.DryRun,
		Orders:            len(orders),
		Transactions:      len(txns),
		Matches:           full.Matches,
		BatchMatches:      full.BatchMatches,
		UnmatchedAmazon:   full.UnmatchedAmazon,
		UnmatchedYnab:     full.UnmatchedYnab,
		PreviouslyMatched: full.PreviouslyMatched,
		Stats:             matcher.GetMatchStatistics(full.Matches),
	}

	if s.deps.Memos != nil {
		report, err := s.deps.Memos.Apply(ctx, runID, opts.DryRun, full.Matches, full.BatchMatches)
		if err != nil {
			return nil, fmt.Errorf("failed to write memos: %w", err)
		}
		result.Memos = report
	}
	return result, nil
}

func (s *Service) match(ctx context.Context, m *matcher.Matcher, orders []matcher.AmazonOrder, txns []matcher.YnabTransaction, includeBatches bool) (*matcher.FullResult, error) {
	if includeBatches {
		full, err := m.MatchWithBatches(ctx, orders, txns)
		if err != nil {
			return nil, fmt.Errorf("failed to match: %w", err)
		}
		return full, nil
	}

	res, err := m.MatchTransactions(ctx, orders, txns)
	if err != nil {
		return nil, fmt.Errorf("failed to match: %w", err)
	}
	return &matcher.FullResult{
		Matches:           res.Matches,
		UnmatchedAmazon:   res.UnmatchedAmazon,
		UnmatchedYnab:     res.UnmatchedYnab,
		PreviouslyMatched: res.PreviouslyMatched,
	}, nil
}

// window returns the order date range for opts.
func (s *Service) window(opts Options) providers.FetchOptions {
	end := s.now().UTC()
	start := opts.Since
	if start.IsZero() {
		days := opts.LookbackDays
		if days <= 0 {
			days = DefaultLookbackDays
		}
		start = end.AddDate(0, 0, -days)
	}
	return providers.FetchOptions{
		StartDate: truncateDay(start),
		EndDate:   end,
		MaxOrders: opts.MaxOrders,
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Service) acquireLock(ctx context.Context) error {
	if s.deps.LockWait > 0 {
		return s.deps.Lock.WaitLock(ctx, s.deps.LockTTL, s.deps.LockWait)
	}
	return s.deps.Lock.Lock(ctx, s.deps.LockTTL)
}

// keepLockAlive extends the lock every half TTL until the returned stop func
// is called. stop waits for the renewal goroutine, so no Extend races Unlock.
func (s *Service) keepLockAlive(ctx context.Context, logger *slog.Logger) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		ticker := time.NewTicker(s.deps.LockTTL / 2)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.deps.Lock.Extend(ctx, s.deps.LockTTL); err != nil {
					logger.Warn("Failed to extend run lock", "error", err)
					return
				}
				logger.Debug("Extended run lock", "ttl", s.deps.LockTTL)
			}
		}
	}()

	return func() {
		close(done)
		<-exited
	}
}
