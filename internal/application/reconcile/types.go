package reconcile

import (
	"context"
	"time"

	"github.com/eshaffer321/amazon-ynab-sync/internal/adapters/ynab"
	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
)

// Options holds per-run settings
type Options struct {
	DryRun         bool      // Match and plan memos without persisting state or writing to YNAB
	IncludeBatches bool      // Run the batch pass on 1:1 residues
	Since          time.Time // Earliest order date; zero means now minus LookbackDays
	LookbackDays   int       // Used when Since is zero (default: 30)
	MaxOrders      int       // 0 means unlimited
}

// Result holds the outcome of one run
type Result struct {
	RunID             string                     `json:"run_id"`
	DryRun            bool                       `json:"dry_run"`
	Orders            int                        `json:"orders"`
	Transactions      int                        `json:"transactions"`
	Matches           []matcher.MatchRecord      `json:"matches"`
	BatchMatches      []matcher.BatchMatchRecord `json:"batch_matches"`
	UnmatchedAmazon   []matcher.AmazonOrder      `json:"unmatched_amazon"`
	UnmatchedYnab     []matcher.YnabTransaction  `json:"unmatched_ynab"`
	PreviouslyMatched []string                   `json:"previously_matched"`
	Stats             matcher.Statistics         `json:"statistics"`
	Memos             *ynab.MemoReport           `json:"memos,omitempty"`
	Duration          time.Duration              `json:"duration"`
}

// TransactionSource supplies YNAB transactions. *ynab.Client and
// *ynab.FileSource implement it.
type TransactionSource interface {
	FetchTransactions(ctx context.Context, since time.Time) ([]matcher.YnabTransaction, error)
}

// MemoApplier writes memos for matched transactions. *ynab.MemoWriter implements it.
type MemoApplier interface {
	Apply(ctx context.Context, runID string, dryRun bool, matches []matcher.MatchRecord, batches []matcher.BatchMatchRecord) (*ynab.MemoReport, error)
}

// Locker serializes runs that share a ledger. *lock.Locker implements it.
type Locker interface {
	Lock(ctx context.Context, ttl time.Duration) error
	WaitLock(ctx context.Context, ttl, wait time.Duration) error
	Extend(ctx context.Context, ttl time.Duration) error
	Unlock(ctx context.Context) error
}
