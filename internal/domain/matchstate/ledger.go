package matchstate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
)

// DefaultRetention is how long a matched pair is remembered.
const DefaultRetention = 90 * 24 * time.Hour

// Ledger is the in-memory view of persisted match state. Entries older than
// the retention window are pruned on load, on every Record and on Save.
type Ledger struct {
	store     Store
	enabled   bool
	readOnly  bool
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu    sync.Mutex
	state State
}

var _ matcher.StateTracker = (*Ledger)(nil)

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithRetention sets the retention window. Non-positive values keep the default.
func WithRetention(retention time.Duration) Option {
	return func(l *Ledger) {
		if retention > 0 {
			l.retention = retention
		}
	}
}

// Disabled turns the ledger into a no-op: nothing is remembered or saved.
func Disabled() Option {
	return func(l *Ledger) { l.enabled = false }
}

// ReadOnly keeps the ledger usable for lookups and in-run records but makes
// Save a no-op. Used for dry runs.
func ReadOnly() Option {
	return func(l *Ledger) { l.readOnly = true }
}

// NewLedger creates a ledger over store. Call Load before matching.
func NewLedger(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		enabled:   true,
		retention: DefaultRetention,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Enabled reports whether state tracking is on.
func (l *Ledger) Enabled() bool {
	return l.enabled
}

// Load reads state from the store. A missing or unreadable ledger is logged
// and replaced by an empty one; Load never fails.
func (l *Ledger) Load(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = State{}
	if !l.enabled || l.store == nil {
		return
	}

	loaded, err := l.store.Load(ctx)
	if err != nil {
		l.logger.Warn("Failed to load match state, starting empty", "error", err)
		return
	}
	if loaded != nil {
		l.state = *loaded.clone()
	}

	pruned := l.pruneLocked()
	l.logger.Debug("Loaded match state",
		"pairs", len(l.state.MatchedPairs),
		"pruned", pruned,
	)
}

// IsPreviouslyMatched reports whether an unexpired pair exists for the order.
func (l *Ledger) IsPreviouslyMatched(amazonOrderID string) bool {
	return len(l.MatchedTransactions(amazonOrderID)) > 0
}

// MatchedTransactions returns the transaction IDs recorded for the order.
func (l *Ledger) MatchedTransactions(amazonOrderID string) []string {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.cutoff()
	var ids []string
	for _, p := range l.state.MatchedPairs {
		if p.AmazonOrderID == amazonOrderID && !p.MatchedAt.Before(cutoff) {
			ids = append(ids, p.YnabTransactionID)
		}
	}
	return ids
}

// Record remembers a pair. Recording the same pair again refreshes its timestamp.
func (l *Ledger) Record(amazonOrderID, ynabTransactionID string) {
	if !l.enabled {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	for i, p := range l.state.MatchedPairs {
		if p.AmazonOrderID == amazonOrderID && p.YnabTransactionID == ynabTransactionID {
			l.state.MatchedPairs[i].MatchedAt = now
			l.pruneLocked()
			return
		}
	}

	l.state.MatchedPairs = append(l.state.MatchedPairs, Pair{
		AmazonOrderID:     amazonOrderID,
		YnabTransactionID: ynabTransactionID,
		MatchedAt:         now,
	})
	l.pruneLocked()
}

// Save prunes, stamps last_run and writes the state to the store.
func (l *Ledger) Save(ctx context.Context) error {
	if !l.enabled || l.readOnly || l.store == nil {
		return nil
	}

	l.mu.Lock()
	l.pruneLocked()
	now := l.now().UTC()
	l.state.LastRun = &now
	snapshot := l.state.clone()
	l.mu.Unlock()

	return l.store.Save(ctx, snapshot)
}

// Prune drops expired pairs and returns how many were removed.
func (l *Ledger) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pruneLocked()
}

// Pairs returns a copy of the current pairs.
func (l *Ledger) Pairs() []Pair {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.clone().MatchedPairs
}

// LastRun returns when state was last saved, or nil.
func (l *Ledger) LastRun() *time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.clone().LastRun
}

func (l *Ledger) cutoff() time.Time {
	return l.now().UTC().Add(-l.retention)
}

func (l *Ledger) pruneLocked() int {
	cutoff := l.cutoff()
	kept := l.state.MatchedPairs[:0]
	for _, p := range l.state.MatchedPairs {
		if !p.MatchedAt.Before(cutoff) {
			kept = append(kept, p)
		}
	}
	removed := len(l.state.MatchedPairs) - len(kept)
	l.state.MatchedPairs = kept
	return removed
}
