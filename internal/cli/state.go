package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matchstate"
)

// LoadLedger loads the ledger from store with expired pairs already dropped.
func LoadLedger(ctx context.Context, store matchstate.Store, retention time.Duration, logger *slog.Logger) *matchstate.Ledger {
	ledger := matchstate.NewLedger(store, matchstate.WithRetention(retention), matchstate.WithLogger(logger))
	ledger.Load(ctx)
	return ledger
}

// PruneState drops expired pairs from the stored ledger and returns how many
// were removed.
func PruneState(ctx context.Context, store matchstate.Store, retention time.Duration, logger *slog.Logger) (int, error) {
	before, err := store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load match state: %w", err)
	}

	ledger := LoadLedger(ctx, store, retention, logger)
	if err := ledger.Save(ctx); err != nil {
		return 0, fmt.Errorf("failed to save match state: %w", err)
	}

	removed := 0
	if before != nil {
		removed = len(before.MatchedPairs) - len(ledger.Pairs())
	}
	return removed, nil
}
