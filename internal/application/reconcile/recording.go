package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/storage"
)

// Run history recording. Only StartRun is fatal; later bookkeeping failures
// are logged so a finished reconciliation is never reported as failed.

func (s *Service) startRun(ctx context.Context, runID string, dryRun bool) error {
	if s.deps.Runs == nil {
		return nil
	}
	if err := s.deps.Runs.StartRun(ctx, runID, dryRun); err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

func (s *Service) completeRun(ctx context.Context, logger *slog.Logger, result *Result) {
	if s.deps.Runs == nil {
		return
	}
	summary := storage.RunSummary{
		Orders:            result.Orders,
		Transactions:      result.Transactions,
		Matches:           len(result.Matches),
		BatchMatches:      len(result.BatchMatches),
		PreviouslyMatched: len(result.PreviouslyMatched),
		UnmatchedAmazon:   len(result.UnmatchedAmazon),
		UnmatchedYnab:     len(result.UnmatchedYnab),
		AvgConfidence:     result.Stats.AverageConfidence,
	}
	if err := s.deps.Runs.CompleteRun(context.WithoutCancel(ctx), result.RunID, summary); err != nil {
		logger.Error("Failed to record run completion", "error", err)
	}
}

func (s *Service) failRun(ctx context.Context, logger *slog.Logger, runID string, runErr error) {
	logger.Error("Reconcile failed", "error", runErr)
	if s.deps.Runs == nil {
		return
	}
	if err := s.deps.Runs.FailRun(context.WithoutCancel(ctx), runID, runErr.Error()); err != nil {
		logger.Error("Failed to record run failure", "error", err)
	}
}
