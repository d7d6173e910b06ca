package storage

import (
	"context"

	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matchstate"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	matchstate.Store
	RunRepository
	MemoUpdateRepository
	Close() error
}

// RunRepository tracks reconcile runs
type RunRepository interface {
	// StartRun records the start of a run
	StartRun(ctx context.Context, runID string, dryRun bool) error

	// CompleteRun records the outcome of a successful run
	CompleteRun(ctx context.Context, runID string, summary RunSummary) error

	// FailRun marks a run as failed with the given error message
	FailRun(ctx context.Context, runID string, errMsg string) error

	// ListRuns returns the most recent runs, newest first
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// GetRun retrieves a run by ID. A missing run returns nil, nil.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// LatestCompletedRun returns the newest completed run, or nil.
	LatestCompletedRun(ctx context.Context) (*Run, error)
}

// MemoUpdateRepository audits memo writes made against YNAB
type MemoUpdateRepository interface {
	// LogMemoUpdate records one memo write attempt
	LogMemoUpdate(ctx context.Context, update *MemoUpdate) error

	// ListMemoUpdates returns the memo writes for a run in insertion order
	ListMemoUpdates(ctx context.Context, runID string) ([]MemoUpdate, error)
}
