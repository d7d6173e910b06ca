package storage

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned when updating a run that was never started.
var ErrRunNotFound = errors.New("run not found")

// Run status values
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// DefaultRunLimit is used when ListRuns is called with a non-positive limit.
const DefaultRunLimit = 20

// Run is one reconcile run
type Run struct {
	ID                string     `json:"id"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	DryRun            bool       `json:"dry_run"`
	Orders            int        `json:"orders"`
	Transactions      int        `json:"transactions"`
	Matches           int        `json:"matches"`
	BatchMatches      int        `json:"batch_matches"`
	PreviouslyMatched int        `json:"previously_matched"`
	UnmatchedAmazon   int        `json:"unmatched_amazon"`
	UnmatchedYnab     int        `json:"unmatched_ynab"`
	AvgConfidence     float64    `json:"avg_confidence"`
	Status            string     `json:"status"`
	Error             string     `json:"error,omitempty"`
}

// RunSummary holds the counters written when a run completes
type RunSummary struct {
	Orders            int
	Transactions      int
	Matches           int
	BatchMatches      int
	PreviouslyMatched int
	UnmatchedAmazon   int
	UnmatchedYnab     int
	AvgConfidence     float64
}

// MemoUpdate records one memo written (or planned, on a dry run) to a YNAB transaction
type MemoUpdate struct {
	ID                int64     `json:"id"`
	RunID             string    `json:"run_id"`
	YnabTransactionID string    `json:"ynab_transaction_id"`
	AmazonOrderIDs    []string  `json:"amazon_order_ids"`
	Memo              string    `json:"memo"`
	DryRun            bool      `json:"dry_run"`
	Error             string    `json:"error,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
