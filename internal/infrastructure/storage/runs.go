package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const runColumns = `id, started_at, completed_at, dry_run, orders, transactions, matches,
	batch_matches, previously_matched, unmatched_amazon, unmatched_ynab,
	avg_confidence, status, error`

// StartRun records the start of a run
func (s *SQLiteStore) StartRun(ctx context.Context, runID string, dryRun bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, dry_run, status)
		VALUES (?, ?, ?, ?)
	`, runID, s.now().UTC(), dryRun, RunStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// CompleteRun records the outcome of a successful run
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET completed_at = ?, orders = ?, transactions = ?, matches = ?,
		    batch_matches = ?, previously_matched = ?, unmatched_amazon = ?,
		    unmatched_ynab = ?, avg_confidence = ?, status = ?
		WHERE id = ?
	`, s.now().UTC(), summary.Orders, summary.Transactions, summary.Matches,
		summary.BatchMatches, summary.PreviouslyMatched, summary.UnmatchedAmazon,
		summary.UnmatchedYnab, summary.AvgConfidence, RunStatusCompleted, runID)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return requireOneRow(res, runID)
}

// FailRun marks a run as failed
func (s *SQLiteStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET completed_at = ?, status = ?, error = ? WHERE id = ?
	`, s.now().UTC(), RunStatusFailed, errMsg, runID)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	return requireOneRow(res, runID)
}

// ListRuns returns recent runs, newest first
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultRunLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// LatestCompletedRun returns the newest completed run
func (s *SQLiteStore) LatestCompletedRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE status = ?
		ORDER BY completed_at DESC, rowid DESC
		LIMIT 1
	`, RunStatusCompleted)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var completedAt sql.NullTime
	err := row.Scan(
		&run.ID,
		&run.StartedAt,
		&completedAt,
		&run.DryRun,
		&run.Orders,
		&run.Transactions,
		&run.Matches,
		&run.BatchMatches,
		&run.PreviouslyMatched,
		&run.UnmatchedAmazon,
		&run.UnmatchedYnab,
		&run.AvgConfidence,
		&run.Status,
		&run.Error,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = run.StartedAt.UTC()
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		run.CompletedAt = &t
	}
	return &run, nil
}

func requireOneRow(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}
