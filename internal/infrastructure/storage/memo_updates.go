package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// LogMemoUpdate records one memo write attempt
func (s *SQLiteStore) LogMemoUpdate(ctx context.Context, update *MemoUpdate) error {
	orderIDs, err := json.Marshal(update.AmazonOrderIDs)
	if err != nil {
		return fmt.Errorf("failed to encode order ids: %w", err)
	}
	if update.CreatedAt.IsZero() {
		update.CreatedAt = s.now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO memo_updates
		(run_id, ynab_transaction_id, amazon_order_ids, memo, dry_run, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, update.RunID, update.YnabTransactionID, string(orderIDs), update.Memo,
		update.DryRun, update.Error, update.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to log memo update: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		update.ID = id
	}
	return nil
}

// ListMemoUpdates returns the memo writes for a run
func (s *SQLiteStore) ListMemoUpdates(ctx context.Context, runID string) ([]MemoUpdate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, ynab_transaction_id, amazon_order_ids, memo, dry_run, error, created_at
		FROM memo_updates
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memo updates: %w", err)
	}
	defer rows.Close()

	updates := make([]MemoUpdate, 0)
	for rows.Next() {
		var u MemoUpdate
		var orderIDs string
		if err := rows.Scan(&u.ID, &u.RunID, &u.YnabTransactionID, &orderIDs,
			&u.Memo, &u.DryRun, &u.Error, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan memo update: %w", err)
		}
		if err := json.Unmarshal([]byte(orderIDs), &u.AmazonOrderIDs); err != nil {
			return nil, fmt.Errorf("failed to decode order ids for memo update %d: %w", u.ID, err)
		}
		u.CreatedAt = u.CreatedAt.UTC()
		updates = append(updates, u)
	}
	return updates, rows.Err()
}
