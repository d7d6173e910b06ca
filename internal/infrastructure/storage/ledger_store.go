package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matchstate"
)

// Load reads every matched pair and the last run timestamp.
func (s *SQLiteStore) Load(ctx context.Context) (*matchstate.State, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT amazon_order_id, ynab_transaction_id, matched_at
		FROM matched_pairs
		ORDER BY matched_at, rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query matched pairs: %w", err)
	}
	defer rows.Close()

	state := &matchstate.State{}
	for rows.Next() {
		var p matchstate.Pair
		if err := rows.Scan(&p.AmazonOrderID, &p.YnabTransactionID, &p.MatchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan matched pair: %w", err)
		}
		p.MatchedAt = p.MatchedAt.UTC()
		state.MatchedPairs = append(state.MatchedPairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var lastRun sql.NullTime
	err = s.db.QueryRowContext(ctx, `SELECT last_run FROM ledger_meta WHERE id = 1`).Scan(&lastRun)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query last run: %w", err)
	}
	if lastRun.Valid {
		t := lastRun.Time.UTC()
		state.LastRun = &t
	}

	return state, nil
}

// Save replaces the stored pairs with state in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, state *matchstate.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM matched_pairs`); err != nil {
		return fmt.Errorf("failed to clear matched pairs: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO matched_pairs (amazon_order_id, ynab_transaction_id, matched_at)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range state.MatchedPairs {
		if _, err := stmt.ExecContext(ctx, p.AmazonOrderID, p.YnabTransactionID, p.MatchedAt.UTC()); err != nil {
			return fmt.Errorf("failed to insert pair %s/%s: %w", p.AmazonOrderID, p.YnabTransactionID, err)
		}
	}

	var lastRun any
	if state.LastRun != nil {
		lastRun = state.LastRun.UTC()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_meta (id, last_run) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_run = excluded.last_run
	`, lastRun); err != nil {
		return fmt.Errorf("failed to update last run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger: %w", err)
	}
	return nil
}
