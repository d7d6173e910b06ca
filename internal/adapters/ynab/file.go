package ynab

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
)

// fileTransaction is one entry of a YNAB transaction export.
type fileTransaction struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	Amount       int64  `json:"amount"` // milliunits
	PayeeName    string `json:"payee_name"`
	AccountID    string `json:"account_id"`
	AccountName  string `json:"account_name"`
	CategoryName string `json:"category_name"`
	Memo         string `json:"memo"`
	Deleted      bool   `json:"deleted"`
}

// LoadTransactionsFile reads a JSON array of YNAB transactions for offline
// runs. Deleted transactions are dropped; any invalid entry fails the load.
func LoadTransactionsFile(path string) ([]matcher.YnabTransaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions file: %w", err)
	}

	var raw []fileTransaction
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse transactions file %s: %w", path, err)
	}

	txns := make([]matcher.YnabTransaction, 0, len(raw))
	for i, r := range raw {
		if r.Deleted {
			continue
		}
		txn, err := matcher.NewYnabTransaction(r.ID, r.Date, r.Amount, r.PayeeName, r.AccountName, r.CategoryName, r.Memo)
		if err != nil {
			return nil, fmt.Errorf("transaction at index %d: %w", i, err)
		}
		txn.AccountID = r.AccountID
		txns = append(txns, txn)
	}
	return txns, nil
}

// FileSource serves transactions from an export file.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path on every fetch.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// FetchTransactions loads the file and keeps transactions on or after since.
func (s *FileSource) FetchTransactions(ctx context.Context, since time.Time) ([]matcher.YnabTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txns, err := LoadTransactionsFile(s.path)
	if err != nil {
		return nil, err
	}
	if since.IsZero() {
		return txns, nil
	}
	kept := txns[:0]
	for _, t := range txns {
		if !t.Date.Before(since) {
			kept = append(kept, t)
		}
	}
	return kept, nil
}
