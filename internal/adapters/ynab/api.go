// Package ynab reads transactions from YNAB and writes reconciliation memos
// back to them.
//
// The YNAB SDK is reached only through TransactionAPI, so everything else in
// the package is tested against in-memory fakes.
package ynab

import (
	"context"
	"time"
)

// RemoteTransaction is a YNAB transaction as returned by the API, before
// filtering and conversion.
type RemoteTransaction struct {
	ID           string
	Date         time.Time
	Amount       int64 // milliunits
	PayeeName    string
	AccountID    string
	AccountName  string
	CategoryName string
	Memo         string
	Deleted      bool
}

// TransactionAPI is the subset of the YNAB API this package uses.
type TransactionAPI interface {
	// ListTransactions returns the budget's transactions on or after since.
	// A zero since returns everything.
	ListTransactions(ctx context.Context, budgetID string, since time.Time) ([]RemoteTransaction, error)

	// UpdateMemo replaces the memo of a single transaction.
	UpdateMemo(ctx context.Context, budgetID, transactionID, memo string) error
}
