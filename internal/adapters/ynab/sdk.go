package ynab

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/brunomvsouza/ynab.go"
	"github.com/brunomvsouza/ynab.go/api"
	"github.com/brunomvsouza/ynab.go/api/transaction"
)

// SDKClient implements TransactionAPI over the ynab.go client.
type SDKClient struct {
	client sdk.ClientServicer
}

// Compile-time check that SDKClient implements TransactionAPI
var _ TransactionAPI = (*SDKClient)(nil)

// NewSDKClient creates a YNAB API client authenticated with a personal access token.
func NewSDKClient(accessToken string) *SDKClient {
	return &SDKClient{client: sdk.NewClient(accessToken)}
}

// ListTransactions fetches transactions on or after since.
func (c *SDKClient) ListTransactions(ctx context.Context, budgetID string, since time.Time) ([]RemoteTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var filter *transaction.Filter
	if !since.IsZero() {
		filter = &transaction.Filter{Since: &api.Date{Time: since}}
	}

	txns, err := c.client.Transaction().GetTransactions(budgetID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list ynab transactions: %w", err)
	}

	out := make([]RemoteTransaction, 0, len(txns))
	for _, t := range txns {
		out = append(out, RemoteTransaction{
			ID:           t.ID,
			Date:         t.Date.Time,
			Amount:       t.Amount,
			PayeeName:    deref(t.PayeeName),
			AccountID:    t.AccountID,
			AccountName:  t.AccountName,
			CategoryName: deref(t.CategoryName),
			Memo:         deref(t.Memo),
			Deleted:      t.Deleted,
		})
	}
	return out, nil
}

// UpdateMemo re-reads the transaction and writes it back with the new memo.
// The YNAB update endpoint replaces the whole transaction, so every other
// field is copied from the current version.
func (c *SDKClient) UpdateMemo(ctx context.Context, budgetID, transactionID, memo string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	current, err := c.client.Transaction().GetTransaction(budgetID, transactionID)
	if err != nil {
		return fmt.Errorf("failed to get ynab transaction %s: %w", transactionID, err)
	}

	payload := transaction.PayloadTransaction{
		AccountID:  current.AccountID,
		Date:       current.Date,
		Amount:     current.Amount,
		Cleared:    current.Cleared,
		Approved:   current.Approved,
		PayeeID:    current.PayeeID,
		CategoryID: current.CategoryID,
		Memo:       &memo,
		FlagColor:  current.FlagColor,
		ImportID:   current.ImportID,
	}

	if _, err := c.client.Transaction().UpdateTransaction(budgetID, transactionID, payload); err != nil {
		return fmt.Errorf("failed to update ynab transaction %s: %w", transactionID, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
