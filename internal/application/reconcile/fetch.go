package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eshaffer321/amazon-ynab-sync/internal/adapters/providers"
	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
)

// Data fetching for a run.

// fetchOrders fetches orders from the order source for the run window
func (s *Service) fetchOrders(ctx context.Context, logger *slog.Logger, window providers.FetchOptions) ([]matcher.AmazonOrder, error) {
	logger.Debug("Fetching orders",
		"source", s.deps.Orders.Name(),
		"start_date", window.StartDate.Format("2006-01-02"),
		"end_date", window.EndDate.Format("2006-01-02"),
	)

	orders, err := s.deps.Orders.FetchOrders(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}

	logger.Debug("Fetched orders", "count", len(orders))
	return orders, nil
}

// fetchTransactions fetches transactions from slightly before the window so
// charges posted ahead of the order date are still candidates.
func (s *Service) fetchTransactions(ctx context.Context, logger *slog.Logger, window providers.FetchOptions) ([]matcher.YnabTransaction, error) {
	since := window.StartDate.AddDate(0, 0, -s.deps.MatchConfig.DateToleranceDays)

	txns, err := s.deps.Transactions.FetchTransactions(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	logger.Debug("Fetched transactions", "count", len(txns), "since", since.Format("2006-01-02"))
	return txns, nil
}
