package ynab

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
)

// Options configures a Client
type Options struct {
	BudgetID   string       // "last-used" selects the most recently used budget
	AmazonOnly bool         // Keep only transactions whose payee looks like Amazon
	MaxRetries uint64       // Retries after the first attempt (default: 3)
	Cache      *Cache       // Optional; nil disables caching
	Logger     *slog.Logger // Optional; nil uses slog.Default()
	newBackOff func() backoff.BackOff
}

// Client fetches YNAB transactions for matching and writes memos.
type Client struct {
	api        TransactionAPI
	budgetID   string
	amazonOnly bool
	maxRetries uint64
	cache      *Cache
	logger     *slog.Logger
	newBackOff func() backoff.BackOff
}

// NewClient wraps api with retries, filtering and caching.
func NewClient(api TransactionAPI, opts Options) *Client {
	if opts.BudgetID == "" {
		opts.BudgetID = "last-used"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.newBackOff == nil {
		opts.newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return b
		}
	}
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	return &Client{
		api:        api,
		budgetID:   opts.BudgetID,
		amazonOnly: opts.AmazonOnly,
		maxRetries: maxRetries,
		cache:      opts.Cache,
		logger:     opts.Logger.With(slog.String("system", "ynab")),
		newBackOff: opts.newBackOff,
	}
}

// BudgetID returns the budget the client reads from.
func (c *Client) BudgetID() string {
	return c.budgetID
}

// FetchTransactions returns non-deleted transactions on or after since,
// converted for the matcher. Transactions that fail validation are skipped
// with a warning.
func (c *Client) FetchTransactions(ctx context.Context, since time.Time) ([]matcher.YnabTransaction, error) {
	key := cacheKey(c.budgetID, since, c.amazonOnly)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			c.logger.Debug("Using cached transactions", "count", len(cached))
			return cached, nil
		}
	}

	var remote []RemoteTransaction
	err := c.retry(ctx, "list transactions", func() error {
		var err error
		remote, err = c.api.ListTransactions(ctx, c.budgetID, since)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ynab transactions: %w", err)
	}

	txns := make([]matcher.YnabTransaction, 0, len(remote))
	for _, r := range remote {
		if r.Deleted {
			continue
		}
		if c.amazonOnly && !IsAmazonPayee(r.PayeeName) {
			continue
		}
		txn, err := matcher.NewYnabTransaction(r.ID, r.Date, r.Amount, r.PayeeName, r.AccountName, r.CategoryName, r.Memo)
		if err != nil {
			c.logger.Warn("Skipping invalid transaction", "id", r.ID, "error", err)
			continue
		}
		txn.AccountID = r.AccountID
		txns = append(txns, txn)
	}

	c.logger.Info("Fetched transactions",
		"budget", c.budgetID,
		"fetched", len(remote),
		"kept", len(txns),
	)

	if c.cache != nil {
		c.cache.Set(key, txns)
	}
	return txns, nil
}

// UpdateMemo writes memo to a transaction, retrying transient failures.
func (c *Client) UpdateMemo(ctx context.Context, transactionID, memo string) error {
	err := c.retry(ctx, "update memo", func() error {
		return c.api.UpdateMemo(ctx, c.budgetID, transactionID, memo)
	})
	if err != nil {
		return err
	}
	if c.cache != nil {
		c.cache.Invalidate()
	}
	return nil
}

func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	attempt := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	return backoff.RetryNotify(func() error {
		attempt++
		return fn()
	}, policy, func(err error, wait time.Duration) {
		c.logger.Warn("YNAB call failed, retrying",
			"op", op,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	})
}
