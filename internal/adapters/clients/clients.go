// Package clients builds the external clients a run needs from configuration.
package clients

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/eshaffer321/amazon-ynab-sync/internal/adapters/ynab"
	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matchstate"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/config"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/lock"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/storage"
)

type Clients struct {
	YNAB    *ynab.Client       // nil when no access token is configured
	Redis   *redis.Client      // nil when no lock is configured
	Storage storage.Repository // run history, memo audits and (for the sqlite backend) the ledger
}

func NewClients(cfg *config.Config, logger *slog.Logger) (*Clients, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Clients{}

	// Get the token with fallback to alternative env var names
	token := cfg.GetAPIKey(cfg.YNAB.AccessToken, "YNAB_ACCESS_TOKEN", "YNAB_TOKEN")
	if token != "" {
		c.YNAB = ynab.NewClient(ynab.NewSDKClient(token), ynab.Options{
			BudgetID:   cfg.YNAB.BudgetID,
			AmazonOnly: cfg.YNAB.AmazonOnly,
			MaxRetries: cfg.YNAB.MaxRetries,
			Cache:      ynab.NewCache(cfg.YNAB.CacheTTL, nil),
			Logger:     logger.With(slog.String("system", "ynab")),
		})
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	c.Storage = store
	if cfg.State.Backend == "file" {
		c.Storage = storage.WithStateStore(store, matchstate.NewFileStore(cfg.State.StateFile))
	}

	if addr := cfg.State.Lock.RedisAddr; addr != "" {
		c.Redis = redis.NewClient(&redis.Options{Addr: addr})
	}

	return c, nil
}

// RunLock returns the cross-process run lock, or nil when none is configured.
func (c *Clients) RunLock(key string) *lock.Locker {
	if c.Redis == nil {
		return nil
	}
	return lock.NewLocker(c.Redis, key)
}

// Close releases the database and Redis connections.
func (c *Clients) Close() error {
	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.Storage != nil {
		errs = append(errs, c.Storage.Close())
	}
	return errors.Join(errs...)
}
