package cli

import (
	"errors"
	"log/slog"

	"github.com/eshaffer321/amazon-ynab-sync/internal/adapters/clients"
	"github.com/eshaffer321/amazon-ynab-sync/internal/adapters/providers/amazon"
	"github.com/eshaffer321/amazon-ynab-sync/internal/adapters/ynab"
	"github.com/eshaffer321/amazon-ynab-sync/internal/application/reconcile"
	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matchstate"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/config"
)

var (
	ErrNoOrders       = errors.New("no Amazon order files given (use --orders or amazon.orders_file)")
	ErrNoTransactions = errors.New("no YNAB source: set ynab.access_token or pass --transactions")
)

// Sources selects where a run reads its inputs. Empty fields fall back to config.
type Sources struct {
	OrdersFiles      []string
	TransactionsFile string
}

// NewReconcileService wires a reconcile.Service from config and clients.
// Memos are only written when transactions come from the YNAB API.
func NewReconcileService(cfg *config.Config, c *clients.Clients, src Sources, logger *slog.Logger) (*reconcile.Service, error) {
	files := src.OrdersFiles
	if len(files) == 0 && cfg.Amazon.OrdersFile != "" {
		files = []string{cfg.Amazon.OrdersFile}
	}
	if len(files) == 0 {
		return nil, ErrNoOrders
	}

	deps := reconcile.Dependencies{
		Orders:        amazon.NewProvider(logger.With(slog.String("system", "amazon")), files...),
		State:         c.Storage,
		LedgerOptions: ledgerOptions(cfg),
		MatchConfig:   cfg.MatcherConfig(),
		Runs:          c.Storage,
		LockTTL:       cfg.State.Lock.TTL,
		LockWait:      cfg.State.Lock.Wait,
		Logger:        logger,
	}

	switch {
	case src.TransactionsFile != "":
		deps.Transactions = ynab.NewFileSource(src.TransactionsFile)
	case c.YNAB != nil:
		deps.Transactions = c.YNAB
		deps.Memos = ynab.NewMemoWriter(c.YNAB, c.Storage, logger)
	default:
		return nil, ErrNoTransactions
	}

	if l := c.RunLock(cfg.State.Lock.Key); l != nil {
		deps.Lock = l
	}

	return reconcile.NewService(deps)
}

func ledgerOptions(cfg *config.Config) []matchstate.Option {
	if !cfg.State.EnableStateTracking {
		return []matchstate.Option{matchstate.Disabled()}
	}
	return []matchstate.Option{matchstate.WithRetention(cfg.RetentionWindow())}
}
