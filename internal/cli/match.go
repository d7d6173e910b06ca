package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/eshaffer321/amazon-ynab-sync/internal/adapters/clients"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/config"
)

// RunMatch performs one reconciliation run and prints the outcome to w.
func RunMatch(ctx context.Context, cfg *config.Config, flags MatchFlags, w io.Writer, logger *slog.Logger) error {
	opts, err := flags.ToOptions()
	if err != nil {
		return err
	}

	c, err := clients.NewClients(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	svc, err := NewReconcileService(cfg, c, Sources{
		OrdersFiles:      flags.OrdersFiles,
		TransactionsFile: flags.TransactionsFile,
	}, logger)
	if err != nil {
		return err
	}

	if !flags.JSON {
		PrintHeader(w, flags.DryRun)
	}

	result, err := svc.Run(ctx, opts)
	if err != nil {
		return err
	}

	if flags.JSON {
		return PrintJSON(w, result)
	}
	PrintResult(w, result)
	return nil
}
