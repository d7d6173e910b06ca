package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/amazon-ynab-sync/internal/cli"
	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matchstate"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/storage"
)

func matchCommand(a *app) *cobra.Command {
	var flags cli.MatchFlags

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Run one reconciliation pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.LookbackDays == 0 {
				flags.LookbackDays = a.cfg.Amazon.LookbackDays
			}
			return cli.RunMatch(cmd.Context(), a.cfg, flags, cmd.OutOrStdout(), a.logger("match"))
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&flags.OrdersFiles, "orders", nil, "Amazon order export files (CSV or JSON); repeatable")
	f.StringVar(&flags.TransactionsFile, "transactions", "", "YNAB transaction export (JSON) instead of the YNAB API")
	f.BoolVar(&flags.DryRun, "dry-run", false, "Match without saving state or writing memos")
	f.BoolVar(&flags.Batch, "batch", true, "Also look for consolidated charges and split payments")
	f.StringVar(&flags.Since, "since", "", "Earliest order date (YYYY-MM-DD)")
	f.IntVar(&flags.LookbackDays, "days", 0, "Days to look back when --since is not set (default from config)")
	f.IntVar(&flags.MaxOrders, "max", 0, "Maximum orders to process (0 = all)")
	f.BoolVar(&flags.JSON, "json", false, "Print the result as JSON")

	return cmd
}

func serveCommand(a *app) *cobra.Command {
	var flags cli.ServeFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.Verbose = a.verbose
			return cli.RunServe(a.cfg, flags)
		},
	}

	f := cmd.Flags()
	f.IntVar(&flags.Port, "port", 0, "Port to listen on (default from config)")
	f.StringSliceVar(&flags.Sources.OrdersFiles, "orders", nil, "Amazon order export files for background jobs")
	f.StringVar(&flags.Sources.TransactionsFile, "transactions", "", "YNAB transaction export for background jobs")

	return cmd
}

func stateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or prune the match ledger",
	}
	cmd.AddCommand(stateShowCommand(a))
	cmd.AddCommand(statePruneCommand(a))
	return cmd
}

func stateShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List remembered order/transaction pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openLedgerStore(a)
			if err != nil {
				return err
			}
			defer closeStore()

			ledger := cli.LoadLedger(cmd.Context(), store, a.cfg.RetentionWindow(), a.logger("state"))
			cli.PrintState(cmd.OutOrStdout(), ledger.Pairs(), ledger.LastRun())
			return nil
		},
	}
}

func statePruneCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Drop pairs older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openLedgerStore(a)
			if err != nil {
				return err
			}
			defer closeStore()

			removed, err := cli.PruneState(cmd.Context(), store, a.cfg.RetentionWindow(), a.logger("state"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d expired pairs\n", removed)
			return nil
		},
	}
}

// openLedgerStore opens whichever backend holds the ledger without touching
// YNAB or Redis.
func openLedgerStore(a *app) (matchstate.Store, func(), error) {
	if a.cfg.State.Backend == "file" {
		return matchstate.NewFileStore(a.cfg.State.StateFile), func() {}, nil
	}

	store, err := storage.NewSQLiteStore(a.cfg.Storage.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}, nil
}
