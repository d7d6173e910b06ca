// Command amazon-ynab-sync reconciles Amazon orders against YNAB transactions.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/config"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/logging"
)

// app carries what every subcommand needs once the root pre-run has loaded config.
type app struct {
	configFile string
	verbose    bool

	cfg *config.Config
}

func (a *app) preRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrEnvWithPath(a.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg
	return nil
}

// logger builds a logger for the given system, honouring --verbose.
func (a *app) logger(system string) *slog.Logger {
	loggingCfg := a.cfg.Observability.Logging
	if a.verbose {
		loggingCfg.Level = "debug"
	}
	return logging.NewLoggerWithSystem(loggingCfg, system)
}

func newRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:               "amazon-ynab-sync",
		Short:             "Match Amazon orders to YNAB transactions",
		SilenceUsage:      true,
		PersistentPreRunE: a.preRun,
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(matchCommand(a))
	rootCmd.AddCommand(serveCommand(a))
	rootCmd.AddCommand(stateCommand(a))

	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
