package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eshaffer321/amazon-ynab-sync/internal/adapters/clients"
	"github.com/eshaffer321/amazon-ynab-sync/internal/api"
	"github.com/eshaffer321/amazon-ynab-sync/internal/application/service"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/config"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/logging"
)

// jobSweepInterval is how often finished jobs are cleaned up and stuck ones failed.
const jobSweepInterval = 10 * time.Minute

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	Port    int
	Verbose bool
	Sources Sources
}

// RunServe runs the API server until SIGINT or SIGTERM.
func RunServe(cfg *config.Config, flags ServeFlags) error {
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "api")

	c, err := clients.NewClients(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	// Background jobs need a fully wired reconcile service. Without inputs the
	// read-only endpoints still work.
	var runService *service.RunService
	svc, err := NewReconcileService(cfg, c, flags.Sources, logger)
	switch {
	case err == nil:
		runService = service.NewRunService(svc, logger)
	case errors.Is(err, ErrNoOrders), errors.Is(err, ErrNoTransactions):
		logger.Warn("reconcile jobs disabled", slog.String("reason", err.Error()))
	default:
		return err
	}

	port := flags.Port
	if port == 0 {
		port = cfg.API.Port
	}
	apiCfg := api.Config{
		Port:           port,
		AllowedOrigins: cfg.API.AllowedOrigins,
		Matching:       cfg.MatcherConfig(),
	}
	server := api.NewServer(apiCfg, c.Storage, runService, logger)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if runService != nil {
		go sweepJobs(sweepCtx, runService, logger)
	}

	// Handle graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("received shutdown signal")
		stopSweep()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}

func sweepJobs(ctx context.Context, runService *service.RunService, logger *slog.Logger) {
	ticker := time.NewTicker(jobSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stale := runService.MarkStaleJobsAsFailed(service.DefaultJobMaxDuration)
			removed := runService.CleanupOldJobs(24 * time.Hour)
			if stale > 0 || removed > 0 {
				logger.Debug("swept jobs", "stale", stale, "removed", removed)
			}
		}
	}
}
