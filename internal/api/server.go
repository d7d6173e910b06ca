// Package api serves run history, the match ledger and stateless matching over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/amazon-ynab-sync/internal/api/handlers"
	"github.com/eshaffer321/amazon-ynab-sync/internal/api/middleware"
	"github.com/eshaffer321/amazon-ynab-sync/internal/application/service"
	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
	Matching       matcher.Config // Used by POST /api/reconcile
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8085,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		Matching:       matcher.DefaultConfig(),
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	runService *service.RunService
}

// NewServer creates a new API server.
// If runService is nil, the job endpoints are not registered.
func NewServer(cfg Config, repo storage.Repository, runService *service.RunService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		config:     cfg,
		router:     gin.New(),
		logger:     logger,
		repo:       repo,
		runService: runService,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())

	s.router.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	s.router.GET("/health", handlers.NewHealthHandler().Get)

	api := s.router.Group("/api")
	{
		runsHandler := handlers.NewRunsHandler(s.repo)
		api.GET("/runs", runsHandler.List)
		api.GET("/runs/:id", runsHandler.Get)

		matchesHandler := handlers.NewMatchesHandler(s.repo)
		api.GET("/matches", matchesHandler.List)

		statsHandler := handlers.NewStatsHandler(s.repo)
		api.GET("/stats", statsHandler.Get)

		reconcileHandler := handlers.NewReconcileHandler(s.config.Matching, s.logger)
		api.POST("/reconcile", reconcileHandler.Match)

		if s.runService != nil {
			jobsHandler := handlers.NewJobsHandler(s.runService)
			api.POST("/jobs", jobsHandler.Start)
			api.GET("/jobs", jobsHandler.List)
			api.GET("/jobs/:id", jobsHandler.Get)
			api.DELETE("/jobs/:id", jobsHandler.Cancel)
		}
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the gin engine for testing.
func (s *Server) Router() http.Handler {
	return s.router
}
