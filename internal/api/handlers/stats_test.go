package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eshaffer321/amazon-ynab-sync/internal/api/dto"
	"github.com/eshaffer321/amazon-ynab-sync/internal/api/handlers"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/storage"
)

func statsRouter(repo storage.Repository) http.Handler {
	r := newRouter()
	r.GET("/api/stats", handlers.NewStatsHandler(repo).Get)
	return r
}

func TestStatsHandler_Get(t *testing.T) {
	t.Run("summarizes latest completed run", func(t *testing.T) {
		// Arrange
		repo := seededLedger(t)
		seedRun(t, repo, "run-1", storage.RunSummary{Orders: 10, Matches: 6, BatchMatches: 1, UnmatchedAmazon: 2})

		// Act
		rec := do(statsRouter(repo), http.MethodGet, "/api/stats", "")

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)
		response := decode[dto.StatsResponse](t, rec)
		assert.Equal(t, "run-1", response.LastRun.ID)
		assert.Equal(t, 10, response.TotalOrders)
		assert.Equal(t, 8, response.TotalMatched)
		assert.InDelta(t, 0.8, response.MatchRate, 0.0001)
		assert.Equal(t, 3, response.LedgerEntries)
	})

	t.Run("404 when no run has completed", func(t *testing.T) {
		rec := do(statsRouter(storage.NewMockRepository()), http.MethodGet, "/api/stats", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("500 on repository error", func(t *testing.T) {
		rec := do(statsRouter(failingRepo{storage.NewMockRepository()}), http.MethodGet, "/api/stats", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
