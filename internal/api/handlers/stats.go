package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/amazon-ynab-sync/internal/api/dto"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/storage"
)

// StatsHandler handles stats-related HTTP requests.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository) *StatsHandler {
	return &StatsHandler{
		Base: NewBase(repo),
	}
}

// Get handles GET /api/stats - summarizes the latest completed run.
func (h *StatsHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	run, err := h.repo.LatestCompletedRun(ctx)
	if err != nil {
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if run == nil {
		h.WriteError(c, http.StatusNotFound, dto.NotFoundError("completed run"))
		return
	}

	state, err := h.repo.Load(ctx)
	if err != nil {
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
		return
	}

	// Resolved orders include batch members and those matched by earlier runs
	resolved := run.Orders - run.UnmatchedAmazon
	response := dto.StatsResponse{
		LastRun:      toRunResponse(*run),
		TotalMatched: resolved,
		TotalOrders:  run.Orders,
	}
	if run.Orders > 0 {
		response.MatchRate = float64(resolved) / float64(run.Orders)
	}
	if state != nil {
		response.LedgerEntries = len(state.MatchedPairs)
	}

	h.WriteJSON(c, http.StatusOK, response)
}
