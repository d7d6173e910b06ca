package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/amazon-ynab-sync/internal/api/dto"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/storage"
)

// RunsHandler handles reconcile run history requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns recent runs, newest first.
func (h *RunsHandler) List(c *gin.Context) {
	limit := ParseIntParam(c, "limit", storage.DefaultRunLimit)

	runs, err := h.repo.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunListResponse{
		Runs:  make([]dto.RunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	h.WriteJSON(c, http.StatusOK, response)
}

// Get handles GET /api/runs/:id - returns a single run.
func (h *RunsHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return
	}

	run, err := h.repo.GetRun(c.Request.Context(), id)
	if err != nil {
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if run == nil {
		h.WriteError(c, http.StatusNotFound, dto.NotFoundError("run"))
		return
	}

	h.WriteJSON(c, http.StatusOK, toRunResponse(*run))
}

// toRunResponse converts a storage model to an API response.
func toRunResponse(run storage.Run) dto.RunResponse {
	response := dto.RunResponse{
		ID:                run.ID,
		StartedAt:         run.StartedAt.Format(time.RFC3339),
		DryRun:            run.DryRun,
		Orders:            run.Orders,
		Transactions:      run.Transactions,
		Matches:           run.Matches,
		BatchMatches:      run.BatchMatches,
		PreviouslyMatched: run.PreviouslyMatched,
		UnmatchedAmazon:   run.UnmatchedAmazon,
		UnmatchedYnab:     run.UnmatchedYnab,
		AvgConfidence:     run.AvgConfidence,
		Status:            run.Status,
		Error:             run.Error,
	}
	if run.CompletedAt != nil {
		completed := run.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completed
	}
	return response
}
