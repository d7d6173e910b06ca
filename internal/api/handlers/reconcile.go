package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/amazon-ynab-sync/internal/api/dto"
	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
)

// ReconcileHandler matches posted orders and transactions without touching
// the ledger or YNAB.
type ReconcileHandler struct {
	*Base
	config matcher.Config
	logger *slog.Logger
}

// NewReconcileHandler creates a new reconcile handler.
func NewReconcileHandler(config matcher.Config, logger *slog.Logger) *ReconcileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileHandler{
		Base:   &Base{},
		config: config,
		logger: logger,
	}
}

// Match handles POST /api/reconcile - runs a stateless match.
func (h *ReconcileHandler) Match(c *gin.Context) {
	var req dto.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if status, apiErr := dto.FromError(err); status == http.StatusBadRequest {
			h.WriteError(c, status, apiErr)
			return
		}
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	// No state tracker: nothing is skipped as previously matched and nothing is saved
	m, err := matcher.NewMatcher(h.config, nil, h.logger)
	if err != nil {
		h.logger.Error("invalid matcher config", "error", err)
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
		return
	}

	var full *matcher.FullResult
	if req.IncludeBatches {
		full, err = m.MatchWithBatches(c.Request.Context(), req.Orders, req.Transactions)
	} else {
		var res *matcher.MatchResult
		res, err = m.MatchTransactions(c.Request.Context(), req.Orders, req.Transactions)
		if res != nil {
			full = &matcher.FullResult{
				Matches:         res.Matches,
				UnmatchedAmazon: res.UnmatchedAmazon,
				UnmatchedYnab:   res.UnmatchedYnab,
			}
		}
	}
	if err != nil {
		status, apiErr := dto.FromError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("reconcile failed", "error", err)
		}
		h.WriteError(c, status, apiErr)
		return
	}

	h.WriteJSON(c, http.StatusOK, toReconcileResponse(full))
}

// toReconcileResponse replaces nil slices so clients always see arrays.
func toReconcileResponse(full *matcher.FullResult) dto.ReconcileResponse {
	response := dto.ReconcileResponse{
		Matches:         full.Matches,
		BatchMatches:    full.BatchMatches,
		UnmatchedAmazon: full.UnmatchedAmazon,
		UnmatchedYnab:   full.UnmatchedYnab,
		Statistics:      matcher.GetMatchStatistics(full.Matches),
	}
	if response.Matches == nil {
		response.Matches = []matcher.MatchRecord{}
	}
	if response.BatchMatches == nil {
		response.BatchMatches = []matcher.BatchMatchRecord{}
	}
	if response.UnmatchedAmazon == nil {
		response.UnmatchedAmazon = []matcher.AmazonOrder{}
	}
	if response.UnmatchedYnab == nil {
		response.UnmatchedYnab = []matcher.YnabTransaction{}
	}
	return response
}
