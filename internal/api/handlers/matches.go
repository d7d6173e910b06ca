package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/amazon-ynab-sync/internal/api/dto"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/storage"
)

// MatchesHandler exposes the match-state ledger.
type MatchesHandler struct {
	*Base
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(repo storage.Repository) *MatchesHandler {
	return &MatchesHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/matches - returns ledger pairs, newest first.
// Optional filters: order_id, transaction_id.
func (h *MatchesHandler) List(c *gin.Context) {
	state, err := h.repo.Load(c.Request.Context())
	if err != nil {
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
		return
	}

	orderID := c.Query("order_id")
	txnID := c.Query("transaction_id")

	response := dto.MatchListResponse{Matches: []dto.MatchedPairResponse{}}
	if state == nil {
		h.WriteJSON(c, http.StatusOK, response)
		return
	}

	pairs := state.MatchedPairs
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].MatchedAt.After(pairs[j].MatchedAt)
	})
	for _, p := range pairs {
		if orderID != "" && p.AmazonOrderID != orderID {
			continue
		}
		if txnID != "" && p.YnabTransactionID != txnID {
			continue
		}
		response.Matches = append(response.Matches, dto.MatchedPairResponse{
			AmazonOrderID:     p.AmazonOrderID,
			YnabTransactionID: p.YnabTransactionID,
			MatchedAt:         p.MatchedAt.Format(time.RFC3339),
		})
	}
	response.Count = len(response.Matches)
	if state.LastRun != nil {
		lastRun := state.LastRun.Format(time.RFC3339)
		response.LastRun = &lastRun
	}

	h.WriteJSON(c, http.StatusOK, response)
}
