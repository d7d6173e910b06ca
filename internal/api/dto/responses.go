package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a healthy response stamped with the current time.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// MessageResponse is a simple message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// RunResponse represents a reconcile run in API responses.
type RunResponse struct {
	ID                string  `json:"id"`
	StartedAt         string  `json:"started_at"`
	CompletedAt       *string `json:"completed_at,omitempty"`
	DryRun            bool    `json:"dry_run"`
	Orders            int     `json:"orders"`
	Transactions      int     `json:"transactions"`
	Matches           int     `json:"matches"`
	BatchMatches      int     `json:"batch_matches"`
	PreviouslyMatched int     `json:"previously_matched"`
	UnmatchedAmazon   int     `json:"unmatched_amazon"`
	UnmatchedYnab     int     `json:"unmatched_ynab"`
	AvgConfidence     float64 `json:"avg_confidence"`
	Status            string  `json:"status"`
	Error             string  `json:"error,omitempty"`
}

// RunListResponse is returned when listing runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// MatchedPairResponse is one ledger entry.
type MatchedPairResponse struct {
	AmazonOrderID     string `json:"amazon_order_id"`
	YnabTransactionID string `json:"ynab_transaction_id"`
	MatchedAt         string `json:"matched_at"`
}

// MatchListResponse is returned when listing ledger pairs.
type MatchListResponse struct {
	Matches []MatchedPairResponse `json:"matches"`
	Count   int                   `json:"count"`
	LastRun *string               `json:"last_run,omitempty"`
}

// StatsResponse summarizes the latest completed run.
type StatsResponse struct {
	LastRun       RunResponse `json:"last_run"`
	TotalMatched  int         `json:"total_matched"`
	TotalOrders   int         `json:"total_orders"`
	MatchRate     float64     `json:"match_rate"`
	LedgerEntries int         `json:"ledger_entries"`
}
