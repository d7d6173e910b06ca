package dto

import "github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"

// ReconcileRequest is the body of a stateless match request.
type ReconcileRequest struct {
	Orders         []matcher.AmazonOrder     `json:"orders"`
	Transactions   []matcher.YnabTransaction `json:"transactions"`
	IncludeBatches bool                      `json:"include_batches"`
}

// ReconcileResponse is the outcome of a stateless match request.
type ReconcileResponse struct {
	Matches         []matcher.MatchRecord      `json:"matches"`
	BatchMatches    []matcher.BatchMatchRecord `json:"batch_matches"`
	UnmatchedAmazon []matcher.AmazonOrder      `json:"unmatched_amazon"`
	UnmatchedYnab   []matcher.YnabTransaction  `json:"unmatched_ynab"`
	Statistics      matcher.Statistics         `json:"statistics"`
}
