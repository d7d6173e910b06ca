package dto

// StartJobRequest is the request body for starting a background run.
type StartJobRequest struct {
	DryRun         bool  `json:"dry_run"`                   // Preview mode
	IncludeBatches *bool `json:"include_batches,omitempty"` // Run the batch pass (default true)
	LookbackDays   int   `json:"lookback_days"`             // How many days to look back (default 30)
	MaxOrders      int   `json:"max_orders"`                // Max orders to consider (0 = all)
}

// StartJobResponse is returned when a run is started.
type StartJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResponse represents a background run's status.
type JobResponse struct {
	JobID       string             `json:"job_id"`
	Status      string             `json:"status"`
	DryRun      bool               `json:"dry_run"`
	StartedAt   string             `json:"started_at"`
	CompletedAt *string            `json:"completed_at,omitempty"`
	Result      *JobResultResponse `json:"result,omitempty"`
	Error       *string            `json:"error,omitempty"`
}

// JobResultResponse summarizes a finished run.
type JobResultResponse struct {
	RunID             string `json:"run_id"`
	Matches           int    `json:"matches"`
	BatchMatches      int    `json:"batch_matches"`
	PreviouslyMatched int    `json:"previously_matched"`
	UnmatchedAmazon   int    `json:"unmatched_amazon"`
	UnmatchedYnab     int    `json:"unmatched_ynab"`
	MemosWritten      int    `json:"memos_written"`
}

// JobListResponse lists background runs.
type JobListResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count"`
}
