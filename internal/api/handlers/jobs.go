package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/amazon-ynab-sync/internal/api/dto"
	"github.com/eshaffer321/amazon-ynab-sync/internal/application/service"
)

// JobsHandler handles background run requests.
type JobsHandler struct {
	*Base
	runService *service.RunService
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(runService *service.RunService) *JobsHandler {
	return &JobsHandler{
		Base:       &Base{},
		runService: runService,
	}
}

// Start handles POST /api/jobs - starts a background reconcile run.
func (h *JobsHandler) Start(c *gin.Context) {
	var req dto.StartJobRequest
	// An empty body means "all defaults"
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.WriteError(c, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
			return
		}
	}
	if req.LookbackDays < 0 || req.MaxOrders < 0 {
		h.WriteError(c, http.StatusBadRequest, dto.ValidationError("lookback_days and max_orders must not be negative"))
		return
	}

	includeBatches := true
	if req.IncludeBatches != nil {
		includeBatches = *req.IncludeBatches
	}

	jobID, err := h.runService.StartRun(c.Request.Context(), service.RunRequest{
		DryRun:         req.DryRun,
		IncludeBatches: includeBatches,
		LookbackDays:   req.LookbackDays,
		MaxOrders:      req.MaxOrders,
	})
	if err != nil {
		status, apiErr := dto.FromError(err)
		h.WriteError(c, status, apiErr)
		return
	}

	h.WriteJSON(c, http.StatusAccepted, dto.StartJobResponse{
		JobID:  jobID,
		Status: string(service.StatusRunning),
	})
}

// List handles GET /api/jobs - lists background runs, newest first.
func (h *JobsHandler) List(c *gin.Context) {
	jobs := h.runService.ListJobs()

	response := dto.JobListResponse{
		Jobs:  make([]dto.JobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toJobResponse(job))
	}

	h.WriteJSON(c, http.StatusOK, response)
}

// Get handles GET /api/jobs/:id - returns a job's status.
func (h *JobsHandler) Get(c *gin.Context) {
	job, err := h.runService.GetJob(c.Param("id"))
	if err != nil {
		h.WriteError(c, http.StatusNotFound, dto.NotFoundError("job"))
		return
	}

	h.WriteJSON(c, http.StatusOK, toJobResponse(job))
}

// Cancel handles DELETE /api/jobs/:id - cancels a running job.
func (h *JobsHandler) Cancel(c *gin.Context) {
	if err := h.runService.CancelJob(c.Param("id")); err != nil {
		status, apiErr := dto.FromError(err)
		h.WriteError(c, status, apiErr)
		return
	}
	h.WriteJSON(c, http.StatusOK, dto.MessageResponse{Message: "job cancelled"})
}

// toJobResponse converts a service model to an API response.
func toJobResponse(job service.Job) dto.JobResponse {
	response := dto.JobResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		DryRun:    job.Request.DryRun,
		StartedAt: job.StartedAt.Format(time.RFC3339),
	}
	if job.CompletedAt != nil {
		completed := job.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completed
	}
	if job.Error != "" {
		msg := job.Error
		response.Error = &msg
	}
	if r := job.Result; r != nil {
		response.Result = &dto.JobResultResponse{
			RunID:             r.RunID,
			Matches:           len(r.Matches),
			BatchMatches:      len(r.BatchMatches),
			PreviouslyMatched: len(r.PreviouslyMatched),
			UnmatchedAmazon:   len(r.UnmatchedAmazon),
			UnmatchedYnab:     len(r.UnmatchedYnab),
		}
		if r.Memos != nil {
			response.Result.MemosWritten = r.Memos.Written
		}
	}
	return response
}
