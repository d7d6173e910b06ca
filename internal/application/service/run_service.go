// Package service runs reconciliations in the background for the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/amazon-ynab-sync/internal/application/reconcile"
)

// JobStatus represents the current state of a run job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// DefaultJobMaxDuration is how long a job may run before MarkStaleJobsAsFailed
// gives up on it.
const DefaultJobMaxDuration = 30 * time.Minute

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrRunInProgress     = errors.New("a reconcile run is already in progress")
	ErrJobNotCancellable = errors.New("job cannot be cancelled")
)

// Runner performs one reconciliation. *reconcile.Service implements it.
type Runner interface {
	Run(ctx context.Context, opts reconcile.Options) (*reconcile.Result, error)
}

// RunRequest holds parameters for starting a run.
type RunRequest struct {
	DryRun         bool
	IncludeBatches bool
	LookbackDays   int
	MaxOrders      int
}

func (r RunRequest) options() reconcile.Options {
	return reconcile.Options{
		DryRun:         r.DryRun,
		IncludeBatches: r.IncludeBatches,
		LookbackDays:   r.LookbackDays,
		MaxOrders:      r.MaxOrders,
	}
}

// Job is a running or finished background run.
type Job struct {
	ID          string
	Status      JobStatus
	Request     RunRequest
	StartedAt   time.Time
	CompletedAt *time.Time
	Result      *reconcile.Result
	Error       string
	cancelFunc  context.CancelFunc
}

// RunService manages background runs. Only one run executes at a time.
type RunService struct {
	runner Runner
	logger *slog.Logger
	now    func() time.Time

	jobs      map[string]*Job
	jobsMutex sync.RWMutex

	running sync.Mutex
}

// NewRunService creates a new run service.
func NewRunService(runner Runner, logger *slog.Logger) *RunService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunService{
		runner: runner,
		logger: logger,
		now:    time.Now,
		jobs:   make(map[string]*Job),
	}
}

// StartRun starts a run asynchronously and returns its job ID.
// The background job does not inherit the caller's context, so it outlives
// the HTTP request that started it. Use CancelJob to stop it.
func (s *RunService) StartRun(_ context.Context, req RunRequest) (string, error) {
	if s.runner == nil {
		return "", fmt.Errorf("no runner configured")
	}
	if !s.running.TryLock() {
		return "", ErrRunInProgress
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:         uuid.NewString(),
		Status:     StatusRunning,
		Request:    req,
		StartedAt:  s.now(),
		cancelFunc: cancel,
	}

	s.jobsMutex.Lock()
	s.jobs[job.ID] = job
	s.jobsMutex.Unlock()

	go s.runJob(jobCtx, job.ID, req)

	s.logger.Info("run job started",
		"job_id", job.ID,
		"dry_run", req.DryRun,
		"include_batches", req.IncludeBatches,
	)
	return job.ID, nil
}

// GetJob returns a snapshot of the job.
func (s *RunService) GetJob(jobID string) (Job, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return *job, nil
}

// ListJobs returns snapshots of all jobs, newest first.
func (s *RunService) ListJobs() []Job {
	s.jobsMutex.RLock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	s.jobsMutex.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.After(jobs[j].StartedAt)
	})
	return jobs
}

// CancelJob cancels a running job.
func (s *RunService) CancelJob(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status != StatusPending && job.Status != StatusRunning {
		return fmt.Errorf("%w: status=%s", ErrJobNotCancellable, job.Status)
	}

	job.cancelFunc()
	now := s.now()
	job.Status = StatusCancelled
	job.CompletedAt = &now

	s.logger.Info("run job cancelled", "job_id", jobID)
	return nil
}

func (s *RunService) runJob(ctx context.Context, jobID string, req RunRequest) {
	defer s.running.Unlock()

	result, err := s.runner.Run(ctx, req.options())

	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, ok := s.jobs[jobID]
	// Cancelled or marked stale while running: keep that outcome
	if !ok || job.Status != StatusRunning {
		return
	}

	now := s.now()
	job.CompletedAt = &now
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		s.logger.Error("run job failed", "job_id", jobID, "error", err)
		return
	}

	job.Status = StatusCompleted
	job.Result = result
	s.logger.Info("run job completed",
		"job_id", jobID,
		"run_id", result.RunID,
		"matches", len(result.Matches),
		"batch_matches", len(result.BatchMatches),
	)
}

// CleanupOldJobs removes finished jobs that completed more than maxAge ago.
func (s *RunService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for id, job := range s.jobs {
		if job.Status == StatusPending || job.Status == StatusRunning {
			continue
		}
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("cleaned up old run jobs", "removed", removed)
	}
	return removed
}

// MarkStaleJobsAsFailed cancels and fails jobs running longer than maxDuration.
// The run lock is released when the cancelled goroutine returns.
func (s *RunService) MarkStaleJobsAsFailed(maxDuration time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	now := s.now()
	marked := 0
	for id, job := range s.jobs {
		if job.Status != StatusRunning && job.Status != StatusPending {
			continue
		}
		elapsed := now.Sub(job.StartedAt)
		if elapsed <= maxDuration {
			continue
		}

		if job.cancelFunc != nil {
			job.cancelFunc()
		}
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = fmt.Sprintf("job marked as stale: exceeded max duration of %v", maxDuration)

		s.logger.Warn("marked stale job as failed",
			"job_id", id,
			"started_at", job.StartedAt,
			"elapsed", elapsed.Round(time.Second),
		)
		marked++
	}
	return marked
}
