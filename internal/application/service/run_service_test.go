package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/amazon-ynab-sync/internal/application/reconcile"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/logging"
)

// blockingRunner blocks until release is closed or ctx is cancelled.
type blockingRunner struct {
	release chan struct{}
	err     error
	opts    chan reconcile.Options
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		release: make(chan struct{}),
		opts:    make(chan reconcile.Options, 1),
	}
}

func (r *blockingRunner) Run(ctx context.Context, opts reconcile.Options) (*reconcile.Result, error) {
	r.opts <- opts
	select {
	case <-r.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	return &reconcile.Result{RunID: "run-1", DryRun: opts.DryRun}, nil
}

func newTestService(runner Runner) *RunService {
	return NewRunService(runner, logging.Discard())
}

func waitForStatus(t *testing.T, svc *RunService, jobID string, want JobStatus) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		var err error
		job, err = svc.GetJob(jobID)
		return err == nil && job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestRunService_StartRun_Completes(t *testing.T) {
	// Arrange
	runner := newBlockingRunner()
	svc := newTestService(runner)

	// Act
	jobID, err := svc.StartRun(context.Background(), RunRequest{DryRun: true, IncludeBatches: true, LookbackDays: 7})
	require.NoError(t, err)
	opts := <-runner.opts
	close(runner.release)

	// Assert
	job := waitForStatus(t, svc, jobID, StatusCompleted)
	assert.True(t, opts.DryRun)
	assert.True(t, opts.IncludeBatches)
	assert.Equal(t, 7, opts.LookbackDays)
	require.NotNil(t, job.Result)
	assert.Equal(t, "run-1", job.Result.RunID)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.Error)
}

func TestRunService_StartRun_Failure(t *testing.T) {
	runner := newBlockingRunner()
	runner.err = errors.New("ynab unavailable")
	svc := newTestService(runner)

	jobID, err := svc.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)
	<-runner.opts
	close(runner.release)

	job := waitForStatus(t, svc, jobID, StatusFailed)
	assert.Equal(t, "ynab unavailable", job.Error)
	assert.Nil(t, job.Result)
}

func TestRunService_OneRunAtATime(t *testing.T) {
	runner := newBlockingRunner()
	svc := newTestService(runner)

	first, err := svc.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)
	<-runner.opts

	_, err = svc.StartRun(context.Background(), RunRequest{})
	assert.True(t, errors.Is(err, ErrRunInProgress))

	close(runner.release)
	waitForStatus(t, svc, first, StatusCompleted)

	// The lock is released once the first job finishes
	require.Eventually(t, func() bool {
		_, err := svc.StartRun(context.Background(), RunRequest{})
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRunService_StartRun_NoRunner(t *testing.T) {
	svc := newTestService(nil)

	_, err := svc.StartRun(context.Background(), RunRequest{})

	assert.Error(t, err)
}

func TestRunService_CancelJob(t *testing.T) {
	runner := newBlockingRunner()
	svc := newTestService(runner)
	jobID, err := svc.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)
	<-runner.opts

	require.NoError(t, svc.CancelJob(jobID))

	job, err := svc.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, job.Status)

	// Cancelling twice is rejected
	err = svc.CancelJob(jobID)
	assert.True(t, errors.Is(err, ErrJobNotCancellable))

	// The goroutine exits and does not overwrite the cancelled status
	require.Eventually(t, func() bool {
		_, err := svc.StartRun(context.Background(), RunRequest{})
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)
	job, _ = svc.GetJob(jobID)
	assert.Equal(t, StatusCancelled, job.Status)
}

func TestRunService_NotFound(t *testing.T) {
	svc := newTestService(newBlockingRunner())

	_, err := svc.GetJob("missing")
	assert.True(t, errors.Is(err, ErrJobNotFound))

	err = svc.CancelJob("missing")
	assert.True(t, errors.Is(err, ErrJobNotFound))
}

func TestRunService_ListJobs_NewestFirst(t *testing.T) {
	svc := newTestService(nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.jobs["old"] = &Job{ID: "old", Status: StatusCompleted, StartedAt: base}
	svc.jobs["new"] = &Job{ID: "new", Status: StatusCompleted, StartedAt: base.Add(time.Hour)}

	jobs := svc.ListJobs()

	require.Len(t, jobs, 2)
	assert.Equal(t, "new", jobs[0].ID)
	assert.Equal(t, "old", jobs[1].ID)
}

func TestRunService_CleanupOldJobs(t *testing.T) {
	svc := newTestService(nil)
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	old := now.Add(-2 * time.Hour)
	recent := now.Add(-time.Minute)
	svc.jobs["old"] = &Job{ID: "old", Status: StatusCompleted, CompletedAt: &old}
	svc.jobs["recent"] = &Job{ID: "recent", Status: StatusFailed, CompletedAt: &recent}
	svc.jobs["running"] = &Job{ID: "running", Status: StatusRunning, StartedAt: old}

	removed := svc.CleanupOldJobs(time.Hour)

	assert.Equal(t, 1, removed)
	_, err := svc.GetJob("old")
	assert.Error(t, err)
	_, err = svc.GetJob("recent")
	assert.NoError(t, err)
	_, err = svc.GetJob("running")
	assert.NoError(t, err)
}

func TestRunService_MarkStaleJobsAsFailed(t *testing.T) {
	svc := newTestService(nil)
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.jobs["stale"] = &Job{ID: "stale", Status: StatusRunning, StartedAt: now.Add(-time.Hour), cancelFunc: cancel}
	svc.jobs["healthy"] = &Job{ID: "healthy", Status: StatusRunning, StartedAt: now.Add(-time.Minute)}

	marked := svc.MarkStaleJobsAsFailed(DefaultJobMaxDuration)

	assert.Equal(t, 1, marked)
	stale, err := svc.GetJob("stale")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stale.Status)
	assert.Contains(t, stale.Error, "stale")
	assert.Error(t, ctx.Err(), "stale job context is cancelled")

	healthy, err := svc.GetJob("healthy")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, healthy.Status)
}
