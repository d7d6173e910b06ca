package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matchstate"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	mu          sync.Mutex
	state       *matchstate.State
	runs        map[string]*Run
	runOrder    []string
	memoUpdates []MemoUpdate
	nextMemoID  int64

	// Hooks for test assertions
	SaveCalled       int
	LastSavedState   *matchstate.State
	StartRunCalled   bool
	CompleteRunCalls int
	FailRunCalls     int

	// Error injection for testing error paths
	LoadErr        error
	SaveErr        error
	StartRunErr    error
	CompleteRunErr error
	LogMemoErr     error
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		runs:       make(map[string]*Run),
		nextMemoID: 1,
	}
}

// Load returns the last saved state
func (m *MockRepository) Load(ctx context.Context) (*matchstate.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.state == nil {
		return &matchstate.State{}, nil
	}
	return copyState(m.state), nil
}

// Save stores a copy of state
func (m *MockRepository) Save(ctx context.Context, state *matchstate.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalled++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.state = copyState(state)
	m.LastSavedState = copyState(state)
	return nil
}

// StartRun records the start of a run
func (m *MockRepository) StartRun(ctx context.Context, runID string, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StartRunCalled = true
	if m.StartRunErr != nil {
		return m.StartRunErr
	}
	if _, exists := m.runs[runID]; exists {
		return fmt.Errorf("run %s already exists", runID)
	}
	m.runs[runID] = &Run{
		ID:        runID,
		StartedAt: time.Now().UTC(),
		DryRun:    dryRun,
		Status:    RunStatusRunning,
	}
	m.runOrder = append(m.runOrder, runID)
	return nil
}

// CompleteRun records the outcome of a run
func (m *MockRepository) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompleteRunCalls++
	if m.CompleteRunErr != nil {
		return m.CompleteRunErr
	}
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.Orders = summary.Orders
	run.Transactions = summary.Transactions
	run.Matches = summary.Matches
	run.BatchMatches = summary.BatchMatches
	run.PreviouslyMatched = summary.PreviouslyMatched
	run.UnmatchedAmazon = summary.UnmatchedAmazon
	run.UnmatchedYnab = summary.UnmatchedYnab
	run.AvgConfidence = summary.AvgConfidence
	run.Status = RunStatusCompleted
	return nil
}

// FailRun marks a run as failed
func (m *MockRepository) FailRun(ctx context.Context, runID string, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FailRunCalls++
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.Status = RunStatusFailed
	run.Error = errMsg
	return nil
}

// ListRuns returns runs newest first
func (m *MockRepository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = DefaultRunLimit
	}
	runs := make([]Run, 0, len(m.runOrder))
	for i := len(m.runOrder) - 1; i >= 0 && len(runs) < limit; i-- {
		runs = append(runs, *m.runs[m.runOrder[i]])
	}
	return runs, nil
}

// GetRun retrieves a run by ID
func (m *MockRepository) GetRun(ctx context.Context, runID string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return nil, nil
	}
	out := *run
	return &out, nil
}

// LatestCompletedRun returns the most recently started completed run
func (m *MockRepository) LatestCompletedRun(ctx context.Context) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.runOrder) - 1; i >= 0; i-- {
		run := m.runs[m.runOrder[i]]
		if run.Status == RunStatusCompleted {
			out := *run
			return &out, nil
		}
	}
	return nil, nil
}

// LogMemoUpdate records a memo write
func (m *MockRepository) LogMemoUpdate(ctx context.Context, update *MemoUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LogMemoErr != nil {
		return m.LogMemoErr
	}
	update.ID = m.nextMemoID
	m.nextMemoID++
	if update.CreatedAt.IsZero() {
		update.CreatedAt = time.Now().UTC()
	}
	m.memoUpdates = append(m.memoUpdates, *update)
	return nil
}

// ListMemoUpdates returns memo writes for a run
func (m *MockRepository) ListMemoUpdates(ctx context.Context, runID string) ([]MemoUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	updates := make([]MemoUpdate, 0)
	for _, u := range m.memoUpdates {
		if u.RunID == runID {
			updates = append(updates, u)
		}
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].ID < updates[j].ID })
	return updates, nil
}

// Close is a no-op
func (m *MockRepository) Close() error {
	return nil
}

func copyState(s *matchstate.State) *matchstate.State {
	out := &matchstate.State{MatchedPairs: append([]matchstate.Pair(nil), s.MatchedPairs...)}
	if s.LastRun != nil {
		t := *s.LastRun
		out.LastRun = &t
	}
	return out
}
