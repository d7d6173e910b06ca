package storage

import (
	"context"

	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matchstate"
)

// stateOverride serves match state from a separate store while run history
// and memo audits stay in the wrapped repository.
type stateOverride struct {
	Repository
	state matchstate.Store
}

// WithStateStore returns repo with Load and Save redirected to state. Used when
// the ledger lives in a JSON file but run history is kept in SQLite.
func WithStateStore(repo Repository, state matchstate.Store) Repository {
	if state == nil {
		return repo
	}
	return &stateOverride{Repository: repo, state: state}
}

func (s *stateOverride) Load(ctx context.Context) (*matchstate.State, error) {
	return s.state.Load(ctx)
}

func (s *stateOverride) Save(ctx context.Context, state *matchstate.State) error {
	return s.state.Save(ctx, state)
}
