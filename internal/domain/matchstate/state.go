// Package matchstate keeps a durable ledger of reconciled order/transaction
// pairs so that repeated runs skip orders an earlier run already matched.
//
// The ledger is backed by a Store. FileStore writes a JSON document; the
// storage package provides a SQLite-backed Store.
package matchstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrMalformedTimestamp = errors.New("malformed timestamp")

// Pair is one reconciled order/transaction pair.
type Pair struct {
	AmazonOrderID     string    `json:"amazon_order_id"`
	YnabTransactionID string    `json:"ynab_transaction_id"`
	MatchedAt         time.Time `json:"matched_at"`
}

// State is the persisted ledger document.
type State struct {
	MatchedPairs []Pair     `json:"matched_pairs"`
	LastRun      *time.Time `json:"last_run"`
}

// Store loads and saves ledger state.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
}

// timestampLayouts are tried in order. Timestamps without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
}

// UnmarshalJSON accepts zoned and zone-less ISO-8601 timestamps.
func (p *Pair) UnmarshalJSON(data []byte) error {
	var raw struct {
		AmazonOrderID     string `json:"amazon_order_id"`
		YnabTransactionID string `json:"ynab_transaction_id"`
		MatchedAt         string `json:"matched_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	matchedAt, err := parseTimestamp(raw.MatchedAt)
	if err != nil {
		return fmt.Errorf("pair %s: %w", raw.AmazonOrderID, err)
	}

	*p = Pair{
		AmazonOrderID:     raw.AmazonOrderID,
		YnabTransactionID: raw.YnabTransactionID,
		MatchedAt:         matchedAt,
	}
	return nil
}

// UnmarshalJSON accepts a null, zoned or zone-less last_run.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw struct {
		MatchedPairs []Pair  `json:"matched_pairs"`
		LastRun      *string `json:"last_run"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = State{MatchedPairs: raw.MatchedPairs}
	if raw.LastRun != nil && *raw.LastRun != "" {
		lastRun, err := parseTimestamp(*raw.LastRun)
		if err != nil {
			return fmt.Errorf("last_run: %w", err)
		}
		s.LastRun = &lastRun
	}
	return nil
}

// clone returns a deep copy safe to hand to a Store.
func (s *State) clone() *State {
	out := &State{MatchedPairs: make([]Pair, len(s.MatchedPairs))}
	copy(out.MatchedPairs, s.MatchedPairs)
	if s.LastRun != nil {
		lastRun := *s.LastRun
		out.LastRun = &lastRun
	}
	return out
}
