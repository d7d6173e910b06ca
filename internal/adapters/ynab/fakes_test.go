package ynab

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeAPI is an in-memory TransactionAPI with scripted failures.
type fakeAPI struct {
	mu           sync.Mutex
	transactions []RemoteTransaction
	listCalls    int
	listFailures int // the first N list calls fail
	updateErr    map[string]error
	memos        map[string]string
}

var errUnavailable = errors.New("ynab unavailable")

func newFakeAPI(txns ...RemoteTransaction) *fakeAPI {
	return &fakeAPI{
		transactions: txns,
		updateErr:    make(map[string]error),
		memos:        make(map[string]string),
	}
}

func (f *fakeAPI) ListTransactions(ctx context.Context, budgetID string, since time.Time) ([]RemoteTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	if f.listCalls <= f.listFailures {
		return nil, errUnavailable
	}
	var out []RemoteTransaction
	for _, t := range f.transactions {
		if since.IsZero() || !t.Date.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeAPI) UpdateMemo(ctx context.Context, budgetID, transactionID, memo string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.updateErr[transactionID]; err != nil {
		return err
	}
	f.memos[transactionID] = memo
	return nil
}

func remote(id string, day int, amount int64, payee string) RemoteTransaction {
	return RemoteTransaction{
		ID:          id,
		Date:        time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Amount:      amount,
		PayeeName:   payee,
		AccountName: "Chase Sapphire",
	}
}
