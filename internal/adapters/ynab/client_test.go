package ynab

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/logging"
)

func newTestClient(api TransactionAPI, opts Options) *Client {
	opts.Logger = logging.Discard()
	opts.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return NewClient(api, opts)
}

func TestClient_FetchTransactions(t *testing.T) {
	// Arrange
	deleted := remote("Y3", 5, -1000, "Amazon.com")
	deleted.Deleted = true
	api := newFakeAPI(
		remote("Y1", 3, -25980, "Amazon.com"),
		remote("Y2", 4, -4200, "Whole Foods"),
		deleted,
		remote("Y4", 6, -1999, "AMZN Mktp US"),
	)
	client := newTestClient(api, Options{BudgetID: "budget-1", AmazonOnly: true})

	// Act
	txns, err := client.FetchTransactions(context.Background(), time.Time{})

	// Assert
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "Y1", txns[0].ID)
	assert.Equal(t, int64(-25980), txns[0].Amount)
	assert.Equal(t, "Chase Sapphire", txns[0].AccountName)
	assert.Equal(t, "Y4", txns[1].ID)
}

func TestClient_FetchTransactionsAllPayees(t *testing.T) {
	api := newFakeAPI(remote("Y1", 3, -1000, "Amazon.com"), remote("Y2", 4, -2000, "Target"))
	client := newTestClient(api, Options{})

	txns, err := client.FetchTransactions(context.Background(), time.Time{})

	require.NoError(t, err)
	assert.Len(t, txns, 2)
	assert.Equal(t, "last-used", client.BudgetID())
}

func TestClient_FetchTransactionsSkipsInvalid(t *testing.T) {
	api := newFakeAPI(remote("", 3, -1000, "Amazon"), remote("Y2", 4, -2000, "Amazon"))
	client := newTestClient(api, Options{})

	txns, err := client.FetchTransactions(context.Background(), time.Time{})

	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "Y2", txns[0].ID)
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	api := newFakeAPI(remote("Y1", 3, -1000, "Amazon"))
	api.listFailures = 2
	client := newTestClient(api, Options{MaxRetries: 3})

	txns, err := client.FetchTransactions(context.Background(), time.Time{})

	require.NoError(t, err)
	assert.Len(t, txns, 1)
	assert.Equal(t, 3, api.listCalls)
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	api := newFakeAPI()
	api.listFailures = 10
	client := newTestClient(api, Options{MaxRetries: 2})

	_, err := client.FetchTransactions(context.Background(), time.Time{})

	assert.True(t, errors.Is(err, errUnavailable))
	assert.Equal(t, 3, api.listCalls, "one attempt plus two retries")
}

func TestClient_UsesCache(t *testing.T) {
	// Arrange
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	cache := NewCache(time.Minute, func() time.Time { return now })
	api := newFakeAPI(remote("Y1", 3, -1000, "Amazon"))
	client := newTestClient(api, Options{Cache: cache})
	ctx := context.Background()

	// Act
	_, err := client.FetchTransactions(ctx, time.Time{})
	require.NoError(t, err)
	_, err = client.FetchTransactions(ctx, time.Time{})
	require.NoError(t, err)

	// Assert
	assert.Equal(t, 1, api.listCalls, "second fetch is served from cache")

	// A memo write invalidates the cache
	require.NoError(t, client.UpdateMemo(ctx, "Y1", "Amazon: Thing"))
	_, err = client.FetchTransactions(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, api.listCalls)
	assert.Equal(t, "Amazon: Thing", api.memos["Y1"])
}
