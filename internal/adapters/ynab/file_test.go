package ynab

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportJSON = `[
	{"id": "Y1", "date": "2024-01-03", "amount": -25980, "payee_name": "Amazon.com", "account_name": "Chase Sapphire", "account_id": "acc-1", "memo": ""},
	{"id": "Y2", "date": "2024-01-10", "amount": -4200, "payee_name": "Amazon.com", "account_name": "Chase Sapphire"},
	{"id": "Y3", "date": "2024-01-11", "amount": -100, "payee_name": "Amazon.com", "deleted": true}
]`

func writeExport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transactions.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadTransactionsFile(t *testing.T) {
	txns, err := LoadTransactionsFile(writeExport(t, exportJSON))

	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "Y1", txns[0].ID)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), txns[0].Date)
	assert.Equal(t, "acc-1", txns[0].AccountID)
	assert.Equal(t, "25.98", txns[0].AmountDollars().StringFixed(2))
}

func TestLoadTransactionsFile_Errors(t *testing.T) {
	_, err := LoadTransactionsFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadTransactionsFile(writeExport(t, `{"not": "an array"}`))
	assert.Error(t, err)

	_, err = LoadTransactionsFile(writeExport(t, `[{"id": "Y1", "date": "soon", "amount": 1}]`))
	assert.Error(t, err)
}

func TestFileSource_FetchTransactionsSince(t *testing.T) {
	source := NewFileSource(writeExport(t, exportJSON))

	txns, err := source.FetchTransactions(context.Background(), time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "Y2", txns[0].ID)
}
