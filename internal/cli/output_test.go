package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/amazon-ynab-sync/internal/adapters/ynab"
	"github.com/eshaffer321/amazon-ynab-sync/internal/application/reconcile"
	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matchstate"
)

func sampleResult() *reconcile.Result {
	jan := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	matches := []matcher.MatchRecord{{
		AmazonOrderID:     "112-1",
		YnabTransactionID: "Y1",
		Confidence:        93,
		AmazonDate:        jan(15),
		AmazonTotal:       decimal.RequireFromString("25.98"),
	}}
	return &reconcile.Result{
		RunID:        "run-1",
		DryRun:       true,
		Orders:       4,
		Transactions: 3,
		Matches:      matches,
		BatchMatches: []matcher.BatchMatchRecord{{
			Type:             matcher.ConsolidatedCharge,
			AmazonOrders:     []matcher.AmazonOrder{{OrderID: "112-2"}, {OrderID: "112-3"}},
			YnabTransactions: []matcher.YnabTransaction{{ID: "Y2"}},
			AmazonTotal:      decimal.RequireFromString("40.00"),
			Confidence:       90,
		}},
		UnmatchedAmazon: []matcher.AmazonOrder{{OrderID: "112-4", Date: jan(18), Total: decimal.RequireFromString("7.50")}},
		UnmatchedYnab:   []matcher.YnabTransaction{{ID: "Y9", Date: jan(19), Amount: -12000, PayeeName: "Amazon.com"}},
		Stats:           matcher.GetMatchStatistics(matches),
		Memos:           &ynab.MemoReport{Written: 2, DryRun: true},
	}
}

func TestPrintHeader(t *testing.T) {
	var buf bytes.Buffer

	PrintHeader(&buf, true)
	assert.Contains(t, buf.String(), "DRY-RUN")

	buf.Reset()
	PrintHeader(&buf, false)
	assert.Contains(t, buf.String(), "PRODUCTION")
}

func TestPrintResult(t *testing.T) {
	// Arrange
	var buf bytes.Buffer

	// Act
	PrintResult(&buf, sampleResult())

	// Assert
	out := buf.String()
	assert.Contains(t, out, "112-1 -> Y1  $25.98  2024-01-15  confidence=93.0")
	assert.Contains(t, out, "[consolidated_charge] 112-2, 112-3 -> Y2  $40.00")
	assert.Contains(t, out, "112-4  2024-01-18  $7.50")
	assert.Contains(t, out, "Y9  2024-01-19  $12.00  Amazon.com")
	assert.Contains(t, out, "Summary: Orders=4 Transactions=3 Matches=1 Batches=1")
	assert.Contains(t, out, "Memos: planned=2")
	assert.Contains(t, out, "Dry run")
}

func TestPrintSummary_NoMatches(t *testing.T) {
	var buf bytes.Buffer

	PrintSummary(&buf, &reconcile.Result{Orders: 1})

	assert.Contains(t, buf.String(), "Matches=0")
	assert.NotContains(t, buf.String(), "Confidence:")
	assert.NotContains(t, buf.String(), "Memos:")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, PrintJSON(&buf, sampleResult()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Len(t, decoded["matches"], 1)
}

func TestPrintState(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)

	PrintState(&buf, []matchstate.Pair{{AmazonOrderID: "112-1", YnabTransactionID: "Y1", MatchedAt: at}}, &at)

	out := buf.String()
	assert.Contains(t, out, "Last run: 2024-01-20T12:00:00Z")
	assert.Contains(t, out, "Matched pairs: 1")
	assert.Contains(t, out, "112-1 -> Y1")

	buf.Reset()
	PrintState(&buf, nil, nil)
	assert.Contains(t, buf.String(), "Last run: never")
}
