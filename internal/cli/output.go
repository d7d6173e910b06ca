package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/eshaffer321/amazon-ynab-sync/internal/application/reconcile"
	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matchstate"
)

// PrintHeader prints the application header
func PrintHeader(w io.Writer, dryRun bool) {
	mode := "PRODUCTION"
	if dryRun {
		mode = "DRY-RUN"
	}
	fmt.Fprintf(w, "amazon-ynab-sync (%s mode)\n\n", mode)
}

// PrintJSON writes v as indented JSON
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintResult prints matches, batch matches and leftovers followed by the summary
func PrintResult(w io.Writer, result *reconcile.Result) {
	if len(result.Matches) > 0 {
		fmt.Fprintln(w, "Matches:")
		for _, m := range result.Matches {
			fmt.Fprintf(w, "  %s -> %s  $%s  %s  confidence=%.1f\n",
				m.AmazonOrderID,
				m.YnabTransactionID,
				m.AmazonTotal.StringFixed(2),
				m.AmazonDate.Format("2006-01-02"),
				m.Confidence)
		}
		fmt.Fprintln(w)
	}

	if len(result.BatchMatches) > 0 {
		fmt.Fprintln(w, "Batch matches:")
		for _, bm := range result.BatchMatches {
			orders := make([]string, len(bm.AmazonOrders))
			for i, o := range bm.AmazonOrders {
				orders[i] = o.OrderID
			}
			txns := make([]string, len(bm.YnabTransactions))
			for i, tx := range bm.YnabTransactions {
				txns[i] = tx.ID
			}
			fmt.Fprintf(w, "  [%s] %s -> %s  $%s  confidence=%d\n",
				bm.Type,
				strings.Join(orders, ", "),
				strings.Join(txns, ", "),
				bm.AmazonTotal.StringFixed(2),
				bm.Confidence)
		}
		fmt.Fprintln(w)
	}

	if len(result.UnmatchedAmazon) > 0 {
		fmt.Fprintln(w, "Unmatched Amazon orders:")
		for _, o := range result.UnmatchedAmazon {
			fmt.Fprintf(w, "  %s  %s  $%s\n", o.OrderID, o.Date.Format("2006-01-02"), o.Total.StringFixed(2))
		}
		fmt.Fprintln(w)
	}

	if len(result.UnmatchedYnab) > 0 {
		fmt.Fprintln(w, "Unmatched YNAB transactions:")
		for _, tx := range result.UnmatchedYnab {
			fmt.Fprintf(w, "  %s  %s  $%s  %s\n", tx.ID, tx.Date.Format("2006-01-02"), tx.AmountDollars().StringFixed(2), tx.PayeeName)
		}
		fmt.Fprintln(w)
	}

	PrintSummary(w, result)
}

// PrintSummary prints the run summary line and memo counts
func PrintSummary(w io.Writer, result *reconcile.Result) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Orders=%d Transactions=%d Matches=%d Batches=%d Previously=%d UnmatchedAmazon=%d UnmatchedYNAB=%d\n",
		result.Orders,
		result.Transactions,
		len(result.Matches),
		len(result.BatchMatches),
		len(result.PreviouslyMatched),
		len(result.UnmatchedAmazon),
		len(result.UnmatchedYnab))

	if result.Stats.TotalMatches > 0 {
		fmt.Fprintf(w, "Confidence: avg=%.1f high=%d medium=%d low=%d\n",
			result.Stats.AverageConfidence,
			result.Stats.HighConfidence,
			result.Stats.MediumConfidence,
			result.Stats.LowConfidence)
	}

	if r := result.Memos; r != nil {
		verb := "written"
		if r.DryRun {
			verb = "planned"
		}
		fmt.Fprintf(w, "Memos: %s=%d skipped=%d failed=%d\n", verb, r.Written, r.Skipped, r.Failed)
	}

	if result.DryRun {
		fmt.Fprintln(w, "\nDry run: match state and YNAB were not modified.")
	}
}

// PrintState prints the ledger pairs
func PrintState(w io.Writer, pairs []matchstate.Pair, lastRun *time.Time) {
	if lastRun != nil {
		fmt.Fprintf(w, "Last run: %s\n", lastRun.Format(time.RFC3339))
	} else {
		fmt.Fprintln(w, "Last run: never")
	}
	fmt.Fprintf(w, "Matched pairs: %d\n", len(pairs))
	for _, p := range pairs {
		fmt.Fprintf(w, "  %s -> %s  %s\n", p.AmazonOrderID, p.YnabTransactionID, p.MatchedAt.Format(time.RFC3339))
	}
}
