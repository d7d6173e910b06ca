// Package matcher reconciles Amazon orders against YNAB transactions.
//
// Matching happens in two passes:
//   - A 1:1 pass scores each order against nearby transactions (found through
//     date and amount bucket indexes) and keeps the best match above the
//     confidence threshold.
//   - An optional batch pass looks for several orders billed as one charge
//     (consolidated charge) or one order billed as several charges (split payment).
//
// Example usage:
//
//	m, err := matcher.NewMatcher(matcher.DefaultConfig(), ledger, logger)
//	result, err := m.MatchTransactions(ctx, orders, transactions)
//	for _, match := range result.Matches {
//		fmt.Println(match.AmazonOrderID, "->", match.YnabTransactionID, match.Confidence)
//	}
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// StateTracker remembers matches across runs so repeated runs stay idempotent.
// A nil StateTracker makes the matcher stateless.
type StateTracker interface {
	IsPreviouslyMatched(amazonOrderID string) bool
	MatchedTransactions(amazonOrderID string) []string
	Record(amazonOrderID, ynabTransactionID string)
	Save(ctx context.Context) error
}

// Matcher matches Amazon orders with YNAB transactions
type Matcher struct {
	config Config
	state  StateTracker
	logger *slog.Logger
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config, state StateTracker, logger *slog.Logger) (*Matcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		config: config,
		state:  state,
		logger: logger,
	}, nil
}

// Config returns the matcher's configuration.
func (m *Matcher) Config() Config {
	return m.config
}

// Confidence scores an order/transaction pair with this matcher's config.
func (m *Matcher) Confidence(order AmazonOrder, txn YnabTransaction) float64 {
	return Confidence(order, txn, m.config)
}

// MatchTransactions runs the 1:1 pass and flushes match state before returning.
// A failed state write is logged; the computed matches are still returned.
func (m *Matcher) MatchTransactions(ctx context.Context, orders []AmazonOrder, txns []YnabTransaction) (*MatchResult, error) {
	if err := validateInputs(orders, txns); err != nil {
		return nil, err
	}

	result := m.matchOneToOne(orders, txns)
	m.flushState(ctx)

	return result, nil
}

func (m *Matcher) matchOneToOne(orders []AmazonOrder, txns []YnabTransaction) *MatchResult {
	index := NewIndex(txns)

	sorted := make([]AmazonOrder, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	claimedOrders := make(map[string]bool)
	claimedTxns := make(map[string]bool)
	result := &MatchResult{}

	for _, order := range sorted {
		if claimedOrders[order.OrderID] {
			continue
		}

		if m.state != nil && m.state.IsPreviouslyMatched(order.OrderID) {
			claimedOrders[order.OrderID] = true
			for _, txnID := range m.state.MatchedTransactions(order.OrderID) {
				claimedTxns[txnID] = true
			}
			result.PreviouslyMatched = append(result.PreviouslyMatched, order.OrderID)
			m.logger.Debug("Skipping previously matched order", "order_id", order.OrderID)
			continue
		}

		best, bestScore := m.bestCandidate(order, index.Candidates(order, m.config, claimedTxns))
		if best == nil {
			m.logger.Debug("No match above threshold",
				"order_id", order.OrderID,
				"order_date", order.Date.Format("2006-01-02"),
				"order_total", order.Total.StringFixed(2),
			)
			continue
		}

		match := newMatchRecord(order, *best, bestScore)
		result.Matches = append(result.Matches, match)
		claimedOrders[order.OrderID] = true
		claimedTxns[best.ID] = true

		if m.state != nil {
			m.state.Record(order.OrderID, best.ID)
		}

		m.logger.Debug("Matched transaction",
			"order_id", order.OrderID,
			"transaction_id", best.ID,
			"confidence", bestScore,
			"date_diff_days", match.DateDiffDays,
			"amount_diff_cents", match.AmountDiffCents,
		)
	}

	for _, order := range orders {
		if !claimedOrders[order.OrderID] {
			result.UnmatchedAmazon = append(result.UnmatchedAmazon, order)
		}
	}
	for _, tx := range txns {
		if !claimedTxns[tx.ID] && !tx.IsAnnotated() {
			result.UnmatchedYnab = append(result.UnmatchedYnab, tx)
		}
	}

	m.logger.Info("1:1 matching complete",
		"orders", len(orders),
		"transactions", len(txns),
		"matches", len(result.Matches),
		"previously_matched", len(result.PreviouslyMatched),
		"unmatched_amazon", len(result.UnmatchedAmazon),
		"unmatched_ynab", len(result.UnmatchedYnab),
	)

	return result
}

// bestCandidate returns the highest-scoring candidate at or above the
// threshold. Ties keep the earlier candidate; a perfect score stops the scan.
func (m *Matcher) bestCandidate(order AmazonOrder, candidates []YnabTransaction) (*YnabTransaction, float64) {
	var best *YnabTransaction
	var bestScore float64
	threshold := float64(m.config.MatchThreshold)

	for i := range candidates {
		tx := candidates[i]
		if tx.IsAnnotated() {
			continue
		}

		score := Confidence(order, tx, m.config)
		if score < threshold {
			continue
		}
		if best == nil || score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
		if score >= 100 {
			break
		}
	}

	return best, bestScore
}

func newMatchRecord(order AmazonOrder, tx YnabTransaction, confidence float64) MatchRecord {
	record := MatchRecord{
		AmazonOrderID:     order.OrderID,
		YnabTransactionID: tx.ID,
		Confidence:        confidence,
		AmazonDate:        order.Date,
		YnabDate:          tx.Date,
		AmazonTotal:       order.Total,
		YnabAmount:        tx.AmountDollars(),
		DateDiffDays:      daysBetween(order.Date, tx.Date),
		AmountDiffCents:   amountDiffCents(order, tx),
		AmazonData: AmazonData{
			AllItems: order.Items,
		},
		YnabData: YnabData{
			PayeeName:    tx.PayeeName,
			CategoryName: tx.CategoryName,
			AccountName:  tx.AccountName,
			ExistingMemo: tx.Memo,
		},
	}
	if len(order.Items) > 0 {
		first := order.Items[0]
		record.AmazonData.Category = first.Category
		record.AmazonData.ItemName = first.Name
		record.AmazonData.ItemLink = first.Link
	}
	return record
}

func (m *Matcher) flushState(ctx context.Context) {
	if m.state == nil {
		return
	}
	if err := m.state.Save(ctx); err != nil {
		m.logger.Error("Failed to save match state", "error", err)
	}
}

func validateInputs(orders []AmazonOrder, txns []YnabTransaction) error {
	for i, order := range orders {
		if err := order.Validate(); err != nil {
			return fmt.Errorf("order at index %d: %w", i, err)
		}
	}
	for i, tx := range txns {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}
