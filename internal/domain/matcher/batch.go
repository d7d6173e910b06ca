package matcher

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// maxCombinationSize bounds how many records one batch match may combine.
const maxCombinationSize = 5

// MatchWithBatches runs the 1:1 pass, then the batch pass over what the 1:1
// pass left unmatched. Batch matches are recorded in match state pair by pair
// and state is flushed once at the end.
func (m *Matcher) MatchWithBatches(ctx context.Context, orders []AmazonOrder, txns []YnabTransaction) (*FullResult, error) {
	if err := validateInputs(orders, txns); err != nil {
		return nil, err
	}

	single := m.matchOneToOne(orders, txns)
	batch := m.FindBatchMatches(single.UnmatchedAmazon, single.UnmatchedYnab)

	if m.state != nil {
		for _, bm := range batch.BatchMatches {
			for _, order := range bm.AmazonOrders {
				for _, tx := range bm.YnabTransactions {
					m.state.Record(order.OrderID, tx.ID)
				}
			}
		}
	}
	m.flushState(ctx)

	return &FullResult{
		Matches:           single.Matches,
		BatchMatches:      batch.BatchMatches,
		UnmatchedAmazon:   batch.UnmatchedAmazon,
		UnmatchedYnab:     batch.UnmatchedYnab,
		PreviouslyMatched: single.PreviouslyMatched,
	}, nil
}

// FindBatchMatches looks for consolidated charges (several orders, one
// transaction) and then split payments (one order, several transactions).
// Each record is claimed at most once; whatever is left is returned unchanged.
func (m *Matcher) FindBatchMatches(orders []AmazonOrder, txns []YnabTransaction) *BatchResult {
	claimedOrders := make(map[string]bool)
	claimedTxns := make(map[string]bool)
	for _, tx := range txns {
		if tx.IsAnnotated() {
			claimedTxns[tx.ID] = true
		}
	}

	var matches []BatchMatchRecord
	matches = append(matches, m.findConsolidatedCharges(orders, txns, claimedOrders, claimedTxns)...)
	matches = append(matches, m.findSplitPayments(orders, txns, claimedOrders, claimedTxns)...)

	result := &BatchResult{BatchMatches: matches}
	for _, order := range orders {
		if !claimedOrders[order.OrderID] {
			result.UnmatchedAmazon = append(result.UnmatchedAmazon, order)
		}
	}
	for _, tx := range txns {
		if !claimedTxns[tx.ID] {
			result.UnmatchedYnab = append(result.UnmatchedYnab, tx)
		}
	}

	if len(matches) > 0 {
		m.logger.Info("Batch matching complete",
			"batch_matches", len(matches),
			"unmatched_amazon", len(result.UnmatchedAmazon),
			"unmatched_ynab", len(result.UnmatchedYnab),
		)
	}
	return result
}

func (m *Matcher) findConsolidatedCharges(orders []AmazonOrder, txns []YnabTransaction, claimedOrders, claimedTxns map[string]bool) []BatchMatchRecord {
	byDate := make(map[int][]AmazonOrder)
	for _, order := range orders {
		key := ordinal(order.Date)
		byDate[key] = append(byDate[key], order)
	}

	tolerance := m.config.amountTolerance()
	var matches []BatchMatchRecord

	for _, tx := range txns {
		if claimedTxns[tx.ID] {
			continue
		}
		target := tx.AmountDollars()
		base := ordinal(tx.Date)

		var found *BatchMatchRecord
		for offset := -m.config.DateToleranceDays; offset <= m.config.DateToleranceDays && found == nil; offset++ {
			group := unclaimedOrders(byDate[base+offset], claimedOrders)
			if len(group) < 2 {
				continue
			}
			if len(group) > m.config.MaxBatchGroupSize {
				m.logger.Warn("Skipping oversized order group for batch matching",
					"date", group[0].Date.Format("2006-01-02"),
					"size", len(group),
					"max", m.config.MaxBatchGroupSize,
				)
				continue
			}

			for r := 2; r <= min(maxCombinationSize, len(group)) && found == nil; r++ {
				combinations(len(group), r, func(idx []int) bool {
					members := make([]AmazonOrder, len(idx))
					sum := decimal.Zero
					for i, j := range idx {
						members[i] = group[j]
						sum = sum.Add(group[j].Total)
					}
					diff := sum.Sub(target).Abs()
					if diff.GreaterThan(tolerance) || !sharedPaymentMatches(members, tx.AccountName) {
						return true
					}

					dates := make([]time.Time, len(members))
					for i, o := range members {
						dates[i] = o.Date
					}
					found = &BatchMatchRecord{
						Type:             ConsolidatedCharge,
						AmazonOrders:     members,
						YnabTransactions: []YnabTransaction{tx},
						AmazonTotal:      sum,
						YnabTotal:        target,
						AmountDiff:       diff,
						Confidence:       batchConfidence(diff, dates),
					}
					return false
				})
			}
		}

		if found == nil {
			continue
		}
		for _, order := range found.AmazonOrders {
			claimedOrders[order.OrderID] = true
		}
		claimedTxns[tx.ID] = true
		matches = append(matches, *found)

		m.logger.Debug("Consolidated charge matched",
			"transaction_id", tx.ID,
			"orders", len(found.AmazonOrders),
			"amount_diff", found.AmountDiff.StringFixed(2),
			"confidence", found.Confidence,
		)
	}
	return matches
}

func (m *Matcher) findSplitPayments(orders []AmazonOrder, txns []YnabTransaction, claimedOrders, claimedTxns map[string]bool) []BatchMatchRecord {
	tolerance := m.config.amountTolerance()
	var matches []BatchMatchRecord

	for _, order := range orders {
		if claimedOrders[order.OrderID] {
			continue
		}

		var candidates []YnabTransaction
		for _, tx := range txns {
			if claimedTxns[tx.ID] {
				continue
			}
			if daysBetween(order.Date, tx.Date) > m.config.DateToleranceDays {
				continue
			}
			if !tx.AmountDollars().LessThan(order.Total) {
				continue
			}
			if !PaymentMatchesAccount(order.PaymentMethod, tx.AccountName) {
				continue
			}
			candidates = append(candidates, tx)
		}
		if len(candidates) < 2 {
			continue
		}
		if len(candidates) > m.config.MaxBatchGroupSize {
			m.logger.Warn("Skipping oversized candidate set for split payment",
				"order_id", order.OrderID,
				"size", len(candidates),
				"max", m.config.MaxBatchGroupSize,
			)
			continue
		}

		var found *BatchMatchRecord
		for r := 2; r <= min(maxCombinationSize, len(candidates)) && found == nil; r++ {
			combinations(len(candidates), r, func(idx []int) bool {
				members := make([]YnabTransaction, len(idx))
				sum := decimal.Zero
				for i, j := range idx {
					members[i] = candidates[j]
					sum = sum.Add(candidates[j].AmountDollars())
				}
				diff := sum.Sub(order.Total).Abs()
				if diff.GreaterThan(tolerance) {
					return true
				}

				dates := make([]time.Time, len(members))
				for i, tx := range members {
					dates[i] = tx.Date
				}
				found = &BatchMatchRecord{
					Type:             SplitPayment,
					AmazonOrders:     []AmazonOrder{order},
					YnabTransactions: members,
					AmazonTotal:      order.Total,
					YnabTotal:        sum,
					AmountDiff:       diff,
					Confidence:       batchConfidence(diff, dates),
				}
				return false
			})
		}

		if found == nil {
			continue
		}
		claimedOrders[order.OrderID] = true
		for _, tx := range found.YnabTransactions {
			claimedTxns[tx.ID] = true
		}
		matches = append(matches, *found)

		m.logger.Debug("Split payment matched",
			"order_id", order.OrderID,
			"transactions", len(found.YnabTransactions),
			"amount_diff", found.AmountDiff.StringFixed(2),
			"confidence", found.Confidence,
		)
	}
	return matches
}

func unclaimedOrders(group []AmazonOrder, claimed map[string]bool) []AmazonOrder {
	var out []AmazonOrder
	for _, order := range group {
		if !claimed[order.OrderID] {
			out = append(out, order)
		}
	}
	return out
}

// sharedPaymentMatches reports whether all orders were paid with the same
// method and that method matches the transaction's account.
func sharedPaymentMatches(orders []AmazonOrder, accountName string) bool {
	method := orders[0].PaymentMethod
	for _, o := range orders[1:] {
		if o.PaymentMethod != method {
			return false
		}
	}
	return PaymentMatchesAccount(method, accountName)
}

// batchCeiling caps batch confidence below a clean 1:1 match.
const batchCeiling = 95

var (
	oneCent    = decimal.New(1, -2)
	fiftyCents = decimal.New(50, -2)
	oneDollar  = decimal.NewFromInt(1)
	twoDollars = decimal.NewFromInt(2)
)

// batchConfidence scores a batch match from the amount difference and how
// tightly the dates on the "many" side cluster.
func batchConfidence(amountDiff decimal.Decimal, manySideDates []time.Time) int {
	score := 70

	switch {
	case amountDiff.LessThan(oneCent):
		score += 20
	case amountDiff.LessThanOrEqual(fiftyCents):
		score += 15
	case amountDiff.LessThanOrEqual(oneDollar):
		score += 10
	case amountDiff.LessThanOrEqual(twoDollars):
		score += 5
	}

	if datesWithinOneDay(manySideDates) {
		score += 5
	}

	return min(score, batchCeiling)
}

func datesWithinOneDay(dates []time.Time) bool {
	if len(dates) == 0 {
		return false
	}
	lo, hi := ordinal(dates[0]), ordinal(dates[0])
	for _, d := range dates[1:] {
		o := ordinal(d)
		lo = min(lo, o)
		hi = max(hi, o)
	}
	return hi-lo <= 1
}

// combinations calls fn with each r-subset of [0, n) in lexicographic order
// until fn returns false. The slice passed to fn is reused between calls.
func combinations(n, r int, fn func(idx []int) bool) {
	if r <= 0 || r > n {
		return
	}
	idx := make([]int, r)
	for i := range idx {
		idx[i] = i
	}
	for {
		if !fn(idx) {
			return
		}
		i := r - 1
		for i >= 0 && idx[i] == n-r+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < r; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
