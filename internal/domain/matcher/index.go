package matcher

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Index buckets transactions by date and amount so candidate lookup does not
// have to scan every transaction for every order.
type Index struct {
	byDate   map[int][]YnabTransaction
	byAmount map[int][]YnabTransaction
	position map[string]int // Input position, for deterministic candidate order
}

// NewIndex builds both bucket maps over txns.
func NewIndex(txns []YnabTransaction) *Index {
	position := make(map[string]int, len(txns))
	for i, tx := range txns {
		if _, seen := position[tx.ID]; !seen {
			position[tx.ID] = i
		}
	}
	return &Index{
		byDate:   BuildDateIndex(txns),
		byAmount: BuildAmountIndex(txns),
		position: position,
	}
}

// BuildDateIndex groups transactions into DateBucketDays-wide date buckets.
func BuildDateIndex(txns []YnabTransaction) map[int][]YnabTransaction {
	index := make(map[int][]YnabTransaction)
	for _, tx := range txns {
		key := dateBucket(tx.Date)
		index[key] = append(index[key], tx)
	}
	return index
}

// BuildAmountIndex groups transactions into AmountBucketDollars-wide amount buckets.
func BuildAmountIndex(txns []YnabTransaction) map[int][]YnabTransaction {
	index := make(map[int][]YnabTransaction)
	for _, tx := range txns {
		key := amountBucket(tx.AmountDollars())
		index[key] = append(index[key], tx)
	}
	return index
}

func dateBucket(t time.Time) int {
	return floorDiv(ordinal(t), DateBucketDays)
}

func amountBucket(dollars decimal.Decimal) int {
	return int(dollars.Div(decimal.NewFromInt(AmountBucketDollars)).Floor().IntPart())
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// dateRadius is the number of neighbouring date buckets to scan.
func dateRadius(cfg Config) int {
	return max(1, cfg.DateToleranceDays/DateBucketDays+1)
}

// amountRadius is the number of neighbouring amount buckets to scan.
func amountRadius(cfg Config) int {
	buckets := int(cfg.amountTolerance().Div(decimal.NewFromInt(AmountBucketDollars)).Floor().IntPart())
	return max(1, buckets+1)
}

// Candidates returns transactions whose date bucket and amount bucket are both
// within the widened tolerance of the order, minus the claimed IDs. Each
// transaction appears once, in input order. The result is a superset of the
// transactions within tolerance; Confidence does the exact check.
func (idx *Index) Candidates(order AmazonOrder, cfg Config, claimed map[string]bool) []YnabTransaction {
	baseDate := dateBucket(order.Date)
	rDate := dateRadius(cfg)

	inDateWindow := make(map[string]bool)
	for key := baseDate - rDate; key <= baseDate+rDate; key++ {
		for _, tx := range idx.byDate[key] {
			inDateWindow[tx.ID] = true
		}
	}
	if len(inDateWindow) == 0 {
		return nil
	}

	baseAmount := amountBucket(order.Total)
	rAmount := amountRadius(cfg)

	seen := make(map[string]bool)
	var candidates []YnabTransaction
	for key := baseAmount - rAmount; key <= baseAmount+rAmount; key++ {
		for _, tx := range idx.byAmount[key] {
			if !inDateWindow[tx.ID] || claimed[tx.ID] || seen[tx.ID] {
				continue
			}
			seen[tx.ID] = true
			candidates = append(candidates, tx)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return idx.position[candidates[i].ID] < idx.position[candidates[j].ID]
	})
	return candidates
}
