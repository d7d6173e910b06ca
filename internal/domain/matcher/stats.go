package matcher

import "github.com/shopspring/decimal"

// Confidence band boundaries used by Statistics.
const (
	HighConfidence   = 90
	MediumConfidence = 70
)

// Statistics summarizes a set of 1:1 matches.
type Statistics struct {
	TotalMatches       int             `json:"total_matches"`
	AverageConfidence  float64         `json:"avg_confidence"`
	HighConfidence     int             `json:"high_confidence_count"`   // >= 90
	MediumConfidence   int             `json:"medium_confidence_count"` // [70, 90)
	LowConfidence      int             `json:"low_confidence_count"`    // < 70
	ExactAmountMatches int             `json:"exact_amount_matches"`
	SameDayMatches     int             `json:"same_day_matches"`
	TotalAmazonAmount  decimal.Decimal `json:"total_amazon_amount"`
	TotalYnabAmount    decimal.Decimal `json:"total_ynab_amount"`
}

// GetMatchStatistics aggregates confidence bands, exact/same-day counts and
// totals. An empty input yields zeroed statistics.
func GetMatchStatistics(matches []MatchRecord) Statistics {
	stats := Statistics{
		TotalAmazonAmount: decimal.Zero,
		TotalYnabAmount:   decimal.Zero,
	}
	if len(matches) == 0 {
		return stats
	}

	var confidenceSum float64
	for _, match := range matches {
		confidenceSum += match.Confidence

		switch {
		case match.Confidence >= HighConfidence:
			stats.HighConfidence++
		case match.Confidence >= MediumConfidence:
			stats.MediumConfidence++
		default:
			stats.LowConfidence++
		}

		if match.AmountDiffCents < 1 {
			stats.ExactAmountMatches++
		}
		if match.DateDiffDays == 0 {
			stats.SameDayMatches++
		}

		stats.TotalAmazonAmount = stats.TotalAmazonAmount.Add(match.AmazonTotal)
		stats.TotalYnabAmount = stats.TotalYnabAmount.Add(match.YnabAmount)
	}

	stats.TotalMatches = len(matches)
	stats.AverageConfidence = confidenceSum / float64(len(matches))
	return stats
}
