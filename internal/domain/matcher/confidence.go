package matcher

import (
	"strings"

	"github.com/shopspring/decimal"
)

// paymentKeywordGroups maps a card issuer or network to the spellings that show
// up in Amazon payment descriptions and YNAB account names.
var paymentKeywordGroups = map[string][]string{
	"chase":       {"chase", "sapphire", "freedom"},
	"amex":        {"amex", "american express"},
	"amazon":      {"amazon", "prime"},
	"apple":       {"apple"},
	"boa":         {"boa", "bank of america", "bofa"},
	"citi":        {"citi", "citibank"},
	"discover":    {"discover"},
	"capital_one": {"capital one", "capitalone", "venture", "quicksilver"},
	"visa":        {"visa"},
	"mastercard":  {"mastercard", "master card"},
}

// PaymentMatchesAccount reports whether an Amazon payment method plausibly
// refers to the given YNAB account.
func PaymentMatchesAccount(paymentMethod, accountName string) bool {
	payment := strings.ToLower(strings.TrimSpace(paymentMethod))
	account := strings.ToLower(strings.TrimSpace(accountName))
	if payment == "" || account == "" {
		return false
	}

	for _, synonyms := range paymentKeywordGroups {
		if containsAny(payment, synonyms) && containsAny(account, synonyms) {
			return true
		}
	}

	for _, token := range strings.Fields(payment) {
		if strings.Contains(account, token) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// amountDiffCents returns |order total - transaction dollars| in cents.
func amountDiffCents(order AmazonOrder, txn YnabTransaction) float64 {
	diff := order.Total.Sub(txn.AmountDollars()).Abs().Mul(decimal.NewFromInt(100))
	return diff.InexactFloat64()
}

// Confidence scores how likely txn is the card charge for order, from 0 to 100.
// Date or amount differences beyond tolerance are a hard reject. The score is
// clamped but not rounded, so the threshold sees the exact value.
func Confidence(order AmazonOrder, txn YnabTransaction, cfg Config) float64 {
	dateDiff := daysBetween(order.Date, txn.Date)
	if dateDiff > cfg.DateToleranceDays {
		return 0
	}

	amountDiff := amountDiffCents(order, txn)
	if amountDiff > float64(cfg.AmountToleranceCents) {
		return 0
	}

	score := 40 * (1 - float64(dateDiff)/float64(cfg.DateToleranceDays+1))
	score += 60 * (1 - amountDiff/float64(cfg.AmountToleranceCents+1))

	if dateDiff == 0 {
		score += 5
	}
	if amountDiff < 1 {
		score += 5
	}
	if PaymentMatchesAccount(order.PaymentMethod, txn.AccountName) {
		score += 10
	}

	return clampScore(score)
}

func clampScore(score float64) float64 {
	return min(max(score, 0), 100)
}
