package ynab

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// maxPayeeDistance is the largest edit distance at which a payee token still
// counts as "amazon" (catches "amazom", "amazn", "amzon").
const maxPayeeDistance = 2

var amazonPayeeTerms = []string{"amazon", "amzn"}

// IsAmazonPayee reports whether a payee name looks like an Amazon charge.
func IsAmazonPayee(payee string) bool {
	lower := strings.ToLower(payee)
	for _, term := range amazonPayeeTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}

	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	for _, token := range tokens {
		if len(token) < 4 {
			continue
		}
		distance := levenshtein.DistanceForStrings([]rune(token), []rune("amazon"), levenshtein.DefaultOptions)
		if distance <= maxPayeeDistance {
			return true
		}
	}
	return false
}
