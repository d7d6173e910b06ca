package amazon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseScraperJSON decodes amazon-order-scraper output into normalized orders.
// Any order that fails to convert fails the whole parse to avoid silent data loss.
func ParseScraperJSON(r io.Reader) ([]matcher.AmazonOrder, error) {
	var output ScraperOutput
	if err := json.NewDecoder(r).Decode(&output); err != nil {
		return nil, fmt.Errorf("failed to decode scraper output: %w", err)
	}

	orders := make([]matcher.AmazonOrder, 0, len(output.Orders))
	for i, raw := range output.Orders {
		order, err := convertScraperOrder(raw)
		if err != nil {
			return nil, fmt.Errorf("order %d (%s): %w", i, raw.OrderID, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// convertScraperOrder converts a ScraperOrder to a matcher.AmazonOrder.
// Card charges become payment references; more than one marks a split payment.
func convertScraperOrder(raw ScraperOrder) (matcher.AmazonOrder, error) {
	total, err := parseAmount(raw.Total)
	if err != nil {
		return matcher.AmazonOrder{}, fmt.Errorf("failed to parse total %q: %w", raw.Total, err)
	}

	items := make([]matcher.OrderItem, 0, len(raw.Items))
	for i, rawItem := range raw.Items {
		item, err := convertScraperItem(rawItem)
		if err != nil {
			return matcher.AmazonOrder{}, fmt.Errorf("failed to parse item %d (%q): %w", i, rawItem.Name, err)
		}
		items = append(items, item)
	}

	date, err := parseDate(raw.OrderDate)
	if err != nil {
		return matcher.AmazonOrder{}, fmt.Errorf("failed to parse order date %q: %w", raw.OrderDate, err)
	}

	paymentMethod := ""
	if len(raw.Transactions) > 0 {
		paymentMethod = raw.Transactions[0].Description
	}

	order, err := matcher.NewAmazonOrder(raw.OrderID, date, total, paymentMethod, items)
	if err != nil {
		return matcher.AmazonOrder{}, err
	}

	charges, err := cardCharges(raw.Transactions)
	if err != nil {
		return matcher.AmazonOrder{}, err
	}
	if len(charges) > 1 {
		order.IsSplitPayment = true
	}
	for _, tx := range charges {
		order.PaymentReferences = append(order.PaymentReferences, tx.Description)
	}
	return order, nil
}

// cardCharges returns the positive charges made to a card. Refunds and
// payments without card digits (gift cards, points) are left out.
func cardCharges(txs []ScraperTransaction) ([]ScraperTransaction, error) {
	var charges []ScraperTransaction
	for i, tx := range txs {
		if tx.Type == "refund" || tx.Last4 == "" {
			continue
		}
		amount, err := parseAmount(tx.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse transaction %d amount %q: %w", i, tx.Amount, err)
		}
		if !amount.IsPositive() {
			continue
		}
		charges = append(charges, tx)
	}
	return charges, nil
}

func convertScraperItem(raw ScraperOrderItem) (matcher.OrderItem, error) {
	price, err := parseAmount(raw.Price)
	if err != nil {
		return matcher.OrderItem{}, err
	}

	quantity := raw.Quantity
	if quantity == 0 {
		quantity = 1 // Default to 1 if not specified
	}

	return matcher.OrderItem{
		Name:     strings.TrimSpace(raw.Name),
		Category: raw.Category,
		ASIN:     raw.ASIN,
		Price:    price,
		Quantity: quantity,
		Link:     productLink(raw.ASIN),
	}, nil
}

// productLink builds the canonical product page URL for an ASIN
func productLink(asin string) string {
	if asin == "" {
		return ""
	}
	return "https://www.amazon.com/dp/" + asin
}

// parseAmount parses a currency string like "$116.20", "$1,234.56" or "-$5.00".
// An empty string is zero.
func parseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.Trim(cleaned, `'"`)
	if cleaned == "" {
		return decimal.Zero, nil
	}

	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
	"January 2, 2006",
}

// parseDate parses the date formats seen in scraper output and order history exports
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, matcher.ErrEmptyDate
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", matcher.ErrMalformedDate, s)
}
