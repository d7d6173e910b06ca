package matcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Bucket widths used by the spatial indexes.
const (
	DateBucketDays      = 3
	AmountBucketDollars = 5
)

// annotationMarker is written into a YNAB memo once a transaction has been
// reconciled against an Amazon order.
const annotationMarker = "Amazon:"

var (
	ErrInvalidConfig      = errors.New("invalid matcher config")
	ErrInvalidOrder       = errors.New("invalid amazon order")
	ErrInvalidTransaction = errors.New("invalid ynab transaction")
)

// Config holds matcher configuration
type Config struct {
	MatchThreshold       int // Minimum confidence for a 1:1 match (default: 80)
	DateToleranceDays    int // Days tolerance (default: 2)
	AmountToleranceCents int // Cents tolerance (default: 50)
	MaxBatchGroupSize    int // Largest group the batch matcher will enumerate (default: 20)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MatchThreshold:       80,
		DateToleranceDays:    2,
		AmountToleranceCents: 50,
		MaxBatchGroupSize:    20,
	}
}

// Validate rejects configurations the bucket math cannot work with.
func (c Config) Validate() error {
	if c.MatchThreshold <= 0 || c.MatchThreshold > 100 {
		return fmt.Errorf("%w: match threshold must be in (0, 100], got %d", ErrInvalidConfig, c.MatchThreshold)
	}
	if c.DateToleranceDays <= 0 {
		return fmt.Errorf("%w: date tolerance must be positive, got %d", ErrInvalidConfig, c.DateToleranceDays)
	}
	if c.AmountToleranceCents <= 0 {
		return fmt.Errorf("%w: amount tolerance must be positive, got %d", ErrInvalidConfig, c.AmountToleranceCents)
	}
	if c.MaxBatchGroupSize < 2 {
		return fmt.Errorf("%w: max batch group size must be at least 2, got %d", ErrInvalidConfig, c.MaxBatchGroupSize)
	}
	return nil
}

// amountTolerance returns the amount tolerance in dollars.
func (c Config) amountTolerance() decimal.Decimal {
	return decimal.New(int64(c.AmountToleranceCents), -2)
}

// OrderItem is a single line item of an Amazon order.
type OrderItem struct {
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	ASIN     string          `json:"asin,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Link     string          `json:"link,omitempty"`
}

// AmazonOrder is one checkout event. Totals are in dollars.
type AmazonOrder struct {
	OrderID           string          `json:"order_id"`
	Date              time.Time       `json:"date"`
	Total             decimal.Decimal `json:"total"`
	Items             []OrderItem     `json:"items"`
	PaymentMethod     string          `json:"payment_method"`
	IsSplitPayment    bool            `json:"is_split_payment,omitempty"`
	PaymentReferences []string        `json:"payment_references,omitempty"`
}

// NewAmazonOrder builds an order and validates the fields the matcher relies on.
// The date may be a time.Time or an ISO-8601 string.
func NewAmazonOrder(orderID string, date any, total decimal.Decimal, paymentMethod string, items []OrderItem) (AmazonOrder, error) {
	order := AmazonOrder{
		OrderID:       strings.TrimSpace(orderID),
		Total:         total,
		Items:         items,
		PaymentMethod: paymentMethod,
	}

	parsed, err := ParseDate(date)
	if err != nil {
		return AmazonOrder{}, fmt.Errorf("%w: order %q: %w", ErrInvalidOrder, orderID, err)
	}
	order.Date = parsed

	if err := order.Validate(); err != nil {
		return AmazonOrder{}, err
	}
	return order, nil
}

// UnmarshalJSON reads "date" through ParseDate, so plain YYYY-MM-DD dates and
// zoned timestamps are both accepted. A missing date is left for Validate.
func (o *AmazonOrder) UnmarshalJSON(data []byte) error {
	type plain AmazonOrder
	aux := struct {
		*plain
		Date any `json:"date"`
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	date, err := decodeDate(aux.Date)
	if err != nil {
		return fmt.Errorf("%w: order %q: %w", ErrInvalidOrder, o.OrderID, err)
	}
	o.Date = date
	return nil
}

// Validate checks required fields.
func (o AmazonOrder) Validate() error {
	if o.OrderID == "" {
		return fmt.Errorf("%w: missing order id", ErrInvalidOrder)
	}
	if o.Date.IsZero() {
		return fmt.Errorf("%w: order %s has no date", ErrInvalidOrder, o.OrderID)
	}
	if o.Total.IsNegative() {
		return fmt.Errorf("%w: order %s has negative total %s", ErrInvalidOrder, o.OrderID, o.Total)
	}
	return nil
}

// YnabTransaction is one ledger entry. Amount is in milliunits.
type YnabTransaction struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date"`
	Amount       int64     `json:"amount"`
	PayeeName    string    `json:"payee_name"`
	AccountName  string    `json:"account_name"`
	AccountID    string    `json:"account_id,omitempty"`
	CategoryName string    `json:"category_name"`
	Memo         string    `json:"memo"`
}

// NewYnabTransaction builds a transaction. The date may arrive as a
// time.Time or an ISO-8601 string; both are accepted.
func NewYnabTransaction(id string, date any, amount int64, payeeName, accountName, categoryName, memo string) (YnabTransaction, error) {
	txn := YnabTransaction{
		ID:           strings.TrimSpace(id),
		Amount:       amount,
		PayeeName:    payeeName,
		AccountName:  accountName,
		CategoryName: categoryName,
		Memo:         memo,
	}

	parsed, err := ParseDate(date)
	if err != nil {
		return YnabTransaction{}, fmt.Errorf("%w: transaction %q: %w", ErrInvalidTransaction, id, err)
	}
	txn.Date = parsed

	if err := txn.Validate(); err != nil {
		return YnabTransaction{}, err
	}
	return txn, nil
}

// UnmarshalJSON reads "date" through ParseDate. YNAB itself sends YYYY-MM-DD.
func (t *YnabTransaction) UnmarshalJSON(data []byte) error {
	type plain YnabTransaction
	aux := struct {
		*plain
		Date any `json:"date"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	date, err := decodeDate(aux.Date)
	if err != nil {
		return fmt.Errorf("%w: transaction %q: %w", ErrInvalidTransaction, t.ID, err)
	}
	t.Date = date
	return nil
}

// Validate checks required fields.
func (t YnabTransaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: missing transaction id", ErrInvalidTransaction)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: transaction %s has no date", ErrInvalidTransaction, t.ID)
	}
	return nil
}

// AmountDollars returns abs(amount)/1000. The sign is not used for matching.
func (t YnabTransaction) AmountDollars() decimal.Decimal {
	amount := t.Amount
	if amount < 0 {
		amount = -amount
	}
	return decimal.New(amount, -3)
}

// IsAnnotated reports whether the memo already carries the reconciliation marker.
func (t YnabTransaction) IsAnnotated() bool {
	return strings.Contains(t.Memo, annotationMarker)
}

// AmazonData is the order-side context attached to a match.
type AmazonData struct {
	Category string      `json:"category"`
	ItemName string      `json:"item_name"`
	ItemLink string      `json:"item_link"`
	AllItems []OrderItem `json:"all_items"`
}

// YnabData is the transaction-side context attached to a match.
type YnabData struct {
	PayeeName    string `json:"payee_name"`
	CategoryName string `json:"category_name"`
	AccountName  string `json:"account_name"`
	ExistingMemo string `json:"existing_memo"`
}

// MatchRecord is a 1:1 match between an order and a transaction.
type MatchRecord struct {
	AmazonOrderID     string          `json:"amazon_order_id"`
	YnabTransactionID string          `json:"ynab_transaction_id"`
	Confidence        float64         `json:"confidence"`
	AmazonDate        time.Time       `json:"amazon_date"`
	YnabDate          time.Time       `json:"ynab_date"`
	AmazonTotal       decimal.Decimal `json:"amazon_total"`
	YnabAmount        decimal.Decimal `json:"ynab_amount"`
	DateDiffDays      int             `json:"date_diff_days"`
	AmountDiffCents   float64         `json:"amount_diff_cents"`
	AmazonData        AmazonData      `json:"amazon_data"`
	YnabData          YnabData        `json:"ynab_data"`
}

// BatchMatchType distinguishes N:1 from 1:N batch matches.
type BatchMatchType string

const (
	ConsolidatedCharge BatchMatchType = "consolidated_charge" // N orders -> 1 transaction
	SplitPayment       BatchMatchType = "split_payment"       // 1 order -> N transactions
)

// BatchMatchRecord is a many-to-one or one-to-many match.
type BatchMatchRecord struct {
	Type             BatchMatchType    `json:"type"`
	AmazonOrders     []AmazonOrder     `json:"amazon_transactions"`
	YnabTransactions []YnabTransaction `json:"ynab_transactions"`
	AmazonTotal      decimal.Decimal   `json:"amazon_total"`
	YnabTotal        decimal.Decimal   `json:"ynab_total"`
	AmountDiff       decimal.Decimal   `json:"amount_diff"`
	Confidence       int               `json:"confidence"`
}

// MatchResult is the outcome of the 1:1 pass.
type MatchResult struct {
	Matches           []MatchRecord
	UnmatchedAmazon   []AmazonOrder
	UnmatchedYnab     []YnabTransaction
	PreviouslyMatched []string // Order IDs resolved by an earlier run
}

// BatchResult is the outcome of the batch pass over 1:1 residues.
type BatchResult struct {
	BatchMatches    []BatchMatchRecord
	UnmatchedAmazon []AmazonOrder
	UnmatchedYnab   []YnabTransaction
}

// FullResult combines both passes.
type FullResult struct {
	Matches           []MatchRecord
	BatchMatches      []BatchMatchRecord
	UnmatchedAmazon   []AmazonOrder
	UnmatchedYnab     []YnabTransaction
	PreviouslyMatched []string
}
