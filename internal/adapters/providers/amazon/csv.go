package amazon

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
)

var ErrMissingColumn = errors.New("missing required column")

// ParseOrderHistoryCSV parses Amazon's Retail.OrderHistory export. The export
// has one row per item; rows are grouped by order id in first-seen order and
// "Total Owed" is summed across an order's rows.
func ParseOrderHistoryCSV(r io.Reader) ([]matcher.AmazonOrder, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []matcher.AmazonOrder{}, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := indexColumns(header)
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}

	var order []string
	grouped := make(map[string]*csvOrder)

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}

		row := csvRow{columns: columns, record: record}
		id := row.get(colOrderID)
		if id == "" {
			continue // Blank spacer rows appear in some exports
		}

		total, err := parseAmount(row.get(colTotalOwed))
		if err != nil {
			return nil, fmt.Errorf("line %d: failed to parse total owed: %w", line, err)
		}
		item, err := row.item()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		existing, ok := grouped[id]
		if !ok {
			existing = &csvOrder{
				id:            id,
				date:          row.get(colOrderDate),
				paymentMethod: row.get(colPaymentMethod),
				total:         decimal.Zero,
			}
			grouped[id] = existing
			order = append(order, id)
		}
		existing.total = existing.total.Add(total)
		existing.items = append(existing.items, item)
	}

	orders := make([]matcher.AmazonOrder, 0, len(order))
	for _, id := range order {
		o := grouped[id]
		date, err := parseDate(o.date)
		if err != nil {
			return nil, fmt.Errorf("order %s: failed to parse order date: %w", id, err)
		}
		built, err := matcher.NewAmazonOrder(o.id, date, o.total, o.paymentMethod, o.items)
		if err != nil {
			return nil, err
		}
		orders = append(orders, built)
	}
	return orders, nil
}

type csvOrder struct {
	id            string
	date          string
	paymentMethod string
	total         decimal.Decimal
	items         []matcher.OrderItem
}

type csvRow struct {
	columns map[string]int
	record  []string
}

func (r csvRow) get(name string) string {
	idx, ok := r.columns[name]
	if !ok || idx >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[idx])
}

// item builds the line item; the price is the line total (unit price × quantity).
func (r csvRow) item() (matcher.OrderItem, error) {
	quantity := 1
	if raw := r.get(colQuantity); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil {
			return matcher.OrderItem{}, fmt.Errorf("invalid quantity %q: %w", raw, err)
		}
		if q > 0 {
			quantity = q
		}
	}

	unit, err := parseAmount(r.get(colUnitPrice))
	if err != nil {
		return matcher.OrderItem{}, fmt.Errorf("failed to parse unit price: %w", err)
	}

	asin := r.get(colASIN)
	return matcher.OrderItem{
		Name:     r.get(colProductName),
		Category: r.get(colCategory),
		ASIN:     asin,
		Price:    unit.Mul(decimal.NewFromInt(int64(quantity))),
		Quantity: quantity,
		Link:     productLink(asin),
	}, nil
}

// indexColumns maps lower-cased header names to their position. A UTF-8 BOM
// on the first header is dropped.
func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return columns
}
