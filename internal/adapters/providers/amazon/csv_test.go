package amazon

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderHistoryCSV = `"Website","Order ID","Order Date","Unit Price","Quantity","Total Owed","ASIN","Product Name","Payment Instrument Type"
"Amazon.com","112-0000001","2024-01-15T18:22:11Z","12.99","2","25.98","B000000001","USB-C Cable","Visa - 1234"
"Amazon.com","112-0000002","2024-01-16T09:00:00Z","5.00","1","5.35","B000000002","AA Batteries","Mastercard - 9999"
"Amazon.com","112-0000001","2024-01-15T18:22:11Z","8.50","1","9.10","B000000003","Desk Lamp","Visa - 1234"
`

func TestParseOrderHistoryCSV(t *testing.T) {
	// Act
	orders, err := ParseOrderHistoryCSV(strings.NewReader(orderHistoryCSV))

	// Assert
	require.NoError(t, err)
	require.Len(t, orders, 2)

	first := orders[0]
	assert.Equal(t, "112-0000001", first.OrderID)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), first.Date)
	assert.True(t, first.Total.Equal(decimal.RequireFromString("35.08")), "total owed is summed, got %s", first.Total)
	assert.Equal(t, "Visa - 1234", first.PaymentMethod)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "USB-C Cable", first.Items[0].Name)
	assert.Equal(t, 2, first.Items[0].Quantity)
	assert.True(t, first.Items[0].Price.Equal(decimal.RequireFromString("25.98")))
	assert.Equal(t, "https://www.amazon.com/dp/B000000001", first.Items[0].Link)
	assert.Equal(t, "Desk Lamp", first.Items[1].Name)

	assert.Equal(t, "112-0000002", orders[1].OrderID)
	assert.Equal(t, "Mastercard - 9999", orders[1].PaymentMethod)
}

func TestParseOrderHistoryCSV_HeaderVariants(t *testing.T) {
	data := "\ufeffORDER ID,Order Date,Total Owed,Product Name,Category\n" +
		"A-1,01/20/2024,$10.00,Notebook,Office Products\n" +
		",,,,\n"

	orders, err := ParseOrderHistoryCSV(strings.NewReader(data))

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "A-1", orders[0].OrderID)
	assert.Equal(t, "Office Products", orders[0].Items[0].Category)
	assert.Equal(t, 1, orders[0].Items[0].Quantity)
}

func TestParseOrderHistoryCSV_MissingColumn(t *testing.T) {
	data := "Order ID,Order Date,Product Name\nA-1,2024-01-01,Thing\n"

	_, err := ParseOrderHistoryCSV(strings.NewReader(data))

	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestParseOrderHistoryCSV_Empty(t *testing.T) {
	orders, err := ParseOrderHistoryCSV(strings.NewReader(""))

	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestParseOrderHistoryCSV_BadValues(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"bad total", "A-1,2024-01-01,abc,Thing,1"},
		{"bad quantity", "A-1,2024-01-01,1.00,Thing,many"},
		{"bad date", "A-1,someday,1.00,Thing,1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := "Order ID,Order Date,Total Owed,Product Name,Quantity\n" + tt.row + "\n"
			_, err := ParseOrderHistoryCSV(strings.NewReader(data))
			assert.Error(t, err)
		})
	}
}
