package amazon

// ScraperOutput is the JSON document written by amazon-order-scraper --stdout
type ScraperOutput struct {
	Orders []ScraperOrder `json:"orders"`
}

// ScraperOrder represents an order from the scraper output
type ScraperOrder struct {
	OrderID      string               `json:"orderId"`
	OrderDate    string               `json:"orderDate"` // ISO 8601: "2025-12-13"
	Total        string               `json:"total"`     // "$116.20"
	Items        []ScraperOrderItem   `json:"items"`
	Transactions []ScraperTransaction `json:"transactions"`
}

// ScraperOrderItem represents an item from the scraper output
type ScraperOrderItem struct {
	Name     string `json:"name"`
	Price    string `json:"price"`    // "$14.99", line total
	Quantity int    `json:"quantity"` // numeric
	ASIN     string `json:"asin"`
	Category string `json:"category"`
}

// ScraperTransaction represents a payment transaction from the scraper output
type ScraperTransaction struct {
	Date        string `json:"date"`        // ISO 8601: "2025-12-13"
	Amount      string `json:"amount"`      // "$116.20"
	Type        string `json:"type"`        // "charge" or "refund"
	Last4       string `json:"last4"`       // "1211"
	Description string `json:"description"` // "Prime Visa ****1211"
}

// Order history CSV column names as exported by Amazon's "Request Your Data"
const (
	colOrderID       = "order id"
	colOrderDate     = "order date"
	colTotalOwed     = "total owed"
	colProductName   = "product name"
	colASIN          = "asin"
	colUnitPrice     = "unit price"
	colQuantity      = "quantity"
	colPaymentMethod = "payment instrument type"
	colCategory      = "category"
)

var requiredColumns = []string{colOrderID, colOrderDate, colTotalOwed, colProductName}
