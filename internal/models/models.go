package models

import "time"

// RawRecord is a vendor payload in its native shape. The normalizer is the
// only consumer that looks inside; everything else passes it through opaque.
type RawRecord interface {
	VendorName() string
	rawRecord()
}

// InventoryStatusRecord is the shape used by vendors that report an
// inventory count plus an IN_STOCK/OUT_OF_STOCK status string.
type InventoryStatusRecord struct {
	Vendor             string    `json:"vendor"`
	ProductCode        string    `json:"product_code"`
	InventoryCount     *int      `json:"inventory_count"`
	UnitPrice          float64   `json:"unit_price"`
	AvailabilityStatus string    `json:"availability_status"`
	LastUpdated        time.Time `json:"last_updated"`
}

func (r InventoryStatusRecord) VendorName() string { return r.Vendor }
func (InventoryStatusRecord) rawRecord()           {}

// StockFlagRecord is the shape used by vendors that report a stock level, a
// decimal price string, and an in-stock boolean. The timestamp arrives as an
// ISO-8601 string and is parsed during normalization.
type StockFlagRecord struct {
	Vendor     string `json:"vendor"`
	SKU        string `json:"sku"`
	StockLevel *int   `json:"stock_level"`
	PriceUSD   string `json:"price_usd"`
	InStock    bool   `json:"in_stock"`
	UpdatedAt  string `json:"updated_at"`
}

func (r StockFlagRecord) VendorName() string { return r.Vendor }
func (StockFlagRecord) rawRecord()           {}

// QuantityFlagRecord is the shape used by vendors that report a quantity
// string, a numeric cost, and a yes/no availability flag.
type QuantityFlagRecord struct {
	Vendor    string  `json:"vendor"`
	ID        string  `json:"id"`
	Qty       string  `json:"qty"`
	Cost      float64 `json:"cost"`
	Available string  `json:"available"`
	UpdatedAt string  `json:"updated_at"`
}

func (r QuantityFlagRecord) VendorName() string { return r.Vendor }
func (QuantityFlagRecord) rawRecord()           {}

// NormalizedRecord is the canonical per-vendor answer for a SKU. Price is
// always > 0 and stock >= 0; payloads that cannot satisfy that are rejected
// during normalization and never reach this type.
type NormalizedRecord struct {
	SKU             string    `json:"sku"`
	VendorName      string    `json:"vendor_name"`
	Price           float64   `json:"price"`
	Stock           int       `json:"stock"`
	SourceTimestamp time.Time `json:"source_timestamp"`
}

// Product availability statuses returned by the API.
const (
	StatusAvailable  = "AVAILABLE"
	StatusOutOfStock = "OUT_OF_STOCK"
)

// ProductResponse is the body of GET /products/{sku}. Vendor, price and
// stock are null for OUT_OF_STOCK responses.
type ProductResponse struct {
	SKU       string    `json:"sku"`
	Vendor    *string   `json:"vendor"`
	Price     *float64  `json:"price"`
	Stock     *int      `json:"stock"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the generic error body.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RateLimitResponse is the 429 body, echoing the window state so clients
// can back off without parsing headers.
type RateLimitResponse struct {
	Error        string    `json:"error"`
	Detail       string    `json:"detail"`
	CurrentCount int       `json:"current_count"`
	Limit        int       `json:"limit"`
	RetryAfter   int       `json:"retry_after"`
	Timestamp    time.Time `json:"timestamp"`
}
