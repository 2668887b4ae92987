package normalizer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"skuscan/internal/clock"
	"skuscan/internal/models"
)

// unspecifiedStock is assigned when a vendor says "in stock" without giving
// a count. The value is part of the service contract; downstream consumers
// read it as "present but unspecified".
const unspecifiedStock = 5

// priceRe is the accepted grammar for decimal price strings. Signs,
// exponents, currency symbols and digit grouping are all rejected.
var priceRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// RejectionError marks a payload that was fetched fine but cannot become a
// valid normalized record. Rejections are terminal: callers must not retry
// and must not count them against vendor health.
type RejectionError struct {
	Vendor string
	SKU    string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("vendor %s sku %s rejected: %s", e.Vendor, e.SKU, e.Reason)
}

// Normalizer converts vendor payloads into canonical records. It is pure:
// no I/O, no shared state; the same input at the same clock reading gives
// the same output.
type Normalizer struct {
	window time.Duration
	clock  clock.Clock
}

// New builds a Normalizer that rejects data older than window.
func New(window time.Duration, clk clock.Clock) *Normalizer {
	return &Normalizer{window: window, clock: clk}
}

func (n *Normalizer) Normalize(raw models.RawRecord) (*models.NormalizedRecord, error) {
	switch rec := raw.(type) {
	case models.InventoryStatusRecord:
		return n.fromInventoryStatus(rec)
	case models.StockFlagRecord:
		return n.fromStockFlag(rec)
	case models.QuantityFlagRecord:
		return n.fromQuantityFlag(rec)
	default:
		return nil, &RejectionError{Vendor: raw.VendorName(), Reason: "unknown payload shape"}
	}
}

func (n *Normalizer) fromInventoryStatus(rec models.InventoryStatusRecord) (*models.NormalizedRecord, error) {
	stock := 0
	if rec.InventoryCount == nil {
		if rec.AvailabilityStatus == "IN_STOCK" {
			stock = unspecifiedStock
		}
	} else if *rec.InventoryCount > 0 {
		stock = *rec.InventoryCount
	}

	return n.build(rec.Vendor, rec.ProductCode, rec.UnitPrice, stock, rec.LastUpdated)
}

func (n *Normalizer) fromStockFlag(rec models.StockFlagRecord) (*models.NormalizedRecord, error) {
	stock := 0
	if rec.StockLevel == nil {
		if rec.InStock {
			stock = unspecifiedStock
		}
	} else if *rec.StockLevel > 0 {
		stock = *rec.StockLevel
	}

	price, err := parsePriceString(rec.PriceUSD)
	if err != nil {
		return nil, &RejectionError{Vendor: rec.Vendor, SKU: rec.SKU, Reason: err.Error()}
	}

	ts, err := parseTimestamp(rec.UpdatedAt)
	if err != nil {
		return nil, &RejectionError{Vendor: rec.Vendor, SKU: rec.SKU,
			Reason: fmt.Sprintf("unparseable timestamp %q", rec.UpdatedAt)}
	}

	return n.build(rec.Vendor, rec.SKU, price, stock, ts)
}

func (n *Normalizer) fromQuantityFlag(rec models.QuantityFlagRecord) (*models.NormalizedRecord, error) {
	qty, err := strconv.Atoi(strings.TrimSpace(rec.Qty))
	if err != nil {
		qty = 0
	}

	available := strings.ToLower(strings.TrimSpace(rec.Available))
	stock := qty
	switch {
	case available == "no":
		stock = 0
	case qty == 0 && available == "yes":
		stock = unspecifiedStock
	}
	if stock < 0 {
		stock = 0
	}

	ts, err := parseTimestamp(rec.UpdatedAt)
	if err != nil {
		return nil, &RejectionError{Vendor: rec.Vendor, SKU: rec.ID,
			Reason: fmt.Sprintf("unparseable timestamp %q", rec.UpdatedAt)}
	}

	return n.build(rec.Vendor, rec.ID, rec.Cost, stock, ts)
}

// build applies the gates shared by every shape: price must be a positive
// finite number, and the source timestamp must fall inside the freshness
// window. Negative prices reject; they are never clamped.
func (n *Normalizer) build(vendor, sku string, price float64, stock int, ts time.Time) (*models.NormalizedRecord, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return nil, &RejectionError{Vendor: vendor, SKU: sku,
			Reason: fmt.Sprintf("invalid price %v", price)}
	}
	if age := n.clock.Now().Sub(ts); age > n.window {
		return nil, &RejectionError{Vendor: vendor, SKU: sku,
			Reason: fmt.Sprintf("stale data: %s old exceeds %s window", age.Truncate(time.Second), n.window)}
	}

	return &models.NormalizedRecord{
		SKU:             sku,
		VendorName:      vendor,
		Price:           price,
		Stock:           stock,
		SourceTimestamp: ts,
	}, nil
}

func parsePriceString(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !priceRe.MatchString(s) {
		return 0, fmt.Errorf("invalid price format %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid price format %q", s)
	}
	f, _ := d.Float64()
	return f, nil
}

// parseTimestamp accepts RFC 3339, plus a bare ISO-8601 datetime (no zone)
// taken as UTC, which some vendors emit.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05.999999999", s)
}
