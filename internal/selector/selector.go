package selector

import (
	"math"
	"sort"

	"skuscan/internal/models"
)

// spreadThresholdPct switches the policy between price-led and stock-led
// ranking. At spreads above it, availability is worth more than the few
// percent saved on price.
const spreadThresholdPct = 10.0

// defaultEpsilon is the tolerance for treating two float prices as equal.
const defaultEpsilon = 1e-6

// Selector picks the best vendor offer for a SKU. The policy is a pure
// function of its input: filter to positive stock, then rank by price
// spread regime with the vendor name as the final, deterministic tie-break.
type Selector struct {
	Epsilon float64
}

func New() Selector {
	return Selector{Epsilon: defaultEpsilon}
}

// Best returns the winning record, or nil when no candidate has stock.
// The input slice is not modified.
func (s Selector) Best(candidates []*models.NormalizedRecord) *models.NormalizedRecord {
	inStock := make([]*models.NormalizedRecord, 0, len(candidates))
	for _, rec := range candidates {
		if rec != nil && rec.Stock > 0 {
			inStock = append(inStock, rec)
		}
	}

	switch len(inStock) {
	case 0:
		return nil
	case 1:
		return inStock[0]
	}

	minPrice, maxPrice := inStock[0].Price, inStock[0].Price
	for _, rec := range inStock[1:] {
		if rec.Price < minPrice {
			minPrice = rec.Price
		}
		if rec.Price > maxPrice {
			maxPrice = rec.Price
		}
	}

	spread := 0.0
	if minPrice > 0 {
		spread = (maxPrice - minPrice) / minPrice * 100
	}

	if spread > spreadThresholdPct {
		sort.Slice(inStock, func(i, j int) bool { return s.stockFirst(inStock[i], inStock[j]) })
	} else {
		sort.Slice(inStock, func(i, j int) bool { return s.priceFirst(inStock[i], inStock[j]) })
	}
	return inStock[0]
}

// stockFirst ranks by largest stock, then lowest price, then vendor name.
func (s Selector) stockFirst(a, b *models.NormalizedRecord) bool {
	if a.Stock != b.Stock {
		return a.Stock > b.Stock
	}
	if !s.priceEqual(a.Price, b.Price) {
		return a.Price < b.Price
	}
	return a.VendorName < b.VendorName
}

// priceFirst ranks by lowest price, then largest stock, then vendor name.
func (s Selector) priceFirst(a, b *models.NormalizedRecord) bool {
	if !s.priceEqual(a.Price, b.Price) {
		return a.Price < b.Price
	}
	if a.Stock != b.Stock {
		return a.Stock > b.Stock
	}
	return a.VendorName < b.VendorName
}

func (s Selector) priceEqual(a, b float64) bool {
	return math.Abs(a-b) <= s.Epsilon
}
