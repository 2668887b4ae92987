package jobs

import (
	"sort"
	"sync"
)

// Tracker counts product lookups per SKU so the prewarm job knows which
// cache entries are worth refreshing. Counts accumulate for the lifetime
// of the process.
type Tracker struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{counts: make(map[string]int)}
}

// Track records one lookup of the given SKU.
func (t *Tracker) Track(sku string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[sku]++
}

// TopN returns up to n SKUs ordered by lookup count, most requested first.
// Ties break alphabetically so the ordering is stable.
func (t *Tracker) TopN(n int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	skus := make([]string, 0, len(t.counts))
	for sku := range t.counts {
		skus = append(skus, sku)
	}
	sort.Slice(skus, func(i, j int) bool {
		ci, cj := t.counts[skus[i]], t.counts[skus[j]]
		if ci != cj {
			return ci > cj
		}
		return skus[i] < skus[j]
	})
	if n < len(skus) {
		skus = skus[:n]
	}
	return skus
}
