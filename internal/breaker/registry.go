package breaker

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"skuscan/internal/clock"
)

// Registry owns one breaker per vendor so that a misbehaving vendor is
// quarantined in isolation.
type Registry struct {
	threshold int
	cooldown  time.Duration
	clock     clock.Clock
	log       *zap.Logger

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

func NewRegistry(threshold int, cooldown time.Duration, clk clock.Clock, log *zap.Logger) *Registry {
	return &Registry{
		threshold: threshold,
		cooldown:  cooldown,
		clock:     clk,
		log:       log,
		breakers:  make(map[string]*Breaker),
	}
}

// For returns the vendor's breaker, creating it on first use.
func (r *Registry) For(vendor string) *Breaker {
	r.mu.RLock()
	b := r.breakers[vendor]
	r.mu.RUnlock()
	if b != nil {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b = r.breakers[vendor]; b == nil {
		b = New(vendor, r.threshold, r.cooldown, r.clock, r.log)
		r.breakers[vendor] = b
	}
	return b
}

// Snapshots lists all breakers sorted by vendor name.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(r.breakers))
	for _, b := range r.breakers {
		snaps = append(snaps, b.Snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Vendor < snaps[j].Vendor })
	return snaps
}

// Reset closes the named vendor's breaker. Reports false for unknown vendors.
func (r *Registry) Reset(vendor string) bool {
	r.mu.RLock()
	b := r.breakers[vendor]
	r.mu.RUnlock()
	if b == nil {
		return false
	}
	b.Reset()
	return true
}
