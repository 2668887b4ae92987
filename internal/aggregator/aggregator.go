// Package aggregator answers "who should fulfil this SKU" by fanning a
// lookup out to every configured vendor, normalizing what comes back, and
// picking one winner. It owns the product cache and all vendor resilience.
package aggregator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"skuscan/internal/breaker"
	"skuscan/internal/cache"
	"skuscan/internal/clock"
	"skuscan/internal/eventbus"
	"skuscan/internal/models"
	"skuscan/internal/normalizer"
	"skuscan/internal/selector"
	"skuscan/internal/vendor"
)

// Aggregator coordinates one resilient caller per vendor behind a
// read-through cache. Lookups for the same SKU inside the cache TTL never
// reach the vendors.
type Aggregator struct {
	callers  []*Caller
	selector selector.Selector
	cache    cache.Cache
	bus      *eventbus.Bus
	clock    clock.Clock
	log      *zap.Logger
	opts     Options

	// sem bounds in-flight vendor calls across all concurrent lookups.
	// nil when unbounded.
	sem chan struct{}
}

// New wires a caller around every fetcher. Breakers are created lazily per
// vendor name through the registry so each vendor's health is independent.
func New(opts Options, fetchers []vendor.Fetcher, breakers *breaker.Registry,
	norm *normalizer.Normalizer, store cache.Cache, bus *eventbus.Bus,
	clk clock.Clock, log *zap.Logger) *Aggregator {

	callers := make([]*Caller, 0, len(fetchers))
	for _, f := range fetchers {
		callers = append(callers, NewCaller(f, breakers.For(f.Name()), norm, opts, bus, clk, log))
	}

	var sem chan struct{}
	if opts.MaxConcurrent > 0 {
		sem = make(chan struct{}, opts.MaxConcurrent)
	}

	return &Aggregator{
		callers:  callers,
		selector: selector.New(),
		cache:    store,
		bus:      bus,
		clock:    clk,
		log:      log,
		opts:     opts,
		sem:      sem,
	}
}

// Lookup resolves the best offer for a SKU. A nil record with a nil error
// means no vendor currently has the product; that verdict is itself an
// answer, not a failure. A non-nil error only ever reflects the caller's own
// context ending before the verdict was reached.
func (a *Aggregator) Lookup(ctx context.Context, sku string) (*models.NormalizedRecord, error) {
	var cached models.NormalizedRecord
	if a.cache.Get(ctx, cache.ProductKey(sku), &cached) {
		a.log.Debug("cache hit", zap.String("sku", sku), zap.String("vendor", cached.VendorName))
		a.publishLookup(sku, eventbus.ResultCacheHit)
		return &cached, nil
	}
	if a.opts.NegativeTTL > 0 && a.cache.Exists(ctx, cache.ProductMissKey(sku)) {
		a.log.Debug("negative cache hit", zap.String("sku", sku))
		a.publishLookup(sku, eventbus.ResultCacheHit)
		return nil, nil
	}

	candidates := a.fanOut(ctx, sku)

	// An abandoned lookup leaves no trace: partial results must not be
	// cached as the answer for the next caller.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	best := a.selector.Best(candidates)
	if best == nil {
		a.log.Info("no vendor has stock",
			zap.String("sku", sku), zap.Int("candidates", len(candidates)))
		if a.opts.NegativeTTL > 0 {
			a.cache.Set(ctx, cache.ProductMissKey(sku), true, a.opts.NegativeTTL)
		}
		a.publishLookup(sku, eventbus.ResultOutOfStock)
		return nil, nil
	}

	a.cache.Set(ctx, cache.ProductKey(sku), best, a.opts.ProductTTL)
	a.log.Info("lookup resolved",
		zap.String("sku", sku),
		zap.String("vendor", best.VendorName),
		zap.Float64("price", best.Price),
		zap.Int("stock", best.Stock),
		zap.Int("candidates", len(candidates)))
	a.publishLookup(sku, eventbus.ResultAvailable)
	return best, nil
}

// fanOut queries every vendor concurrently and collects the records that
// survived the resilience stack. Vendors that error, reject, or fast-fail
// simply contribute nothing.
func (a *Aggregator) fanOut(ctx context.Context, sku string) []*models.NormalizedRecord {
	results := make(chan *models.NormalizedRecord, len(a.callers))

	var wg sync.WaitGroup
	for _, c := range a.callers {
		wg.Add(1)
		go func(c *Caller) {
			defer wg.Done()
			if a.sem != nil {
				select {
				case a.sem <- struct{}{}:
					defer func() { <-a.sem }()
				case <-ctx.Done():
					return
				}
			}
			rec, err := c.Call(ctx, sku)
			if err != nil || rec == nil {
				return
			}
			results <- rec
		}(c)
	}
	wg.Wait()
	close(results)

	candidates := make([]*models.NormalizedRecord, 0, len(a.callers))
	for rec := range results {
		candidates = append(candidates, rec)
	}
	return candidates
}

func (a *Aggregator) publishLookup(sku, result string) {
	a.bus.Publish(eventbus.Event{
		Type:      eventbus.TopicLookup,
		Timestamp: a.clock.Now(),
		Data:      eventbus.Lookup{SKU: sku, Result: result},
	})
}
