package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"skuscan/internal/breaker"
	"skuscan/internal/clock"
	"skuscan/internal/eventbus"
	"skuscan/internal/models"
	"skuscan/internal/normalizer"
	"skuscan/internal/vendor"
)

// Options tune the aggregation pipeline. Zero values fall back to the
// defaults applied in New.
type Options struct {
	// Timeout bounds each individual vendor attempt, not the whole call.
	Timeout time.Duration
	// Retries is how many extra attempts follow a failed first one.
	Retries int
	// Backoff is the base sleep between attempts, scaled linearly by the
	// number of the attempt that just failed.
	Backoff time.Duration
	// ProductTTL is how long a winning record stays cached.
	ProductTTL time.Duration
	// NegativeTTL caches "no vendor has it" verdicts. Zero disables
	// negative caching entirely.
	NegativeTTL time.Duration
	// MaxConcurrent caps in-flight vendor calls across all lookups.
	// Zero means unbounded.
	MaxConcurrent int
}

const (
	defaultTimeout = 2 * time.Second
	defaultBackoff = 100 * time.Millisecond
)

// Caller wraps one vendor fetcher with the full resilience stack: breaker
// admission, per-attempt timeout, bounded retries with linear backoff, and
// normalization of whatever comes back. One Caller per vendor; safe for
// concurrent use because all mutable state lives in the breaker.
type Caller struct {
	fetcher    vendor.Fetcher
	breaker    *breaker.Breaker
	normalizer *normalizer.Normalizer
	timeout    time.Duration
	retries    int
	backoff    time.Duration
	bus        *eventbus.Bus
	clock      clock.Clock
	log        *zap.Logger
}

// NewCaller builds the resilience wrapper for a single vendor.
func NewCaller(f vendor.Fetcher, b *breaker.Breaker, n *normalizer.Normalizer, opts Options,
	bus *eventbus.Bus, clk clock.Clock, log *zap.Logger) *Caller {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	return &Caller{
		fetcher:    f,
		breaker:    b,
		normalizer: n,
		timeout:    opts.Timeout,
		retries:    opts.Retries,
		backoff:    opts.Backoff,
		bus:        bus,
		clock:      clk,
		log:        log,
	}
}

// Call resolves one vendor's answer for a SKU. The error taxonomy matters to
// the caller less than the shape: any non-nil error means this vendor
// contributes nothing to the lookup.
//
//   - breaker refusals fast-fail without touching the vendor
//   - vendor.ErrNotFound is a clean answer: no retry, breaker unharmed
//   - normalization rejections are terminal: the fetch worked, the data is
//     unusable, retrying would fetch the same bytes
//   - transport errors and attempt timeouts retry up to the budget, each one
//     counted against the breaker
//   - parent cancellation stops everything and judges nothing
func (c *Caller) Call(ctx context.Context, sku string) (*models.NormalizedRecord, error) {
	name := c.fetcher.Name()
	attempts := c.retries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := c.breaker.Allow(); err != nil {
			c.publish(name, sku, eventbus.OutcomeBreakerOpen, 0)
			c.log.Debug("vendor call refused by open breaker",
				zap.String("vendor", name), zap.String("sku", sku))
			return nil, fmt.Errorf("vendor %s: %w", name, err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		start := c.clock.Now()
		raw, err := c.fetcher.Fetch(attemptCtx, sku)
		cancel()
		elapsed := c.clock.Now().Sub(start)

		if err != nil {
			if ctx.Err() != nil {
				// The client went away mid-flight. Release the breaker
				// without judging the vendor.
				c.breaker.Cancel()
				c.publish(name, sku, eventbus.OutcomeCancelled, elapsed)
				return nil, ctx.Err()
			}
			if errors.Is(err, vendor.ErrNotFound) {
				c.breaker.Success()
				c.publish(name, sku, eventbus.OutcomeNotFound, elapsed)
				return nil, err
			}

			c.breaker.Failure()
			c.publish(name, sku, eventbus.OutcomeFailure, elapsed)
			c.log.Warn("vendor call failed",
				zap.String("vendor", name),
				zap.String("sku", sku),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Error(err))
			lastErr = err

			if attempt < attempts {
				if err := c.sleep(ctx, c.backoff*time.Duration(attempt)); err != nil {
					return nil, err
				}
			}
			continue
		}

		rec, err := c.normalizer.Normalize(raw)
		if err != nil {
			// The vendor answered; its data just can't be used.
			c.breaker.Success()
			c.publish(name, sku, eventbus.OutcomeRejected, elapsed)
			c.log.Warn("vendor payload rejected",
				zap.String("vendor", name), zap.String("sku", sku), zap.Error(err))
			return nil, err
		}

		c.breaker.Success()
		c.publish(name, sku, eventbus.OutcomeSuccess, elapsed)
		return rec, nil
	}

	return nil, fmt.Errorf("vendor %s: %d attempts failed: %w", name, attempts, lastErr)
}

// sleep waits out a backoff period but returns early if the caller gives up.
func (c *Caller) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (c *Caller) publish(vendorName, sku, outcome string, elapsed time.Duration) {
	c.bus.Publish(eventbus.Event{
		Type:      eventbus.TopicVendorCall,
		Timestamp: c.clock.Now(),
		Data: eventbus.VendorCall{
			Vendor:   vendorName,
			SKU:      sku,
			Outcome:  outcome,
			Duration: elapsed,
		},
	})
}
