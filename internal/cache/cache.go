package cache

import (
	"context"
	"time"
)

// Cache is the store contract the rest of the service depends on. Reads and
// writes never surface store outages to callers: a failed Get is a miss, a
// failed Set is dropped, both with a log line. Delete and DeletePattern are
// operator-facing and do return errors.
type Cache interface {
	// Get unmarshals the value at key into dest and reports whether a
	// usable value was found.
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Exists(ctx context.Context, key string) bool
	Delete(ctx context.Context, key string) error
	// DeletePattern removes all keys matching a glob pattern and returns
	// how many were deleted.
	DeletePattern(ctx context.Context, pattern string) (int, error)
}

// ProductKey is where the winning normalized record for a SKU lives.
func ProductKey(sku string) string {
	return "product:" + sku
}

// ProductMissKey marks a SKU that recently resolved to OUT_OF_STOCK. Only
// written when negative caching is enabled; the product key itself is never
// used for misses.
func ProductMissKey(sku string) string {
	return ProductKey(sku) + ":miss"
}

// RateLimitKey buckets requests into fixed one-minute windows. The window
// component is minute-resolution UTC so all instances agree on bucket
// boundaries regardless of local zone.
func RateLimitKey(apiKey string, now time.Time) string {
	return "rate_limit:" + apiKey + ":" + now.UTC().Format("2006-01-02-15-04")
}
