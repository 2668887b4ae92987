package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.ProductCacheTTL != 120*time.Second {
		t.Errorf("expected product TTL 120s, got %s", cfg.ProductCacheTTL)
	}
	if cfg.FreshnessWindow != 600*time.Second {
		t.Errorf("expected freshness window 600s, got %s", cfg.FreshnessWindow)
	}
	if cfg.VendorTimeout != 2*time.Second {
		t.Errorf("expected vendor timeout 2s, got %s", cfg.VendorTimeout)
	}
	if cfg.VendorRetries != 2 {
		t.Errorf("expected 2 retries, got %d", cfg.VendorRetries)
	}
	if cfg.BreakerThreshold != 3 {
		t.Errorf("expected breaker threshold 3, got %d", cfg.BreakerThreshold)
	}
	if cfg.BreakerCooldown != 30*time.Second {
		t.Errorf("expected breaker cooldown 30s, got %s", cfg.BreakerCooldown)
	}
	if cfg.RateLimitPerMinute != 60 {
		t.Errorf("expected rate limit 60, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.NegativeCacheTTL != 0 {
		t.Errorf("expected negative caching disabled, got %s", cfg.NegativeCacheTTL)
	}
	if cfg.RedisAddr() != "localhost:6379" {
		t.Errorf("expected localhost:6379, got %s", cfg.RedisAddr())
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("VENDOR_TIMEOUT_SECONDS", "5")
	t.Setenv("VENDOR_RETRIES", "0")
	t.Setenv("BREAKER_COOLDOWN_SECONDS", "10")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "5")
	t.Setenv("PREWARM_INTERVAL", "90s")
	t.Setenv("PREWARM_ENABLED", "false")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")

	cfg := FromEnv()

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.VendorTimeout != 5*time.Second {
		t.Errorf("expected vendor timeout 5s, got %s", cfg.VendorTimeout)
	}
	if cfg.VendorRetries != 0 {
		t.Errorf("expected 0 retries, got %d", cfg.VendorRetries)
	}
	if cfg.BreakerCooldown != 10*time.Second {
		t.Errorf("expected cooldown 10s, got %s", cfg.BreakerCooldown)
	}
	if cfg.RateLimitPerMinute != 5 {
		t.Errorf("expected rate limit 5, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.PrewarmInterval != 90*time.Second {
		t.Errorf("expected prewarm interval 90s, got %s", cfg.PrewarmInterval)
	}
	if cfg.PrewarmEnabled {
		t.Error("expected prewarm disabled")
	}
	if cfg.RedisAddr() != "cache.internal:6380" {
		t.Errorf("unexpected redis addr %s", cfg.RedisAddr())
	}
}

func TestFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("VENDOR_RETRIES", "two")
	t.Setenv("PREWARM_INTERVAL", "soon")

	cfg := FromEnv()
	if cfg.VendorRetries != 2 {
		t.Errorf("expected default retries on bad value, got %d", cfg.VendorRetries)
	}
	if cfg.PrewarmInterval != 5*time.Minute {
		t.Errorf("expected default prewarm interval on bad value, got %s", cfg.PrewarmInterval)
	}
}

func writeVendorsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vendors.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadVendors(t *testing.T) {
	path := writeVendorsFile(t, `
vendors:
  - name: VendorA
    schema: inventory_status
    backend: file
    data_file: data/vendor_a.json
  - name: VendorB
    schema: stock_flag
    backend: http
    base_url: http://vendor-b.internal
    max_rps: 20
  - name: VendorC
    schema: quantity_flag
    backend: sim
    data_file: data/vendor_c.json
    min_delay_ms: 100
    max_delay_ms: 2000
    failure_rate: 0.2
`)

	vendors, err := LoadVendors(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vendors) != 3 {
		t.Fatalf("expected 3 vendors, got %d", len(vendors))
	}
	if vendors[0].Name != "VendorA" || vendors[0].Schema != SchemaInventoryStatus {
		t.Errorf("unexpected first vendor: %+v", vendors[0])
	}
	if vendors[1].MaxRPS != 20 {
		t.Errorf("expected max_rps 20, got %v", vendors[1].MaxRPS)
	}
	if vendors[2].FailureRate != 0.2 {
		t.Errorf("expected failure_rate 0.2, got %v", vendors[2].FailureRate)
	}
}

func TestLoadVendorsRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: "vendors: []"},
		{name: "unknown schema", content: `
vendors:
  - name: V
    schema: bogus
    backend: file
    data_file: x.json
`},
		{name: "unknown backend", content: `
vendors:
  - name: V
    schema: stock_flag
    backend: carrier_pigeon
`},
		{name: "file without data_file", content: `
vendors:
  - name: V
    schema: stock_flag
    backend: file
`},
		{name: "http without base_url", content: `
vendors:
  - name: V
    schema: stock_flag
    backend: http
`},
		{name: "postgres bad table", content: `
vendors:
  - name: V
    schema: stock_flag
    backend: postgres
    dsn: postgres://localhost/v
    table: "products; drop table users"
`},
		{name: "duplicate names", content: `
vendors:
  - name: V
    schema: stock_flag
    backend: file
    data_file: x.json
  - name: V
    schema: stock_flag
    backend: file
    data_file: y.json
`},
		{name: "failure rate out of range", content: `
vendors:
  - name: V
    schema: quantity_flag
    backend: sim
    data_file: x.json
    failure_rate: 1.5
`},
	}

	for _, tc := range tests {
		path := writeVendorsFile(t, tc.content)
		if _, err := LoadVendors(path); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
