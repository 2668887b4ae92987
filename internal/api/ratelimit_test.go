package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"skuscan/internal/cache"
	"skuscan/internal/models"
)

func TestRateLimitMissingKey(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rr := doRequest(t, s, "GET", "/products/SKU001", nil, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	var resp models.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error != "Missing API Key" || resp.Detail != "x-api-key header is required" {
		t.Errorf("unexpected body: %+v", resp)
	}
}

func TestRateLimitSixtyFirstRequestRejected(t *testing.T) {
	s, _ := newTestServer(t, Config{RateLimitPerMinute: 60})

	for i := 1; i <= 60; i++ {
		rr := doRequest(t, s, "GET", "/products/SKU001", withAPIKey(), nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rr.Code)
		}
		wantRemaining := strconv.Itoa(60 - i)
		if got := rr.Header().Get("X-RateLimit-Remaining"); got != wantRemaining {
			t.Errorf("request %d: X-RateLimit-Remaining = %q, want %q", i, got, wantRemaining)
		}
	}

	rr := doRequest(t, s, "GET", "/products/SKU001", withAPIKey(), nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("61st request: status = %d, want 429", rr.Code)
	}

	var resp models.RateLimitResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error != "Rate Limit Exceeded" || resp.CurrentCount != 60 || resp.Limit != 60 || resp.RetryAfter != 60 {
		t.Errorf("unexpected 429 body: %+v", resp)
	}
	for header, want := range map[string]string{
		"X-RateLimit-Limit":     "60",
		"X-RateLimit-Remaining": "0",
		"X-RateLimit-Reset":     "60",
		"Retry-After":           "60",
	} {
		if got := rr.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestRateLimitWindowRolls(t *testing.T) {
	s, env := newTestServer(t, Config{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		if rr := doRequest(t, s, "GET", "/products/SKU001", withAPIKey(), nil); rr.Code != http.StatusOK {
			t.Fatalf("warmup %d: status = %d", i, rr.Code)
		}
	}
	if rr := doRequest(t, s, "GET", "/products/SKU001", withAPIKey(), nil); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 at the limit, got %d", rr.Code)
	}

	// The next minute is a fresh window.
	env.clk.Advance(time.Minute)
	if rr := doRequest(t, s, "GET", "/products/SKU001", withAPIKey(), nil); rr.Code != http.StatusOK {
		t.Fatalf("expected a fresh window after a minute, got %d", rr.Code)
	}
}

func TestRateLimitKeysAreIndependent(t *testing.T) {
	s, _ := newTestServer(t, Config{RateLimitPerMinute: 1})

	if rr := doRequest(t, s, "GET", "/products/SKU001", map[string]string{"x-api-key": "alpha"}, nil); rr.Code != http.StatusOK {
		t.Fatalf("alpha: status = %d", rr.Code)
	}
	if rr := doRequest(t, s, "GET", "/products/SKU001", map[string]string{"x-api-key": "alpha"}, nil); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("alpha should be limited, got %d", rr.Code)
	}
	if rr := doRequest(t, s, "GET", "/products/SKU001", map[string]string{"x-api-key": "beta"}, nil); rr.Code != http.StatusOK {
		t.Fatalf("beta must have its own budget, got %d", rr.Code)
	}
}

func TestRateLimitCounterKeyShape(t *testing.T) {
	s, env := newTestServer(t, Config{})

	doRequest(t, s, "GET", "/products/SKU001", withAPIKey(), nil)

	key := cache.RateLimitKey("test-key-123", env.clk.Now())
	var count int
	if !env.store.Get(context.Background(), key, &count) || count != 1 {
		t.Errorf("expected counter 1 at %q, got %d", key, count)
	}
}

func TestRateLimitExemptRoutes(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	for _, target := range []string{"/health", "/"} {
		rr := doRequest(t, s, "GET", target, nil, nil)
		if rr.Code != http.StatusOK {
			t.Errorf("%s without api key: status = %d, want 200", target, rr.Code)
		}
	}
}
