package api

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"skuscan/internal/cache"
	"skuscan/internal/models"
)

// windowSeconds is the fixed rate-limit window. The counter key embeds the
// current minute, so the TTL only has to outlive the window it belongs to.
const windowSeconds = 60

// rateLimitMiddleware enforces the per-API-key request budget on product
// routes. The counter lives in the shared cache so every instance sees the
// same window; the read-modify-write is deliberately non-atomic, which can
// over-admit a handful of requests under concurrency at the window edge.
// When the cache is unreachable the request is admitted: availability beats
// a precise ceiling here.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("x-api-key")
		if apiKey == "" {
			s.log.Warn("request without api key",
				zap.String("path", r.URL.Path), zap.String("remote", r.RemoteAddr))
			s.writeError(w, http.StatusUnauthorized, "Missing API Key",
				"x-api-key header is required")
			return
		}

		limit := s.cfg.RateLimitPerMinute
		key := cache.RateLimitKey(apiKey, s.clock.Now())

		count := 0
		s.store.Get(r.Context(), key, &count)

		if count >= limit {
			s.log.Warn("rate limit exceeded",
				zap.String("key_prefix", keyPrefix(apiKey)),
				zap.Int("count", count), zap.Int("limit", limit))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(windowSeconds))
			w.Header().Set("Retry-After", strconv.Itoa(windowSeconds))
			writeJSON(w, http.StatusTooManyRequests, models.RateLimitResponse{
				Error:        "Rate Limit Exceeded",
				Detail:       "Maximum " + strconv.Itoa(limit) + " requests per minute allowed",
				CurrentCount: count,
				Limit:        limit,
				RetryAfter:   windowSeconds,
				Timestamp:    s.clock.Now().UTC(),
			})
			return
		}

		s.store.Set(r.Context(), key, count+1, windowSeconds*time.Second)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit-count-1))
		w.Header().Set("X-RateLimit-Reset", strconv.Itoa(windowSeconds))

		next.ServeHTTP(w, r)
	})
}

// keyPrefix trims an API key for logging so the full credential never lands
// in the logs.
func keyPrefix(apiKey string) string {
	if len(apiKey) <= 8 {
		return apiKey
	}
	return apiKey[:8] + "***"
}
