// Package api is the HTTP edge of the service: product lookups behind
// per-key rate limiting, a Prometheus exposition endpoint, and a JWT-guarded
// admin surface for breaker and cache operations.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"skuscan/internal/breaker"
	"skuscan/internal/cache"
	"skuscan/internal/clock"
	"skuscan/internal/models"
)

// ProductSource resolves a SKU to its best current offer. A nil record with
// a nil error means no vendor has stock.
type ProductSource interface {
	Lookup(ctx context.Context, sku string) (*models.NormalizedRecord, error)
}

// BreakerAdmin is the slice of the breaker registry the admin surface needs.
type BreakerAdmin interface {
	Snapshots() []breaker.Snapshot
	Reset(vendor string) bool
}

// Config carries the edge settings resolved by main.
type Config struct {
	Port               string
	Version            string
	RateLimitPerMinute int
	// AdminJWTSecret signs admin bearer tokens. Empty disables the
	// /admin routes entirely.
	AdminJWTSecret string
}

type Server struct {
	cfg      Config
	products ProductSource
	store    cache.Cache
	breakers BreakerAdmin
	clock    clock.Clock
	log      *zap.Logger

	httpServer *http.Server
}

// NewServer assembles the router. The metrics handler is injected so the
// edge does not care which registry backs it; nil disables /metrics.
func NewServer(cfg Config, products ProductSource, store cache.Cache, breakers BreakerAdmin,
	metrics http.Handler, clk clock.Clock, log *zap.Logger) *Server {
	r := mux.NewRouter()

	s := &Server{
		cfg:      cfg,
		products: products,
		store:    store,
		breakers: breakers,
		clock:    clk,
		log:      log,
	}

	r.Use(s.requestMiddleware)
	r.Use(commonMiddleware)
	r.Use(s.recoveryMiddleware)

	registerBaseRoutes(r, s, metrics)
	registerProductRoutes(r, s)
	registerAdminRoutes(r, s)

	s.httpServer = &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return s
}

// Handler exposes the assembled router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
