package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"skuscan/internal/aggregator"
	"skuscan/internal/api"
	"skuscan/internal/breaker"
	"skuscan/internal/cache"
	"skuscan/internal/clock"
	"skuscan/internal/config"
	"skuscan/internal/eventbus"
	"skuscan/internal/jobs"
	"skuscan/internal/metrics"
	"skuscan/internal/normalizer"
	"skuscan/internal/vendor"
)

// BuildCommit is set at build time via -ldflags.
var BuildCommit = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Config
	cfg := config.FromEnv()

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting skuscan",
		zap.String("version", BuildCommit),
		zap.String("port", cfg.Port),
		zap.String("redis", cfg.RedisAddr()),
		zap.String("vendors_file", cfg.VendorsFile))

	// 2. Dependencies
	clk := clock.System()

	store, err := cache.NewRedis(cache.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.Fatal("cache unavailable", zap.Error(err))
	}
	defer store.Close()

	vendorCfgs, err := config.LoadVendors(cfg.VendorsFile)
	if err != nil {
		logger.Fatal("vendor registry invalid", zap.Error(err))
	}
	fetchers, err := vendor.BuildAll(vendorCfgs, clk, logger)
	if err != nil {
		logger.Fatal("vendor construction failed", zap.Error(err))
	}
	defer closeFetchers(fetchers)
	for _, f := range fetchers {
		logger.Info("vendor registered", zap.String("vendor", f.Name()))
	}

	// 3. Services
	bus := eventbus.New()
	defer bus.Close()

	breakers := breaker.NewRegistry(cfg.BreakerThreshold, cfg.BreakerCooldown, clk, logger)
	norm := normalizer.New(cfg.FreshnessWindow, clk)

	agg := aggregator.New(aggregator.Options{
		Timeout:       cfg.VendorTimeout,
		Retries:       cfg.VendorRetries,
		ProductTTL:    cfg.ProductCacheTTL,
		NegativeTTL:   cfg.NegativeCacheTTL,
		MaxConcurrent: cfg.VendorMaxConcurrent,
	}, fetchers, breakers, norm, store, bus, clk, logger)

	reg := prometheus.NewRegistry()
	collectors := metrics.New(reg)
	metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	scheduler := jobs.New(jobs.Options{
		PrewarmEnabled:  cfg.PrewarmEnabled,
		PrewarmInterval: cfg.PrewarmInterval,
		PrewarmTopN:     cfg.PrewarmTopN,
		ReportInterval:  cfg.VendorReportInterval,
	}, agg, bus, logger)

	apiServer := api.NewServer(api.Config{
		Port:               cfg.Port,
		Version:            BuildCommit,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AdminJWTSecret:     cfg.AdminJWTSecret,
	}, agg, store, breakers, metricsHandler, clk, logger)

	// 4. Run
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		collectors.Run(ctx, bus, breakers)
	}()

	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("scheduler failed to start", zap.Error(err))
	}

	// Handle SIGINT/SIGTERM; main blocks on sigChan below.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start API in background
	go func() {
		logger.Info("api listening", zap.String("port", cfg.Port))
		if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("api server failed", zap.Error(err))
		}
	}()

	<-sigChan
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api shutdown incomplete", zap.Error(err))
	}
	scheduler.Stop()
	cancel()
	wg.Wait()
}

// newLogger builds the process logger at the configured level. An
// unparseable level falls back to info rather than refusing to start.
func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	logCfg := zap.NewProductionConfig()
	logCfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := logCfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

// closeFetchers releases vendor backends that hold connections (postgres
// pools). File and HTTP fetchers have nothing to release.
func closeFetchers(fetchers []vendor.Fetcher) {
	for _, f := range fetchers {
		if c, ok := f.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
