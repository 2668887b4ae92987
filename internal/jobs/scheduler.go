package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"skuscan/internal/eventbus"
	"skuscan/internal/models"
)

// prewarmLookupTimeout bounds each individual lookup issued by the
// prewarm job so one stuck vendor cannot stall the whole sweep.
const prewarmLookupTimeout = 15 * time.Second

// ProductSource resolves a SKU through the normal lookup path, refreshing
// the cache as a side effect.
type ProductSource interface {
	Lookup(ctx context.Context, sku string) (*models.NormalizedRecord, error)
}

// Options configures the background job scheduler.
type Options struct {
	// PrewarmEnabled turns the periodic cache prewarm sweep on.
	PrewarmEnabled bool
	// PrewarmInterval is how often the prewarm sweep runs.
	PrewarmInterval time.Duration
	// PrewarmTopN is how many of the most requested SKUs each sweep refreshes.
	PrewarmTopN int
	// ReportInterval is how often per-vendor call statistics are logged
	// and reset. Zero disables the report.
	ReportInterval time.Duration
}

// vendorStats accumulates call statistics for one vendor between reports.
type vendorStats struct {
	calls        int
	failures     int
	totalLatency time.Duration
}

// vendorReport is a drained snapshot of one vendor's interval statistics.
type vendorReport struct {
	vendor       string
	calls        int
	failures     int
	totalLatency time.Duration
}

// Scheduler runs the periodic maintenance jobs: prewarming the cache for
// popular SKUs and reporting per-vendor call performance. It feeds both
// from the event bus.
type Scheduler struct {
	opts     Options
	products ProductSource
	bus      *eventbus.Bus
	tracker  *Tracker
	cron     *cron.Cron
	log      *zap.Logger

	mu    sync.Mutex
	stats map[string]*vendorStats
}

// New creates a Scheduler. Start must be called to subscribe to the bus
// and schedule the jobs.
func New(opts Options, products ProductSource, bus *eventbus.Bus, log *zap.Logger) *Scheduler {
	if opts.PrewarmTopN <= 0 {
		opts.PrewarmTopN = 10
	}
	return &Scheduler{
		opts:     opts,
		products: products,
		bus:      bus,
		tracker:  NewTracker(),
		cron:     cron.New(),
		log:      log,
		stats:    make(map[string]*vendorStats),
	}
}

// Start subscribes to the event bus, launches the consumer goroutine and
// schedules the periodic jobs. The consumer stops when ctx is cancelled;
// scheduled jobs stop on Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	events := make(chan eventbus.Event, 256)
	s.bus.Subscribe(eventbus.TopicLookup, events)
	s.bus.Subscribe(eventbus.TopicVendorCall, events)
	go s.consume(ctx, events)

	if s.opts.PrewarmEnabled && s.opts.PrewarmInterval > 0 {
		spec := fmt.Sprintf("@every %s", s.opts.PrewarmInterval)
		if _, err := s.cron.AddFunc(spec, func() { s.Prewarm(context.Background()) }); err != nil {
			return fmt.Errorf("schedule prewarm: %w", err)
		}
		s.log.Info("cache prewarm scheduled",
			zap.Duration("interval", s.opts.PrewarmInterval),
			zap.Int("top_n", s.opts.PrewarmTopN))
	}
	if s.opts.ReportInterval > 0 {
		spec := fmt.Sprintf("@every %s", s.opts.ReportInterval)
		if _, err := s.cron.AddFunc(spec, s.ReportVendorPerformance); err != nil {
			return fmt.Errorf("schedule vendor report: %w", err)
		}
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron scheduler and waits for any running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) consume(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			switch data := evt.Data.(type) {
			case eventbus.Lookup:
				s.tracker.Track(data.SKU)
			case eventbus.VendorCall:
				s.recordCall(data)
			}
		}
	}
}

func (s *Scheduler) recordCall(call eventbus.VendorCall) {
	if call.Outcome == eventbus.OutcomeBreakerOpen {
		// the vendor was never touched
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats[call.Vendor]
	if st == nil {
		st = &vendorStats{}
		s.stats[call.Vendor] = st
	}
	st.calls++
	st.totalLatency += call.Duration
	if call.Outcome == eventbus.OutcomeFailure {
		st.failures++
	}
}

// Prewarm refreshes the cache for the most requested SKUs by running each
// through the normal lookup path.
func (s *Scheduler) Prewarm(ctx context.Context) {
	top := s.tracker.TopN(s.opts.PrewarmTopN)
	if len(top) == 0 {
		s.log.Debug("prewarm skipped, no lookups recorded yet")
		return
	}
	s.log.Info("prewarming cache", zap.Strings("skus", top))

	var warmed, unavailable, failed int
	for _, sku := range top {
		lookupCtx, cancel := context.WithTimeout(ctx, prewarmLookupTimeout)
		rec, err := s.products.Lookup(lookupCtx, sku)
		cancel()
		switch {
		case err != nil:
			failed++
			s.log.Warn("prewarm lookup failed", zap.String("sku", sku), zap.Error(err))
		case rec == nil:
			unavailable++
		default:
			warmed++
		}
	}
	s.log.Info("cache prewarm complete",
		zap.Int("warmed", warmed),
		zap.Int("unavailable", unavailable),
		zap.Int("failed", failed))
}

// ReportVendorPerformance logs call statistics per vendor for the interval
// since the last report, then resets the counters.
func (s *Scheduler) ReportVendorPerformance() {
	for _, rep := range s.drainStats() {
		failureRate := float64(rep.failures) / float64(rep.calls) * 100
		avgLatency := rep.totalLatency / time.Duration(rep.calls)
		s.log.Info("vendor performance",
			zap.String("vendor", rep.vendor),
			zap.Int("calls", rep.calls),
			zap.Int("failures", rep.failures),
			zap.Float64("failure_rate_pct", failureRate),
			zap.Duration("avg_latency", avgLatency),
			zap.Duration("total_latency", rep.totalLatency))
	}
}

// drainStats snapshots the per-vendor counters and resets them, returning
// reports ordered by vendor name. Vendors with no calls are skipped.
func (s *Scheduler) drainStats() []vendorReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports := make([]vendorReport, 0, len(s.stats))
	for vendor, st := range s.stats {
		if st.calls == 0 {
			continue
		}
		reports = append(reports, vendorReport{
			vendor:       vendor,
			calls:        st.calls,
			failures:     st.failures,
			totalLatency: st.totalLatency,
		})
	}
	s.stats = make(map[string]*vendorStats)

	sort.Slice(reports, func(i, j int) bool { return reports[i].vendor < reports[j].vendor })
	return reports
}
