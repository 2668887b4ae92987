package jobs

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"skuscan/internal/eventbus"
	"skuscan/internal/models"
)

type fakeSource struct {
	mu    sync.Mutex
	calls []string
	fn    func(sku string) (*models.NormalizedRecord, error)
}

func (f *fakeSource) Lookup(_ context.Context, sku string) (*models.NormalizedRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, sku)
	f.mu.Unlock()
	return f.fn(sku)
}

func (f *fakeSource) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newScheduler(opts Options, src ProductSource) (*Scheduler, *eventbus.Bus) {
	bus := eventbus.New()
	return New(opts, src, bus, zap.NewNop()), bus
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestSchedulerTracksLookupsFromBus(t *testing.T) {
	s, bus := newScheduler(Options{}, &fakeSource{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	for i := 0; i < 3; i++ {
		bus.Publish(eventbus.Event{
			Type:      eventbus.TopicLookup,
			Timestamp: time.Now(),
			Data:      eventbus.Lookup{SKU: "SKU001", Result: eventbus.ResultAvailable},
		})
	}
	bus.Publish(eventbus.Event{
		Type:      eventbus.TopicLookup,
		Timestamp: time.Now(),
		Data:      eventbus.Lookup{SKU: "SKU002", Result: eventbus.ResultCacheHit},
	})

	waitFor(t, func() bool {
		top := s.tracker.TopN(2)
		return reflect.DeepEqual(top, []string{"SKU001", "SKU002"})
	})
}

func TestSchedulerRecordsVendorCallsFromBus(t *testing.T) {
	s, bus := newScheduler(Options{}, &fakeSource{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	bus.Publish(eventbus.Event{
		Type:      eventbus.TopicVendorCall,
		Timestamp: time.Now(),
		Data:      eventbus.VendorCall{Vendor: "VendorA", SKU: "SKU001", Outcome: eventbus.OutcomeSuccess, Duration: 40 * time.Millisecond},
	})
	bus.Publish(eventbus.Event{
		Type:      eventbus.TopicVendorCall,
		Timestamp: time.Now(),
		Data:      eventbus.VendorCall{Vendor: "VendorA", SKU: "SKU001", Outcome: eventbus.OutcomeFailure, Duration: 60 * time.Millisecond},
	})

	waitFor(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		st := s.stats["VendorA"]
		return st != nil && st.calls == 2
	})

	reports := s.drainStats()
	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}
	rep := reports[0]
	if rep.vendor != "VendorA" || rep.calls != 2 || rep.failures != 1 {
		t.Fatalf("report = %+v, want VendorA with 2 calls, 1 failure", rep)
	}
	if rep.totalLatency != 100*time.Millisecond {
		t.Fatalf("totalLatency = %v, want 100ms", rep.totalLatency)
	}
}

func TestRecordCallIgnoresBreakerOpen(t *testing.T) {
	s, _ := newScheduler(Options{}, &fakeSource{})

	s.recordCall(eventbus.VendorCall{Vendor: "VendorA", Outcome: eventbus.OutcomeBreakerOpen})
	s.recordCall(eventbus.VendorCall{Vendor: "VendorA", Outcome: eventbus.OutcomeSuccess, Duration: 10 * time.Millisecond})

	reports := s.drainStats()
	if len(reports) != 1 || reports[0].calls != 1 {
		t.Fatalf("reports = %+v, want a single VendorA call", reports)
	}
}

func TestDrainStatsResets(t *testing.T) {
	s, _ := newScheduler(Options{}, &fakeSource{})
	s.recordCall(eventbus.VendorCall{Vendor: "VendorB", Outcome: eventbus.OutcomeSuccess, Duration: 5 * time.Millisecond})

	if got := len(s.drainStats()); got != 1 {
		t.Fatalf("first drain returned %d reports, want 1", got)
	}
	if got := len(s.drainStats()); got != 0 {
		t.Fatalf("second drain returned %d reports, want 0", got)
	}
}

func TestDrainStatsOrdersByVendor(t *testing.T) {
	s, _ := newScheduler(Options{}, &fakeSource{})
	s.recordCall(eventbus.VendorCall{Vendor: "VendorC", Outcome: eventbus.OutcomeSuccess})
	s.recordCall(eventbus.VendorCall{Vendor: "VendorA", Outcome: eventbus.OutcomeSuccess})
	s.recordCall(eventbus.VendorCall{Vendor: "VendorB", Outcome: eventbus.OutcomeFailure})

	reports := s.drainStats()
	var vendors []string
	for _, rep := range reports {
		vendors = append(vendors, rep.vendor)
	}
	want := []string{"VendorA", "VendorB", "VendorC"}
	if !reflect.DeepEqual(vendors, want) {
		t.Fatalf("vendors = %v, want %v", vendors, want)
	}
}

func TestPrewarmRefreshesTopSKUs(t *testing.T) {
	src := &fakeSource{fn: func(sku string) (*models.NormalizedRecord, error) {
		switch sku {
		case "SKU001":
			return &models.NormalizedRecord{SKU: sku, VendorName: "VendorA", Price: 99.99, Stock: 15, SourceTimestamp: time.Now()}, nil
		case "SKU002":
			return nil, nil
		default:
			return nil, errors.New("vendor unreachable")
		}
	}}
	s, _ := newScheduler(Options{PrewarmTopN: 3}, src)

	for i := 0; i < 5; i++ {
		s.tracker.Track("SKU001")
	}
	for i := 0; i < 4; i++ {
		s.tracker.Track("SKU002")
	}
	for i := 0; i < 3; i++ {
		s.tracker.Track("SKU003")
	}
	s.tracker.Track("SKU004")

	s.Prewarm(context.Background())

	want := []string{"SKU001", "SKU002", "SKU003"}
	if got := src.seen(); !reflect.DeepEqual(got, want) {
		t.Fatalf("prewarm looked up %v, want %v", got, want)
	}
}

func TestPrewarmNoLookupsRecorded(t *testing.T) {
	src := &fakeSource{fn: func(string) (*models.NormalizedRecord, error) {
		return nil, nil
	}}
	s, _ := newScheduler(Options{}, src)

	s.Prewarm(context.Background())

	if got := src.seen(); len(got) != 0 {
		t.Fatalf("prewarm looked up %v, want nothing", got)
	}
}

func TestReportVendorPerformanceDrains(t *testing.T) {
	s, _ := newScheduler(Options{}, &fakeSource{})
	s.recordCall(eventbus.VendorCall{Vendor: "VendorA", Outcome: eventbus.OutcomeSuccess, Duration: 20 * time.Millisecond})
	s.recordCall(eventbus.VendorCall{Vendor: "VendorA", Outcome: eventbus.OutcomeFailure, Duration: 40 * time.Millisecond})

	s.ReportVendorPerformance()

	if got := len(s.drainStats()); got != 0 {
		t.Fatalf("stats survived the report, %d vendors still tracked", got)
	}
}
