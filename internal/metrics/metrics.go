// Package metrics exposes Prometheus collectors fed by the service event bus.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"skuscan/internal/breaker"
	"skuscan/internal/eventbus"
)

const namespace = "skuscan"

// BreakerSource exposes breaker snapshots for the state gauge.
type BreakerSource interface {
	Snapshots() []breaker.Snapshot
}

// Metrics holds the service's Prometheus collectors. Construct with New and
// keep a single instance per registry.
type Metrics struct {
	vendorCalls   *prometheus.CounterVec
	vendorLatency *prometheus.HistogramVec
	breakerState  *prometheus.GaugeVec
	lookups       *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		vendorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vendor_calls_total",
			Help:      "Vendor call attempts by vendor and outcome",
		}, []string{"vendor", "outcome"}),
		vendorLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vendor_call_duration_seconds",
			Help:      "Duration of individual vendor call attempts",
			Buckets:   prometheus.DefBuckets,
		}, []string{"vendor"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state per vendor (0=closed, 1=open, 2=half-open)",
		}, []string{"vendor"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Product lookups by result",
		}, []string{"result"}),
	}
	reg.MustRegister(m.vendorCalls, m.vendorLatency, m.breakerState, m.lookups)
	return m
}

// ObserveCall records one vendor call attempt.
func (m *Metrics) ObserveCall(call eventbus.VendorCall) {
	m.vendorCalls.WithLabelValues(call.Vendor, call.Outcome).Inc()
	m.vendorLatency.WithLabelValues(call.Vendor).Observe(call.Duration.Seconds())
}

// ObserveLookup records one resolved product lookup.
func (m *Metrics) ObserveLookup(lookup eventbus.Lookup) {
	m.lookups.WithLabelValues(lookup.Result).Inc()
}

// UpdateBreakerStates refreshes the per-vendor state gauge from live snapshots.
func (m *Metrics) UpdateBreakerStates(breakers BreakerSource) {
	for _, snap := range breakers.Snapshots() {
		m.breakerState.WithLabelValues(snap.Vendor).Set(stateValue(snap.State))
	}
}

// Run consumes bus events until ctx is done, keeping the collectors current.
// Breaker gauges are refreshed after every vendor call since transitions only
// happen on call boundaries.
func (m *Metrics) Run(ctx context.Context, bus *eventbus.Bus, breakers BreakerSource) {
	events := make(chan eventbus.Event, 256)
	bus.Subscribe(eventbus.TopicVendorCall, events)
	bus.Subscribe(eventbus.TopicLookup, events)

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			switch data := evt.Data.(type) {
			case eventbus.VendorCall:
				m.ObserveCall(data)
				m.UpdateBreakerStates(breakers)
			case eventbus.Lookup:
				m.ObserveLookup(data)
			}
		}
	}
}

func stateValue(state string) float64 {
	switch state {
	case breaker.Open.String():
		return 1
	case breaker.HalfOpen.String():
		return 2
	default:
		return 0
	}
}
