// Package metrics exposes the guest chain's Prometheus instrumentation
// (SPEC_FULL.md "Metrics & events"): block-production liveness counters
// and allocator occupancy gauges, registered against a caller-supplied
// registry so tests and multiple chain instances in one process don't
// collide on the default global registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/composable-guest/guestchain/pool"
)

// Collectors groups every metric hostglue emits, bundled so call sites
// thread one value through instead of four separate counters.
type Collectors struct {
	EventsTotal       *prometheus.CounterVec
	AllocatorCells    prometheus.Gauge
	AllocatorOccupied prometheus.Gauge
	AllocatorFree     prometheus.Gauge
}

// NewCollectors creates and registers the guest chain's metrics against
// reg. Registering the same Collectors construction twice against the
// same registry panics, matching promauto's own behaviour — callers
// should build one Collectors per process (or per isolated registry in
// tests).
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guestchain",
			Name:      "events_total",
			Help:      "Count of structured chain events emitted by host glue, by kind.",
		}, []string{"kind"}),
		AllocatorCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "guestchain",
			Name:      "allocator_cells",
			Help:      "Total cells ever allocated in the trie's backing pool.",
		}),
		AllocatorOccupied: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "guestchain",
			Name:      "allocator_occupied_cells",
			Help:      "Cells currently holding live trie nodes.",
		}),
		AllocatorFree: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "guestchain",
			Name:      "allocator_free_cells",
			Help:      "Cells freed and available for reuse.",
		}),
	}
	reg.MustRegister(c.EventsTotal, c.AllocatorCells, c.AllocatorOccupied, c.AllocatorFree)
	return c
}

// ObserveEvent increments the events_total counter for the given event
// kind ("initialised", "new_block", "block_signed", "block_finalised").
func (c *Collectors) ObserveEvent(kind string) {
	c.EventsTotal.WithLabelValues(kind).Inc()
}

// ObserveAllocatorStats updates the allocator gauges from a pool.Stats
// snapshot.
func (c *Collectors) ObserveAllocatorStats(s pool.Stats) {
	c.AllocatorCells.Set(float64(s.Cells))
	c.AllocatorOccupied.Set(float64(s.Occupied))
	c.AllocatorFree.Set(float64(s.Free))
}
