package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/composable-guest/guestchain/pool"
)

func TestObserveEventIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg)

	c.ObserveEvent("new_block")
	c.ObserveEvent("new_block")
	c.ObserveEvent("block_signed")

	if got := testutil.ToFloat64(c.EventsTotal.WithLabelValues("new_block")); got != 2 {
		t.Fatalf("new_block count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.EventsTotal.WithLabelValues("block_signed")); got != 1 {
		t.Fatalf("block_signed count = %v, want 1", got)
	}
}

func TestObserveAllocatorStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg)

	c.ObserveAllocatorStats(pool.Stats{Cells: 10, Occupied: 7, Free: 3})

	if got := testutil.ToFloat64(c.AllocatorCells); got != 10 {
		t.Fatalf("AllocatorCells = %v, want 10", got)
	}
	if got := testutil.ToFloat64(c.AllocatorOccupied); got != 7 {
		t.Fatalf("AllocatorOccupied = %v, want 7", got)
	}
	if got := testutil.ToFloat64(c.AllocatorFree); got != 3 {
		t.Fatalf("AllocatorFree = %v, want 3", got)
	}
}
