package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSpawn()
	c.RecordSpawn()
	c.RecordStops(3)
	c.RecordStops(0)
	c.RecordCrash()
	c.RecordReuse(true)
	c.RecordReuse(false)
	c.SetTracked(2)

	if got := testutil.ToFloat64(c.workersStarted); got != 2 {
		t.Fatalf("workersStarted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.workersStopped); got != 3 {
		t.Fatalf("workersStopped = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.workersCrashed); got != 1 {
		t.Fatalf("workersCrashed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.reuseHits); got != 1 {
		t.Fatalf("reuseHits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.reuseMisses); got != 1 {
		t.Fatalf("reuseMisses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.trackedWorkers); got != 2 {
		t.Fatalf("trackedWorkers = %v, want 2", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.RecordSpawn()
	c.RecordStops(5)
	c.RecordCrash()
	c.RecordReuse(true)
	c.SetTracked(9)
	c.ObserveAction(0.5)
}
