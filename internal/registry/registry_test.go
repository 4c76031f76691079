package registry_test

import (
	"sync"
	"testing"

	"foundry/internal/fingerprint"
	"foundry/internal/registry"
)

func mustFingerprint(t *testing.T, level string) fingerprint.Fingerprint {
	t.Helper()
	fp, err := fingerprint.Compute(fingerprint.Requirements{LogLevel: level, Kind: fingerprint.KindGeneral})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return fp
}

func TestTransitionGuard(t *testing.T) {
	rec := registry.NewRecord("", 100, mustFingerprint(t, "info"))

	if rec.State() != registry.Starting {
		t.Fatalf("new record state = %s, want starting", rec.State())
	}
	if !rec.Transition(registry.Starting, registry.Idle) {
		t.Fatal("Starting->Idle should succeed")
	}
	if rec.Transition(registry.Starting, registry.Idle) {
		t.Fatal("second Starting->Idle should fail")
	}
	if !rec.Transition(registry.Idle, registry.Busy) {
		t.Fatal("Idle->Busy should succeed")
	}
	if rec.Transition(registry.Idle, registry.Stopping) {
		t.Fatal("eviction must not claim a busy record")
	}
}

func TestAcquireIdleMatchesFingerprint(t *testing.T) {
	reg := registry.New()
	info := mustFingerprint(t, "info")
	debug := mustFingerprint(t, "debug")

	rec := registry.NewRecord("", 100, info)
	rec.Transition(registry.Starting, registry.Idle)
	reg.Add(rec)

	if got := reg.AcquireIdle(debug); got != nil {
		t.Fatalf("acquired %s for non-matching fingerprint", got.ID)
	}
	got := reg.AcquireIdle(info)
	if got == nil {
		t.Fatal("expected to acquire matching idle record")
	}
	if got.State() != registry.Busy {
		t.Fatalf("acquired record state = %s, want busy", got.State())
	}
	if again := reg.AcquireIdle(info); again != nil {
		t.Fatal("busy record must not be acquired twice")
	}
}

func TestAcquireIdleExclusiveUnderConcurrency(t *testing.T) {
	reg := registry.New()
	fp := mustFingerprint(t, "info")
	rec := registry.NewRecord("", 100, fp)
	rec.Transition(registry.Starting, registry.Idle)
	reg.Add(rec)

	const callers = 32
	var wg sync.WaitGroup
	winners := make(chan *registry.Record, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := reg.AcquireIdle(fp); got != nil {
				winners <- got
			}
		}()
	}
	wg.Wait()
	close(winners)

	var count int
	for range winners {
		count++
	}
	if count != 1 {
		t.Fatalf("idle record awarded to %d callers, want exactly 1", count)
	}
}

func TestSnapshotAndIdle(t *testing.T) {
	reg := registry.New()
	fp := mustFingerprint(t, "info")

	idle := registry.NewRecord("", 1, fp)
	idle.Transition(registry.Starting, registry.Idle)
	busy := registry.NewRecord("", 2, fp)
	busy.Transition(registry.Starting, registry.Idle)
	busy.Transition(registry.Idle, registry.Busy)
	reg.Add(idle)
	reg.Add(busy)

	if got := len(reg.Snapshot()); got != 2 {
		t.Fatalf("snapshot size = %d, want 2", got)
	}
	idleRecs := reg.Idle()
	if len(idleRecs) != 1 || idleRecs[0].ID != idle.ID {
		t.Fatalf("idle query returned %d records, want the one idle record", len(idleRecs))
	}

	reg.Remove(busy.ID)
	if reg.Len() != 1 {
		t.Fatalf("len after remove = %d, want 1", reg.Len())
	}
}

func TestMarkCrashedFromAnyState(t *testing.T) {
	rec := registry.NewRecord("", 7, mustFingerprint(t, "info"))
	rec.Transition(registry.Starting, registry.Idle)
	rec.Transition(registry.Idle, registry.Busy)

	if prev := rec.MarkCrashed(); prev != registry.Busy {
		t.Fatalf("MarkCrashed previous state = %s, want busy", prev)
	}
	if rec.State() != registry.Crashed {
		t.Fatalf("state = %s, want crashed", rec.State())
	}
	if rec.Transition(registry.Idle, registry.Busy) {
		t.Fatal("crashed record must not be claimable")
	}
}

func TestRetireFlag(t *testing.T) {
	rec := registry.NewRecord("", 9, mustFingerprint(t, "info"))
	if rec.RetireRequested() {
		t.Fatal("retire flag should start clear")
	}
	rec.RequestRetire()
	if !rec.RetireRequested() {
		t.Fatal("retire flag should be set")
	}
	if rec.RetireRequested() {
		t.Fatal("retire flag should clear after read")
	}
}
