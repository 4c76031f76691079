package journal_test

import (
	"context"
	"testing"
	"time"

	"foundry/internal/journal"
	"foundry/internal/testsupport"
)

func TestRecordAndListEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	if err := store.RecordEvent(ctx, "w-1", journal.EventSpawned, "kind=general"); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if err := store.RecordEvent(ctx, "w-1", journal.EventStopped, ""); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	events, err := store.Events(ctx, 10)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("event count = %d, want 2", len(events))
	}
	// Newest first.
	if events[0].Name != journal.EventStopped || events[1].Name != journal.EventSpawned {
		t.Fatalf("unexpected ordering: %s then %s", events[0].Name, events[1].Name)
	}
	if events[0].WorkerID != "w-1" {
		t.Fatalf("worker id = %q, want w-1", events[0].WorkerID)
	}
	if events[0].At.IsZero() {
		t.Fatal("event timestamp not round-tripped")
	}
}

func TestUpsertWorker(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	now := time.Now().UTC()
	row := journal.WorkerRow{
		ID:          "w-9",
		PID:         4242,
		Fingerprint: "abcdef123456",
		Kind:        "compile",
		State:       "idle",
		CreatedAt:   now,
		LastUsedAt:  now,
	}
	if err := store.UpsertWorker(ctx, row); err != nil {
		t.Fatalf("UpsertWorker: %v", err)
	}

	row.State = "busy"
	if err := store.UpsertWorker(ctx, row); err != nil {
		t.Fatalf("UpsertWorker update: %v", err)
	}

	workers, err := store.Workers(ctx)
	if err != nil {
		t.Fatalf("Workers: %v", err)
	}
	if len(workers) != 1 {
		t.Fatalf("worker count = %d, want 1", len(workers))
	}
	if workers[0].State != "busy" {
		t.Fatalf("state = %q, want busy", workers[0].State)
	}
	if workers[0].Kind != "compile" || workers[0].PID != 4242 {
		t.Fatalf("row not preserved: %+v", workers[0])
	}
}

func TestSetWorkerState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := store.UpsertWorker(ctx, journal.WorkerRow{
		ID: "w-2", PID: 1, Fingerprint: "ff", Kind: "general", State: "idle",
		CreatedAt: now, LastUsedAt: now,
	}); err != nil {
		t.Fatalf("UpsertWorker: %v", err)
	}
	if err := store.SetWorkerState(ctx, "w-2", "crashed"); err != nil {
		t.Fatalf("SetWorkerState: %v", err)
	}
	workers, err := store.Workers(ctx)
	if err != nil {
		t.Fatalf("Workers: %v", err)
	}
	if workers[0].State != "crashed" {
		t.Fatalf("state = %q, want crashed", workers[0].State)
	}
}
