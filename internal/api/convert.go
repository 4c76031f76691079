package api

import (
	"foundry/internal/journal"
	"foundry/internal/registry"
)

// FromRecord maps a live registry record to its wire representation.
func FromRecord(rec *registry.Record) WorkerInfo {
	return WorkerInfo{
		ID:          rec.ID,
		PID:         rec.PID,
		State:       rec.State().String(),
		Kind:        rec.Kind.Name,
		Fingerprint: rec.Fingerprint.Short(),
		LogLevel:    rec.Fingerprint.LogLevel(),
		CreatedAt:   rec.CreatedAt,
		LastUsedAt:  rec.LastUsed(),
	}
}

// FromWorkerRow maps a journaled worker row to its wire representation.
// The journal keeps the full fingerprint digest; the row is passed through
// untruncated so history stays exact.
func FromWorkerRow(row journal.WorkerRow) WorkerInfo {
	return WorkerInfo{
		ID:          row.ID,
		PID:         row.PID,
		State:       row.State,
		Kind:        row.Kind,
		Fingerprint: row.Fingerprint,
		CreatedAt:   row.CreatedAt,
		LastUsedAt:  row.LastUsedAt,
	}
}

// FromJournalEvent maps a journal event to its wire representation.
func FromJournalEvent(ev journal.Event) Event {
	return Event{
		ID:       ev.ID,
		At:       ev.At,
		WorkerID: ev.WorkerID,
		Name:     ev.Name,
		Detail:   ev.Detail,
	}
}

// CountStates tallies worker state occurrences for status summaries.
func CountStates(workers []WorkerInfo) map[string]int {
	counts := make(map[string]int, len(workers))
	for _, w := range workers {
		counts[w.State]++
	}
	return counts
}
