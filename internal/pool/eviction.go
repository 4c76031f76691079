package pool

import (
	"context"
	"fmt"

	"foundry/internal/journal"
	"foundry/internal/logging"
	"foundry/internal/procctl"
	"foundry/internal/registry"
)

// StopAll synchronously stops every tracked worker, Idle or Busy, and
// blocks until each is confirmed stopped. Busy workers get the stop grace
// period to finish their action before being killed. Returns the number of
// workers stopped in this batch.
func (p *Pool) StopAll(ctx context.Context) int {
	stopped := 0
	for _, rec := range p.reg.Snapshot() {
		if p.claimForStop(rec) {
			p.stopWorker(ctx, rec, p.controllerFor(rec.ID), journal.EventStopped, "explicit stop")
			stopped++
		}
	}
	p.metrics.RecordStops(stopped)
	p.logger.Info(fmt.Sprintf("Stopped %d worker daemon(s).", stopped),
		logging.String(logging.FieldEventType, "workers_stopped"))
	return stopped
}

// claimForStop wins the record for eviction from whichever state it is in.
// The compare-and-set loses cleanly to concurrent allocation: a record that
// just went Busy is claimed via the Busy arm and stopped after its action.
func (p *Pool) claimForStop(rec *registry.Record) bool {
	return rec.Transition(registry.Idle, registry.Stopping) ||
		rec.Transition(registry.Busy, registry.Stopping) ||
		rec.Transition(registry.Starting, registry.Stopping)
}

// evictIdleDrifted stops idle workers whose recorded log level differs from
// the session's desired level. Busy workers are left alone; their drift is
// caught the next time they are idle at a session boundary.
func (p *Pool) evictIdleDrifted(ctx context.Context, logLevel string) int {
	evicted := 0
	for _, rec := range p.reg.Snapshot() {
		if rec.Fingerprint.LogLevel() == logLevel {
			continue
		}
		if !rec.Transition(registry.Idle, registry.Stopping) {
			continue
		}
		p.logger.Info("Log level has changed, stopping idle worker daemon with out-of-date log level.",
			logging.String(logging.FieldEventType, "worker_evicted"),
			logging.String(logging.FieldWorkerID, rec.ID),
			logging.String("worker_log_level", rec.Fingerprint.LogLevel()),
			logging.String("session_log_level", logLevel))
		p.stopWorker(ctx, rec, p.controllerFor(rec.ID), journal.EventEvictedLogLevel,
			fmt.Sprintf("worker level %s, session level %s", rec.Fingerprint.LogLevel(), logLevel))
		evicted++
	}
	p.metrics.RecordStops(evicted)
	return evicted
}

// evictSessionScoped stops workers whose kind is session-scoped and whose
// last acquisition was under the ending session. Idle ones stop
// immediately; Busy ones are flagged to retire when released. A worker a
// concurrent session has since re-bound belongs to that session now.
func (p *Pool) evictSessionScoped(ctx context.Context, sessionID string) int {
	stopped := 0
	for _, rec := range p.reg.Snapshot() {
		if !p.sessionScoped(rec) {
			continue
		}
		if rec.SessionID() != sessionID {
			continue
		}
		if rec.Transition(registry.Idle, registry.Stopping) {
			p.stopWorker(ctx, rec, p.controllerFor(rec.ID), journal.EventEvictedSession, "session ended")
			stopped++
			continue
		}
		if rec.State() == registry.Busy {
			rec.RequestRetire()
		}
	}
	p.metrics.RecordStops(stopped)
	if stopped > 0 {
		p.logger.Info(fmt.Sprintf("Stopped %d worker daemon(s).", stopped),
			logging.String(logging.FieldEventType, "workers_stopped"))
	}
	return stopped
}

func (p *Pool) sessionScoped(rec *registry.Record) bool {
	if rec.Kind.SessionScoped {
		return true
	}
	return p.cfg.SessionScoped(rec.Kind.Name)
}

// stopWorker executes the stop for a record already claimed into Stopping.
func (p *Pool) stopWorker(ctx context.Context, rec *registry.Record, ctrl procctl.Controller, event, detail string) {
	if ctrl != nil {
		if err := ctrl.Stop(ctx); err != nil {
			p.logger.Warn("worker stop reported error",
				logging.String(logging.FieldWorkerID, rec.ID),
				logging.Error(err))
		}
		_ = ctrl.Close()
	}
	rec.Transition(registry.Stopping, registry.Stopped)
	p.reg.Remove(rec.ID)
	p.untrack(rec.ID)
	p.metrics.SetTracked(p.reg.Len())
	p.journalEvent(rec.ID, event, detail)
	p.journalSetState(rec.ID, registry.Stopped)
}
