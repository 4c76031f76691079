package pool

import (
	"context"

	"github.com/google/uuid"

	"foundry/internal/fingerprint"
	"foundry/internal/logging"
)

// Session scopes a build invocation. Beginning a session applies the
// log-level eviction policy against the idle pool; ending it tears down
// workers whose kind does not outlive the build.
type Session struct {
	ID       string
	LogLevel string

	pool *Pool
}

// BeginSession starts a session at the given log level. Idle workers whose
// fingerprint carries a different level are stopped before any allocation
// under this session happens. The level is canonicalized the same way the
// fingerprint records it, so case or whitespace differences never evict.
func (p *Pool) BeginSession(ctx context.Context, logLevel string) (*Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	logLevel = fingerprint.NormalizeLevel(logLevel)
	s := &Session{
		ID:       uuid.NewString(),
		LogLevel: logLevel,
		pool:     p,
	}
	evicted := p.evictIdleDrifted(ctx, logLevel)
	p.logger.Info("session started",
		logging.String(logging.FieldEventType, "session_started"),
		logging.String(logging.FieldSessionID, s.ID),
		logging.String("log_level", logLevel),
		logging.Int("evicted", evicted))
	return s, nil
}

// End closes out the session. Idle session-scoped workers last used by this
// session are stopped now; busy ones are flagged to retire when their
// current action finishes. Workers owned by other sessions are untouched.
func (s *Session) End(ctx context.Context) int {
	stopped := s.pool.evictSessionScoped(ctx, s.ID)
	s.pool.logger.Info("session ended",
		logging.String(logging.FieldEventType, "session_ended"),
		logging.String(logging.FieldSessionID, s.ID),
		logging.Int("stopped", stopped))
	return stopped
}
