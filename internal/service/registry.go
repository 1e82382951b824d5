package service

import (
	"sync"
	"time"

	"github.com/msomdec/coursewatch/internal/domain"
	"github.com/msomdec/coursewatch/internal/metrics"
	"github.com/msomdec/coursewatch/internal/watch"
)

// liveSession is one in-memory watch attempt. mu serialises every call into
// the player, which is not reentrant.
type liveSession struct {
	mu sync.Mutex

	id        string // analytics id
	sessionID string
	userID    int64
	unitID    string
	startedAt time.Time

	player *watch.Player

	// created is set once the analytics and validation rows exist.
	created     bool
	completedAt *time.Time
	endedAt     *time.Time
	lastSeen    time.Time
	// saves numbers captures so the analytics row only moves forward.
	saves int64
}

// record builds the analytics row for the session. Callers hold mu.
func (ls *liveSession) record() domain.AnalyticsRecord {
	a := ls.player.Analytics()
	return domain.AnalyticsRecord{
		ID:                  ls.id,
		UserID:              ls.userID,
		UnitID:              ls.unitID,
		SessionID:           ls.sessionID,
		TotalWatchTime:      a.TotalWatchTime,
		PauseCount:          a.PauseCount,
		SeekCount:           a.SeekCount,
		RewindCount:         a.RewindCount,
		MaxProgressReached:  a.MaxProgressReached,
		CompletionThreshold: ls.player.Engine().Thresholds().CompletionThreshold,
		IsCompleted:         ls.player.Completed(),
		StartedAt:           ls.startedAt,
		EndedAt:             ls.endedAt,
		CompletedAt:         ls.completedAt,
		Version:             ls.saves,
	}
}

// SessionRegistry holds the live sessions of this process keyed by analytics
// id and evicts the ones that stop receiving events.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*liveSession
	idleTTL  time.Duration
	sweep    *sweeper

	// onEvict is guarded by mu but invoked outside it for every session
	// dropped by the sweep.
	onEvict func(*liveSession)
}

// NewSessionRegistry creates a registry. A non-positive idleTTL disables
// eviction.
func NewSessionRegistry(idleTTL time.Duration) *SessionRegistry {
	r := &SessionRegistry{
		sessions: make(map[string]*liveSession),
		idleTTL:  idleTTL,
	}
	r.sweep = startSweeper(sweepInterval(idleTTL), r.evictIdle)
	return r
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return max(ttl/4, time.Second)
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops the eviction sweep. Live sessions stay in memory.
func (r *SessionRegistry) Close() {
	r.sweep.stop()
}

func (r *SessionRegistry) get(id string) (*liveSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.sessions[id]
	return ls, ok
}

// getOrAdd stores ls unless a session with the same id is already live, in
// which case the existing one is returned.
func (r *SessionRegistry) getOrAdd(ls *liveSession) (*liveSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[ls.id]; ok {
		return existing, false
	}
	r.sessions[ls.id] = ls
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	return ls, true
}

func (r *SessionRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
}

// drain removes and returns every live session.
func (r *SessionRegistry) drain() []*liveSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*liveSession, 0, len(r.sessions))
	for id, ls := range r.sessions {
		out = append(out, ls)
		delete(r.sessions, id)
	}
	metrics.ActiveSessions.Set(0)
	return out
}

func (r *SessionRegistry) evictIdle(now time.Time) {
	cutoff := now.Add(-r.idleTTL)

	var evicted []*liveSession
	r.mu.Lock()
	for id, ls := range r.sessions {
		ls.mu.Lock()
		idle := ls.lastSeen.Before(cutoff)
		ls.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			evicted = append(evicted, ls)
		}
	}
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	onEvict := r.onEvict
	r.mu.Unlock()

	if onEvict == nil {
		return
	}
	for _, ls := range evicted {
		onEvict(ls)
	}
}

func (r *SessionRegistry) setOnEvict(fn func(*liveSession)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvict = fn
}
