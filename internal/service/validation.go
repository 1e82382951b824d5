package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/msomdec/coursewatch/internal/domain"
	"github.com/msomdec/coursewatch/internal/metrics"
	"github.com/msomdec/coursewatch/internal/watch"
)

const finishTimeout = 5 * time.Second

// EventType names a player callback.
type EventType = watch.EventType

// Event is one callback from the video player.
type Event = watch.Event

const (
	EventMetadata   = watch.EventMetadata
	EventPlay       = watch.EventPlay
	EventTimeUpdate = watch.EventTimeUpdate
	EventSeeked     = watch.EventSeeked
	EventPause      = watch.EventPause
	EventEnded      = watch.EventEnded
)

// SessionSnapshot is a consistent view of one watch session.
type SessionSnapshot struct {
	ID                string
	UnitID            string
	StartedAt         time.Time
	Position          float64
	Playing           bool
	CompletionPercent float64
	Completed         bool
	Live              bool
	Status            watch.Status
	State             domain.ValidationState
	Analytics         watch.PlaybackAnalytics
}

// ValidationService hosts watch engines: it feeds them player events,
// creates their backing records and persists their snapshots. Persistence
// failures are logged and counted but never fail the event path.
type ValidationService struct {
	analytics   domain.AnalyticsRepository
	validations domain.ValidationRepository
	sessions    *SessionRegistry
	th          watch.Thresholds
	group       singleflight.Group
	now         func() time.Time
}

// NewValidationService creates a new ValidationService. Sessions evicted
// from the registry for inactivity are finalized and saved.
func NewValidationService(analytics domain.AnalyticsRepository, validations domain.ValidationRepository, sessions *SessionRegistry, th watch.Thresholds) *ValidationService {
	s := &ValidationService{
		analytics:   analytics,
		validations: validations,
		sessions:    sessions,
		th:          th,
		now:         time.Now,
	}
	sessions.setOnEvict(s.evict)
	return s
}

// Thresholds returns the configuration every engine is built with.
func (s *ValidationService) Thresholds() watch.Thresholds { return s.th }

// Start opens a watch session for unitID. An empty analyticsID starts a new
// attempt; a known one joins the live session or restores it from the store.
func (s *ValidationService) Start(ctx context.Context, userID int64, unitID, analyticsID string) (*SessionSnapshot, error) {
	unitID = strings.TrimSpace(unitID)
	if unitID == "" {
		return nil, fmt.Errorf("%w: unit id is required", domain.ErrInvalidInput)
	}
	if analyticsID == "" {
		analyticsID = uuid.NewString()
	} else if _, err := uuid.Parse(analyticsID); err != nil {
		return nil, fmt.Errorf("%w: analytics id must be a uuid", domain.ErrInvalidInput)
	}

	if ls, ok := s.sessions.get(analyticsID); ok {
		return s.join(ls, userID, unitID)
	}

	ls, err := s.restore(ctx, userID, unitID, analyticsID)
	if errors.Is(err, domain.ErrNotFound) {
		ls = s.newSession(userID, unitID, analyticsID)
	} else if err != nil {
		return nil, err
	}

	ls, added := s.sessions.getOrAdd(ls)
	if !added {
		return s.join(ls, userID, unitID)
	}
	slog.Info("watch session started",
		"analytics_id", analyticsID, "user_id", userID, "unit_id", unitID, "restored", ls.created)
	return s.snapshot(ls, true), nil
}

// Initialize sets the video duration of a live session and makes sure its
// analytics and validation records exist.
func (s *ValidationService) Initialize(ctx context.Context, userID int64, id string, duration float64) (*SessionSnapshot, error) {
	return s.HandleEvent(ctx, userID, id, Event{Type: EventMetadata, Duration: duration})
}

// HandleEvent applies one player event to a live session.
func (s *ValidationService) HandleEvent(ctx context.Context, userID int64, id string, ev Event) (*SessionSnapshot, error) {
	if !ev.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidInput, ev.Type)
	}
	ls, err := s.lookup(userID, id)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	out := s.apply(ls, ev)
	ls.mu.Unlock()

	metrics.ObserveSample(string(ev.Type), out.skipped)
	if out.completed {
		metrics.CompletionsTotal.Inc()
		slog.Info("watch attempt completed", "analytics_id", id, "user_id", userID)
	}

	switch {
	case out.save:
		s.persist(ctx, ls, out.capture)
	case out.needsRecords:
		_ = s.ensureRecords(ctx, ls)
	}
	return s.snapshot(ls, true), nil
}

// Save persists the current state of a live session.
func (s *ValidationService) Save(ctx context.Context, userID int64, id string) (*SessionSnapshot, error) {
	ls, err := s.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	ls.mu.Lock()
	c := captureOf(ls)
	ls.mu.Unlock()

	s.persist(ctx, ls, c)
	return s.snapshot(ls, true), nil
}

// Status returns the live session, or the last stored state when the
// session is no longer in memory.
func (s *ValidationService) Status(ctx context.Context, userID int64, id string) (*SessionSnapshot, error) {
	if ls, err := s.lookup(userID, id); err == nil {
		return s.snapshot(ls, true), nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	ls, err := s.restore(ctx, userID, "", id)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ls, false), nil
}

// End closes the open segment, saves, and drops the session from memory.
func (s *ValidationService) End(ctx context.Context, userID int64, id string) error {
	ls, err := s.lookup(userID, id)
	if err != nil {
		return err
	}
	s.sessions.remove(id)
	s.finish(ctx, ls)
	slog.Info("watch session ended", "analytics_id", id, "user_id", userID)
	return nil
}

// Shutdown finishes every live session. Used on process exit.
func (s *ValidationService) Shutdown(ctx context.Context) {
	for _, ls := range s.sessions.drain() {
		s.finish(ctx, ls)
	}
}

func (s *ValidationService) newSession(userID int64, unitID, id string) *liveSession {
	now := s.now().UTC()
	return &liveSession{
		id:        id,
		sessionID: uuid.NewString(),
		userID:    userID,
		unitID:    unitID,
		startedAt: now,
		lastSeen:  now,
		player:    watch.NewPlayer(watch.New(id, s.th), watch.PlaybackAnalytics{}, false),
	}
}

// restore rebuilds a session from its stored records. It returns
// ErrNotFound when no analytics record exists. An empty unitID skips the
// unit check.
func (s *ValidationService) restore(ctx context.Context, userID int64, unitID, id string) (*liveSession, error) {
	rec, err := s.analytics.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get analytics record: %w", err)
	}
	if rec.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	if unitID != "" && rec.UnitID != unitID {
		return nil, fmt.Errorf("%w: analytics record belongs to another unit", domain.ErrInvalidInput)
	}

	ls := s.newSession(userID, rec.UnitID, id)
	ls.sessionID = rec.SessionID
	ls.startedAt = rec.StartedAt
	ls.completedAt = rec.CompletedAt
	ls.saves = rec.Version
	analytics := watch.PlaybackAnalytics{
		TotalWatchTime:     rec.TotalWatchTime,
		PauseCount:         rec.PauseCount,
		SeekCount:          rec.SeekCount,
		RewindCount:        rec.RewindCount,
		MaxProgressReached: rec.MaxProgressReached,
	}

	engine := watch.New(id, s.th)
	state, err := s.validations.GetByAnalyticsID(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// The validation row is recreated on the next Initialize.
	case err != nil:
		return nil, fmt.Errorf("get validation record: %w", err)
	default:
		engine = watch.Restore(*state, s.th)
		ls.created = true
	}
	ls.player = watch.NewPlayer(engine, analytics, rec.IsCompleted)
	return ls, nil
}

func (s *ValidationService) join(ls *liveSession, userID int64, unitID string) (*SessionSnapshot, error) {
	if ls.userID != userID {
		return nil, domain.ErrUnauthorized
	}
	if ls.unitID != unitID {
		return nil, fmt.Errorf("%w: session belongs to another unit", domain.ErrInvalidInput)
	}
	ls.mu.Lock()
	ls.lastSeen = s.now()
	ls.mu.Unlock()
	return s.snapshot(ls, true), nil
}

func (s *ValidationService) lookup(userID int64, id string) (*liveSession, error) {
	ls, ok := s.sessions.get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if ls.userID != userID {
		return nil, domain.ErrUnauthorized
	}
	return ls, nil
}

type applied struct {
	skipped      bool
	save         bool
	completed    bool
	needsRecords bool
	capture      capture
}

// apply runs one event through the player. Callers hold ls.mu.
func (s *ValidationService) apply(ls *liveSession, ev Event) applied {
	now := s.now().UTC()
	ls.lastSeen = now

	o := ls.player.Apply(ev)
	out := applied{
		skipped:   o.Skipped,
		save:      o.Save,
		completed: o.Completed,
	}
	if o.Ended {
		ls.endedAt = &now
	}
	if o.Completed {
		ls.completedAt = &now
	}

	out.needsRecords = !ls.created && ls.player.Engine().TotalDuration() > 0
	if out.save {
		out.capture = captureOf(ls)
	}
	return out
}

// capture is a point-in-time copy of what a save writes.
type capture struct {
	state  domain.ValidationState
	record domain.AnalyticsRecord
}

// captureOf snapshots ls and numbers the capture. Callers hold ls.mu.
func captureOf(ls *liveSession) capture {
	ls.saves++
	return capture{state: ls.player.Engine().State(), record: ls.record()}
}

// ensureRecords creates the analytics and validation rows of a session once
// its duration is known. Concurrent callers for the same id share one
// attempt.
func (s *ValidationService) ensureRecords(ctx context.Context, ls *liveSession) error {
	ls.mu.Lock()
	if ls.created {
		ls.mu.Unlock()
		return nil
	}
	rec := ls.record()
	// The first save moves the row past version 0.
	rec.Version = 0
	duration := ls.player.Engine().TotalDuration()
	minimum := ls.player.Engine().State().MinimumWatchTime
	ls.mu.Unlock()

	_, err, _ := s.group.Do(ls.id, func() (any, error) {
		if _, err := s.analytics.CreateIfNotExists(ctx, &rec); err != nil {
			return nil, fmt.Errorf("create analytics record: %w", err)
		}
		if _, err := s.validations.CreateOrGet(ctx, ls.id, duration, minimum); err != nil {
			return nil, fmt.Errorf("create validation record: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		metrics.RecordCreateFailures.Inc()
		slog.Error("failed to create watch records", "analytics_id", ls.id, "error", err)
		return err
	}

	ls.mu.Lock()
	ls.created = true
	ls.mu.Unlock()
	return nil
}

// persist writes a capture taken under the session lock. Writes happen
// outside the lock; the store rejects snapshots older than the one it holds.
func (s *ValidationService) persist(ctx context.Context, ls *liveSession, c capture) {
	if err := s.ensureRecords(ctx, ls); err != nil {
		metrics.ObserveSave(metrics.SaveError, 0)
		return
	}

	start := time.Now()
	err := s.validations.Upsert(ctx, &c.state)
	elapsed := time.Since(start).Seconds()
	switch {
	case err == nil:
		metrics.ObserveSave(metrics.SaveOK, elapsed)
	case errors.Is(err, domain.ErrStaleVersion):
		metrics.ObserveSave(metrics.SaveStale, elapsed)
		slog.Debug("skipped stale validation snapshot", "analytics_id", ls.id, "version", c.state.Version)
		return
	default:
		metrics.ObserveSave(metrics.SaveError, elapsed)
		slog.Error("failed to save validation", "analytics_id", ls.id, "version", c.state.Version, "error", err)
	}

	err = s.analytics.Update(ctx, &c.record)
	switch {
	case errors.Is(err, domain.ErrStaleVersion):
		slog.Debug("skipped stale analytics snapshot", "analytics_id", ls.id, "version", c.record.Version)
	case err != nil:
		slog.Error("failed to update analytics record", "analytics_id", ls.id, "error", err)
	}
}

func (s *ValidationService) finish(ctx context.Context, ls *liveSession) {
	ls.mu.Lock()
	now := s.now().UTC()
	ls.player.Finish()
	ls.endedAt = &now
	c := captureOf(ls)
	hasDuration := ls.player.Engine().TotalDuration() > 0
	ls.mu.Unlock()

	if !hasDuration {
		// Nothing was ever initialized, so there is nothing worth storing.
		return
	}
	s.persist(ctx, ls, c)
}

func (s *ValidationService) evict(ls *liveSession) {
	ctx, cancel := context.WithTimeout(context.Background(), finishTimeout)
	defer cancel()
	s.finish(ctx, ls)
	slog.Info("evicted idle watch session", "analytics_id", ls.id, "user_id", ls.userID)
}

func (s *ValidationService) snapshot(ls *liveSession, live bool) *SessionSnapshot {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	p := ls.player
	return &SessionSnapshot{
		ID:                ls.id,
		UnitID:            ls.unitID,
		StartedAt:         ls.startedAt,
		Position:          p.Position(),
		Playing:           p.Playing(),
		CompletionPercent: p.CompletionPercent(),
		Completed:         p.Completed(),
		Live:              live,
		Status:            p.Engine().Status(),
		State:             p.Engine().State(),
		Analytics:         p.Analytics(),
	}
}
