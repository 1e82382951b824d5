package watch

// EventType names a video player callback.
type EventType string

const (
	EventMetadata   EventType = "metadata"
	EventPlay       EventType = "play"
	EventTimeUpdate EventType = "timeupdate"
	EventSeeked     EventType = "seeked"
	EventPause      EventType = "pause"
	EventEnded      EventType = "ended"
)

// Valid reports whether t is one of the known callbacks.
func (t EventType) Valid() bool {
	switch t {
	case EventMetadata, EventPlay, EventTimeUpdate, EventSeeked, EventPause, EventEnded:
		return true
	}
	return false
}

// Event is one callback from the video player. Position is only read from
// timeupdate and seeked events; a positive Duration initializes the engine
// whatever the type.
type Event struct {
	Type     EventType
	Position float64
	Duration float64
	Playing  bool
}

// Outcome describes what applying an event changed.
type Outcome struct {
	Skipped bool
	// Save is set on pause, end, a new completion eligibility and completion.
	Save bool
	// Completed is set on the one event that fires completion.
	Completed bool
	Ended     bool
}

// Player drives an Engine from player callbacks and keeps the playback
// state around it: descriptive counters, the last sampled position and the
// once-only completion latch. Like Engine it is not safe for concurrent use.
type Player struct {
	engine      *Engine
	analytics   PlaybackAnalytics
	position    float64
	playing     bool
	canComplete bool
	completed   bool
}

// NewPlayer wraps e. For a restored engine, pass the stored counters and
// completion flag; the position resumes at the last valid position.
func NewPlayer(e *Engine, analytics PlaybackAnalytics, completed bool) *Player {
	return &Player{
		engine:      e,
		analytics:   analytics,
		position:    e.state.LastValidPosition,
		canComplete: e.CanComplete(),
		completed:   completed,
	}
}

// Apply maps one player event onto the engine.
func (p *Player) Apply(ev Event) Outcome {
	var out Outcome
	e := p.engine

	if ev.Duration > 0 {
		e.Initialize(ev.Duration)
	}

	switch ev.Type {
	case EventPlay:
		p.playing = true
	case EventTimeUpdate:
		p.analytics.ObserveTime(ev.Position, e.TotalDuration())
		out.Skipped = e.TrackProgress(ev.Position, ev.Playing)
		p.observePosition(ev.Position)
	case EventSeeked:
		p.analytics.ObserveSeek(ev.Position)
		out.Skipped = e.TrackProgress(ev.Position, ev.Playing)
		p.observePosition(ev.Position)
	case EventPause:
		p.playing = false
		p.analytics.ObservePause()
		e.FinalizeSegment()
		out.Save = true
	case EventEnded:
		p.playing = false
		e.FinalizeSegment()
		out.Ended = true
		out.Save = true
	}

	wasEligible := p.canComplete
	p.canComplete = e.CanComplete()
	if p.canComplete && !wasEligible {
		out.Save = true
	}

	if !p.completed && p.canComplete &&
		(ev.Type == EventEnded || e.CompletionPercent(p.position) >= e.th.CompletionThreshold) {
		p.completed = true
		out.Completed = true
		out.Save = true
	}
	return out
}

// Finish closes the open segment and stops playback.
func (p *Player) Finish() {
	p.engine.FinalizeSegment()
	p.playing = false
}

func (p *Player) observePosition(position float64) {
	if isFinite(position) && position >= 0 {
		p.position = position
	}
}

func (p *Player) Engine() *Engine              { return p.engine }
func (p *Player) Analytics() PlaybackAnalytics { return p.analytics }
func (p *Player) Position() float64            { return p.position }
func (p *Player) Playing() bool                { return p.playing }
func (p *Player) Completed() bool              { return p.completed }
func (p *Player) CompletionPercent() float64   { return p.engine.CompletionPercent(p.position) }
