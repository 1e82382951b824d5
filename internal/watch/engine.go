// Package watch implements the anti-cheat watch validation engine: a pure,
// synchronous reducer over playback samples for a single watch session.
//
// An Engine is not safe for concurrent use. Hosts that receive events from
// more than one goroutine must serialise calls per session.
package watch

import (
	"math"
	"slices"

	"github.com/msomdec/coursewatch/internal/domain"
)

const maxCheatScore = 100

type openSegment struct {
	start float64
	end   float64
}

// Engine owns the ValidationState of one watch session.
type Engine struct {
	th    Thresholds
	state domain.ValidationState

	open         *openSegment
	lastPosition float64
	// reanchor makes the next accepted sample set the reference position
	// without being judged. Set after restoring from a snapshot, where the
	// in-flight position was lost.
	reanchor bool
}

// New creates an engine for a session whose duration is not known yet.
func New(analyticsID string, th Thresholds) *Engine {
	e := &Engine{th: th}
	e.state.AnalyticsID = analyticsID
	e.recompute()
	return e
}

// Restore rebuilds an engine from a persisted snapshot. Accumulators, counters
// and closed segments carry over; the open segment does not.
func Restore(state domain.ValidationState, th Thresholds) *Engine {
	e := &Engine{th: th, reanchor: true}
	e.state = state
	e.state.WatchSegments = slices.Clone(state.WatchSegments)
	e.lastPosition = state.LastValidPosition
	e.recompute()
	return e
}

// Thresholds returns the configuration the engine was built with.
func (e *Engine) Thresholds() Thresholds { return e.th }

// Initialize sets the total video duration. It may be called repeatedly as
// the player learns the real duration; accumulated time and segments are kept.
func (e *Engine) Initialize(totalDuration float64) {
	if !isFinite(totalDuration) || totalDuration < 0 {
		return
	}
	if totalDuration == e.state.TotalDuration {
		return
	}
	e.state.TotalDuration = totalDuration
	e.recompute()
	e.state.Version++
}

// TrackProgress ingests one playback sample. It reports whether the sample
// was classified as a large skip. Samples taken while paused and samples with
// a negative or non-finite position leave the state untouched.
func (e *Engine) TrackProgress(position float64, isPlaying bool) bool {
	if !isPlaying || !isFinite(position) || position < 0 {
		return false
	}
	defer func() { e.state.Version++ }()

	if e.reanchor {
		e.reanchor = false
		e.lastPosition = position
		e.state.LastValidPosition = position
		e.open = &openSegment{start: position, end: position}
		return false
	}

	delta := position - e.lastPosition
	e.lastPosition = position

	skipped := math.Abs(delta) > e.th.SkipThreshold
	switch {
	case skipped:
		e.state.LargeSkipsDetected++
		e.state.SuspiciousSegments++
		// The open segment is discarded, not closed.
		e.open = nil
		if delta > 0 {
			e.state.ActualWatchTime += delta
		}
	case delta > 0:
		e.state.ActualWatchTime += delta
		e.state.ValidWatchTime += delta
		e.state.LastValidPosition = position
	case delta < 0:
		// A short rewind ends the forward run it interrupts.
		e.closeSegment()
		e.state.LastValidPosition = position
	default:
		e.state.LastValidPosition = position
	}

	if e.open == nil {
		e.open = &openSegment{start: position, end: position}
	} else {
		e.open.end = position
	}

	e.recompute()
	return skipped
}

// FinalizeSegment closes the open segment, if any, and appends it to the
// session history. Calling it with no open segment is a no-op.
func (e *Engine) FinalizeSegment() {
	if e.open == nil {
		return
	}
	e.closeSegment()
	e.state.Version++
}

func (e *Engine) closeSegment() {
	if e.open == nil {
		return
	}
	d := e.open.end - e.open.start
	e.state.WatchSegments = append(e.state.WatchSegments, domain.WatchSegment{
		Start:    e.open.start,
		End:      e.open.end,
		Duration: d,
		IsValid:  d <= e.th.SkipThreshold,
	})
	e.open = nil
}

// HasOpenSegment reports whether a forward run is currently being tracked.
func (e *Engine) HasOpenSegment() bool { return e.open != nil }

// State returns a snapshot that shares no memory with the engine.
func (e *Engine) State() domain.ValidationState {
	s := e.state
	s.WatchSegments = slices.Clone(e.state.WatchSegments)
	return s
}

// Status derives the UI-facing validation status.
func (e *Engine) Status() Status {
	return StatusOf(e.state, e.th)
}

// CanComplete reports whether every completion gate currently passes.
func (e *Engine) CanComplete() bool { return e.state.CanComplete }

// TotalDuration returns the duration set by the last Initialize, or 0.
func (e *Engine) TotalDuration() float64 { return e.state.TotalDuration }

// Version returns the mutation counter of the current state.
func (e *Engine) Version() int64 { return e.state.Version }

// CompletionPercent converts a playback position into a percentage of the
// video, clamped to [0, 100]. It is 0 while the duration is unknown.
func (e *Engine) CompletionPercent(position float64) float64 {
	if e.state.TotalDuration <= 0 || !isFinite(position) {
		return 0
	}
	return clamp(position/e.state.TotalDuration*100, 0, 100)
}

func (e *Engine) recompute() {
	s := &e.state
	s.MinimumWatchTime = s.TotalDuration * e.th.TimeRequirementRatio
	s.TimeRequirementMet = s.TotalDuration > 0 && s.ValidWatchTime >= s.MinimumWatchTime
	s.ProgressUnlocked = s.TimeRequirementMet
	s.CheatScore = CheatScore(s.LargeSkipsDetected, s.SuspiciousSegments, e.th)
	s.CanComplete = s.TimeRequirementMet && s.CheatScore >= e.th.MinCheatScore && s.ProgressUnlocked
}

// CheatScore computes the 0-100 trust metric from the skip counters.
func CheatScore(largeSkips, suspiciousSegments int, th Thresholds) int {
	score := maxCheatScore - largeSkips*th.SkipPenalty - suspiciousSegments*th.SuspiciousPenalty
	return max(0, min(maxCheatScore, score))
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
