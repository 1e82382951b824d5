package watch

import "math"

// naiveStepLimit is the largest position step counted as plain viewing by
// the analytics counters. It is deliberately tighter than SkipThreshold.
const naiveStepLimit = 2.0

// PlaybackAnalytics keeps the descriptive playback counters stored on the
// analytics record. They feed dashboards only and never gate completion.
type PlaybackAnalytics struct {
	TotalWatchTime     float64
	PauseCount         int
	SeekCount          int
	RewindCount        int
	MaxProgressReached float64

	lastPosition float64
}

// ObserveTime records a time update at position in a video of the given
// duration.
func (a *PlaybackAnalytics) ObserveTime(position, duration float64) {
	if !isFinite(position) || position < 0 {
		return
	}
	step := position - a.lastPosition
	if step > 0 && step < naiveStepLimit {
		a.TotalWatchTime += step
	}
	a.lastPosition = position

	if duration > 0 && isFinite(duration) {
		a.MaxProgressReached = math.Max(a.MaxProgressReached, clamp(position/duration*100, 0, 100))
	}
}

// ObservePause counts a pause.
func (a *PlaybackAnalytics) ObservePause() { a.PauseCount++ }

// ObserveSeek counts a seek to position; seeks that land before the last
// observed position are also rewinds.
func (a *PlaybackAnalytics) ObserveSeek(position float64) {
	if !isFinite(position) || position < 0 {
		return
	}
	a.SeekCount++
	if position < a.lastPosition {
		a.RewindCount++
	}
	a.lastPosition = position
}
