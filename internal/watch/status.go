package watch

import (
	"fmt"
	"math"

	"github.com/msomdec/coursewatch/internal/domain"
)

// StatusKind discriminates the validation status shown to the viewer.
type StatusKind string

// The order of these checks is part of the contract: a viewer short on time
// always sees the time message first.
const (
	StatusTimeRequired     StatusKind = "time-required"
	StatusCheatingDetected StatusKind = "cheating-detected"
	StatusProgressLocked   StatusKind = "progress-locked"
	StatusReady            StatusKind = "ready"
)

// Status is the read-only snapshot consumed by the UI and the completion gate.
type Status struct {
	Kind StatusKind `json:"status"`
	// Progress is the fraction of the time requirement met, in [0, 1].
	Progress         float64 `json:"progress"`
	CanTrackProgress bool    `json:"canTrackProgress"`
	RemainingSeconds float64 `json:"remainingSeconds"`
	CheatScore       int     `json:"cheatScore"`
	MinCheatScore    int     `json:"minCheatScore"`
	MinimumWatchTime float64 `json:"minimumWatchTime"`
	ValidWatchTime   float64 `json:"validWatchTime"`
}

// StatusOf derives the status of a validation state under the given thresholds.
func StatusOf(s domain.ValidationState, th Thresholds) Status {
	st := Status{
		CheatScore:       s.CheatScore,
		MinCheatScore:    th.MinCheatScore,
		MinimumWatchTime: s.MinimumWatchTime,
		ValidWatchTime:   s.ValidWatchTime,
	}

	switch {
	case !s.TimeRequirementMet:
		st.Kind = StatusTimeRequired
		if s.MinimumWatchTime > 0 {
			st.Progress = clamp(s.ValidWatchTime/s.MinimumWatchTime, 0, 1)
		}
		st.RemainingSeconds = math.Max(0, s.MinimumWatchTime-s.ValidWatchTime)
	case s.CheatScore < th.MinCheatScore:
		st.Kind = StatusCheatingDetected
	case !s.ProgressUnlocked:
		st.Kind = StatusProgressLocked
	default:
		st.Kind = StatusReady
		st.Progress = 1
		st.CanTrackProgress = true
	}
	return st
}

// Message is a short human-readable explanation of the status.
func (s Status) Message() string {
	switch s.Kind {
	case StatusTimeRequired:
		if s.MinimumWatchTime == 0 {
			return "Waiting for the video to load."
		}
		return fmt.Sprintf("Keep watching: %d more seconds required.", int(math.Ceil(s.RemainingSeconds)))
	case StatusCheatingDetected:
		return fmt.Sprintf("Too much skipping detected (score %d, %d required).", s.CheatScore, s.MinCheatScore)
	case StatusProgressLocked:
		return "Progress is locked."
	default:
		return "All requirements met."
	}
}
