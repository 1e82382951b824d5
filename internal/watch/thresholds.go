package watch

import (
	"fmt"

	"github.com/msomdec/coursewatch/internal/domain"
)

// Thresholds are the tunable constants of the validation heuristic.
type Thresholds struct {
	// SkipThreshold is the largest position jump, in seconds, that still
	// counts as normal playback. Larger jumps in either direction are skips.
	SkipThreshold float64
	// TimeRequirementRatio is the fraction of the video that must be
	// validly watched before completion is considered.
	TimeRequirementRatio float64
	// CompletionThreshold is the playback percentage at which the host
	// fires its completion callback once the other gates pass.
	CompletionThreshold float64
	MinCheatScore       int
	SkipPenalty         int
	SuspiciousPenalty   int
}

// DefaultThresholds returns the stock 10s / 90% / 95% / 70 configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SkipThreshold:        10,
		TimeRequirementRatio: 0.9,
		CompletionThreshold:  95,
		MinCheatScore:        70,
		SkipPenalty:          15,
		SuspiciousPenalty:    10,
	}
}

// Validate rejects configurations that would make the state machine meaningless.
func (t Thresholds) Validate() error {
	if t.SkipThreshold <= 0 {
		return fmt.Errorf("%w: skip threshold must be positive", domain.ErrInvalidInput)
	}
	if t.TimeRequirementRatio <= 0 || t.TimeRequirementRatio > 1 {
		return fmt.Errorf("%w: time requirement ratio must be in (0, 1]", domain.ErrInvalidInput)
	}
	if t.CompletionThreshold <= 0 || t.CompletionThreshold > 100 {
		return fmt.Errorf("%w: completion threshold must be in (0, 100]", domain.ErrInvalidInput)
	}
	if t.MinCheatScore < 0 || t.MinCheatScore > maxCheatScore {
		return fmt.Errorf("%w: minimum cheat score must be in [0, 100]", domain.ErrInvalidInput)
	}
	if t.SkipPenalty < 0 || t.SuspiciousPenalty < 0 {
		return fmt.Errorf("%w: penalties must not be negative", domain.ErrInvalidInput)
	}
	return nil
}
