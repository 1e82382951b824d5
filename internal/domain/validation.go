package domain

import (
	"context"
	"time"
)

// WatchSegment is a closed run of forward playback. Segments are immutable
// once appended to a ValidationState.
type WatchSegment struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	IsValid  bool    `json:"isValid"`
}

// ValidationState is the full anti-cheat aggregate for one watch attempt,
// keyed by its analytics record.
type ValidationState struct {
	AnalyticsID        string
	TotalDuration      float64
	MinimumWatchTime   float64
	ActualWatchTime    float64
	ValidWatchTime     float64
	LargeSkipsDetected int
	SuspiciousSegments int
	CheatScore         int
	TimeRequirementMet bool
	ProgressUnlocked   bool
	CanComplete        bool
	WatchSegments      []WatchSegment
	LastValidPosition  float64

	// Version increases on every mutation of the in-memory state. The store
	// refuses snapshots older than the one it already holds.
	Version   int64
	UpdatedAt time.Time
}

// ValidationRepository is the persistence collaborator for validation rows.
// Every operation is idempotent for the same analytics id.
type ValidationRepository interface {
	// CreateOrGet inserts the companion validation row for analyticsID if it
	// does not exist yet and returns the stored row either way.
	CreateOrGet(ctx context.Context, analyticsID string, totalDuration, minimumWatchTime float64) (*ValidationState, error)
	// Upsert overwrites the row for state.AnalyticsID unless the stored row
	// carries a newer version.
	Upsert(ctx context.Context, state *ValidationState) error
	GetByAnalyticsID(ctx context.Context, analyticsID string) (*ValidationState, error)
}
