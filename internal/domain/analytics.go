package domain

import (
	"context"
	"time"
)

// AnalyticsRecord is the per-attempt playback record a ValidationState hangs off.
type AnalyticsRecord struct {
	ID                  string
	UserID              int64
	UnitID              string
	SessionID           string
	TotalWatchTime      float64
	PauseCount          int
	SeekCount           int
	RewindCount         int
	MaxProgressReached  float64 // percent of the video
	CompletionThreshold float64 // percent
	IsCompleted         bool
	StartedAt           time.Time
	EndedAt             *time.Time
	CompletedAt         *time.Time
	// Version orders saves of the same attempt; older ones are rejected.
	Version int64
}

// StatsRow joins an analytics record with its validation row for aggregation.
// Validation is nil when the companion row was never created.
type StatsRow struct {
	Analytics  AnalyticsRecord
	Validation *ValidationState
}

// AnalyticsRepository is the persistence collaborator for analytics rows.
type AnalyticsRepository interface {
	// CreateIfNotExists inserts the record unless a row with the same ID
	// already exists. It reports whether a row was inserted.
	CreateIfNotExists(ctx context.Context, record *AnalyticsRecord) (bool, error)
	GetByID(ctx context.Context, id string) (*AnalyticsRecord, error)
	// Update overwrites the mutable counters. It returns ErrStaleVersion
	// when the stored row has the same or a newer version.
	Update(ctx context.Context, record *AnalyticsRecord) error
	ListStatsRowsByUser(ctx context.Context, userID int64) ([]StatsRow, error)
}
