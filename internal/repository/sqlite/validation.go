package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/coursewatch/internal/domain"
)

// ValidationRepository implements domain.ValidationRepository using SQLite.
type ValidationRepository struct {
	db *sql.DB
}

// NewValidationRepository creates a new SQLite-backed ValidationRepository.
func NewValidationRepository(db *DB) *ValidationRepository {
	return &ValidationRepository{db: db.SqlDB}
}

const validationColumns = `v.analytics_id, v.total_video_duration, v.minimum_watch_time,
	v.actual_watch_time, v.valid_watch_time, v.large_skips_detected, v.suspicious_segments,
	v.cheat_score, v.time_requirement_met, v.progress_unlocked, v.can_complete,
	v.watch_segments, v.last_valid_position, v.version, v.updated_at`

// CreateOrGet relies on the primary key conflict instead of a separate
// existence check, so concurrent callers cannot create two rows.
func (r *ValidationRepository) CreateOrGet(ctx context.Context, analyticsID string, totalDuration, minimumWatchTime float64) (*domain.ValidationState, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO video_validation (analytics_id, total_video_duration, minimum_watch_time, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(analytics_id) DO NOTHING`,
		analyticsID, totalDuration, minimumWatchTime, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert video validation: %w", err)
	}
	return r.GetByAnalyticsID(ctx, analyticsID)
}

// Upsert writes the full row. Rows already holding a newer version are left
// untouched and ErrStaleVersion is returned; equal versions overwrite.
func (r *ValidationRepository) Upsert(ctx context.Context, s *domain.ValidationState) error {
	segments, err := json.Marshal(nonNilSegments(s.WatchSegments))
	if err != nil {
		return fmt.Errorf("encode watch segments: %w", err)
	}
	now := time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO video_validation (analytics_id, total_video_duration, minimum_watch_time,
		 actual_watch_time, valid_watch_time, large_skips_detected, suspicious_segments,
		 cheat_score, time_requirement_met, progress_unlocked, can_complete,
		 watch_segments, last_valid_position, version, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(analytics_id) DO UPDATE SET
		 total_video_duration = excluded.total_video_duration,
		 minimum_watch_time = excluded.minimum_watch_time,
		 actual_watch_time = excluded.actual_watch_time,
		 valid_watch_time = excluded.valid_watch_time,
		 large_skips_detected = excluded.large_skips_detected,
		 suspicious_segments = excluded.suspicious_segments,
		 cheat_score = excluded.cheat_score,
		 time_requirement_met = excluded.time_requirement_met,
		 progress_unlocked = excluded.progress_unlocked,
		 can_complete = excluded.can_complete,
		 watch_segments = excluded.watch_segments,
		 last_valid_position = excluded.last_valid_position,
		 version = excluded.version,
		 updated_at = excluded.updated_at
		 WHERE excluded.version >= video_validation.version`,
		s.AnalyticsID, s.TotalDuration, s.MinimumWatchTime,
		s.ActualWatchTime, s.ValidWatchTime, s.LargeSkipsDetected, s.SuspiciousSegments,
		s.CheatScore, s.TimeRequirementMet, s.ProgressUnlocked, s.CanComplete,
		string(segments), s.LastValidPosition, s.Version, now,
	)
	if err != nil {
		return fmt.Errorf("upsert video validation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrStaleVersion
	}
	s.UpdatedAt = now
	return nil
}

func (r *ValidationRepository) GetByAnalyticsID(ctx context.Context, analyticsID string) (*domain.ValidationState, error) {
	var nv nullValidation
	err := r.db.QueryRowContext(ctx,
		`SELECT `+validationColumns+` FROM video_validation v WHERE v.analytics_id = ?`, analyticsID,
	).Scan(nv.dest()...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get video validation: %w", err)
	}
	return nv.state()
}

// nullValidation scans validation columns that may be NULL when reached
// through a LEFT JOIN.
type nullValidation struct {
	analyticsID        sql.NullString
	totalDuration      sql.NullFloat64
	minimumWatchTime   sql.NullFloat64
	actualWatchTime    sql.NullFloat64
	validWatchTime     sql.NullFloat64
	largeSkips         sql.NullInt64
	suspiciousSegments sql.NullInt64
	cheatScore         sql.NullInt64
	timeRequirementMet sql.NullBool
	progressUnlocked   sql.NullBool
	canComplete        sql.NullBool
	segments           sql.NullString
	lastValidPosition  sql.NullFloat64
	version            sql.NullInt64
	updatedAt          sql.NullTime
}

func (n *nullValidation) dest() []any {
	return []any{&n.analyticsID, &n.totalDuration, &n.minimumWatchTime,
		&n.actualWatchTime, &n.validWatchTime, &n.largeSkips, &n.suspiciousSegments,
		&n.cheatScore, &n.timeRequirementMet, &n.progressUnlocked, &n.canComplete,
		&n.segments, &n.lastValidPosition, &n.version, &n.updatedAt}
}

// state returns nil when the joined row was absent.
func (n *nullValidation) state() (*domain.ValidationState, error) {
	if !n.analyticsID.Valid {
		return nil, nil
	}
	s := &domain.ValidationState{
		AnalyticsID:        n.analyticsID.String,
		TotalDuration:      n.totalDuration.Float64,
		MinimumWatchTime:   n.minimumWatchTime.Float64,
		ActualWatchTime:    n.actualWatchTime.Float64,
		ValidWatchTime:     n.validWatchTime.Float64,
		LargeSkipsDetected: int(n.largeSkips.Int64),
		SuspiciousSegments: int(n.suspiciousSegments.Int64),
		CheatScore:         int(n.cheatScore.Int64),
		TimeRequirementMet: n.timeRequirementMet.Bool,
		ProgressUnlocked:   n.progressUnlocked.Bool,
		CanComplete:        n.canComplete.Bool,
		LastValidPosition:  n.lastValidPosition.Float64,
		Version:            n.version.Int64,
		UpdatedAt:          n.updatedAt.Time,
	}
	if n.segments.Valid && n.segments.String != "" {
		if err := json.Unmarshal([]byte(n.segments.String), &s.WatchSegments); err != nil {
			return nil, fmt.Errorf("decode watch segments: %w", err)
		}
	}
	return s, nil
}

func nonNilSegments(s []domain.WatchSegment) []domain.WatchSegment {
	if s == nil {
		return []domain.WatchSegment{}
	}
	return s
}
