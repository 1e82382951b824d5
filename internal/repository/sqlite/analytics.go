package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/msomdec/coursewatch/internal/domain"
)

// AnalyticsRepository implements domain.AnalyticsRepository using SQLite.
type AnalyticsRepository struct {
	db *sql.DB
}

// NewAnalyticsRepository creates a new SQLite-backed AnalyticsRepository.
func NewAnalyticsRepository(db *DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db.SqlDB}
}

const analyticsColumns = `a.id, a.user_id, a.unit_id, a.session_id, a.total_watch_time,
	a.pause_count, a.seek_count, a.rewind_count, a.max_progress_reached,
	a.completion_threshold, a.is_completed, a.started_at, a.ended_at, a.completed_at, a.version`

func (r *AnalyticsRepository) CreateIfNotExists(ctx context.Context, rec *domain.AnalyticsRecord) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO video_analytics (id, user_id, unit_id, session_id, total_watch_time,
		 pause_count, seek_count, rewind_count, max_progress_reached, completion_threshold,
		 is_completed, started_at, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		rec.ID, rec.UserID, rec.UnitID, rec.SessionID, rec.TotalWatchTime,
		rec.PauseCount, rec.SeekCount, rec.RewindCount, rec.MaxProgressReached, rec.CompletionThreshold,
		rec.IsCompleted, rec.StartedAt.UTC(), rec.Version,
	)
	if err != nil {
		return false, fmt.Errorf("insert video analytics: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *AnalyticsRepository) GetByID(ctx context.Context, id string) (*domain.AnalyticsRecord, error) {
	rec, err := scanAnalytics(r.db.QueryRowContext(ctx,
		`SELECT `+analyticsColumns+` FROM video_analytics a WHERE a.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get video analytics: %w", err)
	}
	return rec, nil
}

// Update writes the counters of rec when rec.Version is newer than the stored
// row. Concurrent saves of one attempt may finish out of order.
func (r *AnalyticsRepository) Update(ctx context.Context, rec *domain.AnalyticsRecord) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE video_analytics SET
		 total_watch_time = ?, pause_count = ?, seek_count = ?, rewind_count = ?,
		 max_progress_reached = ?, is_completed = ?, ended_at = ?, completed_at = ?,
		 version = ?
		 WHERE id = ? AND version < ?`,
		rec.TotalWatchTime, rec.PauseCount, rec.SeekCount, rec.RewindCount,
		rec.MaxProgressReached, rec.IsCompleted, rec.EndedAt, rec.CompletedAt,
		rec.Version, rec.ID, rec.Version,
	)
	if err != nil {
		return fmt.Errorf("update video analytics: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM video_analytics WHERE id = ?)", rec.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check video analytics: %w", err)
		}
		if exists {
			return domain.ErrStaleVersion
		}
		return domain.ErrNotFound
	}
	return nil
}

// ListStatsRowsByUser returns every analytics record of the user joined with
// its validation row, oldest first.
func (r *AnalyticsRepository) ListStatsRowsByUser(ctx context.Context, userID int64) ([]domain.StatsRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+analyticsColumns+`, `+validationColumns+`
		 FROM video_analytics a
		 LEFT JOIN video_validation v ON v.analytics_id = a.id
		 WHERE a.user_id = ?
		 ORDER BY a.started_at, a.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list stats rows: %w", err)
	}
	defer rows.Close()

	var out []domain.StatsRow
	for rows.Next() {
		var (
			a  domain.AnalyticsRecord
			nv nullValidation
		)
		dest := append(analyticsDest(&a), nv.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		v, err := nv.state()
		if err != nil {
			return nil, err
		}
		out = append(out, domain.StatsRow{Analytics: a, Validation: v})
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func analyticsDest(a *domain.AnalyticsRecord) []any {
	return []any{&a.ID, &a.UserID, &a.UnitID, &a.SessionID, &a.TotalWatchTime,
		&a.PauseCount, &a.SeekCount, &a.RewindCount, &a.MaxProgressReached,
		&a.CompletionThreshold, &a.IsCompleted, &a.StartedAt, &a.EndedAt, &a.CompletedAt, &a.Version}
}

func scanAnalytics(row rowScanner) (*domain.AnalyticsRecord, error) {
	a := &domain.AnalyticsRecord{}
	if err := row.Scan(analyticsDest(a)...); err != nil {
		return nil, err
	}
	return a, nil
}
