package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/msomdec/coursewatch/internal/domain"
	"github.com/msomdec/coursewatch/internal/repository/sqlite"
)

func seedAnalytics(t *testing.T, db *sqlite.DB, userID int64, id string, started time.Time) *domain.AnalyticsRecord {
	t.Helper()
	rec := &domain.AnalyticsRecord{
		ID:                  id,
		UserID:              userID,
		UnitID:              "unit-1",
		SessionID:           "sess-" + id,
		CompletionThreshold: 95,
		StartedAt:           started,
	}
	created, err := db.Analytics().CreateIfNotExists(context.Background(), rec)
	if err != nil {
		t.Fatalf("seed analytics: %v", err)
	}
	if !created {
		t.Fatalf("seed analytics %q: row already existed", id)
	}
	return rec
}

func TestAnalyticsRepository_CreateIfNotExists(t *testing.T) {
	db := newTestDB(t)
	u := seedViewer(t, db, "a@example.com")
	rec := seedAnalytics(t, db, u.ID, "an-1", time.Now())

	again := *rec
	again.UnitID = "other-unit"
	created, err := db.Analytics().CreateIfNotExists(context.Background(), &again)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if created {
		t.Fatal("expected second create to be a no-op")
	}

	got, err := db.Analytics().GetByID(context.Background(), "an-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.UnitID != "unit-1" {
		t.Fatalf("existing row was overwritten: unit %q", got.UnitID)
	}
	if got.EndedAt != nil || got.CompletedAt != nil {
		t.Fatalf("expected nil end/completion times, got %v %v", got.EndedAt, got.CompletedAt)
	}
}

func TestAnalyticsRepository_Update(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedViewer(t, db, "a@example.com")
	rec := seedAnalytics(t, db, u.ID, "an-1", time.Now())

	done := time.Now().UTC().Truncate(time.Second)
	rec.TotalWatchTime = 42.5
	rec.PauseCount = 2
	rec.SeekCount = 3
	rec.RewindCount = 1
	rec.MaxProgressReached = 96
	rec.IsCompleted = true
	rec.CompletedAt = &done
	rec.Version = 1
	if err := db.Analytics().Update(ctx, rec); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := db.Analytics().GetByID(ctx, "an-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.TotalWatchTime != 42.5 || got.PauseCount != 2 || got.SeekCount != 3 || got.RewindCount != 1 {
		t.Fatalf("counters not persisted: %+v", got)
	}
	if !got.IsCompleted || got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
		t.Fatalf("completion not persisted: %v %v", got.IsCompleted, got.CompletedAt)
	}
	if got.Version != 1 {
		t.Fatalf("expected version 1, got %d", got.Version)
	}
}

func TestAnalyticsRepository_UpdateRejectsOlderVersion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedViewer(t, db, "a@example.com")
	rec := seedAnalytics(t, db, u.ID, "an-1", time.Now())

	// A completion save lands before an older pause save of the same attempt.
	done := time.Now().UTC().Truncate(time.Second)
	completed := *rec
	completed.Version = 6
	completed.PauseCount = 1
	completed.IsCompleted = true
	completed.CompletedAt = &done
	if err := db.Analytics().Update(ctx, &completed); err != nil {
		t.Fatalf("Update v6: %v", err)
	}

	paused := *rec
	paused.Version = 5
	paused.PauseCount = 1
	if err := db.Analytics().Update(ctx, &paused); !errors.Is(err, domain.ErrStaleVersion) {
		t.Fatalf("Update v5: expected ErrStaleVersion, got %v", err)
	}
	if err := db.Analytics().Update(ctx, &completed); !errors.Is(err, domain.ErrStaleVersion) {
		t.Fatalf("Update v6 again: expected ErrStaleVersion, got %v", err)
	}

	got, err := db.Analytics().GetByID(ctx, "an-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.IsCompleted || got.CompletedAt == nil || got.Version != 6 {
		t.Fatalf("older save overwrote completion: %+v", got)
	}
}

func TestAnalyticsRepository_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.Analytics().GetByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID: expected ErrNotFound, got %v", err)
	}
	err := db.Analytics().Update(ctx, &domain.AnalyticsRecord{ID: "missing"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Update: expected ErrNotFound, got %v", err)
	}
}

func TestAnalyticsRepository_ListStatsRowsByUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedViewer(t, db, "a@example.com")
	other := seedViewer(t, db, "b@example.com")

	base := time.Now().Add(-time.Hour)
	seedAnalytics(t, db, u.ID, "first", base)
	seedAnalytics(t, db, u.ID, "second", base.Add(time.Minute))
	seedAnalytics(t, db, other.ID, "foreign", base)

	if _, err := db.Validations().CreateOrGet(ctx, "first", 100, 90); err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}

	rows, err := db.Analytics().ListStatsRowsByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListStatsRowsByUser: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Analytics.ID != "first" || rows[1].Analytics.ID != "second" {
		t.Fatalf("unexpected order: %s, %s", rows[0].Analytics.ID, rows[1].Analytics.ID)
	}
	if rows[0].Validation == nil || rows[0].Validation.MinimumWatchTime != 90 {
		t.Fatalf("expected joined validation row, got %+v", rows[0].Validation)
	}
	if rows[1].Validation != nil {
		t.Fatalf("expected nil validation for second row, got %+v", rows[1].Validation)
	}
}
