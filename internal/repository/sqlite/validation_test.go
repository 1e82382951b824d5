package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/msomdec/coursewatch/internal/domain"
)

func TestValidationRepository_CreateOrGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedViewer(t, db, "v@example.com")
	seedAnalytics(t, db, u.ID, "an-1", time.Now())
	repo := db.Validations()

	first, err := repo.CreateOrGet(ctx, "an-1", 600, 540)
	if err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}
	if first.TotalDuration != 600 || first.MinimumWatchTime != 540 || first.CheatScore != 100 {
		t.Fatalf("unexpected defaults: %+v", first)
	}
	if first.WatchSegments == nil || len(first.WatchSegments) != 0 {
		t.Fatalf("expected empty segment list, got %#v", first.WatchSegments)
	}

	second, err := repo.CreateOrGet(ctx, "an-1", 10, 9)
	if err != nil {
		t.Fatalf("second CreateOrGet: %v", err)
	}
	if second.TotalDuration != 600 {
		t.Fatalf("existing row was replaced: duration %v", second.TotalDuration)
	}
}

func TestValidationRepository_CreateOrGet_UnknownAnalytics(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.Validations().CreateOrGet(context.Background(), "missing", 1, 1); err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestValidationRepository_UpsertRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedViewer(t, db, "v@example.com")
	seedAnalytics(t, db, u.ID, "an-1", time.Now())
	repo := db.Validations()

	want := &domain.ValidationState{
		AnalyticsID:        "an-1",
		TotalDuration:      100,
		MinimumWatchTime:   90,
		ActualWatchTime:    95,
		ValidWatchTime:     40,
		LargeSkipsDetected: 1,
		CheatScore:         85,
		WatchSegments: []domain.WatchSegment{
			{Start: 0, End: 20, Duration: 20, IsValid: true},
			{Start: 50, End: 70, Duration: 20, IsValid: true},
		},
		LastValidPosition: 70,
		Version:           7,
	}
	if err := repo.Upsert(ctx, want); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if want.UpdatedAt.IsZero() {
		t.Fatal("expected UpdatedAt to be set")
	}

	got, err := repo.GetByAnalyticsID(ctx, "an-1")
	if err != nil {
		t.Fatalf("GetByAnalyticsID: %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(domain.ValidationState{}, "UpdatedAt")); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestValidationRepository_UpsertVersionGuard(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedViewer(t, db, "v@example.com")
	seedAnalytics(t, db, u.ID, "an-1", time.Now())
	repo := db.Validations()

	newer := &domain.ValidationState{AnalyticsID: "an-1", ValidWatchTime: 50, CheatScore: 100, Version: 5}
	if err := repo.Upsert(ctx, newer); err != nil {
		t.Fatalf("Upsert newer: %v", err)
	}

	stale := &domain.ValidationState{AnalyticsID: "an-1", ValidWatchTime: 10, CheatScore: 100, Version: 4}
	if err := repo.Upsert(ctx, stale); !errors.Is(err, domain.ErrStaleVersion) {
		t.Fatalf("expected ErrStaleVersion, got %v", err)
	}

	same := &domain.ValidationState{AnalyticsID: "an-1", ValidWatchTime: 55, CheatScore: 100, Version: 5}
	if err := repo.Upsert(ctx, same); err != nil {
		t.Fatalf("Upsert equal version: %v", err)
	}

	got, err := repo.GetByAnalyticsID(ctx, "an-1")
	if err != nil {
		t.Fatalf("GetByAnalyticsID: %v", err)
	}
	if got.ValidWatchTime != 55 || got.Version != 5 {
		t.Fatalf("expected equal-version write to win, got valid=%v version=%d", got.ValidWatchTime, got.Version)
	}
}

func TestValidationRepository_NotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.Validations().GetByAnalyticsID(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
