package view_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/msomdec/coursewatch/internal/view"
	"github.com/msomdec/coursewatch/internal/watch"
)

func render(t *testing.T, st watch.Status, percent float64, completed bool) string {
	t.Helper()
	var buf bytes.Buffer
	if err := view.WatchStatus(st, percent, completed).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestWatchStatus_TimeRequired(t *testing.T) {
	html := render(t, watch.Status{
		Kind:             watch.StatusTimeRequired,
		Progress:         0.5,
		RemainingSeconds: 45,
		MinimumWatchTime: 90,
	}, 50, false)

	for _, want := range []string{
		`id="watch-status"`,
		`data-status="time-required"`,
		`badge-warning`,
		`value="50"`,
		`Keep watching: 45 more seconds required.`,
		`50% watched`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in %s", want, html)
		}
	}
	if strings.Contains(html, "Completed") {
		t.Error("incomplete attempt must not render the completed badge")
	}
}

func TestWatchStatus_ReadyCompleted(t *testing.T) {
	html := render(t, watch.Status{Kind: watch.StatusReady, Progress: 1, CanTrackProgress: true}, 96, true)

	if !strings.Contains(html, `badge-success">All requirements met.`) {
		t.Errorf("expected ready badge, got %s", html)
	}
	if !strings.Contains(html, "Completed") {
		t.Errorf("expected completed badge, got %s", html)
	}
	if !strings.HasSuffix(html, "</div>") {
		t.Errorf("fragment not closed: %s", html)
	}
}
