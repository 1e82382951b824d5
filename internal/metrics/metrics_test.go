package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/msomdec/coursewatch/internal/metrics"
)

func TestObserveSample(t *testing.T) {
	before := testutil.ToFloat64(metrics.SkipsTotal)
	beforeUnknown := testutil.ToFloat64(metrics.SamplesTotal.WithLabelValues("unknown"))

	metrics.ObserveSample("timeupdate", true)
	metrics.ObserveSample("", false)

	if got := testutil.ToFloat64(metrics.SkipsTotal) - before; got != 1 {
		t.Fatalf("expected 1 skip, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.SamplesTotal.WithLabelValues("unknown")) - beforeUnknown; got != 1 {
		t.Fatalf("expected empty type to count as unknown, got %v", got)
	}
}

func TestObserveSave_Exposed(t *testing.T) {
	metrics.ObserveSave(metrics.SaveStale, 0.001)

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `coursewatch_validation_saves_total{result="stale"}`) {
		t.Fatal("expected stale save counter in exposition")
	}
	if !strings.Contains(body, "coursewatch_validation_save_seconds_bucket") {
		t.Fatal("expected save latency histogram in exposition")
	}
}
