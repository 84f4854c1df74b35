package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, "arcollect_http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, "arcollect_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestMetricsMiddlewareKeepsFlusher(t *testing.T) {
	metrics := NewMetrics()
	flushed := false
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatalf("recorder must implement http.Flusher")
		}
		f.Flush()
		flushed = true
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events", nil))
	if !flushed || !rr.Flushed {
		t.Fatalf("expected flush to reach the underlying writer")
	}
}

func TestDomainCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.SnapshotFallback("PPA")
	metrics.SnapshotFallback("PPA")
	metrics.ChangePublished("insert")
	metrics.ObserveDropped(func() int64 { return 3 })
	metrics.ObserveSubscribers(func() int { return 2 })

	body := scrape(t, metrics)
	for _, want := range []string{
		`arcollect_snapshot_fallbacks_total{division="PPA"} 2`,
		`arcollect_changes_published_total{op="insert"} 1`,
		`arcollect_changes_dropped_total 3`,
		`arcollect_change_subscribers 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output: %s", want, body)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.SnapshotFallback("MCS")
	metrics.ChangePublished("delete")
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics, got %d", rr.Code)
	}
}
