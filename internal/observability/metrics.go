package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics of the dashboard.
type Metrics struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	snapshotFallbacks *prometheus.CounterVec
	changesPublished  *prometheus.CounterVec
}

// NewMetrics initialises the registry and the base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arcollect_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arcollect_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arcollect_snapshot_fallbacks_total",
		Help: "Division snapshots replaced by the empty snapshot after a load failure.",
	}, []string{"division"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arcollect_changes_published_total",
		Help: "Action changes published by operation.",
	}, []string{"op"})
	registry.MustRegister(requests, duration, fallbacks, published)
	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:     requests,
		requestDuration:   duration,
		snapshotFallbacks: fallbacks,
		changesPublished:  published,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request counts and latency per route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// SnapshotFallback counts a division snapshot served as empty.
func (m *Metrics) SnapshotFallback(division string) {
	if m == nil {
		return
	}
	m.snapshotFallbacks.WithLabelValues(division).Inc()
}

// ChangePublished counts a published action change.
func (m *Metrics) ChangePublished(op string) {
	if m == nil {
		return
	}
	m.changesPublished.WithLabelValues(op).Inc()
}

// ObserveDropped exposes a running count of change events dropped by slow subscribers.
func (m *Metrics) ObserveDropped(dropped func() int64) {
	if m == nil || dropped == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "arcollect_changes_dropped_total",
		Help: "Change events dropped because a subscriber queue was full.",
	}, func() float64 { return float64(dropped()) }))
}

// ObserveSubscribers exposes the number of live change subscribers.
func (m *Metrics) ObserveSubscribers(count func() int) {
	if m == nil || count == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "arcollect_change_subscribers",
		Help: "Live change subscribers.",
	}, func() float64 { return float64(count()) }))
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming responses working behind the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
