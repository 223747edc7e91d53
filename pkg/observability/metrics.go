package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "dotmap"

// Metrics holds all Prometheus metrics for the application.
// Each instance owns its registry, so several can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	// Editor metrics
	Commits       *prometheus.CounterVec
	Undos         prometheus.Counter
	Redos         prometheus.Counter
	Evictions     prometheus.Counter
	ModeChanges   *prometheus.CounterVec
	HistoryLength prometheus.Histogram
	Dots          prometheus.Histogram

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the metric set under namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		Commits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commits_total",
				Help:      "Total number of snapshots committed to history",
			},
			[]string{"action"},
		),
		Undos: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undo_total",
			Help:      "Total number of successful undo steps",
		}),
		Redos: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redo_total",
			Help:      "Total number of successful redo steps",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_evictions_total",
			Help:      "Total number of snapshots dropped from full histories",
		}),
		ModeChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mode_changes_total",
				Help:      "Total number of interaction mode switches",
			},
			[]string{"to"},
		),
		HistoryLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "history_length",
			Help:      "History length observed after each commit",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50},
		}),
		Dots: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_dots",
			Help:      "Number of dots in each committed snapshot",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		m.Commits,
		m.Undos,
		m.Redos,
		m.Evictions,
		m.ModeChanges,
		m.HistoryLength,
		m.Dots,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Hooks returns editor lifecycle hooks feeding the metrics.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommit: func(e *domain.HistoryEvent) {
			m.Commits.WithLabelValues(string(e.Action)).Inc()
			m.HistoryLength.Observe(float64(e.Length))
			m.Dots.Observe(float64(e.Stats.Dots))
		},
		OnUndo:  func(*domain.HistoryEvent) { m.Undos.Inc() },
		OnRedo:  func(*domain.HistoryEvent) { m.Redos.Inc() },
		OnEvict: func(*domain.HistoryEvent) { m.Evictions.Inc() },
		OnModeChange: func(e *domain.ModeEvent) {
			m.ModeChanges.WithLabelValues(e.To.String()).Inc()
		},
	}
}

// Registry returns the Prometheus registry for this instance.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latencies, labelled by chi route
// pattern so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
