// Package metrics exposes Prometheus collectors for analyses and the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "minotaur"

// Advisory query results.
const (
	QueryOK       = "ok"
	QueryCacheHit = "cache_hit"
	QueryError    = "error"
)

// Metrics holds the collectors of one process. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	AdvisoryQueries  *prometheus.CounterVec
	TriageOutcomes   *prometheus.CounterVec
	TriageDuration   prometheus.Histogram
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	FindingsByLevel  *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh private registry, so
// several instances can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		AdvisoryQueries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisory_queries_total",
			Help:      "Advisory lookups by result.",
		}, []string{"result"}),
		TriageOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triage_outcomes_total",
			Help:      "Finalized findings by verdict.",
		}, []string{"verdict"}),
		TriageDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "triage_duration_seconds",
			Help:      "Time spent triaging one finding, retries included.",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		AnalysesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyses by final status.",
		}, []string{"status"}),
		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end analysis duration.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		FindingsByLevel: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Reported findings by threat level.",
		}, []string{"threat_level"}),
	}
}

// Registry exposes the private registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveAdvisoryQuery(result string) {
	if m == nil {
		return
	}
	m.AdvisoryQueries.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTriage(verdict string, d time.Duration) {
	if m == nil {
		return
	}
	m.TriageOutcomes.WithLabelValues(verdict).Inc()
	m.TriageDuration.Observe(d.Seconds())
}

// ObserveAnalysis records a finished analysis and its findings per level.
func (m *Metrics) ObserveAnalysis(status string, d time.Duration, byLevel map[string]int) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(status).Inc()
	m.AnalysisDuration.Observe(d.Seconds())
	for level, n := range byLevel {
		m.FindingsByLevel.WithLabelValues(level).Add(float64(n))
	}
}

// RequestTrackingMiddleware counts requests and their latency. Routes
// registered with a pattern are labeled by the pattern, not the raw path.
func (m *Metrics) RequestTrackingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if r.Pattern != "" {
			route = r.Pattern
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Handler serves this registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
