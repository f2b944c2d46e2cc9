// Package metrics defines the Prometheus collectors for oracle traffic,
// navigation outcomes and the HTTP surface. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors.
type Metrics struct {
	OracleCalls         *prometheus.CounterVec
	OracleLatency       *prometheus.HistogramVec
	NavigationSteps     prometheus.Histogram
	QueriesTotal        *prometheus.CounterVec
	ParseFallbacks      prometheus.Counter
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	DocumentsLoaded     prometheus.Gauge
	IngestJobsTotal     *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors with reg and scrapes from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		OracleCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docnav_oracle_calls_total",
				Help: "Oracle calls by operation (navigate, synthesize) and status.",
			},
			[]string{"op", "status"},
		),
		OracleLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docnav_oracle_latency_seconds",
				Help:    "Oracle round-trip latency in seconds.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
			},
			[]string{"op"},
		),
		NavigationSteps: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docnav_navigation_steps",
				Help:    "Navigate calls made per query.",
				Buckets: []float64{1, 2, 3, 5, 8, 10, 15, 20, 30},
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docnav_queries_total",
				Help: "Queries by termination reason.",
			},
			[]string{"termination"},
		),
		ParseFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docnav_parse_fallbacks_total",
				Help: "Unparseable navigation replies replaced by COMPLETE.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docnav_llm_cache_hits_total",
				Help: "LLM reply cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docnav_llm_cache_misses_total",
				Help: "LLM reply cache misses.",
			},
		),
		DocumentsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docnav_documents_loaded",
				Help: "Documents currently registered in the library.",
			},
		),
		IngestJobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docnav_ingest_jobs_total",
				Help: "Finished ingest jobs by final status.",
			},
			[]string{"status"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docnav_http_requests_total",
				Help: "HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docnav_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		gatherer: g,
	}

	reg.MustRegister(
		m.OracleCalls,
		m.OracleLatency,
		m.NavigationSteps,
		m.QueriesTotal,
		m.ParseFallbacks,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocumentsLoaded,
		m.IngestJobsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// Handler returns the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveOracle records one oracle round-trip.
func (m *Metrics) ObserveOracle(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.OracleCalls.WithLabelValues(op, status).Inc()
	m.OracleLatency.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveQuery records a finished query.
func (m *Metrics) ObserveQuery(termination string, steps int) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(termination).Inc()
	m.NavigationSteps.Observe(float64(steps))
}

// ParseFallback counts a navigation reply that could not be parsed.
func (m *Metrics) ParseFallback() {
	if m == nil {
		return
	}
	m.ParseFallbacks.Inc()
}

// CacheResult counts an LLM reply cache lookup.
func (m *Metrics) CacheResult(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
	} else {
		m.CacheMissesTotal.Inc()
	}
}

// SetDocuments sets the loaded-document gauge.
func (m *Metrics) SetDocuments(n int) {
	if m == nil {
		return
	}
	m.DocumentsLoaded.Set(float64(n))
}

// IngestFinished counts an ingest job reaching a final status.
func (m *Metrics) IngestFinished(status string) {
	if m == nil {
		return
	}
	m.IngestJobsTotal.WithLabelValues(status).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
