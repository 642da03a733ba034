package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	rowsParsed    *prometheus.CounterVec
	rowsSkipped   *prometheus.CounterVec
	districtLoads *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rowsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_rows_parsed_total",
			Help: "Rows parsed into records, by file kind.",
		}, []string{"kind"}),
		rowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_rows_skipped_total",
			Help: "Malformed rows skipped, by file kind.",
		}, []string{"kind"}),
		districtLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_district_loads_total",
			Help: "Per-district source reads, by file kind and outcome.",
		}, []string{"kind", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rowsParsed,
		m.rowsSkipped,
		m.districtLoads,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveParse(kind string, parsed, skipped int) {
	if m == nil {
		return
	}
	m.rowsParsed.WithLabelValues(kind).Add(float64(parsed))
	m.rowsSkipped.WithLabelValues(kind).Add(float64(skipped))
}

func (m *Metrics) ObserveLoad(kind, outcome string) {
	if m == nil {
		return
	}
	m.districtLoads.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
