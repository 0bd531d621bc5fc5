// Package metrics defines the Prometheus metric collectors used by the
// builder and the suggest server, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SuggestQueriesTotal  *prometheus.CounterVec
	SuggestLatency       *prometheus.HistogramVec
	SuggestResultsCount  prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	RecordsReadTotal     *prometheus.CounterVec
	WorldBuildSeconds    prometheus.Gauge
	WorldCountries       prometheus.Gauge
	WorldReloadsTotal    *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SuggestQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "suggest_queries_total",
				Help: "Total suggest queries by level (cities, zips, streets, housenumbers) and outcome (ok, empty, not_found, error).",
			},
			[]string{"level", "outcome"},
		),
		SuggestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "suggest_latency_seconds",
				Help:    "Suggest query latency in seconds.",
				Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005, 0.01, 0.05},
			},
			[]string{"cache_status"},
		),
		SuggestResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "suggest_results_count",
				Help:    "Number of results returned per suggest query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of suggestion cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of suggestion cache misses.",
			},
		),
		RecordsReadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "records_read_total",
				Help: "Total address records read by the builder, by status (accepted, skipped, malformed).",
			},
			[]string{"status"},
		),
		WorldBuildSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "world_build_seconds",
				Help: "Wall-clock duration of the last world build.",
			},
		),
		WorldCountries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "world_countries",
				Help: "Number of countries in the currently served world.",
			},
		),
		WorldReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "world_reloads_total",
				Help: "Total world reload attempts by status.",
			},
			[]string{"status"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SuggestQueriesTotal,
		m.SuggestLatency,
		m.SuggestResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.RecordsReadTotal,
		m.WorldBuildSeconds,
		m.WorldCountries,
		m.WorldReloadsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
