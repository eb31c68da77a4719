// Package metrics exposes Prometheus collectors for the listing service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Paging modes used as the mode label of pages_served_total.
const (
	ModeCursor = "cursor"
	ModeOffset = "offset"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	pagesServedTotal           *prometheus.CounterVec
	paginationConflictsTotal   *prometheus.CounterVec
	jobsTotal                  *prometheus.CounterVec
	activeWorkers              prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"method", "route"},
		)

		pagesServedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laaws_pages_served_total",
				Help: "Total number of result pages served, labeled by paging mode.",
			},
			[]string{"mode"},
		)

		paginationConflictsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laaws_pagination_conflicts_total",
				Help: "Continuation tokens rejected because the collection changed, labeled by collection.",
			},
			[]string{"collection"},
		)

		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laaws_jobs_total",
				Help: "Metadata update job transitions, labeled by status.",
			},
			[]string{"status"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "laaws_active_workers",
				Help: "Number of workers currently running a job.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// The Observe helpers are no-ops until Init has run, so packages can be
// exercised in tests without a registry.

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObservePage counts one page served in mode.
func ObservePage(mode string) {
	if pagesServedTotal == nil {
		return
	}
	pagesServedTotal.WithLabelValues(mode).Inc()
}

// ObserveConflict counts one rejected continuation token for collection.
func ObserveConflict(collection string) {
	if paginationConflictsTotal == nil {
		return
	}
	paginationConflictsTotal.WithLabelValues(collection).Inc()
}

// ObserveJob increments the job counter for the given status.
func ObserveJob(status string) {
	if jobsTotal == nil {
		return
	}
	jobsTotal.WithLabelValues(status).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Dec()
}
