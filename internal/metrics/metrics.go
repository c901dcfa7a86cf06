// Package metrics exposes Prometheus collectors for the scrape service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels recorded for scrape requests.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation_failed"
)

var (
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
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 45},
		},
		[]string{"method", "route"},
	)

	scrapeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_requests_total",
			Help: "Total number of scrape requests, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	scrapeDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_duration_seconds",
			Help:    "Time spent from browser launch to response, labeled by outcome.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		},
		[]string{"outcome"},
	)

	scrapeElementsExtracted = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scrape_elements_extracted",
			Help:    "Number of clickable elements extracted per successful scrape.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 7),
		},
	)

	scrapeNetworkIdleTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scrape_network_idle_timeouts_total",
			Help: "Total best-effort network idle waits that gave up before the page went idle.",
		},
	)

	scrapeCleanupFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_cleanup_failures_total",
			Help: "Total errors swallowed while releasing browser resources, labeled by resource.",
		},
		[]string{"resource"},
	)

	scrapeRateLimitWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scrape_rate_limit_wait_seconds",
			Help:    "Time scrapes spent waiting on the per-host rate limiter.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		},
	)

	browserLaunchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "browser_launches_total",
			Help: "Total browser launches, labeled by strategy and result.",
		},
		[]string{"strategy", "result"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveScrape records the outcome and latency of one scrape request.
func ObserveScrape(outcome string, duration time.Duration) {
	scrapeRequestsTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		scrapeDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
	}
}

// ObserveElements records how many elements a successful scrape returned.
func ObserveElements(count int) {
	scrapeElementsExtracted.Observe(float64(count))
}

// ObserveNetworkIdleTimeout increments the abandoned network idle counter.
func ObserveNetworkIdleTimeout() {
	scrapeNetworkIdleTimeoutsTotal.Inc()
}

// ObserveCleanupFailure increments the swallowed cleanup error counter.
func ObserveCleanupFailure(resource string) {
	scrapeCleanupFailuresTotal.WithLabelValues(resource).Inc()
}

// ObserveRateLimitWait records a non-trivial wait on the per-host limiter.
func ObserveRateLimitWait(d time.Duration) {
	scrapeRateLimitWaitSeconds.Observe(d.Seconds())
}

// ObserveBrowserLaunch records a launch attempt for the given strategy.
func ObserveBrowserLaunch(strategy string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	browserLaunchesTotal.WithLabelValues(strategy, result).Inc()
}
