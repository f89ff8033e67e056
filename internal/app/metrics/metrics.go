// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "feed_service",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feed_service",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "feed_service",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	feedRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feed_service",
			Subsystem: "pipeline",
			Name:      "requests_total",
			Help:      "Total number of feed generations by outcome.",
		},
		[]string{"outcome"},
	)

	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "feed_service",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"stage"},
	)

	generatorFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feed_service",
			Subsystem: "pipeline",
			Name:      "generator_failures_total",
			Help:      "Candidate generator failures recovered as empty pools.",
		},
		[]string{"pool"},
	)

	candidatesGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feed_service",
			Subsystem: "pipeline",
			Name:      "candidates_total",
			Help:      "Candidates produced per pool.",
		},
		[]string{"pool"},
	)

	adsAuctioned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "feed_service",
			Subsystem: "pipeline",
			Name:      "ads_auctioned_total",
			Help:      "Sponsored items selected by the ad auction.",
		},
	)

	seenPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "feed_service",
			Subsystem: "pipeline",
			Name:      "seen_records_pruned_total",
			Help:      "Expired seen records removed by the pruner.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		feedRequests,
		stageDuration,
		generatorFailures,
		candidatesGenerated,
		adsAuctioned,
		seenPruned,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordFeedRequest counts one feed generation by outcome (success, error,
// unauthorized).
func RecordFeedRequest(outcome string) {
	feedRequests.WithLabelValues(outcome).Inc()
}

// ObserveStage records the duration of a pipeline stage.
func ObserveStage(stage string, duration time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordGeneratorFailure counts a pool failure recovered as an empty list.
func RecordGeneratorFailure(pool string) {
	generatorFailures.WithLabelValues(pool).Inc()
}

// RecordCandidates counts candidates contributed by a pool.
func RecordCandidates(pool string, n int) {
	if n > 0 {
		candidatesGenerated.WithLabelValues(pool).Add(float64(n))
	}
}

// RecordAdsAuctioned counts selected sponsored items.
func RecordAdsAuctioned(n int) {
	if n > 0 {
		adsAuctioned.Add(float64(n))
	}
}

// RecordSeenPruned counts seen records removed by the background pruner.
func RecordSeenPruned(n int) {
	if n > 0 {
		seenPruned.Add(float64(n))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	return "/" + parts[0]
}
