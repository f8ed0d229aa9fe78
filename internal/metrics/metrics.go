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
			Namespace: "bluetrust",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bluetrust",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bluetrust",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	ledgerOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bluetrust",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by kind and result.",
		},
		[]string{"op", "result"},
	)

	ledgerCredits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bluetrust",
			Subsystem: "ledger",
			Name:      "credits_total",
			Help:      "Credits moved by successful ledger operations.",
		},
		[]string{"op"},
	)

	decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bluetrust",
			Subsystem: "verification",
			Name:      "decisions_total",
			Help:      "Verification decisions by outcome.",
		},
		[]string{"outcome"},
	)

	submissions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bluetrust",
			Subsystem: "intake",
			Name:      "submissions_total",
			Help:      "Project submissions accepted.",
		},
	)

	statsRefresh = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bluetrust",
			Subsystem: "dashboard",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of scheduled dashboard refreshes.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ledgerOps,
		ledgerCredits,
		decisions,
		submissions,
		statsRefresh,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func TrackInFlight() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// ObserveHTTP records one finished request.
func ObserveHTTP(method, path string, status int, d time.Duration) {
	method = strings.ToUpper(method)
	path = CanonicalPath(path)
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordLedger records a purchase, sell or retire attempt.
func RecordLedger(op string, credits int64, err error) {
	if err != nil {
		ledgerOps.WithLabelValues(op, "error").Inc()
		return
	}
	ledgerOps.WithLabelValues(op, "ok").Inc()
	ledgerCredits.WithLabelValues(op).Add(float64(credits))
}

// RecordDecision records a verification outcome.
func RecordDecision(outcome string) {
	decisions.WithLabelValues(outcome).Inc()
}

// RecordSubmission records an accepted project submission.
func RecordSubmission() {
	submissions.Inc()
}

// RecordStatsRefresh records a scheduled dashboard refresh.
func RecordStatsRefresh(d time.Duration, success bool) {
	statsRefresh.WithLabelValues(strconv.FormatBool(success)).Observe(d.Seconds())
}

// CanonicalPath collapses ids so label cardinality stays bounded:
// /api/v1/marketplace/listings/<id>/quote -> /api/v1/marketplace/listings/:id/quote.
func CanonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	parts := strings.Split(strings.Trim(raw, "/"), "/")
	for i, p := range parts {
		if looksLikeID(p) {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func looksLikeID(seg string) bool {
	if len(seg) == 36 && strings.Count(seg, "-") == 4 {
		return true
	}
	if seg == "" {
		return false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
