// Package metrics holds the Prometheus collectors of the accounts service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for AuthEvents.
const (
	OutcomeSuccess     = "success"
	OutcomeMFARequired = "mfa_required"
	OutcomeRejected    = "rejected"
	OutcomeError       = "error"
)

// Result labels for Notifications.
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultDropped = "dropped"
)

// AuthEvents counts account operations by operation and outcome.
var AuthEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "accounts_auth_events_total",
		Help: "Total number of account operations by outcome",
	},
	[]string{"operation", "outcome"},
)

// Notifications counts email deliveries by kind and result.
var Notifications = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "accounts_notifications_total",
		Help: "Total number of notifications by kind and delivery result",
	},
	[]string{"kind", "result"},
)

// SecretsPurged counts expired tokens and codes removed by housekeeping.
var SecretsPurged = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "accounts_secrets_purged_total",
		Help: "Total number of expired secrets deleted",
	},
	[]string{"table"},
)

// HTTPRequests observes request duration by route pattern and status.
var HTTPRequests = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "accounts_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"route", "status"},
)

// NewRegistry returns a registry holding the accounts collectors plus the Go
// runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	RegisterMetrics(reg)
	return reg
}

// RegisterMetrics registers the accounts collectors with reg.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthEvents, Notifications, SecretsPurged, HTTPRequests)
}

// Handler serves the collectors of reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func RecordAuthEvent(operation, outcome string) {
	AuthEvents.WithLabelValues(operation, outcome).Inc()
}

func RecordNotification(kind, result string) {
	Notifications.WithLabelValues(kind, result).Inc()
}

func RecordSecretsPurged(table string, n int64) {
	if n > 0 {
		SecretsPurged.WithLabelValues(table).Add(float64(n))
	}
}

// Middleware records HTTPRequests. The route label is the ServeMux pattern
// that matched, so path parameters do not blow up cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
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

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
