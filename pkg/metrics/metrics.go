package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ClientRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "aiot", Subsystem: "client", Name: "requests_total", Help: "API requests issued by the client, by method and status class."},
		[]string{"method", "code"},
	)
	ClientRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "aiot", Subsystem: "client", Name: "request_duration_seconds", Help: "API request latency as seen by the client.", Buckets: prometheus.DefBuckets},
		[]string{"method"},
	)
	IdleLogouts = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "aiot", Subsystem: "client", Name: "idle_logouts_total", Help: "Sessions ended by the idle timeout watcher."},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "aiot", Subsystem: "devserver", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "aiot", Subsystem: "devserver", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

// CodeClass maps an HTTP status to "2xx".."5xx"; zero (network failure) maps to "error".
func CodeClass(status int) string {
	if status < 100 || status > 599 {
		return "error"
	}
	return string(rune('0'+status/100)) + "xx"
}

// RegisterClient registers the client-side collectors.
func RegisterClient(reg prometheus.Registerer) {
	reg.MustRegister(ClientRequests, ClientRequestDuration, IdleLogouts)
}

// RegisterServer registers the mock backend collectors.
func RegisterServer(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed, RateLimitRejected)
}
