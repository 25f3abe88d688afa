package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "userhub_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "userhub_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	userOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "userhub_user_operations_total",
		Help: "Count of user identity operations by operation and result",
	}, []string{"operation", "result"})

	passwordValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "userhub_password_validations_total",
		Help: "Count of password verification outcomes",
	}, []string{"result"})

	apiKeyLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "userhub_apikey_lookups_total",
		Help: "Count of API key resolutions by source and result",
	}, []string{"source", "result"})

	keyCacheRevocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "userhub_apikey_revocations_total",
		Help: "Count of cached API key entries dropped by the revocation sweep",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveUserOperation increments the operation counter for the given
// operation (create, update, delete) and result.
func ObserveUserOperation(operation, result string) {
	userOperations.WithLabelValues(operation, result).Inc()
}

// ObservePasswordValidation records a password verification outcome.
func ObservePasswordValidation(result string) {
	passwordValidations.WithLabelValues(result).Inc()
}

// ObserveKeyLookup records an API key resolution attempt with the source
// that answered it (redis, local, database).
func ObserveKeyLookup(source, result string) {
	apiKeyLookups.WithLabelValues(source, result).Inc()
}

// ObserveRevocation records a revocation sweep action.
func ObserveRevocation(result string) {
	keyCacheRevocations.WithLabelValues(result).Inc()
}
