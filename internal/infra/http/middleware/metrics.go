package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/liguemed/membership-core/internal/resilience"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	paymentVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verifications_total",
			Help: "Total number of payment verification decisions",
		},
		[]string{"decision", "result"},
	)

	leadsConverted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_converted_total",
			Help: "Total number of leads converted into members",
		},
	)

	notificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total number of failed decision notifications",
		},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

func RecordVerification(decision, result string) {
	paymentVerifications.WithLabelValues(decision, result).Inc()
}

func RecordConversion() {
	leadsConverted.Inc()
}

func RecordNotificationFailure() {
	notificationFailures.Inc()
}

// SetBreakerState is wired as the breaker's OnStateChange callback.
func SetBreakerState(name string, state resilience.BreakerState) {
	breakerState.WithLabelValues(name).Set(float64(state))
}
