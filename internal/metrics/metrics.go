package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	transformCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bipolarpulse_transform_calls_total",
			Help: "Transform calls by direction (physical, pseudo) and result.",
		},
		[]string{"direction", "result"},
	)

	movesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bipolarpulse_moves_total",
			Help: "Axis moves by kind (pseudo, physical) and result.",
		},
		[]string{"kind", "result"},
	)

	axisPosition = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bipolarpulse_axis_position",
			Help: "Last known value of each physical axis.",
		},
		[]string{"role"},
	)

	inconsistencies = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bipolarpulse_inconsistencies_total",
			Help: "Position reads where channel 2 disagreed with channel 1.",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bipolarpulse_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bipolarpulse_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	prometheus.MustRegister(transformCalls)
	prometheus.MustRegister(movesTotal)
	prometheus.MustRegister(axisPosition)
	prometheus.MustRegister(inconsistencies)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveMove counts one move of the given kind.
func ObserveMove(kind string, err error) {
	movesTotal.WithLabelValues(kind, result(err)).Inc()
}

// SetAxisPosition records the last known value of a physical axis.
func SetAxisPosition(role string, value float64) {
	axisPosition.WithLabelValues(role).Set(value)
}

// ObserveInconsistency counts one channel mismatch.
func ObserveInconsistency() {
	inconsistencies.Inc()
}

var knownRoutes = map[string]bool{
	"/":              true,
	"/config":        true,
	"/position":      true,
	"/move":          true,
	"/fire":          true,
	"/status/stream": true,
	"/metrics":       true,
}

// normalizeRoute keeps label cardinality bounded: unknown paths collapse
// to "other".
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		path := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
