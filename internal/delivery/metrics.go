package delivery

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments for the HTTP surface and the
// extraction pipeline.
type Metrics struct {
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	extractionsTotal   *prometheus.CounterVec
	extractionDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ktp_http_requests_total",
			Help: "HTTP requests by method, path and status code.",
		}, []string{"method", "path", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ktp_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		extractionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ktp_extractions_total",
			Help: "Extraction attempts by outcome.",
		}, []string{"status"}),
		extractionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ktp_extraction_duration_seconds",
			Help:    "End-to-end pipeline latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// ObserveExtraction records one pipeline run.
func (m *Metrics) ObserveExtraction(elapsed time.Duration, failed bool) {
	status := "ok"
	if failed {
		status = "failed"
	}
	m.extractionsTotal.WithLabelValues(status).Inc()
	m.extractionDuration.Observe(elapsed.Seconds())
}

// Middleware counts and times every request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		m.requestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sw.Status())).Inc()
		m.requestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
