package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	uploadsTotal        *prometheus.CounterVec
	uploadRejectedTotal *prometheus.CounterVec
	exportsTotal        *prometheus.CounterVec
	historyClearsTotal  prometheus.Counter
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "microscan",
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total HTTP requests processed.",
			ConstLabels: constLabels,
		},
		[]string{"method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "microscan",
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "microscan",
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: constLabels,
		},
	)
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "microscan",
			Subsystem:   "upload",
			Name:        "files_total",
			Help:        "Uploaded files by acceptance outcome.",
			ConstLabels: constLabels,
		},
		[]string{"outcome"},
	)
	uploadRejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "microscan",
			Subsystem:   "upload",
			Name:        "rejected_total",
			Help:        "Per-file input rejections by reason.",
			ConstLabels: constLabels,
		},
		[]string{"reason"},
	)
	exportsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "microscan",
			Subsystem:   "export",
			Name:        "artifacts_total",
			Help:        "Export artifacts produced by format.",
			ConstLabels: constLabels,
		},
		[]string{"format"},
	)
	historyClearsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "microscan",
			Subsystem:   "history",
			Name:        "clears_total",
			Help:        "Explicit destructive history clears.",
			ConstLabels: constLabels,
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		uploadsTotal,
		uploadRejectedTotal,
		exportsTotal,
		historyClearsTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		uploadsTotal:        uploadsTotal,
		uploadRejectedTotal: uploadRejectedTotal,
		exportsTotal:        exportsTotal,
		historyClearsTotal:  historyClearsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	case strings.HasPrefix(path, "/v1/records/"):
		return "/v1/records/{record_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordUpload(accepted bool) {
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	m.uploadsTotal.WithLabelValues(outcome).Inc()
}

func (m *HTTPServerMetrics) RecordUploadRejection(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.uploadRejectedTotal.WithLabelValues(reason).Inc()
}

func (m *HTTPServerMetrics) RecordExport(format string) {
	if format == "" {
		format = "unknown"
	}
	m.exportsTotal.WithLabelValues(format).Inc()
}

func (m *HTTPServerMetrics) RecordHistoryClear() {
	m.historyClearsTotal.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
