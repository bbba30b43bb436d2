package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal       *prometheus.CounterVec
	processDuration    *prometheus.HistogramVec
	processInFlight    prometheus.Gauge
	entitiesPerDoc     prometheus.Histogram
	historyDepth       prometheus.Gauge
	queueLag           prometheus.Histogram
	graphProjectErrors prometheus.Counter
	persistenceErrors  *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "microscan",
			Subsystem:   "pipeline",
			Name:        "documents_total",
			Help:        "Total processed documents by final status.",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "microscan",
			Subsystem:   "pipeline",
			Name:        "document_duration_seconds",
			Help:        "Full pipeline duration per document by final status.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "microscan",
			Subsystem:   "pipeline",
			Name:        "documents_in_flight",
			Help:        "Documents currently inside the pipeline (0 or 1: processing is sequential).",
			ConstLabels: constLabels,
		},
	)
	entitiesPerDoc := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "microscan",
			Subsystem:   "pipeline",
			Name:        "entities_per_document",
			Help:        "Distribution of normalized entities per completed document.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
			ConstLabels: constLabels,
		},
	)
	historyDepth := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "microscan",
			Subsystem:   "pipeline",
			Name:        "history_records",
			Help:        "Records held in the extraction history; growth is unbounded by design, watch this.",
			ConstLabels: constLabels,
		},
	)
	queueLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "microscan",
			Subsystem:   "pipeline",
			Name:        "queue_lag_seconds",
			Help:        "Delay between document upload and processing start.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: constLabels,
		},
	)
	graphProjectErrors := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "microscan",
			Subsystem:   "pipeline",
			Name:        "graph_projection_errors_total",
			Help:        "Best-effort taxonomy graph writes that failed.",
			ConstLabels: constLabels,
		},
	)
	persistenceErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "microscan",
			Subsystem:   "pipeline",
			Name:        "persistence_errors_total",
			Help:        "Blob slot writes that failed and were absorbed, by slot.",
			ConstLabels: constLabels,
		},
		[]string{"slot"},
	)

	registry.MustRegister(
		processTotal, processDuration, processInFlight,
		entitiesPerDoc, historyDepth, queueLag, graphProjectErrors, persistenceErrors,
	)

	return &WorkerMetrics{
		registry:           registry,
		processTotal:       processTotal,
		processDuration:    processDuration,
		processInFlight:    processInFlight,
		entitiesPerDoc:     entitiesPerDoc,
		historyDepth:       historyDepth,
		queueLag:           queueLag,
		graphProjectErrors: graphProjectErrors,
		persistenceErrors:  persistenceErrors,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishDocument(duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(status).Inc()
	m.processDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveEntities(count int) {
	m.entitiesPerDoc.Observe(float64(count))
}

func (m *WorkerMetrics) SetHistoryDepth(depth int) {
	m.historyDepth.Set(float64(depth))
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.Observe(lag.Seconds())
}

func (m *WorkerMetrics) GraphProjectionFailed() {
	m.graphProjectErrors.Inc()
}

func (m *WorkerMetrics) PersistenceFailed(slot string) {
	if slot == "" {
		slot = "unknown"
	}
	m.persistenceErrors.WithLabelValues(slot).Inc()
}
