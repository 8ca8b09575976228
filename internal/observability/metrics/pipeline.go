package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

// PipelineMetrics observes ingestion and satisfies ports.IngestObserver.
type PipelineMetrics struct {
	registry *prometheus.Registry
	service  string

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	extractionPolls *prometheus.HistogramVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docclf",
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Total ingested documents by outcome.",
		},
		[]string{"service", "outcome"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docclf",
			Subsystem: "ingest",
			Name:      "document_duration_seconds",
			Help:      "End-to-end document pipeline duration in seconds by outcome.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "outcome"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docclf",
			Subsystem: "ingest",
			Name:      "documents_in_flight",
			Help:      "Number of documents currently in the pipeline.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	extractionPolls := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docclf",
			Subsystem: "extraction",
			Name:      "polls",
			Help:      "Status queries issued per extraction job.",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 50, 100, 300},
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, extractionPolls)

	return &PipelineMetrics{
		registry:        registry,
		service:         service,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		extractionPolls: extractionPolls,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartDocument() {
	m.processInFlight.Inc()
}

func (m *PipelineMetrics) FinishDocument(duration time.Duration, err error) {
	m.processInFlight.Dec()

	outcome := Outcome(err)
	m.processTotal.WithLabelValues(m.service, outcome).Inc()
	m.processDuration.WithLabelValues(m.service, outcome).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveExtractionPolls(polls int) {
	if polls <= 0 {
		return
	}
	m.extractionPolls.WithLabelValues(m.service).Observe(float64(polls))
}

// Outcome maps a pipeline error to a bounded label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case domain.IsKind(err, domain.ErrExtractionTimeout):
		return "extraction_timeout"
	case domain.IsKind(err, domain.ErrExtractionFailed):
		return "extraction_failed"
	case domain.IsKind(err, domain.ErrAnalysisFailed):
		return "analysis_failed"
	case domain.IsKind(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid_input"
	case domain.IsKind(err, domain.ErrTemporary):
		return "temporary"
	default:
		return "error"
	}
}
