package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
	"github.com/kirillkom/smart-file-explorer/internal/core/ports"
)

// EnrichmentMetrics counts classification, extraction and summarization outcomes.
type EnrichmentMetrics struct {
	classificationTotal *prometheus.CounterVec
	summarizationTotal  *prometheus.CounterVec
	extractionTotal     *prometheus.CounterVec
	indexFlushFailures  prometheus.Counter
	inferenceDuration   *prometheus.HistogramVec
	breakerOpen         *prometheus.GaugeVec
}

func NewEnrichmentMetrics(registerer prometheus.Registerer) *EnrichmentMetrics {
	m := &EnrichmentMetrics{
		classificationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "enrichment",
				Name:      "classification_total",
				Help:      "Classifications by outcome.",
			},
			[]string{"outcome"},
		),
		summarizationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "enrichment",
				Name:      "summarization_total",
				Help:      "Summaries by status.",
			},
			[]string{"status"},
		),
		extractionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "enrichment",
				Name:      "extraction_total",
				Help:      "Text extractions by format and status.",
			},
			[]string{"format", "status"},
		),
		indexFlushFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "index",
				Name:      "flush_failures_total",
				Help:      "Metadata index flushes that failed to persist.",
			},
		),
		inferenceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "inference",
				Name:      "duration_seconds",
				Help:      "Remote inference call duration in seconds.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"operation", "status"},
		),
		breakerOpen: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "resilience",
				Name:      "breaker_open",
				Help:      "1 while the named circuit breaker is open.",
			},
			[]string{"operation"},
		),
	}
	registerer.MustRegister(
		m.classificationTotal,
		m.summarizationTotal,
		m.extractionTotal,
		m.indexFlushFailures,
		m.inferenceDuration,
		m.breakerOpen,
	)
	return m
}

func (m *EnrichmentMetrics) RecordExtraction(format domain.Format, err error) {
	m.extractionTotal.WithLabelValues(string(format), statusOf(err)).Inc()
}

func (m *EnrichmentMetrics) RecordClassification(outcome domain.ClassificationOutcome) {
	m.classificationTotal.WithLabelValues(string(outcome)).Inc()
}

func (m *EnrichmentMetrics) RecordSummarization(err error, cached bool) {
	status := statusOf(err)
	if cached {
		status = "cached"
	}
	m.summarizationTotal.WithLabelValues(status).Inc()
}

func (m *EnrichmentMetrics) RecordIndexFlushFailure() {
	m.indexFlushFailures.Inc()
}

// SetBreakerOpen matches resilience.StateObserver.
func (m *EnrichmentMetrics) SetBreakerOpen(operation string, open bool) {
	value := 0.0
	if open {
		value = 1
	}
	m.breakerOpen.WithLabelValues(operation).Set(value)
}

// InstrumentCompleter times every remote call made through next under the given operation label.
func (m *EnrichmentMetrics) InstrumentCompleter(operation string, next ports.ChatCompleter) ports.ChatCompleter {
	return &timedCompleter{next: next, operation: operation, metrics: m}
}

type timedCompleter struct {
	next      ports.ChatCompleter
	operation string
	metrics   *EnrichmentMetrics
}

func (c *timedCompleter) Complete(ctx context.Context, messages []domain.ChatMessage, model string) (string, error) {
	start := time.Now()
	reply, err := c.next.Complete(ctx, messages, model)
	c.metrics.inferenceDuration.WithLabelValues(c.operation, statusOf(err)).Observe(time.Since(start).Seconds())
	return reply, err
}

func statusOf(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}
