// Package metrics exposes Prometheus instrumentation for ingestion, queries and HTTP.
package metrics

import (
	"strconv"
	"time"

	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "askdesk"

type Metrics struct {
	registry *prometheus.Registry

	ingestionRuns     *prometheus.CounterVec
	ingestionDuration *prometheus.HistogramVec
	ingestionInFlight prometheus.Gauge
	skippedChunks     prometheus.Counter

	queryCount      *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	queryConfidence prometheus.Histogram

	apiResponseTime *prometheus.HistogramVec
	apiErrorCounter *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ingestionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingestion", Name: "runs_total",
			Help: "Ingestion runs by terminal document status.",
		}, []string{"status"}),
		ingestionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "ingestion", Name: "duration_seconds",
			Help:    "Wall time of an ingestion run.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"status"}),
		ingestionInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "ingestion", Name: "in_flight",
			Help: "Ingestion runs currently executing.",
		}),
		skippedChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingestion", Name: "skipped_chunks_total",
			Help: "Chunks dropped because their embedding failed.",
		}),
		queryCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "query", Name: "resolved_total",
			Help: "Resolved queries by answer source.",
		}, []string{"source"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "query", Name: "duration_seconds",
			Help:    "Time to resolve a query.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		queryConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "query", Name: "confidence",
			Help:    "Confidence of returned answers.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		apiResponseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "api", Name: "response_time_seconds",
			Help:    "HTTP response time by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiErrorCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "api", Name: "errors_total",
			Help: "HTTP responses with status >= 400.",
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.ingestionRuns, m.ingestionDuration, m.ingestionInFlight, m.skippedChunks,
		m.queryCount, m.queryDuration, m.queryConfidence,
		m.apiResponseTime, m.apiErrorCounter,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) IngestionStarted() {
	m.ingestionInFlight.Inc()
}

func (m *Metrics) IngestionFinished(status domain.DocumentStatus, skipped int, elapsed time.Duration) {
	m.ingestionInFlight.Dec()
	m.ingestionRuns.WithLabelValues(string(status)).Inc()
	m.ingestionDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
	if skipped > 0 {
		m.skippedChunks.Add(float64(skipped))
	}
}

func (m *Metrics) QueryResolved(source domain.AnswerSource, confidence float64, elapsed time.Duration) {
	m.queryCount.WithLabelValues(string(source)).Inc()
	m.queryDuration.WithLabelValues(string(source)).Observe(elapsed.Seconds())
	m.queryConfidence.Observe(confidence)
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.apiResponseTime.WithLabelValues(method, route).Observe(elapsed.Seconds())
	if status >= 400 {
		m.apiErrorCounter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
}
