package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine
type Metrics struct {
	// Ingestion metrics
	EventsIngested  *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	IngestErrors    *prometheus.CounterVec
	IngestDuration  prometheus.Histogram
	AncestorFetches prometheus.Counter

	// Engagement metrics
	CounterClamps       prometheus.Counter
	EngagementRecounts  prometheus.Counter

	// Feed query metrics
	FeedQueriesTotal  prometheus.Counter
	FeedQueryErrors   *prometheus.CounterVec
	FeedQueryDuration prometheus.Histogram

	// Kafka metrics
	KafkaMessagesProduced prometheus.Counter
	KafkaProduceErrors    *prometheus.CounterVec
}

var (
	// DefaultMetrics is the default metrics instance
	DefaultMetrics *Metrics
	once           sync.Once
)

// GetDefaultMetrics returns the singleton metrics instance
func GetDefaultMetrics() *Metrics {
	once.Do(func() {
		DefaultMetrics = NewMetrics()
	})
	return DefaultMetrics
}

func init() {
	// Initialize DefaultMetrics on package import
	GetDefaultMetrics()
}

// NewMetrics creates a new Metrics instance with all counters and gauges
func NewMetrics() *Metrics {
	return &Metrics{
		// Ingestion metrics
		EventsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nook_engine_events_ingested_total",
				Help: "Total number of raw events ingested, by event type",
			},
			[]string{"event_type"},
		),
		EventsDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nook_engine_events_dropped_total",
				Help: "Total number of malformed events dropped",
			},
			[]string{"reason"},
		),
		IngestErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nook_engine_ingest_errors_total",
				Help: "Total number of ingestion errors",
			},
			[]string{"error_type"},
		),
		IngestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nook_engine_ingest_duration_seconds",
			Help:    "Duration of raw event ingestion in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		AncestorFetches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nook_engine_ancestor_fetches_total",
			Help: "Total number of ancestor casts fetched from the hub during ingestion",
		}),

		// Engagement metrics
		CounterClamps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nook_engine_counter_clamps_total",
			Help: "Total number of engagement counter decrements clamped at zero",
		}),
		EngagementRecounts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nook_engine_engagement_recounts_total",
			Help: "Total number of full engagement recounts performed",
		}),

		// Feed query metrics
		FeedQueriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nook_engine_feed_queries_total",
			Help: "Total number of feed queries served",
		}),
		FeedQueryErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nook_engine_feed_query_errors_total",
				Help: "Total number of feed query errors",
			},
			[]string{"error_type"},
		),
		FeedQueryDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nook_engine_feed_query_duration_seconds",
			Help:    "Duration of feed queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		// Kafka metrics
		KafkaMessagesProduced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nook_engine_kafka_messages_produced_total",
			Help: "Total number of normalized events produced to Kafka",
		}),
		KafkaProduceErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nook_engine_kafka_produce_errors_total",
				Help: "Total number of Kafka produce errors",
			},
			[]string{"error_type"},
		),
	}
}

// RecordEventIngested records a successfully ingested event with duration
func (m *Metrics) RecordEventIngested(eventType string, duration float64) {
	m.EventsIngested.WithLabelValues(eventType).Inc()
	m.IngestDuration.Observe(duration)
}

// RecordEventDropped records a malformed event dropped during ingestion
func (m *Metrics) RecordEventDropped(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.EventsDropped.WithLabelValues(reason).Inc()
}

// RecordIngestError records an ingestion error with error type
func (m *Metrics) RecordIngestError(errorType string) {
	if errorType == "" {
		errorType = "unknown"
	}
	m.IngestErrors.WithLabelValues(errorType).Inc()
}

// RecordAncestorFetch records an ancestor cast fetched from the hub
func (m *Metrics) RecordAncestorFetch() {
	m.AncestorFetches.Inc()
}

// RecordCounterClamp records a decrement clamped at zero
func (m *Metrics) RecordCounterClamp() {
	m.CounterClamps.Inc()
}

// RecordEngagementRecount records a full engagement recount
func (m *Metrics) RecordEngagementRecount() {
	m.EngagementRecounts.Inc()
}

// RecordFeedQuery records a served feed query with duration
func (m *Metrics) RecordFeedQuery(duration float64) {
	m.FeedQueriesTotal.Inc()
	m.FeedQueryDuration.Observe(duration)
}

// RecordFeedQueryError records a feed query error with error type
func (m *Metrics) RecordFeedQueryError(errorType string) {
	if errorType == "" {
		errorType = "unknown"
	}
	m.FeedQueryErrors.WithLabelValues(errorType).Inc()
}

// RecordKafkaMessage records a normalized event produced to Kafka
func (m *Metrics) RecordKafkaMessage() {
	m.KafkaMessagesProduced.Inc()
}

// RecordKafkaError records a Kafka production error with error type
func (m *Metrics) RecordKafkaError(errorType string) {
	if errorType == "" {
		errorType = "unknown"
	}
	m.KafkaProduceErrors.WithLabelValues(errorType).Inc()
}
