package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChatDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatbot_message_duration_seconds",
			Help:    "End-to-end chat message handling duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"intent"},
	)

	ChatTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_messages_total",
			Help: "Total chat messages handled",
		},
		[]string{"outcome"},
	)

	RetrievalResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatbot_retrieval_results_count",
			Help:    "Number of knowledge documents retrieved per message",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		},
	)

	RetrievalFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_retrieval_failures_total",
			Help: "Knowledge retrievals that degraded to no documents",
		},
		[]string{"stage"},
	)

	OrderLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_order_lookups_total",
			Help: "Order lookups by result",
		},
		[]string{"kind", "result"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chatbot_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatbot_confidence_score",
			Help:    "Reply confidence scores",
			Buckets: []float64{0, 0.8, 0.85, 0.9, 0.95, 1.0},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	RecordingFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatbot_recording_failures_total",
			Help: "Conversation turns that could not be persisted",
		},
	)

	DocumentsIndexed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_knowledge_documents_indexed_total",
			Help: "Knowledge documents embedded and stored",
		},
		[]string{"status"},
	)

	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatbot_rate_limited_total",
			Help: "Requests rejected by the chat rate limiter",
		},
	)
)

var registerOnce sync.Once

// Init registers every collector with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ChatDuration,
			ChatTotal,
			RetrievalResults,
			RetrievalFailures,
			OrderLookups,
			LLMTokensUsed,
			BreakerState,
			ConfidenceScore,
			CacheHits,
			CacheMisses,
			RecordingFailures,
			DocumentsIndexed,
			RateLimited,
		)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
