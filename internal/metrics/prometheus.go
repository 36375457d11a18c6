package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesEnriched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telefeed_messages_enriched_total",
			Help: "Total messages run through the enrichment pipeline",
		},
		[]string{"status"},
	)

	EnrichmentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "telefeed_enrichment_duration_seconds",
			Help:    "Single-message enrichment duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	GeocodeCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telefeed_geocode_cache_hits_total",
			Help: "Place-name lookups served from the in-memory cache",
		},
	)

	GeocodeCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telefeed_geocode_cache_misses_total",
			Help: "Place-name lookups that hit the geocoding backend",
		},
	)

	AnswerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "telefeed_answer_duration_seconds",
			Help:    "RAG answer latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
	)

	AnswerTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telefeed_answer_total",
			Help: "Total questions answered",
		},
		[]string{"status"},
	)

	RetrievedPassages = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "telefeed_retrieved_passages_count",
			Help:    "Number of grounding passages retrieved per question",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	SimilarQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telefeed_similar_queries_total",
			Help: "Total similarity searches",
		},
		[]string{"status"},
	)

	EmbeddingBatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telefeed_embedding_batches_total",
			Help: "Total embedding batches sent to the backend",
		},
	)

	EmbeddingCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telefeed_embedding_cache_hits_total",
			Help: "Embedding cache lookups",
		},
		[]string{"result"},
	)

	IndexedDocuments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telefeed_indexed_documents_total",
			Help: "Documents inserted into vector collections",
		},
		[]string{"collection"},
	)

	LiveMessagesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telefeed_live_messages_received_total",
			Help: "Raw messages received on the live ingestion bus",
		},
	)
)

func Init() {
	prometheus.MustRegister(MessagesEnriched)
	prometheus.MustRegister(EnrichmentDuration)
	prometheus.MustRegister(GeocodeCacheHits)
	prometheus.MustRegister(GeocodeCacheMisses)
	prometheus.MustRegister(AnswerDuration)
	prometheus.MustRegister(AnswerTotal)
	prometheus.MustRegister(RetrievedPassages)
	prometheus.MustRegister(SimilarQueriesTotal)
	prometheus.MustRegister(EmbeddingBatches)
	prometheus.MustRegister(EmbeddingCacheHits)
	prometheus.MustRegister(IndexedDocuments)
	prometheus.MustRegister(LiveMessagesReceived)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
