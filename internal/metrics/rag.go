package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion and retrieval metrics.
var (
	IngestDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_documents_total",
			Help:      "Documents processed by ingestion",
		},
		[]string{"status"}, // "indexed" / "empty" / "error"
	)

	IngestChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_chunks_total",
			Help:      "Chunks written to the vector store",
		},
	)

	RetrievalResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_results",
			Help:      "Contexts returned per retrieval",
			Buckets:   []float64{0, 1, 2, 4, 6, 8, 12, 16, 32},
		},
	)

	ChatNoContextTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_no_context_total",
			Help:      "Chat requests answered without any retrieved context",
		},
	)
)

var ragMetricsRegistered bool

// RegisterRAGMetrics registers ingestion and retrieval metrics. Must be called once from main.
func RegisterRAGMetrics() {
	if ragMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestDocumentsTotal)
	prometheus.MustRegister(IngestChunksTotal)
	prometheus.MustRegister(RetrievalResults)
	prometheus.MustRegister(ChatNoContextTotal)
	ragMetricsRegistered = true
}
