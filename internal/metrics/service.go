package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval and write Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docstore",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"kind", "status"}, // kind: "text" / "template" / "embedding"
	)

	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docstore",
			Name:      "search_request_duration_seconds",
			Help:      "Search request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"kind"},
	)

	DocumentWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docstore",
			Name:      "document_writes_total",
			Help:      "Total number of bulk document write requests",
		},
		[]string{"status"},
	)

	DocumentsWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docstore",
			Name:      "documents_written_total",
			Help:      "Total number of documents submitted for writing",
		},
	)

	RerankRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docstore",
			Name:      "rerank_requests_total",
			Help:      "Total number of rerank requests",
		},
		[]string{"status"},
	)

	RerankCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docstore",
			Name:      "rerank_candidates",
			Help:      "Candidate set size per rerank request",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		},
	)
)

var serviceMetricsRegistered bool

// RegisterServiceMetrics registers retrieval and write metrics. Must be called once from main.
func RegisterServiceMetrics() {
	if serviceMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(DocumentWritesTotal)
	prometheus.MustRegister(DocumentsWrittenTotal)
	prometheus.MustRegister(RerankRequestsTotal)
	prometheus.MustRegister(RerankCandidates)
	serviceMetricsRegistered = true
}
