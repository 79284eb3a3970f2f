package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docchat_documents_ingested_total",
		Help: "Documents successfully chunked, embedded and indexed.",
	})
	fragmentsIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docchat_fragments_indexed_total",
		Help: "Fragments committed to the vector index.",
	})
	chatTurns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docchat_chat_turns_total",
		Help: "Chat turns answered.",
	})
	contextlessTurns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docchat_chat_turns_without_context_total",
		Help: "Chat turns answered with no retrieved fragments.",
	})
	completionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "docchat_completion_duration_seconds",
		Help:    "Latency of LLM completion calls.",
		Buckets: prometheus.DefBuckets,
	})
)
