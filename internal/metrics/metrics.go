package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register enqueues collectors for MustRegister.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister registers all enqueued collectors with Prometheus exactly once.
func MustRegister() {
	once.Do(func() {
		if len(collectors) > 0 {
			prometheus.MustRegister(collectors...)
		}
	})
}

func init() {
	register(
		BatchesProcessed,
		RowsTranslated,
		RateLimitRetries,
		QueueCancellations,
		llmCallLatencyMs,
	)
}

var (
	// BatchesProcessed counts settled batches per outcome (review, error).
	BatchesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translate_batches_total",
			Help: "Count of settled translation batches per outcome.",
		},
		[]string{"outcome"},
	)

	// RowsTranslated counts rows that reached review through the queue.
	RowsTranslated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "translate_rows_total",
			Help: "Count of rows successfully translated into review.",
		},
	)

	// RateLimitRetries counts provider 429 responses that triggered a backoff.
	RateLimitRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "translate_rate_limit_retries_total",
			Help: "Count of provider rate-limit responses that triggered a retry.",
		},
	)

	// QueueCancellations counts cancel requests that found work to discard.
	QueueCancellations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "translate_queue_cancellations_total",
			Help: "Count of translation job cancellations.",
		},
	)

	llmCallLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_latency_ms",
			Help:    "Provider call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
		[]string{"success"},
	)
)

// ObserveLLMRequest records the latency and outcome of one provider round trip.
func ObserveLLMRequest(d time.Duration, success bool) {
	llmCallLatencyMs.WithLabelValues(strconv.FormatBool(success)).Observe(float64(d.Milliseconds()))
}
