package metrics

import "github.com/prometheus/client_golang/prometheus"

// Classification Prometheus metrics.
var (
	ClassifierRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keywordsense",
			Name:      "classifier_requests_total",
			Help:      "Total number of classifier requests",
		},
		[]string{"provider", "model", "status"},
	)

	ClassifierRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "keywordsense",
			Name:      "classifier_request_duration_seconds",
			Help:      "Classifier request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"provider", "model"},
	)

	ClassifierTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keywordsense",
			Name:      "classifier_tokens_total",
			Help:      "Total classifier tokens consumed",
		},
		[]string{"provider", "model", "type"}, // "prompt" / "output"
	)

	ClassifierErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keywordsense",
			Name:      "classifier_errors_total",
			Help:      "Total classifier errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	ClassifierRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keywordsense",
			Name:      "classifier_rate_limit_retries_total",
			Help:      "Batch retries caused by remote rate limiting",
		},
		[]string{"provider"},
	)

	BatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keywordsense",
			Name:      "batches_total",
			Help:      "Processed keyword batches by outcome",
		},
		[]string{"status"}, // "ok" / "error"
	)

	KeywordsClassifiedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "keywordsense",
			Name:      "keywords_classified_total",
			Help:      "Keywords with a classification record",
		},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keywordsense",
			Name:      "runs_total",
			Help:      "Finished analysis runs by status",
		},
		[]string{"status"},
	)

	ClassifierBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "keywordsense",
			Name:      "classifier_budget_tokens_remaining",
			Help:      "Remaining token budget",
		},
		[]string{"provider", "period"},
	)

	KeywordCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keywordsense",
			Name:      "keyword_cache_total",
			Help:      "Keyword classification cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var classMetricsRegistered bool

// RegisterClassificationMetrics registers classification metrics. Must be called once from main.
func RegisterClassificationMetrics() {
	if classMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		ClassifierRequestsTotal,
		ClassifierRequestDuration,
		ClassifierTokensTotal,
		ClassifierErrorsTotal,
		ClassifierRetriesTotal,
		BatchesTotal,
		KeywordsClassifiedTotal,
		RunsTotal,
		ClassifierBudgetTokensRemaining,
		KeywordCacheTotal,
	)
	classMetricsRegistered = true
}
