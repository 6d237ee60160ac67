package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the xgoals collector and optimizer

var (
	// API Call metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xgoals_api_calls_total",
			Help: "Total number of API-Football calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xgoals_api_call_duration_seconds",
			Help:    "Duration of API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xgoals_api_retries_total",
			Help: "Total number of retried API attempts",
		},
		[]string{"endpoint"},
	)

	APIQuotaUsed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "xgoals_api_quota_used",
			Help: "Successful API calls counted against today's quota",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xgoals_cache_hits_total",
			Help: "Total number of memo cache hits",
		},
		[]string{"kind"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xgoals_cache_misses_total",
			Help: "Total number of memo cache misses",
		},
		[]string{"kind"},
	)

	// Weather metrics
	WeatherLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xgoals_weather_lookups_total",
			Help: "Total number of weather lookups by outcome",
		},
		[]string{"outcome"},
	)

	// Collection metrics
	MatchesCollectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xgoals_matches_collected_total",
			Help: "Total number of match bundles assembled and saved",
		},
	)

	MatchesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xgoals_matches_skipped_total",
			Help: "Total number of matches skipped during collection",
		},
		[]string{"reason"},
	)

	CollectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xgoals_collection_duration_seconds",
			Help:    "Duration of a daily collection run in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	// Evaluation metrics
	EvaluationError = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "xgoals_evaluation_avg_error",
			Help: "Average absolute error of the last evaluation per formula",
		},
		[]string{"formula"},
	)

	EvaluationAccuracy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "xgoals_evaluation_accuracy_percent",
			Help: "Share of predictions within 0.5 goals per formula",
		},
		[]string{"formula"},
	)

	BestError = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "xgoals_best_avg_error",
			Help: "Lowest average error found by the optimizer",
		},
	)

	OptimizerIterations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xgoals_optimizer_iterations_total",
			Help: "Total number of optimizer iterations",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xgoals_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "xgoals_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulCollection = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "xgoals_last_successful_collection_timestamp",
			Help: "Timestamp of last successful collection run",
		},
	)
)

// RecordAPICall records an API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordAPIRetry records a retried attempt
func RecordAPIRetry(endpoint string) {
	APIRetriesTotal.WithLabelValues(endpoint).Inc()
}

// UpdateQuotaUsed sets the quota gauge
func UpdateQuotaUsed(used int) {
	APIQuotaUsed.Set(float64(used))
}

// RecordCacheHit records a cache hit
func RecordCacheHit(kind string) {
	CacheHitsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(kind string) {
	CacheMissesTotal.WithLabelValues(kind).Inc()
}

// RecordWeatherLookup records a weather lookup outcome
func RecordWeatherLookup(outcome string) {
	WeatherLookupsTotal.WithLabelValues(outcome).Inc()
}

// RecordMatchCollected records a saved match bundle
func RecordMatchCollected() {
	MatchesCollectedTotal.Inc()
}

// RecordMatchSkipped records a skipped match
func RecordMatchSkipped(reason string) {
	MatchesSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordCollection records a finished collection run
func RecordCollection(duration float64, success bool) {
	CollectionDuration.Observe(duration)
	if success {
		LastSuccessfulCollection.SetToCurrentTime()
	}
}

// RecordEvaluation records the outcome of a formula evaluation.
// Non-finite errors are not exported.
func RecordEvaluation(formula string, avgError, accuracy float64, finite bool) {
	if finite {
		EvaluationError.WithLabelValues(formula).Set(avgError)
	}
	EvaluationAccuracy.WithLabelValues(formula).Set(accuracy)
}

// RecordOptimizerIteration records one optimizer iteration
func RecordOptimizerIteration() {
	OptimizerIterations.Inc()
}

// UpdateBestError sets the best error gauge
func UpdateBestError(avgError float64) {
	BestError.Set(avgError)
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
