package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal tracks API calls per route and status code
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replikit_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"route", "code"},
	)

	// APIRequestLatency tracks API call latency
	APIRequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "replikit_api_request_latency_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// APIErrorsTotal tracks failed API calls by error class
	APIErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replikit_api_errors_total",
			Help: "Total number of API errors",
		},
		[]string{"route", "error_type"},
	)

	// PredictionsSubmitted counts prediction creation calls that succeeded
	PredictionsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replikit_predictions_submitted_total",
			Help: "Total number of predictions created",
		},
	)

	// PredictionPollsTotal counts status polls by observed status
	PredictionPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replikit_prediction_polls_total",
			Help: "Total number of prediction status polls",
		},
		[]string{"status"},
	)

	// PredictionOutcomesTotal counts finished waits by outcome
	PredictionOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replikit_prediction_outcomes_total",
			Help: "Total number of prediction waits by outcome",
		},
		[]string{"outcome"},
	)

	// PredictionWaitSeconds tracks time from submission to a finished wait
	PredictionWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "replikit_prediction_wait_seconds",
			Help:    "Time spent waiting for predictions to finish",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// SnapshotRecordErrors counts snapshots a recorder failed to store
	SnapshotRecordErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replikit_snapshot_record_errors_total",
			Help: "Total number of snapshot recording failures",
		},
		[]string{"recorder"},
	)
)

var (
	// DBConnectionPoolUsage is open connections as a percentage of the pool limit
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "replikit_db_connection_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)

	// SnapshotsStored counts snapshots written by each store
	SnapshotsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replikit_snapshots_stored_total",
			Help: "Total number of prediction snapshots stored",
		},
		[]string{"store"},
	)
)
