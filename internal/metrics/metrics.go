package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal counts upstream requests by endpoint and HTTP status.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gecko_api_requests_total",
			Help: "Total number of upstream API requests",
		},
		[]string{"endpoint", "status"},
	)

	// APIRateLimitWaits counts 429 responses that led to a wait and retry.
	APIRateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gecko_api_rate_limit_waits_total",
			Help: "Total number of rate-limit waits before retrying",
		},
	)

	// APIRateLimitExhausted counts requests abandoned after the retry cap.
	APIRateLimitExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gecko_api_rate_limit_exhausted_total",
			Help: "Total number of requests that exhausted rate-limit retries",
		},
	)

	// TokensInserted counts new tokens added to the catalog table.
	TokensInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_tokens_inserted_total",
			Help: "Total number of tokens inserted",
		},
	)

	// VolumesWritten counts volume rows upserted, by job.
	VolumesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_volumes_written_total",
			Help: "Total number of token volume rows written",
		},
		[]string{"job"},
	)

	// VolumeFailures counts per-token failures, by job and stage (fetch, store).
	VolumeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_volume_failures_total",
			Help: "Total number of per-token volume failures",
		},
		[]string{"job", "stage"},
	)

	// VolumeSpikes counts tokens whose volume exceeded the spike threshold.
	VolumeSpikes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_volume_spikes_total",
			Help: "Total number of day-over-day volume spikes detected",
		},
	)

	// VolumesPurged counts rows removed by the retention job.
	VolumesPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_volumes_purged_total",
			Help: "Total number of stale volume rows deleted",
		},
	)

	// JobRuns counts scheduled job executions by outcome.
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Total number of scheduled job runs",
		},
		[]string{"job", "status"},
	)

	// JobDuration tracks scheduled job run time.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Scheduled job duration in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		},
		[]string{"job"},
	)
)
