package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	SchoolsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schools_scored_total",
			Help: "Overall scores computed, by tier",
		},
		[]string{"tier"},
	)

	ScoreCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "school_score_cache_lookups_total",
			Help: "Score cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	CleanupSchoolsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "borough_cleanup_schools_deleted_total",
			Help: "Non-NYC school records deleted by the borough cleanup",
		},
	)

	CleanupBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "borough_cleanup_batches_total",
			Help: "Borough cleanup delete batches by status",
		},
		[]string{"status"},
	)
)

// ObserveJob records the outcome of one worker job. errorCode is empty on
// success.
func ObserveJob(taskType, errorCode string, elapsed time.Duration) {
	WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
	if errorCode == "" {
		WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		return
	}
	WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
}
