// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uw_stage_runs_total",
			Help: "Total number of pipeline stage executions by outcome",
		},
		[]string{"stage", "status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uw_stage_duration_seconds",
			Help:    "Duration of a pipeline stage including its simulated delay",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 1.5, 2, 2.5, 3, 5},
		},
		[]string{"stage"},
	)

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uw_pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	PipelinesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "uw_pipelines_active",
			Help: "Number of pipeline runs currently in flight",
		},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of Zeebe jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of Zeebe jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)
)

// Pipeline outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)
