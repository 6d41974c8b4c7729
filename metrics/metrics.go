// Package metrics exposes Prometheus instrumentation for the send
// engine and the benchmark harness.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionsTotal counts operations handed to the kernel.
	SubmissionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sendbench_submissions_total",
			Help: "Total number of send operations submitted",
		},
	)

	// CompletionsTotal counts drained completion records by outcome.
	CompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sendbench_completions_total",
			Help: "Total number of completion records drained",
		},
		[]string{"status"},
	)

	// BackpressureTotal counts batch-build stops by exhausted resource.
	BackpressureTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sendbench_backpressure_total",
			Help: "Times batch building stopped because a bounded resource was exhausted",
		},
		[]string{"cause"},
	)

	// BatchesTotal counts flush calls.
	BatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sendbench_batches_total",
			Help: "Total number of flushed batches",
		},
	)

	// BatchSize tracks how many operations each flush carried.
	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sendbench_batch_size",
			Help:    "Operations per flushed batch",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
		},
	)

	// RunsTotal counts benchmark runs by outcome.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sendbench_runs_total",
			Help: "Total number of benchmark runs",
		},
		[]string{"status"},
	)
)
