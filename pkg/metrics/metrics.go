// Package metrics provides Prometheus metrics for the attribution service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Ramsey-B/clover/pkg/models"
)

var (
	// RunsTotal tracks attribution runs by outcome
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of attribution runs by status",
		},
		[]string{"status"},
	)

	// RunDuration tracks how long a full commission table takes to compute
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Duration of attribution runs in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// CompaniesAttributed tracks companies that received a split
	CompaniesAttributed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "pipeline",
			Name:      "companies_attributed_total",
			Help:      "Total number of companies that received a commission split",
		},
	)

	// UnmatchedRecords tracks records no company claimed, by record kind
	UnmatchedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "pipeline",
			Name:      "unmatched_records_total",
			Help:      "Total number of records not matched to any company",
		},
		[]string{"kind"},
	)

	// CacheLookups tracks report cache hits and misses
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of report cache lookups by result",
		},
		[]string{"result"},
	)

	// CatalogReloads tracks catalog hot reloads by outcome
	CatalogReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "catalog",
			Name:      "reloads_total",
			Help:      "Total number of catalog reloads by status",
		},
		[]string{"status"},
	)

	// BatchesConsumed tracks record batches read from Kafka
	BatchesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "kafka",
			Name:      "batches_consumed_total",
			Help:      "Total number of record batches consumed by kind",
		},
		[]string{"kind"},
	)
)

// ObserveRun records the outcome of an attribution run
func ObserveRun(report *models.Report, started time.Time, err error) {
	RunDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		RunsTotal.WithLabelValues("failed").Inc()
		return
	}

	RunsTotal.WithLabelValues("succeeded").Inc()
	CompaniesAttributed.Add(float64(len(report.Table)))
	UnmatchedRecords.WithLabelValues("conversation").Add(float64(report.Unmatched.Conversations))
	UnmatchedRecords.WithLabelValues("meeting").Add(float64(report.Unmatched.Meetings))
	UnmatchedRecords.WithLabelValues("deal").Add(float64(report.Unmatched.Deals))
	UnmatchedRecords.WithLabelValues("malformed").Add(float64(report.Unmatched.MalformedRecords))
}

// ObserveCache records a report cache lookup
func ObserveCache(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}
