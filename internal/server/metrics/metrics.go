// Package metrics registers the Prometheus collectors exported on /metrics.
// Store counters are incremented from the service layer, HTTP counters from
// the httpapi middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DedupHits counts uploads whose digest matched a catalogued file.
	// Label source: "attach" or "inbox".
	DedupHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weldkeeper_dedup_hits_total",
			Help: "Uploads short-circuited by a content digest match",
		},
		[]string{"source"},
	)

	FilesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weldkeeper_files_created_total",
			Help: "Catalog rows created after a successful object upload",
		},
		[]string{"type"},
	)

	// Rollbacks counts compensating rollbacks by the step that failed.
	Rollbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weldkeeper_rollbacks_total",
			Help: "Compensating rollbacks run after a partial create",
		},
		[]string{"step"},
	)

	OrphansReclaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weldkeeper_orphans_reclaimed_total",
			Help: "Catalog rows deleted after their last reference went away",
		},
	)

	// OrphanCleanupFailures. Label stage: "catalog" or "object".
	OrphanCleanupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weldkeeper_orphan_cleanup_failures_total",
			Help: "Orphan reclamation attempts that failed and were only logged",
		},
		[]string{"stage"},
	)
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weldkeeper_http_requests_total",
			Help: "HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weldkeeper_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
