// Package metrics provides Prometheus metrics for iagallery.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "iagallery"

var (
	// SearchPagesTotal counts scrape page fetches by outcome (ok, error, stale).
	SearchPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_pages_total",
			Help:      "Total number of scrape page fetches",
		},
		[]string{"outcome"},
	)

	// SearchItemsMerged counts records appended to a session after deduplication.
	SearchItemsMerged = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_items_merged_total",
			Help:      "Total number of unique search records merged into sessions",
		},
	)

	// ResolveTotal counts identifier resolutions by outcome.
	ResolveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_total",
			Help:      "Total number of identifier resolutions",
		},
		[]string{"outcome"},
	)

	// ResolveDuration measures identifier resolution latency.
	ResolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Duration of identifier resolutions in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// MetadataCacheTotal counts metadata cache lookups (hit, miss).
	MetadataCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_cache_total",
			Help:      "Metadata cache lookups",
		},
		[]string{"result"},
	)
)
