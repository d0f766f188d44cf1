package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (disk)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chembl_cache_hits_total",
			Help: "Total number of extraction cache hits",
		},
		[]string{"layer"}, // "disk"
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chembl_cache_misses_total",
			Help: "Total number of extraction cache misses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chembl_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "read", "write", "delete"
	)

	// CorruptDiscarded tracks corrupt cache files deleted and treated as misses
	CorruptDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chembl_cache_corrupt_discarded_total",
			Help: "Total number of corrupt cache files discarded as misses",
		},
	)

	// SanitizedFields tracks numeric fields reset to null on cache read
	SanitizedFields = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chembl_cache_sanitized_fields_total",
			Help: "Total number of cached numeric fields reset to null during re-sanitization",
		},
	)
)
