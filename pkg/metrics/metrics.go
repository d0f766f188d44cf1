// Package metrics provides the centralized Prometheus metrics reference for
// the extraction engine. All metrics are defined in their respective packages
// (client, cache, breaker, extract) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the engine.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - chembl_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - chembl_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - chembl_request_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - chembl_retries_total{error_class} (Counter): Retry attempts by error class
//   - chembl_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - chembl_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Breaker Metrics (pkg/breaker):
//   - chembl_breaker_state (Gauge): Current breaker state (0=closed, 1=half-open, 2=open)
//   - chembl_breaker_opened_total (Counter): Transitions into the open state
//   - chembl_breaker_denied_total (Counter): Requests denied while open
//
// Cache Metrics (pkg/cache):
//   - chembl_cache_hits_total{layer="disk"} (Counter): Cache hits by layer
//   - chembl_cache_misses_total (Counter): Cache misses
//   - chembl_cache_errors_total{operation} (Counter): Cache operation errors
//   - chembl_cache_corrupt_discarded_total (Counter): Corrupt cache files deleted and treated as misses
//   - chembl_cache_sanitized_fields_total (Counter): Numeric fields reset to null on cache read
//
// Extraction Metrics (pkg/extract):
//   - chembl_extract_records_total{entity, outcome} (Counter): Records by outcome (success, fallback)
//   - chembl_extract_chunks_total{entity, outcome} (Counter): Chunks by outcome (cached, fetched, exception, breaker_open)
//   - chembl_extract_duration_seconds{entity} (Histogram): Extraction run duration by entity
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(chembl_cache_hits_total[5m])) /
//   (sum(rate(chembl_cache_hits_total[5m])) + sum(rate(chembl_cache_misses_total[5m])))
//
//   # Fallback Rate per Entity
//   sum by (entity) (rate(chembl_extract_records_total{outcome="fallback"}[5m])) /
//   sum by (entity) (rate(chembl_extract_records_total[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(chembl_request_duration_seconds_bucket[5m]))
//
//   # Breaker Open
//   chembl_breaker_state == 2
