// Package metrics exposes the Prometheus registry used by the proxy.
// All metrics are defined in their respective packages (cache, httpcache,
// futebol) and registered via promauto.
//
// This package provides the scrape handler and documents every metric.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the proxy.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry scraped by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics scrape handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Client Metrics (pkg/cache):
//   - brasileirao_cache_operations_total{backend, op, result} (Counter): Operations by backend (redis, memory), op (get, set) and result (hit, miss, stored, skipped, error, unavailable)
//   - brasileirao_cache_errors_total{op} (Counter): Backend errors by op (get, set, connect)
//   - brasileirao_cache_state (Gauge): Client state (0 disconnected, 1 connecting, 2 ready, 3 reconnecting, 4 failed_over)
//   - brasileirao_cache_reconnect_attempts_total (Counter): Failed connection attempts
//   - brasileirao_cache_failovers_total (Counter): Switches to the in-memory store
//   - brasileirao_cache_fallback_entries (Gauge): Entries held by the in-memory store
//
// Response Cache Metrics (pkg/httpcache):
//   - brasileirao_http_cache_lookups_total{route, result} (Counter): Lookups by route and result (hit, miss, invalid, key_error)
//   - brasileirao_http_cache_writes_total{route, result} (Counter): Background writes by route and result (stored, skipped)
//
// Upstream Metrics (pkg/futebol):
//   - brasileirao_upstream_requests_total{endpoint, status} (Counter): api-futebol requests by endpoint and HTTP status
//   - brasileirao_upstream_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - brasileirao_upstream_errors_total{class} (Counter): Errors by class (client, rate_limit, server, network)
//   - brasileirao_upstream_retries_total{error_class} (Counter): Retry attempts by error class
//   - brasileirao_upstream_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - brasileirao_upstream_retry_exhausted_total{error_class} (Counter): Requests that exhausted retries
//
// Example Prometheus Queries:
//
//   # Response Cache Hit Rate
//   sum(rate(brasileirao_http_cache_lookups_total{result="hit"}[5m])) /
//   sum(rate(brasileirao_http_cache_lookups_total[5m]))
//
//   # Running on the fallback store
//   brasileirao_cache_state == 4
//
//   # Upstream Error Rate
//   rate(brasileirao_upstream_errors_total[5m])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(brasileirao_upstream_request_duration_seconds_bucket[5m]))
