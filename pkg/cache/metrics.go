package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheOperations tracks executed operations by backend, op and result
	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brasileirao_cache_operations_total",
			Help: "Total number of cache operations by backend, operation and result",
		},
		[]string{"backend", "op", "result"}, // result: "hit", "miss", "stored", "skipped", "error", "unavailable"
	)

	// CacheErrors tracks absorbed operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brasileirao_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"op"}, // "get", "set", "connect"
	)

	// CacheState exposes the client state as its numeric value
	CacheState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "brasileirao_cache_state",
			Help: "Cache client state (0=disconnected, 1=connecting, 2=ready, 3=reconnecting, 4=failed_over)",
		},
	)

	// ReconnectAttempts tracks failed connection attempts
	ReconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "brasileirao_cache_reconnect_attempts_total",
			Help: "Total number of failed Redis connection attempts",
		},
	)

	// Failovers tracks switches to the in-memory fallback store
	Failovers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "brasileirao_cache_failovers_total",
			Help: "Total number of failovers to the in-memory cache",
		},
	)

	fallbackEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "brasileirao_cache_fallback_entries",
			Help: "Current number of entries in the in-memory fallback store",
		},
	)
)
