// Package cache provides the key-value layer behind the response cache.
//
// Two interchangeable backends satisfy the same get/set-with-expiry contract:
//
//   - RedisBackend, the networked cache (go-redis)
//   - MemoryStore, an in-process time-bounded map used as fallback
//
// Client owns the Redis connection and decides which backend serves each
// operation. Callers describe the operation with an Op and never see an error:
// failures are logged and reported as a miss or a failed write.
//
// # Basic Usage
//
//	client, err := cache.New(cache.DefaultConfig(), logger)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	key := cache.Key{Resource: "brasileirao-rodada", ID: 10, Params: []string{"5"}}
//
//	if value, ok := client.Get(ctx, key.String()); ok {
//		// cache hit
//	}
//
//	// Store for 5 minutes unless another request already did
//	client.Set(ctx, key.String(), body, 5*time.Minute, true)
//
// # Connection States
//
//	disconnected -> connecting -> ready
//	ready -> reconnecting -> ready | failed-over
//	failed-over -> ready (background probe succeeded)
//
// Reconnect attempt n waits min(n*ReconnectStep, ReconnectCap). After
// MaxReconnectAttempts consecutive failures every operation is served by the
// MemoryStore until Redis answers a probe again.
//
// # Metrics
//
//   - brasileirao_cache_operations_total{backend,op,result}
//   - brasileirao_cache_errors_total{op}
//   - brasileirao_cache_state
//   - brasileirao_cache_reconnect_attempts_total
//   - brasileirao_cache_failovers_total
//   - brasileirao_cache_fallback_entries
package cache
