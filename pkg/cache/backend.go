package cache

import (
	"context"
	"time"
)

// Backend is a byte store with per-entry expiry.
//
// Implementations report failures as errors; Client converts them into a miss
// or a failed write before they reach callers.
type Backend interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value for ttl. A ttl <= 0 stores without expiry.
	// With noOverwrite the write is skipped (stored=false) when the key
	// already holds an unexpired value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, noOverwrite bool) (stored bool, err error)
}

// Name labels used in metrics and logs.
const (
	backendRedis  = "redis"
	backendMemory = "memory"
)
