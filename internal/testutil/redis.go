package testutil

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/Sternrassler/brasileirao-proxy/pkg/cache"
	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
)

// CacheConfig returns a cache configuration for addr with timings short
// enough for tests.
func CacheConfig(t testing.TB, addr string) cache.Config {
	t.Helper()

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split addr %q: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port %q: %v", portStr, err)
	}

	cfg := cache.DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	cfg.DialTimeout = 200 * time.Millisecond
	cfg.OperationTimeout = 200 * time.Millisecond
	cfg.MaxReconnectAttempts = 3
	cfg.ReconnectStep = 5 * time.Millisecond
	cfg.ReconnectCap = 20 * time.Millisecond
	cfg.HealthCheckInterval = 20 * time.Millisecond
	return cfg
}

// NewCacheClient starts an in-process Redis and a cache client connected to
// it. Both are closed at test cleanup.
func NewCacheClient(t testing.TB) (*cache.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := cache.New(CacheConfig(t, mr.Addr()), zerolog.Nop())
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	WaitForMode(t, client, cache.ModeNetworked, time.Second)
	return client, mr
}

// NewFallbackCacheClient returns a cache client that has already failed over
// to the in-memory store.
func NewFallbackCacheClient(t testing.TB) *cache.Client {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	cfg := CacheConfig(t, addr)
	cfg.MaxReconnectAttempts = 1

	client, err := cache.New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	WaitForMode(t, client, cache.ModeFallback, time.Second)
	return client
}

// WaitForMode polls until client reports mode or fails the test.
func WaitForMode(t testing.TB, client *cache.Client, mode cache.Mode, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if client.Mode() == mode {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("cache mode = %s after %v, want %s", client.Mode(), timeout, mode)
}
