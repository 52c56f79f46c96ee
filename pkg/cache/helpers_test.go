package cache

import (
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// fakeClock is a manually advanced clock for MemoryStore expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 5, 1, 16, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// backendHarness runs the same contract test against each backend.
type backendHarness struct {
	name    string
	backend Backend
	advance func(time.Duration)
}

func newBackendHarnesses(t *testing.T) []backendHarness {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	redisBackend, err := NewRedisBackend(redisClient)
	if err != nil {
		t.Fatalf("NewRedisBackend: %v", err)
	}

	clock := newFakeClock()
	memory := NewMemoryStore()
	memory.now = clock.Now

	return []backendHarness{
		{name: "redis", backend: redisBackend, advance: mr.FastForward},
		{name: "memory", backend: memory, advance: clock.Advance},
	}
}

// testConfig returns a config with millisecond timings pointing at addr.
func testConfig(t *testing.T, addr string) Config {
	t.Helper()

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split addr %q: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port %q: %v", portStr, err)
	}

	return Config{
		Host:                 host,
		Port:                 port,
		DialTimeout:          200 * time.Millisecond,
		OperationTimeout:     200 * time.Millisecond,
		MaxReconnectAttempts: 5,
		ReconnectStep:        time.Millisecond,
		ReconnectCap:         5 * time.Millisecond,
		HealthCheckInterval:  10 * time.Millisecond,
	}
}

// unusedAddr returns a local address nothing listens on.
func unusedAddr(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()

	client, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func waitForState(t *testing.T, c *Client, want State, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %s after %v, want %s", c.State(), timeout, want)
}
