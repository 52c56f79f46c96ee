package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{
			name:   "default config",
			mutate: func(*Config) {},
		},
		{
			name:     "empty host",
			mutate:   func(c *Config) { c.Host = "" },
			errorMsg: "redis host is required",
		},
		{
			name:     "port out of range",
			mutate:   func(c *Config) { c.Port = 70000 },
			errorMsg: "redis port must be in 1..65535 (got 70000)",
		},
		{
			name:     "zero reconnect attempts",
			mutate:   func(c *Config) { c.MaxReconnectAttempts = 0 },
			errorMsg: "max_reconnect_attempts must be >= 1 (got 0)",
		},
		{
			name:     "cap below step",
			mutate:   func(c *Config) { c.ReconnectCap = 500 * time.Millisecond },
			errorMsg: "reconnect backoff must satisfy 0 < step <= cap (got 1s, 500ms)",
		},
		{
			name:     "zero operation timeout",
			mutate:   func(c *Config) { c.OperationTimeout = 0 },
			errorMsg: "dial and operation timeouts must be positive",
		},
		{
			name:     "zero health check interval",
			mutate:   func(c *Config) { c.HealthCheckInterval = 0 },
			errorMsg: "health_check_interval must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.validate()
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.errorMsg {
				t.Errorf("validate() error = %v, want %q", err, tt.errorMsg)
			}
		})
	}
}

func TestConfig_ReconnectBackoff(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{4, 4 * time.Second},
		{5, 5 * time.Second},
		{6, 5 * time.Second},
		{100, 5 * time.Second},
	}

	for _, tt := range tests {
		if got := cfg.ReconnectBackoff(tt.attempt); got != tt.want {
			t.Errorf("ReconnectBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestConfig_Addr(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Addr(); got != "localhost:6379" {
		t.Errorf("Addr() = %q, want localhost:6379", got)
	}
}

func TestClient_ReadyAgainstRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newTestClient(t, testConfig(t, mr.Addr()))
	ctx := context.Background()

	if got := client.State(); got != StateReady {
		t.Fatalf("State() = %s, want ready", got)
	}
	if got := client.Mode(); got != ModeNetworked {
		t.Errorf("Mode() = %s, want networked", got)
	}

	if !client.Set(ctx, "health", []byte(`{"status":"UP"}`), 5*time.Minute, false) {
		t.Fatal("Set() = false, want true")
	}

	stored, err := mr.Get("health")
	if err != nil || stored != `{"status":"UP"}` {
		t.Errorf("redis value = %q, %v", stored, err)
	}
	if ttl := mr.TTL("health"); ttl != 5*time.Minute {
		t.Errorf("redis TTL = %v, want 5m", ttl)
	}

	value, found := client.Get(ctx, "health")
	if !found || string(value) != `{"status":"UP"}` {
		t.Errorf("Get() = %q, %v", value, found)
	}
}

func TestClient_NoOverwriteRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newTestClient(t, testConfig(t, mr.Addr()))
	ctx := context.Background()

	if !client.Set(ctx, "brasileirao:10", []byte("first"), time.Minute, true) {
		t.Fatal("first Set() = false")
	}
	if client.Set(ctx, "brasileirao:10", []byte("second"), time.Minute, true) {
		t.Error("second Set() with noOverwrite = true")
	}

	value, _ := client.Get(ctx, "brasileirao:10")
	if string(value) != "first" {
		t.Errorf("Get() = %q, want first", value)
	}
}

func TestClient_RepeatedMissStaysEmpty(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newTestClient(t, testConfig(t, mr.Addr()))
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if value, found := client.Get(ctx, "brasileirao-rodadas:10"); found {
			t.Fatalf("Get() #%d = %q, want miss", i, value)
		}
	}

	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("redis keys = %v, want none", keys)
	}
	if got := client.State(); got != StateReady {
		t.Errorf("State() = %s, want ready", got)
	}
}

func TestClient_FailoverServesFromMemory(t *testing.T) {
	client := newTestClient(t, testConfig(t, unusedAddr(t)))
	ctx := context.Background()

	waitForState(t, client, StateFailedOver, 2*time.Second)

	if got := client.Mode(); got != ModeFallback {
		t.Fatalf("Mode() = %s, want fallback", got)
	}

	if !client.Set(ctx, "k", []byte("v"), 60*time.Second, false) {
		t.Fatal("Set() in fallback mode = false")
	}
	value, found := client.Get(ctx, "k")
	if !found || string(value) != "v" {
		t.Errorf("Get() = %q, %v; want v, true", value, found)
	}

	if got := client.Status().FallbackEntries; got != 1 {
		t.Errorf("FallbackEntries = %d, want 1", got)
	}
}

func TestClient_FallbackHonorsNoOverwrite(t *testing.T) {
	cfg := testConfig(t, unusedAddr(t))
	cfg.MaxReconnectAttempts = 1
	client := newTestClient(t, cfg)
	ctx := context.Background()

	if got := client.State(); got != StateFailedOver {
		t.Fatalf("State() = %s, want failed_over", got)
	}

	client.Set(ctx, "k", []byte("first"), time.Minute, true)
	if client.Set(ctx, "k", []byte("second"), time.Minute, true) {
		t.Error("second Set() with noOverwrite = true in fallback mode")
	}

	value, _ := client.Get(ctx, "k")
	if string(value) != "first" {
		t.Errorf("Get() = %q, want first", value)
	}
}

func TestClient_InitialAttemptCounts(t *testing.T) {
	cfg := testConfig(t, unusedAddr(t))
	cfg.MaxReconnectAttempts = 1

	client := newTestClient(t, cfg)

	// The failed connect made by New reaches the threshold on its own.
	if got := client.State(); got != StateFailedOver {
		t.Errorf("State() = %s, want failed_over", got)
	}
	if got := client.Status().FailedAttempts; got != 1 {
		t.Errorf("FailedAttempts = %d, want 1", got)
	}
}

func TestClient_NotReadyGivesUp(t *testing.T) {
	cfg := testConfig(t, unusedAddr(t))
	cfg.MaxReconnectAttempts = 100
	cfg.ReconnectStep = time.Hour
	cfg.ReconnectCap = time.Hour
	client := newTestClient(t, cfg)
	ctx := context.Background()

	if got := client.State(); got != StateReconnecting {
		t.Fatalf("State() = %s, want reconnecting", got)
	}

	for i := 0; i < 3; i++ {
		if _, found := client.Get(ctx, "k"); found {
			t.Fatal("Get() while reconnecting should miss")
		}
	}
	if client.Set(ctx, "k", []byte("v"), time.Minute, false) {
		t.Error("Set() while reconnecting should fail")
	}

	// Synchronous attempts made by operations are not counted.
	if got := client.Status().FailedAttempts; got != 1 {
		t.Errorf("FailedAttempts = %d, want 1", got)
	}
}

func TestClient_ConcurrentOpsDuringReconnectKeepBackoff(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr.Addr())
	cfg.ReconnectStep = time.Second
	cfg.ReconnectCap = 5 * time.Second
	cfg.HealthCheckInterval = time.Hour
	client := newTestClient(t, cfg)
	ctx := context.Background()

	mr.Close()
	client.Get(ctx, "k") // surfaces the lost connection

	if got := client.State(); got != StateReconnecting {
		t.Fatalf("State() = %s, want reconnecting", got)
	}

	for burst := 0; burst < 2; burst++ {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				client.Get(ctx, "brasileirao-tabela:10")
			}()
		}
		wg.Wait()
	}

	status := client.Status()
	if status.State != StateReconnecting {
		t.Errorf("State = %s before the first backoff elapsed, want reconnecting", status.StateName)
	}
	if status.FailedAttempts != 0 {
		t.Errorf("FailedAttempts = %d, want 0", status.FailedAttempts)
	}
}

func TestClient_SynchronousReconnect(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t, addr)
	cfg.ReconnectStep = time.Hour
	cfg.ReconnectCap = time.Hour
	client := newTestClient(t, cfg)
	ctx := context.Background()

	if got := client.State(); got != StateReconnecting {
		t.Fatalf("State() = %s, want reconnecting", got)
	}

	if err := mr.Restart(); err != nil {
		t.Fatalf("restart miniredis: %v", err)
	}

	if !client.Set(ctx, "k", []byte("v"), time.Minute, false) {
		t.Fatal("Set() after Redis came back = false")
	}
	if got := client.State(); got != StateReady {
		t.Errorf("State() = %s, want ready", got)
	}
	if got := client.Status().FailedAttempts; got != 0 {
		t.Errorf("FailedAttempts = %d, want 0 after reconnect", got)
	}
}

func TestClient_RecoversAfterRedisRestart(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newTestClient(t, testConfig(t, mr.Addr()))
	ctx := context.Background()

	mr.Close()
	client.Get(ctx, "k") // surfaces the lost connection

	waitForState(t, client, StateFailedOver, 2*time.Second)

	client.Set(ctx, "memory-only", []byte("v"), time.Minute, false)

	if err := mr.Restart(); err != nil {
		t.Fatalf("restart miniredis: %v", err)
	}
	waitForState(t, client, StateReady, 2*time.Second)

	if !client.Set(ctx, "k", []byte("first"), time.Minute, true) {
		t.Fatal("Set() after recovery = false")
	}
	if client.Set(ctx, "k", []byte("second"), time.Minute, true) {
		t.Error("noOverwrite not honored after recovery")
	}
	if stored, _ := mr.Get("k"); stored != "first" {
		t.Errorf("redis value = %q, want first", stored)
	}

	// Fallback entries are not migrated back to Redis.
	if _, found := client.Get(ctx, "memory-only"); found {
		t.Error("fallback entry visible after recovery")
	}
}

func TestClient_UnexpectedCloseFailsOver(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})

	cfg := testConfig(t, mr.Addr())
	cfg.HealthCheckInterval = time.Hour
	client := newClient(redisClient, cfg, zerolog.Nop())
	t.Cleanup(func() { client.Close() })

	if got := client.State(); got != StateReady {
		t.Fatalf("State() = %s, want ready", got)
	}

	redisClient.Close()
	client.Get(context.Background(), "k")

	if got := client.State(); got != StateFailedOver {
		t.Errorf("State() = %s, want failed_over", got)
	}
}

func TestClient_CloseDoesNotFailOver(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newTestClient(t, testConfig(t, mr.Addr()))
	ctx := context.Background()

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if got := client.State(); got != StateDisconnected {
		t.Errorf("State() after Close = %s, want disconnected", got)
	}

	if _, found := client.Get(ctx, "k"); found {
		t.Error("Get() after Close should miss")
	}
	if client.Set(ctx, "k", []byte("v"), time.Minute, false) {
		t.Error("Set() after Close should fail")
	}
	if got := client.State(); got != StateDisconnected {
		t.Errorf("State() after operations = %s, want disconnected", got)
	}
}

func TestClient_ExecuteStructuredOps(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newTestClient(t, testConfig(t, mr.Addr()))
	ctx := context.Background()

	res := client.Execute(ctx, SetOp("brasileirao-rodada:10:5", []byte("[]"), time.Minute, true))
	if !res.Stored {
		t.Fatalf("Execute(set) = %+v", res)
	}

	res = client.Execute(ctx, GetOp("brasileirao-rodada:10:5"))
	if !res.Found || string(res.Value) != "[]" {
		t.Errorf("Execute(get) = %+v", res)
	}

	res = client.Execute(ctx, Op{Kind: OpKind(9), Key: "x"})
	if res.Found || res.Stored || res.Value != nil {
		t.Errorf("Execute(unknown) = %+v, want zero", res)
	}
	if got := client.State(); got != StateReady {
		t.Errorf("unknown op changed state to %s", got)
	}
}

func TestIsConnectivityError(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()
	ctx := context.Background()

	mr.Set("str", "v")
	replyErr := redisClient.LPush(ctx, "str", "x").Err()
	if replyErr == nil {
		t.Fatal("expected WRONGTYPE reply error")
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"redis nil", redis.Nil, false},
		{"caller cancelled", context.Canceled, false},
		{"server reply", replyErr, false},
		{"network", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"closed client", redis.ErrClosed, true},
		{"eof", io.EOF, true},
		{"unknown op", fmt.Errorf("%w: op(9)", ErrUnknownOp), false},
		{"local error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectivityError(tt.err); got != tt.want {
				t.Errorf("isConnectivityError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
