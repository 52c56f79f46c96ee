package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Config holds the Redis connection and reconnection settings.
type Config struct {
	// Redis location
	Host string
	Port int

	// Optional credentials; both empty means an unauthenticated connection
	Username string
	Password string

	// DialTimeout bounds a background connection attempt
	DialTimeout time.Duration

	// OperationTimeout bounds every get/set and synchronous reconnect
	OperationTimeout time.Duration

	// Reconnection: attempt n waits min(n*ReconnectStep, ReconnectCap)
	MaxReconnectAttempts int
	ReconnectStep        time.Duration
	ReconnectCap         time.Duration

	// HealthCheckInterval is the PING period while ready, and the recovery
	// probe period while failed over
	HealthCheckInterval time.Duration
}

// DefaultConfig returns the default configuration for a local Redis.
func DefaultConfig() Config {
	return Config{
		Host:                 "localhost",
		Port:                 6379,
		DialTimeout:          2 * time.Second,
		OperationTimeout:     500 * time.Millisecond,
		MaxReconnectAttempts: 5,
		ReconnectStep:        1 * time.Second,
		ReconnectCap:         5 * time.Second,
		HealthCheckInterval:  5 * time.Second,
	}
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ReconnectBackoff returns the wait before reconnect attempt n (1-based).
func (c Config) ReconnectBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := time.Duration(attempt) * c.ReconnectStep
	if backoff > c.ReconnectCap || backoff < 0 {
		return c.ReconnectCap
	}
	return backoff
}

func (c Config) validate() error {
	if c.Host == "" {
		return fmt.Errorf("redis host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("redis port must be in 1..65535 (got %d)", c.Port)
	}
	if c.MaxReconnectAttempts < 1 {
		return fmt.Errorf("max_reconnect_attempts must be >= 1 (got %d)", c.MaxReconnectAttempts)
	}
	if c.ReconnectStep <= 0 || c.ReconnectCap < c.ReconnectStep {
		return fmt.Errorf("reconnect backoff must satisfy 0 < step <= cap (got %v, %v)", c.ReconnectStep, c.ReconnectCap)
	}
	if c.DialTimeout <= 0 || c.OperationTimeout <= 0 {
		return fmt.Errorf("dial and operation timeouts must be positive")
	}
	if c.HealthCheckInterval <= 0 {
		return fmt.Errorf("health_check_interval must be positive")
	}
	return nil
}

// Status is a snapshot of the client state.
type Status struct {
	State           State  `json:"-"`
	StateName       string `json:"state"`
	Mode            Mode   `json:"mode"`
	FailedAttempts  int    `json:"failed_attempts"`
	FallbackEntries int    `json:"fallback_entries"`
}

// Client routes cache operations to Redis or, after Redis stayed unreachable
// for MaxReconnectAttempts connection attempts, to an in-memory store.
// Errors never leave the client: they become a miss or a failed write.
type Client struct {
	redis    *redis.Client
	primary  *RedisBackend
	fallback *MemoryStore
	config   Config
	logger   zerolog.Logger

	mu       sync.Mutex
	state    State
	attempts int
	probing  bool
	closing  bool

	lost      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a client and issues the first connection attempt. A failed
// attempt does not fail construction; the reconnect loop takes over.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Username:     cfg.Username,
		Password:     cfg.Password,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.OperationTimeout,
		WriteTimeout: cfg.OperationTimeout,
		MaxRetries:   -1, // reconnection is handled here
	})

	return newClient(redisClient, cfg, logger), nil
}

func newClient(redisClient *redis.Client, cfg Config, logger zerolog.Logger) *Client {
	primary, _ := NewRedisBackend(redisClient)

	c := &Client{
		redis:    redisClient,
		primary:  primary,
		fallback: NewMemoryStore(),
		config:   cfg,
		logger:   logger,
		state:    StateDisconnected,
		lost:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	CacheState.Set(float64(StateDisconnected))

	c.logger.Info().
		Str("addr", cfg.Addr()).
		Bool("authenticated", cfg.Username != "" || cfg.Password != "").
		Msg("Connecting to Redis")

	c.connect(context.Background(), cfg.DialTimeout)

	c.wg.Add(1)
	go c.supervise()

	return c
}

// Execute runs op against the active backend.
func (c *Client) Execute(ctx context.Context, op Op) Result {
	c.mu.Lock()
	state, closing := c.state, c.closing
	c.mu.Unlock()

	if closing {
		CacheOperations.WithLabelValues(backendRedis, op.Kind.String(), "unavailable").Inc()
		return Result{}
	}

	if state == StateFailedOver {
		return c.executeFallback(ctx, op)
	}

	if state != StateReady && !c.tryReconnect(ctx) {
		CacheOperations.WithLabelValues(backendRedis, op.Kind.String(), "unavailable").Inc()
		c.logger.Debug().
			Str("op", op.Kind.String()).
			Str("key", op.Key).
			Str("state", state.String()).
			Msg("Redis not ready, skipping cache operation")
		return Result{}
	}

	opCtx, cancel := context.WithTimeout(ctx, c.config.OperationTimeout)
	defer cancel()

	res, err := op.Apply(opCtx, c.primary)
	if err != nil {
		CacheErrors.WithLabelValues(op.Kind.String()).Inc()
		CacheOperations.WithLabelValues(backendRedis, op.Kind.String(), "error").Inc()
		c.logger.Warn().
			Err(err).
			Str("op", op.Kind.String()).
			Str("key", op.Key).
			Msg("Redis operation failed")

		if isConnectivityError(err) && ctx.Err() == nil {
			c.connectionLost(err)
		}
		return Result{}
	}

	c.record(backendRedis, op, res)
	return res
}

// Get returns the value stored under key.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool) {
	res := c.Execute(ctx, GetOp(key))
	return res.Value, res.Found
}

// Set stores value under key for ttl and reports whether it was written.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration, noOverwrite bool) bool {
	return c.Execute(ctx, SetOp(key, value, ttl, noOverwrite)).Stored
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mode returns the backend currently serving operations.
func (c *Client) Mode() Mode {
	return c.State().Mode()
}

// Status returns a snapshot for readiness endpoints.
func (c *Client) Status() Status {
	c.mu.Lock()
	state, attempts := c.state, c.attempts
	c.mu.Unlock()

	return Status{
		State:           state,
		StateName:       state.String(),
		Mode:            state.Mode(),
		FailedAttempts:  attempts,
		FallbackEntries: c.fallback.Len(),
	}
}

// Close stops reconnection and releases the Redis connection. The resulting
// close is never treated as a failure. Safe to call multiple times.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closing = true
		c.mu.Unlock()

		close(c.done)
		c.wg.Wait()

		if closeErr := c.redis.Close(); closeErr != nil && !errors.Is(closeErr, redis.ErrClosed) {
			err = fmt.Errorf("close redis: %w", closeErr)
		}

		c.mu.Lock()
		c.setStateLocked(StateDisconnected)
		c.mu.Unlock()

		c.logger.Info().Msg("Redis connection closed")
	})
	return err
}

func (c *Client) executeFallback(ctx context.Context, op Op) Result {
	res, err := op.Apply(ctx, c.fallback)
	if err != nil {
		CacheErrors.WithLabelValues(op.Kind.String()).Inc()
		CacheOperations.WithLabelValues(backendMemory, op.Kind.String(), "error").Inc()
		c.logger.Warn().Err(err).Str("key", op.Key).Msg("Memory cache operation failed")
		return Result{}
	}

	switch {
	case op.Kind == OpGet && res.Found:
		c.logger.Debug().Str("key", op.Key).Msg("Memory cache hit")
	case op.Kind == OpSet && res.Stored:
		c.logger.Debug().Str("key", op.Key).Dur("ttl", op.TTL).Msg("Memory cache set")
	}

	c.record(backendMemory, op, res)
	return res
}

func (c *Client) record(backend string, op Op, res Result) {
	var result string
	switch op.Kind {
	case OpGet:
		result = "miss"
		if res.Found {
			result = "hit"
		}
	case OpSet:
		result = "skipped"
		if res.Stored {
			result = "stored"
		}
	}
	CacheOperations.WithLabelValues(backend, op.Kind.String(), result).Inc()
}

// connect makes one connection attempt bounded by timeout.
func (c *Client) connect(ctx context.Context, timeout time.Duration) bool {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return false
	}
	if c.state == StateDisconnected {
		c.setStateLocked(StateConnecting)
	}
	c.mu.Unlock()

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	err := c.primary.Ping(pingCtx)
	cancel()

	if err == nil {
		c.markReady()
		return true
	}
	c.connectFailed(err)
	return false
}

// tryReconnect makes one synchronous attempt on behalf of an operation while
// the reconnect loop is waiting out its backoff. Only one such attempt runs at
// a time, and a failure is not counted: attempts are paced by the loop.
func (c *Client) tryReconnect(ctx context.Context) bool {
	c.mu.Lock()
	if c.closing || c.probing {
		c.mu.Unlock()
		return false
	}
	c.probing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.probing = false
		c.mu.Unlock()
	}()

	pingCtx, cancel := context.WithTimeout(ctx, c.config.OperationTimeout)
	err := c.primary.Ping(pingCtx)
	cancel()

	if err != nil {
		c.logger.Debug().Err(err).Msg("Synchronous Redis reconnect failed")
		return false
	}
	c.markReady()
	return true
}

// connectFailed counts a failed attempt. Every failure counts, including the
// first attempt made by New.
func (c *Client) connectFailed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing || c.state == StateFailedOver {
		return
	}

	c.attempts++
	ReconnectAttempts.Inc()
	CacheErrors.WithLabelValues("connect").Inc()

	c.logger.Warn().
		Err(err).
		Int("attempt", c.attempts).
		Int("max_attempts", c.config.MaxReconnectAttempts).
		Msg("Redis connection attempt failed")

	if c.attempts >= c.config.MaxReconnectAttempts {
		c.failOverLocked("max reconnect attempts exceeded")
		return
	}

	if c.state != StateReconnecting {
		c.setStateLocked(StateReconnecting)
		c.signalLost()
	}
}

func (c *Client) markReady() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		return
	}

	prev := c.state
	c.attempts = 0
	c.setStateLocked(StateReady)

	if prev != StateReady {
		c.logger.Info().Str("previous_state", prev.String()).Msg("Redis ready")
	}
}

// connectionLost reacts to a connectivity error seen on a live connection.
func (c *Client) connectionLost(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing || c.state == StateFailedOver {
		return
	}

	switch {
	case errors.Is(err, redis.ErrClosed):
		c.failOverLocked("connection closed unexpectedly")
	case c.attempts >= c.config.MaxReconnectAttempts:
		c.failOverLocked("connection error after reconnect attempts exhausted")
	case c.state == StateReady:
		c.logger.Warn().Err(err).Msg("Redis connection lost")
		c.setStateLocked(StateReconnecting)
		c.signalLost()
	}
}

func (c *Client) failOverLocked(reason string) {
	if c.state == StateFailedOver {
		return
	}
	c.setStateLocked(StateFailedOver)
	Failovers.Inc()

	c.logger.Warn().
		Str("reason", reason).
		Int("attempts", c.attempts).
		Msg("Redis unavailable, using in-memory cache")
}

func (c *Client) setStateLocked(s State) {
	c.state = s
	CacheState.Set(float64(s))
}

func (c *Client) signalLost() {
	select {
	case c.lost <- struct{}{}:
	default:
	}
}

// supervise owns the reconnect loop, the heartbeat and the recovery probe.
func (c *Client) supervise() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-c.lost:
			c.reconnect()
		case <-ticker.C:
			c.healthCheck()
		}
	}
}

func (c *Client) reconnect() {
	for {
		c.mu.Lock()
		if c.closing || c.state != StateReconnecting {
			c.mu.Unlock()
			return
		}
		attempt := c.attempts + 1
		c.mu.Unlock()

		backoff := c.config.ReconnectBackoff(attempt)
		c.logger.Info().
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Reconnecting to Redis")

		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		if c.connect(context.Background(), c.config.DialTimeout) {
			return
		}
	}
}

func (c *Client) healthCheck() {
	state := c.State()
	if state != StateReady && state != StateFailedOver {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.OperationTimeout)
	err := c.primary.Ping(ctx)
	cancel()

	switch {
	case state == StateReady && err != nil:
		c.connectionLost(err)
	case state == StateFailedOver && err == nil:
		c.logger.Info().Msg("Redis reachable again, leaving in-memory cache")
		c.markReady()
	case state == StateFailedOver:
		c.logger.Debug().Err(err).Msg("Redis still unreachable")
	}
}
