// Package futebol provides the api-futebol HTTP client with retries,
// error classification, and request metrics.
package futebol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for upstream requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brasileirao_upstream_requests_total",
		Help: "Total api-futebol requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "brasileirao_upstream_request_duration_seconds",
		Help:    "api-futebol request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brasileirao_upstream_errors_total",
		Help: "Total api-futebol errors by class",
	}, []string{"class"})
)

const (
	// DefaultBaseURL is the api-futebol v1 root.
	DefaultBaseURL = "https://api.api-futebol.com.br/v1/"

	// maxBodySize caps how much of an upstream body is read.
	maxBodySize = 8 << 20
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the api-futebol root; paths are resolved relative to it
	BaseURL string

	// APIKey is sent as a Bearer token
	APIKey string

	// UserAgent header (optional)
	UserAgent string

	// Timeout bounds a single HTTP attempt
	Timeout time.Duration

	// Retry controls retries of network, 429 and 5xx failures
	Retry RetryConfig

	// HTTPClient overrides the default client (tests)
	HTTPClient *http.Client
}

// DefaultConfig returns a default configuration for apiKey.
func DefaultConfig(apiKey string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		APIKey:    apiKey,
		UserAgent: "brasileirao-proxy/1.0",
		Timeout:   10 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// Client is the api-futebol client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// New creates a new api-futebol client. A missing API key is logged but not
// rejected; upstream will answer 401.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	logger := log.With().Str("component", "futebol-client").Logger()

	if cfg.APIKey == "" {
		logger.Error().Msg("API_FUTEBOL_KEY not set, upstream requests will be unauthenticated")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		config:     cfg,
		logger:     logger,
	}, nil
}

// Get fetches path relative to the base URL and returns the raw JSON body.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.get(ctx, strings.Trim(path, "/"), path)
}

// Campeonatos lists the championships available to the API key.
func (c *Client) Campeonatos(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "campeonatos", "campeonatos")
}

// Campeonato returns the details of championship id.
func (c *Client) Campeonato(ctx context.Context, id int) (json.RawMessage, error) {
	return c.get(ctx, "campeonato", "campeonatos/"+strconv.Itoa(id))
}

// Tabela returns the raw standings of championship id.
func (c *Client) Tabela(ctx context.Context, id int) (json.RawMessage, error) {
	return c.get(ctx, "tabela", fmt.Sprintf("campeonatos/%d/tabela", id))
}

// TabelaEntries returns the decoded standings of championship id.
func (c *Client) TabelaEntries(ctx context.Context, id int) ([]TabelaEntry, error) {
	raw, err := c.Tabela(ctx, id)
	if err != nil {
		return nil, err
	}

	var entries []TabelaEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode tabela: %w", ErrInvalidResponse, err)
	}
	return entries, nil
}

// Rodadas lists the rounds of championship id.
func (c *Client) Rodadas(ctx context.Context, id int) (json.RawMessage, error) {
	return c.get(ctx, "rodadas", fmt.Sprintf("campeonatos/%d/rodadas", id))
}

// Rodada returns round numero of championship id.
func (c *Client) Rodada(ctx context.Context, id, numero int) (json.RawMessage, error) {
	return c.get(ctx, "rodada", fmt.Sprintf("campeonatos/%d/rodadas/%d", id, numero))
}

// get performs a GET with retries. endpoint is the metric label.
func (c *Client) get(ctx context.Context, endpoint, path string) (json.RawMessage, error) {
	target := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/")}).String()

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var body []byte
	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func() (ErrorClass, error) {
		data, class, err := c.attempt(ctx, endpoint, target)
		if err != nil {
			return class, err
		}
		body = data
		return "", nil
	})
	if err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		errorsTotal.WithLabelValues("invalid_body").Inc()
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, endpoint)
	}

	return json.RawMessage(body), nil
}

// attempt runs one HTTP exchange.
func (c *Client) attempt(ctx context.Context, endpoint, target string) ([]byte, ErrorClass, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("url", target).
		Msg("Starting request to API Futebol")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		}
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, ErrorClassNetwork, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, "", fmt.Errorf("%w: %w", ErrContextCancelled, err)
		}
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, ErrorClassNetwork, fmt.Errorf("read body: %w", err)
	}

	status := strconv.Itoa(resp.StatusCode)
	requestsTotal.WithLabelValues(endpoint, status).Inc()

	if resp.StatusCode >= 400 {
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()

		c.logger.Error().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Error response from API Futebol")

		return nil, class, &APIError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    errorMessage(data, resp.Status),
			Body:       data,
		}
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Msg("Response from API Futebol")

	return data, "", nil
}
