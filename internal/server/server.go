// Package server wires the Brasileirão routes behind the response cache.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Sternrassler/brasileirao-proxy/pkg/cache"
	"github.com/Sternrassler/brasileirao-proxy/pkg/futebol"
	"github.com/Sternrassler/brasileirao-proxy/pkg/httpcache"
	"github.com/rs/zerolog"
)

// Upstream is the subset of the api-futebol client used by the routes.
type Upstream interface {
	Campeonatos(ctx context.Context) (json.RawMessage, error)
	Campeonato(ctx context.Context, id int) (json.RawMessage, error)
	Tabela(ctx context.Context, id int) (json.RawMessage, error)
	TabelaEntries(ctx context.Context, id int) ([]futebol.TabelaEntry, error)
	Rodadas(ctx context.Context, id int) (json.RawMessage, error)
	Rodada(ctx context.Context, id, numero int) (json.RawMessage, error)
}

// Cache is the response store plus the status reported by /readyz.
type Cache interface {
	httpcache.Cache
	Status() cache.Status
}

// Config holds route settings.
type Config struct {
	// CacheTTL is the lifetime of cached JSON responses
	CacheTTL time.Duration

	// TextTTL is the lifetime of the rendered standings
	TextTTL time.Duration
}

// DefaultConfig returns the default route settings.
func DefaultConfig() Config {
	return Config{
		CacheTTL: httpcache.DefaultTTL,
		TextTTL:  120 * time.Second,
	}
}

// Server holds the routes and their dependencies.
type Server struct {
	store       Cache
	interceptor *httpcache.Interceptor
	upstream    Upstream
	config      Config
	logger      zerolog.Logger
	mux         *http.ServeMux
	now         func() time.Time
}

// New creates a server and registers its routes.
func New(store Cache, upstream Upstream, cfg Config, logger zerolog.Logger) *Server {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = httpcache.DefaultTTL
	}
	if cfg.TextTTL <= 0 {
		cfg.TextTTL = DefaultConfig().TextTTL
	}

	s := &Server{
		store:       store,
		interceptor: httpcache.New(store, logger, httpcache.WithTTL(cfg.CacheTTL)),
		upstream:    upstream,
		config:      cfg,
		logger:      logger,
		mux:         http.NewServeMux(),
		now:         time.Now,
	}
	s.routes()
	return s
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return requestLogger(s.logger, s.mux)
}

// Wait blocks until pending cache writes have finished.
func (s *Server) Wait() {
	s.interceptor.Wait()
}

// statusRecorder captures the status code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func requestLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		event := logger.Info()
		if rec.status >= http.StatusInternalServerError {
			event = logger.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", r.Pattern).
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Str("cache", rec.Header().Get(httpcache.HeaderCache)).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	})
}
