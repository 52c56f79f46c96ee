// Package httpcache wraps route handlers with a read-through response cache.
//
// A cache hit is answered directly without calling the handler. On a miss the
// handler runs and its result is written to the caller; a 200 response with a
// body is then stored in the background under the same key. Cache failures
// never turn into HTTP errors.
package httpcache

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultTTL is the lifetime of a cached response
	DefaultTTL = 300 * time.Second

	// DefaultWriteTimeout bounds a background cache write
	DefaultWriteTimeout = 2 * time.Second

	// HeaderCache reports HIT or MISS to the caller
	HeaderCache = "X-Cache"

	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeText = "text/plain; charset=utf-8"
)

// Cache is the key-value store used by the interceptor.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, noOverwrite bool) bool
}

// KeyFunc computes the cache key for a request.
type KeyFunc func(r *http.Request) (string, error)

// StaticKey returns a KeyFunc that always yields key.
func StaticKey(key string) KeyFunc {
	return func(*http.Request) (string, error) {
		return key, nil
	}
}

// JSONFunc handles a request and returns a status and a value to encode as JSON.
type JSONFunc func(r *http.Request) (status int, body any, err error)

// TextFunc handles a request and returns a status and a raw text body.
type TextFunc func(r *http.Request) (status int, body string, err error)

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithTTL sets the default lifetime of stored responses.
func WithTTL(ttl time.Duration) Option {
	return func(i *Interceptor) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithWriteTimeout bounds each background cache write.
func WithWriteTimeout(d time.Duration) Option {
	return func(i *Interceptor) {
		if d > 0 {
			i.writeTimeout = d
		}
	}
}

// Interceptor builds cached handlers on top of a Cache.
type Interceptor struct {
	cache        Cache
	logger       zerolog.Logger
	ttl          time.Duration
	writeTimeout time.Duration
	wg           sync.WaitGroup
}

// New creates an Interceptor.
func New(cache Cache, logger zerolog.Logger, opts ...Option) *Interceptor {
	if cache == nil {
		panic("httpcache: cache cannot be nil")
	}

	i := &Interceptor{
		cache:        cache,
		logger:       logger,
		ttl:          DefaultTTL,
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// JSON wraps fn with the response cache for JSON bodies.
func (i *Interceptor) JSON(key KeyFunc, fn JSONFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeLabel(r)
		cacheKey, ok := i.resolveKey(r, key, route)

		if ok {
			if cached, hit := i.lookup(r.Context(), route, cacheKey, json.Valid); hit {
				writeBody(w, http.StatusOK, contentTypeJSON, cached, "HIT")
				return
			}
		}

		status, body, err := fn(r)
		if err != nil {
			i.writeError(w, route, err)
			return
		}

		var data []byte
		if body != nil {
			data, err = json.Marshal(body)
			if err != nil {
				i.logger.Error().Err(err).Str("route", route).Msg("Failed to encode response body")
				i.writeError(w, route, err)
				return
			}
		}

		writeBody(w, status, contentTypeJSON, data, "MISS")

		if ok && status == http.StatusOK && len(data) > 0 && string(data) != "null" {
			i.store(r.Context(), route, cacheKey, data, i.ttl)
		}
	})
}

// Text wraps fn with the response cache for raw text bodies. A ttl <= 0
// uses the interceptor default.
func (i *Interceptor) Text(key KeyFunc, ttl time.Duration, fn TextFunc) http.Handler {
	if ttl <= 0 {
		ttl = i.ttl
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeLabel(r)
		cacheKey, ok := i.resolveKey(r, key, route)

		if ok {
			if cached, hit := i.lookup(r.Context(), route, cacheKey, nil); hit {
				writeBody(w, http.StatusOK, contentTypeText, cached, "HIT")
				return
			}
		}

		status, body, err := fn(r)
		if err != nil {
			i.writeError(w, route, err)
			return
		}

		writeBody(w, status, contentTypeText, []byte(body), "MISS")

		if ok && status == http.StatusOK && body != "" {
			i.store(r.Context(), route, cacheKey, []byte(body), ttl)
		}
	})
}

// Wait blocks until all background cache writes have finished.
func (i *Interceptor) Wait() {
	i.wg.Wait()
}

func (i *Interceptor) resolveKey(r *http.Request, key KeyFunc, route string) (string, bool) {
	cacheKey, err := key(r)
	if err == nil && cacheKey == "" {
		err = ErrEmptyKey
	}
	if err != nil {
		lookupsTotal.WithLabelValues(route, "key_error").Inc()
		i.logger.Debug().Err(err).Str("route", route).Msg("No cache key, bypassing cache")
		return "", false
	}
	return cacheKey, true
}

// lookup returns a cached value accepted by valid (nil accepts everything).
func (i *Interceptor) lookup(ctx context.Context, route, key string, valid func([]byte) bool) ([]byte, bool) {
	cached, hit := i.cache.Get(ctx, key)
	if !hit {
		lookupsTotal.WithLabelValues(route, "miss").Inc()
		i.logger.Debug().Str("key", key).Msg("Cache miss")
		return nil, false
	}

	if valid != nil && !valid(cached) {
		lookupsTotal.WithLabelValues(route, "invalid").Inc()
		i.logger.Warn().Str("key", key).Msg("Cached value could not be decoded, treating as miss")
		return nil, false
	}

	lookupsTotal.WithLabelValues(route, "hit").Inc()
	i.logger.Debug().Str("key", key).Msg("Cache hit")
	return cached, true
}

// store writes value in the background; the response is never delayed.
func (i *Interceptor) store(reqCtx context.Context, route, key string, value []byte, ttl time.Duration) {
	ctx := context.WithoutCancel(reqCtx)

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, i.writeTimeout)
		defer cancel()

		if i.cache.Set(ctx, key, value, ttl, true) {
			writesTotal.WithLabelValues(route, "stored").Inc()
			i.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cache set")
			return
		}
		writesTotal.WithLabelValues(route, "skipped").Inc()
		i.logger.Debug().Str("key", key).Msg("Cache not updated (key present or backend unavailable)")
	}()
}

func (i *Interceptor) writeError(w http.ResponseWriter, route string, err error) {
	status, message := statusOf(err)

	event := i.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = i.logger.Error()
	}
	event.Err(err).Str("route", route).Int("status", status).Msg("Handler failed")

	body, _ := json.Marshal(map[string]string{"message": message})
	writeBody(w, status, contentTypeJSON, body, "MISS")
}

func writeBody(w http.ResponseWriter, status int, contentType string, body []byte, cacheStatus string) {
	if len(body) > 0 {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set(HeaderCache, cacheStatus)
	w.WriteHeader(status)
	if len(body) > 0 {
		w.Write(body)
	}
}

func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}
