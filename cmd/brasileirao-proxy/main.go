package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/brasileirao-proxy/internal/config"
	"github.com/Sternrassler/brasileirao-proxy/internal/server"
	"github.com/Sternrassler/brasileirao-proxy/pkg/cache"
	"github.com/Sternrassler/brasileirao-proxy/pkg/futebol"
	"github.com/Sternrassler/brasileirao-proxy/pkg/logging"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging())
	logger := logging.NewLogger(logging.ComponentServer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.Addr()).Msg("Failed to listen")
	}

	if err := run(ctx, cfg, ln, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// run serves on ln until ctx is done, then drains requests and pending cache
// writes before closing the cache client.
func run(ctx context.Context, cfg config.Config, ln net.Listener, logger zerolog.Logger) error {
	store, err := cache.New(cfg.Cache(), logging.NewLogger(logging.ComponentCache))
	if err != nil {
		ln.Close()
		return fmt.Errorf("create cache client: %w", err)
	}
	defer store.Close()

	upstream, err := futebol.New(cfg.Futebol())
	if err != nil {
		ln.Close()
		return fmt.Errorf("create api-futebol client: %w", err)
	}

	serverCfg := server.DefaultConfig()
	serverCfg.CacheTTL = cfg.CacheTTL
	srv := server.New(store, upstream, serverCfg, logger)

	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("addr", ln.Addr().String()).
			Str("cache_mode", string(store.Mode())).
			Msg("Backend server listening")

		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		srv.Wait()
		return nil
	})

	return g.Wait()
}
