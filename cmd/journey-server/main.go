package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/theimaginaryfoundation/journey-o-bot/journey"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/api"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/logging"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/provider"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/settings"
)

func main() {
	if err := settings.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	builder, err := newBuilder(ctx, cfg, os.Getenv, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(cfg, api.NewHandler(builder, cfg.Provider, logger), logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr, "provider", cfg.Provider, "models", builder.Invoker.Models())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// newBuilder wires the fallback invoker and the provider client. A missing API key is logged and
// left for the request path to report.
func newBuilder(ctx context.Context, cfg Config, getenv func(string) string, logger *slog.Logger) (*journey.Builder, error) {
	models, err := settings.ModelOrder(cfg.Provider, cfg.Model, cfg.FallbackModels, getenv)
	if err != nil {
		return nil, err
	}
	inv, err := provider.NewInvoker(models, provider.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = getenv(provider.APIKeyEnv(cfg.Provider))
	}
	client, err := provider.NewClient(ctx, cfg.Provider, apiKey, cfg.MaxOutputTokens)
	if err != nil {
		return nil, err
	}
	if client == nil {
		logger.Warn("provider API key not set; model endpoints will fail", "env", provider.APIKeyEnv(cfg.Provider))
	}

	b := &journey.Builder{Invoker: inv, Compaction: cfg.Compaction, Logger: logger}
	b.UseClient(client)
	return b, nil
}

func newRouter(cfg Config, h *api.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(api.RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(api.RequestTimeout(cfg.RequestTimeout))
	}
	h.RegisterRoutes(r)
	return r
}
