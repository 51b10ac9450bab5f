// Package main runs the Drafty relay HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"drafty-relay/internal/config"
	hhttp "drafty-relay/internal/handler/http"
	"drafty-relay/internal/handler/http/middleware"
	hrelay "drafty-relay/internal/handler/http/relay"
	"drafty-relay/internal/handler/http/requestid"
	"drafty-relay/internal/infra/generator"
	"drafty-relay/internal/observability/logging"
	"drafty-relay/internal/observability/metrics"
	"drafty-relay/internal/observability/tracing"
	"drafty-relay/internal/usecase/relay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger := initLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Init(cfg.TracingEnabled)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	components, err := setupServer(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to set up server", slog.Any("error", err))
		os.Exit(1)
	}

	if err := runServer(ctx, logger, cfg, components); err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// initLogger installs the JSON logger as the process default.
func initLogger(cfg *config.Config) *slog.Logger {
	logger := logging.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)
	return logger
}

// ServerComponents holds what runServer needs to serve and clean up.
type ServerComponents struct {
	Handler     http.Handler
	RateLimiter *middleware.IPRateLimiter
}

// loadModes returns the built-in modes with the optional policy profile applied.
func loadModes(path string) (map[relay.Mode]relay.ModeConfig, error) {
	if path == "" {
		return relay.DefaultModes(), nil
	}
	profile, err := config.LoadPolicyProfile(path)
	if err != nil {
		return nil, err
	}
	return profile.Apply(relay.DefaultModes())
}

// newRelayService bounds every generator call by GENERATOR_TIMEOUT, the
// placeholder and coalesced calls included.
func newRelayService(cfg *config.Config, gen relay.TextGenerator, modes map[relay.Mode]relay.ModeConfig) (*relay.Service, error) {
	return relay.NewService(gen,
		relay.WithModes(modes),
		relay.WithCallTimeout(cfg.Generator.Timeout))
}

// setupServer builds the generator, the relay service and the routed,
// middleware-wrapped handler.
func setupServer(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*ServerComponents, error) {
	modes, err := loadModes(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}

	gen, err := generator.New(ctx, cfg.Generator.Generator())
	if err != nil {
		return nil, err
	}
	svc, err := newRelayService(cfg, gen, modes)
	if err != nil {
		return nil, err
	}

	metrics.SetBuildInfo(cfg.Version, svc.Provider())
	for mode, mc := range modes {
		metrics.SetModeMaxLength(string(mode), mc.Policy.MaxLength)
	}
	logger.Info("relay configured",
		slog.String("provider", svc.Provider()),
		slog.Int("modes", len(modes)),
		slog.String("policy_file", cfg.PolicyFile))

	ipLimiter := middleware.NewIPRateLimiter(middleware.IPRateLimiterConfig{
		RPS:     cfg.RateLimit.RPS,
		Burst:   cfg.RateLimit.Burst,
		IdleTTL: cfg.RateLimit.IdleTTL,
		Enabled: cfg.RateLimit.Enabled,
	}, middleware.NewIPExtractor(cfg.RateLimit.TrustProxy))
	if !cfg.RateLimit.Enabled {
		logger.Warn("rate limiting is DISABLED - not recommended for production")
	}

	mux := http.NewServeMux()
	hrelay.Register(mux, svc)
	mux.Handle("/health", &hhttp.HealthHandler{Generator: gen, RateLimiter: ipLimiter, Version: cfg.Version})
	mux.Handle("/ready", &hhttp.ReadyHandler{Generator: gen})
	mux.Handle("/live", &hhttp.LiveHandler{})
	mux.Handle("/metrics", hhttp.MetricsHandler())

	logger.Info("CORS enabled",
		slog.Any("allowed_origins", cfg.CORS.AllowedOrigins),
		slog.Any("allowed_methods", cfg.CORS.AllowedMethods),
		slog.Int("max_age", cfg.CORS.MaxAge))

	// Order: CORS → Request ID → Tracing → IP Rate Limit → Recovery → Logging → Body Limit → Metrics
	handler := hhttp.Chain(mux,
		middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: middleware.AllowList(cfg.CORS.AllowedOrigins),
			AllowedMethods: cfg.CORS.AllowedMethods,
			AllowedHeaders: cfg.CORS.AllowedHeaders,
			MaxAge:         cfg.CORS.MaxAge,
		}),
		requestid.Middleware,
		tracing.Middleware,
		ipLimiter.Middleware(),
		hhttp.Recover(logger),
		hhttp.Logging(logger),
		hhttp.LimitRequestBody(cfg.MaxBodyBytes),
		hhttp.MetricsMiddleware,
	)

	return &ServerComponents{Handler: handler, RateLimiter: ipLimiter}, nil
}

// runServer serves until ctx is cancelled, then drains in-flight requests
// within the shutdown timeout.
func runServer(ctx context.Context, logger *slog.Logger, cfg *config.Config, c *ServerComponents) error {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           c.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if cfg.RateLimit.Enabled {
		cleanup, err := c.RateLimiter.ScheduleCleanup(cfg.RateLimit.CleanupSchedule)
		if err != nil {
			return err
		}
		cleanup.Start()
		defer cleanup.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", slog.String("addr", cfg.HTTPAddr), slog.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server", slog.Duration("timeout", cfg.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
