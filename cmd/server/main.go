package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"newsletter/internal/platform/config"
	"newsletter/internal/platform/httpserver"
	"newsletter/internal/platform/logger"
	"newsletter/internal/platform/metrics"
	"newsletter/internal/platform/postgres"
	"newsletter/internal/platform/redis"
	rlmetrics "newsletter/internal/ratelimit/metrics"
	ratelimit "newsletter/internal/ratelimit/middleware"
	"newsletter/internal/ratelimit/store/bucket"
	"newsletter/internal/subscriptions/handler"
	submetrics "newsletter/internal/subscriptions/metrics"
	"newsletter/internal/subscriptions/outbox"
	"newsletter/internal/subscriptions/service"
	"newsletter/internal/subscriptions/store"
	httptransport "newsletter/internal/transport/http"
)

// main wires high-level dependencies and owns the process lifecycle.
// Business logic lives in the internal module packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	subMetrics := submetrics.New(reg)
	health := map[string]httptransport.HealthCheck{}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	var subStore service.Store = store.NewInMemory()
	if db != nil {
		defer db.Close()
		subStore = store.NewPostgres(db)
		health["postgres"] = db.PingContext
		log.Info("using postgres subscription store")
	} else {
		log.Warn("postgres not configured, using in-memory subscription store")
	}

	limiter, closeLimiter, err := buildLimiter(ctx, cfg, log, reg, health)
	if err != nil {
		return err
	}
	defer closeLimiter()

	proxies, err := cfg.Server.TrustedProxyPrefixes()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if err := startRelay(gctx, g, cfg, log, db, subMetrics, health); err != nil {
		return err
	}

	subs := handler.New(
		service.New(subStore, service.WithLogger(log), service.WithMetrics(subMetrics)),
		log,
		handler.WithSubscribeMiddleware(limiter.RateLimit("subscribe")),
	)
	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: proxies,
		HealthChecks:   health,
		Modules:        []httptransport.Registrar{subs},
	})
	srv := httpserver.New(cfg.Server, router)

	g.Go(func() error {
		log.Info("starting newsletter service", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildLimiter prefers Redis and keeps an in-memory fallback for outages.
func buildLimiter(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer, health map[string]httptransport.HealthCheck) (*ratelimit.Middleware, func(), error) {
	memory := bucket.NewInMemory()
	opts := []ratelimit.Option{ratelimit.WithMetrics(rlmetrics.New(reg))}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Warn("redis not configured, rate limiting in memory")
		return ratelimit.New(memory, cfg.RateLimit.Requests, cfg.RateLimit.Window, log, opts...), func() {}, nil
	}

	health["redis"] = client.Health
	opts = append(opts, ratelimit.WithFallback(memory))
	limiter := ratelimit.New(bucket.NewRedis(client), cfg.RateLimit.Requests, cfg.RateLimit.Window, log, opts...)
	return limiter, func() { _ = client.Close() }, nil
}

// startRelay runs the outbox relay when both Postgres and Kafka are configured.
func startRelay(ctx context.Context, g *errgroup.Group, cfg config.Config, log *slog.Logger, db *sql.DB, m *submetrics.Metrics, health map[string]httptransport.HealthCheck) error {
	if db == nil || !cfg.KafkaEnabled() {
		log.Info("outbox relay disabled")
		return nil
	}

	publisher, err := outbox.NewKafkaPublisher(cfg.Kafka)
	if err != nil {
		return err
	}
	if err := publisher.EnsureTopic(ctx); err != nil {
		publisher.Close()
		return err
	}
	health["kafka"] = publisher.Ping

	relay := outbox.NewRelay(outbox.NewPostgresStore(db), publisher, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize,
		outbox.WithLogger(log),
		outbox.WithMetrics(m),
	)
	g.Go(func() error {
		defer publisher.Close()
		return relay.Run(ctx)
	})
	return nil
}
