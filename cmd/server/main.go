package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/cashflow/internal/adapter/http"
	"github.com/iho/cashflow/internal/adapter/http/handler"
	"github.com/iho/cashflow/internal/adapter/http/middleware"
	"github.com/iho/cashflow/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/cashflow/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/cashflow/internal/adapter/repository/redis"
	sqliteRepo "github.com/iho/cashflow/internal/adapter/repository/sqlite"
	"github.com/iho/cashflow/internal/adapter/retry"
	"github.com/iho/cashflow/internal/infrastructure/config"
	"github.com/iho/cashflow/internal/infrastructure/logger"
	"github.com/iho/cashflow/internal/infrastructure/metrics"
	"github.com/iho/cashflow/internal/infrastructure/postgres"
	"github.com/iho/cashflow/internal/infrastructure/redis"
	"github.com/iho/cashflow/internal/usecase"
)

const rateLimitCleanupInterval = time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	store, checks, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	log.Info().Str("driver", cfg.StoreDriver).Msg("event store ready")

	var (
		locker           usecase.AccountLocker = memory.NewLocker()
		idempotencyStore usecase.IdempotencyStore
	)

	// Redis is optional: it shares locks between replicas and backs
	// Idempotency-Key replays.
	if cfg.RedisEnabled {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		log.Info().Msg("connected to redis")

		locker = redisRepo.NewLocker(redisClient, cfg.LockTTL, log)
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
		checks = append(checks, redisCheck(redisClient))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewWithRegisterer(registry)

	accountUC, err := usecase.NewAccountUseCase(usecase.AccountUseCaseConfig{
		Store:           store,
		Locker:          locker,
		Observer:        appMetrics,
		Logger:          &log,
		DefaultCurrency: cfg.DefaultCurrency,
		CommandTimeout:  cfg.CommandTimeout,
	})
	if err != nil {
		return fmt.Errorf("create account use case: %w", err)
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go rateLimiter.RunCleanup(ctx, rateLimitCleanupInterval)
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:   handler.NewAccountHandler(accountUC, newRetrier(cfg, log)),
		HealthHandler:    handler.NewHealthHandler(checks...),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
		Metrics:          appMetrics,
		Gatherer:         registry,
		Logger:           log,
	})

	server := &http.Server{
		Addr:         listenAddr(cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// openStore builds the event store selected by STORE_DRIVER together with
// its readiness checks and a close function.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (usecase.EventStore, []handler.Check, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
		}

		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL:    cfg.DatabaseURL,
			MaxConns:       cfg.DatabaseMaxConns,
			MinConns:       cfg.DatabaseMinConns,
			ConnectTimeout: cfg.DatabaseTimeout,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}

		checks := []handler.Check{{Name: "postgres", Ping: pool.Ping}}
		return postgresRepo.NewEventStore(pool), checks, pool.Close, nil

	case config.DriverSQLite:
		store, err := sqliteRepo.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}

		closeStore := func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close sqlite store")
			}
		}
		checks := []handler.Check{{Name: "sqlite", Ping: store.Ping}}
		return store, checks, closeStore, nil

	case config.DriverMemory:
		log.Warn().Msg("using the in-memory event store, history is lost on restart")
		return memory.NewEventStore(), nil, func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// newRetrier returns nil when conflict retries are disabled.
func newRetrier(cfg *config.Config, log zerolog.Logger) handler.Retrier {
	if cfg.ConflictRetries <= 0 {
		return nil
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.ConflictRetries
	return retry.NewRetrierWithConfig(retryCfg, log)
}

func redisCheck(client *goredis.Client) handler.Check {
	return handler.Check{
		Name: "redis",
		Ping: func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}
}

func listenAddr(port string) string {
	return fmt.Sprintf(":%s", port)
}
