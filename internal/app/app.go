package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/config"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/event"
	handler "github.com/r0ckitj0n/whimsicalfrog-sub015/internal/handler/http"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/repository/postgres"
	redisrepo "github.com/r0ckitj0n/whimsicalfrog-sub015/internal/repository/redis"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/service"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/taxrate"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/migrations"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/database"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/health"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/httpclient"
	pkgkafka "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/kafka"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/tracing"
)

const (
	restockGroupID     = "backoffice-inventory-restocked"
	eventIdempotencyNS = "backoffice:events:"
	eventIdempotencyTT = 24 * time.Hour
)

// App wires together all dependencies and runs the back-office service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	restocked      *pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    handler.ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	reg := prometheus.NewRegistry()

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(reg, pool, handler.ServiceName); err != nil {
		pool.Close()
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Initialize Redis for carts and idempotency keys.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort)))

	// Initialize Kafka producer with connection validation and retry.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	if err := pingKafkaWithRetry(ctx, producer, logger); err != nil {
		logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Tax rate: a fixed rate, or the settings service with the fixed rate
	// as fallback.
	var taxes taxrate.Provider = taxrate.Static(cfg.SalesTaxRate())
	var settingsBreaker *httpclient.BreakerClient
	if cfg.TaxSettingsURL != "" {
		breakerMetrics, err := httpclient.NewBreakerMetrics(reg)
		if err != nil {
			_ = redisClient.Close()
			pool.Close()
			return nil, fmt.Errorf("register breaker metrics: %w", err)
		}
		settingsBreaker = httpclient.NewBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultBreakerConfig("tax-settings"),
			breakerMetrics,
			logger,
		)
		taxes = taxrate.NewSettingsClient(settingsBreaker, cfg.TaxSettingsURL, cfg.SalesTaxRate(), cfg.TaxCacheTTL(), logger)
		logger.Info("tax rate from settings service", slog.String("url", cfg.TaxSettingsURL))
	}

	// Build the dependency graph.
	items := postgres.NewItemRepository(pool)
	orders := postgres.NewOrderRepository(pool, cfg.Location())
	carts := redisrepo.NewCartStore(redisClient, cfg.CartTTL())
	checkoutKeys := redisrepo.NewCheckoutIdempotencyStore(redisClient, cfg.IdempotencyTTL(), cfg.PendingCheckoutTTL())
	eventProducer := event.NewProducer(producer, logger)
	metrics := service.NewMetrics(reg)

	catalogService := service.NewCatalogService(items, logger)
	checkoutService := service.NewCheckoutService(
		postgres.NewTxRunner(pool), items, orders, taxes, checkoutKeys,
		eventProducer, metrics, logger, cfg.Location(),
	)
	fulfillmentService := service.NewFulfillmentService(orders, eventProducer, metrics, logger)
	cartService := service.NewCartService(carts, items, taxes, checkoutService, logger)

	// Kafka consumer for restock events from purchasing.
	dlq := pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
	eventConsumer := event.NewConsumer(catalogService, logger)
	eventStore := pkgkafka.NewRedisIdempotencyStore(redisClient, eventIdempotencyNS, eventIdempotencyTT)
	restockedConsumer := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  restockGroupID,
		Topic:    event.TopicInventoryRestocked,
		MinBytes: 1,
		MaxBytes: 10e6,
	}, pkgkafka.IdempotentHandler(eventStore, eventConsumer.HandleRestocked, logger), dlq, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	if settingsBreaker != nil {
		healthHandler.RegisterNonCritical("tax_settings", func(context.Context) error {
			if settingsBreaker.State() == gobreaker.StateOpen {
				return errors.New("circuit open, using fallback tax rate")
			}
			return nil
		})
	}

	// HTTP router.
	router := handler.NewRouter(handler.Services{
		Catalog:     catalogService,
		Checkout:    checkoutService,
		Fulfillment: fulfillmentService,
		Carts:       cartService,
	}, healthHandler, reg, logger, handler.RouterOptions{
		PprofAllowedCIDRs:  cfg.PprofAllowedCIDRs,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		RequestTimeout:     cfg.RequestTimeout(),
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout() + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		dlq:            dlq,
		restocked:      restockedConsumer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and the restock consumer, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Start Kafka consumer.
	go func() {
		if err := a.restocked.Start(ctx); err != nil {
			errCh <- fmt.Errorf("inventory restocked consumer: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		if shutdownErr := a.Shutdown(); shutdownErr != nil {
			a.logger.Error("shutdown after failure", slog.String("error", shutdownErr.Error()))
		}
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight checkouts)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumer and its dead-letter producer
// 4. Kafka producer
// 5. Redis client
// 6. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka consumer, then the DLQ it writes to.
	if err := a.restocked.Close(); err != nil {
		a.logger.Error("inventory restocked consumer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := a.dlq.Close(); err != nil {
		a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 5. Close Redis.
	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 6. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	const attempts = 3
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = producer.Ping(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		wait := pingBackoff(attempt)
		logger.Warn("kafka producer ping failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", attempts),
			slog.Duration("backoff", wait),
			slog.String("error", lastErr.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("kafka producer ping failed after %d attempts: %w", attempts, lastErr)
}

func pingBackoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
	return base + jitter
}
