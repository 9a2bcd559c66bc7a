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
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	httpAdapter "github.com/iho/entryledger/internal/adapter/http"
	"github.com/iho/entryledger/internal/adapter/http/handler"
	"github.com/iho/entryledger/internal/adapter/http/middleware"
	"github.com/iho/entryledger/internal/adapter/repository/memory"
	mongoRepo "github.com/iho/entryledger/internal/adapter/repository/mongo"
	postgresRepo "github.com/iho/entryledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/entryledger/internal/adapter/repository/redis"
	"github.com/iho/entryledger/internal/infrastructure/config"
	"github.com/iho/entryledger/internal/infrastructure/eventpublisher"
	"github.com/iho/entryledger/internal/infrastructure/logger"
	"github.com/iho/entryledger/internal/infrastructure/metrics"
	mongoInfra "github.com/iho/entryledger/internal/infrastructure/mongo"
	"github.com/iho/entryledger/internal/infrastructure/postgres"
	"github.com/iho/entryledger/internal/infrastructure/redis"
	"github.com/iho/entryledger/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

// run serves until ctx is cancelled and then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, appLogger zerolog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app, err := newApp(ctx, cfg, appLogger, registry)
	if err != nil {
		return err
	}
	defer app.close()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      app.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info().Str("port", cfg.HTTPPort).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	appLogger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	appLogger.Info().Msg("server stopped")

	return nil
}

// app is the wired HTTP handler plus everything that must be released on
// shutdown, in reverse order of acquisition.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// storage is one backend behind the repository ports.
type storage struct {
	accounts usecase.AccountRepository
	txns     usecase.TransactionRepository
	ledger   usecase.LedgerRepository
}

func newApp(ctx context.Context, cfg *config.Config, appLogger zerolog.Logger, registry *prometheus.Registry) (a *app, err error) {
	a = &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	m := metrics.New(registry)
	health := handler.NewHealthHandler()

	store, err := openStorage(ctx, cfg, appLogger, a, health)
	if err != nil {
		return nil, err
	}

	var redisClient *goredis.Client
	if cfg.NeedsRedis() {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { redisClient.Close() })
		health.WithCheck("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
		appLogger.Info().Msg("connected to redis")
	}

	broker, err := newBroker(cfg, appLogger, redisClient, a)
	if err != nil {
		return nil, err
	}

	publisher := eventpublisher.NewDispatcher(eventpublisher.NewBestEffort(broker, eventpublisher.Config{
		Timeout:    cfg.PublishTimeout,
		MaxRetries: cfg.PublishMaxRetries,
		Logger:     appLogger,
		Metrics:    m,
	}), eventpublisher.DispatcherConfig{
		QueueSize:    cfg.PublishQueueSize,
		DrainTimeout: cfg.PublishDrainTime,
		Logger:       appLogger,
		Metrics:      m,
	})
	a.closers = append(a.closers, startDispatcher(publisher))

	idGen := postgresRepo.NewULIDGenerator()

	accountUC := usecase.NewAccountUseCase(store.accounts, store.txns, idGen, publisher, appLogger).WithMetrics(m)
	transactionUC := usecase.NewTransactionUseCase(
		store.accounts, store.txns, idGen,
		newLocker(cfg, redisClient, appLogger),
		publisher, appLogger,
	).WithMetrics(m)
	ledgerUC := usecase.NewLedgerUseCase(store.ledger)
	reconciliationUC := usecase.NewReconciliationUseCase(store.accounts, store.txns, store.ledger)

	routerCfg := httpAdapter.RouterConfig{
		AccountHandler:     handler.NewAccountHandler(accountUC),
		TransactionHandler: handler.NewTransactionHandler(transactionUC),
		LedgerHandler:      handler.NewLedgerHandler(ledgerUC, reconciliationUC),
		HealthHandler:      health,
		Logger:             appLogger,
		Metrics:            m,
		Gatherer:           registry,
	}

	if cfg.RateLimitRPS > 0 {
		rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithHitCounter(m.RateLimitHits)
		routerCfg.RateLimiter = rl

		cleanupCtx, cancel := context.WithCancel(context.Background())
		a.closers = append(a.closers, cancel)
		go cleanupLimiters(cleanupCtx, rl, time.Hour)
	}

	a.handler = httpAdapter.NewRouter(routerCfg)

	return a, nil
}

// startDispatcher runs the event worker and returns a function that stops it
// after the queue has been flushed.
func startDispatcher(d *eventpublisher.Dispatcher) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = d.Start(ctx)
	}()

	return func() {
		cancel()
		<-done
	}
}

func openStorage(ctx context.Context, cfg *config.Config, appLogger zerolog.Logger, a *app, health *handler.HealthHandler) (*storage, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, appLogger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}

		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL:    cfg.DatabaseURL,
			MaxConns:       cfg.DatabaseMaxConns,
			MinConns:       cfg.DatabaseMinConns,
			ConnectTimeout: cfg.DatabaseTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		health.WithCheck("postgres", pool.Ping)
		appLogger.Info().Msg("connected to postgres")

		retrier := postgresRepo.NewRetrier().WithLogger(appLogger)

		return &storage{
			accounts: postgresRepo.NewAccountRepository(pool, retrier),
			txns:     postgresRepo.NewTransactionRepository(pool, retrier),
			ledger:   postgresRepo.NewLedgerRepository(pool),
		}, nil

	case config.StoreMongo:
		client, err := mongoInfra.NewClient(ctx, cfg.MongoURI, cfg.DatabaseTimeout)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			client.Disconnect(ctx)
		})
		health.WithCheck("mongo", func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) })
		appLogger.Info().Msg("connected to mongo")

		db := client.Database(cfg.MongoDatabase)
		if err := mongoRepo.EnsureIndexes(ctx, db); err != nil {
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}

		return &storage{
			accounts: mongoRepo.NewAccountRepository(db),
			txns:     mongoRepo.NewTransactionRepository(db),
			ledger:   mongoRepo.NewLedgerRepository(db),
		}, nil

	case config.StoreMemory:
		appLogger.Warn().Msg("using in-memory store, data is lost on restart")

		store := memory.NewStore()

		return &storage{
			accounts: memory.NewAccountRepository(store),
			txns:     memory.NewTransactionRepository(store),
			ledger:   memory.NewLedgerRepository(store),
		}, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func newBroker(cfg *config.Config, appLogger zerolog.Logger, redisClient *goredis.Client, a *app) (eventpublisher.Publisher, error) {
	switch cfg.EventBroker {
	case config.BrokerRedis:
		return eventpublisher.NewRedisPublisher(redisClient), nil

	case config.BrokerKafka:
		p := eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers)
		a.closers = append(a.closers, func() { p.Close() })
		return p, nil

	case config.BrokerRabbitMQ:
		p, err := eventpublisher.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, fmt.Errorf("connect to rabbitmq: %w", err)
		}
		a.closers = append(a.closers, func() { p.Close() })
		return p, nil
	}

	return eventpublisher.NewLogPublisher(appLogger), nil
}

func newLocker(cfg *config.Config, redisClient *goredis.Client, appLogger zerolog.Logger) usecase.AccountLocker {
	switch cfg.AccountLock {
	case config.LockRedis:
		return redisRepo.NewLocker(redisClient, redisRepo.LockerConfig{TTL: cfg.AccountLockTTL}, appLogger)
	case config.LockNone:
		return usecase.NoopLocker{}
	}

	return memory.NewLocker()
}

func cleanupLimiters(ctx context.Context, rl *middleware.RateLimiter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.CleanupLimiters()
		}
	}
}
