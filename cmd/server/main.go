package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/bankledger/internal/adapter/http"
	"github.com/iho/bankledger/internal/adapter/http/handler"
	"github.com/iho/bankledger/internal/adapter/lock"
	"github.com/iho/bankledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/bankledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/bankledger/internal/adapter/repository/redis"
	"github.com/iho/bankledger/internal/infrastructure/config"
	"github.com/iho/bankledger/internal/infrastructure/eventpublisher"
	"github.com/iho/bankledger/internal/infrastructure/logger"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
	"github.com/iho/bankledger/internal/infrastructure/postgres"
	"github.com/iho/bankledger/internal/infrastructure/redis"
	"github.com/iho/bankledger/internal/infrastructure/retry"
	"github.com/iho/bankledger/internal/usecase"
)

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
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app, err := newApp(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.outbox != nil {
		go func() {
			if err := app.outbox.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("outbox publisher stopped")
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      app.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.HTTPPort).
			Str("storage", cfg.StorageDriver).
			Str("locks", cfg.LockDriver).
			Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// app is the wired ledger service.
type app struct {
	handler http.Handler
	outbox  *eventpublisher.EventPublisher
	closers []func()
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// repositories is one storage driver's implementation of the usecase ports.
type repositories struct {
	txManager usecase.TransactionManager
	accounts  usecase.AccountRepository
	entries   usecase.EntryRepository
	loans     usecase.LoanRepository
	outbox    usecase.OutboxRepository
	ledger    usecase.LedgerRepository
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger, reg *prometheus.Registry) (*app, error) {
	a := &app{}
	m := metrics.New(reg)
	checks := map[string]handler.ReadinessCheck{}

	repos, err := openStorage(ctx, cfg, log, a, checks)
	if err != nil {
		a.Close()
		return nil, err
	}

	var redisClient *goredis.Client
	if cfg.LockDriver == config.LockRedis || cfg.IdempotencyEnabled {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { redisClient.Close() })
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		log.Info().Msg("connected to redis")
	}

	var locks usecase.LockManager
	switch cfg.LockDriver {
	case config.LockRedis:
		locks = redisRepo.NewLockManager(redisClient, redisRepo.LockOptions{
			Expiry:     cfg.LockExpiry,
			Timeout:    cfg.LockTimeout,
			RetryDelay: cfg.LockRetryDelay,
		}, log, m)
	default:
		locks = lock.NewLocalLockManager(cfg.LockTimeout, m)
	}

	guard := usecase.NewGuard(repos.txManager, locks, retry.NewRetrier(log, retry.WithMetrics(m)))
	idGen := postgresRepo.NewULIDGenerator()

	accountUC := usecase.NewAccountUseCase(guard, repos.accounts, repos.entries, repos.outbox,
		postgresRepo.NewAccountNumberGenerator(), idGen, log, m)
	transactionUC := usecase.NewTransactionUseCase(guard, accountUC, repos.accounts, repos.outbox, idGen, log, m)
	loanUC := usecase.NewLoanUseCase(guard, accountUC, repos.accounts, repos.loans, repos.outbox, idGen,
		cfg.LoanInterestRate, log, m)
	ledgerUC := usecase.NewLedgerUseCase(repos.ledger)

	routerCfg := httpAdapter.RouterConfig{
		AccountHandler:     handler.NewAccountHandler(accountUC),
		TransactionHandler: handler.NewTransactionHandler(transactionUC),
		LoanHandler:        handler.NewLoanHandler(loanUC),
		LedgerHandler:      handler.NewLedgerHandler(ledgerUC),
		HealthHandler:      handler.NewHealthHandler(checks),
		Logger:             log,
		Metrics:            m,
		Gatherer:           reg,
	}
	if cfg.IdempotencyEnabled {
		routerCfg.IdempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
		routerCfg.IdempotencyTTL = cfg.IdempotencyTTL
	}
	a.handler = httpAdapter.NewRouter(routerCfg)

	if cfg.OutboxEnabled {
		a.outbox = eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: repos.outbox,
			Publisher:  newEventPublisher(cfg, log, a),
			Logger:     log,
			Metrics:    m,
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxInterval,
		})
	}

	return a, nil
}

func openStorage(
	ctx context.Context,
	cfg *config.Config,
	log zerolog.Logger,
	a *app,
	checks map[string]handler.ReadinessCheck,
) (*repositories, error) {
	if cfg.StorageDriver != config.StoragePostgres {
		store := memory.NewStore()
		log.Warn().Msg("using in-memory storage; data is lost on restart")

		return &repositories{
			txManager: memory.NewTxManager(store),
			accounts:  memory.NewAccountRepository(store),
			entries:   memory.NewEntryRepository(store),
			loans:     memory.NewLoanRepository(store),
			outbox:    memory.NewOutboxRepository(store),
			ledger:    memory.NewLedgerRepository(store),
		}, nil
	}

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
		return nil, err
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
	checks["postgres"] = pool.Ping
	log.Info().Msg("connected to postgres")

	return &repositories{
		txManager: postgresRepo.NewTxManager(pool),
		accounts:  postgresRepo.NewAccountRepository(pool),
		entries:   postgresRepo.NewEntryRepository(pool),
		loans:     postgresRepo.NewLoanRepository(pool),
		outbox:    postgresRepo.NewOutboxRepository(pool),
		ledger:    postgresRepo.NewLedgerRepository(pool),
	}, nil
}

func newEventPublisher(cfg *config.Config, log zerolog.Logger, a *app) usecase.EventPublisher {
	if cfg.EventPublisher == config.PublisherKafka {
		kp := eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		a.closers = append(a.closers, func() {
			if err := kp.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close kafka writer")
			}
		})
		return kp
	}
	return eventpublisher.NewLogPublisher(log)
}
