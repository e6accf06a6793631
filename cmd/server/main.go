package main

import (
	"InvoiceFinancing/internal/adapters/eventbus"
	"InvoiceFinancing/internal/adapters/memory"
	"InvoiceFinancing/internal/adapters/metrics"
	"InvoiceFinancing/internal/adapters/postgres"
	"InvoiceFinancing/internal/adapters/redisbus"
	"InvoiceFinancing/internal/adapters/security"
	"InvoiceFinancing/internal/adapters/telegram"
	"InvoiceFinancing/internal/agents"
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"InvoiceFinancing/internal/saga"
	"InvoiceFinancing/internal/shared/config"
	"InvoiceFinancing/internal/shared/logger"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	baseLogger := logger.New(cfg.IsDev())
	baseLogger.Info().
		Str("app_env", cfg.AppEnv).
		Str("saga_mode", cfg.Saga.Mode).
		Bool("postgres", cfg.Postgres.URL != "").
		Bool("redis", cfg.Redis.Addr != "").
		Bool("telegram", cfg.Telegram.Token != "").
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Metrics
	registry := prometheus.NewRegistry()
	sagaMetrics := metrics.NewSagaMetrics(registry)
	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = metrics.NewServer(cfg.MetricsAddr, registry)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				baseLogger.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
		baseLogger.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
	}

	// 4. Run the saga
	outcome, err := run(ctx, cfg, &baseLogger, sagaMetrics)
	if err != nil {
		baseLogger.Error().Err(err).Msg("Failed to start saga")
		os.Exit(1)
	}

	// 5. Keep serving metrics until interrupted
	if metricsSrv != nil {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			baseLogger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}

	if !outcome.Committed() {
		os.Exit(2)
	}
}

// run wires the adapters selected by cfg and performs one financing saga.
// The returned error covers wiring failures; a saga that aborts is reported
// through the outcome.
func run(ctx context.Context, cfg *config.Config, baseLogger *zerolog.Logger, sagaMetrics ports.SagaMetrics) (domain.SagaOutcome, error) {
	var (
		loader ports.SnapshotLoader
		store  ports.CommitSink
		// Told about change sets once the store has applied them.
		publishers = []ports.CommitSink{memory.NewLogSink(baseLogger)}
	)

	// Store: Postgres when configured, otherwise the seeded memory store.
	// It is the only commit point.
	if cfg.Postgres.URL != "" {
		sealer, err := security.NewAESSealerFromHex(cfg.EncryptionKey, baseLogger)
		if err != nil {
			return domain.SagaOutcome{}, fmt.Errorf("init sealer: %w", err)
		}
		db, err := postgres.NewDB(ctx, cfg.Postgres.URL, baseLogger)
		if err != nil {
			return domain.SagaOutcome{}, fmt.Errorf("init database: %w", err)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return domain.SagaOutcome{}, err
		}
		pgStore := postgres.NewSagaStore(db, sealer, baseLogger)
		loader, store = pgStore, pgStore
	} else {
		memStore := memory.NewStore(memory.SeedSnapshot(), baseLogger)
		loader, store = memStore, memStore
	}

	if cfg.Redis.Addr != "" {
		publisher := redisbus.NewCommitPublisher(&redis.Options{Addr: cfg.Redis.Addr}, cfg.Redis.Channel, baseLogger)
		defer publisher.Close()
		if err := publisher.Ping(ctx); err != nil {
			return domain.SagaOutcome{}, fmt.Errorf("init redis: %w", err)
		}
		publishers = append(publishers, publisher)
	}

	opts := []saga.Option{
		saga.WithStepTimeout(cfg.Saga.StepTimeout),
		saga.WithMetrics(sagaMetrics),
	}
	if cfg.Telegram.Token != "" {
		api, err := telegram.NewBotAPI(cfg.Telegram.Token, baseLogger)
		if err != nil {
			return domain.SagaOutcome{}, err
		}
		opts = append(opts, saga.WithNotifier(telegram.NewOutcomeNotifier(api, cfg.Telegram.ChatID, baseLogger)))
	}

	snapshot, err := loader.LoadSnapshot(ctx)
	if err != nil {
		return domain.SagaOutcome{}, fmt.Errorf("load snapshot: %w", err)
	}

	sagaID := uuid.NewString()
	opts = append(opts, saga.WithIDGenerator(func() string { return sagaID }))
	uow := memory.NewUnitOfWork(sagaID, snapshot, store, baseLogger, publishers...)

	invoicing := agents.NewInvoicingAgent(uow, baseLogger)
	creditLimits := agents.NewCreditLimitsAgent(uow, baseLogger)
	accounting := agents.NewAccountingAgent(uow, baseLogger)

	var job saga.Job
	switch cfg.Saga.Mode {
	case config.ModeBus:
		bus := eventbus.NewInMemoryEventBus(baseLogger,
			eventbus.WithMaxDepth(cfg.Saga.MaxDepth),
			eventbus.WithMetrics(sagaMetrics),
		)
		job = saga.NewFinancingChoreography(bus, invoicing, creditLimits, accounting, uow, baseLogger, opts...)
	default:
		job = saga.NewRequestFinancingJob(invoicing, creditLimits, accounting, uow, baseLogger, opts...)
	}

	initiating := domain.NewEvent(domain.EventFinancingRequested, cfg.TriggerPayload)
	return job.Perform(ctx, initiating), nil
}
