package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/vestra-ai/vestra/internal/adapter/http"
	"github.com/vestra-ai/vestra/internal/adapter/http/handler"
	"github.com/vestra-ai/vestra/internal/adapter/provider"
	memoryRepo "github.com/vestra-ai/vestra/internal/adapter/repository/memory"
	postgresRepo "github.com/vestra-ai/vestra/internal/adapter/repository/postgres"
	redisRepo "github.com/vestra-ai/vestra/internal/adapter/repository/redis"
	"github.com/vestra-ai/vestra/internal/adapter/storage"
	"github.com/vestra-ai/vestra/internal/domain"
	"github.com/vestra-ai/vestra/internal/infrastructure/config"
	"github.com/vestra-ai/vestra/internal/infrastructure/logger"
	"github.com/vestra-ai/vestra/internal/infrastructure/metrics"
	"github.com/vestra-ai/vestra/internal/infrastructure/postgres"
	"github.com/vestra-ai/vestra/internal/infrastructure/redis"
	"github.com/vestra-ai/vestra/internal/usecase"
)

// backends groups the driver-dependent pieces of the dependency graph.
type backends struct {
	txManager        usecase.TransactionManager
	accountRepo      usecase.AccountRepository
	entryRepo        usecase.EntryRepository
	eventRepo        usecase.AppliedEventRepository
	settingRepo      usecase.SettingRepository
	cache            usecase.Cache
	idempotencyStore usecase.IdempotencyStore
	blob             usecase.BlobStore
	healthHandler    *handler.HealthHandler
	close            func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = appLogger
	zerolog.DefaultContextLogger = &appLogger

	ctx := context.Background()

	b, err := buildBackends(ctx, cfg, appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize backends")
	}
	defer b.close()

	m := metrics.New()
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier()

	ledgerUC := usecase.NewLedgerUseCase(
		b.txManager, b.accountRepo, b.entryRepo, b.eventRepo, idGen, retrier, m)

	providerClient := &http.Client{Timeout: cfg.ProviderTimeout}
	adapters := []usecase.ProviderAdapter{
		provider.NewFalAdapter(providerClient, cfg.FalBaseURL, cfg.FalAPIKey),
		provider.NewKieAdapter(providerClient, cfg.KieBaseURL, cfg.KieAPIKey),
	}

	known := make([]string, 0, len(adapters))
	for _, a := range adapters {
		known = append(known, a.Name())
	}

	settingsUC := usecase.NewSettingsUseCase(
		b.settingRepo, b.cache, known, cfg.DefaultProvider, appLogger)

	generationUC := usecase.NewGenerationUseCase(
		b.blob, settingsUC, adapters, idGen,
		usecase.PollConfig{
			Interval:    cfg.PollInterval,
			MaxAttempts: cfg.PollMaxAttempts,
			Budget:      cfg.PollMaxElapsed,
		},
		cfg.TransientHosts, m, appLogger)

	webhookUC := usecase.NewWebhookUseCase(
		[]byte(cfg.WebhookSecret), ledgerUC, variantGrants(cfg), m, appLogger)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:    handler.NewAccountHandler(ledgerUC, cfg.SignupGrant),
		GenerationHandler: handler.NewGenerationHandler(generationUC, ledgerUC, appLogger),
		WebhookHandler:    handler.NewWebhookHandler(webhookUC, appLogger),
		SettingsHandler:   handler.NewSettingsHandler(settingsUC),
		HealthHandler:     b.healthHandler,
		IdempotencyStore:  b.idempotencyStore,
		Logger:            appLogger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("driver", cfg.StoreDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func buildBackends(ctx context.Context, cfg *config.Config, appLogger zerolog.Logger) (*backends, error) {
	if cfg.StoreDriver == "memory" {
		store := memoryRepo.NewStore()
		return &backends{
			txManager:        memoryRepo.NewTxManager(store),
			accountRepo:      memoryRepo.NewAccountRepository(store),
			entryRepo:        memoryRepo.NewEntryRepository(store),
			eventRepo:        memoryRepo.NewAppliedEventRepository(store),
			settingRepo:      memoryRepo.NewSettingRepository(store),
			cache:            memoryRepo.NewCache(),
			idempotencyStore: memoryRepo.NewIdempotencyStore(),
			blob:             storage.NewMemoryStore(""),
			healthHandler:    handler.NewHealthHandler(nil, nil),
			close:            func() {},
		}, nil
	}

	if cfg.MigrationsPath != "" {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	appLogger.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	appLogger.Info().Msg("connected to redis")

	blob, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:        cfg.StorageBucket,
		Region:        cfg.StorageRegion,
		Endpoint:      cfg.StorageEndpoint,
		PublicBaseURL: cfg.StoragePublicBaseURL,
	})
	if err != nil {
		redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("blob store: %w", err)
	}

	return &backends{
		txManager:        postgresRepo.NewTxManager(pool),
		accountRepo:      postgresRepo.NewAccountRepository(pool),
		entryRepo:        postgresRepo.NewEntryRepository(pool),
		eventRepo:        postgresRepo.NewAppliedEventRepository(pool),
		settingRepo:      postgresRepo.NewSettingRepository(pool),
		cache:            redisRepo.NewCache(redisClient),
		idempotencyStore: redisRepo.NewIdempotencyStore(redisClient),
		blob:             blob,
		healthHandler:    handler.NewHealthHandler(pool, redisClient),
		close: func() {
			redisClient.Close()
			pool.Close()
		},
	}, nil
}

// variantGrants builds the payment variant table from configuration.
// Unset variant IDs are skipped so partial configurations stay safe.
func variantGrants(cfg *config.Config) map[string]usecase.CreditGrant {
	grants := make(map[string]usecase.CreditGrant)

	add := func(variantID string, credits int64, kind domain.EntryKind, label string) {
		if variantID == "" {
			return
		}
		grants[variantID] = usecase.CreditGrant{Credits: credits, Kind: kind, Label: label}
	}

	add(cfg.VariantCredits500, 500, domain.EntryKindDeposit, "500 credit pack")
	add(cfg.VariantCredits1100, 1100, domain.EntryKindDeposit, "1100 credit pack")
	add(cfg.VariantCredits6000, 6000, domain.EntryKindDeposit, "6000 credit pack")
	add(cfg.VariantCredits13000, 13000, domain.EntryKindDeposit, "13000 credit pack")
	add(cfg.VariantSubPro, 3500, domain.EntryKindSubscription, "pro plan")
	add(cfg.VariantSubBusiness, 12000, domain.EntryKindSubscription, "business plan")

	return grants
}
