package app

import (
	"context"
	"fmt"

	"github.com/webmonhq/webmon/internal/alerting"
	"github.com/webmonhq/webmon/internal/ingest"
	"github.com/webmonhq/webmon/internal/ratecache"
	"github.com/webmonhq/webmon/internal/rates"
	"github.com/webmonhq/webmon/internal/storage"
	"github.com/webmonhq/webmon/pkg/cache"
	"github.com/webmonhq/webmon/pkg/config"
	"github.com/webmonhq/webmon/pkg/healthprobe"
	"github.com/webmonhq/webmon/pkg/httpserver"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	configCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	store, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	ingestService, err := ingest.NewService(&ingest.ServiceConfig{
		Storage: store,
		Logger:  logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup ingest service: %w", err)
	}

	rateCache, warmer, err := setupRateCache(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup rate cache: %w", err)
	}

	notifier, err := alerting.NewPushoverNotifier(&alerting.PushoverNotifierConfig{
		DefaultAppToken: cfg.PushoverAppToken,
		Logger:          logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup notifier: %w", err)
	}

	evaluator, err := alerting.NewEvaluator(&alerting.EvaluatorConfig{
		Storage:         store,
		Notifier:        notifier,
		Cache:           configCache,
		Interval:        cfg.AlertCheckInterval,
		ConfigTTL:       cfg.AlertConfigCacheTTL,
		FallbackUserKey: cfg.PushoverUserKey,
		Logger:          logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup evaluator: %w", err)
	}

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Ingest:        ingestService,
		RateCache:     rateCache,
		Storage:       store,
		Cache:         configCache,
		Notifier:      notifier,
		WebhookSecret: cfg.WebhookSecret,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		storage:       store,
		configCache:   configCache,
		ingestService: ingestService,
		rateCache:     rateCache,
		warmer:        warmer,
		evaluator:     evaluator,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		return storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	}

	return storage.NewMemoryStorage(logger), nil
}

func setupRateCache(cfg *config.Config, logger *zap.Logger) (*ratecache.Cache, *ratecache.Warmer, error) {
	aggregator, err := rates.NewAggregator(logger, rates.DefaultSources(logger)...)
	if err != nil {
		return nil, nil, fmt.Errorf("setup aggregator: %w", err)
	}

	rateCache, err := ratecache.New(&ratecache.Config{
		Fetcher:            aggregator,
		StalenessThreshold: cfg.RateStaleThreshold,
		FetchTimeout:       cfg.RateFetchTimeout,
		Logger:             logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("new rate cache: %w", err)
	}

	warmer, err := ratecache.NewWarmer(&ratecache.WarmerConfig{
		Cache:      rateCache,
		Interval:   cfg.RateRefreshInterval,
		GraceDelay: cfg.RateGraceDelay,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("new warmer: %w", err)
	}

	return rateCache, warmer, nil
}
