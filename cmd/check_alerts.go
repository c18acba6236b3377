package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/webmonhq/webmon/internal/alerting"
	"github.com/webmonhq/webmon/internal/storage"
	"github.com/webmonhq/webmon/pkg/cache"
	"github.com/webmonhq/webmon/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var checkAlertsCmd = &cobra.Command{
	Use:   "check-alerts",
	Short: "Run a single alert evaluation pass",
	Long: `Runs one alert evaluation pass against stored monitoring events and
exits. Useful for cron-style scheduling or verifying alert configuration
without starting the full service.`,
	RunE: runCheckAlerts,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(checkAlertsCmd)
}

func runCheckAlerts(cmd *cobra.Command, args []string) error {
	// Load .env if present, env vars win otherwise
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found\n")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if cfg.StorageMode != "postgres" {
		return fmt.Errorf("check-alerts requires STORAGE_MODE=postgres, a fresh in-memory store has no events")
	}

	store, err := storage.NewPostgresStorage(&storage.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		Database: cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("connect storage: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	configCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	defer configCache.Close()

	notifier, err := alerting.NewPushoverNotifier(&alerting.PushoverNotifierConfig{
		DefaultAppToken: cfg.PushoverAppToken,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("create notifier: %w", err)
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
		return fmt.Errorf("create evaluator: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	err = evaluator.CheckOnce(ctx)
	if err != nil {
		return fmt.Errorf("check alerts: %w", err)
	}

	return nil
}
