package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/webmonhq/webmon/internal/storage"
	"github.com/webmonhq/webmon/pkg/cache"
	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap"
)

// Cache keys for config lookups. HTTP handlers delete these after mutating
// alert or Pushover configuration so the next pass sees fresh data.
const (
	AlertConfigsCacheKey   = "alerting:configs"
	PushoverConfigCacheKey = "alerting:pushover"
)

// Minimum time between repeated notifications for a still-breached monitor.
var renotifyIntervals = map[string]time.Duration{
	types.AlertLevelCritical: 30 * time.Second,
	types.AlertLevelHigh:     2 * time.Minute,
	types.AlertLevelMedium:   5 * time.Minute,
	types.AlertLevelLow:      15 * time.Minute,
}

var levelIcons = map[string]string{
	types.AlertLevelCritical: "🔴",
	types.AlertLevelHigh:     "🟠",
	types.AlertLevelMedium:   "🟡",
	types.AlertLevelLow:      "🟢",
}

// Evaluator periodically compares the latest monitor values against
// configured thresholds and drives the alert lifecycle.
type Evaluator struct {
	storage      storage.Storage
	notifier     Notifier
	cache        cache.Cache
	interval     time.Duration
	configTTL    time.Duration
	dashboardURL string
	fallbackUser string
	logger       *zap.Logger

	now func() time.Time
}

// EvaluatorConfig holds evaluator configuration.
type EvaluatorConfig struct {
	Storage   storage.Storage
	Notifier  Notifier
	Cache     cache.Cache
	Interval  time.Duration
	ConfigTTL time.Duration
	// DashboardURL is attached to notifications when set.
	DashboardURL string
	// FallbackUserKey is used when no Pushover config is stored.
	FallbackUserKey string
	Logger          *zap.Logger
}

// NewEvaluator creates a new alert evaluator.
func NewEvaluator(cfg *EvaluatorConfig) (*Evaluator, error) {
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if cfg.Notifier == nil {
		return nil, fmt.Errorf("notifier cannot be nil")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache cannot be nil")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	configTTL := cfg.ConfigTTL
	if configTTL <= 0 {
		configTTL = time.Minute
	}

	return &Evaluator{
		storage:      cfg.Storage,
		notifier:     cfg.Notifier,
		cache:        cfg.Cache,
		interval:     cfg.Interval,
		configTTL:    configTTL,
		dashboardURL: cfg.DashboardURL,
		fallbackUser: cfg.FallbackUserKey,
		logger:       cfg.Logger,
		now:          time.Now,
	}, nil
}

// Run evaluates alerts on a fixed cadence until ctx is cancelled. A failed
// pass is logged and the loop keeps going.
func (e *Evaluator) Run(ctx context.Context) error {
	e.logger.Info("alert-evaluator-started",
		zap.Duration("interval", e.interval))

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("alert-evaluator-stopped")
			return ctx.Err()
		case <-ticker.C:
			err := e.CheckOnce(ctx)
			if err != nil {
				CheckErrorsTotal.Inc()
				e.logger.Error("alert-check-failed", zap.Error(err))
			}
		}
	}
}

// CheckOnce runs a single evaluation pass over every configured monitor.
func (e *Evaluator) CheckOnce(ctx context.Context) error {
	ChecksTotal.Inc()

	pushoverCfg, err := e.pushoverConfig(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		e.logger.Debug("no-pushover-config-skipping-check")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load pushover config: %w", err)
	}

	configs, err := e.alertConfigs(ctx)
	if err != nil {
		return fmt.Errorf("load alert configs: %w", err)
	}
	if len(configs) == 0 {
		return nil
	}

	events, err := e.storage.LatestEvents(ctx)
	if err != nil {
		return fmt.Errorf("load latest events: %w", err)
	}

	latest := make(map[string]*types.MonitoringEvent, len(events))
	for _, event := range events {
		latest[event.MonitorID] = event
	}

	for _, cfg := range configs {
		event, ok := latest[cfg.MonitorID]
		if !ok || event.Value == nil {
			continue
		}

		err := e.evaluateMonitor(ctx, cfg, event, pushoverCfg)
		if err != nil {
			e.logger.Error("monitor-evaluation-failed",
				zap.String("monitor-id", cfg.MonitorID),
				zap.Error(err))
		}
	}

	return nil
}

func (e *Evaluator) evaluateMonitor(
	ctx context.Context,
	cfg *types.AlertConfig,
	event *types.MonitoringEvent,
	pushoverCfg *types.PushoverConfig,
) error {
	if !cfg.Breached(*event.Value) {
		return e.resolve(ctx, cfg.MonitorID)
	}

	active, err := e.storage.ActiveAlertState(ctx, cfg.MonitorID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load active alert state: %w", err)
	}

	now := e.now().UTC()

	if active != nil {
		interval, ok := renotifyIntervals[cfg.Level]
		if !ok {
			interval = renotifyIntervals[types.AlertLevelMedium]
		}

		if now.Sub(active.LastNotifiedAt) < interval {
			e.logger.Debug("renotify-interval-not-elapsed",
				zap.String("monitor-id", cfg.MonitorID))
			return nil
		}
	}

	err = e.notify(ctx, cfg, event, pushoverCfg)
	if err != nil {
		return err
	}

	if active != nil {
		return e.storage.TouchAlertState(ctx, active.ID, now, active.NotificationCount+1)
	}

	AlertsTriggeredTotal.WithLabelValues(cfg.Level).Inc()
	e.logger.Info("alert-triggered",
		zap.String("monitor-id", cfg.MonitorID),
		zap.String("level", cfg.Level),
		zap.Float64("value", *event.Value))

	return e.storage.InsertAlertState(ctx, &types.AlertState{
		ID:                uuid.NewString(),
		MonitorID:         cfg.MonitorID,
		Level:             cfg.Level,
		TriggeredAt:       now,
		LastNotifiedAt:    now,
		NotificationCount: 1,
		Active:            true,
	})
}

func (e *Evaluator) notify(
	ctx context.Context,
	cfg *types.AlertConfig,
	event *types.MonitoringEvent,
	pushoverCfg *types.PushoverConfig,
) error {
	name := event.MonitorName
	if name == "" {
		name = event.MonitorID
	}

	icon, ok := levelIcons[cfg.Level]
	if !ok {
		icon = levelIcons[types.AlertLevelMedium]
	}

	return e.notifier.Notify(ctx, pushoverCfg, &Notification{
		Title:   fmt.Sprintf("%s %s Alert", icon, name),
		Message: formatAlertMessage(event, cfg),
		Level:   cfg.Level,
		URL:     e.dashboardURL,
	})
}

func (e *Evaluator) resolve(ctx context.Context, monitorID string) error {
	_, err := e.storage.ActiveAlertState(ctx, monitorID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load active alert state: %w", err)
	}

	err = e.storage.ResolveAlertStates(ctx, monitorID, e.now().UTC())
	if err != nil {
		return fmt.Errorf("resolve alert states: %w", err)
	}

	AlertsResolvedTotal.Inc()
	e.logger.Info("alert-resolved", zap.String("monitor-id", monitorID))

	return nil
}

func (e *Evaluator) pushoverConfig(ctx context.Context) (*types.PushoverConfig, error) {
	if cached, found := e.cache.Get(PushoverConfigCacheKey); found {
		if cfg, ok := cached.(*types.PushoverConfig); ok {
			return cfg, nil
		}
	}

	cfg, err := e.storage.GetPushoverConfig(ctx)
	if errors.Is(err, storage.ErrNotFound) && e.fallbackUser != "" {
		cfg = &types.PushoverConfig{UserKey: e.fallbackUser}
		err = nil
	}
	if err != nil {
		return nil, err
	}

	e.cache.Set(PushoverConfigCacheKey, cfg, e.configTTL)

	return cfg, nil
}

func (e *Evaluator) alertConfigs(ctx context.Context) ([]*types.AlertConfig, error) {
	if cached, found := e.cache.Get(AlertConfigsCacheKey); found {
		if configs, ok := cached.([]*types.AlertConfig); ok {
			return configs, nil
		}
	}

	configs, err := e.storage.ListAlertConfigs(ctx)
	if err != nil {
		return nil, err
	}

	e.cache.Set(AlertConfigsCacheKey, configs, e.configTTL)

	return configs, nil
}
