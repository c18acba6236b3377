package ratecache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// WarmerConfig holds cache warmer configuration.
type WarmerConfig struct {
	Cache      *Cache
	Interval   time.Duration // steady-state refresh cadence
	GraceDelay time.Duration // startup pause before the first refresh
	Logger     *zap.Logger
}

// Warmer drives periodic background refreshes of the rate cache so reads are
// normally served from an already-warm snapshot. Fetch failures are recorded
// on the cache and retried on the next tick at the same cadence; the loop
// runs for the lifetime of the process.
type Warmer struct {
	cache      *Cache
	interval   time.Duration
	graceDelay time.Duration
	logger     *zap.Logger
}

// NewWarmer creates a cache warmer.
func NewWarmer(cfg *WarmerConfig) (*Warmer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if cfg.GraceDelay < 0 {
		return nil, fmt.Errorf("grace delay cannot be negative")
	}

	return &Warmer{
		cache:      cfg.Cache,
		interval:   cfg.Interval,
		graceDelay: cfg.GraceDelay,
		logger:     cfg.Logger,
	}, nil
}

// Run starts the warming loop and blocks until ctx is cancelled. It always
// returns ctx.Err() on a clean stop; any other exit is unexpected and should
// be handled by the owning supervisor.
func (w *Warmer) Run(ctx context.Context) error {
	w.logger.Info("rate-warmer-starting",
		zap.Duration("interval", w.interval),
		zap.Duration("grace-delay", w.graceDelay))

	// Startup grace: let the rest of the process finish initializing before
	// the first upstream call.
	if w.graceDelay > 0 {
		select {
		case <-ctx.Done():
			w.logger.Info("rate-warmer-stopping")
			return ctx.Err()
		case <-time.After(w.graceDelay):
		}
	}

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("rate-warmer-stopping")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick performs one forced refresh through the cache's single-flight gate.
// Failures are contained here: they never terminate the loop and never reach
// cache readers.
func (w *Warmer) tick(ctx context.Context) {
	WarmerTicksTotal.Inc()

	_, fetchErr, waitErr := w.cache.refresh(ctx, true)
	if waitErr != nil {
		return
	}

	if fetchErr != nil {
		WarmerTickErrorsTotal.Inc()
		w.logger.Warn("cache-refresh-failed",
			zap.Error(fetchErr),
			zap.Duration("next-attempt-in", w.interval))
		return
	}

	w.logger.Debug("cache-refreshed")
}
