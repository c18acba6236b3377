package app

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/webmonhq/webmon/internal/ratecache"
	"go.uber.org/zap"
)

// warmerRestartDelay throttles supervisor restarts after a warmer crash.
const warmerRestartDelay = time.Second

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.String("log-level", a.cfg.LogLevel))

	a.startComponents()

	// Mark as ready
	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.Duration("rate-refresh-interval", a.cfg.RateRefreshInterval),
		zap.Duration("alert-check-interval", a.cfg.AlertCheckInterval))

	// Wait for shutdown signal
	return a.waitForShutdown()
}

func (a *App) startComponents() {
	a.wg.Add(1)
	go a.runHTTPServer()

	a.wg.Add(1)
	go a.runRateWarmer()

	a.wg.Add(1)
	go a.runAlertEvaluator()
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

// runRateWarmer supervises the cache warmer: a panic or unexpected return is
// logged and the warmer is restarted until the application shuts down.
func (a *App) runRateWarmer() {
	defer a.wg.Done()

	for {
		err := a.runWarmerOnce()
		if errors.Is(err, a.ctx.Err()) && a.ctx.Err() != nil {
			return
		}

		select {
		case <-a.ctx.Done():
			return
		case <-time.After(warmerRestartDelay):
		}

		ratecache.WarmerRestartsTotal.Inc()
		a.logger.Warn("rate-warmer-restarting", zap.Error(err))
	}
}

func (a *App) runWarmerOnce() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("warmer panic: %v", r)
		}
	}()

	return a.warmer.Run(a.ctx)
}

func (a *App) runAlertEvaluator() {
	defer a.wg.Done()
	err := a.evaluator.Run(a.ctx)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("alert-evaluator-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
