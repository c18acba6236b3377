package app

import (
	"context"
	"sync"

	"github.com/webmonhq/webmon/internal/alerting"
	"github.com/webmonhq/webmon/internal/ingest"
	"github.com/webmonhq/webmon/internal/ratecache"
	"github.com/webmonhq/webmon/internal/storage"
	"github.com/webmonhq/webmon/pkg/cache"
	"github.com/webmonhq/webmon/pkg/config"
	"github.com/webmonhq/webmon/pkg/healthprobe"
	"github.com/webmonhq/webmon/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	storage       storage.Storage
	configCache   cache.Cache
	ingestService *ingest.Service
	rateCache     *ratecache.Cache
	warmer        *ratecache.Warmer
	evaluator     *alerting.Evaluator
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
