package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/webmonhq/webmon/internal/alerting"
	"github.com/webmonhq/webmon/internal/ingest"
	"github.com/webmonhq/webmon/internal/ratecache"
	"github.com/webmonhq/webmon/internal/storage"
	"github.com/webmonhq/webmon/pkg/cache"
	"github.com/webmonhq/webmon/pkg/healthprobe"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server provides the HTTP API: webhook ingestion, funding rates, alert
// configuration, metrics and health checks.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker

	Ingest    *ingest.Service
	RateCache *ratecache.Cache
	Storage   storage.Storage
	Cache     cache.Cache
	Notifier  alerting.Notifier

	// WebhookSecret guards the webhook endpoint. Empty disables the check.
	WebhookSecret string
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	if cfg.Ingest != nil {
		wh := NewWebhookHandler(cfg.Ingest, cfg.WebhookSecret, cfg.Logger)
		r.Route("/webhook", func(r chi.Router) {
			r.Post("/distill", wh.HandleDistill)
			r.Post("/test", wh.HandleTest)
			r.Get("/status", wh.HandleStatus)
		})
	}

	if cfg.RateCache != nil {
		rh := NewRatesHandler(cfg.RateCache, cfg.Logger)
		r.Get("/api/dex/funding-rates", rh.HandleRates)
		r.Get("/api/dex/funding-rates/{symbol}", rh.HandleRatesBySymbol)
	}

	if cfg.Storage != nil {
		ah := NewAlertsHandler(cfg.Storage, cfg.Cache, cfg.Notifier, cfg.Logger)
		r.Route("/api/alerts", func(r chi.Router) {
			r.Post("/config", ah.HandleUpsertConfig)
			r.Get("/config/{monitorID}", ah.HandleGetConfig)
			r.Delete("/config/{monitorID}", ah.HandleDeleteConfig)
			r.Get("/configs", ah.HandleListConfigs)
		})
		r.Route("/api/pushover", func(r chi.Router) {
			r.Post("/config", ah.HandlePutPushover)
			r.Get("/config", ah.HandleGetPushover)
			r.Delete("/config", ah.HandleDeletePushover)
			r.Post("/test", ah.HandleTestPushover)
		})
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, statusCode int, message string) {
	writeJSON(w, logger, statusCode, ErrorResponse{Error: message})
}
