package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/webmonhq/webmon/internal/alerting"
	"github.com/webmonhq/webmon/internal/storage"
	"github.com/webmonhq/webmon/pkg/cache"
	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap"
)

// AlertsHandler handles alert and Pushover configuration requests.
type AlertsHandler struct {
	storage  storage.Storage
	cache    cache.Cache
	notifier alerting.Notifier
	logger   *zap.Logger
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(store storage.Storage, c cache.Cache, notifier alerting.Notifier, logger *zap.Logger) *AlertsHandler {
	return &AlertsHandler{
		storage:  store,
		cache:    c,
		notifier: notifier,
		logger:   logger,
	}
}

// invalidateConfigs drops cached config lookups so the evaluator's next pass
// reads fresh data.
func (h *AlertsHandler) invalidateConfigs() {
	if h.cache == nil {
		return
	}
	h.cache.Delete(alerting.AlertConfigsCacheKey)
	h.cache.Delete(alerting.PushoverConfigCacheKey)
}

// AlertConfigRequest is the body for creating or updating an alert config.
type AlertConfigRequest struct {
	MonitorID      string   `json:"monitor_id"`
	UpperThreshold *float64 `json:"upper_threshold"`
	LowerThreshold *float64 `json:"lower_threshold"`
	Level          string   `json:"alert_level"`
}

// HandleUpsertConfig handles POST /api/alerts/config requests.
func (h *AlertsHandler) HandleUpsertConfig(w http.ResponseWriter, r *http.Request) {
	var req AlertConfigRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if req.MonitorID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "monitor_id is required")
		return
	}

	level := req.Level
	if level == "" {
		level = types.AlertLevelMedium
	}
	if !types.ValidAlertLevel(level) {
		writeError(w, h.logger, http.StatusBadRequest, "invalid alert_level")
		return
	}

	stored, err := h.storage.UpsertAlertConfig(r.Context(), &types.AlertConfig{
		MonitorID:      req.MonitorID,
		UpperThreshold: req.UpperThreshold,
		LowerThreshold: req.LowerThreshold,
		Level:          level,
	})
	if err != nil {
		h.logger.Error("upsert-alert-config-failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.invalidateConfigs()
	writeJSON(w, h.logger, http.StatusOK, stored)
}

// HandleGetConfig handles GET /api/alerts/config/{monitorID} requests.
func (h *AlertsHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	monitorID := chi.URLParam(r, "monitorID")

	cfg, err := h.storage.GetAlertConfig(r.Context(), monitorID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "Alert config not found")
		return
	}
	if err != nil {
		h.logger.Error("get-alert-config-failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, cfg)
}

// HandleListConfigs handles GET /api/alerts/configs requests.
func (h *AlertsHandler) HandleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.storage.ListAlertConfigs(r.Context())
	if err != nil {
		h.logger.Error("list-alert-configs-failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	if configs == nil {
		configs = []*types.AlertConfig{}
	}

	writeJSON(w, h.logger, http.StatusOK, configs)
}

// MessageResponse carries a human-readable result message.
type MessageResponse struct {
	Message string `json:"message"`
}

// HandleDeleteConfig handles DELETE /api/alerts/config/{monitorID} requests.
func (h *AlertsHandler) HandleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	monitorID := chi.URLParam(r, "monitorID")

	err := h.storage.DeleteAlertConfig(r.Context(), monitorID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "Alert config not found")
		return
	}
	if err != nil {
		h.logger.Error("delete-alert-config-failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.invalidateConfigs()
	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Message: "Alert config deleted"})
}

// PushoverConfigRequest is the body for storing Pushover credentials.
type PushoverConfigRequest struct {
	UserKey  string `json:"user_key"`
	APIToken string `json:"api_token"`
}

// HandlePutPushover handles POST /api/pushover/config requests.
func (h *AlertsHandler) HandlePutPushover(w http.ResponseWriter, r *http.Request) {
	var req PushoverConfigRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if req.UserKey == "" {
		writeError(w, h.logger, http.StatusBadRequest, "user_key is required")
		return
	}

	stored, err := h.storage.PutPushoverConfig(r.Context(), &types.PushoverConfig{
		UserKey:  req.UserKey,
		APIToken: req.APIToken,
	})
	if err != nil {
		h.logger.Error("put-pushover-config-failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.invalidateConfigs()
	writeJSON(w, h.logger, http.StatusOK, stored)
}

// HandleGetPushover handles GET /api/pushover/config requests.
func (h *AlertsHandler) HandleGetPushover(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.storage.GetPushoverConfig(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "Pushover config not found")
		return
	}
	if err != nil {
		h.logger.Error("get-pushover-config-failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, cfg)
}

// HandleDeletePushover handles DELETE /api/pushover/config requests.
func (h *AlertsHandler) HandleDeletePushover(w http.ResponseWriter, r *http.Request) {
	err := h.storage.DeletePushoverConfig(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "Pushover config not found")
		return
	}
	if err != nil {
		h.logger.Error("delete-pushover-config-failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.invalidateConfigs()
	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Message: "Pushover config deleted"})
}

// PushoverTestRequest is the body for sending a test notification.
type PushoverTestRequest struct {
	UserKey  string `json:"user_key"`
	APIToken string `json:"api_token"`
}

// HandleTestPushover handles POST /api/pushover/test requests.
func (h *AlertsHandler) HandleTestPushover(w http.ResponseWriter, r *http.Request) {
	if h.notifier == nil {
		writeError(w, h.logger, http.StatusServiceUnavailable, "Notifier not configured")
		return
	}

	var req PushoverTestRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if req.UserKey == "" {
		writeError(w, h.logger, http.StatusBadRequest, "user_key is required")
		return
	}

	err = h.notifier.Notify(r.Context(), &types.PushoverConfig{
		UserKey:  req.UserKey,
		APIToken: req.APIToken,
	}, &alerting.Notification{
		Title:   "Test Notification",
		Message: "This is a test notification from webmon!",
		Level:   types.AlertLevelMedium,
	})
	if err != nil {
		h.logger.Error("test-notification-failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to send test notification")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Message: "Test notification sent successfully!"})
}
