package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/webmonhq/webmon/internal/ingest"
	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap"
)

// WebhookHandler handles webhook ingestion requests.
type WebhookHandler struct {
	ingest *ingest.Service
	secret string
	logger *zap.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(svc *ingest.Service, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		ingest: svc,
		secret: secret,
		logger: logger,
	}
}

// checkToken verifies the ?token= query parameter. An unset secret leaves
// the endpoint open for backward compatibility.
func (h *WebhookHandler) checkToken(w http.ResponseWriter, r *http.Request) bool {
	if h.secret == "" {
		h.logger.Warn("webhook-secret-not-configured")
		return true
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		ingest.WebhooksRejectedTotal.WithLabelValues("missing_token").Inc()
		writeError(w, h.logger, http.StatusUnauthorized,
			"Missing authentication token. Please provide ?token=xxx in URL.")
		return false
	}

	if token != h.secret {
		ingest.WebhooksRejectedTotal.WithLabelValues("invalid_token").Inc()
		writeError(w, h.logger, http.StatusForbidden, "Invalid authentication token")
		return false
	}

	return true
}

// WebhookResponse is returned after a webhook payload is processed.
type WebhookResponse struct {
	Status  string               `json:"status"`
	Message string               `json:"message"`
	Data    *WebhookResponseData `json:"data,omitempty"`
}

// WebhookResponseData identifies the stored event.
type WebhookResponseData struct {
	ID         int64  `json:"id"`
	MonitorID  string `json:"monitor_id"`
	Timestamp  string `json:"timestamp"`
	ReceivedAt string `json:"received_at"`
}

// HandleDistill handles POST /webhook/distill?token=xxx requests.
func (h *WebhookHandler) HandleDistill(w http.ResponseWriter, r *http.Request) {
	if !h.checkToken(w, r) {
		return
	}

	var payload types.WebhookPayload
	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil {
		ingest.WebhooksRejectedTotal.WithLabelValues("invalid_json").Inc()
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	event, err := h.ingest.Process(r.Context(), &payload)
	if err != nil {
		var verr *ingest.ValidationError
		if errors.As(err, &verr) {
			ingest.WebhooksRejectedTotal.WithLabelValues("validation").Inc()
			writeError(w, h.logger, http.StatusBadRequest, verr.Error())
			return
		}

		h.logger.Error("webhook-processing-failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, WebhookResponse{
		Status:  "success",
		Message: "Webhook data received and processed",
		Data: &WebhookResponseData{
			ID:         event.ID,
			MonitorID:  event.MonitorID,
			Timestamp:  event.Timestamp.Format(time.RFC3339),
			ReceivedAt: event.ReceivedAt.Format(time.RFC3339),
		},
	})
}

// TestResponse echoes a test payload back.
type TestResponse struct {
	Status       string                 `json:"status"`
	Message      string                 `json:"message"`
	ReceivedData map[string]interface{} `json:"received_data"`
	ReceivedAt   string                 `json:"received_at"`
}

// HandleTest handles POST /webhook/test requests. Accepts any JSON object
// and returns it without storing anything.
func (h *WebhookHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	var data map[string]interface{}
	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, TestResponse{
		Status:       "success",
		Message:      "Test webhook received",
		ReceivedData: data,
		ReceivedAt:   time.Now().UTC().Format(time.RFC3339),
	})
}

// StatusResponse reports webhook service statistics.
type StatusResponse struct {
	Status string              `json:"status"`
	Stats  *types.WebhookStats `json:"stats"`
}

// HandleStatus handles GET /webhook/status requests.
func (h *WebhookHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ingest.Stats(r.Context())
	if err != nil {
		h.logger.Error("webhook-stats-failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, StatusResponse{
		Status: "operational",
		Stats:  stats,
	})
}
