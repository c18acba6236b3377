package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/webmonhq/webmon/internal/storage"
	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap"
)

// ValidationError reports a webhook payload missing a required field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Service turns webhook payloads into persisted monitoring events.
type Service struct {
	storage storage.Storage
	logger  *zap.Logger

	now func() time.Time
}

// ServiceConfig holds ingestion service configuration.
type ServiceConfig struct {
	Storage storage.Storage
	Logger  *zap.Logger
}

// NewService creates a new ingestion service.
func NewService(cfg *ServiceConfig) (*Service, error) {
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Service{
		storage: cfg.Storage,
		logger:  cfg.Logger,
		now:     time.Now,
	}, nil
}

// Process validates a webhook payload, extracts its numeric value, and
// persists the resulting monitoring event.
func (s *Service) Process(ctx context.Context, payload *types.WebhookPayload) (*types.MonitoringEvent, error) {
	monitorID := payload.EffectiveMonitorID()
	url := payload.EffectiveURL()
	text := payload.EffectiveText()

	switch {
	case monitorID == "":
		return nil, &ValidationError{Field: "id or monitor_id"}
	case url == "":
		return nil, &ValidationError{Field: "uri or url"}
	case text == "":
		return nil, &ValidationError{Field: "text or text_value"}
	}

	now := s.now().UTC()

	value, unit := ParseValue(text)
	if value == nil {
		// Not a number, keep the explicit payload value if present.
		value = payload.Value
		s.logger.Debug("no-numeric-value-in-text", zap.String("text", text))
	}

	timestamp := now
	if payload.Timestamp != "" {
		parsed, ok := ParseTimestamp(payload.Timestamp, now)
		if !ok {
			s.logger.Warn("unparseable-timestamp",
				zap.String("timestamp", payload.Timestamp),
				zap.String("monitor-id", monitorID))
		}
		timestamp = parsed
	}

	status := payload.Status
	if status == "" {
		status = "monitored"
	}

	event := &types.MonitoringEvent{
		MonitorID:     monitorID,
		MonitorName:   payload.EffectiveMonitorName(),
		URL:           url,
		Value:         value,
		TextValue:     text,
		Unit:          unit,
		Status:        status,
		Timestamp:     timestamp,
		ReceivedAt:    now,
		IsChange:      payload.IsChange,
		ChangeType:    payload.ChangeType,
		PreviousValue: payload.PreviousValue,
	}

	err := s.storage.InsertEvent(ctx, event)
	if err != nil {
		EventsFailedTotal.Inc()
		return nil, fmt.Errorf("store event: %w", err)
	}

	EventsStoredTotal.Inc()
	s.logger.Info("monitoring-event-stored",
		zap.Int64("id", event.ID),
		zap.String("monitor-id", monitorID),
		zap.Float64p("value", value),
		zap.String("unit", unit))

	return event, nil
}

// Stats returns ingestion statistics for the status endpoint.
func (s *Service) Stats(ctx context.Context) (*types.WebhookStats, error) {
	return s.storage.Stats(ctx)
}
