package storage

import (
	"context"
	"errors"
	"time"

	"github.com/webmonhq/webmon/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage persists monitoring events, alert configuration and alert state.
type Storage interface {
	// InsertEvent stores a monitoring event and assigns its ID.
	InsertEvent(ctx context.Context, event *types.MonitoringEvent) error

	// LatestEvents returns the most recent event for every known monitor.
	LatestEvents(ctx context.Context) ([]*types.MonitoringEvent, error)

	// Stats summarizes ingestion activity.
	Stats(ctx context.Context) (*types.WebhookStats, error)

	// UpsertAlertConfig creates or updates the alert configuration for a
	// monitor and returns the stored record.
	UpsertAlertConfig(ctx context.Context, cfg *types.AlertConfig) (*types.AlertConfig, error)

	// GetAlertConfig returns the alert configuration for a monitor, or
	// ErrNotFound.
	GetAlertConfig(ctx context.Context, monitorID string) (*types.AlertConfig, error)

	// ListAlertConfigs returns every alert configuration.
	ListAlertConfigs(ctx context.Context) ([]*types.AlertConfig, error)

	// DeleteAlertConfig removes the alert configuration for a monitor.
	// Returns ErrNotFound if none exists.
	DeleteAlertConfig(ctx context.Context, monitorID string) error

	// ActiveAlertState returns the most recently notified active alert for a
	// monitor, or ErrNotFound.
	ActiveAlertState(ctx context.Context, monitorID string) (*types.AlertState, error)

	// InsertAlertState stores a newly triggered alert state.
	InsertAlertState(ctx context.Context, state *types.AlertState) error

	// TouchAlertState updates the renotification bookkeeping of an alert.
	TouchAlertState(ctx context.Context, id string, notifiedAt time.Time, count int) error

	// ResolveAlertStates marks every active alert for a monitor as resolved.
	ResolveAlertStates(ctx context.Context, monitorID string, at time.Time) error

	// GetPushoverConfig returns the Pushover delivery config, or ErrNotFound.
	GetPushoverConfig(ctx context.Context) (*types.PushoverConfig, error)

	// PutPushoverConfig creates or replaces the Pushover delivery config.
	PutPushoverConfig(ctx context.Context, cfg *types.PushoverConfig) (*types.PushoverConfig, error)

	// DeletePushoverConfig removes the Pushover delivery config.
	// Returns ErrNotFound if none exists.
	DeletePushoverConfig(ctx context.Context) error

	// Close closes the storage connection.
	Close() error
}
