package storage

import (
	"context"
	"sync"
	"time"

	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap"
)

// MemoryStorage implements Storage with in-process maps. Used in dev mode,
// where no database is configured, and in tests. Contents are lost on
// restart.
type MemoryStorage struct {
	logger *zap.Logger

	mu           sync.RWMutex
	nextEventID  int64
	events       []*types.MonitoringEvent
	alertConfigs map[string]*types.AlertConfig
	alertStates  []*types.AlertState
	pushover     *types.PushoverConfig
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage(logger *zap.Logger) *MemoryStorage {
	logger.Info("memory-storage-initialized")

	return &MemoryStorage{
		logger:       logger,
		alertConfigs: make(map[string]*types.AlertConfig),
	}
}

// InsertEvent stores a monitoring event.
func (m *MemoryStorage) InsertEvent(ctx context.Context, event *types.MonitoringEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextEventID++
	event.ID = m.nextEventID

	stored := *event
	m.events = append(m.events, &stored)

	return nil
}

// LatestEvents returns the most recent event per monitor.
func (m *MemoryStorage) LatestEvents(ctx context.Context) ([]*types.MonitoringEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := make(map[string]*types.MonitoringEvent)
	for _, event := range m.events {
		current, ok := latest[event.MonitorID]
		if !ok || event.Timestamp.After(current.Timestamp) {
			latest[event.MonitorID] = event
		}
	}

	out := make([]*types.MonitoringEvent, 0, len(latest))
	for _, event := range latest {
		copied := *event
		out = append(out, &copied)
	}

	return out, nil
}

// Stats summarizes ingestion activity.
func (m *MemoryStorage) Stats(ctx context.Context) (*types.WebhookStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &types.WebhookStats{TotalEvents: int64(len(m.events))}

	monitors := make(map[string]struct{})
	for _, event := range m.events {
		monitors[event.MonitorID] = struct{}{}
		if stats.LatestReceived == nil || event.ReceivedAt.After(*stats.LatestReceived) {
			received := event.ReceivedAt
			stats.LatestReceived = &received
		}
	}
	stats.UniqueMonitors = int64(len(monitors))

	return stats, nil
}

// UpsertAlertConfig creates or updates an alert configuration.
func (m *MemoryStorage) UpsertAlertConfig(ctx context.Context, cfg *types.AlertConfig) (*types.AlertConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()

	stored, ok := m.alertConfigs[cfg.MonitorID]
	if !ok {
		stored = &types.AlertConfig{MonitorID: cfg.MonitorID, CreatedAt: now}
		m.alertConfigs[cfg.MonitorID] = stored
	}

	stored.UpperThreshold = cfg.UpperThreshold
	stored.LowerThreshold = cfg.LowerThreshold
	stored.Level = cfg.Level
	stored.UpdatedAt = now

	copied := *stored

	return &copied, nil
}

// GetAlertConfig returns the alert configuration for a monitor.
func (m *MemoryStorage) GetAlertConfig(ctx context.Context, monitorID string) (*types.AlertConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.alertConfigs[monitorID]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *stored

	return &copied, nil
}

// ListAlertConfigs returns every alert configuration.
func (m *MemoryStorage) ListAlertConfigs(ctx context.Context) ([]*types.AlertConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.AlertConfig, 0, len(m.alertConfigs))
	for _, cfg := range m.alertConfigs {
		copied := *cfg
		out = append(out, &copied)
	}

	return out, nil
}

// DeleteAlertConfig removes an alert configuration.
func (m *MemoryStorage) DeleteAlertConfig(ctx context.Context, monitorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.alertConfigs[monitorID]; !ok {
		return ErrNotFound
	}

	delete(m.alertConfigs, monitorID)

	return nil
}

// ActiveAlertState returns the most recently notified active alert.
func (m *MemoryStorage) ActiveAlertState(ctx context.Context, monitorID string) (*types.AlertState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *types.AlertState
	for _, state := range m.alertStates {
		if state.MonitorID != monitorID || !state.Active {
			continue
		}
		if found == nil || state.LastNotifiedAt.After(found.LastNotifiedAt) {
			found = state
		}
	}

	if found == nil {
		return nil, ErrNotFound
	}

	copied := *found

	return &copied, nil
}

// InsertAlertState stores a newly triggered alert.
func (m *MemoryStorage) InsertAlertState(ctx context.Context, state *types.AlertState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *state
	m.alertStates = append(m.alertStates, &copied)

	return nil
}

// TouchAlertState updates renotification bookkeeping.
func (m *MemoryStorage) TouchAlertState(ctx context.Context, id string, notifiedAt time.Time, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, state := range m.alertStates {
		if state.ID == id {
			state.LastNotifiedAt = notifiedAt
			state.NotificationCount = count
			return nil
		}
	}

	return ErrNotFound
}

// ResolveAlertStates resolves every active alert for a monitor.
func (m *MemoryStorage) ResolveAlertStates(ctx context.Context, monitorID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, state := range m.alertStates {
		if state.MonitorID == monitorID && state.Active {
			state.Active = false
			resolved := at
			state.ResolvedAt = &resolved
		}
	}

	return nil
}

// GetPushoverConfig returns the Pushover delivery config.
func (m *MemoryStorage) GetPushoverConfig(ctx context.Context) (*types.PushoverConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.pushover == nil {
		return nil, ErrNotFound
	}

	copied := *m.pushover

	return &copied, nil
}

// PutPushoverConfig creates or replaces the Pushover delivery config.
func (m *MemoryStorage) PutPushoverConfig(ctx context.Context, cfg *types.PushoverConfig) (*types.PushoverConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *cfg
	stored.UpdatedAt = time.Now().UTC()
	m.pushover = &stored

	copied := stored

	return &copied, nil
}

// DeletePushoverConfig removes the Pushover delivery config.
func (m *MemoryStorage) DeletePushoverConfig(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pushover == nil {
		return ErrNotFound
	}

	m.pushover = nil

	return nil
}

// Close is a no-op for memory storage.
func (m *MemoryStorage) Close() error {
	m.logger.Info("closing-memory-storage")
	return nil
}
