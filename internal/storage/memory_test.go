package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap/zaptest"
)

func TestMemoryStorage_InsertAndLatest(t *testing.T) {
	storage := NewMemoryStorage(zaptest.NewLogger(t))
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	older := testEvent()
	older.Timestamp = base
	if err := storage.InsertEvent(ctx, older); err != nil {
		t.Fatalf("insert: %v", err)
	}

	newer := testEvent()
	newer.Timestamp = base.Add(time.Minute)
	if err := storage.InsertEvent(ctx, newer); err != nil {
		t.Fatalf("insert: %v", err)
	}

	other := testEvent()
	other.MonitorID = "monitor-456"
	other.Timestamp = base
	if err := storage.InsertEvent(ctx, other); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if older.ID == 0 || newer.ID == 0 || older.ID == newer.ID {
		t.Errorf("expected distinct assigned ids, got %d and %d", older.ID, newer.ID)
	}

	latest, err := storage.LatestEvents(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}

	if len(latest) != 2 {
		t.Fatalf("expected 2 latest events, got %d", len(latest))
	}

	byMonitor := make(map[string]*types.MonitoringEvent)
	for _, event := range latest {
		byMonitor[event.MonitorID] = event
	}

	got, ok := byMonitor["monitor-123"]
	if !ok {
		t.Fatal("expected latest event for monitor-123")
	}
	if !got.Timestamp.Equal(newer.Timestamp) {
		t.Errorf("expected newest event, got timestamp %v", got.Timestamp)
	}
}

func TestMemoryStorage_Stats(t *testing.T) {
	storage := NewMemoryStorage(zaptest.NewLogger(t))
	ctx := context.Background()

	stats, err := storage.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalEvents != 0 || stats.UniqueMonitors != 0 || stats.LatestReceived != nil {
		t.Errorf("unexpected empty stats: %+v", stats)
	}

	first := testEvent()
	second := testEvent()
	second.MonitorID = "monitor-456"
	second.ReceivedAt = first.ReceivedAt.Add(time.Minute)

	if err := storage.InsertEvent(ctx, first); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := storage.InsertEvent(ctx, second); err != nil {
		t.Fatalf("insert: %v", err)
	}

	stats, err = storage.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.TotalEvents != 2 || stats.UniqueMonitors != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.LatestReceived == nil || !stats.LatestReceived.Equal(second.ReceivedAt) {
		t.Errorf("unexpected latest received: %v", stats.LatestReceived)
	}
}

func TestMemoryStorage_AlertConfigs(t *testing.T) {
	storage := NewMemoryStorage(zaptest.NewLogger(t))
	ctx := context.Background()

	if _, err := storage.GetAlertConfig(ctx, "mon-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	upper := 50.0
	created, err := storage.UpsertAlertConfig(ctx, &types.AlertConfig{
		MonitorID:      "mon-a",
		UpperThreshold: &upper,
		Level:          types.AlertLevelMedium,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	lower := 10.0
	updated, err := storage.UpsertAlertConfig(ctx, &types.AlertConfig{
		MonitorID:      "mon-a",
		LowerThreshold: &lower,
		Level:          types.AlertLevelHigh,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("expected created_at preserved on update")
	}
	if updated.UpperThreshold != nil {
		t.Error("expected upper threshold cleared on update")
	}
	if updated.Level != types.AlertLevelHigh {
		t.Errorf("expected level high, got %q", updated.Level)
	}

	configs, err := storage.ListAlertConfigs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("expected 1 config, got %d", len(configs))
	}

	if err := storage.DeleteAlertConfig(ctx, "mon-a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := storage.DeleteAlertConfig(ctx, "mon-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemoryStorage_AlertStateLifecycle(t *testing.T) {
	storage := NewMemoryStorage(zaptest.NewLogger(t))
	ctx := context.Background()

	if _, err := storage.ActiveAlertState(ctx, "mon-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	triggered := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	state := &types.AlertState{
		ID:                "state-1",
		MonitorID:         "mon-a",
		Level:             types.AlertLevelCritical,
		TriggeredAt:       triggered,
		LastNotifiedAt:    triggered,
		NotificationCount: 1,
		Active:            true,
	}
	if err := storage.InsertAlertState(ctx, state); err != nil {
		t.Fatalf("insert: %v", err)
	}

	active, err := storage.ActiveAlertState(ctx, "mon-a")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active.ID != "state-1" {
		t.Errorf("unexpected state: %+v", active)
	}

	renotified := triggered.Add(30 * time.Second)
	if err := storage.TouchAlertState(ctx, "state-1", renotified, 2); err != nil {
		t.Fatalf("touch: %v", err)
	}

	active, err = storage.ActiveAlertState(ctx, "mon-a")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active.NotificationCount != 2 || !active.LastNotifiedAt.Equal(renotified) {
		t.Errorf("touch not applied: %+v", active)
	}

	resolvedAt := triggered.Add(time.Minute)
	if err := storage.ResolveAlertStates(ctx, "mon-a", resolvedAt); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if _, err := storage.ActiveAlertState(ctx, "mon-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after resolve, got %v", err)
	}
}

func TestMemoryStorage_TouchAlertState_NotFound(t *testing.T) {
	storage := NewMemoryStorage(zaptest.NewLogger(t))

	err := storage.TouchAlertState(context.Background(), "missing", time.Now(), 1)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStorage_PushoverConfig(t *testing.T) {
	storage := NewMemoryStorage(zaptest.NewLogger(t))
	ctx := context.Background()

	if _, err := storage.GetPushoverConfig(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	stored, err := storage.PutPushoverConfig(ctx, &types.PushoverConfig{UserKey: "user-key-abc"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if stored.UpdatedAt.IsZero() {
		t.Error("expected updated_at to be set")
	}

	cfg, err := storage.GetPushoverConfig(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cfg.UserKey != "user-key-abc" {
		t.Errorf("unexpected config: %+v", cfg)
	}

	if err := storage.DeletePushoverConfig(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := storage.DeletePushoverConfig(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
