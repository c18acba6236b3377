package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap"
)

func newMockStorage(t *testing.T) (*PostgresStorage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger, _ := zap.NewDevelopment()

	return &PostgresStorage{db: db, logger: logger}, mock
}

func testEvent() *types.MonitoringEvent {
	value := 42.5
	return &types.MonitoringEvent{
		MonitorID:   "monitor-123",
		MonitorName: "TVL Tracker",
		URL:         "https://example.com/tvl",
		Value:       &value,
		TextValue:   "42.5%",
		Unit:        "%",
		Status:      "received",
		Timestamp:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		ReceivedAt:  time.Date(2025, 6, 1, 12, 0, 1, 0, time.UTC),
	}
}

func TestPostgresStorage_InsertEvent(t *testing.T) {
	storage, mock := newMockStorage(t)

	event := testEvent()
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO monitoring_events").
		WithArgs(
			event.MonitorID,
			sqlmock.AnyArg(), // monitor_name
			event.URL,
			event.Value,
			sqlmock.AnyArg(), // text_value
			sqlmock.AnyArg(), // unit
			event.Status,
			event.Timestamp,
			event.ReceivedAt,
			event.IsChange,
			sqlmock.AnyArg(), // change_type
			event.PreviousValue,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	err := storage.InsertEvent(ctx, event)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if event.ID != 7 {
		t.Errorf("expected assigned id 7, got %d", event.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_InsertEvent_Error(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery("INSERT INTO monitoring_events").
		WillReturnError(sqlmock.ErrCancelled)

	err := storage.InsertEvent(context.Background(), testEvent())
	if err == nil {
		t.Error("expected error, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_LatestEvents(t *testing.T) {
	storage, mock := newMockStorage(t)

	columns := []string{
		"id", "monitor_id", "monitor_name", "url", "value", "text_value",
		"unit", "status", "event_timestamp", "received_at", "is_change",
		"change_type", "previous_value",
	}

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT DISTINCT ON \\(monitor_id\\)").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(1), "mon-a", "Monitor A", "https://a.example.com", 1.5, "1.5%", "%", "received", ts, ts, false, nil, nil).
			AddRow(int64(2), "mon-b", nil, "https://b.example.com", nil, nil, nil, "received", ts, ts, true, "value_change", 2.0))

	events, err := storage.LatestEvents(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	if events[0].MonitorID != "mon-a" || *events[0].Value != 1.5 {
		t.Errorf("unexpected first event: %+v", events[0])
	}

	if events[1].Value != nil {
		t.Errorf("expected nil value for second event, got %v", *events[1].Value)
	}

	if events[1].MonitorName != "" {
		t.Errorf("expected empty monitor name, got %q", events[1].MonitorName)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_Stats(t *testing.T) {
	storage, mock := newMockStorage(t)

	latest := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\), COUNT\\(DISTINCT monitor_id\\), MAX\\(received_at\\)").
		WillReturnRows(sqlmock.NewRows([]string{"count", "count", "max"}).
			AddRow(int64(10), int64(3), latest))

	stats, err := storage.Stats(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if stats.TotalEvents != 10 || stats.UniqueMonitors != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	if stats.LatestReceived == nil || !stats.LatestReceived.Equal(latest) {
		t.Errorf("unexpected latest received: %v", stats.LatestReceived)
	}
}

func TestPostgresStorage_Stats_Empty(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\), COUNT\\(DISTINCT monitor_id\\), MAX\\(received_at\\)").
		WillReturnRows(sqlmock.NewRows([]string{"count", "count", "max"}).
			AddRow(int64(0), int64(0), nil))

	stats, err := storage.Stats(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if stats.TotalEvents != 0 {
		t.Errorf("expected 0 events, got %d", stats.TotalEvents)
	}

	if stats.LatestReceived != nil {
		t.Errorf("expected nil latest received, got %v", stats.LatestReceived)
	}
}

func TestPostgresStorage_GetAlertConfig_NotFound(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery("SELECT monitor_id, upper_threshold").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"monitor_id"}))

	_, err := storage.GetAlertConfig(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresStorage_UpsertAlertConfig(t *testing.T) {
	storage, mock := newMockStorage(t)

	upper := 100.0
	cfg := &types.AlertConfig{
		MonitorID:      "mon-a",
		UpperThreshold: &upper,
		Level:          types.AlertLevelHigh,
	}

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO alert_configs").
		WithArgs(cfg.MonitorID, cfg.UpperThreshold, cfg.LowerThreshold, cfg.Level).
		WillReturnRows(sqlmock.NewRows([]string{
			"monitor_id", "upper_threshold", "lower_threshold", "alert_level", "created_at", "updated_at",
		}).AddRow("mon-a", 100.0, nil, "high", now, now))

	stored, err := storage.UpsertAlertConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if stored.MonitorID != "mon-a" || *stored.UpperThreshold != 100.0 {
		t.Errorf("unexpected stored config: %+v", stored)
	}

	if stored.LowerThreshold != nil {
		t.Errorf("expected nil lower threshold, got %v", *stored.LowerThreshold)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_DeleteAlertConfig_NotFound(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectExec("DELETE FROM alert_configs").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := storage.DeleteAlertConfig(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresStorage_AlertStateLifecycle(t *testing.T) {
	storage, mock := newMockStorage(t)
	ctx := context.Background()

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

	mock.ExpectExec("INSERT INTO alert_states").
		WithArgs(state.ID, state.MonitorID, state.Level, state.TriggeredAt,
			state.LastNotifiedAt, state.NotificationCount).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := storage.InsertAlertState(ctx, state); err != nil {
		t.Fatalf("insert: %v", err)
	}

	mock.ExpectQuery("SELECT id, monitor_id, alert_level").
		WithArgs("mon-a").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "monitor_id", "alert_level", "triggered_at", "last_notified_at",
			"notification_count", "resolved_at", "is_active",
		}).AddRow("state-1", "mon-a", "critical", triggered, triggered, 1, nil, true))

	active, err := storage.ActiveAlertState(ctx, "mon-a")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active.ID != "state-1" || !active.Active {
		t.Errorf("unexpected active state: %+v", active)
	}

	renotified := triggered.Add(30 * time.Second)
	mock.ExpectExec("UPDATE alert_states SET last_notified_at").
		WithArgs("state-1", renotified, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := storage.TouchAlertState(ctx, "state-1", renotified, 2); err != nil {
		t.Fatalf("touch: %v", err)
	}

	resolvedAt := triggered.Add(time.Minute)
	mock.ExpectExec("UPDATE alert_states SET is_active = FALSE").
		WithArgs("mon-a", resolvedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := storage.ResolveAlertStates(ctx, "mon-a", resolvedAt); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_PushoverConfig(t *testing.T) {
	storage, mock := newMockStorage(t)
	ctx := context.Background()

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO pushover_config").
		WithArgs("user-key-abc", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"user_key", "api_token", "updated_at"}).
			AddRow("user-key-abc", nil, now))

	stored, err := storage.PutPushoverConfig(ctx, &types.PushoverConfig{UserKey: "user-key-abc"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if stored.UserKey != "user-key-abc" || stored.APIToken != "" {
		t.Errorf("unexpected stored config: %+v", stored)
	}

	mock.ExpectQuery("SELECT user_key, api_token, updated_at FROM pushover_config").
		WillReturnRows(sqlmock.NewRows([]string{"user_key", "api_token", "updated_at"}).
			AddRow("user-key-abc", "app-token", now))

	cfg, err := storage.GetPushoverConfig(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cfg.APIToken != "app-token" {
		t.Errorf("expected api token, got %q", cfg.APIToken)
	}

	mock.ExpectExec("DELETE FROM pushover_config").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := storage.DeletePushoverConfig(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	mock.ExpectClose()

	if err := storage.Close(); err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStorage_Interface(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	var _ Storage = NewMemoryStorage(logger)

	db, _, _ := sqlmock.New()
	defer db.Close()

	var _ Storage = &PostgresStorage{db: db, logger: logger}
}
