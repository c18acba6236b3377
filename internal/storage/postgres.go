package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage connects to PostgreSQL and runs pending schema
// migrations before returning.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	err = runMigrations(db, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// InsertEvent stores a monitoring event.
func (p *PostgresStorage) InsertEvent(ctx context.Context, event *types.MonitoringEvent) error {
	query := `
		INSERT INTO monitoring_events (
			monitor_id, monitor_name, url, value, text_value, unit, status,
			event_timestamp, received_at, is_change, change_type, previous_value
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err := p.db.QueryRowContext(ctx, query,
		event.MonitorID,
		nullString(event.MonitorName),
		event.URL,
		event.Value,
		nullString(event.TextValue),
		nullString(event.Unit),
		event.Status,
		event.Timestamp,
		event.ReceivedAt,
		event.IsChange,
		nullString(event.ChangeType),
		event.PreviousValue,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	p.logger.Debug("event-stored",
		zap.Int64("id", event.ID),
		zap.String("monitor-id", event.MonitorID))

	return nil
}

// LatestEvents returns the most recent event per monitor.
func (p *PostgresStorage) LatestEvents(ctx context.Context) ([]*types.MonitoringEvent, error) {
	query := `
		SELECT DISTINCT ON (monitor_id)
			id, monitor_id, monitor_name, url, value, text_value, unit, status,
			event_timestamp, received_at, is_change, change_type, previous_value
		FROM monitoring_events
		ORDER BY monitor_id, event_timestamp DESC
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest events: %w", err)
	}
	defer rows.Close()

	var events []*types.MonitoringEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// Stats summarizes ingestion activity.
func (p *PostgresStorage) Stats(ctx context.Context) (*types.WebhookStats, error) {
	query := `
		SELECT COUNT(*), COUNT(DISTINCT monitor_id), MAX(received_at)
		FROM monitoring_events
	`

	stats := &types.WebhookStats{}
	var latest sql.NullTime

	err := p.db.QueryRowContext(ctx, query).Scan(&stats.TotalEvents, &stats.UniqueMonitors, &latest)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	if latest.Valid {
		stats.LatestReceived = &latest.Time
	}

	return stats, nil
}

// UpsertAlertConfig creates or updates an alert configuration.
func (p *PostgresStorage) UpsertAlertConfig(ctx context.Context, cfg *types.AlertConfig) (*types.AlertConfig, error) {
	query := `
		INSERT INTO alert_configs (monitor_id, upper_threshold, lower_threshold, alert_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (monitor_id) DO UPDATE SET
			upper_threshold = EXCLUDED.upper_threshold,
			lower_threshold = EXCLUDED.lower_threshold,
			alert_level = EXCLUDED.alert_level,
			updated_at = NOW()
		RETURNING monitor_id, upper_threshold, lower_threshold, alert_level, created_at, updated_at
	`

	stored := &types.AlertConfig{}
	err := p.db.QueryRowContext(ctx, query,
		cfg.MonitorID, cfg.UpperThreshold, cfg.LowerThreshold, cfg.Level,
	).Scan(
		&stored.MonitorID, &stored.UpperThreshold, &stored.LowerThreshold,
		&stored.Level, &stored.CreatedAt, &stored.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert alert config: %w", err)
	}

	return stored, nil
}

// GetAlertConfig returns the alert configuration for a monitor.
func (p *PostgresStorage) GetAlertConfig(ctx context.Context, monitorID string) (*types.AlertConfig, error) {
	query := `
		SELECT monitor_id, upper_threshold, lower_threshold, alert_level, created_at, updated_at
		FROM alert_configs WHERE monitor_id = $1
	`

	cfg := &types.AlertConfig{}
	err := p.db.QueryRowContext(ctx, query, monitorID).Scan(
		&cfg.MonitorID, &cfg.UpperThreshold, &cfg.LowerThreshold,
		&cfg.Level, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert config: %w", err)
	}

	return cfg, nil
}

// ListAlertConfigs returns every alert configuration.
func (p *PostgresStorage) ListAlertConfigs(ctx context.Context) ([]*types.AlertConfig, error) {
	query := `
		SELECT monitor_id, upper_threshold, lower_threshold, alert_level, created_at, updated_at
		FROM alert_configs ORDER BY monitor_id
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list alert configs: %w", err)
	}
	defer rows.Close()

	var configs []*types.AlertConfig
	for rows.Next() {
		cfg := &types.AlertConfig{}
		err = rows.Scan(
			&cfg.MonitorID, &cfg.UpperThreshold, &cfg.LowerThreshold,
			&cfg.Level, &cfg.CreatedAt, &cfg.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan alert config: %w", err)
		}
		configs = append(configs, cfg)
	}

	return configs, rows.Err()
}

// DeleteAlertConfig removes an alert configuration.
func (p *PostgresStorage) DeleteAlertConfig(ctx context.Context, monitorID string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM alert_configs WHERE monitor_id = $1`, monitorID)
	if err != nil {
		return fmt.Errorf("delete alert config: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// ActiveAlertState returns the most recently notified active alert.
func (p *PostgresStorage) ActiveAlertState(ctx context.Context, monitorID string) (*types.AlertState, error) {
	query := `
		SELECT id, monitor_id, alert_level, triggered_at, last_notified_at,
			notification_count, resolved_at, is_active
		FROM alert_states
		WHERE monitor_id = $1 AND is_active
		ORDER BY last_notified_at DESC
		LIMIT 1
	`

	state := &types.AlertState{}
	var resolved sql.NullTime

	err := p.db.QueryRowContext(ctx, query, monitorID).Scan(
		&state.ID, &state.MonitorID, &state.Level, &state.TriggeredAt,
		&state.LastNotifiedAt, &state.NotificationCount, &resolved, &state.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get active alert state: %w", err)
	}

	if resolved.Valid {
		state.ResolvedAt = &resolved.Time
	}

	return state, nil
}

// InsertAlertState stores a newly triggered alert.
func (p *PostgresStorage) InsertAlertState(ctx context.Context, state *types.AlertState) error {
	query := `
		INSERT INTO alert_states (id, monitor_id, alert_level, triggered_at,
			last_notified_at, notification_count, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
	`

	_, err := p.db.ExecContext(ctx, query,
		state.ID, state.MonitorID, state.Level, state.TriggeredAt,
		state.LastNotifiedAt, state.NotificationCount,
	)
	if err != nil {
		return fmt.Errorf("insert alert state: %w", err)
	}

	return nil
}

// TouchAlertState updates renotification bookkeeping.
func (p *PostgresStorage) TouchAlertState(ctx context.Context, id string, notifiedAt time.Time, count int) error {
	query := `
		UPDATE alert_states SET last_notified_at = $2, notification_count = $3
		WHERE id = $1
	`

	_, err := p.db.ExecContext(ctx, query, id, notifiedAt, count)
	if err != nil {
		return fmt.Errorf("touch alert state: %w", err)
	}

	return nil
}

// ResolveAlertStates resolves every active alert for a monitor.
func (p *PostgresStorage) ResolveAlertStates(ctx context.Context, monitorID string, at time.Time) error {
	query := `
		UPDATE alert_states SET is_active = FALSE, resolved_at = $2
		WHERE monitor_id = $1 AND is_active
	`

	_, err := p.db.ExecContext(ctx, query, monitorID, at)
	if err != nil {
		return fmt.Errorf("resolve alert states: %w", err)
	}

	return nil
}

// GetPushoverConfig returns the Pushover delivery config.
func (p *PostgresStorage) GetPushoverConfig(ctx context.Context) (*types.PushoverConfig, error) {
	query := `SELECT user_key, api_token, updated_at FROM pushover_config WHERE id = 1`

	cfg := &types.PushoverConfig{}
	var token sql.NullString

	err := p.db.QueryRowContext(ctx, query).Scan(&cfg.UserKey, &token, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pushover config: %w", err)
	}

	cfg.APIToken = token.String

	return cfg, nil
}

// PutPushoverConfig creates or replaces the Pushover delivery config.
func (p *PostgresStorage) PutPushoverConfig(ctx context.Context, cfg *types.PushoverConfig) (*types.PushoverConfig, error) {
	query := `
		INSERT INTO pushover_config (id, user_key, api_token, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET
			user_key = EXCLUDED.user_key,
			api_token = EXCLUDED.api_token,
			updated_at = NOW()
		RETURNING user_key, api_token, updated_at
	`

	stored := &types.PushoverConfig{}
	var token sql.NullString

	err := p.db.QueryRowContext(ctx, query, cfg.UserKey, nullString(cfg.APIToken)).
		Scan(&stored.UserKey, &token, &stored.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("put pushover config: %w", err)
	}

	stored.APIToken = token.String

	return stored, nil
}

// DeletePushoverConfig removes the Pushover delivery config.
func (p *PostgresStorage) DeletePushoverConfig(ctx context.Context) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM pushover_config WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("delete pushover config: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*types.MonitoringEvent, error) {
	event := &types.MonitoringEvent{}
	var (
		monitorName sql.NullString
		textValue   sql.NullString
		unit        sql.NullString
		changeType  sql.NullString
	)

	err := row.Scan(
		&event.ID, &event.MonitorID, &monitorName, &event.URL, &event.Value,
		&textValue, &unit, &event.Status, &event.Timestamp, &event.ReceivedAt,
		&event.IsChange, &changeType, &event.PreviousValue,
	)
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}

	event.MonitorName = monitorName.String
	event.TextValue = textValue.String
	event.Unit = unit.String
	event.ChangeType = changeType.String

	return event, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
