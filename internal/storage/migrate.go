package storage

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// migration is one versioned schema step. Migrations run in order inside a
// transaction each, exactly once, before the service starts serving traffic.
type migration struct {
	version int
	name    string
	stmts   []string
}

//nolint:gochecknoglobals // Static schema definition
var migrations = []migration{
	{
		version: 1,
		name:    "monitoring-events",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS monitoring_events (
				id BIGSERIAL PRIMARY KEY,
				monitor_id TEXT NOT NULL,
				monitor_name TEXT,
				url TEXT NOT NULL,
				value DOUBLE PRECISION,
				text_value TEXT,
				unit TEXT,
				status TEXT NOT NULL,
				event_timestamp TIMESTAMPTZ NOT NULL,
				received_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				is_change BOOLEAN NOT NULL DEFAULT FALSE,
				change_type TEXT,
				previous_value DOUBLE PRECISION
			)`,
			`CREATE INDEX IF NOT EXISTS idx_monitoring_events_monitor
				ON monitoring_events (monitor_id, event_timestamp DESC)`,
		},
	},
	{
		version: 2,
		name:    "alert-configs",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS alert_configs (
				monitor_id TEXT PRIMARY KEY,
				upper_threshold DOUBLE PRECISION,
				lower_threshold DOUBLE PRECISION,
				alert_level TEXT NOT NULL DEFAULT 'medium',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
		},
	},
	{
		version: 3,
		name:    "alert-states",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS alert_states (
				id TEXT PRIMARY KEY,
				monitor_id TEXT NOT NULL,
				alert_level TEXT NOT NULL,
				triggered_at TIMESTAMPTZ NOT NULL,
				last_notified_at TIMESTAMPTZ NOT NULL,
				notification_count INTEGER NOT NULL DEFAULT 1,
				resolved_at TIMESTAMPTZ,
				is_active BOOLEAN NOT NULL DEFAULT TRUE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_alert_states_active
				ON alert_states (monitor_id) WHERE is_active`,
		},
	},
	{
		version: 4,
		name:    "pushover-config",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS pushover_config (
				id INTEGER PRIMARY KEY DEFAULT 1 CHECK (id = 1),
				user_key TEXT NOT NULL,
				api_token TEXT,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
		},
	},
}

// runMigrations applies any migrations newer than the recorded schema
// version.
func runMigrations(db *sql.DB, logger *zap.Logger) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current sql.NullInt64
	err = db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if current.Valid && int64(m.version) <= current.Int64 {
			continue
		}

		err = applyMigration(db, m)
		if err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}

		logger.Info("migration-applied",
			zap.Int("version", m.version),
			zap.String("name", m.name))
	}

	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	for _, stmt := range m.stmts {
		_, err = tx.Exec(stmt)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec: %w", err)
		}
	}

	_, err = tx.Exec(`INSERT INTO schema_migrations (version) VALUES ($1)`, m.version)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record version: %w", err)
	}

	return tx.Commit()
}
