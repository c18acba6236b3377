package types

import "time"

// Alert severity levels, ordered from most to least urgent.
const (
	AlertLevelCritical = "critical"
	AlertLevelHigh     = "high"
	AlertLevelMedium   = "medium"
	AlertLevelLow      = "low"
)

// ValidAlertLevel reports whether level is one of the known severities.
func ValidAlertLevel(level string) bool {
	switch level {
	case AlertLevelCritical, AlertLevelHigh, AlertLevelMedium, AlertLevelLow:
		return true
	}

	return false
}

// AlertConfig holds user-configured thresholds for a monitor. A nil threshold
// means that side is not checked.
type AlertConfig struct {
	MonitorID      string    `json:"monitor_id"`
	UpperThreshold *float64  `json:"upper_threshold"`
	LowerThreshold *float64  `json:"lower_threshold"`
	Level          string    `json:"alert_level"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Breached reports whether value exceeds either configured threshold.
func (c *AlertConfig) Breached(value float64) bool {
	if c.UpperThreshold != nil && value > *c.UpperThreshold {
		return true
	}

	if c.LowerThreshold != nil && value < *c.LowerThreshold {
		return true
	}

	return false
}

// AlertState tracks the lifecycle of a triggered alert: created on first
// breach, renotified on a per-level cadence while the breach persists, and
// resolved once the value returns within thresholds.
type AlertState struct {
	ID                string     `json:"id"`
	MonitorID         string     `json:"monitor_id"`
	Level             string     `json:"alert_level"`
	TriggeredAt       time.Time  `json:"triggered_at"`
	LastNotifiedAt    time.Time  `json:"last_notified_at"`
	NotificationCount int        `json:"notification_count"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	Active            bool       `json:"is_active"`
}

// PushoverConfig holds the Pushover delivery credentials. APIToken is
// optional; the notifier falls back to the application default.
type PushoverConfig struct {
	UserKey   string    `json:"user_key"`
	APIToken  string    `json:"api_token,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
