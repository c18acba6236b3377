package types

import "time"

// WebhookPayload is the JSON body Distill sends to the webhook endpoint.
// Distill uses id/uri/text; the legacy field names are accepted for backward
// compatibility with older monitor configurations.
type WebhookPayload struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	URI  string `json:"uri"`
	Text string `json:"text"`

	// Legacy aliases
	MonitorID     string   `json:"monitor_id,omitempty"`
	MonitorName   string   `json:"monitor_name,omitempty"`
	URL           string   `json:"url,omitempty"`
	Value         *float64 `json:"value,omitempty"`
	TextValue     string   `json:"text_value,omitempty"`
	Status        string   `json:"status,omitempty"`
	Timestamp     string   `json:"timestamp,omitempty"`
	IsChange      bool     `json:"is_change,omitempty"`
	ChangeType    string   `json:"change_type,omitempty"`
	PreviousValue *float64 `json:"previous_value,omitempty"`
}

// EffectiveMonitorID returns the monitor identifier, preferring the Distill
// field over the legacy one.
func (p *WebhookPayload) EffectiveMonitorID() string {
	if p.ID != "" {
		return p.ID
	}

	return p.MonitorID
}

// EffectiveMonitorName returns the monitor display name.
func (p *WebhookPayload) EffectiveMonitorName() string {
	if p.Name != "" {
		return p.Name
	}

	return p.MonitorName
}

// EffectiveURL returns the monitored URL.
func (p *WebhookPayload) EffectiveURL() string {
	if p.URI != "" {
		return p.URI
	}

	return p.URL
}

// EffectiveText returns the extracted text value.
func (p *WebhookPayload) EffectiveText() string {
	if p.Text != "" {
		return p.Text
	}

	return p.TextValue
}

// MonitoringEvent is a persisted observation for one monitor.
type MonitoringEvent struct {
	ID            int64     `json:"id"`
	MonitorID     string    `json:"monitor_id"`
	MonitorName   string    `json:"monitor_name,omitempty"`
	URL           string    `json:"url"`
	Value         *float64  `json:"value"`
	TextValue     string    `json:"text_value,omitempty"`
	Unit          string    `json:"unit,omitempty"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	ReceivedAt    time.Time `json:"webhook_received_at"`
	IsChange      bool      `json:"is_change"`
	ChangeType    string    `json:"change_type,omitempty"`
	PreviousValue *float64  `json:"previous_value,omitempty"`
}

// WebhookStats summarizes ingestion activity for the status endpoint.
type WebhookStats struct {
	TotalEvents    int64      `json:"total_records"`
	UniqueMonitors int64      `json:"unique_monitors"`
	LatestReceived *time.Time `json:"latest_record,omitempty"`
}
