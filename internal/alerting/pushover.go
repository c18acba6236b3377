package alerting

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap"
)

const pushoverAPIURL = "https://api.pushover.net/1/messages.json"

// Notification is a single alert message to deliver.
type Notification struct {
	Title   string
	Message string
	Level   string
	URL     string
}

// Notifier delivers alert notifications.
type Notifier interface {
	Notify(ctx context.Context, creds *types.PushoverConfig, n *Notification) error
}

// levelParams holds Pushover delivery parameters for one alert level.
type levelParams struct {
	priority int
	sound    string
	retry    int
	expire   int
}

// Delivery parameters per level. Critical uses emergency priority, which
// requires retry and expire.
var pushoverLevels = map[string]levelParams{
	types.AlertLevelCritical: {priority: 2, sound: "siren", retry: 30, expire: 3600},
	types.AlertLevelHigh:     {priority: 1, sound: "persistent"},
	types.AlertLevelMedium:   {priority: 0, sound: "pushover"},
	types.AlertLevelLow:      {priority: -1, sound: "none"},
}

// PushoverNotifier delivers notifications through the Pushover API.
type PushoverNotifier struct {
	client          *http.Client
	logger          *zap.Logger
	apiURL          string
	defaultAppToken string
}

// PushoverNotifierConfig holds Pushover notifier configuration.
type PushoverNotifierConfig struct {
	// DefaultAppToken is used when the stored config has no api_token.
	DefaultAppToken string
	Logger          *zap.Logger
}

// NewPushoverNotifier creates a Pushover-backed notifier.
func NewPushoverNotifier(cfg *PushoverNotifierConfig) (*PushoverNotifier, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &PushoverNotifier{
		client:          &http.Client{Timeout: 10 * time.Second},
		logger:          cfg.Logger,
		apiURL:          pushoverAPIURL,
		defaultAppToken: cfg.DefaultAppToken,
	}, nil
}

// Notify sends one notification. The stored api_token wins over the
// application default.
func (p *PushoverNotifier) Notify(ctx context.Context, creds *types.PushoverConfig, n *Notification) error {
	if creds == nil || creds.UserKey == "" {
		return fmt.Errorf("pushover user key not configured")
	}

	token := creds.APIToken
	if token == "" {
		token = p.defaultAppToken
	}
	if token == "" {
		return fmt.Errorf("pushover api token not configured")
	}

	params, ok := pushoverLevels[n.Level]
	if !ok {
		params = pushoverLevels[types.AlertLevelMedium]
	}

	form := url.Values{}
	form.Set("token", token)
	form.Set("user", creds.UserKey)
	form.Set("message", n.Message)
	form.Set("title", n.Title)
	form.Set("priority", strconv.Itoa(params.priority))
	form.Set("sound", params.sound)

	if n.Level == types.AlertLevelCritical {
		form.Set("retry", strconv.Itoa(params.retry))
		form.Set("expire", strconv.Itoa(params.expire))
	}

	if n.URL != "" {
		form.Set("url", n.URL)
		form.Set("url_title", "View Dashboard")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create pushover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		NotificationErrorsTotal.Inc()
		return fmt.Errorf("send pushover notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		NotificationErrorsTotal.Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pushover returned status %d: %s", resp.StatusCode, string(body))
	}

	NotificationsSentTotal.WithLabelValues(n.Level).Inc()
	p.logger.Info("pushover-notification-sent",
		zap.String("title", n.Title),
		zap.String("level", n.Level))

	return nil
}

// formatAlertMessage builds the notification body for a threshold breach.
func formatAlertMessage(event *types.MonitoringEvent, cfg *types.AlertConfig) string {
	value := *event.Value

	valueStr := formatWithUnit(value, event.Unit)

	reason := "Threshold exceeded"
	switch {
	case cfg.UpperThreshold != nil && value > *cfg.UpperThreshold:
		reason = "Above threshold: " + formatWithUnit(*cfg.UpperThreshold, event.Unit)
	case cfg.LowerThreshold != nil && value < *cfg.LowerThreshold:
		reason = "Below threshold: " + formatWithUnit(*cfg.LowerThreshold, event.Unit)
	}

	return fmt.Sprintf("Current: %s\n%s", valueStr, reason)
}

func formatWithUnit(value float64, unit string) string {
	s := fmt.Sprintf("%.2f", value)
	if unit != "" {
		s += " " + unit
	}
	return s
}
