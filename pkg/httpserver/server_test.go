package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/webmonhq/webmon/internal/alerting"
	"github.com/webmonhq/webmon/internal/ingest"
	"github.com/webmonhq/webmon/internal/ratecache"
	"github.com/webmonhq/webmon/internal/storage"
	"github.com/webmonhq/webmon/pkg/healthprobe"
	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type stubFetcher struct {
	snap *ratecache.Snapshot
	err  error
}

func (s *stubFetcher) Fetch(context.Context) (*ratecache.Snapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

type stubNotifier struct {
	lastCreds *types.PushoverConfig
	lastNotif *alerting.Notification
	err       error
}

func (s *stubNotifier) Notify(_ context.Context, creds *types.PushoverConfig, n *alerting.Notification) error {
	s.lastCreds = creds
	s.lastNotif = n
	return s.err
}

type fixture struct {
	ts       *httptest.Server
	store    *storage.MemoryStorage
	notifier *stubNotifier
}

func newFixture(t *testing.T, fetcher ratecache.Fetcher, secret string) *fixture {
	t.Helper()

	logger := zaptest.NewLogger(t)
	store := storage.NewMemoryStorage(logger)

	svc, err := ingest.NewService(&ingest.ServiceConfig{Storage: store, Logger: logger})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	rc, err := ratecache.New(&ratecache.Config{
		Fetcher:            fetcher,
		StalenessThreshold: time.Minute,
		FetchTimeout:       time.Second,
		Logger:             logger,
	})
	if err != nil {
		t.Fatalf("ratecache.New: %v", err)
	}

	notifier := &stubNotifier{}

	server := New(&Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthprobe.New(),
		Ingest:        svc,
		RateCache:     rc,
		Storage:       store,
		Notifier:      notifier,
		WebhookSecret: secret,
	})

	ts := httptest.NewServer(server.server.Handler)
	t.Cleanup(ts.Close)

	return &fixture{ts: ts, store: store, notifier: notifier}
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}

	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestNew(t *testing.T) {
	logger := zap.NewNop()

	server := New(&Config{
		Port:          "8080",
		Logger:        logger,
		HealthChecker: healthprobe.New(),
	})

	if server == nil {
		t.Fatal("New() returned nil server")
	}
	if server.server == nil {
		t.Error("New() server.server is nil")
	}
}

func TestWebhookDistill_TokenAuth(t *testing.T) {
	f := newFixture(t, &stubFetcher{err: errors.New("unused")}, "s3cret")

	payload := types.WebhookPayload{
		ID:   "mon-a",
		URI:  "https://example.com",
		Text: "42.5%",
	}

	t.Run("missing token", func(t *testing.T) {
		resp := postJSON(t, f.ts.URL+"/webhook/distill", payload)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		resp := postJSON(t, f.ts.URL+"/webhook/distill?token=wrong", payload)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403, got %d", resp.StatusCode)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		resp := postJSON(t, f.ts.URL+"/webhook/distill?token=s3cret", payload)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var body WebhookResponse
		decodeJSON(t, resp, &body)

		if body.Status != "success" || body.Data == nil {
			t.Fatalf("unexpected body: %+v", body)
		}
		if body.Data.MonitorID != "mon-a" || body.Data.ID == 0 {
			t.Errorf("unexpected data: %+v", body.Data)
		}
	})
}

func TestWebhookDistill_NoSecretIsOpen(t *testing.T) {
	f := newFixture(t, &stubFetcher{err: errors.New("unused")}, "")

	resp := postJSON(t, f.ts.URL+"/webhook/distill", types.WebhookPayload{
		ID:   "mon-open",
		URI:  "https://example.com",
		Text: "5",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 without secret, got %d", resp.StatusCode)
	}
}

func TestWebhookDistill_Validation(t *testing.T) {
	f := newFixture(t, &stubFetcher{err: errors.New("unused")}, "")

	resp := postJSON(t, f.ts.URL+"/webhook/distill", types.WebhookPayload{
		URI:  "https://example.com",
		Text: "5",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing monitor id, got %d", resp.StatusCode)
	}
}

func TestWebhookTest_Echo(t *testing.T) {
	f := newFixture(t, &stubFetcher{err: errors.New("unused")}, "")

	resp := postJSON(t, f.ts.URL+"/webhook/test", map[string]interface{}{"hello": "world"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body TestResponse
	decodeJSON(t, resp, &body)

	if body.ReceivedData["hello"] != "world" {
		t.Errorf("expected echoed payload, got %+v", body.ReceivedData)
	}

	// Nothing is stored by the test endpoint.
	stats, err := f.store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalEvents != 0 {
		t.Errorf("expected 0 events, got %d", stats.TotalEvents)
	}
}

func TestWebhookStatus(t *testing.T) {
	f := newFixture(t, &stubFetcher{err: errors.New("unused")}, "")

	resp := postJSON(t, f.ts.URL+"/webhook/distill", types.WebhookPayload{
		ID:   "mon-a",
		URI:  "https://example.com",
		Text: "5",
	})
	resp.Body.Close()

	resp, err := http.Get(f.ts.URL + "/webhook/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}

	var body StatusResponse
	decodeJSON(t, resp, &body)

	if body.Status != "operational" {
		t.Errorf("unexpected status %q", body.Status)
	}
	if body.Stats == nil || body.Stats.TotalEvents != 1 {
		t.Errorf("unexpected stats: %+v", body.Stats)
	}
}

func TestFundingRates(t *testing.T) {
	rate := 0.0001
	fetcher := &stubFetcher{snap: &ratecache.Snapshot{
		Rates: []types.FundingRate{
			{Exchange: "lighter", Symbol: "BTC", Rate: &rate},
			{Exchange: "aster", Symbol: "ETH", Rate: &rate},
			{Exchange: "backpack", Symbol: "ETHFI", Rate: &rate},
		},
		Source: "lighter,aster,backpack",
	}}
	f := newFixture(t, fetcher, "")

	t.Run("all rates", func(t *testing.T) {
		resp, err := http.Get(f.ts.URL + "/api/dex/funding-rates")
		if err != nil {
			t.Fatalf("get: %v", err)
		}

		var body RatesResponse
		decodeJSON(t, resp, &body)

		if len(body.Rates) != 3 {
			t.Errorf("expected 3 rates, got %d", len(body.Rates))
		}
		if body.LastUpdated == nil {
			t.Error("expected last_updated to be set")
		}
	})

	t.Run("symbol prefix filter", func(t *testing.T) {
		resp, err := http.Get(f.ts.URL + "/api/dex/funding-rates/eth")
		if err != nil {
			t.Fatalf("get: %v", err)
		}

		var body RatesResponse
		decodeJSON(t, resp, &body)

		if len(body.Rates) != 2 {
			t.Fatalf("expected 2 rates for prefix eth, got %d", len(body.Rates))
		}
		for _, r := range body.Rates {
			if r.Symbol != "ETH" && r.Symbol != "ETHFI" {
				t.Errorf("unexpected symbol %q", r.Symbol)
			}
		}
	})
}

func TestFundingRates_AbsentBeforeFirstSuccess(t *testing.T) {
	f := newFixture(t, &stubFetcher{err: errors.New("all sources down")}, "")

	resp, err := http.Get(f.ts.URL + "/api/dex/funding-rates")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	var body RatesResponse
	decodeJSON(t, resp, &body)

	if len(body.Rates) != 0 {
		t.Errorf("expected empty rates, got %d", len(body.Rates))
	}
	if body.LastUpdated != nil {
		t.Errorf("expected null last_updated, got %v", body.LastUpdated)
	}
	if body.Error == "" {
		t.Error("expected error message in response")
	}
}

func TestAlertConfigCRUD(t *testing.T) {
	f := newFixture(t, &stubFetcher{err: errors.New("unused")}, "")

	upper := 100.0
	resp := postJSON(t, f.ts.URL+"/api/alerts/config", AlertConfigRequest{
		MonitorID:      "mon-a",
		UpperThreshold: &upper,
		Level:          "high",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upsert: expected 200, got %d", resp.StatusCode)
	}

	var created types.AlertConfig
	decodeJSON(t, resp, &created)
	if created.MonitorID != "mon-a" || created.Level != "high" {
		t.Errorf("unexpected created config: %+v", created)
	}

	resp, err := http.Get(f.ts.URL + "/api/alerts/config/mon-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(f.ts.URL + "/api/alerts/configs")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	var configs []*types.AlertConfig
	decodeJSON(t, resp, &configs)
	if len(configs) != 1 {
		t.Errorf("expected 1 config, got %d", len(configs))
	}

	req, _ := http.NewRequest(http.MethodDelete, f.ts.URL+"/api/alerts/config/mon-a", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(f.ts.URL + "/api/alerts/config/mon-a")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAlertConfig_InvalidLevel(t *testing.T) {
	f := newFixture(t, &stubFetcher{err: errors.New("unused")}, "")

	resp := postJSON(t, f.ts.URL+"/api/alerts/config", AlertConfigRequest{
		MonitorID: "mon-a",
		Level:     "urgent",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid level, got %d", resp.StatusCode)
	}
}

func TestPushoverConfigEndpoints(t *testing.T) {
	f := newFixture(t, &stubFetcher{err: errors.New("unused")}, "")

	resp, err := http.Get(f.ts.URL + "/api/pushover/config")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 before create, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, f.ts.URL+"/api/pushover/config", PushoverConfigRequest{UserKey: "user-key"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(f.ts.URL + "/api/pushover/config")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	var cfg types.PushoverConfig
	decodeJSON(t, resp, &cfg)
	if cfg.UserKey != "user-key" {
		t.Errorf("unexpected config: %+v", cfg)
	}

	req, _ := http.NewRequest(http.MethodDelete, f.ts.URL+"/api/pushover/config", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestPushoverTest(t *testing.T) {
	f := newFixture(t, &stubFetcher{err: errors.New("unused")}, "")

	resp := postJSON(t, f.ts.URL+"/api/pushover/test", PushoverTestRequest{
		UserKey:  "user-key",
		APIToken: "token",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if f.notifier.lastCreds == nil || f.notifier.lastCreds.UserKey != "user-key" {
		t.Errorf("unexpected creds: %+v", f.notifier.lastCreds)
	}
	if f.notifier.lastNotif == nil || f.notifier.lastNotif.Level != types.AlertLevelMedium {
		t.Errorf("unexpected notification: %+v", f.notifier.lastNotif)
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	f := newFixture(t, &stubFetcher{err: errors.New("unused")}, "")

	for _, path := range []string{"/health", "/metrics"} {
		resp, err := http.Get(f.ts.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp, err := http.Get(f.ts.URL + "/ready")
	if err != nil {
		t.Fatalf("get /ready: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("/ready before SetReady: expected 503, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
