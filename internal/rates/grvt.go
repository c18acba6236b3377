package rates

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap"
)

const (
	defaultGRVTURL = "https://market-data.grvt.io"

	// grvtRequestPacing is the delay between per-instrument funding requests
	// to stay under GRVT's rate limit.
	grvtRequestPacing = 500 * time.Millisecond
)

// GRVTClient fetches funding rates from the GRVT market-data API. GRVT has no
// bulk funding endpoint: instruments are listed first, then funding is fetched
// per instrument with pacing between requests.
type GRVTClient struct {
	baseURL    string
	pacing     time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGRVTClient creates a GRVT funding-rate client.
func NewGRVTClient(logger *zap.Logger) *GRVTClient {
	return &GRVTClient{
		baseURL:    defaultGRVTURL,
		pacing:     grvtRequestPacing,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Name implements Source.
func (c *GRVTClient) Name() string { return "grvt" }

type grvtInstrument struct {
	Instrument string `json:"instrument"`
	Base       string `json:"base"`
}

type grvtInstrumentsResponse struct {
	Result []grvtInstrument `json:"result"`
}

type grvtFundingPoint struct {
	FundingRate      *float64 `json:"funding_rate"`
	FundingRate8hAvg *float64 `json:"funding_rate_8_h_avg"`
	FundingTime      string   `json:"funding_time"`
	MarkPrice        string   `json:"mark_price"`
}

type grvtFundingResponse struct {
	Result []grvtFundingPoint `json:"result"`
}

// FetchRates implements Source.
func (c *GRVTClient) FetchRates(ctx context.Context) ([]types.FundingRate, error) {
	var instruments grvtInstrumentsResponse
	err := postJSON(ctx, c.httpClient, c.baseURL+"/full/v1/instruments", map[string]interface{}{
		"kind":      []string{"PERPETUAL"},
		"quote":     []string{"USDT"},
		"is_active": true,
	}, &instruments)
	if err != nil {
		return nil, fmt.Errorf("grvt instruments: %w", err)
	}

	out := make([]types.FundingRate, 0, len(instruments.Result))
	for i, instrument := range instruments.Result {
		if instrument.Instrument == "" || instrument.Base == "" {
			continue
		}

		fr, ok := c.fetchInstrumentFunding(ctx, instrument)
		if ok {
			out = append(out, fr)
		}

		if i < len(instruments.Result)-1 {
			select {
			case <-ctx.Done():
				// Deadline hit mid-listing: return what we have so far.
				return out, nil
			case <-time.After(c.pacing):
			}
		}
	}

	return out, nil
}

// fetchInstrumentFunding fetches the latest funding point for one instrument.
// Per-instrument failures are skipped, not fatal.
func (c *GRVTClient) fetchInstrumentFunding(ctx context.Context, instrument grvtInstrument) (types.FundingRate, bool) {
	var funding grvtFundingResponse
	err := postJSON(ctx, c.httpClient, c.baseURL+"/full/v1/funding", map[string]interface{}{
		"instrument": instrument.Instrument,
		"limit":      1,
	}, &funding)
	if err != nil {
		c.logger.Debug("grvt-instrument-funding-failed",
			zap.String("instrument", instrument.Instrument),
			zap.Error(err))
		return types.FundingRate{}, false
	}

	if len(funding.Result) == 0 {
		return types.FundingRate{}, false
	}

	point := funding.Result[0]

	// Prefer the 8-hour average when present.
	raw := point.FundingRate8hAvg
	if raw == nil {
		raw = point.FundingRate
	}
	if raw == nil {
		return types.FundingRate{}, false
	}

	// GRVT reports percentages.
	fr := types.FundingRate{
		Exchange:        c.Name(),
		Symbol:          strings.ToUpper(instrument.Base),
		Rate:            float64Ptr(*raw / 100),
		NextFundingTime: point.FundingTime,
	}

	if mark, err := strconv.ParseFloat(point.MarkPrice, 64); err == nil && mark > 0 {
		fr.MarkPrice = float64Ptr(mark)
	}

	return fr, true
}
