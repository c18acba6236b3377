package rates

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap"
)

const (
	defaultLighterURL         = "https://mainnet.zklighter.elliot.ai"
	defaultBinanceFuturesURL  = "https://fapi.binance.com"
	standardFundingHours      = 8
	lighterRelayedBinanceName = "binance"
)

// LighterClient fetches funding rates from the Lighter aggregate endpoint,
// which relays rates for several exchanges (Binance, Bybit, Hyperliquid).
// Binance rows are normalized to 8-hour periods using Binance's published
// funding intervals, since Binance pays some symbols hourly or every 4 hours.
type LighterClient struct {
	baseURL    string
	binanceURL string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewLighterClient creates a Lighter funding-rate client.
func NewLighterClient(logger *zap.Logger) *LighterClient {
	return &LighterClient{
		baseURL:    defaultLighterURL,
		binanceURL: defaultBinanceFuturesURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Name implements Source.
func (c *LighterClient) Name() string { return "lighter" }

type lighterFundingRate struct {
	Exchange        string   `json:"exchange"`
	Symbol          string   `json:"symbol"`
	Rate            *float64 `json:"rate"`
	NextFundingTime string   `json:"next_funding_time"`
	MarkPrice       *float64 `json:"mark_price"`
}

type lighterResponse struct {
	FundingRates []lighterFundingRate `json:"funding_rates"`
}

// FetchRates implements Source.
func (c *LighterClient) FetchRates(ctx context.Context) ([]types.FundingRate, error) {
	var resp lighterResponse
	err := getJSON(ctx, c.httpClient, c.baseURL+"/api/v1/funding-rates", &resp)
	if err != nil {
		return nil, fmt.Errorf("lighter funding-rates: %w", err)
	}

	intervals := c.binanceFundingIntervals(ctx)

	out := make([]types.FundingRate, 0, len(resp.FundingRates))
	for _, entry := range resp.FundingRates {
		exchange := entry.Exchange
		if exchange == "" {
			exchange = c.Name()
		}

		rate := entry.Rate
		if rate != nil && strings.EqualFold(exchange, lighterRelayedBinanceName) {
			if hours, ok := intervals[strings.ToUpper(entry.Symbol)]; ok {
				rate = float64Ptr(eightHourRate(*rate, hours))
			}
		}

		out = append(out, types.FundingRate{
			Exchange:        exchange,
			Symbol:          strings.ToUpper(entry.Symbol),
			Rate:            rate,
			NextFundingTime: entry.NextFundingTime,
			MarkPrice:       entry.MarkPrice,
		})
	}

	return out, nil
}

type binanceFundingInfo struct {
	Symbol               string `json:"symbol"`
	FundingIntervalHours int    `json:"fundingIntervalHours"`
}

// binanceFundingIntervals returns symbol -> funding interval hours. Failures
// degrade to the standard 8-hour assumption rather than failing the whole
// Lighter fetch.
func (c *LighterClient) binanceFundingIntervals(ctx context.Context) map[string]int {
	var info []binanceFundingInfo
	err := getJSON(ctx, c.httpClient, c.binanceURL+"/fapi/v1/fundingInfo", &info)
	if err != nil {
		c.logger.Debug("binance-funding-info-unavailable", zap.Error(err))
		return nil
	}

	intervals := make(map[string]int, len(info))
	for _, entry := range info {
		if entry.Symbol != "" && entry.FundingIntervalHours > 0 {
			intervals[strings.ToUpper(entry.Symbol)] = entry.FundingIntervalHours
		}
	}

	return intervals
}
