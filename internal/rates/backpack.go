package rates

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap"
)

const defaultBackpackURL = "https://api.backpack.exchange"

// BackpackClient fetches funding rates from the Backpack mark-price endpoint.
// Backpack reports hourly rates; they are scaled to 8-hour periods.
type BackpackClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewBackpackClient creates a Backpack funding-rate client.
func NewBackpackClient(logger *zap.Logger) *BackpackClient {
	return &BackpackClient{
		baseURL:    defaultBackpackURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Name implements Source.
func (c *BackpackClient) Name() string { return "backpack" }

type backpackMarkPrice struct {
	Symbol      string `json:"symbol"`
	FundingRate string `json:"fundingRate"`
	MarkPrice   string `json:"markPrice"`
}

// FetchRates implements Source.
func (c *BackpackClient) FetchRates(ctx context.Context) ([]types.FundingRate, error) {
	var marks []backpackMarkPrice
	err := getJSON(ctx, c.httpClient, c.baseURL+"/api/v1/markPrices", &marks)
	if err != nil {
		return nil, fmt.Errorf("backpack mark prices: %w", err)
	}

	out := make([]types.FundingRate, 0, len(marks))
	for _, entry := range marks {
		if entry.Symbol == "" || entry.FundingRate == "" {
			continue
		}

		hourly, err := strconv.ParseFloat(entry.FundingRate, 64)
		if err != nil {
			continue
		}

		fr := types.FundingRate{
			Exchange: c.Name(),
			Symbol:   baseSymbol(entry.Symbol, "_USDC_PERP", "_USD_PERP"),
			Rate:     float64Ptr(hourly * standardFundingHours),
		}

		if mark, err := strconv.ParseFloat(entry.MarkPrice, 64); err == nil && mark > 0 {
			fr.MarkPrice = float64Ptr(mark)
		}

		out = append(out, fr)
	}

	return out, nil
}
