package rates

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap"
)

const defaultAsterURL = "https://fapi.asterdex.com"

// AsterClient fetches funding rates from the ASTER perpetuals API. The
// premium index and funding-interval endpoints are fetched in parallel; rates
// are normalized to 8-hour periods using the per-symbol interval.
type AsterClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAsterClient creates an ASTER funding-rate client.
func NewAsterClient(logger *zap.Logger) *AsterClient {
	return &AsterClient{
		baseURL:    defaultAsterURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Name implements Source.
func (c *AsterClient) Name() string { return "aster" }

type asterPremiumIndex struct {
	Symbol          string `json:"symbol"`
	LastFundingRate string `json:"lastFundingRate"`
	MarkPrice       string `json:"markPrice"`
	NextFundingTime int64  `json:"nextFundingTime"`
}

type asterFundingInfo struct {
	Symbol               string `json:"symbol"`
	FundingIntervalHours int    `json:"fundingIntervalHours"`
}

// FetchRates implements Source.
func (c *AsterClient) FetchRates(ctx context.Context) ([]types.FundingRate, error) {
	var (
		wg         sync.WaitGroup
		premium    []asterPremiumIndex
		info       []asterFundingInfo
		premiumErr error
		infoErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		premiumErr = getJSON(ctx, c.httpClient, c.baseURL+"/fapi/v1/premiumIndex", &premium)
	}()
	go func() {
		defer wg.Done()
		infoErr = getJSON(ctx, c.httpClient, c.baseURL+"/fapi/v1/fundingInfo", &info)
	}()
	wg.Wait()

	if premiumErr != nil {
		return nil, fmt.Errorf("aster premium index: %w", premiumErr)
	}
	if infoErr != nil {
		return nil, fmt.Errorf("aster funding info: %w", infoErr)
	}

	intervals := make(map[string]int, len(info))
	for _, entry := range info {
		if entry.Symbol != "" {
			intervals[strings.ToUpper(entry.Symbol)] = entry.FundingIntervalHours
		}
	}

	out := make([]types.FundingRate, 0, len(premium))
	for _, entry := range premium {
		symbol := strings.ToUpper(entry.Symbol)
		if symbol == "" || entry.LastFundingRate == "" {
			continue
		}

		rateValue, err := strconv.ParseFloat(entry.LastFundingRate, 64)
		if err != nil {
			continue
		}

		hours, ok := intervals[symbol]
		if !ok {
			hours = standardFundingHours
		}

		fr := types.FundingRate{
			Exchange: c.Name(),
			Symbol:   baseSymbol(symbol, "USDT", "USD"),
			Rate:     float64Ptr(eightHourRate(rateValue, hours)),
		}

		if entry.NextFundingTime > 0 {
			fr.NextFundingTime = time.UnixMilli(entry.NextFundingTime).UTC().Format(time.RFC3339)
		}

		if mark, err := strconv.ParseFloat(entry.MarkPrice, 64); err == nil && mark > 0 {
			fr.MarkPrice = float64Ptr(mark)
		}

		out = append(out, fr)
	}

	return out, nil
}
