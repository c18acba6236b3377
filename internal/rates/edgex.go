package rates

import (
	"context"
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap"
)

const (
	defaultEdgeXWSURL = "wss://quote.edgex.exchange/api/v1/public/ws"

	// EdgeX pays funding every 4 hours.
	edgexFundingHours = 4
)

// EdgeXClient fetches funding rates from EdgeX. EdgeX publishes quotes only
// over WebSocket, so each fetch dials the endpoint, subscribes to the ticker
// channel and waits for one full snapshot frame within the caller's deadline.
type EdgeXClient struct {
	wsURL  string
	dialer *websocket.Dialer
	logger *zap.Logger
}

// NewEdgeXClient creates an EdgeX funding-rate client.
func NewEdgeXClient(logger *zap.Logger) *EdgeXClient {
	return &EdgeXClient{
		wsURL: defaultEdgeXWSURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Name implements Source.
func (c *EdgeXClient) Name() string { return "edgex" }

type edgexSubscribe struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

type edgexTicker struct {
	ContractName  string `json:"contractName"`
	FundingRate   string `json:"fundingRate"`
	MarkPrice     string `json:"markPrice"`
	NextFundingAt int64  `json:"nextFundingTime"`
}

type edgexFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Content struct {
		Data []edgexTicker `json:"data"`
	} `json:"content"`
}

// FetchRates implements Source.
func (c *EdgeXClient) FetchRates(ctx context.Context) ([]types.FundingRate, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("edgex dial: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	err = conn.WriteJSON(edgexSubscribe{Type: "subscribe", Channel: "ticker.all"})
	if err != nil {
		return nil, fmt.Errorf("edgex subscribe: %w", err)
	}

	// Read until a ticker frame with data arrives; ack and ping frames are
	// skipped. The read deadline bounds the wait.
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("edgex snapshot: %w", ctx.Err())
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("edgex read: %w", err)
		}

		var frame edgexFrame
		err = json.Unmarshal(message, &frame)
		if err != nil {
			c.logger.Debug("edgex-unparsable-frame", zap.Error(err))
			continue
		}

		if len(frame.Content.Data) == 0 {
			continue
		}

		return c.mapTickers(frame.Content.Data), nil
	}
}

func (c *EdgeXClient) mapTickers(tickers []edgexTicker) []types.FundingRate {
	out := make([]types.FundingRate, 0, len(tickers))
	for _, ticker := range tickers {
		if ticker.ContractName == "" || ticker.FundingRate == "" {
			continue
		}

		rate, err := strconv.ParseFloat(ticker.FundingRate, 64)
		if err != nil {
			continue
		}

		fr := types.FundingRate{
			Exchange: c.Name(),
			Symbol:   baseSymbol(ticker.ContractName, "USDT", "USD"),
			Rate:     float64Ptr(eightHourRate(rate, edgexFundingHours)),
		}

		if ticker.NextFundingAt > 0 {
			fr.NextFundingTime = time.UnixMilli(ticker.NextFundingAt).UTC().Format(time.RFC3339)
		}

		if mark, err := strconv.ParseFloat(ticker.MarkPrice, 64); err == nil && mark > 0 {
			fr.MarkPrice = float64Ptr(mark)
		}

		out = append(out, fr)
	}

	return out
}
