package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/webmonhq/webmon/internal/ratecache"
	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap"
)

// RatesHandler serves cached DEX funding rates.
type RatesHandler struct {
	cache  *ratecache.Cache
	logger *zap.Logger
}

// NewRatesHandler creates a new funding rates handler.
func NewRatesHandler(cache *ratecache.Cache, logger *zap.Logger) *RatesHandler {
	return &RatesHandler{
		cache:  cache,
		logger: logger,
	}
}

// RatesResponse is the funding rates API response. LastUpdated is null until
// the first successful fetch.
type RatesResponse struct {
	Rates       []types.FundingRate `json:"rates"`
	LastUpdated *time.Time          `json:"last_updated"`
	Error       string              `json:"error,omitempty"`
}

// HandleRates handles GET /api/dex/funding-rates requests.
// Use ?force_refresh=true to bypass the staleness check.
func (h *RatesHandler) HandleRates(w http.ResponseWriter, r *http.Request) {
	h.serveRates(w, r, "")
}

// HandleRatesBySymbol handles GET /api/dex/funding-rates/{symbol} requests,
// filtering rates by symbol prefix.
func (h *RatesHandler) HandleRatesBySymbol(w http.ResponseWriter, r *http.Request) {
	h.serveRates(w, r, chi.URLParam(r, "symbol"))
}

func (h *RatesHandler) serveRates(w http.ResponseWriter, r *http.Request, symbol string) {
	force := r.URL.Query().Get("force_refresh") == "true"

	snap, err := h.cache.GetOrRefresh(r.Context(), force)
	if err != nil {
		// No snapshot exists yet. The response shape stays the same so
		// clients can poll until data appears.
		h.logger.Debug("funding-rates-unavailable", zap.Error(err))
		writeJSON(w, h.logger, http.StatusOK, RatesResponse{
			Rates:       []types.FundingRate{},
			LastUpdated: nil,
			Error:       err.Error(),
		})
		return
	}

	rates := snap.Rates
	if symbol != "" {
		prefix := strings.ToUpper(symbol)
		filtered := make([]types.FundingRate, 0, len(rates))
		for _, rate := range rates {
			if strings.HasPrefix(strings.ToUpper(rate.Symbol), prefix) {
				filtered = append(filtered, rate)
			}
		}
		rates = filtered
	}

	fetchedAt := snap.FetchedAt
	writeJSON(w, h.logger, http.StatusOK, RatesResponse{
		Rates:       rates,
		LastUpdated: &fetchedAt,
	})
}
