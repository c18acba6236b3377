package types

// FundingRate is one perpetual instrument's funding rate on one exchange,
// normalized to an 8-hour period. Rate and MarkPrice are nil when the
// exchange did not report them.
type FundingRate struct {
	Exchange        string   `json:"exchange"`
	Symbol          string   `json:"symbol"`
	Rate            *float64 `json:"rate"`
	NextFundingTime string   `json:"next_funding_time,omitempty"`
	MarkPrice       *float64 `json:"mark_price,omitempty"`
}
