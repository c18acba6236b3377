package rates

import "strings"

// eightHourRate converts a funding rate paid every intervalHours to its
// 8-hour equivalent. A zero or negative interval is treated as the standard
// 8-hour period.
func eightHourRate(rate float64, intervalHours int) float64 {
	if intervalHours <= 0 {
		intervalHours = 8
	}

	return rate * (8.0 / float64(intervalHours))
}

// baseSymbol strips known quote/settlement suffixes from an exchange symbol
// so the same instrument lines up across exchanges (BTCUSDT, BTC_USDC_PERP
// and BTC-USD all become BTC). Suffixes are tried in order, longest first.
func baseSymbol(symbol string, suffixes ...string) string {
	s := strings.ToUpper(symbol)
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return strings.TrimSuffix(s, suffix)
		}
	}

	return s
}
