package ingest

import (
	"strconv"
	"strings"
	"time"
)

// Units recognized in extracted text, checked in order. Currency symbols
// first, then common crypto tickers.
var knownUnits = []string{"%", "$", "€", "£", "SOL", "ETH", "BTC"}

// ParseValue extracts a numeric value and unit from monitor text such as
// "$1,234.5k" or "42.5%". Returns (nil, "") when the text holds no number.
func ParseValue(text string) (*float64, string) {
	if text == "" {
		return nil, ""
	}

	unit := ""
	for _, u := range knownUnits {
		if strings.Contains(text, u) {
			unit = u
			break
		}
	}

	clean := text
	clean = strings.ReplaceAll(clean, ",", "")
	for _, u := range knownUnits {
		clean = strings.ReplaceAll(clean, u, "")
	}
	clean = strings.TrimSpace(clean)

	multiplier := 1.0
	lower := strings.ToLower(clean)
	switch {
	case strings.HasSuffix(lower, "k"):
		multiplier = 1e3
		clean = strings.TrimSpace(clean[:len(clean)-1])
	case strings.HasSuffix(lower, "m"):
		multiplier = 1e6
		clean = strings.TrimSpace(clean[:len(clean)-1])
	case strings.HasSuffix(lower, "b"):
		multiplier = 1e9
		clean = strings.TrimSpace(clean[:len(clean)-1])
	}

	parsed, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return nil, unit
	}

	value := parsed * multiplier

	return &value, unit
}

// Accepted timestamp layouts, most specific first.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a webhook timestamp in any accepted layout. Falls
// back to now when the string matches none of them.
func ParseTimestamp(raw string, now time.Time) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, raw)
		if err == nil {
			return ts.UTC(), true
		}
	}

	return now.UTC(), false
}
