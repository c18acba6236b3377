package rates

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/webmonhq/webmon/internal/ratecache"
	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap"
)

// Aggregator fans a fetch out to every configured source in parallel and
// combines the results into one snapshot. Individual source failures are
// tolerated; the fetch fails only when every source fails, so one slow or
// broken exchange never empties the dashboard.
type Aggregator struct {
	sources []Source
	logger  *zap.Logger
}

// NewAggregator creates a funding-rate aggregator over the given sources.
func NewAggregator(logger *zap.Logger, sources ...Source) (*Aggregator, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Aggregator{
		sources: sources,
		logger:  logger,
	}, nil
}

// DefaultSources returns the production source set.
func DefaultSources(logger *zap.Logger) []Source {
	return []Source{
		NewLighterClient(logger),
		NewAsterClient(logger),
		NewGRVTClient(logger),
		NewBackpackClient(logger),
		NewEdgeXClient(logger),
	}
}

// Fetch implements ratecache.Fetcher.
func (a *Aggregator) Fetch(ctx context.Context) (*ratecache.Snapshot, error) {
	type result struct {
		source string
		rates  []types.FundingRate
		err    error
	}

	results := make([]result, len(a.sources))

	var wg sync.WaitGroup
	for i, source := range a.sources {
		wg.Add(1)
		go func(i int, source Source) {
			defer wg.Done()

			start := time.Now()
			fetched, err := source.FetchRates(ctx)

			SourceFetchDurationSeconds.WithLabelValues(source.Name()).Observe(time.Since(start).Seconds())
			results[i] = result{source: source.Name(), rates: fetched, err: err}
		}(i, source)
	}
	wg.Wait()

	var (
		combined []types.FundingRate
		okNames  []string
		failed   []string
		firstErr error
	)

	for _, res := range results {
		if res.err != nil {
			SourceErrorsTotal.WithLabelValues(res.source).Inc()
			failed = append(failed, res.source)
			if firstErr == nil {
				firstErr = res.err
			}
			a.logger.Warn("rate-source-failed",
				zap.String("source", res.source),
				zap.Error(res.err))
			continue
		}

		SourceRates.WithLabelValues(res.source).Set(float64(len(res.rates)))
		combined = append(combined, res.rates...)
		okNames = append(okNames, res.source)
	}

	if len(okNames) == 0 {
		return nil, types.NewTransientFetchError("aggregate", "all sources failed", firstErr)
	}

	if len(failed) > 0 {
		a.logger.Info("partial-rate-snapshot",
			zap.Strings("sources", okNames),
			zap.Strings("failed", failed))
	}

	return &ratecache.Snapshot{
		Rates:  combined,
		Source: strings.Join(okNames, ","),
	}, nil
}
