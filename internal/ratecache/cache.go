package ratecache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/webmonhq/webmon/pkg/types"
	"go.uber.org/zap"
)

// Snapshot is an immutable capture of the latest successfully fetched funding
// rates. Once published it is never mutated, only replaced by a newer one.
type Snapshot struct {
	Rates     []types.FundingRate
	FetchedAt time.Time
	Source    string // upstream tag, for diagnostics
}

// Age returns how old the snapshot is relative to now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// Fetcher is the upstream rate source collaborator.
type Fetcher interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// Config holds rate cache configuration.
type Config struct {
	Fetcher            Fetcher
	StalenessThreshold time.Duration // max snapshot age served without refresh
	FetchTimeout       time.Duration // bound on a single upstream call
	Logger             *zap.Logger
}

// flight tracks one in-progress fetch. Callers that request a refresh while a
// fetch is executing attach to it and share its outcome.
type flight struct {
	done chan struct{}
	err  error // fetch error for this round, nil on success
}

// Cache holds the latest funding-rate snapshot and coordinates concurrent
// readers with the single fetch-completion path. At most one upstream fetch
// is in flight at any time; all mutation goes through publish/recordFailure
// under the single-flight gate.
type Cache struct {
	fetcher      Fetcher
	staleness    time.Duration
	fetchTimeout time.Duration
	logger       *zap.Logger

	mu        sync.RWMutex
	current   *Snapshot
	lastErr   error
	lastErrAt time.Time
	inflight  *flight

	now func() time.Time // test hook
}

// New creates a rate cache. The cache starts empty; Read returns no snapshot
// until the first successful fetch.
func New(cfg *Config) (*Cache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.StalenessThreshold <= 0 {
		return nil, fmt.Errorf("staleness threshold must be positive")
	}
	if cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("fetch timeout must be positive")
	}

	return &Cache{
		fetcher:      cfg.Fetcher,
		staleness:    cfg.StalenessThreshold,
		fetchTimeout: cfg.FetchTimeout,
		logger:       cfg.Logger,
		now:          time.Now,
	}, nil
}

// Read returns the current snapshot without blocking on upstream I/O.
// The second return is false only before the first successful fetch ever.
func (c *Cache) Read() (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil {
		return nil, false
	}

	return c.current, true
}

// LastError returns the most recent fetch failure and when it happened, or
// (nil, zero) if the last fetch succeeded.
func (c *Cache) LastError() (error, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastErr, c.lastErrAt
}

// GetOrRefresh returns the current snapshot, refreshing it first when forced
// or when the snapshot is older than the staleness threshold. When a refresh
// fails but a previous snapshot exists, that snapshot is returned with no
// error; an error is returned only if no fetch has ever succeeded.
func (c *Cache) GetOrRefresh(ctx context.Context, force bool) (*Snapshot, error) {
	snap, fetchErr, err := c.refresh(ctx, force)
	if err != nil {
		// Waiting was interrupted; serve whatever we have.
		if snap != nil {
			return snap, nil
		}

		return nil, err
	}

	if snap != nil {
		return snap, nil
	}

	if fetchErr != nil {
		return nil, fetchErr
	}

	return nil, types.ErrNoSnapshot
}

// refresh drives the single-flight gate. It returns the best available
// snapshot, the fetch error for the round it observed (nil if that round
// succeeded or no fetch ran), and a wait error if ctx expired before the
// in-flight fetch completed.
func (c *Cache) refresh(ctx context.Context, force bool) (*Snapshot, error, error) {
	c.mu.Lock()

	if !force && c.current != nil && c.now().Sub(c.current.FetchedAt) < c.staleness {
		snap := c.current
		c.mu.Unlock()
		return snap, nil, nil
	}

	if fl := c.inflight; fl != nil {
		// A fetch is already executing; attach to it instead of starting a
		// duplicate upstream call.
		c.mu.Unlock()
		RefreshWaitersTotal.Inc()
		return c.await(ctx, fl)
	}

	fl := &flight{done: make(chan struct{})}
	c.inflight = fl
	c.mu.Unlock()

	go c.doFetch(fl)

	return c.await(ctx, fl)
}

// await blocks until the given flight completes or ctx expires.
func (c *Cache) await(ctx context.Context, fl *flight) (*Snapshot, error, error) {
	select {
	case <-fl.done:
	case <-ctx.Done():
		snap, _ := c.Read()
		return snap, nil, ctx.Err()
	}

	snap, _ := c.Read()

	return snap, fl.err, nil
}

// doFetch executes one upstream fetch and applies its outcome. This is the
// only path that mutates cache state. The fetch runs under its own timeout,
// detached from any caller context, so a cancelled reader cannot abort a
// fetch other callers are attached to.
func (c *Cache) doFetch(fl *flight) {
	start := c.now()

	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer cancel()

	snap, err := c.safeFetch(ctx)

	RefreshDurationSeconds.Observe(time.Since(start).Seconds())

	c.mu.Lock()
	if err != nil {
		fl.err = err
		c.recordFailureLocked(err)
	} else {
		c.publishLocked(snap)
	}
	c.inflight = nil
	c.mu.Unlock()

	close(fl.done)
}

// safeFetch calls the fetcher and converts a panic into a fetch error. The
// fetch goroutine has no other recovery layer; without this a panicking
// fetcher would leave waiters blocked and take the process down.
func (c *Cache) safeFetch(ctx context.Context) (snap *Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snap = nil
			err = fmt.Errorf("fetcher panic: %v", r)
		}
	}()

	return c.fetcher.Fetch(ctx)
}

// publishLocked replaces the current snapshot and clears the last error.
// FetchedAt is stamped here: publishes are serialized by the single-flight
// gate, so freshness is monotonic.
func (c *Cache) publishLocked(snap *Snapshot) {
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = c.now()
	}

	c.current = snap
	c.lastErr = nil
	c.lastErrAt = time.Time{}

	RefreshesTotal.Inc()
	SnapshotTimestamp.Set(float64(snap.FetchedAt.Unix()))
	SnapshotRates.Set(float64(len(snap.Rates)))

	c.logger.Debug("rate-snapshot-published",
		zap.String("source", snap.Source),
		zap.Int("rates", len(snap.Rates)))
}

// recordFailureLocked records the failure and leaves the previous snapshot
// visible to readers.
func (c *Cache) recordFailureLocked(err error) {
	c.lastErr = err
	c.lastErrAt = c.now()

	RefreshErrorsTotal.Inc()

	c.logger.Warn("rate-fetch-failed",
		zap.Error(err),
		zap.Bool("have-previous-snapshot", c.current != nil))
}
