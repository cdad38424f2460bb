// Package refresher implements PeriodicRefresher: a background task that
// keeps cached feeds warm by walking the cache's current keys at a fixed
// interval and re-fetching each one.
package refresher

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"feedhub/internal/domain/feed"
	"feedhub/internal/domain/fetcherr"
	"feedhub/internal/observability/metrics"
)

// fanoutCap bounds per-iteration refresh concurrency to the same policy as
// the usecase fan-outs (spec §4.3, §5).
const fanoutCap = 10

// Fetcher is the capability the refresher needs from FeedFetcher.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (feed.Feed, *fetcherr.Error)
}

// Cache is the capability the refresher needs from FeedCache: reading the
// current key snapshot and overwriting entries on successful re-fetch.
type Cache interface {
	Keys() []string
	Insert(url string, value feed.Feed)
}

// Refresher is the PeriodicRefresher of spec §4.3.
type Refresher struct {
	fetcher Fetcher
	cache   Cache
	logger  *slog.Logger
	limiter *rate.Limiter
}

// New builds a Refresher. ratePerSecond throttles the refresher's own
// outbound re-fetches independent of the per-iteration concurrency cap, so
// that a large subscription set cannot burst a single upstream host during
// a refresh sweep.
func New(fetcher Fetcher, cache Cache, ratePerSecond float64, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	if ratePerSecond <= 0 {
		ratePerSecond = 50
	}
	return &Refresher{
		fetcher: fetcher,
		cache:   cache,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), int(ratePerSecond)+1),
	}
}

// Run loops: sleep interval, snapshot the cache's keys, re-fetch each with
// bounded parallelism, overwrite successful entries, log-and-skip failures,
// and exit promptly when ctx is canceled. It is intended to be run in its
// own goroutine for the lifetime of the process.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopping", slog.String("reason", ctx.Err().Error()))
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			r.runIteration(ctx)
		}
	}
}

func (r *Refresher) runIteration(ctx context.Context) {
	start := time.Now()
	keys := r.cache.Keys()

	var errCount atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, fanoutCap)

	for _, key := range keys {
		key := key
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			if err := r.limiter.Wait(gctx); err != nil {
				return nil
			}

			v, ferr := r.fetcher.Fetch(gctx, key)
			if ferr != nil {
				r.logger.Warn("refresh failed, keeping stale entry",
					slog.String("url", key), slog.String("error", ferr.Error()))
				errCount.Add(1)
				return nil
			}
			r.cache.Insert(key, v)
			return nil
		})
	}
	_ = g.Wait()

	metrics.RecordRefreshIteration(time.Since(start), len(keys), int(errCount.Load()))
}
