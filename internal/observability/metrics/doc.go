// Package metrics provides the Prometheus registry for feedhub's fetch,
// cache, refresh, and runtime counters and histograms, all exposed via the
// /metrics endpoint.
//
// Example usage:
//
//	import "feedhub/internal/observability/metrics"
//
//	start := time.Now()
//	feed, err := fetcher.Fetch(ctx, url)
//	metrics.RecordFetch(time.Since(start), err == nil)
package metrics
