// Package metrics provides centralized Prometheus metrics for feedhub.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetcher metrics track outbound feed fetches.
var (
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedhub_fetch_total",
			Help: "Total number of FeedFetcher.Fetch calls, by outcome",
		},
		[]string{"outcome"},
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feedhub_fetch_duration_seconds",
			Help:    "FeedFetcher.Fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Cache metrics track FeedCache lookups.
var (
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedhub_cache_lookups_total",
			Help: "Total number of FeedCache.Fetch lookups, by outcome",
		},
		[]string{"outcome"}, // hit | miss | coalesced | error
	)

	CacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedhub_cache_evictions_total",
			Help: "Total number of cache entries evicted to satisfy the weight bound",
		},
	)

	CacheWeightBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedhub_cache_weight_bytes",
			Help: "Current accounted cache weight in bytes",
		},
	)
)

// Refresher metrics track PeriodicRefresher iterations.
var (
	RefreshIterationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feedhub_refresh_iteration_duration_seconds",
			Help:    "Duration of one PeriodicRefresher iteration",
			Buckets: prometheus.DefBuckets,
		},
	)

	RefreshErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedhub_refresh_errors_total",
			Help: "Total number of refresh attempts that failed and were skipped",
		},
	)

	RefreshKeysGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedhub_refresh_keys",
			Help: "Number of cache keys walked in the last refresh iteration",
		},
	)
)

// Usecase metrics track fan-out concurrency and Runtime outcomes.
var (
	FanoutInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feedhub_fanout_in_flight",
			Help: "Number of in-flight per-feed fetches in a usecase fan-out",
		},
		[]string{"usecase"},
	)

	RuntimeResultTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedhub_runtime_result_total",
			Help: "Total number of Runtime.Run invocations, by usecase and result",
		},
		[]string{"operation", "result"},
	)
)

// RecordFetch records the outcome and duration of one FeedFetcher.Fetch call.
func RecordFetch(d time.Duration, ok bool) {
	FetchDuration.Observe(d.Seconds())
	if ok {
		FetchTotal.WithLabelValues("success").Inc()
		return
	}
	FetchTotal.WithLabelValues("error").Inc()
}

// RecordCacheLookup records the outcome of one FeedCache.Fetch lookup.
func RecordCacheLookup(outcome string) {
	CacheLookupsTotal.WithLabelValues(outcome).Inc()
}

// RecordRefreshIteration records one PeriodicRefresher loop iteration.
func RecordRefreshIteration(d time.Duration, keys int, errors int) {
	RefreshIterationDuration.Observe(d.Seconds())
	RefreshKeysGauge.Set(float64(keys))
	if errors > 0 {
		RefreshErrorsTotal.Add(float64(errors))
	}
}

// RecordRuntimeResult records one Runtime.Run outcome.
func RecordRuntimeResult(operation, result string) {
	RuntimeResultTotal.WithLabelValues(operation, result).Inc()
}
