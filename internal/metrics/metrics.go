package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRuns tracks reconciliation runs by result (completed, aborted)
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holderwatch_sync_runs_total",
			Help: "Total number of holder reconciliation runs",
		},
		[]string{"result"},
	)

	// HoldersProcessed tracks per-address outcomes within runs
	HoldersProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holderwatch_holders_processed_total",
			Help: "Total number of addresses processed by outcome",
		},
		[]string{"outcome"},
	)

	// ExternalAPIRequests tracks calls to upstream data providers
	ExternalAPIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holderwatch_external_api_requests_total",
			Help: "Total number of external API calls",
		},
		[]string{"provider", "outcome"},
	)

	// ExternalAPILatency tracks upstream call latency
	ExternalAPILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "holderwatch_external_api_latency_seconds",
			Help:    "External API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// PriceCacheEvents tracks current-price cache hits and misses
	PriceCacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holderwatch_price_cache_events_total",
			Help: "Current price cache events",
		},
		[]string{"event"},
	)
)
