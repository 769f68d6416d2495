package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Builder metrics.

	BuildPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recommend_build_pages_total",
		Help: "Catalog pages processed by the recommendation builder",
	})

	BuildProducts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recommend_build_products_total",
		Help: "Products processed by the recommendation builder",
	})

	BuildPairsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recommend_build_pairs_written_total",
		Help: "(product, category) recommendation lists persisted",
	})

	BuildFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recommend_build_failures_total",
		Help: "Builder query failures by pipeline stage",
	}, []string{"stage"}) // "page", "categories", "aggregate", "store"

	BuildLastRun = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recommend_build_last_run_timestamp_seconds",
		Help: "Unix time at which the last builder run finished",
	})

	// Serving metrics.

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recommend_cache_hits_total",
		Help: "who-view-also-view requests answered from the cache",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recommend_cache_misses_total",
		Help: "who-view-also-view requests that fell back to a live traversal",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recommend_http_request_duration_seconds",
		Help:    "HTTP request latency by route, method and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)
