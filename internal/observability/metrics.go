package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkplan_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkplan_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// recommendation lookups by outcome (ok, invalid_target, upstream_error, ...)
	LookupCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkplan_lookups_total",
			Help: "Total recommendation lookups by outcome",
		},
		[]string{"outcome"},
	)

	// upstream referring-domain fetches by source and outcome
	UpstreamFetchCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkplan_upstream_fetches_total",
			Help: "Total upstream metric fetches",
		},
		[]string{"source", "outcome"},
	)

	// latency of upstream fetches per source
	UpstreamFetchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkplan_upstream_fetch_duration_seconds",
			Help:    "Duration of upstream metric fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// distribution of referring-domain counts observed
	ReferringDomains = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linkplan_referring_domains",
			Help:    "Histogram of referring-domain counts used for recommendations",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	// recommendations served per tier ("min-max" label)
	TierCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkplan_tier_recommendations_total",
			Help: "Total recommendations per tier",
		},
		[]string{"tier"},
	)

	// recommendations that enabled dripfeed pacing
	DripfeedCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkplan_dripfeed_total",
			Help: "Total recommendations with dripfeed enabled",
		},
	)

	// RD cache lookups by result (hit/miss)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkplan_cache_lookups_total",
			Help: "Total RD cache lookups",
		},
		[]string{"result"},
	)

	// rate limit requests per API key
	RateLimitRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkplan_ratelimit_requests_total",
			Help: "Total rate limit checks per API key",
		},
		[]string{"key_id"},
	)

	// rate limit hits per API key
	RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkplan_ratelimit_hits_total",
			Help: "Total rate limited requests per API key",
		},
		[]string{"key_id"},
	)

	// rejected proxy-key checks
	AuthFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkplan_auth_failures_total",
			Help: "Total requests rejected by proxy-key authentication",
		},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		LookupCount,
		UpstreamFetchCount,
		UpstreamFetchLatency,
		ReferringDomains,
		TierCount,
		DripfeedCount,
		CacheLookups,
		RateLimitRequests,
		RateLimitHits,
		AuthFailures,
	)
}
