package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics
// so handlers and clients take an injected dependency instead of touching
// the global Prometheus vectors directly.
type MetricsRegistry interface {
	// HTTP request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Recommendation lookup metrics
	IncrementLookups(outcome string)
	ObserveReferringDomains(rd float64)
	IncrementTier(tier string)
	IncrementDripfeed()

	// Upstream metric source metrics
	IncrementUpstreamFetches(source, outcome string)
	RecordUpstreamLatency(source string, duration time.Duration)
	IncrementCacheLookups(result string)

	// AuthN and rate limiting metrics
	IncrementRateLimitRequests(keyID string)
	IncrementRateLimitHits(keyID string)
	IncrementAuthFailures()
}

// PrometheusRegistry implements MetricsRegistry using the package-level
// Prometheus metrics.
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry.
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementLookups(outcome string) {
	LookupCount.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRegistry) ObserveReferringDomains(rd float64) {
	ReferringDomains.Observe(rd)
}

func (r *PrometheusRegistry) IncrementTier(tier string) {
	TierCount.WithLabelValues(tier).Inc()
}

func (r *PrometheusRegistry) IncrementDripfeed() {
	DripfeedCount.Inc()
}

func (r *PrometheusRegistry) IncrementUpstreamFetches(source, outcome string) {
	UpstreamFetchCount.WithLabelValues(source, outcome).Inc()
}

func (r *PrometheusRegistry) RecordUpstreamLatency(source string, duration time.Duration) {
	UpstreamFetchLatency.WithLabelValues(source).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementCacheLookups(result string) {
	CacheLookups.WithLabelValues(result).Inc()
}

func (r *PrometheusRegistry) IncrementRateLimitRequests(keyID string) {
	RateLimitRequests.WithLabelValues(keyID).Inc()
}

func (r *PrometheusRegistry) IncrementRateLimitHits(keyID string) {
	RateLimitHits.WithLabelValues(keyID).Inc()
}

func (r *PrometheusRegistry) IncrementAuthFailures() {
	AuthFailures.Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing.
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry.
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementLookups(outcome string)                                      {}
func (r *NoOpRegistry) ObserveReferringDomains(rd float64)                                   {}
func (r *NoOpRegistry) IncrementTier(tier string)                                            {}
func (r *NoOpRegistry) IncrementDripfeed()                                                   {}
func (r *NoOpRegistry) IncrementUpstreamFetches(source, outcome string)                      {}
func (r *NoOpRegistry) RecordUpstreamLatency(source string, duration time.Duration)          {}
func (r *NoOpRegistry) IncrementCacheLookups(result string)                                  {}
func (r *NoOpRegistry) IncrementRateLimitRequests(keyID string)                              {}
func (r *NoOpRegistry) IncrementRateLimitHits(keyID string)                                  {}
func (r *NoOpRegistry) IncrementAuthFailures()                                               {}
