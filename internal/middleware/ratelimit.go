package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/linkplanhq/linkplan/internal/observability"
)

// RateLimitConfig holds the per-key token bucket parameters.
type RateLimitConfig struct {
	Capacity   int  // bucket capacity (burst allowance)
	RefillRate int  // tokens added per second (sustained rate)
	Enabled    bool // whether rate limiting is active
}

// tokenBucket is a thread-safe token bucket. The bucket starts full and
// refills at a constant rate; each request consumes one token.
type tokenBucket struct {
	capacity   int
	tokens     int
	refillRate int
	lastRefill time.Time
	mu         sync.Mutex
}

func newTokenBucket(capacity, refillRate int) *tokenBucket {
	return &tokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// allow attempts to consume one token, refilling based on elapsed time.
func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)
	tokensToAdd := int(elapsed.Seconds() * float64(tb.refillRate))
	if tokensToAdd > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+tokensToAdd)
		tb.lastRefill = now
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// KeyLimiter rate limits per API key. Each key gets its own token bucket,
// created lazily on first access.
type KeyLimiter struct {
	buckets map[string]*tokenBucket
	mu      sync.RWMutex
	config  RateLimitConfig
	metrics observability.MetricsRegistry
}

// NewKeyLimiter creates a per-key rate limiter with the given configuration.
func NewKeyLimiter(config RateLimitConfig, metrics observability.MetricsRegistry) *KeyLimiter {
	return &KeyLimiter{
		buckets: make(map[string]*tokenBucket),
		config:  config,
		metrics: metrics,
	}
}

// Allow checks whether a request for the given key should proceed. Always
// true when rate limiting is disabled.
func (kl *KeyLimiter) Allow(keyID string) bool {
	if !kl.config.Enabled {
		return true
	}

	kl.metrics.IncrementRateLimitRequests(keyID)

	kl.mu.RLock()
	bucket, exists := kl.buckets[keyID]
	kl.mu.RUnlock()

	if !exists {
		// Double-checked locking to avoid racing bucket creation.
		kl.mu.Lock()
		bucket, exists = kl.buckets[keyID]
		if !exists {
			bucket = newTokenBucket(kl.config.Capacity, kl.config.RefillRate)
			kl.buckets[keyID] = bucket
		}
		kl.mu.Unlock()
	}

	allowed := bucket.allow()
	if !allowed {
		kl.metrics.IncrementRateLimitHits(keyID)
	}
	return allowed
}

// Middleware wraps next with the per-key limit. Requests that never passed
// through Auth fall back to a bucket keyed by remote address.
func (kl *KeyLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keyID := APIKeyIDFromContext(r.Context())
		if keyID == "" {
			keyID = r.RemoteAddr
		}
		if !kl.Allow(keyID) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
