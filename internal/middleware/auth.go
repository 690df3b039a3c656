package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/linkplanhq/linkplan/internal/observability"
)

// ProxyKeyHeader carries the shared secret for programmatic callers.
const ProxyKeyHeader = "X-Proxy-Key"

type apiKeyIDKey struct{}

// KeyUsageCounter tracks accepted requests per API key; satisfied by
// db.RedisStore. Accounting is best effort.
type KeyUsageCounter interface {
	IncrementKeyUsage(ctx context.Context, keyID string) (int64, error)
}

// Auth rejects requests that do not present one of the configured proxy
// keys in the X-Proxy-Key header or as an Authorization bearer token.
type Auth struct {
	keys    []string
	keyIDs  []string
	usage   KeyUsageCounter
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

// NewAuth builds an Auth middleware for the given key set. Keys get stable
// positional IDs (key-1, key-2, ...) used for usage accounting and metric
// labels so the secrets themselves never leave the process.
func NewAuth(keys []string, usage KeyUsageCounter, logger *zap.Logger, metrics observability.MetricsRegistry) *Auth {
	ids := make([]string, len(keys))
	for i := range keys {
		ids[i] = fmt.Sprintf("key-%d", i+1)
	}
	return &Auth{keys: keys, keyIDs: ids, usage: usage, logger: logger, metrics: metrics}
}

// Middleware wraps next with the proxy-key check.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := presentedKey(r)
		keyID, ok := a.match(presented)
		if !ok {
			a.metrics.IncrementAuthFailures()
			LoggerFromRequest(r, a.logger).Warn("proxy key rejected",
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("path", r.URL.Path))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}

		if a.usage != nil {
			if _, err := a.usage.IncrementKeyUsage(r.Context(), keyID); err != nil {
				a.logger.Warn("key usage accounting failed", zap.Error(err))
			}
		}

		ctx := context.WithValue(r.Context(), apiKeyIDKey{}, keyID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// match compares the presented key against every configured key in constant
// time and returns the matching key's ID.
func (a *Auth) match(presented string) (string, bool) {
	if presented == "" {
		return "", false
	}
	for i, k := range a.keys {
		if subtle.ConstantTimeCompare([]byte(presented), []byte(k)) == 1 {
			return a.keyIDs[i], true
		}
	}
	return "", false
}

func presentedKey(r *http.Request) string {
	if k := r.Header.Get(ProxyKeyHeader); k != "" {
		return k
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// APIKeyIDFromContext returns the authenticated key's positional ID, or an
// empty string when the request never passed through Auth.
func APIKeyIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(apiKeyIDKey{}).(string); ok {
		return id
	}
	return ""
}
