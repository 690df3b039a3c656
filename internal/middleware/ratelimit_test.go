package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/linkplanhq/linkplan/internal/observability"
)

func TestKeyLimiter_ExhaustsBucket(t *testing.T) {
	kl := NewKeyLimiter(RateLimitConfig{Capacity: 2, RefillRate: 0, Enabled: true}, observability.NewNoOpRegistry())

	if !kl.Allow("key-1") || !kl.Allow("key-1") {
		t.Fatal("first two requests should pass")
	}
	if kl.Allow("key-1") {
		t.Fatal("third request should be limited")
	}
	// A different key gets its own bucket.
	if !kl.Allow("key-2") {
		t.Fatal("other key should not be affected")
	}
}

func TestKeyLimiter_DisabledAlwaysAllows(t *testing.T) {
	kl := NewKeyLimiter(RateLimitConfig{Capacity: 1, RefillRate: 0, Enabled: false}, observability.NewNoOpRegistry())
	for i := 0; i < 10; i++ {
		if !kl.Allow("key-1") {
			t.Fatal("disabled limiter blocked a request")
		}
	}
}

func TestKeyLimiter_Middleware(t *testing.T) {
	kl := NewKeyLimiter(RateLimitConfig{Capacity: 1, RefillRate: 0, Enabled: true}, observability.NewNoOpRegistry())
	h := kl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/recommend", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: %d, want 429", rec.Code)
	}
}
