package metricsource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/linkplanhq/linkplan/internal/observability"
	"github.com/linkplanhq/linkplan/internal/target"
)

func mustScope(t *testing.T, input string) target.Scope {
	t.Helper()
	scope, err := target.Resolve(input)
	if err != nil {
		t.Fatal(err)
	}
	return scope
}

func TestRESTSource_Fetch(t *testing.T) {
	var gotAuth, gotTarget, gotMode string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotTarget = r.URL.Query().Get("target")
		gotMode = r.URL.Query().Get("mode")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"metrics":{"refdomains":37}}`))
	}))
	defer ts.Close()

	src := NewRESTSource(ts.URL, "test-key", 5*time.Second, zap.NewNop(), observability.NewNoOpRegistry())

	rd, err := src.FetchReferringDomains(context.Background(), mustScope(t, "example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if rd != 37 {
		t.Errorf("rd = %g, want 37", rd)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotTarget != "example.com" {
		t.Errorf("target = %q", gotTarget)
	}
	if gotMode != "subdomains" {
		t.Errorf("mode = %q", gotMode)
	}
}

func TestRESTSource_UpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid token"}`, http.StatusForbidden)
	}))
	defer ts.Close()

	src := NewRESTSource(ts.URL, "bad-key", 5*time.Second, zap.NewNop(), observability.NewNoOpRegistry())

	if _, err := src.FetchReferringDomains(context.Background(), mustScope(t, "example.com")); err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestRESTSource_MetricMissing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"backlinks":10}`))
	}))
	defer ts.Close()

	src := NewRESTSource(ts.URL, "k", 5*time.Second, zap.NewNop(), observability.NewNoOpRegistry())

	_, err := src.FetchReferringDomains(context.Background(), mustScope(t, "example.com"))
	if !errors.Is(err, ErrMetricNotFound) {
		t.Fatalf("err = %v, want ErrMetricNotFound", err)
	}
}
