package metricsource

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/linkplanhq/linkplan/internal/observability"
	"github.com/linkplanhq/linkplan/internal/target"
)

type stubSource struct {
	rd    float64
	err   error
	calls int
}

func (s *stubSource) FetchReferringDomains(ctx context.Context, scope target.Scope) (float64, error) {
	s.calls++
	return s.rd, s.err
}

func (s *stubSource) Name() string { return "stub" }

type memStore struct {
	entries map[string]float64
	getErr  error
	setErr  error
}

func newMemStore() *memStore { return &memStore{entries: make(map[string]float64)} }

func (m *memStore) GetCachedRD(ctx context.Context, key string) (float64, bool, error) {
	if m.getErr != nil {
		return 0, false, m.getErr
	}
	rd, ok := m.entries[key]
	return rd, ok, nil
}

func (m *memStore) SetCachedRD(ctx context.Context, key string, rd float64, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[key] = rd
	return nil
}

func TestCache_MissThenHit(t *testing.T) {
	src := &stubSource{rd: 55}
	store := newMemStore()
	cache := NewCache(src, store, time.Hour, zap.NewNop(), observability.NewNoOpRegistry())
	scope := mustScope(t, "example.com")

	rd, hit, err := cache.Lookup(context.Background(), scope)
	if err != nil {
		t.Fatal(err)
	}
	if hit || rd != 55 {
		t.Fatalf("first lookup: rd=%g hit=%v", rd, hit)
	}

	rd, hit, err = cache.Lookup(context.Background(), scope)
	if err != nil {
		t.Fatal(err)
	}
	if !hit || rd != 55 {
		t.Fatalf("second lookup: rd=%g hit=%v", rd, hit)
	}
	if src.calls != 1 {
		t.Errorf("source called %d times, want 1", src.calls)
	}
}

func TestCache_KeyIncludesMode(t *testing.T) {
	src := &stubSource{rd: 5}
	store := newMemStore()
	cache := NewCache(src, store, time.Hour, zap.NewNop(), observability.NewNoOpRegistry())

	if _, _, err := cache.Lookup(context.Background(), mustScope(t, "example.com")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := cache.Lookup(context.Background(), mustScope(t, "example.com/pricing")); err != nil {
		t.Fatal(err)
	}
	if src.calls != 2 {
		t.Errorf("source called %d times, want 2 for distinct scopes", src.calls)
	}
}

func TestCache_StoreErrorsDegradeToFetch(t *testing.T) {
	src := &stubSource{rd: 8}
	store := newMemStore()
	store.getErr = errors.New("redis down")
	store.setErr = errors.New("redis down")
	cache := NewCache(src, store, time.Hour, zap.NewNop(), observability.NewNoOpRegistry())

	rd, hit, err := cache.Lookup(context.Background(), mustScope(t, "example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if hit || rd != 8 {
		t.Fatalf("rd=%g hit=%v", rd, hit)
	}
}

func TestCache_NilStoreDelegates(t *testing.T) {
	src := &stubSource{rd: 3}
	cache := NewCache(src, nil, time.Hour, zap.NewNop(), observability.NewNoOpRegistry())

	rd, hit, err := cache.Lookup(context.Background(), mustScope(t, "example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if hit || rd != 3 {
		t.Fatalf("rd=%g hit=%v", rd, hit)
	}
}

func TestCache_SourceErrorPropagates(t *testing.T) {
	src := &stubSource{err: ErrMetricNotFound}
	cache := NewCache(src, newMemStore(), time.Hour, zap.NewNop(), observability.NewNoOpRegistry())

	_, _, err := cache.Lookup(context.Background(), mustScope(t, "example.com"))
	if !errors.Is(err, ErrMetricNotFound) {
		t.Fatalf("err = %v, want ErrMetricNotFound", err)
	}
}
