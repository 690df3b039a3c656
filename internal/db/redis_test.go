package db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return &RedisStore{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}, mr
}

func TestRDCache_RoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if _, found, err := store.GetCachedRD(ctx, "example.com|subdomains"); err != nil || found {
		t.Fatalf("expected clean miss, got found=%v err=%v", found, err)
	}

	if err := store.SetCachedRD(ctx, "example.com|subdomains", 123.5, time.Hour); err != nil {
		t.Fatal(err)
	}

	rd, found, err := store.GetCachedRD(ctx, "example.com|subdomains")
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if rd != 123.5 {
		t.Errorf("rd = %g, want 123.5", rd)
	}

	if ttl := mr.TTL("rd:example.com|subdomains"); ttl != time.Hour {
		t.Errorf("ttl = %s, want 1h", ttl)
	}
}

func TestRDCache_CorruptEntry(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Set("rd:bad", "not-a-number")

	if _, _, err := store.GetCachedRD(context.Background(), "bad"); err == nil {
		t.Fatal("expected error for corrupt entry")
	}
}

func TestIncrementKeyUsage(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := store.IncrementKeyUsage(ctx, "key-1")
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("usage = %d, want %d", got, want)
		}
	}
}
