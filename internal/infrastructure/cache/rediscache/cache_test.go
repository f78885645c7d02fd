package rediscache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	val, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.values[key] = value.(string)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func newFakeCache() (*Cache, *fakeRedis) {
	fake := &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
	return &Cache{client: fake, prefix: defaultPrefix}, fake
}

func TestCacheSetGetInvalidate(t *testing.T) {
	cache, fake := newFakeCache()
	ctx := context.Background()

	if _, ok, err := cache.Get(ctx, "notes.txt"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := cache.Set(ctx, "notes.txt", "- gist", time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if fake.ttls[defaultPrefix+"notes.txt"] != time.Hour {
		t.Fatalf("expected TTL to be forwarded, got %v", fake.ttls)
	}

	summary, ok, err := cache.Get(ctx, "notes.txt")
	if err != nil || !ok || summary != "- gist" {
		t.Fatalf("Get() = %q, %v, %v", summary, ok, err)
	}

	if err := cache.Invalidate(ctx, "notes.txt"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "notes.txt"); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestCacheGetPropagatesBackendErrors(t *testing.T) {
	cache, fake := newFakeCache()
	fake.getErr = errors.New("connection refused")

	if _, _, err := cache.Get(context.Background(), "a.txt"); err == nil {
		t.Fatalf("expected error")
	}
}
