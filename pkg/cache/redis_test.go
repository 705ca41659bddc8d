package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func newTestRedis(t *testing.T) *RedisCache {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis tests")
	}

	cache, err := NewRedisCache(&Options{
		Backend:       BackendRedis,
		RedisAddr:     addr,
		RedisPassword: os.Getenv("REDIS_TEST_PASSWORD"),
		DefaultTTL:    time.Minute,
	})
	if err != nil {
		t.Fatalf("NewRedisCache() error = %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	cache := newTestRedis(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "flowengine-test:key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	val, err := cache.Get(ctx, "flowengine-test:key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(val) != "value" {
		t.Errorf("Get() = %s, want value", val)
	}

	if err := cache.Delete(ctx, "flowengine-test:key"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, _ := cache.Exists(ctx, "flowengine-test:key"); ok {
		t.Error("key should be deleted")
	}
}

func TestRedisCache_NotFound(t *testing.T) {
	cache := newTestRedis(t)

	_, err := cache.Get(context.Background(), "flowengine-test:missing")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get() error = %v, want ErrKeyNotFound", err)
	}
}

func TestRedisCache_DeleteByPattern(t *testing.T) {
	cache := newTestRedis(t)
	ctx := context.Background()

	for _, k := range []string{"flowengine-test:p:1", "flowengine-test:p:2", "flowengine-test:q:1"} {
		if err := cache.Set(ctx, k, []byte("v"), time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	n, err := cache.DeleteByPattern(ctx, "flowengine-test:p:*")
	if err != nil {
		t.Fatalf("DeleteByPattern() error = %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteByPattern() = %d, want 2", n)
	}
	cache.Delete(ctx, "flowengine-test:q:1")
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	_, err := NewRedisCache(&Options{RedisAddr: "127.0.0.1:1"})
	if err == nil {
		t.Error("expected ping failure for an unreachable server")
	}
}

func TestParseInfo(t *testing.T) {
	info := "# Stats\r\nkeyspace_hits:30\r\nkeyspace_misses:10\r\nevicted_keys:2\r\n# Memory\r\nused_memory:1024\r\nused_memory_human:1.00K\r\n"

	stats := parseInfo(info)

	if stats.Hits != 30 || stats.Misses != 10 || stats.Evictions != 2 || stats.MemoryBytes != 1024 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.HitRate != 0.75 {
		t.Errorf("expected hit rate 0.75, got %v", stats.HitRate)
	}
	if stats.Backend != BackendRedis {
		t.Errorf("expected redis backend, got %s", stats.Backend)
	}
}
