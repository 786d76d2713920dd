//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
)

// Run with: MULTINET_REDIS_ADDR=localhost:6379 go test -tags integration ./pkg/cache/
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("MULTINET_REDIS_ADDR")
	if addr == "" {
		t.Skip("MULTINET_REDIS_ADDR not set")
	}
	c, err := NewRedisCache(context.Background(), RedisConfig{Addr: addr, DB: 15})
	if err != nil {
		t.Fatalf("NewRedisCache error: %v", err)
	}
	defer c.Close()
	defer c.Clear(context.Background(), "")
	exerciseCache(t, c)
}
