package redis

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"podcastrelay/internal/config"
)

func TestNewRedisClientDisabledWithoutHost(t *testing.T) {
	client, err := NewRedisClient(&config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client != nil {
		t.Fatalf("expected nil client when redis is not configured")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
	if _, err := client.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected error from nil client")
	}
}

func TestClientSetGetExpires(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	key := "test:" + strconv.FormatInt(time.Now().UnixNano(), 10)

	if err := client.Set(ctx, key, "hello", time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := client.Get(ctx, key)
	if err != nil || got != "hello" {
		t.Fatalf("get: %q, %v", got, err)
	}
	time.Sleep(1500 * time.Millisecond)
	if _, err := client.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis-backed tests")
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("atoi port: %v", err)
	}
	client, err := NewRedisClient(&config.Config{Redis: config.RedisConfig{Host: host, Port: port}})
	if err != nil {
		t.Fatalf("new redis client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}
