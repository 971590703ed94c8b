package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestInitRedisWithCustomAddr(t *testing.T) {
	origNewClient := newRedisClient
	origPing := pingRedis
	t.Cleanup(func() {
		newRedisClient = origNewClient
		pingRedis = origPing
		Client = nil
	})

	var capturedAddr string
	newRedisClient = func(opts *redis.Options) *redis.Client {
		capturedAddr = opts.Addr
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return nil
	}

	if err := InitRedis(context.Background(), "redis:9999", zerolog.Nop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedAddr != "redis:9999" {
		t.Fatalf("expected custom addr, got %s", capturedAddr)
	}
}

func TestInitRedisDefaults(t *testing.T) {
	origNewClient := newRedisClient
	origPing := pingRedis
	t.Cleanup(func() {
		newRedisClient = origNewClient
		pingRedis = origPing
		Client = nil
	})

	var capturedAddr string
	newRedisClient = func(opts *redis.Options) *redis.Client {
		capturedAddr = opts.Addr
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return nil
	}

	if err := InitRedis(context.Background(), "", zerolog.Nop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedAddr != "localhost:6379" {
		t.Fatalf("expected default addr, got %s", capturedAddr)
	}
}

func TestInitRedisParsesURL(t *testing.T) {
	origNewClient := newRedisClient
	origPing := pingRedis
	t.Cleanup(func() {
		newRedisClient = origNewClient
		pingRedis = origPing
		Client = nil
	})

	var captured *redis.Options
	newRedisClient = func(opts *redis.Options) *redis.Client {
		captured = opts
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error { return nil }

	if err := InitRedis(context.Background(), "redis://:secret@cache:6380/2", zerolog.Nop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Addr != "cache:6380" || captured.DB != 2 || captured.Password != "secret" {
		t.Fatalf("unexpected options: addr=%s db=%d", captured.Addr, captured.DB)
	}
}

func TestInitRedisPingFailure(t *testing.T) {
	origPing := pingRedis
	t.Cleanup(func() {
		pingRedis = origPing
		Client = nil
	})
	pingRedis = func(ctx context.Context, client *redis.Client) error { return errors.New("refused") }

	if err := InitRedis(context.Background(), "localhost:1", zerolog.Nop()); err == nil {
		t.Fatal("expected ping error")
	}
	if Client != nil {
		t.Fatal("client should not be set after a failed ping")
	}
}
