package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"hedera-pulse/internal/domain"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	data   map[string][]byte
	ttl    map[string]time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string][]byte), ttl: make(map[string]time.Duration)}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = append([]byte(nil), v...)
	case string:
		f.data[key] = []byte(v)
	default:
		b, _ := json.Marshal(v)
		f.data[key] = b
	}
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	if v, ok := f.data[key]; ok {
		return redis.NewStringResult(string(v), nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func TestStatusStoreRoundTrip(t *testing.T) {
	fake := newFakeRedis()
	store := NewStatusStore(fake)
	ctx := context.Background()

	want := domain.CollectorStatus{
		LastRunID:     "run-1",
		LastRunAt:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		LastSuccessAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.ttl[collectorStatusKey] != collectorStatusTTL {
		t.Fatalf("expected ttl %v, got %v", collectorStatusTTL, fake.ttl[collectorStatusKey])
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.LastRunID != want.LastRunID || !got.LastRunAt.Equal(want.LastRunAt) {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestStatusStoreLoadEmpty(t *testing.T) {
	got, err := NewStatusStore(newFakeRedis()).Load(context.Background())
	if err != nil {
		t.Fatalf("missing key should not be an error: %v", err)
	}
	if got.LastRunID != "" || !got.LastRunAt.IsZero() {
		t.Fatalf("expected zero status, got %+v", got)
	}
}

func TestStatusStoreLoadError(t *testing.T) {
	fake := newFakeRedis()
	fake.getErr = errors.New("connection reset")
	if _, err := NewStatusStore(fake).Load(context.Background()); err == nil {
		t.Fatal("expected redis error")
	}
}
