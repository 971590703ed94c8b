package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"hedera-pulse/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	collectorStatusKey = "collector:status"
	collectorStatusTTL = 24 * time.Hour
)

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// StatusStore keeps the collector's last-run summary in Redis so every
// server replica reports the same status.
type StatusStore struct {
	redis RedisClient
}

func NewStatusStore(client RedisClient) *StatusStore {
	return &StatusStore{redis: client}
}

func (s *StatusStore) Save(ctx context.Context, status domain.CollectorStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, collectorStatusKey, data, collectorStatusTTL).Err()
}

// Load returns a zero status when nothing has been recorded yet.
func (s *StatusStore) Load(ctx context.Context) (domain.CollectorStatus, error) {
	var status domain.CollectorStatus
	data, err := s.redis.Get(ctx, collectorStatusKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return status, nil
	}
	if err != nil {
		return status, err
	}
	err = json.Unmarshal(data, &status)
	return status, err
}
