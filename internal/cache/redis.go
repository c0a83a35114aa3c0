package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const tenantKeyPattern = "tenant:%s"

// RedisStore is a Store backed by Redis so that multiple edge replicas share
// one view of tenant status. Expiry is delegated to Redis TTLs; Get treats
// any Redis error as a miss so a broken Redis degrades to re-verification
// instead of failing requests.
type RedisStore struct {
	client *redis.Client
	logger *logrus.Logger
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func NewRedisStore(cfg RedisConfig, logger *logrus.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, logger: logger}, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Entry, bool) {
	val, err := s.client.Get(ctx, fmt.Sprintf(tenantKeyPattern, id)).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.WithError(err).WithField("tenant", id).Warn("Redis get failed, treating as miss")
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		s.logger.WithError(err).WithField("tenant", id).Warn("Corrupt cache entry, treating as miss")
		return nil, false
	}
	return &entry, true
}

func (s *RedisStore) Set(ctx context.Context, id string, entry *Entry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, fmt.Sprintf(tenantKeyPattern, id), payload, ttl).Err()
}

func (s *RedisStore) Invalidate(ctx context.Context, id string) bool {
	n, err := s.client.Del(ctx, fmt.Sprintf(tenantKeyPattern, id)).Result()
	if err != nil {
		s.logger.WithError(err).WithField("tenant", id).Warn("Redis delete failed")
		return false
	}
	return n > 0
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
