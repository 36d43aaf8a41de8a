package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "shelfkeeper:revoked:"

// RedisStore shares revocations between server instances. Keys expire
// together with the token they describe.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient parses url and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, redisKeyPrefix+tokenID).Result()
	if err != nil {
		return false, common.Backend("redis exists", err)
	}
	return n > 0, nil
}

// Revoke uses SET NX, so exactly one concurrent caller sees consumed=true.
func (s *RedisStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := s.client.SetNX(ctx, redisKeyPrefix+tokenID, 1, ttl).Result()
	if err != nil {
		return false, common.Backend("redis setnx", err)
	}
	return ok, nil
}
