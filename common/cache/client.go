package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/burakmert236/goodswipe-rewards/common/config"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Keyspace prefixes every key the service writes, so several deployments can
// share one Redis database.
type Keyspace string

// Key joins parts under the keyspace with ":".
func (k Keyspace) Key(parts ...string) string {
	if k == "" {
		return strings.Join(parts, ":")
	}
	return string(k) + ":" + strings.Join(parts, ":")
}

type RedisClient struct {
	client   *redis.Client
	keyspace Keyspace
}

// NewRedisClient connects and pings once, failing fast on a bad address.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &RedisClient{client: client, keyspace: Keyspace(cfg.KeyPrefix)}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisClient) Cmdable() redis.Cmdable {
	return r.client
}

func (r *RedisClient) Keyspace() Keyspace {
	return r.keyspace
}
