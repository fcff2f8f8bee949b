package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/classconnect-api/pkg/config"
)

const defaultDialTimeout = 5 * time.Second

// NewRedis dials Redis and verifies the connection before handing it out.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = defaultDialTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: dial,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}

	return client, nil
}

// Keyspace prefixes every cache key so several deployments can share one Redis.
type Keyspace string

// Key joins parts under the keyspace with ':' separators.
func (k Keyspace) Key(parts ...string) string {
	joined := strings.Join(parts, ":")
	if k == "" {
		return joined
	}
	if joined == "" {
		return string(k)
	}
	return string(k) + ":" + joined
}
