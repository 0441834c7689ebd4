// Package cache implements the best-effort snapshot cache on Redis. It
// keeps the last decoded snapshot per account so the presentation layer can
// show something while a fresh read is in flight or failing. It is never
// consulted by the reconciliation loop itself, which always reads fresh.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
	"github.com/souzavinny/rootagotchi/internal/game"
)

const keyPrefix = "rootagotchi:snapshot:"

// Config describes the Redis connection.
type Config struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisSnapshotCache implements game.SnapshotCache.
type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects and pings the Redis server.
func NewRedis(ctx context.Context, cfg Config) (*RedisSnapshotCache, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisSnapshotCache{client: client, ttl: ttl}, nil
}

// Put stores the snapshot under the account key. A nil snapshot clears the
// entry instead.
func (c *RedisSnapshotCache) Put(ctx context.Context, account common.Address, snap *game.Snapshot) error {
	if snap == nil {
		return c.Invalidate(ctx, account)
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeCacheFailure, err, "encode snapshot")
	}
	if err := c.client.Set(ctx, key(account), body, c.ttl).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeCacheFailure, err, "store snapshot")
	}
	return nil
}

// Get returns the cached snapshot, nil on a cold key.
func (c *RedisSnapshotCache) Get(ctx context.Context, account common.Address) (*game.Snapshot, error) {
	body, err := c.client.Get(ctx, key(account)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeCacheFailure, err, "load snapshot")
	}
	var snap game.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeCacheFailure, err, "decode snapshot")
	}
	return &snap, nil
}

// Invalidate removes the account's entry.
func (c *RedisSnapshotCache) Invalidate(ctx context.Context, account common.Address) error {
	if err := c.client.Del(ctx, key(account)).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeCacheFailure, err, "drop snapshot")
	}
	return nil
}

// Close releases the Redis connection.
func (c *RedisSnapshotCache) Close() error {
	return c.client.Close()
}

func key(account common.Address) string {
	return keyPrefix + strings.ToLower(account.Hex())
}
