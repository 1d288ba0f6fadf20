package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"olivetrace/app/dashboard"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "olivetrace:snapshot"

var invalidateScript = redis.NewScript(`
local keys = redis.call("SMEMBERS", KEYS[1])
for _, key in ipairs(keys) do
  redis.call("DEL", key)
end
redis.call("DEL", KEYS[1])
return #keys
`)

// SnapshotCache shares derived dashboard views between API instances. Each
// identity keeps an index set of its snapshot keys so one event can drop
// all of them.
type SnapshotCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewSnapshotCache(client redis.UniversalClient, prefix string, ttl time.Duration) *SnapshotCache {
	trimmedPrefix := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmedPrefix == "" {
		trimmedPrefix = defaultPrefix
	}
	return &SnapshotCache{client: client, prefix: trimmedPrefix, ttl: ttl}
}

// Connect parses a redis:// URL and checks the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *SnapshotCache) key(key dashboard.SnapshotKey) string {
	return c.prefix + ":" + key.String()
}

func (c *SnapshotCache) indexKey(identity common.Address) string {
	return c.prefix + ":index:" + strings.ToLower(identity.Hex())
}

func (c *SnapshotCache) Get(ctx context.Context, key dashboard.SnapshotKey) (*dashboard.View, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var view dashboard.View
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return &view, true, nil
}

func (c *SnapshotCache) Set(ctx context.Context, key dashboard.SnapshotKey, view *dashboard.View) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}

	snapshotKey := c.key(key)
	indexKey := c.indexKey(key.Identity)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, snapshotKey, raw, c.ttl)
		pipe.SAdd(ctx, indexKey, snapshotKey)
		if c.ttl > 0 {
			pipe.Expire(ctx, indexKey, c.ttl)
		}
		return nil
	})
	return err
}

func (c *SnapshotCache) Invalidate(ctx context.Context, identity common.Address) error {
	return invalidateScript.Run(ctx, c.client, []string{c.indexKey(identity)}).Err()
}
