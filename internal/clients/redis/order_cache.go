package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/logger"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/types"
)

const orderCacheTTL = 10 * time.Minute

// OrderCache keeps resolved learning paths in redis, keyed by snapshot id.
// Entries are written on read and dropped on every structural write, so a
// hit always reflects the last committed relation state.
type OrderCache struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewOrderCache(log *logger.Logger) (*OrderCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &OrderCache{
		log: log.With("client", "RedisOrderCache"),
		rdb: rdb,
	}, nil
}

func orderCacheKey(snapshotID uuid.UUID) string {
	return "snapshot:ordered_items:" + snapshotID.String()
}

func (c *OrderCache) Get(ctx context.Context, snapshotID uuid.UUID) ([]types.OrderedItem, bool) {
	raw, err := c.rdb.Get(ctx, orderCacheKey(snapshotID)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("Order cache read failed", "error", err, "snapshot_id", snapshotID)
		}
		return nil, false
	}

	var items []types.OrderedItem
	if err := json.Unmarshal(raw, &items); err != nil {
		c.log.Warn("Order cache entry corrupt, dropping", "error", err, "snapshot_id", snapshotID)
		_ = c.rdb.Del(ctx, orderCacheKey(snapshotID)).Err()
		return nil, false
	}
	return items, true
}

func (c *OrderCache) Set(ctx context.Context, snapshotID uuid.UUID, items []types.OrderedItem) {
	raw, err := json.Marshal(items)
	if err != nil {
		c.log.Warn("Order cache marshal failed", "error", err, "snapshot_id", snapshotID)
		return
	}
	if err := c.rdb.Set(ctx, orderCacheKey(snapshotID), raw, orderCacheTTL).Err(); err != nil {
		c.log.Warn("Order cache write failed", "error", err, "snapshot_id", snapshotID)
	}
}

func (c *OrderCache) Invalidate(ctx context.Context, snapshotID uuid.UUID) {
	if err := c.rdb.Del(ctx, orderCacheKey(snapshotID)).Err(); err != nil {
		c.log.Warn("Order cache invalidation failed", "error", err, "snapshot_id", snapshotID)
	}
}

func (c *OrderCache) Close() error {
	return c.rdb.Close()
}
