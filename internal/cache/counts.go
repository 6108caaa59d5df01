package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// AreaCountCache holds short-lived area-name match counts so the
// "type an area, see N properties" flow doesn't hammer CountDocuments.
// A miss is never an error; the caller just recomputes.
type AreaCountCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAreaCountCache creates an AreaCountCache. A nil client disables
// caching entirely (every Get misses).
func NewAreaCountCache(client *redis.Client, ttl time.Duration) *AreaCountCache {
	return &AreaCountCache{client: client, ttl: ttl}
}

// Key derives a stable cache key from the canonical query string.
func (c *AreaCountCache) Key(canonicalQuery string) string {
	sum := sha256.Sum256([]byte(canonicalQuery))
	return "area_count:" + hex.EncodeToString(sum[:16])
}

// Get returns the cached count and whether it was present.
func (c *AreaCountCache) Get(ctx context.Context, key string) (int64, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Set stores the count. Failures are ignored; the cache is advisory.
func (c *AreaCountCache) Set(ctx context.Context, key string, count int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Set(ctx, key, strconv.FormatInt(count, 10), c.ttl).Err()
}
