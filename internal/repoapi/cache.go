package repoapi

import (
	"context"
	"encoding/json"
	"fmt"
)

func weekCacheKey(start string) string {
	return fmt.Sprintf("%sweek:%s", CachePrefix, start)
}

func groupsCacheKey(userID int64) string {
	return fmt.Sprintf("%sgroups:%d", CachePrefix, userID)
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

// Invalidate drops every cached read. Callers run it after a successful write
// so the next week or group fetch sees the new bookings.
func (c *Client) Invalidate(ctx context.Context) (int, error) {
	if c.redis == nil {
		return 0, nil
	}
	var keys []string
	iter := c.redis.Scan(ctx, 0, CachePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.redis.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("delete cache keys: %w", err)
	}
	return int(n), nil
}
