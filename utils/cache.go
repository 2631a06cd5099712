package utils

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = time.Minute

// Cache stores serialized responses in Redis. A nil Cache or client turns every call into a miss/no-op.
type Cache struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewCache wraps rc; ttl <= 0 means one minute.
func NewCache(rc *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{rc: rc, ttl: ttl}
}

// Enabled reports whether a Redis client is attached.
func (c *Cache) Enabled() bool {
	return c != nil && c.rc != nil
}

// GetBytes returns cached bytes for a key.
func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil && Sugar != nil {
			Sugar.Debugf("cache get failed key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

// SetBytes stores bytes with the cache TTL.
func (c *Cache) SetBytes(ctx context.Context, key string, b []byte) {
	if !c.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.rc.Set(ctx, key, b, c.ttl).Err(); err != nil && Sugar != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// SetJSON marshals v and stores the JSON bytes.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}) {
	if !c.Enabled() {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.SetBytes(ctx, key, b)
}

// InvalidateByPrefix deletes keys that match the given prefix using SCAN.
func (c *Cache) InvalidateByPrefix(ctx context.Context, prefix string) {
	if !c.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // limit rounds to avoid long loops
		keys, cur, err := c.rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			break
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := c.rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			break
		}
	}
}

// SetFlag stores a marker key that expires after ttl.
func (c *Cache) SetFlag(ctx context.Context, key string, ttl time.Duration) bool {
	if !c.Enabled() || ttl <= 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.rc.Set(ctx, key, "1", ttl).Err() == nil
}

// HasFlag reports whether a marker key exists. ok is false when Redis could not answer.
func (c *Cache) HasFlag(ctx context.Context, key string) (exists, ok bool) {
	if !c.Enabled() {
		return false, false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	n, err := c.rc.Exists(ctx, key).Result()
	if err != nil {
		return false, false
	}
	return n > 0, true
}
