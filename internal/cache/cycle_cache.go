package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"kpi-service/internal/models"
)

const activeCycleKey = "cycle:active"

// CycleCache caches the active-cycle lookup in Redis. The lookup happens on
// every submit, so a short TTL saves a DB round trip per request. When Redis
// is unreachable the cache degrades to a no-op and callers fall through to
// the database.
type CycleCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCycleCache connects to Redis; on ping failure it returns a degraded
// cache with a nil client rather than an error.
func NewCycleCache(addr, password string, db int, ttl time.Duration) *CycleCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return &CycleCache{client: nil, ttl: ttl}
	}

	return &CycleCache{client: client, ttl: ttl}
}

// GetActive returns the cached active cycle, or nil on miss or degraded
// cache.
func (c *CycleCache) GetActive(ctx context.Context) (*models.Cycle, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, activeCycleKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var cycle models.Cycle
	if err := json.Unmarshal(data, &cycle); err != nil {
		// Stale or corrupt entry; drop it and treat as a miss
		c.client.Del(ctx, activeCycleKey)
		return nil, nil
	}
	return &cycle, nil
}

// SetActive caches the active cycle.
func (c *CycleCache) SetActive(ctx context.Context, cycle *models.Cycle) error {
	if c == nil || c.client == nil {
		return nil
	}

	data, err := json.Marshal(cycle)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, activeCycleKey, data, c.ttl).Err()
}

// Invalidate drops the cached active cycle. Called on every cycle status
// change.
func (c *CycleCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, activeCycleKey).Err()
}
