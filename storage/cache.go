package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"restaurant-scraper/models"
)

const cacheKeyPrefix = "restaurant:"

// RecordCache is a read-through cache for rendered restaurant records,
// keyed by document id. Cache failures degrade to store reads; they are
// never surfaced to callers.
type RecordCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRecordCache wraps a connected redis client.
func NewRecordCache(rdb *redis.Client, ttl time.Duration) *RecordCache {
	return &RecordCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached record for id, or (nil, false) on miss.
func (c *RecordCache) Get(ctx context.Context, id string) (*models.Restaurant, bool) {
	raw, err := c.rdb.Get(ctx, cacheKeyPrefix+id).Bytes()
	if err != nil {
		return nil, false
	}

	var rec models.Restaurant
	if err := json.Unmarshal(raw, &rec); err != nil {
		// Poisoned entry; drop it so the next read repopulates.
		c.rdb.Del(ctx, cacheKeyPrefix+id)
		return nil, false
	}
	return &rec, true
}

// Set stores the record under its id with the configured TTL.
func (c *RecordCache) Set(ctx context.Context, id string, rec *models.Restaurant) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, cacheKeyPrefix+id, raw, c.ttl)
}

// Invalidate removes the cached record for id. Called after every write
// so stale reads cannot outlive a scrape or edit.
func (c *RecordCache) Invalidate(ctx context.Context, id string) {
	c.rdb.Del(ctx, cacheKeyPrefix+id)
}
