package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/example/velora/internal/models"
)

// BundleCacheTTL bounds how stale cached bundle details may get.
const BundleCacheTTL = 10 * time.Minute

// BundleCache is a read-through cache for bundle details. Order placement
// copies bundle pricing onto order lines, so bundle lookups cluster around
// popular bundles; Redis absorbs that read load. The cache is explicit and
// owned here, not hidden inside the pricing code.
type BundleCache struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewBundleCache constructs a BundleCache. A nil Redis client degrades to
// plain database reads.
func NewBundleCache(db *gorm.DB, rdb *redis.Client) *BundleCache {
	return &BundleCache{db: db, redis: rdb}
}

// GetBundle returns bundle details by ID, from Redis when possible.
func (c *BundleCache) GetBundle(ctx context.Context, id uuid.UUID) (*models.Bundle, error) {
	key := "bundle:" + id.String()

	if c.redis != nil {
		if data, err := c.redis.Get(ctx, key).Result(); err == nil {
			var bundle models.Bundle
			if json.Unmarshal([]byte(data), &bundle) == nil {
				return &bundle, nil
			}
		}
	}

	var bundle models.Bundle
	if err := c.db.WithContext(ctx).Preload("Items").First(&bundle, "id = ?", id).Error; err != nil {
		return nil, err
	}

	if c.redis != nil {
		if data, err := json.Marshal(&bundle); err == nil {
			if err := c.redis.Set(ctx, key, data, BundleCacheTTL).Err(); err != nil {
				log.Printf("[BundleCache] failed to cache bundle %s: %v", id, err)
			}
		}
	}

	return &bundle, nil
}

// Invalidate drops a bundle from the cache after a catalog change.
func (c *BundleCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if c.redis == nil {
		return
	}
	c.redis.Del(ctx, "bundle:"+id.String())
}
