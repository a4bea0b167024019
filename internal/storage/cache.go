package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"plant_identifier/internal/models"
)

// Cached wraps a Store with an in-process read-through cache for Get and
// GetThumbnail. Records never change once written, so entries only expire
// to bound memory. Misses are not cached since a thumbnail may appear later.
type Cached struct {
	Store
	cache *cache.Cache
}

func NewCached(s Store, ttl time.Duration) *Cached {
	return &Cached{
		Store: s,
		cache: cache.New(ttl, 2*ttl),
	}
}

func detectionKey(id uuid.UUID) string { return "d:" + id.String() }
func thumbnailKey(id uuid.UUID) string { return "t:" + id.String() }

func (c *Cached) Get(ctx context.Context, id uuid.UUID) (*models.Detection, error) {
	if v, ok := c.cache.Get(detectionKey(id)); ok {
		d := v.(models.Detection)
		return &d, nil
	}
	d, err := c.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(detectionKey(id), *d)
	return d, nil
}

func (c *Cached) GetThumbnail(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if v, ok := c.cache.Get(thumbnailKey(id)); ok {
		return v.([]byte), nil
	}
	data, err := c.Store.GetThumbnail(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(thumbnailKey(id), data)
	return data, nil
}
