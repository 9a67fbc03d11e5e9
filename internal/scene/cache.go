package scene

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"scene-store/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

// ListCache is an optional Redis read-through cache for scene listings.
// Gallery views hit ListScenes far more often than scenes change, so the
// per-project meta list is cached and invalidated on every save and delete.
// A nil *ListCache is valid and disables caching. Cache failures are logged
// and treated as misses; the store stays authoritative.
type ListCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// NewListCache creates a listing cache over an established Redis client.
func NewListCache(client *redis.Client, ttl time.Duration, log logger.Logger) *ListCache {
	return &ListCache{
		client: client,
		ttl:    ttl,
		log:    log.WithComponent("scene-list-cache"),
	}
}

// Get returns the cached listing for a project, if present.
func (c *ListCache) Get(ctx context.Context, projectID string) ([]SceneMeta, bool) {
	if c == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, c.key(projectID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warnf("listing cache read failed for project %s: %v", projectID, err)
		}
		return nil, false
	}

	var metas []SceneMeta
	if err := json.Unmarshal(raw, &metas); err != nil {
		c.log.Warnf("listing cache payload corrupt for project %s, dropping: %v", projectID, err)
		c.Invalidate(ctx, projectID)
		return nil, false
	}
	return metas, true
}

// Set stores the listing for a project.
func (c *ListCache) Set(ctx context.Context, projectID string, metas []SceneMeta) {
	if c == nil {
		return
	}

	raw, err := json.Marshal(metas)
	if err != nil {
		c.log.Warnf("listing cache encode failed for project %s: %v", projectID, err)
		return
	}
	if err := c.client.Set(ctx, c.key(projectID), raw, c.ttl).Err(); err != nil {
		c.log.Warnf("listing cache write failed for project %s: %v", projectID, err)
	}
}

// Invalidate drops the cached listing for a project.
func (c *ListCache) Invalidate(ctx context.Context, projectID string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, c.key(projectID)).Err(); err != nil {
		c.log.Warnf("listing cache invalidation failed for project %s: %v", projectID, err)
	}
}

func (c *ListCache) key(projectID string) string {
	return fmt.Sprintf("scene-store:scenes:%s", projectID)
}
