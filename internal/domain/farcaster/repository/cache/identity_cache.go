package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nooksocial/nook-engine/internal/domain/farcaster/deps"
)

const (
	fidKeyPrefix    = "nook:identity:fid:"
	entityKeyPrefix = "nook:identity:entity:"
	powerBadgeKey   = "nook:powerbadge:fids"

	identityTTL = 24 * time.Hour
)

// identityCache is the redis-backed bidirectional fid<->entity id cache.
// All lookups are best effort: a redis failure is a cache miss, never an
// ingestion or query failure.
type identityCache struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewIdentityCache creates a new redis-backed identity cache
func NewIdentityCache(client *redis.Client, logger zerolog.Logger) deps.IdentityCache {
	return &identityCache{
		client: client,
		logger: logger,
	}
}

// GetEntityID returns the cached entity id for a fid
func (c *identityCache) GetEntityID(ctx context.Context, fid uint64) (string, bool) {
	value, err := c.client.Get(ctx, fidKeyPrefix+strconv.FormatUint(fid, 10)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Uint64("fid", fid).Msg("Identity cache read failed")
		}
		return "", false
	}
	return value, true
}

// GetFid returns the cached fid for an entity id
func (c *identityCache) GetFid(ctx context.Context, entityID string) (uint64, bool) {
	value, err := c.client.Get(ctx, entityKeyPrefix+entityID).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("entity_id", entityID).Msg("Identity cache read failed")
		}
		return 0, false
	}

	fid, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return fid, true
}

// Set caches the fid<->entity id pair in both directions
func (c *identityCache) Set(ctx context.Context, fid uint64, entityID string) {
	fidStr := strconv.FormatUint(fid, 10)

	pipe := c.client.Pipeline()
	pipe.Set(ctx, fidKeyPrefix+fidStr, entityID, identityTTL)
	pipe.Set(ctx, entityKeyPrefix+entityID, fidStr, identityTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn().Err(err).Uint64("fid", fid).Msg("Identity cache write failed")
	}
}

// GetPowerBadgeFids returns the cached power badge holder set
func (c *identityCache) GetPowerBadgeFids(ctx context.Context) ([]uint64, bool) {
	value, err := c.client.Get(ctx, powerBadgeKey).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Msg("Power badge cache read failed")
		}
		return nil, false
	}

	var fids []uint64
	if err := json.Unmarshal([]byte(value), &fids); err != nil {
		c.logger.Warn().Err(err).Msg("Power badge cache payload invalid")
		return nil, false
	}
	return fids, true
}

// SetPowerBadgeFids caches the power badge holder set with a TTL
func (c *identityCache) SetPowerBadgeFids(ctx context.Context, fids []uint64, ttl time.Duration) {
	payload, err := json.Marshal(fids)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, powerBadgeKey, payload, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("Power badge cache write failed")
	}
}
