package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache TTLs
const (
	TTLFamily  = 10 * time.Minute // family records change rarely
	TTLMembers = 2 * time.Minute  // family member id sets
	TTLDefault = 5 * time.Minute
)

// Cache key prefixes
const (
	PrefixFamily  = "family:"
	PrefixMembers = "familymembers:"
)

// Service is the Redis cache service interface
type Service interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Family directory cache
	GetFamily(ctx context.Context, slug string, dest interface{}) error
	SetFamily(ctx context.Context, slug string, data interface{}) error
	InvalidateFamily(ctx context.Context, slug string) error

	// Family member id-set cache
	GetMemberIDs(ctx context.Context, familyID uint64) ([]uint64, error)
	SetMemberIDs(ctx context.Context, familyID uint64, ids []uint64) error
	InvalidateMemberIDs(ctx context.Context, familyID uint64) error

	IsAvailable() bool
	Ping(ctx context.Context) error
}

type redisCache struct {
	client *redis.Client
}

// NewService creates a cache service backed by Redis
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return c.client.Ping(ctx).Err()
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return fmt.Errorf("redis not available")
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil // no Redis, silently skip
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	n, err := c.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (c *redisCache) familyKey(slug string) string {
	return PrefixFamily + slug
}

func (c *redisCache) GetFamily(ctx context.Context, slug string, dest interface{}) error {
	return c.Get(ctx, c.familyKey(slug), dest)
}

func (c *redisCache) SetFamily(ctx context.Context, slug string, data interface{}) error {
	return c.Set(ctx, c.familyKey(slug), data, TTLFamily)
}

func (c *redisCache) InvalidateFamily(ctx context.Context, slug string) error {
	return c.Delete(ctx, c.familyKey(slug))
}

func (c *redisCache) membersKey(familyID uint64) string {
	return fmt.Sprintf("%s%d", PrefixMembers, familyID)
}

func (c *redisCache) GetMemberIDs(ctx context.Context, familyID uint64) ([]uint64, error) {
	var ids []uint64
	if err := c.Get(ctx, c.membersKey(familyID), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *redisCache) SetMemberIDs(ctx context.Context, familyID uint64, ids []uint64) error {
	return c.Set(ctx, c.membersKey(familyID), ids, TTLMembers)
}

func (c *redisCache) InvalidateMemberIDs(ctx context.Context, familyID uint64) error {
	return c.Delete(ctx, c.membersKey(familyID))
}
