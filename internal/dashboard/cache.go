package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mehdiessalah/eventyBackend/internal/changefeed"
	"github.com/redis/go-redis/v9"
)

const (
	KeyEvents     = "dashboard:events"
	KeyCategories = "dashboard:categories"
	KeyTags       = "dashboard:tags"

	// KeyGeneration is bumped on every catalog change. Cached lists are
	// stored under <key>:<generation>, so a fill computed before a change
	// lands under a generation nobody reads anymore.
	KeyGeneration = "dashboard:gen"
)

// Cache stores the dashboard lists in Redis as JSON.
type Cache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{Redis: client, TTL: ttl}
}

// generation returns the current cache generation, 0 before the first change.
func (c *Cache) generation(ctx context.Context) (int64, error) {
	gen, err := c.Redis.Get(ctx, KeyGeneration).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func versionedKey(key string, gen int64) string {
	return fmt.Sprintf("%s:%d", key, gen)
}

// get decodes the cached value into dest. hit is false on a miss.
func (c *Cache) get(ctx context.Context, key string, dest any) (hit bool, err error) {
	raw, err := c.Redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, key, string(payload), c.TTL).Err()
}

// Invalidate moves every dashboard list to a fresh generation. Entries of
// older generations expire with their TTL.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.Redis.Incr(ctx, KeyGeneration).Err()
}

// Publish invalidates the lists whenever an event record changes.
// Membership changes do not affect the dashboard.
func (c *Cache) Publish(ctx context.Context, change changefeed.Change) error {
	if !change.IsCatalogChange() {
		return nil
	}
	return c.Invalidate(ctx)
}
