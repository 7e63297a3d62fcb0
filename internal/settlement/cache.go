package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	referenceVersionKey = "settlement:version:reference"
	eventVersionPrefix  = "settlement:version:event:"
	reportKeyPrefix     = "settlement:report:"
)

// Cache stores assembled reports in Redis. The service appends a fingerprint of the
// report inputs to the generation key built here, so an entry is only reused for identical
// inputs. The reference and per-event versions let writers and the worker make older
// entries unreachable before they expire.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

func eventVersionKey(prodID int64) string {
	return eventVersionPrefix + strconv.FormatInt(prodID, 10)
}

// version returns the counter stored at key, initialising it when missing.
func (c *Cache) version(ctx context.Context, key string) (int64, error) {
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, key, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the generation key of an event from the current versions.
func (c *Cache) BuildKey(ctx context.Context, prodID int64) (string, error) {
	base := reportKeyPrefix + strconv.FormatInt(prodID, 10)
	if !c.enabled() {
		return base, nil
	}
	ref, err := c.version(ctx, referenceVersionKey)
	if err != nil {
		return "", fmt.Errorf("settlement cache: reference version: %w", err)
	}
	ev, err := c.version(ctx, eventVersionKey(prodID))
	if err != nil {
		return "", fmt.Errorf("settlement cache: event version: %w", err)
	}
	return fmt.Sprintf("%s:r%d:e%d", base, ref, ev), nil
}

// FetchJSON loads a cached value into dest or populates it using the loader.
// The boolean reports a cache hit.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) (bool, error) {
	if loader == nil {
		return false, errors.New("settlement cache: loader required")
	}
	if c.enabled() {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return true, json.Unmarshal(payload, dest)
		}
		if !errors.Is(err, redis.Nil) {
			return false, err
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return false, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	if c.enabled() {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return false, err
		}
	}
	return false, json.Unmarshal(raw, dest)
}

// Invalidate bumps the version of one event.
func (c *Cache) Invalidate(ctx context.Context, prodID int64) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, eventVersionKey(prodID)).Err()
}

// BumpReference bumps the reference version, invalidating every report.
func (c *Cache) BumpReference(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	return c.client.Incr(ctx, referenceVersionKey).Result()
}
