package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultKeyPrefix = "catalog:product:"

// Cache wraps Redis helpers for JSON payloads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Cached is a read-through Lookup that serves products from Redis before falling back
// to the origin catalog. Cache faults never fail a lookup.
type Cached struct {
	Origin Lookup
	Cache  *Cache
	Prefix string
	Logger zerolog.Logger
}

// NewCached wires a read-through lookup in front of origin.
func NewCached(origin Lookup, cache *Cache, logger *zerolog.Logger) *Cached {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "catalog_cache").Logger()
	}
	return &Cached{Origin: origin, Cache: cache, Prefix: defaultKeyPrefix, Logger: l}
}

// Product implements Lookup.
func (c *Cached) Product(ctx context.Context, sku string) (Product, error) {
	key := c.key(sku)
	var cached Product
	hit, err := c.Cache.GetJSON(ctx, key, &cached)
	if err != nil {
		c.Logger.Warn().Err(err).Str("sku", sku).Msg("catalog_cache_read_failed")
	}
	if hit {
		if verr := cached.Validate(); verr == nil {
			return cached, nil
		}
		c.Logger.Warn().Str("sku", sku).Msg("catalog_cache_entry_invalid")
	}

	if c.Origin == nil {
		return Product{}, ErrNotFound
	}
	product, err := c.Origin.Product(ctx, sku)
	if err != nil {
		return Product{}, err
	}
	if err := c.Cache.SetJSON(ctx, key, product); err != nil {
		c.Logger.Warn().Err(err).Str("sku", sku).Msg("catalog_cache_write_failed")
	}
	return product, nil
}

func (c *Cached) key(sku string) string {
	prefix := c.Prefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return prefix + sku
}
