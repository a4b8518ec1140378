// Package cache wraps a [store.Store] with a Redis read-through cache for the
// documents the public app reads on every screen: places and social networks.
//
// Writes go to the wrapped store first and then evict the cached copy. A
// Redis failure never fails a read; the wrapped store answers instead.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dondetu/dondetu/pkg/models"
	"github.com/dondetu/dondetu/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultTTL is used when Options.TTL is zero.
const DefaultTTL = 5 * time.Minute

// Options configures the cache.
type Options struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379/0")
	URL string

	// TTL bounds how long a document may be served stale
	TTL time.Duration

	// Prefix namespaces the keys, "dondetu" by default
	Prefix string

	ConnectTimeout time.Duration
}

// CachedStore implements store.Store on top of another store.
type CachedStore struct {
	store.Store
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

// New connects to Redis and wraps backend.
func New(backend store.Store, opts Options, logger zerolog.Logger) (*CachedStore, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.DialTimeout = opts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return Wrap(backend, client, opts, logger), nil
}

// Wrap uses an existing Redis client.
func Wrap(backend store.Store, client *redis.Client, opts Options, logger zerolog.Logger) *CachedStore {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Prefix == "" {
		opts.Prefix = "dondetu"
	}
	return &CachedStore{
		Store:  backend,
		client: client,
		ttl:    opts.TTL,
		prefix: opts.Prefix,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

func (c *CachedStore) key(kind, id string) string {
	return c.prefix + ":" + kind + ":" + id
}

// lookup reads a cached document into dst and reports whether it was there.
func (c *CachedStore) lookup(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		c.evict(ctx, key)
		return false
	}
	return true
}

func (c *CachedStore) fill(ctx context.Context, key string, doc any) {
	data, err := json.Marshal(doc)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cannot encode document for cache")
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

func (c *CachedStore) evict(ctx context.Context, keys ...string) {
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Strs("keys", keys).Msg("Cache eviction failed")
	}
}

func (c *CachedStore) GetPlace(ctx context.Context, id models.PlaceID) (*models.Place, error) {
	key := c.key("place", id.String())

	var cached models.Place
	if c.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	place, err := c.Store.GetPlace(ctx, id)
	if err != nil || place == nil {
		return place, err
	}
	c.fill(ctx, key, place)
	return place, nil
}

func (c *CachedStore) UpdatePlace(ctx context.Context, place *models.Place) error {
	if err := c.Store.UpdatePlace(ctx, place); err != nil {
		return err
	}
	c.evict(ctx, c.key("place", place.ID.String()))
	return nil
}

func (c *CachedStore) DeletePlace(ctx context.Context, id models.PlaceID) error {
	if err := c.Store.DeletePlace(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, c.key("place", id.String()))
	return nil
}

func (c *CachedStore) GetSocialNetwork(ctx context.Context, id models.SocialNetworkID) (*models.SocialNetwork, error) {
	key := c.key("social_network", id.String())

	var cached models.SocialNetwork
	if c.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	sn, err := c.Store.GetSocialNetwork(ctx, id)
	if err != nil || sn == nil {
		return sn, err
	}
	c.fill(ctx, key, sn)
	return sn, nil
}

func (c *CachedStore) UpdateSocialNetwork(ctx context.Context, sn *models.SocialNetwork) error {
	if err := c.Store.UpdateSocialNetwork(ctx, sn); err != nil {
		return err
	}
	c.evict(ctx, c.key("social_network", sn.ID.String()))
	return nil
}

func (c *CachedStore) DeleteSocialNetwork(ctx context.Context, id models.SocialNetworkID) error {
	if err := c.Store.DeleteSocialNetwork(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, c.key("social_network", id.String()))
	return nil
}

// Close closes the Redis client and the wrapped store.
func (c *CachedStore) Close() error {
	return errors.Join(c.client.Close(), c.Store.Close())
}

// Unwrap returns the wrapped store.
func (c *CachedStore) Unwrap() store.Store {
	return c.Store
}

var _ store.Store = (*CachedStore)(nil)
