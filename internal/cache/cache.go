/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-backed snapshot cache for the song library
// with graceful fallback: when Redis is unavailable the source of truth is
// queried directly.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/cancion/internal/events"
	"github.com/friendsincode/cancion/internal/library"
	"github.com/friendsincode/cancion/internal/models"
)

// DefaultSongsTTL bounds staleness when an invalidation event is missed.
const DefaultSongsTTL = 10 * time.Minute

// KeySongs is the Redis key for the library snapshot.
const KeySongs = "cancion:cache:songs"

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SongsTTL      time.Duration

	// If true, disable caching on Redis errors instead of retrying every
	// call.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		SongsTTL:       DefaultSongsTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with a circuit-breaker fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New creates a cache instance and verifies connectivity.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if cfg.SongsTTL == 0 {
		cfg.SongsTTL = DefaultSongsTTL
	}

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) isDisabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disabled
}

func (c *Cache) noteError(err error) {
	c.logger.Warn().Err(err).Msg("redis error")
	if !c.config.DisableOnError {
		return
	}
	c.mu.Lock()
	c.disabled = true
	c.mu.Unlock()
}

// Songs returns the cached snapshot, or nil on miss.
func (c *Cache) Songs(ctx context.Context) []models.Song {
	if c.isDisabled() {
		return nil
	}
	data, err := c.client.Get(ctx, KeySongs).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.noteError(err)
		}
		return nil
	}
	var songs []models.Song
	if err := json.Unmarshal(data, &songs); err != nil {
		c.logger.Warn().Err(err).Msg("corrupt song snapshot, invalidating")
		c.Invalidate(ctx)
		return nil
	}
	return songs
}

// SetSongs stores a snapshot.
func (c *Cache) SetSongs(ctx context.Context, songs []models.Song) {
	if c.isDisabled() {
		return
	}
	data, err := json.Marshal(songs)
	if err != nil {
		c.logger.Warn().Err(err).Msg("marshal song snapshot")
		return
	}
	if err := c.client.Set(ctx, KeySongs, data, c.config.SongsTTL).Err(); err != nil {
		c.noteError(err)
	}
}

// Invalidate drops the snapshot.
func (c *Cache) Invalidate(ctx context.Context) {
	if c.isDisabled() {
		return
	}
	if err := c.client.Del(ctx, KeySongs).Err(); err != nil {
		c.noteError(err)
	}
}

// WatchInvalidation drops the snapshot whenever the library announces a
// change. Blocks until ctx is done.
func (c *Cache) WatchInvalidation(ctx context.Context, bus *events.Bus) {
	sub := bus.Subscribe(events.EventSongsInvalidated)
	defer bus.Unsubscribe(events.EventSongsInvalidated, sub)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub:
			if !ok {
				return
			}
			c.Invalidate(ctx)
		}
	}
}

// CachedSource layers the cache in front of a song source. A nil cache
// passes every call straight through.
type CachedSource struct {
	inner library.SongSource
	cache *Cache
}

// NewCachedSource wraps inner with the cache.
func NewCachedSource(inner library.SongSource, cache *Cache) *CachedSource {
	return &CachedSource{inner: inner, cache: cache}
}

// AllSongs serves from the cache when possible.
func (s *CachedSource) AllSongs(ctx context.Context) ([]models.Song, error) {
	if s.cache != nil {
		if songs := s.cache.Songs(ctx); songs != nil {
			return songs, nil
		}
	}
	songs, err := s.inner.AllSongs(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetSongs(ctx, songs)
	}
	return songs, nil
}

// PlaybackQueueSongs is not cached; queue state changes too often.
func (s *CachedSource) PlaybackQueueSongs(ctx context.Context) ([]models.Song, error) {
	return s.inner.PlaybackQueueSongs(ctx)
}
