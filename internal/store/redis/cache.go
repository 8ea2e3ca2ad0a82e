// Package redis provides a warm cache tier for session state blobs in
// front of the durable store.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/gomodule/redigo/redis"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/tailor/internal/session"
	"github.com/thebtf/tailor/pkg/models"
)

// DefaultTTL is how long a cached session blob stays warm.
const DefaultTTL = 30 * time.Minute

// CachedStore decorates a durable session.Store with a redis cache.
// Cache failures degrade to the durable store with a warning; they never
// fail the caller.
type CachedStore struct {
	pool  *redis.Pool
	inner session.Store
	ttl   time.Duration
}

// NewCachedStore creates a cache over the durable store.
func NewCachedStore(addr string, inner session.Store, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	pool := &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 240 * time.Second,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	return &CachedStore{pool: pool, inner: inner, ttl: ttl}
}

func cacheKey(sessionID string) string {
	return "tailor:session:" + sessionID
}

// Load checks the cache first, falling back to the durable store and
// repopulating the cache on a miss.
func (c *CachedStore) Load(ctx context.Context, sessionID string) (*models.SessionState, error) {
	conn, err := c.pool.GetContext(ctx)
	if err == nil {
		data, err := redis.Bytes(conn.Do("GET", cacheKey(sessionID)))
		conn.Close()
		if err == nil {
			var state models.SessionState
			if err := json.Unmarshal(data, &state); err == nil {
				return models.NormalizedState(&state), nil
			}
			log.Warn().Str("sessionId", sessionID).Msg("Corrupt cached session blob, falling through")
		} else if !errors.Is(err, redis.ErrNil) {
			log.Warn().Err(err).Msg("Session cache read failed")
		}
	} else {
		log.Warn().Err(err).Msg("Session cache unavailable")
	}

	state, err := c.inner.Load(ctx, sessionID)
	if err != nil || state == nil {
		return state, err
	}
	c.populate(ctx, sessionID, state)
	return state, nil
}

// Save writes through to the durable store, then refreshes the cache.
func (c *CachedStore) Save(ctx context.Context, sessionID string, state *models.SessionState) error {
	if err := c.inner.Save(ctx, sessionID, state); err != nil {
		return err
	}
	c.populate(ctx, sessionID, state)
	return nil
}

// Delete removes the session from both tiers.
func (c *CachedStore) Delete(ctx context.Context, sessionID string) error {
	if conn, err := c.pool.GetContext(ctx); err == nil {
		if _, err := conn.Do("DEL", cacheKey(sessionID)); err != nil {
			log.Warn().Err(err).Msg("Session cache delete failed")
		}
		conn.Close()
	}
	return c.inner.Delete(ctx, sessionID)
}

// Close releases the connection pool.
func (c *CachedStore) Close() error {
	return c.pool.Close()
}

func (c *CachedStore) populate(ctx context.Context, sessionID string, state *models.SessionState) {
	data, err := json.Marshal(state)
	if err != nil {
		return
	}
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return
	}
	defer conn.Close()
	if _, err := conn.Do("SET", cacheKey(sessionID), data, "EX", int(c.ttl.Seconds())); err != nil {
		log.Warn().Err(err).Msg("Session cache write failed")
	}
}

var _ session.Store = (*CachedStore)(nil)
