// Package sessioncache layers per-key TTL expiry over a session store. Each
// entry is a JSON envelope stamped with its write time; stale entries are not
// swept, only ignored on read and overwritten by the next set.
package sessioncache

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/session"
)

// Well-known TTL policies for the three cache namespaces.
const (
	ModuleMetadataTTL = 1 * time.Hour
	FormConfigTTL     = 6 * time.Hour
	MasterDumpTTL     = 6 * time.Hour
)

type envelope struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// Option customises the cache configuration.
type Option func(*Cache)

// WithNow injects the clock, used by tests to step time past the TTL.
func WithNow(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger injects a structured logger. The default is a no-op logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Cache is one namespace of the session store with a fixed TTL.
type Cache struct {
	store  session.Store
	ttl    time.Duration
	now    func() time.Time
	logger *zap.SugaredLogger
}

// New constructs a cache over the given store.
func New(store session.Store, ttl time.Duration, options ...Option) *Cache {
	c := &Cache{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c
}

// Get decodes the cached value for key into dest. It reports false when the
// key is absent, the entry has outlived the TTL, or the stored data is
// corrupted; corruption is a cache miss, never an error to the caller.
func (c *Cache) Get(key string, dest any) bool {
	raw, ok := c.store.Get(key)
	if !ok {
		return false
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.Timestamp == 0 {
		c.logger.Debugw("cache entry corrupted, treating as miss", "key", key)
		return false
	}

	written := time.UnixMilli(env.Timestamp)
	if c.now().Sub(written) >= c.ttl {
		return false
	}

	if dest == nil {
		return true
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		c.logger.Debugw("cache payload corrupted, treating as miss", "key", key)
		return false
	}
	return true
}

// Set stores value under key with a fresh write timestamp, overwriting any
// existing entry. Values that cannot be serialised are dropped silently; the
// next Get falls through to a fresh fetch.
func (c *Cache) Set(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warnw("cache set skipped, value not serialisable", "key", key, "error", err)
		return
	}
	env := envelope{Data: data, Timestamp: c.now().UnixMilli()}
	encoded, err := json.Marshal(env)
	if err != nil {
		return
	}
	c.store.Set(key, string(encoded))
}

// Delete removes the entry for key, the write-through invalidation hook.
func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}
