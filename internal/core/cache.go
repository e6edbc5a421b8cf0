// Package core implements the TTL cache engine and its single-flight producer protocol.
//
// This package provides the internal implementation for the ttlcache package.
//
// # Design
//
//   - Storage: a map from key to entry plus an expiry index, a slice of the
//     same entries sorted by expiry time.
//   - Expiration: lazy. Get, Put and wrapped calls sweep expired entries from
//     the front of the index before doing their own work; there is no
//     background goroutine. An expired entry stays in memory until the next
//     such call on any key.
//   - Locking: one mutex guards the map, the index and the counters as a unit.
//     It is never held while a producer runs.
//   - Single flight: every wrapper owns one extra mutex that serializes
//     producer runs for all keys of that wrapper.
//
// # Usage
//
// This package is not intended for direct use. Use the ttlcache package for a public API.
//
// # Example
//
//	c, err := core.New[string, []byte](10*time.Minute, nil)
//	ok, err := c.Put("k", []byte("v"))
//	v, found, err := c.Get("k")
package core

import (
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/osmike/ttlcache/internal/lib/errs"
	"github.com/osmike/ttlcache/internal/lib/hooks"
)

// DefaultTTL is the time-to-live used by wrappers that are not given a cache.
const DefaultTTL = time.Hour

var (
	// ErrInvalidConfiguration is returned for a non-positive TTL.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidKey is returned for a nil or non-comparable key.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidValue is returned for a nil value.
	ErrInvalidValue = errors.New("invalid value")
)

// Stats is a snapshot of cache counters.
//
//   - Hits, Misses: cumulative since creation or the last Clear.
//   - Size: entries currently held, which may include expired entries that
//     no Get or Put has swept yet.
type Stats struct {
	Hits   uint64
	Misses uint64
	Size   uint64
}

// Options configures a Cache. Nil fields take their defaults.
//
//   - Clock: monotonic time source (default: Monotonic).
//   - Hooks: lifecycle callbacks (default: none).
type Options struct {
	Clock Clock
	Hooks *hooks.Hooks
}

// Cache is a concurrency-safe in-memory cache with per-entry TTL.
//
// Put never overwrites a live entry: it inserts only if the key is absent.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex // guards items, index, hits and misses
	items      map[K]*entry[K, V]
	index      expiryIndex[K, V]
	hits       uint64
	misses     uint64
	defaultTTL time.Duration
	now        Clock
	hooks      *hooks.Hooks
}

// New returns an empty Cache whose entries live for defaultTTL unless a
// per-entry TTL is given.
//
// Returns ErrInvalidConfiguration if defaultTTL <= 0.
func New[K comparable, V any](defaultTTL time.Duration, opts *Options) (*Cache[K, V], error) {
	if defaultTTL <= 0 {
		return nil, errs.NewError(ErrInvalidConfiguration, map[string]interface{}{
			"default_ttl": defaultTTL,
		})
	}
	if opts == nil {
		opts = &Options{}
	}
	c := &Cache[K, V]{
		items:      make(map[K]*entry[K, V]),
		defaultTTL: defaultTTL,
		now:        opts.Clock,
		hooks:      opts.Hooks,
	}
	if c.now == nil {
		c.now = Monotonic
	}
	if c.hooks == nil {
		c.hooks = &hooks.Hooks{}
	}
	return c, nil
}

// Must is like New but panics on error.
func Must[K comparable, V any](defaultTTL time.Duration, opts *Options) *Cache[K, V] {
	c, err := New[K, V](defaultTTL, opts)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultTTL returns the TTL applied when none is given.
func (c *Cache[K, V]) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Get returns the live value stored under key.
// A found entry counts as a hit, a missing one as a miss.
func (c *Cache[K, V]) Get(key K) (V, bool, error) {
	var zero V
	if err := validateKey(key); err != nil {
		return zero, false, err
	}
	now := c.now()

	c.mu.Lock()
	expired := c.sweepLocked(now)
	e, ok := c.items[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()

	c.notifyExpired(expired)
	if !ok {
		c.hooks.Run(c.hooks.OnMiss, key)
		return zero, false, nil
	}
	c.hooks.Run(c.hooks.OnHit, key)
	return e.value, true, nil
}

// Put stores value under key with the default TTL.
// See PutWithTTL.
func (c *Cache[K, V]) Put(key K, value V) (bool, error) {
	return c.PutWithTTL(key, value, c.defaultTTL)
}

// PutWithTTL stores value under key for ttl, unless key already holds a live
// entry. It reports whether the value was inserted.
//
// Returns ErrInvalidKey, ErrInvalidValue or ErrInvalidConfiguration (ttl <= 0)
// without touching the cache.
func (c *Cache[K, V]) PutWithTTL(key K, value V, ttl time.Duration) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	if err := validateValue(value); err != nil {
		return false, err
	}
	if err := validateTTL(ttl); err != nil {
		return false, err
	}
	now := c.now()

	c.mu.Lock()
	expired := c.sweepLocked(now)
	_, exists := c.items[key]
	if !exists {
		c.setLocked(key, value, now+ttl)
	}
	c.mu.Unlock()

	c.notifyExpired(expired)
	if exists {
		return false, nil
	}
	c.hooks.Run(c.hooks.OnSet, key)
	return true, nil
}

// Evict removes key. Evicting an absent key is not an error.
func (c *Cache[K, V]) Evict(key K) error {
	if err := validateKey(key); err != nil {
		return err
	}

	c.mu.Lock()
	e, ok := c.items[key]
	if ok {
		delete(c.items, key)
		c.index.remove(e)
	}
	c.mu.Unlock()

	if ok {
		c.hooks.Run(c.hooks.OnEvict, key)
	}
	return nil
}

// Clear drops every entry and resets the hit and miss counters.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*entry[K, V])
	c.index.reset()
	c.hits = 0
	c.misses = 0
}

// Stats returns a snapshot of the counters. It does not sweep, so Size may
// count entries that have expired but were not yet removed.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:   c.hits,
		Misses: c.misses,
		Size:   uint64(len(c.items)),
	}
}

// sweepLocked removes every entry expired at now and returns them.
// Must be called with c.mu held.
func (c *Cache[K, V]) sweepLocked(now time.Duration) []*entry[K, V] {
	drained := c.index.drainExpired(now)
	for _, e := range drained {
		if c.items[e.key] == e {
			delete(c.items, e.key)
		}
	}
	return drained
}

// setLocked installs a new entry for key, replacing any indexed predecessor.
// Must be called with c.mu held.
func (c *Cache[K, V]) setLocked(key K, value V, expiresAt time.Duration) {
	if old, ok := c.items[key]; ok {
		c.index.remove(old)
	}
	e := &entry[K, V]{key: key, value: value, expiresAt: expiresAt}
	c.items[key] = e
	c.index.insert(e)
}

func (c *Cache[K, V]) notifyExpired(expired []*entry[K, V]) {
	if c.hooks.OnExpire == nil {
		return
	}
	for _, e := range expired {
		c.hooks.Run(c.hooks.OnExpire, e.key)
	}
}

func validateKey(key any) error {
	if isNil(key) {
		return errs.NewError(ErrInvalidKey, map[string]interface{}{
			"reason": "key is nil",
		})
	}
	if !reflect.ValueOf(key).Comparable() {
		return errs.NewError(ErrInvalidKey, map[string]interface{}{
			"reason": "key is not comparable",
			"type":   reflect.TypeOf(key).String(),
		})
	}
	return nil
}

func validateValue(value any) error {
	if isNil(value) {
		return errs.NewError(ErrInvalidValue, map[string]interface{}{
			"reason": "value is nil",
		})
	}
	return nil
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return errs.NewError(ErrInvalidConfiguration, map[string]interface{}{
			"ttl": ttl,
		})
	}
	return nil
}

// isNil reports whether v is a nil interface or a nil pointer, map, slice,
// func or channel.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func,
		reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}
