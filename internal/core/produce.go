package core

import (
	"errors"
	"sync"
	"time"

	"github.com/osmike/ttlcache/internal/lib/errs"
)

// ErrPanic is returned if a panic occurs in the cached function.
var ErrPanic = errors.New("panic occurred in cached function")

// produce returns the live value for key, computing it with producer on a miss.
//
// Hits are served under the cache lock alone and never touch flight. On a miss
// the caller takes flight, re-checks the cache (another caller may have
// filled it while we waited), and only then runs producer. The cache lock is
// released for the whole producer run, so other keys stay readable and
// writable. flight is released on every exit path.
//
//   - ttl: entry lifetime; 0 selects the cache default.
//   - Returns: the value, or the producer's error unchanged. A panicking
//     producer yields ErrPanic; a nil result yields ErrInvalidValue. Neither
//     failure is cached or counted as a miss.
func (c *Cache[K, V]) produce(key K, flight *sync.Mutex, ttl time.Duration, producer func() (V, error)) (V, error) {
	var zero V
	if err := validateKey(key); err != nil {
		return zero, err
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	if err := validateTTL(ttl); err != nil {
		return zero, err
	}
	// expiresAt is anchored at the time of the request
	now := c.now()

	if v, ok := c.lookup(key, now); ok {
		return v, nil
	}

	flight.Lock()
	defer flight.Unlock()

	if v, ok := c.lookup(key, c.now()); ok {
		return v, nil
	}

	c.hooks.Run(c.hooks.OnExecute, key)
	val, err := callProducer(producer)
	c.hooks.Run(c.hooks.OnDone, key)
	if err != nil {
		c.hooks.Error(err)
		return zero, err
	}
	if err := validateValue(val); err != nil {
		c.hooks.Error(err)
		return zero, err
	}

	c.mu.Lock()
	c.setLocked(key, val, now+ttl)
	c.misses++
	c.mu.Unlock()

	c.hooks.Run(c.hooks.OnSet, key)
	c.hooks.Run(c.hooks.OnMiss, key)
	return val, nil
}

// lookup sweeps and reads key, counting a hit if found. A lookup that finds
// nothing is not counted; produce counts the miss once the value is stored.
func (c *Cache[K, V]) lookup(key K, now time.Duration) (V, bool) {
	c.mu.Lock()
	expired := c.sweepLocked(now)
	e, ok := c.items[key]
	if ok {
		c.hits++
	}
	c.mu.Unlock()

	c.notifyExpired(expired)
	if !ok {
		var zero V
		return zero, false
	}
	c.hooks.Run(c.hooks.OnHit, key)
	return e.value, true
}

// callProducer runs producer, converting a panic into ErrPanic.
func callProducer[V any](producer func() (V, error)) (val V, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero V
			val = zero
			err = errs.NewError(ErrPanic, map[string]interface{}{
				"panic": r,
			})
		}
	}()
	return producer()
}
