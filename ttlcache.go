// Package ttlcache provides a concurrent-safe in-memory cache with per-entry
// time-to-live and a single-flight wrapper for expensive functions.
//
// # Overview
//
// ttlcache stores values under comparable keys and expires them lazily: every
// Get and Put first sweeps entries whose TTL has elapsed. There is no
// background goroutine and nothing to close.
//
// ## Features
//
//   - Insert-if-absent Put: a live entry is never overwritten.
//   - Per-entry TTL with an ordered expiry index; sweeps cost O(expired).
//   - Dogpile prevention: a wrapped function runs at most once at a time, and
//     callers that raced on a miss reuse the value it produced.
//   - Hit/miss/size statistics.
//   - Injectable monotonic clock for deterministic tests.
//   - Optional hooks for instrumentation, with a slog adapter.
//
// ## Usage Example
//
//	cache, err := ttlcache.New[string, string](time.Hour, nil)
//	ok, err := cache.Put("k", "v")      // true
//	v, found, err := cache.Get("k")      // "v", true
//	stats := cache.Stats()               // {Hits:1 Misses:0 Size:1}
//
//	// Wrap a long-running function
//	shared := ttlcache.Must[any, string](10*time.Minute, nil)
//	fetch := ttlcache.Wrap(fetchDataFromRemote, shared, nil)
//	body, err := fetch.Call("https://example.com")
//	fetch.Evict("https://example.com")
//
// ## Known limitations
//
//   - A wrapper serializes misses for all of its keys, not per key.
//   - A producer that never returns blocks every later miss on its wrapper.
//   - Stats().Size may include expired entries that were not swept yet.
package ttlcache

import (
	"log/slog"
	"time"

	"github.com/osmike/ttlcache/internal/core"
	"github.com/osmike/ttlcache/internal/lib/hooks"
	"github.com/osmike/ttlcache/internal/lib/keygen"
	"github.com/osmike/ttlcache/internal/lib/logger"
)

// DefaultTTL is the TTL of the private cache created by Wrap when given none.
const DefaultTTL = core.DefaultTTL

// Cache is a concurrency-safe in-memory cache with per-entry TTL.
type Cache[K comparable, V any] = core.Cache[K, V]

// Stats is a snapshot of cache counters.
type Stats = core.Stats

// Options configures the clock and hooks of a Cache.
type Options = core.Options

// Clock returns monotonic time elapsed since a fixed epoch.
type Clock = core.Clock

// ManualClock is a Clock that moves only when advanced.
type ManualClock = core.ManualClock

// Hooks provides optional hooks for cache events (e.g., on hit, miss, expiry).
type Hooks = hooks.Hooks

// CachedFunc is a single-argument function that can be wrapped with caching.
type CachedFunc[K any, V any] = core.CachedFunc[K, V]

// ArgsProducer is a function of positional and named arguments.
type ArgsProducer[V any] = core.ArgsProducer[V]

// Func is a cached single-argument function.
type Func[K any, V any] = core.Func[K, V]

// ArgsFunc is a cached function of Args.
type ArgsFunc[V any] = core.ArgsFunc[V]

// WrapOptions configures the TTL and key factory of a wrapper.
type WrapOptions = core.WrapOptions

// Args are the positional and named arguments of a wrapped call.
type Args = keygen.Args

// NamedArg is a single named argument.
type NamedArg = keygen.NamedArg

// Tuple is the composite key built for multi-argument calls.
type Tuple = keygen.Tuple

// KeyFactory turns call arguments into a cache key.
type KeyFactory = keygen.KeyFactory

var (
	// ErrInvalidConfiguration is returned for a non-positive TTL.
	ErrInvalidConfiguration = core.ErrInvalidConfiguration

	// ErrInvalidKey is returned for a nil or non-comparable key.
	ErrInvalidKey = core.ErrInvalidKey

	// ErrInvalidValue is returned for a nil value, including a nil result of a wrapped function.
	ErrInvalidValue = core.ErrInvalidValue

	// ErrPanic is returned if a panic occurs in the cached function.
	ErrPanic = core.ErrPanic

	// ErrBuildKey is returned if call arguments cannot be turned into a key.
	ErrBuildKey = keygen.ErrBuildKey
)

// New returns an empty cache.
//
//   - defaultTTL: lifetime of entries put without an explicit TTL; must be > 0.
//   - opts: Optional clock and hooks. Pass nil for defaults.
//
// Returns ErrInvalidConfiguration if defaultTTL <= 0.
func New[K comparable, V any](defaultTTL time.Duration, opts *Options) (*Cache[K, V], error) {
	return core.New[K, V](defaultTTL, opts)
}

// Must is like New but panics on error.
func Must[K comparable, V any](defaultTTL time.Duration, opts *Options) *Cache[K, V] {
	return core.Must[K, V](defaultTTL, opts)
}

// Wrap wraps fn with a single-flight caching layer backed by c.
//
//   - fn: The function to cache. Must be of type func(K) (V, error).
//   - c: The cache to use; nil creates a private cache with DefaultTTL whose
//     entries and Stats are separate from every other cache.
//   - opts: Optional TTL and key factory. Pass nil for defaults.
//
// Example:
//
//	cached := ttlcache.Wrap(heavyComputation, nil, nil)
//	res, err := cached.Call(2 * time.Second)
func Wrap[K any, V any](fn CachedFunc[K, V], c *Cache[any, V], opts *WrapOptions) *Func[K, V] {
	return core.Wrap(fn, c, opts)
}

// WrapArgs is Wrap for functions of positional and named arguments.
//
// Example:
//
//	search := ttlcache.WrapArgs(doSearch, nil, nil)
//	res, err := search.Call(ttlcache.Positional("golang").With("limit", 10))
func WrapArgs[V any](fn ArgsProducer[V], c *Cache[any, V], opts *WrapOptions) *ArgsFunc[V] {
	return core.WrapArgs(fn, c, opts)
}

// Positional returns Args holding the given positional values.
func Positional(vals ...any) Args {
	return keygen.Positional(vals...)
}

// BuildKey is the default KeyFactory.
func BuildKey(args Args) (any, error) {
	return keygen.Build(args)
}

// NewManualClock returns a ManualClock at start. Use its Now method as Options.Clock.
func NewManualClock(start time.Duration) *ManualClock {
	return core.NewManualClock(start)
}

// Monotonic is the default Clock.
func Monotonic() time.Duration {
	return core.Monotonic()
}

// LoggingHooks returns hooks that log cache events to l at debug level and
// failures at error level.
func LoggingHooks(l *slog.Logger) *Hooks {
	return logger.Hooks(l)
}
