package core

import (
	"sync"
	"time"

	"github.com/osmike/ttlcache/internal/lib/keygen"
)

// CachedFunc is a single-argument function that can be wrapped with caching.
// K is the input parameter type, V is the result type.
type CachedFunc[K any, V any] func(arg K) (V, error)

// ArgsProducer is a function taking positional and named arguments.
type ArgsProducer[V any] func(args keygen.Args) (V, error)

// WrapOptions configures a wrapper.
//
//   - TTL: lifetime of produced entries. Zero selects the cache default;
//     a negative TTL makes every call fail with ErrInvalidConfiguration.
//   - KeyFactory: builds cache keys from call arguments (default: keygen.Build).
type WrapOptions struct {
	TTL        time.Duration
	KeyFactory keygen.KeyFactory
}

// wrapper binds a cache, a key factory and the single-flight lock shared by
// every call of one wrapped function.
type wrapper[V any] struct {
	cache  *Cache[any, V]
	flight sync.Mutex
	ttl    time.Duration
	keyOf  keygen.KeyFactory
}

func newWrapper[V any](c *Cache[any, V], opts *WrapOptions) *wrapper[V] {
	if c == nil {
		c = Must[any, V](DefaultTTL, nil)
	}
	if opts == nil {
		opts = &WrapOptions{}
	}
	w := &wrapper[V]{
		cache: c,
		ttl:   opts.TTL,
		keyOf: opts.KeyFactory,
	}
	if w.keyOf == nil {
		w.keyOf = keygen.Build
	}
	return w
}

func (w *wrapper[V]) call(args keygen.Args, producer func() (V, error)) (V, error) {
	key, err := w.keyOf(args)
	if err != nil {
		var zero V
		return zero, err
	}
	return w.cache.produce(key, &w.flight, w.ttl, producer)
}

func (w *wrapper[V]) evict(args keygen.Args) error {
	key, err := w.keyOf(args)
	if err != nil {
		return err
	}
	return w.cache.Evict(key)
}

// Func is a cached single-argument function.
//
// Concurrent calls that miss are serialized: the wrapped function runs at most
// once at a time, for any key. If the wrapped function never returns, every
// later miss on this Func blocks with it.
type Func[K any, V any] struct {
	w  *wrapper[V]
	fn CachedFunc[K, V]
}

// Wrap returns fn with caching applied.
//
//   - fn: The function to cache.
//   - c: The cache to store results in. May be shared by several wrappers.
//     nil creates a private cache with DefaultTTL that belongs to this
//     wrapper alone: its entries and Stats are separate from any other
//     cache, and it is reachable only through Cache.
//   - opts: Optional TTL and key factory. Pass nil for defaults.
//
// The key of a call is the argument itself unless a KeyFactory says otherwise.
func Wrap[K any, V any](fn CachedFunc[K, V], c *Cache[any, V], opts *WrapOptions) *Func[K, V] {
	return &Func[K, V]{w: newWrapper(c, opts), fn: fn}
}

// Call returns the cached result for arg, running the wrapped function on a miss.
func (f *Func[K, V]) Call(arg K) (V, error) {
	return f.w.call(keygen.Positional(arg), func() (V, error) {
		return f.fn(arg)
	})
}

// Evict drops the cached result for arg.
func (f *Func[K, V]) Evict(arg K) error {
	return f.w.evict(keygen.Positional(arg))
}

// Stats returns the counters of the underlying cache.
func (f *Func[K, V]) Stats() Stats {
	return f.w.cache.Stats()
}

// Clear empties the underlying cache.
func (f *Func[K, V]) Clear() {
	f.w.cache.Clear()
}

// Cache returns the underlying cache.
func (f *Func[K, V]) Cache() *Cache[any, V] {
	return f.w.cache
}

// ArgsFunc is a cached function of positional and named arguments.
// It follows the same single-flight rules as Func.
type ArgsFunc[V any] struct {
	w  *wrapper[V]
	fn ArgsProducer[V]
}

// WrapArgs is Wrap for functions taking keygen.Args.
// A nil c creates a private cache, as in Wrap.
func WrapArgs[V any](fn ArgsProducer[V], c *Cache[any, V], opts *WrapOptions) *ArgsFunc[V] {
	return &ArgsFunc[V]{w: newWrapper(c, opts), fn: fn}
}

// Call returns the cached result for args, running the wrapped function on a miss.
func (f *ArgsFunc[V]) Call(args keygen.Args) (V, error) {
	return f.w.call(args, func() (V, error) {
		return f.fn(args)
	})
}

// Evict drops the cached result for args.
func (f *ArgsFunc[V]) Evict(args keygen.Args) error {
	return f.w.evict(args)
}

// Stats returns the counters of the underlying cache.
func (f *ArgsFunc[V]) Stats() Stats {
	return f.w.cache.Stats()
}

// Clear empties the underlying cache.
func (f *ArgsFunc[V]) Clear() {
	f.w.cache.Clear()
}

// Cache returns the underlying cache.
func (f *ArgsFunc[V]) Cache() *Cache[any, V] {
	return f.w.cache
}
