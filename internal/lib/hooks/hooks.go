// Package hooks defines optional lifecycle callbacks for cache events.
//
// Hooks are always invoked after the cache lock has been released, so a hook
// may safely call back into the cache that triggered it.
package hooks

import (
	"fmt"
)

// HookFunc is called on lifecycle events with the key that triggered it.
// It may return an error to signal that something went wrong.
type HookFunc func(key any) error

// HookFuncError is called whenever another hook errors or panics,
// and for producer failures observed by a wrapper.
// It must never panic itself.
type HookFuncError func(err error)

// Hooks holds the set of lifecycle hooks and an error‐logging hook.
type Hooks struct {
	OnHit     HookFunc      // called after a lookup found a live entry
	OnMiss    HookFunc      // called after a lookup found nothing
	OnSet     HookFunc      // called after an entry was inserted
	OnEvict   HookFunc      // called after an explicit Evict removed an entry
	OnExpire  HookFunc      // called for every entry removed by a sweep
	OnExecute HookFunc      // called before a producer runs
	OnDone    HookFunc      // called after a producer returned
	LogError  HookFuncError // called on any hook error or panic
}

// Run executes the given hook fn with the provided key.
// If fn returns an error *or* panics, Run will recover and forward
// the error to Hooks.LogError (if non‐nil), and will not panic itself.
func (h *Hooks) Run(fn HookFunc, key any) {
	if h == nil || fn == nil {
		return
	}

	// catch panics in the hook
	defer func() {
		if r := recover(); r != nil {
			h.Error(toError(r))
		}
	}()

	if err := fn(key); err != nil {
		h.Error(err)
	}
}

// Error forwards err to the LogError hook if set, and recovers if it panics.
func (h *Hooks) Error(err error) {
	if h == nil || h.LogError == nil || err == nil {
		return
	}
	defer func() {
		recover() // swallow any panic in LogError
	}()
	h.LogError(err)
}

// toError converts a recovered panic value into an error.
func toError(r any) error {
	switch v := r.(type) {
	case error:
		return v
	case string:
		return fmt.Errorf("%s", v)
	default:
		return fmt.Errorf("%v", v)
	}
}
