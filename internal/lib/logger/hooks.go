package logger

import (
	"context"
	"log/slog"

	"github.com/osmike/ttlcache/internal/lib/hooks"
)

// Hooks returns cache hooks that log every event to l at debug level and
// every hook or producer failure at error level.
func Hooks(l *slog.Logger) *hooks.Hooks {
	if l == nil {
		return &hooks.Hooks{}
	}
	l = l.With(Component("ttlcache"))
	event := func(name string) hooks.HookFunc {
		return func(key any) error {
			l.LogAttrs(context.Background(), slog.LevelDebug, "cache event", Event(name), Key(key))
			return nil
		}
	}
	return &hooks.Hooks{
		OnHit:     event("hit"),
		OnMiss:    event("miss"),
		OnSet:     event("set"),
		OnEvict:   event("evict"),
		OnExpire:  event("expire"),
		OnExecute: event("execute"),
		OnDone:    event("done"),
		LogError: func(err error) {
			l.LogAttrs(context.Background(), slog.LevelError, "cache error", Error(err))
		},
	}
}
