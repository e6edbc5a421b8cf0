package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/osmike/ttlcache"
	"github.com/osmike/ttlcache/internal/lib/logger"
)

func main() {
	log := logger.New(logger.WithFormat(logger.FormatText), logger.WithLevel(slog.LevelDebug))
	cache := ttlcache.Must[any, string](time.Minute, &ttlcache.Options{Hooks: ttlcache.LoggingHooks(log)})

	cachedFunction := ttlcache.Wrap(heavyComputation, cache, nil)
	fmt.Printf("[%v] Starting heavy computation...\n", time.Now().Truncate(time.Second))
	res, err := cachedFunction.Call(2000 * time.Millisecond)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("[%v] Heavy computation completed, result - %s.\n", time.Now().Truncate(time.Second), res)

	fmt.Printf("[%v] Starting cached heavy computation...\n", time.Now().Truncate(time.Second))
	res, err = cachedFunction.Call(2000 * time.Millisecond)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("[%v] Heavy computation completed, result cached - %s.\n", time.Now().Truncate(time.Second), res)

	s := cachedFunction.Stats()
	fmt.Printf("hits=%d misses=%d size=%d\n", s.Hits, s.Misses, s.Size)
}

func heavyComputation(t time.Duration) (string, error) {
	time.Sleep(t)
	return "cached value", nil
}
