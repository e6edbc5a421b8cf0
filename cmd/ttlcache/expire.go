package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/osmike/ttlcache"
)

// expirePlan is the fixed set of entries the expire demo inserts, in order.
var expirePlan = []struct {
	key string
	ttl time.Duration
}{
	{"k1", 10 * time.Second},
	{"k2", 20 * time.Second},
	{"k3", 30 * time.Second},
	{"k4", 20 * time.Second},
	{"k5", 10 * time.Second},
}

func (a *app) expireCommand() *cli.Command {
	return &cli.Command{
		Name:  "expire",
		Usage: "show the order in which entries with different TTLs expire",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "step",
				Usage: "simulated time advanced between sweeps",
				Value: 5 * time.Second,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			order, err := runExpire(a.out, cmd.Duration("step"))
			if err != nil {
				return err
			}
			a.log.Info("expire finished", "order", order)
			return nil
		},
	}
}

// runExpire inserts expirePlan on a manual clock, then advances it by step
// until the cache is empty, printing every expiry. It returns the keys in
// expiry order.
func runExpire(out io.Writer, step time.Duration) ([]string, error) {
	if step <= 0 {
		return nil, fmt.Errorf("step must be positive, got %s", step)
	}
	clk := ttlcache.NewManualClock(0)
	var order []string
	cache, err := ttlcache.New[string, int](time.Minute, &ttlcache.Options{
		Clock: clk.Now,
		Hooks: &ttlcache.Hooks{
			OnExpire: func(key any) error {
				order = append(order, key.(string))
				fmt.Fprintf(out, "t=%-5s expired %v\n", clk.Now(), key)
				return nil
			},
		},
	})
	if err != nil {
		return nil, err
	}

	for i, p := range expirePlan {
		if _, err := cache.PutWithTTL(p.key, i, p.ttl); err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "t=%-5s put     %s ttl=%s\n", clk.Now(), p.key, p.ttl)
	}

	for cache.Stats().Size > 0 {
		clk.Advance(step)
		// Any lookup sweeps; the key itself does not matter.
		if _, _, err := cache.Get("probe"); err != nil {
			return nil, err
		}
	}
	return order, nil
}
