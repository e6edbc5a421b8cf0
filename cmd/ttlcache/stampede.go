package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/osmike/ttlcache"
)

type stampedeResult struct {
	Invocations int64
	Values      map[string]int
	Stats       ttlcache.Stats
	Elapsed     time.Duration
}

func (a *app) stampedeCommand() *cli.Command {
	return &cli.Command{
		Name:  "stampede",
		Usage: "call one slow wrapped producer from many goroutines at once",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"n"},
				Usage:   "concurrent callers",
				Value:   100,
			},
			&cli.DurationFlag{
				Name:  "delay",
				Usage: "producer run time",
				Value: 200 * time.Millisecond,
			},
			&cli.StringFlag{
				Name:  "key",
				Usage: "key every worker asks for",
				Value: "report",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			res, err := runStampede(ctx, a.log, a.cfg.DefaultTTL, cmd.Int("workers"), cmd.Duration("delay"), cmd.String("key"))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "workers:      %s\n", humanize.Comma(int64(cmd.Int("workers"))))
			fmt.Fprintf(a.out, "invocations:  %d\n", res.Invocations)
			fmt.Fprintf(a.out, "distinct:     %d\n", len(res.Values))
			fmt.Fprintf(a.out, "hits/misses:  %s/%s\n", humanize.Comma(int64(res.Stats.Hits)), humanize.Comma(int64(res.Stats.Misses)))
			fmt.Fprintf(a.out, "elapsed:      %s\n", res.Elapsed.Round(time.Millisecond))
			return nil
		},
	}
}

// runStampede launches workers callers against one key of a wrapped producer
// and reports how many times the producer actually ran.
func runStampede(ctx context.Context, log *slog.Logger, ttl time.Duration, workers int, delay time.Duration, key string) (stampedeResult, error) {
	if workers <= 0 {
		return stampedeResult{}, fmt.Errorf("workers must be positive, got %d", workers)
	}
	cache, err := ttlcache.New[any, string](ttl, &ttlcache.Options{Hooks: ttlcache.LoggingHooks(log)})
	if err != nil {
		return stampedeResult{}, err
	}

	g, gctx := errgroup.WithContext(ctx)

	var invocations atomic.Int64
	produce := ttlcache.Wrap(func(k string) (string, error) {
		n := invocations.Add(1)
		select {
		case <-time.After(delay):
		case <-gctx.Done():
			return "", gctx.Err()
		}
		return fmt.Sprintf("%s#%d", k, n), nil
	}, cache, nil)

	values := make([]string, workers)
	start := time.Now()
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			v, err := produce.Call(key)
			values[i] = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return stampedeResult{}, err
	}

	res := stampedeResult{
		Invocations: invocations.Load(),
		Values:      make(map[string]int),
		Stats:       produce.Stats(),
		Elapsed:     time.Since(start),
	}
	for _, v := range values {
		res.Values[v]++
	}
	log.Info("stampede finished",
		slog.Int("workers", workers),
		slog.Int64("invocations", res.Invocations),
		slog.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}
