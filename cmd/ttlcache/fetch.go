package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/osmike/ttlcache"
	"github.com/osmike/ttlcache/internal/lib/logger"
)

type fetchTiming struct {
	URL    string
	Size   int
	First  time.Duration
	Second time.Duration
}

func (a *app) fetchCommand() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "GET every URL twice through a cached fetcher",
		ArgsUsage: "URL [URL...]",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "HTTP client timeout",
				Value: 10 * time.Second,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			urls := cmd.Args().Slice()
			if len(urls) == 0 {
				return fmt.Errorf("fetch needs at least one URL")
			}
			client := &http.Client{Timeout: cmd.Duration("timeout")}
			timings, err := runFetch(ctx, a.log, client, a.cfg.DefaultTTL, urls)
			if err != nil {
				return err
			}
			for _, t := range timings {
				fmt.Fprintf(a.out, "%s\n  size:   %s\n  first:  %s\n  second: %s\n",
					t.URL, humanize.Bytes(uint64(t.Size)),
					t.First.Round(time.Microsecond), t.Second.Round(time.Microsecond))
			}
			return nil
		},
	}
}

// newFetcher returns a function that GETs url and returns its body.
// Non-200 responses are errors and therefore never cached.
func newFetcher(ctx context.Context, client *http.Client) ttlcache.CachedFunc[string, string] {
	return func(url string) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", fmt.Errorf("failed to build request for %s: %w", url, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("failed to GET %s: %w", url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("unexpected HTTP status: %d %s", resp.StatusCode, resp.Status)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read response body: %w", err)
		}
		return string(body), nil
	}
}

// runFetch requests every URL twice; the second request is served from cache.
func runFetch(ctx context.Context, log *slog.Logger, client *http.Client, ttl time.Duration, urls []string) ([]fetchTiming, error) {
	cache, err := ttlcache.New[any, string](ttl, &ttlcache.Options{Hooks: ttlcache.LoggingHooks(log)})
	if err != nil {
		return nil, err
	}
	fetch := ttlcache.Wrap(newFetcher(ctx, client), cache, nil)

	timings := make([]fetchTiming, 0, len(urls))
	for _, url := range urls {
		t := fetchTiming{URL: url}

		start := time.Now()
		body, err := fetch.Call(url)
		if err != nil {
			return nil, err
		}
		t.First = time.Since(start)
		t.Size = len(body)

		start = time.Now()
		if _, err := fetch.Call(url); err != nil {
			return nil, err
		}
		t.Second = time.Since(start)

		log.Debug("fetched", logger.Key(url), slog.Int("bytes", t.Size), logger.Duration(t.First))
		timings = append(timings, t)
	}
	return timings, nil
}
