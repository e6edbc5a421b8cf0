package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmike/ttlcache/internal/lib/logger"
)

func discardLogger() *slog.Logger {
	return logger.New(logger.WithOutput(io.Discard), logger.WithLevel(slog.LevelDebug))
}

func TestRunStampede_ProducerRunsOnce(t *testing.T) {
	res, err := runStampede(context.Background(), discardLogger(), time.Hour, 16, 50*time.Millisecond, "report")
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Invocations)
	assert.Equal(t, map[string]int{"report#1": 16}, res.Values)
	assert.Equal(t, uint64(15), res.Stats.Hits)
	assert.Equal(t, uint64(1), res.Stats.Misses)
	assert.Equal(t, uint64(1), res.Stats.Size)
}

func TestRunStampede_InvalidInput(t *testing.T) {
	_, err := runStampede(context.Background(), discardLogger(), time.Hour, 0, 0, "k")
	require.Error(t, err)

	_, err = runStampede(context.Background(), discardLogger(), 0, 1, 0, "k")
	require.Error(t, err)
}

func TestRunStampede_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runStampede(ctx, discardLogger(), time.Hour, 4, time.Hour, "k")
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunExpire_Order(t *testing.T) {
	var buf bytes.Buffer
	order, err := runExpire(&buf, 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, []string{"k1", "k5", "k2", "k4", "k3"}, order)
	assert.Contains(t, buf.String(), "put     k3 ttl=30s")
	assert.Contains(t, buf.String(), "expired k3")
}

func TestRunExpire_CoarseStep(t *testing.T) {
	order, err := runExpire(io.Discard, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k5", "k2", "k4", "k3"}, order)
}

func TestRunExpire_InvalidStep(t *testing.T) {
	_, err := runExpire(io.Discard, 0)
	require.Error(t, err)
}

func TestRunFetch_SecondRequestCached(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = io.WriteString(w, strings.Repeat("x", 2048))
	}))
	defer srv.Close()

	urls := []string{srv.URL + "/a", srv.URL + "/b"}
	timings, err := runFetch(context.Background(), discardLogger(), srv.Client(), time.Hour, urls)
	require.NoError(t, err)

	require.Len(t, timings, 2)
	assert.Equal(t, int32(2), requests.Load())
	for i, tm := range timings {
		assert.Equal(t, urls[i], tm.URL)
		assert.Equal(t, 2048, tm.Size)
	}
}

func TestFetcher_NonOKNotCached(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := runFetch(context.Background(), discardLogger(), srv.Client(), time.Hour, []string{srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected HTTP status: 404")

	fetch := newFetcher(context.Background(), srv.Client())
	_, err = fetch(srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(2), requests.Load())
}

func TestInitApp_Expire(t *testing.T) {
	var out bytes.Buffer
	cmd, err := InitApp(&out)
	require.NoError(t, err)

	err = cmd.Run(context.Background(), []string{"ttlcache", "--log-level", "error", "expire", "--step", "10s"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "expired k1")
	assert.Contains(t, out.String(), "expired k3")
}

func TestInitApp_Stampede(t *testing.T) {
	var out bytes.Buffer
	cmd, err := InitApp(&out)
	require.NoError(t, err)

	err = cmd.Run(context.Background(), []string{"ttlcache", "--log-level", "error", "stampede", "--workers", "8", "--delay", "10ms"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "invocations:  1")
	assert.Contains(t, out.String(), "hits/misses:  7/1")
}

func TestInitApp_InvalidLogLevel(t *testing.T) {
	cmd, err := InitApp(io.Discard)
	require.NoError(t, err)

	err = cmd.Run(context.Background(), []string{"ttlcache", "--log-level", "loud", "expire"})
	require.Error(t, err)
}

func TestInitApp_FetchNeedsURL(t *testing.T) {
	cmd, err := InitApp(io.Discard)
	require.NoError(t, err)

	err = cmd.Run(context.Background(), []string{"ttlcache", "--log-level", "error", "fetch"})
	require.Error(t, err)
}

func TestInitApp_InvalidRootFlags(t *testing.T) {
	for _, args := range [][]string{
		{"ttlcache", "--log-format", "xml", "expire"},
		{"ttlcache", "--ttl", "0s", "expire"},
	} {
		cmd, err := InitApp(io.Discard)
		require.NoError(t, err)
		assert.Error(t, cmd.Run(context.Background(), args), args)
	}
}

func TestRunStampede_DeadlineStopsAllWorkers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := runStampede(ctx, discardLogger(), time.Hour, 8, time.Hour, "k")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
