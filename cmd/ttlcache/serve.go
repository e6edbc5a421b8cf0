package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"github.com/osmike/ttlcache"
	"github.com/osmike/ttlcache/internal/lib/logger"
	"github.com/osmike/ttlcache/metrics"
)

// maxFib is the largest n whose Fibonacci number fits in a uint64.
const maxFib = 93

var errFibRange = fmt.Errorf("n must be in [0, %d]", maxFib)

func (a *app) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve a cached Fibonacci endpoint with stats and Prometheus metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address",
				Value: a.cfg.Addr,
			},
			&cli.DurationFlag{
				Name:  "delay",
				Usage: "simulated cost of every Fibonacci computation",
				Value: 500 * time.Millisecond,
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "grace period for in-flight requests",
				Value: 5 * time.Second,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cache, err := ttlcache.New[any, uint64](a.cfg.DefaultTTL, &ttlcache.Options{Hooks: ttlcache.LoggingHooks(a.log)})
			if err != nil {
				return err
			}
			fib := ttlcache.Wrap(slowFib(cmd.Duration("delay")), cache, nil)

			reg := prometheus.NewRegistry()
			reg.MustRegister(metrics.NewCollector("fib", fib, nil))

			srv := &http.Server{
				Addr:              cmd.String("addr"),
				Handler:           newRouter(a.log, fib, reg),
				ReadHeaderTimeout: 5 * time.Second,
			}
			return listenAndServe(ctx, a.log, srv, cmd.Duration("shutdown-timeout"))
		},
	}
}

// listenAndServe runs srv until ctx is done, then shuts it down gracefully.
func listenAndServe(ctx context.Context, log *slog.Logger, srv *http.Server, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("server started", slog.String("addr", srv.Addr))

	var runErr error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", logger.Error(err))
		}
		runErr = <-errCh
	case runErr = <-errCh:
	}

	if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", runErr)
	}
	log.Info("server stopped")
	return nil
}

// slowFib returns an iterative Fibonacci that takes at least delay.
func slowFib(delay time.Duration) ttlcache.CachedFunc[int, uint64] {
	return func(n int) (uint64, error) {
		if n < 0 || n > maxFib {
			return 0, errFibRange
		}
		time.Sleep(delay)
		var a, b uint64 = 0, 1
		for i := 0; i < n; i++ {
			a, b = b, a+b
		}
		return a, nil
	}
}

type fibResponse struct {
	N     int    `json:"n"`
	Value uint64 `json:"value"`
}

type statsResponse struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   uint64 `json:"size"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newRouter(log *slog.Logger, fib *ttlcache.Func[int, uint64], reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Get("/fib/{n}", func(w http.ResponseWriter, req *http.Request) {
		n, err := fibParam(req)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		v, err := fib.Call(n)
		if err != nil {
			log.Warn("fib failed", slog.Int("n", n), logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, fibResponse{N: n, Value: v})
	})

	r.Delete("/fib/{n}", func(w http.ResponseWriter, req *http.Request) {
		n, err := fibParam(req)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		if err := fib.Evict(n); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		s := fib.Stats()
		writeJSON(w, http.StatusOK, statsResponse{Hits: s.Hits, Misses: s.Misses, Size: s.Size})
	})

	r.Post("/clear", func(w http.ResponseWriter, _ *http.Request) {
		fib.Clear()
		w.WriteHeader(http.StatusNoContent)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}

func fibParam(req *http.Request) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(req, "n"))
	if err != nil {
		return 0, fmt.Errorf("invalid n: %w", err)
	}
	if n < 0 || n > maxFib {
		return 0, errFibRange
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
