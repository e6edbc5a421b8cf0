package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/osmike/ttlcache/internal/lib/config"
	"github.com/osmike/ttlcache/internal/lib/logger"
)

// app carries what every subcommand needs once the root Before hook ran.
type app struct {
	cfg config.App
	out io.Writer
	log *slog.Logger
}

// InitApp builds the command tree. Flag defaults come from the environment
// (TTLCACHE_* variables or a .env file); flags override them.
func InitApp(out io.Writer) (*cli.Command, error) {
	a := &app{out: out}
	if err := config.Load(&a.cfg); err != nil {
		return nil, err
	}

	root := &cli.Command{
		Name:  "ttlcache",
		Usage: "exercise an in-memory TTL cache with single-flight producers",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "default entry time-to-live",
				Value: a.cfg.DefaultTTL,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
				Value: a.cfg.LogLevel,
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "text or json",
				Value: a.cfg.LogFormat,
			},
		},
		Before: a.before,
	}

	root.Commands = append(root.Commands,
		a.stampedeCommand(),
		a.expireCommand(),
		a.fetchCommand(),
		a.serveCommand(),
	)

	return root, nil
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	level, err := logger.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return ctx, err
	}
	format := cmd.String("log-format")
	if format != string(logger.FormatText) && format != string(logger.FormatJSON) {
		return ctx, fmt.Errorf("invalid log format %q", format)
	}
	if ttl := cmd.Duration("ttl"); ttl <= 0 {
		return ctx, fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	a.cfg.DefaultTTL = cmd.Duration("ttl")
	a.cfg.LogLevel = level.String()
	a.cfg.LogFormat = format
	a.log = logger.New(
		logger.WithLevel(level),
		logger.WithFormat(logger.Format(a.cfg.LogFormat)),
		logger.WithOutput(os.Stderr),
		logger.WithAttr(slog.String("run_id", uuid.NewString())),
	)
	return ctx, nil
}
