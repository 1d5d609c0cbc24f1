// Package balefx provides an fx module for a ready-to-use bale client.
package balefx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/baletool/bale"
	"github.com/baletool/bale/internal/stats"
	"github.com/baletool/bale/internal/stats/logger"
)

// Config holds configuration for the bale client.
type Config struct {
	// Level is the compression effort level. Zero means the engine
	// default.
	Level int

	// Overwrite truncates existing destination files without asking.
	Overwrite bool
}

// Module provides a bale client.
// Requires a *zap.Logger to be provided.
var Module = fx.Module("bale",
	fx.Provide(
		newStatsCollector,
		newClient,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("bale.stats"))
}

// Params holds dependencies for creating the client.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided client.
type Result struct {
	fx.Out

	Client *bale.Client
}

func newClient(p Params) (Result, error) {
	opts := []bale.Option{
		bale.WithOverwrite(p.Config.Overwrite),
		bale.WithStats(p.Collector),
		bale.WithLogger(p.Logger.Named("bale")),
	}
	if p.Config.Level > 0 {
		opts = append(opts, bale.WithLevel(p.Config.Level))
	}

	client, err := bale.New(opts...)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return Result{Client: client}, nil
}
