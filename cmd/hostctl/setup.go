package main

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/loam"
	"github.com/spf13/cobra"

	"github.com/chronicals/sdk/internal/config"
	"github.com/chronicals/sdk/internal/logging"
	"github.com/chronicals/sdk/pkg/hostsession"
	"github.com/chronicals/sdk/pkg/ports"
	"github.com/chronicals/sdk/pkg/routes"
	"github.com/chronicals/sdk/pkg/transport"
)

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("loading config %q: %w", path, err)
	}
	if dir, _ := cmd.Flags().GetString("routes-dir"); dir != "" {
		cfg.RoutesDirectory = dir
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	return logging.New(cfg.LogLevel)
}

// newRouteLoader loads route declarations from cfg.RoutesDirectory.
// hostctl has no way to attach Go closures to those slugs (that only
// happens through the embedding program's own RegisterAction/RegisterPage calls
// against the root hostsdk.Host API) — a loader built here always
// carries nil handlers, which is enough for declare/inspect and for
// running against an orchestrator in observe-only mode, per DESIGN.md's
// "hostctl is an operations CLI, not the SDK's code entry point" note.
func newRouteLoader(cfg config.Config) (ports.RouteLoader, error) {
	if cfg.RoutesDirectory == "" {
		return routes.NewBuilder(), nil
	}
	repo, err := loam.Init(cfg.RoutesDirectory, loam.WithVersioning(false))
	if err != nil {
		return nil, fmt.Errorf("initializing routes directory %q: %w", cfg.RoutesDirectory, err)
	}
	typedRepo := loam.NewTypedRepository[routes.RouteMetadata](repo)
	return routes.NewLoamLoader(typedRepo, nil), nil
}

func newSocketFactory(cfg config.Config) hostsession.SocketFactory {
	return func(instanceID string) ports.Socket {
		return transport.New(transport.Config{
			Endpoint:       cfg.Endpoint,
			APIKey:         cfg.APIKey,
			InstanceID:     instanceID,
			ConnectTimeout: cfg.ConnectTimeout(),
			SendTimeout:    cfg.SendTimeout(),
			PingTimeout:    cfg.PingTimeout(),
		})
	}
}
