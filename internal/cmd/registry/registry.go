// Package registry parses registry service flags and launches the service.
package registry

import (
	"context"
	"flag"

	entrypoint "github.com/xrfone/registry/internal/platform/cmd"
	server "github.com/xrfone/registry/internal/services/registry/app"
)

// Config holds registry command configuration.
type Config struct {
	Port int `env:"XRF_REGISTRY_PORT" envDefault:"8080"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The registry HTTP server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the registry HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRegistry, func(context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
