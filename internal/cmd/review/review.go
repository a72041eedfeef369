// Package review parses review service flags and launches the service.
package review

import (
	"context"
	"flag"

	entrypoint "github.com/mathagora/mathagora/internal/platform/cmd"
	server "github.com/mathagora/mathagora/internal/services/review/app"
)

// Config holds review command configuration.
type Config struct {
	Port int `env:"MATHAGORA_REVIEW_PORT" envDefault:"8080"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The review HTTP server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the review API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceReview, func(context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
