// Package greeter parses greeter command flags and starts the service runtime.
package greeter

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/greeting.space/internal/platform/cmd"

	server "github.com/louisbranch/greeting.space/internal/greeter/app"
)

// Config holds greeter command configuration.
type Config struct {
	Port int    `env:"GREETING_SPACE_GREETER_PORT" envDefault:"8082"`
	Addr string `env:"GREETING_SPACE_GREETER_ADDR"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The greeter server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The greeter server listen address (overrides -port)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the greeter service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGreeter, func(context.Context) error {
		if cfg.Addr != "" {
			return server.RunWithAddr(ctx, cfg.Addr)
		}
		return server.Run(ctx, cfg.Port)
	})
}
