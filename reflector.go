// Package reflector exposes registered actions, traces and flow states to
// local developer tooling through the reflection API
package reflector

import (
	"fmt"
	"net/http"

	"github.com/kode4food/reflector/internal/config"
	"github.com/kode4food/reflector/internal/server"
	"github.com/kode4food/reflector/pkg/registry"
	"github.com/kode4food/reflector/pkg/tracing"
)

type (
	// Option overrides a setting of StartReflectionAPI
	Option func(*config.Config, *startOptions)

	startOptions struct {
		quit func()
	}
)

const (
	Name    = "reflector"
	Version = "0.1.0"
)

// StartReflectionAPI serves the reflection API for reg in the background.
// Settings come from the REFLECTION_* environment variables unless
// overridden by opts. A nil server and nil error are returned when the bind
// fails and startup failures are configured to be ignored
func StartReflectionAPI(
	reg *registry.Registry, tracer *tracing.Tracer, opts ...Option,
) (*http.Server, error) {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	so := &startOptions{}
	for _, opt := range opts {
		opt(cfg, so)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	srv := server.NewServer(reg, tracer, cfg.Envs, server.WithQuit(so.quit))
	return srv.Start(
		fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort),
		cfg.IgnoreStartupFailure,
	)
}

// WithAddr sets the host and port to listen on
func WithAddr(host string, port int) Option {
	return func(c *config.Config, _ *startOptions) {
		c.APIHost = host
		c.APIPort = port
	}
}

// WithEnvs sets the environments reported by the API. The first one becomes
// the current environment
func WithEnvs(envs ...string) Option {
	return func(c *config.Config, _ *startOptions) {
		c.Envs = envs
		if len(envs) > 0 {
			c.Env = envs[0]
		}
	}
}

// WithIgnoreStartupFailure controls whether a bind failure is only logged
func WithIgnoreStartupFailure(ignore bool) Option {
	return func(c *config.Config, _ *startOptions) {
		c.IgnoreStartupFailure = ignore
	}
}

// WithQuit sets the hook run by /api/__quitquitquit
func WithQuit(fn func()) Option {
	return func(_ *config.Config, so *startOptions) {
		so.quit = fn
	}
}
