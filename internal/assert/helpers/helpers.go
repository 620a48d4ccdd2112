package helpers

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kode4food/reflector/internal/config"
	"github.com/kode4food/reflector/internal/server"
	"github.com/kode4food/reflector/pkg/action"
	"github.com/kode4food/reflector/pkg/registry"
	"github.com/kode4food/reflector/pkg/store"
	"github.com/kode4food/reflector/pkg/tracing"
)

type (
	// TestServerEnv holds all the components needed for reflection API
	// testing
	TestServerEnv struct {
		Registry   *registry.Registry
		Tracer     *tracing.Tracer
		Spans      *tracetest.InMemoryExporter
		TraceStore *store.Memory
		FlowStore  *store.Memory
		Server     *server.Server
		Quits      *atomic.Int32
	}

	// GreetInput is the input of the sample greet action
	GreetInput struct {
		Name string `json:"name"`
	}

	// CountInput is the input of the sample count action
	CountInput struct {
		To int `json:"to"`
	}
)

// ErrBoom is returned by the failing sample action
var ErrBoom = errors.New("boom")

// NewTestConfig creates a default configuration with debug logging enabled
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	return cfg
}

// NewTestServer creates a reflection server over a registry holding the
// sample actions and in-memory dev stores. Traces are exported both into
// the dev trace store and an in-memory span recorder
func NewTestServer(t *testing.T, envs ...string) *TestServerEnv {
	t.Helper()
	if len(envs) == 0 {
		envs = []string{"dev"}
	}

	env := &TestServerEnv{
		Registry:   registry.New(),
		Spans:      tracetest.NewInMemoryExporter(),
		TraceStore: store.NewMemory(0),
		FlowStore:  store.NewMemory(0),
		Quits:      &atomic.Int32{},
	}
	env.Tracer = tracing.New(
		tracing.WithExporter(tracing.NewStoreExporter(env.TraceStore)),
		tracing.WithExporter(env.Spans),
	)
	t.Cleanup(func() {
		_ = env.Tracer.Shutdown(context.Background())
	})

	require.NoError(t, env.Registry.RegisterTraceStore("dev", env.TraceStore))
	require.NoError(t,
		env.Registry.RegisterFlowStateStore("dev", env.FlowStore),
	)
	require.NoError(t, env.Registry.RegisterAction(
		SampleActions(t, env.FlowStore)...,
	))

	env.Server = server.NewServer(env.Registry, env.Tracer, envs,
		server.WithQuit(func() { env.Quits.Add(1) }),
	)
	return env
}

// SampleActions defines the actions registered by NewTestServer:
// "greet" (schema), "echo" (no schema), "count" (streaming), "fail",
// "panic", "failAfter" (streams one chunk then fails) and the "/flow/shout"
// flow
func SampleActions(t *testing.T, flows store.Writer) []action.Action {
	t.Helper()

	greet, err := action.Define("greet",
		func(_ context.Context, in GreetInput) (string, error) {
			return "hello " + in.Name, nil
		},
		action.WithDescription("says hi"),
	)
	require.NoError(t, err)

	echo, err := action.Define("echo",
		func(_ context.Context, in any) (any, error) {
			return in, nil
		},
		action.WithDescription("says hi"),
	)
	require.NoError(t, err)

	count, err := action.DefineStreaming("count",
		func(
			ctx context.Context, in CountInput,
			send func(context.Context, int) error,
		) (int, error) {
			for i := 1; i <= in.To; i++ {
				if err := send(ctx, i); err != nil {
					return 0, err
				}
			}
			return in.To, nil
		},
	)
	require.NoError(t, err)

	fail, err := action.Define("fail",
		func(context.Context, any) (any, error) {
			return nil, ErrBoom
		},
	)
	require.NoError(t, err)

	boom, err := action.Define("panic",
		func(context.Context, any) (any, error) {
			panic("kaboom")
		},
	)
	require.NoError(t, err)

	failAfter, err := action.DefineStreaming("failAfter",
		func(
			ctx context.Context, _ any, send func(context.Context, string) error,
		) (any, error) {
			if err := send(ctx, "partial"); err != nil {
				return nil, err
			}
			return nil, ErrBoom
		},
	)
	require.NoError(t, err)

	shout, err := action.DefineFlow("shout",
		func(_ context.Context, in string) (string, error) {
			return strings.ToUpper(in), nil
		},
		action.WithFlowStateStore(flows),
	)
	require.NoError(t, err)

	return []action.Action{greet, echo, count, fail, boom, failAfter, shout}
}
