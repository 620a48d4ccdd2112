package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	app "github.com/kode4food/reflector"
	"github.com/kode4food/reflector/internal/config"
	"github.com/kode4food/reflector/pkg/log"
	"github.com/kode4food/reflector/pkg/registry"
	"github.com/kode4food/reflector/pkg/tracing"
)

type reflector struct {
	cfg        *config.Config
	stores     *envStores
	registry   *registry.Registry
	tracer     *tracing.Tracer
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrCreateStores   = errors.New("failed to create stores")
	ErrRegisterAction = errors.New("failed to register sample actions")
)

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &reflector{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *reflector) run() error {
	ctx := context.Background()
	if err := s.initializeStores(ctx); err != nil {
		return err
	}
	defer s.stores.Close()

	if err := s.initializeRegistry(); err != nil {
		return err
	}
	if err := s.startServer(); err != nil {
		return err
	}

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *reflector) setupLogging() {
	level := log.ParseLevel(s.cfg.LogLevel)
	logger := log.NewWithLevel(app.Name, s.cfg.Env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Reflector starting",
		slog.String("log_level", s.cfg.LogLevel))

	for _, env := range s.cfg.Envs {
		st := s.cfg.StoreFor(env)
		slog.Info("Store configured",
			log.Env(env),
			slog.String("type", st.Type),
			slog.String("addr", st.Addr),
			slog.Int("db", st.DB),
			slog.String("bucket_url", st.BucketURL))
	}
	slog.Info("Configuration loaded",
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort),
		slog.Any("envs", s.cfg.Envs))
}

func (s *reflector) initializeStores(ctx context.Context) error {
	stores, err := openEnvStores(ctx, s.cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateStores, err)
	}
	s.stores = stores
	return nil
}

func (s *reflector) initializeRegistry() error {
	s.registry = registry.New()
	if err := s.stores.Register(s.registry); err != nil {
		return err
	}

	traces, _ := s.registry.LookupTraceStore(s.cfg.Env)
	s.tracer = tracing.New(
		tracing.WithBatchExporter(tracing.NewStoreExporter(traces)),
	)

	flows, _ := s.registry.LookupFlowStateStore(s.cfg.Env)
	actions, err := sampleActions(flows)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRegisterAction, err)
	}
	if err := s.registry.RegisterAction(actions...); err != nil {
		return fmt.Errorf("%w: %w", ErrRegisterAction, err)
	}
	return nil
}

func (s *reflector) startServer() error {
	srv, err := app.StartReflectionAPI(s.registry, s.tracer,
		app.WithAddr(s.cfg.APIHost, s.cfg.APIPort),
		app.WithEnvs(s.cfg.Envs...),
		app.WithIgnoreStartupFailure(s.cfg.IgnoreStartupFailure),
		app.WithQuit(func() {
			s.tracerShutdown()
			os.Exit(0)
		}),
	)
	if err != nil {
		return err
	}
	s.httpServer = srv
	return nil
}

func (s *reflector) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			slog.Error("Shutdown failed", log.Error(err))
		}
	}
	s.tracerShutdown()

	slog.Info("Server exited")
}

func (s *reflector) tracerShutdown() {
	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.tracer.Shutdown(ctx); err != nil {
		slog.Error("Tracer shutdown failed", log.Error(err))
	}
}
