package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-contrib/cors"
	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/kode4food/reflector/pkg/action"
	"github.com/kode4food/reflector/pkg/log"
	"github.com/kode4food/reflector/pkg/store"
	"github.com/kode4food/reflector/pkg/tracing"
)

type (
	// Registry exposes the registered actions and the per-environment
	// stores the server reads from
	Registry interface {
		ListActions() map[string]action.Action
		LookupAction(key string) (action.Action, bool)
		LookupTraceStore(env string) (store.Store, bool)
		LookupFlowStateStore(env string) (store.Store, bool)
	}

	// Server implements the reflection HTTP API
	Server struct {
		registry Registry
		tracer   *tracing.Tracer
		envs     []string
		quit     func()
	}

	// Option configures a Server
	Option func(*Server)
)

var (
	ErrStartServer = errors.New("failed to start reflection API")
	ErrInvalidJSON = errors.New("invalid JSON")
)

// NewServer creates a new reflection API server
func NewServer(
	reg Registry, tracer *tracing.Tracer, envs []string, opts ...Option,
) *Server {
	s := &Server{
		registry: reg,
		tracer:   tracer,
		envs:     append([]string{}, envs...),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithQuit sets the hook called after /api/__quitquitquit has responded
func WithQuit(fn func()) Option {
	return func(s *Server) {
		s.quit = fn
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	router.Use(cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:              []string{"Content-Type", "Authorization"},
		OptionsResponseStatusCode: http.StatusOK,
	}))

	refl := router.Group("/api")
	{
		// Process control
		refl.GET("/__health", s.handleHealth)
		refl.GET("/__quitquitquit", s.handleQuit)

		// Actions
		refl.GET("/actions", s.listActions)
		refl.POST("/runAction", s.handleRunAction)

		// Environments
		refl.GET("/envs", s.listEnvs)
		refl.GET("/envs/:env/traces", s.listTraces)
		refl.GET("/envs/:env/traces/:traceId", s.getTrace)
		refl.GET("/envs/:env/flowStates", s.listFlowStates)
		refl.GET("/envs/:env/flowStates/:flowId", s.getFlowState)
	}

	return router
}

// Start binds addr and serves the API in the background. When the bind
// fails and ignoreFailure is set, the failure is logged and a nil server is
// returned without error
func (s *Server) Start(addr string, ignoreFailure bool) (*http.Server, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		if ignoreFailure {
			slog.Warn("Failed to start reflection API, ignoring",
				slog.String("addr", addr),
				log.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrStartServer, err)
	}

	srv := &http.Server{
		Addr:    l.Addr().String(),
		Handler: s.SetupRoutes(),
	}

	go func() {
		slog.Info("Reflection API running",
			slog.String("addr", srv.Addr))
		err := srv.Serve(l)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Reflection API error", log.Error(err))
		}
	}()
	return srv, nil
}
