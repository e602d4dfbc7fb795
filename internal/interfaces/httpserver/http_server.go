package httpserver

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/janhq/room-bridge/docs/swagger"
	"github.com/janhq/room-bridge/internal/config"
	"github.com/janhq/room-bridge/internal/interfaces/httpserver/middlewares"
	"github.com/janhq/room-bridge/internal/interfaces/httpserver/routes"
)

const readinessTimeout = 2 * time.Second

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// ReadinessChecks are evaluated by /readyz, keyed by dependency name.
type ReadinessChecks map[string]ReadinessCheck

// HTTPServer is the HTTP server for the room bridge.
type HTTPServer struct {
	cfg       *config.Config
	engine    *gin.Engine
	log       zerolog.Logger
	routeProv *routes.Provider
}

// New creates a new HTTP server.
func New(
	cfg *config.Config,
	log zerolog.Logger,
	routeProvider *routes.Provider,
	checks ReadinessChecks,
) *HTTPServer {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	// Apply middlewares in order
	engine.Use(middlewares.RequestID())
	engine.Use(middlewares.Tracing(cfg.ServiceName))
	engine.Use(middlewares.Metrics())
	engine.Use(middlewares.CORS())
	engine.Use(middlewares.RequestLoggerWithLogger(log))

	// Public routes (no auth)
	registerCoreRoutes(engine, checks)

	routeProvider.Register(engine)

	return &HTTPServer{
		cfg:       cfg,
		engine:    engine,
		log:       log,
		routeProv: routeProvider,
	}
}

// Handler exposes the engine for in-process use.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *HTTPServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("HTTP server listening")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("HTTP server error")
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return nil
}

func registerCoreRoutes(engine *gin.Engine, checks ReadinessChecks) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	engine.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		failed := gin.H{}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "checks": failed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Prometheus metrics endpoint
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
