package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	echolog "github.com/labstack/gommon/log"

	mw "github.com/tphakala/exoplanet-go/internal/api/middleware"
	v2 "github.com/tphakala/exoplanet-go/internal/api/v2"
	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/dataset"
	"github.com/tphakala/exoplanet-go/internal/datastore"
	"github.com/tphakala/exoplanet-go/internal/logger"
	"github.com/tphakala/exoplanet-go/internal/observability"
)

// Server is the HTTP server for the exoplanet service.
// It manages the Echo instance, middleware and all HTTP routes.
type Server struct {
	// Core components
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	log      logger.Logger

	// Dependencies
	catalog     *dataset.Catalog
	predictor   v2.Predictor
	dataStore   datastore.Interface
	lightcurves v2.Lightcurves
	metrics     *observability.Metrics

	// API controller
	apiController *v2.Controller

	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// WithCatalog sets the dataset catalog.
func WithCatalog(c *dataset.Catalog) ServerOption {
	return func(s *Server) {
		s.catalog = c
	}
}

// WithPredictor sets the prediction service.
func WithPredictor(p v2.Predictor) ServerOption {
	return func(s *Server) {
		s.predictor = p
	}
}

// WithDataStore sets the datastore for the server.
func WithDataStore(ds datastore.Interface) ServerOption {
	return func(s *Server) {
		s.dataStore = ds
	}
}

// WithLightcurves enables the light-curve endpoints.
func WithLightcurves(l v2.Lightcurves) ServerOption {
	return func(s *Server) {
		s.lightcurves = l
	}
}

// WithMetrics sets the observability metrics for the server.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	s := &Server{
		config:    config,
		settings:  settings,
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = GetLogger()
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	echoLevel := echolog.WARN
	if config.Debug {
		echoLevel = echolog.DEBUG
	}
	s.echo.Logger = logger.NewEchoAdapter(s.log.Module("echo"), echoLevel)

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Bool("debug", config.Debug))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())

	s.echo.Use(mw.NewRequestID())

	if s.metrics != nil {
		s.echo.Use(mw.NewTelemetryMiddleware(s.metrics.HTTP).Middleware())
	}

	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log.Module("http"), func(c echo.Context) bool {
		return c.Path() == "/api/health" || c.Path() == "/api/metrics"
	}))

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins

	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewGzip())
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() error {
	opts := []v2.Option{
		v2.WithLogger(s.log),
		v2.WithStartTime(s.startTime),
	}
	if s.lightcurves != nil {
		opts = append(opts, v2.WithLightcurves(s.lightcurves))
	}
	if s.metrics != nil && s.settings.Metrics.Enabled {
		opts = append(opts, v2.WithMetrics(s.metrics))
	}

	apiController, err := v2.New(s.echo, s.settings, s.catalog, s.predictor, s.dataStore, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize API: %w", err)
	}
	s.apiController = apiController

	s.log.Info("routes initialized",
		logger.Int("routes", len(s.echo.Routes())),
		logger.Bool("lightcurves", s.lightcurves != nil))

	return nil
}

// Start begins serving HTTP requests in a background goroutine and returns
// immediately. Use Shutdown() to stop the server.
func (s *Server) Start() {
	go func() {
		if err := s.startBlocking(); err != nil {
			s.log.Error("server error", logger.Error(err))
		}
	}()
}

// startBlocking serves HTTP requests until the server is shut down.
func (s *Server) startBlocking() error {
	addr := s.config.Address()
	s.log.Info("starting HTTP server", logger.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartWithGracefulShutdown starts the server and blocks until SIGINT or
// SIGTERM, then shuts down gracefully.
func (s *Server) StartWithGracefulShutdown() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- s.startBlocking() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutdown signal received, initiating graceful shutdown")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if s.apiController != nil {
		s.apiController.Shutdown()
	}

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.log.Info("server shutdown complete")
	return nil
}

// APIController returns the API controller.
func (s *Server) APIController() *v2.Controller {
	return s.apiController
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
