// Package api implements the JSON endpoints of the exoplanet service.
package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/exoplanet-go/internal/classifier"
	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/dataset"
	"github.com/tphakala/exoplanet-go/internal/datastore"
	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/features"
	"github.com/tphakala/exoplanet-go/internal/lightcurve"
	"github.com/tphakala/exoplanet-go/internal/logger"
	"github.com/tphakala/exoplanet-go/internal/observability"
)

// Predictor scores a feature vector for one candidate
type Predictor interface {
	Predict(ctx context.Context, dataset, identifier string, vec features.Vector) (classifier.Result, error)
	Models() []classifier.ModelStatus
}

// Lightcurves generates, stores and serves light-curve images
type Lightcurves interface {
	GenerateOrFetch(ctx context.Context, dataset, identifier string) (*lightcurve.Artifact, error)
	Image(ctx context.Context, ref string) (*lightcurve.Artifact, error)
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo        *echo.Echo
	Group       *echo.Group
	Settings    *conf.Settings
	Catalog     *dataset.Catalog
	Predictor   Predictor
	DS          datastore.Interface
	Lightcurves Lightcurves // nil when light-curve generation is disabled

	extractors map[string]*features.Extractor
	metrics    *observability.Metrics
	apiLogger  logger.Logger
	startTime  time.Time
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithLightcurves enables the light-curve endpoints
func WithLightcurves(l Lightcurves) Option {
	return func(c *Controller) {
		c.Lightcurves = l
	}
}

// WithMetrics exposes the registry at /api/metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithLogger overrides the api module logger
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		c.apiLogger = l
	}
}

// WithStartTime sets the instant uptime is measured from
func WithStartTime(t time.Time) Option {
	return func(c *Controller) {
		c.startTime = t
	}
}

// ipExtractorFromProxyHeaders prefers X-Forwarded-For and X-Real-IP over the
// socket address, so rate limiting works behind a reverse proxy.
func ipExtractorFromProxyHeaders(req *http.Request) string {
	if xff := req.Header.Get(echo.HeaderXForwardedFor); xff != "" {
		for part := range strings.SplitSeq(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip.String()
			}
		}
	}

	if xri := req.Header.Get(echo.HeaderXRealIP); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

// New creates the API controller and registers its routes under /api.
func New(e *echo.Echo, settings *conf.Settings, catalog *dataset.Catalog, predictor Predictor,
	ds datastore.Interface, opts ...Option) (*Controller, error) {
	if settings == nil || catalog == nil || predictor == nil || ds == nil {
		return nil, errors.Newf("api controller requires settings, catalog, predictor and datastore").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Controller{
		Echo:       e,
		Settings:   settings,
		Catalog:    catalog,
		Predictor:  predictor,
		DS:         ds,
		extractors: make(map[string]*features.Extractor),
		startTime:  time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiLogger == nil {
		c.apiLogger = logger.Global().Module("api")
	}

	for _, name := range settings.EnabledDatasets() {
		dsSettings, _ := settings.Dataset(name)
		c.extractors[name] = features.NewExtractor(dsSettings.Features)
	}

	e.IPExtractor = ipExtractorFromProxyHeaders
	c.Group = e.Group("/api")
	c.initRoutes()

	return c, nil
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.initDatasetRoutes()
	c.initPredictRoutes()
	c.initPredictionRoutes()
	if c.Lightcurves != nil {
		c.initLightcurveRoutes()
	}
	if c.metrics != nil {
		c.Group.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}

	c.apiLogger.Debug("routes initialized",
		logger.Int("datasets", len(c.extractors)),
		logger.Bool("lightcurves", c.Lightcurves != nil),
		logger.Bool("metrics", c.metrics != nil))
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response. Error carries the
// user-facing failure so clients can read a single field.
func NewErrorResponse(err error, message string, code int, correlationID string) *ErrorResponse {
	errorStr := message
	if err != nil && code < http.StatusInternalServerError {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
}

// requestCorrelationID reuses the request ID so a client report matches the logs
func requestCorrelationID(ctx echo.Context) string {
	if id := ctx.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	if id := ctx.Request().Header.Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return "unknown"
}

// HandleError constructs and returns an appropriate error response
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code, requestCorrelationID(ctx))
	c.logError(ctx, resp, err)
	return ctx.JSON(code, resp)
}

// logError logs client errors at warn and server errors at error level
func (c *Controller) logError(ctx echo.Context, resp *ErrorResponse, err error) {
	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", resp.Message),
		logger.Int("code", resp.Code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.String("error", errors.ScrubMessage(err.Error())))
	}

	if resp.Code >= http.StatusInternalServerError {
		c.apiLogger.Error("API error", fields...)
		return
	}
	c.apiLogger.Warn("API error", fields...)
}

// Shutdown releases controller resources
func (c *Controller) Shutdown() {
	c.apiLogger.Debug("API controller shutting down")
}
